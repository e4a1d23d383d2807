package main

import (
	"net/http"
	"strconv"
	"time"

	"gitbridge/pkg/client"
	"gitbridge/pkg/util/context"

	"github.com/labstack/echo/v4"
)

// Cleanup deletes finished runs older than the requested number of days.
// Runs still in progress are kept regardless of age.
func (h handlers) Cleanup(c echo.Context) error {
	ctx := context.FromContext(c.Request().Context())

	raw := c.QueryParam("days")
	if raw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "days query parameter is required")
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "days must be a positive integer")
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	deleted, err := h.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	ctx.Logger().Infof("cleanup removed %d runs older than %d days", deleted, days)
	return c.JSON(http.StatusOK, client.CleanupResponse{
		DeletedCount: deleted,
	})
}
