package main

import (
	"net/http"

	"gitbridge/pkg/client"
	"gitbridge/pkg/util/context"

	"github.com/labstack/echo/v4"
)

// Stats aggregates run outcomes for the calling owner. Without an owner
// header, it aggregates over the whole instance.
func (h handlers) Stats(c echo.Context) error {
	ctx := context.FromContext(c.Request().Context())

	ownerID := c.Request().Header.Get(client.HeaderOwnerID)
	stats, err := h.store.Stats(ctx, ownerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, client.StatsResponse(stats))
}
