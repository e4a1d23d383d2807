package main

import (
	"net/http"

	"gitbridge/pkg/client"
	"gitbridge/pkg/store"
	"gitbridge/pkg/util/context"

	"github.com/labstack/echo/v4"
)

func (h handlers) RunState(c echo.Context) error {
	ctx := context.FromContext(c.Request().Context())

	runID := c.Param(client.RunIDParam)
	run, err := h.store.GetRun(ctx, runID)
	if err != nil {
		if store.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Run details are only served to the run's owner.
	if run.OwnerID != c.Request().Header.Get(client.HeaderOwnerID) {
		return echo.NewHTTPError(http.StatusForbidden, "run belongs to another owner")
	}

	return c.JSON(http.StatusOK, run)
}
