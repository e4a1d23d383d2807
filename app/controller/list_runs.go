package main

import (
	"net/http"
	"strconv"

	"gitbridge/pkg/client"
	"gitbridge/pkg/util/context"

	"github.com/labstack/echo/v4"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (h handlers) ListRuns(c echo.Context) error {
	ctx := context.FromContext(c.Request().Context())

	ownerID := c.Request().Header.Get(client.HeaderOwnerID)
	if ownerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing "+client.HeaderOwnerID+" header")
	}

	page, err := queryInt(c, "page", 1)
	if err != nil || page < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "page must be a positive integer")
	}
	pageSize, err := queryInt(c, "pageSize", defaultPageSize)
	if err != nil || pageSize < 1 || pageSize > maxPageSize {
		return echo.NewHTTPError(http.StatusBadRequest, "pageSize must be between 1 and 100")
	}

	runs, total, err := h.store.ListRunsByOwner(ctx, ownerID, page, pageSize)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}
	return c.JSON(http.StatusOK, client.ListRunsResponse{
		Runs:       runs,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
