package main

import (
	"net/http"

	"gitbridge/pkg/api"
	"gitbridge/pkg/client"
	"gitbridge/pkg/util/context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

func (h handlers) Submit(c echo.Context) error {
	ctx := context.FromContext(c.Request().Context())
	ctx = context.WithCorrelationID(ctx, uuid.New().String())

	ownerID := c.Request().Header.Get(client.HeaderOwnerID)
	if ownerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing "+client.HeaderOwnerID+" header")
	}

	var req client.SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cfg := req.RunConfig
	cfg.SourceToken = req.SourceToken
	cfg.TargetToken = req.TargetToken

	runID, err := h.sc.Submit(ctx, ownerID, cfg)
	if err != nil {
		if errors.As(err, &api.ValidationError{}) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusAccepted, client.SubmitResponse{
		RunID: runID,
	})
}
