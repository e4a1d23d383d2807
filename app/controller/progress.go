package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"gitbridge/pkg/client"
	"gitbridge/pkg/util/context"

	"github.com/labstack/echo/v4"
)

// Progress streams the live events of a fetch operation as server-sent
// events. The stream ends when the operation finishes or the client leaves;
// a subscriber only sees events published after it connected.
func (h handlers) Progress(c echo.Context) error {
	ctx := context.FromContext(c.Request().Context())
	operationID := c.Param(client.OperationIDParam)
	ctx = context.WithOperationID(ctx, operationID)

	events, detach := h.registry.Subscribe(operationID)
	defer detach()

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	ctx.Logger().Info("progress subscriber attached")
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			data, err := json.Marshal(evt)
			if err != nil {
				ctx.Logger().Errorf("cannot marshal progress event: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(resp, "data: %s\n\n", data); err != nil {
				return nil
			}
			resp.Flush()
		case <-ctx.Done():
			return nil
		}
	}
}

func (h handlers) CancelFetch(c echo.Context) error {
	ctx := context.FromContext(c.Request().Context())
	operationID := c.Param(client.OperationIDParam)

	cancelled := h.sc.CancelFetch(context.WithOperationID(ctx, operationID), operationID)
	return c.JSON(http.StatusOK, client.CancelFetchResponse{
		Cancelled: cancelled,
	})
}
