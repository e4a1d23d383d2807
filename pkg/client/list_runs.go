package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"gitbridge/pkg/api"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

const (
	// ListRunsMethod is http method used for endpoint ListRuns
	ListRunsMethod = http.MethodGet
	// ListRunsPath is the path definition of the endpoint ListRuns.
	ListRunsPath = "/runs"
)

// ListRunsResponse is the response of the ListRuns endpoint.
type ListRunsResponse struct {
	Runs       []api.PipelineRun `json:"runs"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

func (cli client) ListRuns(ctx context.Context, page, pageSize int) (ListRunsResponse, error) {
	url := fmt.Sprintf("%s%s?page=%d&pageSize=%d", cli.uri, ListRunsPath, page, pageSize)
	req, err := retryablehttp.NewRequest(ListRunsMethod, url, nil)
	if err != nil {
		return ListRunsResponse{}, errors.Wrap(err, "cannot create request")
	}
	req.Header.Set(HeaderOwnerID, cli.ownerID)

	resp, err := cli.httpcli.Do(req.WithContext(ctx))
	if err != nil {
		return ListRunsResponse{}, errors.Wrap(err, "cannot do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		var httpErr HTTPError
		if err := json.NewDecoder(resp.Body).Decode(&httpErr); err != nil {
			return ListRunsResponse{}, ErrBadRequest{errors.New("bad request")}
		}
		return ListRunsResponse{}, ErrBadRequest{httpErr}
	}

	var res ListRunsResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return ListRunsResponse{}, errors.Wrap(err, "cannot decode response")
	}
	return res, nil
}
