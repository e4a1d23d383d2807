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

// RunStateResponse is the response of the RunState endpoint.
type RunStateResponse api.PipelineRun

const (
	// RunStateMethod is http method used for endpoint RunState
	RunStateMethod     = http.MethodGet
	runStatePathFormat = "/runs/%s"
)

var (
	// RunStatePath is the path definition of the endpoint RunState.
	RunStatePath = fmt.Sprintf(runStatePathFormat, fmt.Sprintf(":%s", RunIDParam))
)

func (cli client) RunState(ctx context.Context, runID string) (RunStateResponse, error) {
	req, err := retryablehttp.NewRequest(RunStateMethod, fmt.Sprintf(cli.uri+runStatePathFormat, runID), nil)
	if err != nil {
		return RunStateResponse{}, errors.Wrap(err, "cannot create request")
	}
	req.Header.Set(HeaderOwnerID, cli.ownerID)

	resp, err := cli.httpcli.Do(req.WithContext(ctx))
	if err != nil {
		return RunStateResponse{}, errors.Wrap(err, "cannot do request")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return RunStateResponse{}, ErrNotFound{fmt.Sprintf("run %s", runID)}
	case http.StatusForbidden:
		return RunStateResponse{}, ErrForbidden{fmt.Sprintf("run %s", runID)}
	}

	var res RunStateResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return RunStateResponse{}, errors.Wrap(err, "cannot decode response")
	}
	return res, nil
}
