package client

import (
	"context"
	"encoding/json"
	"net/http"

	"gitbridge/pkg/api"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

const (
	// StatsMethod is http method used for endpoint Stats
	StatsMethod = http.MethodGet
	// StatsPath is the path definition of the endpoint Stats.
	StatsPath = "/stats"
)

// StatsResponse is the response of the Stats endpoint.
type StatsResponse api.RunStats

func (cli client) Stats(ctx context.Context) (StatsResponse, error) {
	req, err := retryablehttp.NewRequest(StatsMethod, cli.uri+StatsPath, nil)
	if err != nil {
		return StatsResponse{}, errors.Wrap(err, "cannot create request")
	}
	req.Header.Set(HeaderOwnerID, cli.ownerID)

	resp, err := cli.httpcli.Do(req.WithContext(ctx))
	if err != nil {
		return StatsResponse{}, errors.Wrap(err, "cannot do request")
	}
	defer resp.Body.Close()

	var res StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return StatsResponse{}, errors.Wrap(err, "cannot decode response")
	}
	return res, nil
}
