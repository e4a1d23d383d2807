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
	// SubmitMethod is http method used for endpoint Submit
	SubmitMethod = http.MethodPost
	// SubmitPath is the path definition of the endpoint Submit.
	SubmitPath = "/runs"
)

// SubmitRequest is the request structure for the Submit endpoint. Tokens are
// carried explicitly since the configuration never serializes them.
type SubmitRequest struct {
	api.RunConfig
	SourceToken string `json:"sourceToken"`
	TargetToken string `json:"targetToken"`
}

// SubmitResponse is the response structure for the Submit endpoint
type SubmitResponse struct {
	RunID string `json:"runId"`
}

func (cli client) Submit(ctx context.Context, cfg api.RunConfig) (string, error) {
	body, err := json.Marshal(SubmitRequest{
		RunConfig:   cfg,
		SourceToken: cfg.SourceToken,
		TargetToken: cfg.TargetToken,
	})
	if err != nil {
		return "", errors.Wrap(err, "cannot marshal request")
	}

	req, err := retryablehttp.NewRequest(SubmitMethod, cli.uri+SubmitPath, body)
	if err != nil {
		return "", errors.Wrap(err, "cannot create request")
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set(HeaderOwnerID, cli.ownerID)

	resp, err := cli.httpcli.Do(req.WithContext(ctx))
	if err != nil {
		return "", errors.Wrap(err, "cannot do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		var httpErr HTTPError
		if err := json.NewDecoder(resp.Body).Decode(&httpErr); err != nil {
			//Cannot decode error
			return "", ErrBadRequest{errors.New("bad request")}
		}
		return "", ErrBadRequest{errors.Wrap(httpErr, "run configuration is not valid")}
	}
	var res SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", errors.Wrap(err, "cannot decode response")
	}
	return res.RunID, nil
}
