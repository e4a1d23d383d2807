package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

const (
	// CancelFetchMethod is http method used for endpoint CancelFetch
	CancelFetchMethod     = http.MethodPost
	cancelFetchPathFormat = "/progress/%s/cancel"

	// CleanupMethod is http method used for endpoint Cleanup
	CleanupMethod = http.MethodDelete
	// CleanupPath is the path definition of the endpoint Cleanup.
	CleanupPath = "/runs"
)

var (
	// CancelFetchPath is the path definition of the endpoint CancelFetch.
	CancelFetchPath = fmt.Sprintf(cancelFetchPathFormat, fmt.Sprintf(":%s", OperationIDParam))
)

// CancelFetchResponse is the response of the CancelFetch endpoint.
type CancelFetchResponse struct {
	Cancelled bool `json:"cancelled"`
}

// CleanupResponse is the response of the Cleanup endpoint.
type CleanupResponse struct {
	DeletedCount int `json:"deletedCount"`
}

func (cli client) CancelFetch(ctx context.Context, operationID string) (bool, error) {
	url := fmt.Sprintf(cli.uri+cancelFetchPathFormat, operationID)
	req, err := retryablehttp.NewRequest(CancelFetchMethod, url, nil)
	if err != nil {
		return false, errors.Wrap(err, "cannot create request")
	}
	req.Header.Set(HeaderOwnerID, cli.ownerID)

	resp, err := cli.httpcli.Do(req.WithContext(ctx))
	if err != nil {
		return false, errors.Wrap(err, "cannot do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, ErrNotFound{fmt.Sprintf("operation %s", operationID)}
	}

	var res CancelFetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return false, errors.Wrap(err, "cannot decode response")
	}
	return res.Cancelled, nil
}

func (cli client) Cleanup(ctx context.Context, days int) (int, error) {
	url := fmt.Sprintf("%s%s?days=%d", cli.uri, CleanupPath, days)
	req, err := retryablehttp.NewRequest(CleanupMethod, url, nil)
	if err != nil {
		return 0, errors.Wrap(err, "cannot create request")
	}
	req.Header.Set(HeaderOwnerID, cli.ownerID)

	resp, err := cli.httpcli.Do(req.WithContext(ctx))
	if err != nil {
		return 0, errors.Wrap(err, "cannot do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		var httpErr HTTPError
		if err := json.NewDecoder(resp.Body).Decode(&httpErr); err != nil {
			return 0, ErrBadRequest{errors.New("bad request")}
		}
		return 0, ErrBadRequest{httpErr}
	}

	var res CleanupResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return 0, errors.Wrap(err, "cannot decode response")
	}
	return res.DeletedCount, nil
}
