package client

import (
	"context"
	"strings"

	"gitbridge/pkg/api"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	// RunIDParam is the param definition for the run identifier
	RunIDParam = "runID"

	// OperationIDParam is the param definition for the fetch operation identifier
	OperationIDParam = "operationID"

	// HeaderOwnerID carries the identity of the caller. Run details are only
	// served to the run's owner.
	HeaderOwnerID = "X-Owner-ID"
)

// Client is the API client that performs all operations to a gitbridge server
type Client interface {
	// Submit submits a new migration run with the given configuration.
	// It returns a run identifier.
	Submit(ctx context.Context, cfg api.RunConfig) (string, error)

	// RunState returns the state of a run.
	RunState(ctx context.Context, runID string) (RunStateResponse, error)

	// ListRuns returns one page of the owner's runs, most recent first.
	ListRuns(ctx context.Context, page, pageSize int) (ListRunsResponse, error)

	// Stats returns aggregated run outcomes for the owner.
	Stats(ctx context.Context) (StatsResponse, error)

	// CancelFetch requests termination of an in-flight source fetch.
	CancelFetch(ctx context.Context, operationID string) (bool, error)

	// Cleanup deletes finished runs older than the given number of days.
	Cleanup(ctx context.Context, days int) (int, error)
}

// NewClient creates a gitbridge client acting as the given owner.
func NewClient(uri, ownerID string) (Client, error) {
	httpcli := retryablehttp.NewClient()
	httpcli.Logger = nil
	u := strings.TrimRight(uri, "/")
	return client{
		httpcli: httpcli,
		uri:     u,
		ownerID: ownerID,
	}, nil
}

type client struct {
	httpcli *retryablehttp.Client
	uri     string
	ownerID string
}
