package store

import (
	"time"

	"gitbridge/pkg/api"
	"gitbridge/pkg/util/context"
)

// Store defines access to the run store backend.
//
// Step and status updates must be durable and visible to subsequent reads
// from other connections: clients poll run state from requests other than
// the one that started the run.
type Store interface {
	OrchestratorStore
	ReadOnlyStore

	// DeleteOlderThan removes terminal runs that ended before the cutoff and
	// returns the number of deleted runs. Runs still in progress are never
	// deleted, regardless of age.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// OrchestratorStore defines the write path, used only by the orchestrator.
type OrchestratorStore interface {
	// CreateRun persists a new run with its configuration snapshot and its
	// five idle step records.
	CreateRun(ctx context.Context, run api.PipelineRun) error

	// SetRunStatus transitions the run status. Terminal statuses set the end
	// time and derived duration; errDetail is recorded only on failure.
	SetRunStatus(ctx context.Context, id string, status api.Status, errDetail *api.ErrorDetail) error

	// SetStepStatus transitions one step. The first transition into
	// in_progress sets the step start time; a terminal transition sets the
	// end time and derived duration.
	SetStepStatus(ctx context.Context, id string, step api.StepName, status api.Status, message, errorMessage string) error

	// SetRunResult records the success payload.
	SetRunResult(ctx context.Context, id string, result api.RunResult) error
}

// ReadOnlyStore defines the read path, used by the controller.
type ReadOnlyStore interface {
	// GetRun returns the run with the given id or ErrNotFound.
	GetRun(ctx context.Context, id string) (api.PipelineRun, error)

	// ListRunsByOwner returns one page of an owner's runs, most recent
	// first, along with the total number of runs for that owner.
	ListRunsByOwner(ctx context.Context, ownerID string, page, pageSize int) ([]api.PipelineRun, int, error)

	// Stats aggregates run outcomes. An empty ownerID aggregates over the
	// whole instance.
	Stats(ctx context.Context, ownerID string) (api.RunStats, error)
}
