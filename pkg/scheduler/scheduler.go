// Package scheduler runs the five-stage migration pipeline. A submitted run
// executes in the background; its state is observable only through the store
// and the progress registry.
package scheduler

import (
	"time"

	"gitbridge/pkg/api"
	"gitbridge/pkg/broker"
	"gitbridge/pkg/events"
	"gitbridge/pkg/git"
	"gitbridge/pkg/progress"
	"gitbridge/pkg/remote"
	"gitbridge/pkg/store"
	"gitbridge/pkg/util/context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ProviderFactory builds a hosting-provider client bound to a per-run token.
type ProviderFactory func(ctx context.Context, token string) (remote.Provider, error)

// Scheduler defines the entries of the migration engine.
type Scheduler interface {
	// Submit validates the configuration, persists a new run and starts the
	// pipeline in the background. It returns the run id immediately; no run
	// record exists for a configuration that fails validation.
	Submit(ctx context.Context, ownerID string, cfg api.RunConfig) (string, error)

	// CancelFetch requests termination of an in-flight source fetch. It
	// reports whether a running fetch was actually signalled.
	CancelFetch(ctx context.Context, operationID string) bool
}

// Config carries the scheduler's collaborators.
type Config struct {
	Store    store.OrchestratorStore
	Sync     *git.Sync
	Registry *progress.Registry
	Source   ProviderFactory
	Target   ProviderFactory

	// Broker is optional. When set, lifecycle events are published to
	// Exchange; publish failures are logged and never fail the run.
	Broker   broker.Broker
	Exchange string
}

// NewScheduler returns a new instance of the migration scheduler.
func NewScheduler(c Config) (Scheduler, error) {
	if c.Store == nil || c.Sync == nil || c.Registry == nil {
		return nil, errors.New("store, sync and registry are required")
	}
	if c.Source == nil || c.Target == nil {
		return nil, errors.New("source and target provider factories are required")
	}
	return &scheduler{cfg: c}, nil
}

type scheduler struct {
	cfg Config
}

func (sc *scheduler) Submit(ctx context.Context, ownerID string, cfg api.RunConfig) (string, error) {
	if ownerID == "" {
		return "", api.ValidationError{Field: "ownerId", Reason: "is required"}
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	runID := uuid.New().String()
	ctx = context.WithRunID(context.WithOwnerID(ctx, ownerID), runID)
	ctx.Logger().Infof("starting migration of %s into %s", cfg.SourceRepoURL, cfg.TargetProject)

	run := api.NewRun(runID, ownerID, cfg, time.Now().UTC())
	if err := sc.cfg.Store.CreateRun(ctx, run); err != nil {
		return "", errors.Wrap(err, "cannot create run")
	}
	sc.publish(ctx, events.Event{
		Type:    events.TypeRunStarted,
		RunID:   runID,
		OwnerID: ownerID,
		Time:    time.Now().UTC(),
	})

	// The run outlives the submitting request.
	bg := context.WithRunID(context.WithOwnerID(context.WithCorrelationID(context.Background(), ctx.CorrelationID()), ownerID), runID)
	go sc.run(bg, runID, cfg)

	return runID, nil
}

func (sc *scheduler) CancelFetch(ctx context.Context, operationID string) bool {
	cancelled := sc.cfg.Registry.Cancel(operationID)
	if cancelled {
		ctx.Logger().Infof("fetch operation %s cancelled", operationID)
	}
	return cancelled
}

// run executes the pipeline stages in order, stopping at the first failure.
// Stages after a failed one are never started and stay idle.
func (sc *scheduler) run(ctx context.Context, runID string, cfg api.RunConfig) {
	st := &runState{runID: runID, cfg: cfg}
	steps := []struct {
		name api.StepName
		fn   func(context.Context, *runState) (string, error)
	}{
		{api.StepCloneSource, sc.cloneSource},
		{api.StepCreateTargetBranch, sc.createTargetBranch},
		{api.StepCopyFiles, sc.copyFiles},
		{api.StepCommitChanges, sc.commitChanges},
		{api.StepCreateMergeRequest, sc.createMergeRequest},
	}

	for _, step := range steps {
		sctx := context.WithStepName(ctx, string(step.name))
		if err := sc.cfg.Store.SetStepStatus(sctx, runID, step.name, api.StatusInProgress, "", ""); err != nil {
			sctx.Logger().Error(errors.Wrapf(err, "cannot mark step %s in progress", step.name))
		}
		sc.publishStep(sctx, runID, step.name, api.StatusInProgress)

		msg, err := step.fn(sctx, st)
		if err != nil {
			sctx.Logger().Errorf("step %s failed: %s", step.name, err)
			if serr := sc.cfg.Store.SetStepStatus(sctx, runID, step.name, api.StatusFailed, "", err.Error()); serr != nil {
				sctx.Logger().Error(errors.Wrapf(serr, "cannot mark step %s failed", step.name))
			}
			sc.publishStep(sctx, runID, step.name, api.StatusFailed)
			sc.finish(sctx, runID, api.StatusFailed, &api.ErrorDetail{Step: step.name, Message: err.Error()})
			return
		}

		if serr := sc.cfg.Store.SetStepStatus(sctx, runID, step.name, api.StatusSuccess, msg, ""); serr != nil {
			sctx.Logger().Error(errors.Wrapf(serr, "cannot mark step %s succeeded", step.name))
		}
		sc.publishStep(sctx, runID, step.name, api.StatusSuccess)
	}

	if err := sc.cfg.Store.SetRunResult(ctx, runID, st.result); err != nil {
		ctx.Logger().Error(errors.Wrap(err, "cannot record run result"))
	}
	sc.finish(ctx, runID, api.StatusSuccess, nil)
}

func (sc *scheduler) finish(ctx context.Context, runID string, status api.Status, detail *api.ErrorDetail) {
	if err := sc.cfg.Store.SetRunStatus(ctx, runID, status, detail); err != nil {
		ctx.Logger().Error(errors.Wrapf(err, "cannot set run status %s", status))
	}
	ctx.Logger().Infof("run finished with status %s", status)

	data := events.RunFinishedData{Status: status}
	if detail != nil {
		data.Error = detail.Message
	}
	sc.publish(ctx, events.Event{
		Type:    events.TypeRunFinished,
		RunID:   runID,
		OwnerID: ctx.OwnerID(),
		Data:    data,
		Time:    time.Now().UTC(),
	})
}

func (sc *scheduler) publishStep(ctx context.Context, runID string, step api.StepName, status api.Status) {
	sc.publish(ctx, events.Event{
		Type:    events.TypeStepChanged,
		RunID:   runID,
		OwnerID: ctx.OwnerID(),
		Data:    events.StepChangedData{Step: step, Status: status},
		Time:    time.Now().UTC(),
	})
}

func (sc *scheduler) publish(ctx context.Context, evt events.Event) {
	if sc.cfg.Broker == nil {
		return
	}
	evt.CorrelationID = ctx.CorrelationID()
	if err := sc.cfg.Broker.Publish(ctx, evt, sc.cfg.Exchange, string(evt.Type)); err != nil {
		ctx.Logger().Warnf("cannot publish event %s: %v", evt, err)
	}
}
