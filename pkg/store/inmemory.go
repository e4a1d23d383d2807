package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"gitbridge/pkg/api"
	"gitbridge/pkg/util/context"
)

// NewInMemoryStore returns a new InMemory store. Used by tests and by
// deployments without a configured database.
func NewInMemoryStore() Store {
	return &inMemory{
		runs: make(map[string]*api.PipelineRun),
	}
}

type inMemory struct {
	mu   sync.RWMutex
	runs map[string]*api.PipelineRun
}

func (s *inMemory) CreateRun(ctx context.Context, run api.PipelineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	r := copyRun(run)
	s.runs[run.ID] = &r
	return nil
}

func (s *inMemory) SetRunStatus(ctx context.Context, id string, status api.Status, errDetail *api.ErrorDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, exists := s.runs[id]
	if !exists {
		return NotFoundError(fmt.Sprintf("run %s", id))
	}
	r.Status = status
	if errDetail != nil {
		d := *errDetail
		r.ErrorDetail = &d
	}
	if status.Finished() {
		now := time.Now()
		r.EndTime = &now
		if r.StartTime != nil {
			r.DurationMs = now.Sub(*r.StartTime).Milliseconds()
		}
	}
	return nil
}

func (s *inMemory) SetStepStatus(ctx context.Context, id string, step api.StepName, status api.Status, message, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, exists := s.runs[id]
	if !exists {
		return NotFoundError(fmt.Sprintf("run %s", id))
	}
	rec := r.Step(step)
	if rec == nil {
		return NotFoundError(fmt.Sprintf("step %s in run %s", step, id))
	}
	rec.Status = status
	if message != "" {
		rec.Message = message
	}
	if errorMessage != "" {
		rec.ErrorMessage = errorMessage
	}
	now := time.Now()
	if status == api.StatusInProgress && rec.StartTime == nil {
		rec.StartTime = &now
	} else if status.Finished() {
		rec.EndTime = &now
		if rec.StartTime != nil {
			rec.DurationMs = now.Sub(*rec.StartTime).Milliseconds()
		}
	}
	return nil
}

func (s *inMemory) SetRunResult(ctx context.Context, id string, result api.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, exists := s.runs[id]
	if !exists {
		return NotFoundError(fmt.Sprintf("run %s", id))
	}
	res := result
	r.Result = &res
	return nil
}

func (s *inMemory) GetRun(ctx context.Context, id string) (api.PipelineRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, exists := s.runs[id]
	if !exists {
		return api.PipelineRun{}, NotFoundError(fmt.Sprintf("run %s", id))
	}
	return copyRun(*r), nil
}

func (s *inMemory) ListRunsByOwner(ctx context.Context, ownerID string, page, pageSize int) ([]api.PipelineRun, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var owned []*api.PipelineRun
	for _, r := range s.runs {
		if r.OwnerID == ownerID {
			owned = append(owned, r)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		ti, tj := owned[i].StartTime, owned[j].StartTime
		if ti == nil || tj == nil {
			return tj == nil
		}
		return ti.After(*tj)
	})

	total := len(owned)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	start := (page - 1) * pageSize
	if start >= total {
		return []api.PipelineRun{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	items := make([]api.PipelineRun, 0, end-start)
	for _, r := range owned[start:end] {
		items = append(items, copyRun(*r))
	}
	return items, total, nil
}

func (s *inMemory) Stats(ctx context.Context, ownerID string) (api.RunStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats api.RunStats
	var durSum int64
	var durCount int
	for _, r := range s.runs {
		if ownerID != "" && r.OwnerID != ownerID {
			continue
		}
		switch r.Status {
		case api.StatusSuccess:
			stats.SuccessCount++
		case api.StatusFailed:
			stats.FailedCount++
		case api.StatusInProgress:
			stats.InProgressCount++
		}
		if r.Status.Finished() {
			durSum += r.DurationMs
			durCount++
		}
	}
	if durCount > 0 {
		stats.AverageDurationMs = float64(durSum) / float64(durCount)
	}
	return stats, nil
}

func (s *inMemory) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, r := range s.runs {
		if !r.Status.Finished() {
			continue
		}
		if r.EndTime != nil && r.EndTime.Before(cutoff) {
			delete(s.runs, id)
			deleted++
		}
	}
	return deleted, nil
}

// copyRun returns a deep copy so callers never share step slices with the map.
func copyRun(r api.PipelineRun) api.PipelineRun {
	out := r
	out.Steps = make([]api.StepRecord, len(r.Steps))
	copy(out.Steps, r.Steps)
	if r.Result != nil {
		res := *r.Result
		out.Result = &res
	}
	if r.ErrorDetail != nil {
		d := *r.ErrorDetail
		out.ErrorDetail = &d
	}
	return out
}
