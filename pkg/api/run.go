package api

import (
	"time"
)

// StepName identifies one of the five fixed pipeline stages.
type StepName string

const (
	StepCloneSource        StepName = "clone-github"
	StepCreateTargetBranch StepName = "create-gitlab-branch"
	StepCopyFiles          StepName = "copy-files"
	StepCommitChanges      StepName = "commit-changes"
	StepCreateMergeRequest StepName = "create-merge-request"
)

// StepOrder is the fixed execution order of the pipeline stages.
var StepOrder = []StepName{
	StepCloneSource,
	StepCreateTargetBranch,
	StepCopyFiles,
	StepCommitChanges,
	StepCreateMergeRequest,
}

// PipelineRun is one end-to-end execution of the migration pipeline.
type PipelineRun struct {
	ID            string       `json:"id"`
	OwnerID       string       `json:"ownerId"`
	Status        Status       `json:"status"`
	StartTime     *time.Time   `json:"startTime,omitempty"`
	EndTime       *time.Time   `json:"endTime,omitempty"`
	DurationMs    int64        `json:"durationMs,omitempty"`
	Configuration RunConfig    `json:"configuration"`
	Steps         []StepRecord `json:"steps"`
	Result        *RunResult   `json:"result,omitempty"`
	ErrorDetail   *ErrorDetail `json:"errorDetail,omitempty"`
}

// StepRecord tracks the progress of a single pipeline stage.
type StepRecord struct {
	Name         StepName   `json:"name"`
	Status       Status     `json:"status"`
	StartTime    *time.Time `json:"startTime,omitempty"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	DurationMs   int64      `json:"durationMs,omitempty"`
	Message      string     `json:"message,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
}

// RunResult is populated only when a run succeeds.
type RunResult struct {
	FilesCopied     int    `json:"filesCopied"`
	FoldersCopied   int    `json:"foldersCopied"`
	MergeRequestID  int    `json:"mergeRequestId"`
	MergeRequestURL string `json:"mergeRequestUrl"`
	SourceBranch    string `json:"sourceBranch"`
	TargetBranch    string `json:"targetBranch"`
}

// ErrorDetail is populated only when a run fails. Step names the stage
// that produced the failure.
type ErrorDetail struct {
	Step    StepName `json:"step"`
	Message string   `json:"message"`
}

// RunStats aggregates run outcomes for one owner or for the whole instance.
type RunStats struct {
	SuccessCount      int     `json:"successCount"`
	FailedCount       int     `json:"failedCount"`
	InProgressCount   int     `json:"inProgressCount"`
	AverageDurationMs float64 `json:"averageDurationMs"`
}

// NewRun returns a run in its initial state: in_progress with all five
// steps idle, in fixed order.
func NewRun(id, ownerID string, cfg RunConfig, startTime time.Time) PipelineRun {
	steps := make([]StepRecord, len(StepOrder))
	for i, name := range StepOrder {
		steps[i] = StepRecord{Name: name, Status: StatusIdle}
	}
	return PipelineRun{
		ID:            id,
		OwnerID:       ownerID,
		Status:        StatusInProgress,
		StartTime:     &startTime,
		Configuration: cfg,
		Steps:         steps,
	}
}

// Step returns a pointer to the step record with the given name, or nil.
func (r *PipelineRun) Step(name StepName) *StepRecord {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i]
		}
	}
	return nil
}

// ProgressEvent is a transient live-progress notification emitted during
// the source fetch step. It is never persisted.
type ProgressEvent struct {
	OperationID string            `json:"operationId"`
	Type        ProgressEventType `json:"type"`
	Message     string            `json:"message,omitempty"`
	Percentage  *int              `json:"percentage,omitempty"`
	Phase       string            `json:"phase,omitempty"`
}

// ProgressEventType is the kind of a ProgressEvent.
type ProgressEventType string

const (
	ProgressTypeProgress ProgressEventType = "progress"
	ProgressTypeStatus   ProgressEventType = "status"
	ProgressTypeComplete ProgressEventType = "complete"
	ProgressTypeError    ProgressEventType = "error"
)
