package api

// Status is the execution status of a run or a step.
type Status string

const (
	// StatusIdle default status, the step has not been attempted yet
	StatusIdle Status = "idle"

	// StatusInProgress status for runs and steps currently executing
	StatusInProgress Status = "in_progress"

	// StatusSuccess status for runs and steps that completed
	StatusSuccess Status = "success"

	// StatusFailed status for runs and steps that failed
	StatusFailed Status = "failed"
)

// Finished returns true if the status is terminal.
func (s Status) Finished() bool {
	return s == StatusSuccess || s == StatusFailed
}
