// Package events defines the lifecycle messages published while a migration
// run executes.
package events

import (
	"fmt"
	"time"

	"gitbridge/pkg/api"
)

// EventType type of event
type EventType string

const (
	TypeRunStarted  EventType = "RUN_STARTED"
	TypeStepChanged EventType = "STEP_CHANGED"
	TypeRunFinished EventType = "RUN_FINISHED"
)

// Event represents a message to publish.
type Event struct {
	Type          EventType   `json:"type"`
	RunID         string      `json:"run_id"`
	OwnerID       string      `json:"owner_id"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Data          interface{} `json:"data,omitempty"`
	Time          time.Time   `json:"time"`
}

func (e Event) String() string {
	return fmt.Sprintf("%s for run %s", e.Type, e.RunID)
}

// StepChangedData is the expected data type for event with type TypeStepChanged.
type StepChangedData struct {
	Step   api.StepName `json:"step"`
	Status api.Status   `json:"status"`
}

// RunFinishedData is the expected data type for event with type TypeRunFinished.
type RunFinishedData struct {
	Status api.Status `json:"status"`
	Error  string     `json:"error,omitempty"`
}
