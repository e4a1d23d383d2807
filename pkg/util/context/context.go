package context

import (
	gocontext "context"

	"github.com/sirupsen/logrus"
)

// Context extends the regular golang context.Context interface with access to
// a logger scoped to the identifiers of the current run.
type Context interface {
	gocontext.Context
	Logger() *logrus.Entry
	RunID() string
	OwnerID() string
	CorrelationID() string
	StepName() string
	OperationID() string
}

// Background returns a non-nil, empty Context.
func Background() Context {
	return ctx{
		Context: gocontext.Background(),
	}
}

// FromContext returns a new context from the given go context.
func FromContext(c gocontext.Context) Context {
	if bc, ok := c.(Context); ok {
		return bc
	}
	return ctx{
		Context: c,
	}
}

// WithRunID returns a copy of the context with a run identifier.
func WithRunID(c Context, runID string) Context {
	return ctx{c, runID, c.OwnerID(), c.CorrelationID(), c.StepName(), c.OperationID()}
}

// WithOwnerID returns a copy of the context with an owner identifier.
func WithOwnerID(c Context, ownerID string) Context {
	return ctx{c, c.RunID(), ownerID, c.CorrelationID(), c.StepName(), c.OperationID()}
}

// WithCorrelationID returns a copy of the context with a correlationID.
func WithCorrelationID(c Context, correlationID string) Context {
	return ctx{c, c.RunID(), c.OwnerID(), correlationID, c.StepName(), c.OperationID()}
}

// WithStepName returns a copy of the context with a pipeline step name.
func WithStepName(c Context, step string) Context {
	return ctx{c, c.RunID(), c.OwnerID(), c.CorrelationID(), step, c.OperationID()}
}

// WithOperationID returns a copy of the context with a fetch operation id.
func WithOperationID(c Context, operationID string) Context {
	return ctx{c, c.RunID(), c.OwnerID(), c.CorrelationID(), c.StepName(), operationID}
}

type ctx struct {
	gocontext.Context
	runID         string
	ownerID       string
	correlationID string
	stepName      string
	operationID   string
}

func (c ctx) Logger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.TraceLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyMsg: "message",
		},
	})
	e := logrus.NewEntry(l)
	if c.RunID() != "" {
		e = e.WithField("run_id", c.RunID())
	}
	if c.StepName() != "" {
		e = e.WithField("step", c.StepName())
	}
	if c.OperationID() != "" {
		e = e.WithField("operation_id", c.OperationID())
	}
	return e
}

func (c ctx) RunID() string {
	return c.runID
}

func (c ctx) OwnerID() string {
	return c.ownerID
}

func (c ctx) CorrelationID() string {
	return c.correlationID
}

func (c ctx) StepName() string {
	return c.stepName
}

func (c ctx) OperationID() string {
	return c.operationID
}
