package api

import "fmt"

// ValidationError rejects malformed input before any side effect.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// AuthenticationError is returned when a remote host rejects a credential.
type AuthenticationError struct {
	Provider string
	Message  string
}

func (e AuthenticationError) Error() string {
	return fmt.Sprintf("%s authentication failed: %s", e.Provider, e.Message)
}

// AuthorizationError is returned when a credential is valid but lacks permission.
type AuthorizationError struct {
	Provider string
	Message  string
}

func (e AuthorizationError) Error() string {
	return fmt.Sprintf("%s access forbidden: %s", e.Provider, e.Message)
}

// NotFoundError is returned when a referenced project, branch or run is absent.
type NotFoundError struct {
	What string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.What)
}

// IntegrationError is a generic failure of an external call or subprocess.
// It carries the raw underlying message.
type IntegrationError struct {
	Provider string
	Message  string
}

func (e IntegrationError) Error() string {
	return fmt.Sprintf("%s integration error: %s", e.Provider, e.Message)
}

// TimeoutError is returned when an external fetch exceeds its bound.
type TimeoutError struct {
	Operation string
}

func (e TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out", e.Operation)
}

// CancelledError is returned when a user explicitly cancels an operation.
type CancelledError struct {
	Operation string
}

func (e CancelledError) Error() string {
	return fmt.Sprintf("%s cancelled", e.Operation)
}
