package store

import (
	"fmt"

	"github.com/pkg/errors"
)

// NotFoundError returns a new ErrNotFound
func NotFoundError(what string) error {
	return ErrNotFound{what}
}

// ErrNotFound is the error returned when a requested run or step does not
// exist. This error should not be retried.
type ErrNotFound struct {
	what string
}

func (err ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found", err.what)
}

// IsNotFound reports whether err is an ErrNotFound, unwrapping as needed.
func IsNotFound(err error) bool {
	return errors.As(err, &ErrNotFound{})
}
