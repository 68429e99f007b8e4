package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict: submission changed concurrently")
	ErrDuplicateCode = errors.New("duplicate submission code")
)

// IllegalTransitionError reports an attempted state change with no matching
// edge in the state machine. It indicates a logically invalid request (e.g. a
// moderator double-click) and is never retried automatically.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition %s -> %s", e.From, e.To)
}

// IsIllegalTransition reports whether err is an IllegalTransitionError.
func IsIllegalTransition(err error) bool {
	var ite *IllegalTransitionError
	return errors.As(err, &ite)
}

// ExternalServiceError wraps a failure from the prompt-enhancement or
// video-generation service. The worker's retry policy keys off this type.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }
