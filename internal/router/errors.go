package router

import (
	"errors"
	"fmt"
)

// ErrValidation marks a malformed routing request, missing content or
// otherwise unusable.
var ErrValidation = errors.New("router: invalid request")

// RejectionError carries a steering rule's configured rejection back to the
// caller.
type RejectionError struct {
	Message    string
	StatusCode int
}

// Error implements error.
func (e *RejectionError) Error() string {
	return fmt.Sprintf("router: rejected by rule: %s", e.Message)
}
