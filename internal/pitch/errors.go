package pitch

import (
	"errors"
	"fmt"
)

// Input errors, returned before any generation call.
var (
	ErrEmptyCustomer = errors.New("customer is required")
	ErrNoMatches     = errors.New("at least one selected portfolio row is required")
	ErrEmptyDraft    = errors.New("a current pitch is required for refinement")
	ErrEmptyMessage  = errors.New("message is required")
	errEmptyOutput   = errors.New("model returned no usable text")
)

// Operations reported in GenerationError.
const (
	OpCompose = "compose"
	OpRefine  = "refine"
	OpChat    = "chat"
)

// GenerationError reports a failed generation call. Degraded is set when the
// inputs were already degraded (for example, intelligence gathered while all
// search engines were failing), which helps callers decide whether to retry.
type GenerationError struct {
	Operation string
	Degraded  bool
	Cause     error
}

func (e *GenerationError) Error() string {
	msg := fmt.Sprintf("%s generation failed", e.Operation)
	if e.Degraded {
		msg += " (degraded inputs)"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}
