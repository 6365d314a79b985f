package pipeline

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/pitch-agent/internal/matching"
	"github.com/jonathan/pitch-agent/internal/pitch"
	"github.com/jonathan/pitch-agent/internal/types"
)

// InvalidInputError rejects a request before any external call is made.
type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s - %s", e.Field, e.Message)
}

// OperationError reports a failed operation together with whatever was
// produced before the failure, so callers can retry cheaply.
type OperationError struct {
	Operation string
	Partial   *types.IntelligenceRecord
	Cause     error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Cause)
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// IsInvalidInput reports whether err is an *InvalidInputError.
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

// fromValidation maps validator failures onto the first offending field.
func fromValidation(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &InvalidInputError{Field: fe.Field(), Message: validationMessage(fe)}
	}
	return &InvalidInputError{Field: "request", Message: err.Error()}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// fromComponent turns component input errors into InvalidInputError and
// passes everything else through.
func fromComponent(err error) error {
	switch {
	case errors.Is(err, pitch.ErrEmptyCustomer):
		return &InvalidInputError{Field: "customer", Message: "is required"}
	case errors.Is(err, pitch.ErrNoMatches):
		return &InvalidInputError{Field: "selected_rows", Message: err.Error()}
	case errors.Is(err, pitch.ErrEmptyDraft):
		return &InvalidInputError{Field: "long_pitch", Message: err.Error()}
	case errors.Is(err, pitch.ErrEmptyMessage):
		return &InvalidInputError{Field: "message", Message: "is required"}
	case errors.Is(err, matching.ErrInvalidLimit):
		return &InvalidInputError{Field: "limit", Message: err.Error()}
	default:
		return err
	}
}
