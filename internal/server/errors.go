package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/jonathan/pitch-agent/internal/pipeline"
	"github.com/jonathan/pitch-agent/internal/pitch"
	"github.com/jonathan/pitch-agent/internal/types"
)

// statusClientClosedRequest is logged when the caller went away mid-request.
const statusClientClosedRequest = 499

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
	// Partial is intelligence gathered before the failure, when any.
	Partial  *types.IntelligenceRecord `json:"intelligence_data,omitempty"`
	Degraded bool                      `json:"degraded,omitempty"`
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	var (
		invalid *pipeline.InvalidInputError
		genErr  *pitch.GenerationError
		opErr   *pipeline.OperationError
	)
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &genErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case errors.As(err, &opErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorBody builds the response for err.
func errorBody(err error) ErrorResponse {
	var invalid *pipeline.InvalidInputError
	if errors.As(err, &invalid) {
		return ErrorResponse{Error: "invalid_input", Field: invalid.Field, Message: invalid.Message}
	}

	body := ErrorResponse{Error: "operation_failed", Message: err.Error()}
	var opErr *pipeline.OperationError
	if errors.As(err, &opErr) {
		body.Partial = opErr.Partial
	}
	var genErr *pitch.GenerationError
	if errors.As(err, &genErr) {
		body.Error = "generation_failed"
		body.Degraded = genErr.Degraded
	}
	switch HTTPStatus(err) {
	case http.StatusGatewayTimeout:
		body.Error = "timeout"
	case http.StatusInternalServerError:
		body.Error = "internal_error"
		body.Message = "internal server error"
	}
	return body
}
