// Package search implements the ordered search-engine cascade that feeds the
// classifier and the intelligence extractor.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/pitch-agent/internal/types"
)

// Engine is a single search backend.
type Engine interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error)
}

// ErrorKind classifies engine failures.
type ErrorKind string

const (
	RateLimited     ErrorKind = "rate_limited"
	Unreachable     ErrorKind = "unreachable"
	InvalidResponse ErrorKind = "invalid_response"
)

// EngineError is returned by engines for every failure.
type EngineError struct {
	Engine string
	Kind   ErrorKind
	Cause  error
}

func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s search error (%s): %v", e.Engine, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s search error (%s)", e.Engine, e.Kind)
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// KindOf returns the failure kind of err. Errors that are not EngineErrors,
// including deadline and transport errors, are Unreachable.
func KindOf(err error) ErrorKind {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return Unreachable
}

// statusError maps a non-2xx HTTP status to an EngineError.
func statusError(engine string, code int) *EngineError {
	kind := Unreachable
	switch {
	case code == http.StatusTooManyRequests:
		kind = RateLimited
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		kind = Unreachable
	case code >= 400 && code < 500:
		kind = InvalidResponse
	}
	return &EngineError{Engine: engine, Kind: kind, Cause: fmt.Errorf("HTTP %d", code)}
}

// transportError wraps a failure to reach an engine.
func transportError(engine string, err error) *EngineError {
	return &EngineError{Engine: engine, Kind: Unreachable, Cause: err}
}
