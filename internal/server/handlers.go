package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/pitch-agent/internal/db"
	"github.com/jonathan/pitch-agent/internal/pipeline"
	"github.com/jonathan/pitch-agent/internal/types"
)

// maxBodyBytes bounds request bodies; pitch requests carry match rows and
// intelligence records and can be large.
const maxBodyBytes = 4 << 20

const maxListedRuns = 200

// RefineResponse is the body of a successful refinement.
type RefineResponse struct {
	ShortPitch string          `json:"short_pitch"`
	LongPitch  string          `json:"long_pitch"`
	Sections   []types.Section `json:"sections"`
}

// RunResponse is a recorded run with its artifacts.
type RunResponse struct {
	db.Run
	Artifacts map[string]json.RawMessage `json:"artifacts"`
}

// decode reads a JSON body into v. It writes the 400 itself and reports
// whether decoding succeeded.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			s.badRequest(w, "body", "request body is required")
		case errors.As(err, &maxErr):
			s.badRequest(w, "body", fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		default:
			s.badRequest(w, "body", "invalid JSON: "+err.Error())
		}
		return false
	}
	return true
}

// handleClassify detects a customer's industry.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req types.ClassifyRequest
	if !s.decode(w, r, &req) {
		return
	}
	cls, err := s.pipeline.Classify(r.Context(), req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, cls)
}

// handleMatches gathers intelligence and ranks the portfolio.
func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	var req types.MatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.pipeline.Matches(r.Context(), req, nil)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, out)
}

// handleMatchesStream runs the match operation and streams progress via SSE.
// The stream ends with a result or an error event.
func (s *Server) handleMatchesStream(w http.ResponseWriter, r *http.Request) {
	var req types.MatchRequest
	if !s.decode(w, r, &req) {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	out, err := s.pipeline.Matches(r.Context(), req, func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent(eventProgress, event); err != nil {
			s.logger.Debug("failed to write progress event", zap.Error(err))
		}
	})
	if err != nil {
		if HTTPStatus(err) >= http.StatusInternalServerError {
			s.logger.Error("streamed matches failed",
				zap.String("request_id", requestID(r.Context())), zap.Error(err))
		}
		_ = sse.WriteError(errorBody(err))
		return
	}
	_ = sse.WriteResult(out)
}

// handlePitch composes a pitch from selected matches.
func (s *Server) handlePitch(w http.ResponseWriter, r *http.Request) {
	var req types.PitchRequest
	if !s.decode(w, r, &req) {
		return
	}
	draft, err := s.pipeline.BuildPitch(r.Context(), req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, draft)
}

// handleRefine revises a pitch.
func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	var req types.RefineRequest
	if !s.decode(w, r, &req) {
		return
	}
	draft, err := s.pipeline.Refine(r.Context(), req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, RefineResponse{
		ShortPitch: draft.ShortSummary,
		LongPitch:  draft.LongSummary,
		Sections:   draft.Sections,
	})
}

// handleChat answers a question about a customer.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if !s.decode(w, r, &req) {
		return
	}
	reply, err := s.pipeline.Chat(r.Context(), req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, reply)
}

// handleListRuns lists recent runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.jsonResponse(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "run recording is disabled"})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.badRequest(w, "limit", "must be a positive integer")
			return
		}
		limit = min(n, maxListedRuns)
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleGetRun returns one run and every artifact it produced.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.jsonResponse(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "run recording is disabled"})
		return
	}
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, "id", "invalid run ID format")
		return
	}

	run, err := s.runs.GetRun(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if run == nil {
		s.jsonResponse(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "run not found"})
		return
	}

	resp := RunResponse{Run: *run, Artifacts: map[string]json.RawMessage{}}
	for _, step := range []string{db.StepClassification, db.StepIntelligence, db.StepMatches, db.StepPitch, db.StepChat} {
		content, err := s.runs.GetArtifact(r.Context(), runID, step)
		if err != nil {
			s.errorResponse(w, r, err)
			return
		}
		if content != nil {
			resp.Artifacts[step] = content
		}
	}
	s.jsonResponse(w, http.StatusOK, resp)
}
