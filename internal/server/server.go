// Package server provides the HTTP API for the pitch pipeline.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jonathan/pitch-agent/internal/config"
	"github.com/jonathan/pitch-agent/internal/db"
	"github.com/jonathan/pitch-agent/internal/logging"
	"github.com/jonathan/pitch-agent/internal/metrics"
	"github.com/jonathan/pitch-agent/internal/pipeline"
	"github.com/jonathan/pitch-agent/internal/server/middleware"
	"github.com/jonathan/pitch-agent/internal/server/ratelimit"
	"github.com/jonathan/pitch-agent/internal/types"
)

const shutdownTimeout = 30 * time.Second

// Pipeline is the set of operations the API exposes. *pipeline.Service
// implements it.
type Pipeline interface {
	Classify(ctx context.Context, req types.ClassifyRequest) (types.IndustryClassification, error)
	Matches(ctx context.Context, req types.MatchRequest, onProgress pipeline.ProgressCallback) (*pipeline.MatchOutcome, error)
	BuildPitch(ctx context.Context, req types.PitchRequest) (*types.PitchDraft, error)
	Refine(ctx context.Context, req types.RefineRequest) (*types.PitchDraft, error)
	Chat(ctx context.Context, req types.ChatRequest) (*types.ChatReply, error)
}

// RunReader reads recorded runs. *db.DB implements it.
type RunReader interface {
	GetRun(ctx context.Context, runID uuid.UUID) (*db.Run, error)
	ListRuns(ctx context.Context, limit int) ([]db.Run, error)
	GetArtifact(ctx context.Context, runID uuid.UUID, step string) ([]byte, error)
}

// Options configure a Server.
type Options struct {
	Port int
	// RequestTimeout bounds the write side of a response; operations carry
	// their own deadline.
	RequestTimeout time.Duration
	RateLimit      *ratelimit.Config
	// JWT enables bearer-token auth on every route except /health and
	// /metrics. Nil disables auth.
	JWT *config.JWTConfig
	// Runs enables the /runs routes.
	Runs   RunReader
	Logger *zap.Logger
}

// OptionsFromConfig builds server options from the service configuration.
func OptionsFromConfig(cfg *config.Config, runs RunReader, logger *zap.Logger) (Options, error) {
	jwtCfg, err := cfg.JWT()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Port:           cfg.Server.Port,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimit:      ratelimit.FromConfig(cfg.RateLimit),
		JWT:            jwtCfg,
		Runs:           runs,
		Logger:         logger,
	}, nil
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	pipeline    Pipeline
	runs        RunReader
	rateLimiter *ratelimit.Limiter
	logger      *zap.Logger
}

// New creates a new server instance.
func New(p Pipeline, opts Options) *Server {
	s := &Server{
		pipeline:    p,
		runs:        opts.Runs,
		rateLimiter: ratelimit.NewLimiter(opts.RateLimit),
		logger:      logging.OrNop(opts.Logger).Named("server"),
	}

	mux := http.NewServeMux()
	s.route(mux, "POST /industry", s.handleClassify)
	s.route(mux, "POST /portfolio/matches", s.handleMatches)
	s.route(mux, "POST /portfolio/matches/stream", s.handleMatchesStream)
	s.route(mux, "POST /pitch", s.handlePitch)
	s.route(mux, "POST /pitch/refine", s.handleRefine)
	s.route(mux, "POST /chat", s.handleChat)
	s.route(mux, "GET /runs", s.handleListRuns)
	s.route(mux, "GET /runs/{id}", s.handleGetRun)
	s.route(mux, "GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux
	if opts.JWT != nil {
		handler = middleware.AuthMiddleware(NewJWTService(opts.JWT).AsTokenValidator(), "/health", "/metrics")(handler)
	}
	handler = s.withRateLimit(s.withCORS(handler))
	handler = s.withLogging(handler)

	writeTimeout := opts.RequestTimeout
	if writeTimeout <= 0 {
		writeTimeout = pipeline.DefaultRequestTimeout
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		s.rateLimiter.Stop()
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	defer s.rateLimiter.Stop()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Close stops background work without serving.
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// route registers h under pattern and counts responses by route and code.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := asRecorder(w)
		h(rec, r)
		metrics.HTTPRequests.WithLabelValues(pattern, strconv.Itoa(rec.status())).Inc()
	}))
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects clients over their budget with 429.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(clientIP(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type requestIDKey struct{}

// withLogging assigns a request ID and writes one access log line per request.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

		rec := asRecorder(w)
		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", clientIP(r)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

// errorResponse writes err with the status HTTPStatus assigns it.
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", requestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	s.jsonResponse(w, status, errorBody(err))
}

// badRequest writes a 400 for a malformed request.
func (s *Server) badRequest(w http.ResponseWriter, field, message string) {
	s.jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_input", Field: field, Message: message})
}

// clientIP is the client identifier used for rate limiting.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}
	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Seconds() + 0.5)
		response["retry_after"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	s.logger.Info("rate limit exceeded",
		zap.String("client", clientIP(r)),
		zap.String("path", r.URL.Path),
		zap.Int("limit", info.Limit))
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// statusRecorder captures the response status and keeps streaming working.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func asRecorder(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w}
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.code == 0 {
		r.code = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.code == 0 {
		r.code = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *statusRecorder) status() int {
	if r.code == 0 {
		return http.StatusOK
	}
	return r.code
}
