// Package pipeline wires the classifier, extractor, matcher and composer into
// the request-scoped operations exposed over HTTP and the CLI.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/pitch-agent/internal/db"
	"github.com/jonathan/pitch-agent/internal/industry"
	"github.com/jonathan/pitch-agent/internal/intel"
	"github.com/jonathan/pitch-agent/internal/logging"
	"github.com/jonathan/pitch-agent/internal/matching"
	"github.com/jonathan/pitch-agent/internal/metrics"
	"github.com/jonathan/pitch-agent/internal/pitch"
	"github.com/jonathan/pitch-agent/internal/types"
)

// Operation names, used for metrics, run records and errors.
const (
	OpClassify = "classify"
	OpMatches  = "matches"
	OpPitch    = "pitch"
	OpRefine   = "refine"
	OpChat     = "chat"
)

// DefaultRequestTimeout bounds a whole operation.
const DefaultRequestTimeout = 60 * time.Second

// ProgressEvent represents a progress update during an operation
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// RunStore records operations. *db.DB implements it.
type RunStore interface {
	CreateRun(ctx context.Context, operation, customer string) (uuid.UUID, error)
	SaveArtifact(ctx context.Context, runID uuid.UUID, step string, content any) error
	CompleteRun(ctx context.Context, runID uuid.UUID, status string, degraded bool) error
}

// Components are the building blocks of the pipeline.
type Components struct {
	Classifier *industry.Classifier
	Extractor  *intel.Extractor
	Matcher    *matching.Matcher
	Composer   *pitch.Composer
	Assistant  *pitch.Assistant
}

// Config tunes the service.
type Config struct {
	RequestTimeout time.Duration
	DefaultLimit   int
}

// DefaultConfig returns the default service settings.
func DefaultConfig() Config {
	return Config{RequestTimeout: DefaultRequestTimeout, DefaultLimit: matching.DefaultLimit}
}

// MatchOutcome is the result of the fetch-matches operation.
type MatchOutcome struct {
	Rows               []types.MatchResult       `json:"rows"`
	Intelligence       *types.IntelligenceRecord `json:"intelligence_data"`
	DetectedIndustry   string                    `json:"detected_industry"`
	IndustryConfidence float64                   `json:"industry_confidence"`
	Degraded           bool                      `json:"degraded"`
	RunID              string                    `json:"run_id,omitempty"`
}

// Service runs pipeline operations. It holds no per-request state.
type Service struct {
	c      Components
	cfg    Config
	runs   RunStore
	logger *zap.Logger
}

// New creates a service. runs may be nil to disable run recording.
func New(c Components, cfg Config, runs RunStore, logger *zap.Logger) *Service {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = matching.DefaultLimit
	}
	return &Service{c: c, cfg: cfg, runs: runs, logger: logging.OrNop(logger).Named("pipeline")}
}

// Classify detects the industry of a customer.
func (s *Service) Classify(ctx context.Context, req types.ClassifyRequest) (cls types.IndustryClassification, err error) {
	if err := req.Validate(); err != nil {
		return cls, fromValidation(err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()
	defer s.observe(OpClassify, time.Now(), &err)

	run := s.startRun(ctx, OpClassify, req.Customer)
	cls = s.c.Classifier.Classify(ctx, req.Customer)
	run.save(db.StepClassification, cls)
	run.finish(nil, false)
	return cls, nil
}

// Matches classifies the customer, gathers intelligence and ranks the
// portfolio. The filter industry defaults to the detected one. When ranking
// fails the intelligence record is returned inside the *OperationError.
func (s *Service) Matches(ctx context.Context, req types.MatchRequest, onProgress ProgressCallback) (out *MatchOutcome, err error) {
	if err := req.Validate(); err != nil {
		return nil, fromValidation(err)
	}
	limit := s.cfg.DefaultLimit
	if req.Limit != nil {
		if *req.Limit <= 0 {
			return nil, &InvalidInputError{Field: "limit", Message: "must be positive"}
		}
		limit = *req.Limit
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()
	defer s.observe(OpMatches, time.Now(), &err)

	customer := strings.TrimSpace(req.Customer)
	run := s.startRun(ctx, OpMatches, customer)
	emit := func(step, message string, content any) {
		if onProgress != nil {
			onProgress(ProgressEvent{Step: step, Message: message, RunID: run.idString(), Content: content})
		}
	}

	ev := s.c.Classifier.ClassifyWithEvidence(ctx, customer)
	detected := ev.Classification
	run.save(db.StepClassification, detected)
	emit(db.StepClassification, "Detected industry: "+detected.Industry, detected)

	filters := req.Filters()
	if filters.Industry == "" && detected.Industry != types.UnknownIndustry {
		filters.Industry = detected.Industry
	}

	record := s.c.Extractor.Extract(ctx, intel.Subject{
		Customer: customer,
		Industry: filters.Industry,
		Focus:    filters.Focus,
		Website:  filters.Website,
	}, ev.Results)
	run.save(db.StepIntelligence, record)
	emit(db.StepIntelligence, "Gathered intelligence", record)

	if err := ctx.Err(); err != nil {
		run.finish(err, true)
		return nil, &OperationError{Operation: OpMatches, Partial: record, Cause: err}
	}

	profile := matching.BuildProfile(customer, record, filters)
	ranking, err := s.c.Matcher.Match(ctx, profile, filters, limit)
	if err != nil {
		run.finish(err, true)
		return nil, &OperationError{Operation: OpMatches, Partial: record, Cause: fromComponent(err)}
	}
	run.save(db.StepMatches, ranking.Results)
	emit(db.StepMatches, "Ranked portfolio", ranking.Results)

	out = &MatchOutcome{
		Rows:               ranking.Results,
		Intelligence:       record,
		DetectedIndustry:   detected.Industry,
		IndustryConfidence: detected.Confidence,
		Degraded:           ev.Degraded || record.Degraded || ranking.Degraded,
		RunID:              run.idString(),
	}
	run.finish(nil, out.Degraded)
	s.logger.Info("matches ready",
		zap.String("customer", customer),
		zap.String("industry", filters.Industry),
		zap.Int("rows", len(out.Rows)),
		zap.Bool("degraded", out.Degraded))
	return out, nil
}

// BuildPitch composes a pitch from the rows the caller selected.
func (s *Service) BuildPitch(ctx context.Context, req types.PitchRequest) (draft *types.PitchDraft, err error) {
	if err := req.Validate(); err != nil {
		return nil, fromValidation(err)
	}
	rows := selectedRows(req.SelectedRows)
	if len(rows) == 0 {
		return nil, &InvalidInputError{Field: "selected_rows", Message: "at least one row with an entry is required"}
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()
	defer s.observe(OpPitch, time.Now(), &err)

	run := s.startRun(ctx, OpPitch, req.Customer)
	draft, err = s.c.Composer.Compose(ctx, req.Customer, rows, req.IntelligenceData)
	if err != nil {
		run.finish(err, degradedInputs(req.IntelligenceData))
		return nil, s.operationError(OpPitch, req.IntelligenceData, err)
	}
	run.save(db.StepPitch, draft)
	run.finish(nil, degradedInputs(req.IntelligenceData))
	return draft, nil
}

// Refine regenerates the caller's pitch under new instructions.
func (s *Service) Refine(ctx context.Context, req types.RefineRequest) (draft *types.PitchDraft, err error) {
	if err := req.Validate(); err != nil {
		return nil, fromValidation(err)
	}
	current := req.Draft()
	if current.IsEmpty() {
		return nil, &InvalidInputError{Field: "long_pitch", Message: "a current pitch is required"}
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()
	defer s.observe(OpRefine, time.Now(), &err)

	run := s.startRun(ctx, OpRefine, req.Customer)
	draft, err = s.c.Composer.Refine(ctx, req.Customer, &current, req.Instructions, selectedRows(req.ContextRows), req.IntelligenceData)
	if err != nil {
		run.finish(err, degradedInputs(req.IntelligenceData))
		return nil, s.operationError(OpRefine, req.IntelligenceData, err)
	}
	run.save(db.StepPitch, draft)
	run.finish(nil, degradedInputs(req.IntelligenceData))
	return draft, nil
}

// Chat answers a conversational question about a customer.
func (s *Service) Chat(ctx context.Context, req types.ChatRequest) (reply *types.ChatReply, err error) {
	if err := req.Validate(); err != nil {
		return nil, fromValidation(err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()
	defer s.observe(OpChat, time.Now(), &err)

	run := s.startRun(ctx, OpChat, req.Customer)
	reply, err = s.c.Assistant.Chat(ctx, req)
	if err != nil {
		run.finish(err, false)
		return nil, s.operationError(OpChat, nil, err)
	}
	run.save(db.StepChat, reply)
	run.finish(nil, false)
	return reply, nil
}

func (s *Service) operationError(op string, partial *types.IntelligenceRecord, err error) error {
	mapped := fromComponent(err)
	if IsInvalidInput(mapped) {
		return mapped
	}
	return &OperationError{Operation: op, Partial: partial, Cause: err}
}

func (s *Service) observe(op string, start time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	metrics.OperationDuration.WithLabelValues(op, metrics.Outcome(err)).Observe(time.Since(start).Seconds())
}

func selectedRows(rows []types.MatchResult) []types.MatchResult {
	out := make([]types.MatchResult, 0, len(rows))
	for _, r := range rows {
		if r.Entry != nil {
			out = append(out, r)
		}
	}
	return out
}

func degradedInputs(record *types.IntelligenceRecord) bool {
	return record != nil && record.Degraded
}

// runRecorder writes one run. Recording failures are logged and never fail
// the operation; a zero recorder does nothing.
type runRecorder struct {
	store  RunStore
	id     uuid.UUID
	logger *zap.Logger
}

func (s *Service) startRun(ctx context.Context, operation, customer string) *runRecorder {
	if s.runs == nil {
		return &runRecorder{}
	}
	id, err := s.runs.CreateRun(context.WithoutCancel(ctx), operation, strings.TrimSpace(customer))
	if err != nil {
		s.logger.Warn("failed to record run", zap.String("operation", operation), zap.Error(err))
		return &runRecorder{}
	}
	return &runRecorder{store: s.runs, id: id, logger: s.logger}
}

func (r *runRecorder) idString() string {
	if r.store == nil {
		return ""
	}
	return r.id.String()
}

func (r *runRecorder) save(step string, content any) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveArtifact(context.Background(), r.id, step, content); err != nil {
		r.logger.Warn("failed to save artifact", zap.String("step", step), zap.Error(err))
	}
}

func (r *runRecorder) finish(opErr error, degraded bool) {
	if r.store == nil {
		return
	}
	status := db.RunStatusCompleted
	if opErr != nil {
		status = db.RunStatusFailed
	}
	if err := r.store.CompleteRun(context.Background(), r.id, status, degraded); err != nil {
		r.logger.Warn("failed to complete run", zap.String("run_id", r.id.String()), zap.Error(errors.Join(err, opErr)))
	}
}
