// Package pitch composes, refines and discusses presales pitches.
package pitch

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/pitch-agent/internal/llm"
	"github.com/jonathan/pitch-agent/internal/logging"
	"github.com/jonathan/pitch-agent/internal/metrics"
	"github.com/jonathan/pitch-agent/internal/prompts"
	"github.com/jonathan/pitch-agent/internal/types"
	"github.com/jonathan/pitch-agent/internal/validation"
)

// DefaultInstructions are applied when a refinement carries no instructions.
const DefaultInstructions = "Keep the content and structure. Improve clarity and flow only."

// DefaultFirm names the presenting firm when none is configured.
const DefaultFirm = "our firm"

const (
	highlightsPerCategory = 3
	evidenceFieldChars    = 600
)

// Composer writes and refines pitches.
type Composer struct {
	llm    llm.Client
	firm   string
	logger *zap.Logger
}

// NewComposer creates a composer presenting on behalf of firm.
func NewComposer(client llm.Client, firm string, logger *zap.Logger) *Composer {
	if strings.TrimSpace(firm) == "" {
		firm = DefaultFirm
	}
	return &Composer{llm: client, firm: firm, logger: logging.OrNop(logger).Named("pitch")}
}

// Compose writes the first draft of a pitch for customer from the selected
// matches and the customer's intelligence record.
func (c *Composer) Compose(ctx context.Context, customer string, matches []types.MatchResult, record *types.IntelligenceRecord) (*types.PitchDraft, error) {
	customer = strings.TrimSpace(customer)
	if customer == "" {
		return nil, ErrEmptyCustomer
	}
	if len(matches) == 0 {
		return nil, ErrNoMatches
	}

	prompt, err := prompts.Render("pitch.json", "compose", map[string]string{
		"Firm":         c.firm,
		"Customer":     customer,
		"Evidence":     EvidenceBlock(matches),
		"Intelligence": IntelligenceBlock(record),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build compose prompt: %w", err)
	}

	raw, err := c.llm.GenerateJSON(ctx, prompt, llm.TierAdvanced)
	return c.finish(OpCompose, customer, raw, err, record)
}

// Refine regenerates the whole draft under instructions. The prior draft is
// not modified; the returned draft replaces it. Match context stays fixed.
func (c *Composer) Refine(ctx context.Context, customer string, draft *types.PitchDraft, instructions string, matches []types.MatchResult, record *types.IntelligenceRecord) (*types.PitchDraft, error) {
	customer = strings.TrimSpace(customer)
	if customer == "" {
		return nil, ErrEmptyCustomer
	}
	if draft.IsEmpty() {
		return nil, ErrEmptyDraft
	}
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		instructions = DefaultInstructions
	}

	long := draft.LongSummary
	if strings.TrimSpace(long) == "" {
		long = draft.Render()
	}
	prompt, err := prompts.Render("pitch.json", "refine", map[string]string{
		"Firm":         c.firm,
		"Customer":     customer,
		"Short":        draft.ShortSummary,
		"Long":         long,
		"Evidence":     EvidenceBlock(matches),
		"Intelligence": IntelligenceBlock(record),
		"Instructions": validation.StripInjectionAttempts(instructions),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build refine prompt: %w", err)
	}

	raw, err := c.llm.GenerateContent(ctx, prompt, llm.TierAdvanced)
	refined, err := c.finish(OpRefine, customer, raw, err, record)
	if err != nil {
		return nil, err
	}
	stabilizeSections(refined)
	return refined, nil
}

func (c *Composer) finish(op, customer, raw string, genErr error, record *types.IntelligenceRecord) (*types.PitchDraft, error) {
	degraded := record == nil || record.Degraded
	if genErr != nil {
		return nil, c.fail(op, customer, degraded, genErr)
	}

	resp := DecodeResponse(raw)
	draft := resp.Draft()
	if draft.IsEmpty() {
		return nil, c.fail(op, customer, degraded, errEmptyOutput)
	}
	c.logger.Info("pitch generated",
		zap.String("operation", op),
		zap.String("customer", customer),
		zap.Stringer("response", resp.Kind),
		zap.Int("sections", len(draft.Sections)),
		zap.Int("short_words", draft.WordCount()))
	return draft, nil
}

func (c *Composer) fail(op, customer string, degraded bool, cause error) error {
	metrics.GenerationFailures.WithLabelValues(op).Inc()
	c.logger.Error("pitch generation failed",
		zap.String("operation", op),
		zap.String("customer", customer),
		zap.Bool("degraded", degraded),
		zap.Error(cause))
	return &GenerationError{Operation: op, Degraded: degraded, Cause: cause}
}

// stabilizeSections keeps a refined draft from losing structure: it never has
// fewer sections than segmenting its own long summary yields.
func stabilizeSections(d *types.PitchDraft) {
	segmented := SegmentText(d.LongSummary)
	if len(d.Sections) < len(segmented) {
		d.Sections = segmented
	}
}

// EvidenceBlock renders the selected portfolio rows for a prompt.
func EvidenceBlock(matches []types.MatchResult) string {
	var sb strings.Builder
	for i, m := range matches {
		if m.Entry == nil {
			continue
		}
		e := m.Entry
		fmt.Fprintf(&sb, "[%d] %s (%s)\n", i+1, e.ClientName, orNA(e.Industry))
		fmt.Fprintf(&sb, "Technologies: %s\n", orNA(e.Technologies))
		if e.ProblemStatement != "" {
			fmt.Fprintf(&sb, "Problem: %s\n", logging.Truncate(e.ProblemStatement, evidenceFieldChars))
		}
		fmt.Fprintf(&sb, "Business case: %s\n", logging.Truncate(orNA(e.BusinessCase), evidenceFieldChars))
		fmt.Fprintf(&sb, "Solution: %s\n", logging.Truncate(orNA(e.SolutionDescription), evidenceFieldChars))
		fmt.Fprintf(&sb, "Deliverables: %s\n", logging.Truncate(orNA(e.Deliverables), evidenceFieldChars))
		if m.DetailedReasoning != "" {
			fmt.Fprintf(&sb, "Why it matches:\n%s\n", m.DetailedReasoning)
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

// IntelligenceBlock renders intelligence highlights for a prompt.
func IntelligenceBlock(record *types.IntelligenceRecord) string {
	highlights := record.Highlights(highlightsPerCategory)
	if len(highlights) == 0 {
		return "(no verified intelligence available; keep claims about the prospect general)"
	}
	var sb strings.Builder
	if record.Industry != "" {
		fmt.Fprintf(&sb, "Industry: %s\n", record.Industry)
	}
	for _, h := range highlights {
		sb.WriteString("- ")
		sb.WriteString(h)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "n/a"
	}
	return s
}
