// Package matching ranks portfolio engagements against a customer profile.
package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/pitch-agent/internal/embedding"
	"github.com/jonathan/pitch-agent/internal/logging"
	"github.com/jonathan/pitch-agent/internal/metrics"
	"github.com/jonathan/pitch-agent/internal/portfolio"
	"github.com/jonathan/pitch-agent/internal/types"
)

// Scoring constants. The similarity term is weighted so that the best
// possible similarity plus every boost is exactly MaxScore.
const (
	MaxScore           = 100.0
	SimilarityWeight   = 0.75
	IndustryBoost      = 10.0
	TechnologyBoost    = 5.0
	MaxTechnologyBoost = 15.0

	DefaultLimit = 6
	MaxLimit     = 20
)

// ErrInvalidLimit is returned for a non-positive limit.
var ErrInvalidLimit = errors.New("limit must be positive")

// Ranking is the outcome of one match request.
type Ranking struct {
	Results []types.MatchResult
	// Degraded is set when the profile could not be embedded and ranking
	// fell back to filters only.
	Degraded bool
}

// Matcher scores a shared, read-only corpus.
type Matcher struct {
	corpus *portfolio.Corpus
	engine embedding.Engine
	logger *zap.Logger
}

// NewMatcher creates a matcher. engine may be nil for filter-only ranking.
func NewMatcher(corpus *portfolio.Corpus, engine embedding.Engine, logger *zap.Logger) *Matcher {
	return &Matcher{corpus: corpus, engine: engine, logger: logging.OrNop(logger).Named("matching")}
}

// Match ranks the corpus against profile and returns the top limit entries,
// best first, ties broken by client name. limit above MaxLimit is clamped.
func (m *Matcher) Match(ctx context.Context, profile string, filters types.Filters, limit int) (*Ranking, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}
	limit = min(limit, MaxLimit)

	ranking := &Ranking{Results: []types.MatchResult{}}
	if m.corpus == nil || m.corpus.Len() == 0 {
		return ranking, nil
	}

	query := m.embedProfile(ctx, profile)
	if query == nil {
		ranking.Degraded = true
	}

	filterTokens := types.Tokenize(filters.Technology)
	results := make([]types.MatchResult, 0, m.corpus.Len())
	for i := range m.corpus.Len() {
		entry := m.corpus.Entry(i)
		sim := 0.0
		if query != nil {
			s, err := embedding.CosineSimilarity(query, m.corpus.Vector(i))
			if err != nil {
				m.logger.Debug("skipping similarity", zap.String("client", entry.ClientName), zap.Error(err))
			} else {
				sim = s
			}
		}
		results = append(results, Score(entry, sim, filters.Industry, filterTokens))
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].MatchScore != results[j].MatchScore {
			return results[i].MatchScore > results[j].MatchScore
		}
		return results[i].Entry.ClientName < results[j].Entry.ClientName
	})
	if len(results) > limit {
		results = results[:limit]
	}
	ranking.Results = results
	return ranking, nil
}

// embedProfile returns nil when embedding is unavailable or fails.
func (m *Matcher) embedProfile(ctx context.Context, profile string) []float32 {
	if m.engine == nil || m.corpus.Embedded() == 0 {
		return nil
	}
	vec, err := m.engine.Embed(ctx, profile)
	if err != nil || len(vec) == 0 {
		metrics.EmbeddingFailures.Inc()
		m.logger.Warn("profile embedding failed, ranking by filters only", zap.Error(err))
		return nil
	}
	return vec
}

// Score computes one entry's match. similarity is a cosine value; negative
// values count as 0.
func Score(entry *types.PortfolioEntry, similarity float64, industry string, techTokens []string) types.MatchResult {
	similarity = types.ClampConfidence(similarity)
	r := types.MatchResult{
		Entry:      entry,
		Similarity: similarity,
	}

	industry = strings.TrimSpace(industry)
	if industry != "" && !strings.EqualFold(industry, types.UnknownIndustry) &&
		strings.EqualFold(strings.TrimSpace(entry.Industry), industry) {
		r.IndustryBoost = IndustryBoost
	}

	if len(techTokens) > 0 {
		have := make(map[string]bool)
		for _, t := range entry.TechnologyTokens() {
			have[t] = true
		}
		for _, t := range techTokens {
			if have[t] {
				r.MatchedTokens = append(r.MatchedTokens, t)
			}
		}
		r.TechnologyBoost = min(float64(len(r.MatchedTokens))*TechnologyBoost, MaxTechnologyBoost)
	}

	r.MatchScore = similarity*MaxScore*SimilarityWeight + r.IndustryBoost + r.TechnologyBoost
	r.DetailedReasoning = Reasoning(r)
	return r
}

// Reasoning explains a score, one bullet per contributing factor.
func Reasoning(r types.MatchResult) string {
	lines := []string{fmt.Sprintf("- Semantic match: %.1f%% similarity to the customer profile", r.Similarity*100)}
	if r.IndustryBoost > 0 {
		lines = append(lines, fmt.Sprintf("- Industry match: %s (+%.0f)", r.Entry.Industry, r.IndustryBoost))
	}
	if r.TechnologyBoost > 0 {
		lines = append(lines, fmt.Sprintf("- Technology overlap: %s (+%.0f)", strings.Join(r.MatchedTokens, ", "), r.TechnologyBoost))
	}
	if r.Entry.Status == types.EngagementActive {
		lines = append(lines, "- Active engagement demonstrating current capability")
	}
	return strings.Join(lines, "\n")
}

// BuildProfile describes the customer for embedding: filters first, then
// the strongest intelligence highlights.
func BuildProfile(customer string, record *types.IntelligenceRecord, filters types.Filters) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Client: %s\n", strings.TrimSpace(customer))
	if filters.Industry != "" {
		fmt.Fprintf(&sb, "Industry: %s\n", filters.Industry)
	} else if record != nil && record.Industry != "" && record.Industry != types.UnknownIndustry {
		fmt.Fprintf(&sb, "Industry: %s\n", record.Industry)
	}
	if filters.Technology != "" {
		fmt.Fprintf(&sb, "Technology: %s\n", filters.Technology)
	}
	if filters.Focus != "" {
		fmt.Fprintf(&sb, "Focus: %s\n", filters.Focus)
	}
	for _, h := range record.Highlights(2) {
		sb.WriteString(h)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
