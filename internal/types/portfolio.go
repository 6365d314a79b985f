package types

import (
	"fmt"
	"strings"
)

// EngagementStatus marks whether a past engagement is still running.
type EngagementStatus string

const (
	EngagementActive EngagementStatus = "active"
	EngagementClosed EngagementStatus = "closed"
)

// PortfolioEntry is one past engagement from the portfolio corpus. Entries are
// immutable once the corpus has been loaded.
type PortfolioEntry struct {
	ClientName          string           `json:"client_name"`
	Industry            string           `json:"industry"`
	Technologies        string           `json:"technologies"`
	Practice            string           `json:"practice"`
	ProblemStatement    string           `json:"problem_or_opportunity_statement"`
	BusinessCase        string           `json:"business_case"`
	SolutionDescription string           `json:"solution_description"`
	Role                string           `json:"role"`
	Deliverables        string           `json:"key_deliverables"`
	Status              EngagementStatus `json:"status,omitempty"`
}

// EmbeddingText is the descriptive text embedded for semantic matching.
func (e *PortfolioEntry) EmbeddingText() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Client: %s\n", e.ClientName)
	fmt.Fprintf(&sb, "Industry: %s\n", e.Industry)
	fmt.Fprintf(&sb, "Technology: %s\n", e.Technologies)
	if e.ProblemStatement != "" {
		fmt.Fprintf(&sb, "Problem: %s\n", e.ProblemStatement)
	}
	fmt.Fprintf(&sb, "Business Case: %s\n", e.BusinessCase)
	fmt.Fprintf(&sb, "Solution: %s\n", e.SolutionDescription)
	fmt.Fprintf(&sb, "Deliverables: %s", e.Deliverables)
	return sb.String()
}

// TechnologyTokens splits the technologies column into normalized tokens.
func (e *PortfolioEntry) TechnologyTokens() []string {
	return Tokenize(e.Technologies)
}

// Tokenize splits a comma/semicolon/slash separated list into lower-cased,
// trimmed, de-duplicated tokens, preserving first-seen order.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '/' || r == '|' || r == '\n'
	})
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		t := strings.ToLower(strings.TrimSpace(f))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// MatchResult ranks one portfolio entry against a customer profile.
// Results are recomputed per request and never cached.
type MatchResult struct {
	Entry             *PortfolioEntry `json:"entry"`
	MatchScore        float64         `json:"match_score"`
	Similarity        float64         `json:"similarity"`
	IndustryBoost     float64         `json:"industry_boost"`
	TechnologyBoost   float64         `json:"technology_boost"`
	MatchedTokens     []string        `json:"matched_technologies,omitempty"`
	DetailedReasoning string          `json:"detailed_reasoning"`
}
