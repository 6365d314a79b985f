package intel

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/jonathan/pitch-agent/internal/schemas"
	"github.com/jonathan/pitch-agent/internal/search"
	"github.com/jonathan/pitch-agent/internal/types"
)

// Reasons attached to inferred facts.
const (
	ReasonUnverifiable = "source unverifiable"
	ReasonFromContext  = "inferred from context"
)

// Confidence applied when the model omits one, and the cap for facts whose
// evidence could not be verified.
const (
	defaultConfirmedConfidence = 0.7
	defaultInferredConfidence  = 0.4
	unverifiedConfidenceCap    = 0.5
)

type rawFact struct {
	Value       string   `json:"value"`
	EvidenceURL *string  `json:"evidence_url"`
	Status      string   `json:"status"`
	Confidence  *float64 `json:"confidence"`
	Reason      *string  `json:"reason"`
	Published   *string  `json:"published"`
}

type rawFacts struct {
	Facts []rawFact `json:"facts"`
}

// parseFacts validates raw model output and decodes it.
func parseFacts(raw string) ([]rawFact, error) {
	if err := schemas.Validate(schemas.CategoryFacts, raw); err != nil {
		return nil, fmt.Errorf("facts failed schema validation: %w", err)
	}
	var parsed rawFacts
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode facts: %w", err)
	}
	return parsed.Facts, nil
}

// normalizeFacts turns raw facts into typed facts. A confirmed fact must cite
// one of the evidence URLs; otherwise it is downgraded to inferred with capped
// confidence.
func normalizeFacts(raw []rawFact, evidence []types.SearchResult) []types.Fact {
	byURL := make(map[string]types.SearchResult, len(evidence))
	for _, r := range evidence {
		if key := search.NormalizeURL(r.URL); key != "" {
			byURL[key] = r
		}
	}

	out := make([]types.Fact, 0, len(raw))
	for _, rf := range raw {
		value := strings.TrimSpace(rf.Value)
		if value == "" {
			continue
		}
		fact := types.Fact{Value: value, Status: types.StatusInferred}
		if rf.Reason != nil {
			fact.Reason = strings.TrimSpace(*rf.Reason)
		}
		if rf.Published != nil {
			fact.PublishedAt = search.ParseDate(*rf.Published)
		}

		confirmed := strings.EqualFold(strings.TrimSpace(rf.Status), string(types.StatusConfirmed))
		switch {
		case rf.Confidence != nil:
			fact.Confidence = types.ClampConfidence(*rf.Confidence)
		case confirmed:
			fact.Confidence = defaultConfirmedConfidence
		default:
			fact.Confidence = defaultInferredConfidence
		}

		if confirmed {
			source, ok := resolveEvidence(rf.EvidenceURL, byURL)
			if ok {
				evidenceURL := source.URL
				fact.Status = types.StatusConfirmed
				fact.Evidence = &evidenceURL
				fact.Reason = ""
				if fact.PublishedAt == nil {
					fact.PublishedAt = source.PublishedAt
				}
			} else {
				fact.Reason = ReasonUnverifiable
				fact.Confidence = min(fact.Confidence, unverifiedConfidenceCap)
			}
		}
		if fact.Status == types.StatusInferred && fact.Reason == "" {
			fact.Reason = ReasonFromContext
		}
		out = append(out, fact)
	}
	return out
}

func resolveEvidence(raw *string, byURL map[string]types.SearchResult) (types.SearchResult, bool) {
	if raw == nil {
		return types.SearchResult{}, false
	}
	u, err := url.Parse(strings.TrimSpace(*raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return types.SearchResult{}, false
	}
	r, ok := byURL[search.NormalizeURL(u.String())]
	return r, ok
}

// maxLabelWords bounds what counts as a "Label: detail" prefix, so a colon
// deep inside a sentence or URL does not make one.
const maxLabelWords = 4

// FactKey returns the label of a "Label: detail" value, lower-cased, with
// labeled set. Unlabeled values key on their whole normalized text.
func FactKey(value string) (key string, labeled bool) {
	value = strings.TrimSpace(value)
	if label, rest, ok := strings.Cut(value, ":"); ok {
		words := strings.Fields(label)
		if len(words) > 0 && len(words) <= maxLabelWords && !strings.HasPrefix(rest, "//") {
			return strings.ToLower(strings.Join(words, " ")), true
		}
	}
	return strings.ToLower(strings.Join(strings.Fields(value), " ")), false
}

// ResolveConflicts keeps, per label, the newest fact, then the most confident
// one; facts that tie on both are all kept. Unlabeled facts are only
// deduplicated by their normalized text, keeping the best copy. Output follows
// the first-seen order of keys.
func ResolveConflicts(facts []types.Fact) []types.Fact {
	type group struct {
		labeled bool
		facts   []types.Fact
	}
	var order []string
	groups := make(map[string]*group)
	for _, f := range facts {
		k, labeled := FactKey(f.Value)
		id := "v:" + k
		if labeled {
			id = "l:" + k
		}
		g, ok := groups[id]
		if !ok {
			g = &group{labeled: labeled}
			groups[id] = g
			order = append(order, id)
		}
		g.facts = append(g.facts, f)
	}

	out := make([]types.Fact, 0, len(facts))
	for _, id := range order {
		g := groups[id]
		best := g.facts[0]
		for _, f := range g.facts[1:] {
			if compareFacts(f, best) > 0 {
				best = f
			}
		}
		if !g.labeled {
			out = append(out, best)
			continue
		}
		for _, f := range g.facts {
			if compareFacts(f, best) == 0 {
				out = append(out, f)
			}
		}
	}
	return out
}

// compareFacts orders by recency, then confidence. A dated fact is newer than
// an undated one.
func compareFacts(a, b types.Fact) int {
	switch {
	case a.PublishedAt != nil && b.PublishedAt == nil:
		return 1
	case a.PublishedAt == nil && b.PublishedAt != nil:
		return -1
	case a.PublishedAt != nil && b.PublishedAt != nil && !a.PublishedAt.Equal(*b.PublishedAt):
		return a.PublishedAt.Compare(*b.PublishedAt)
	}
	switch {
	case a.Confidence > b.Confidence:
		return 1
	case a.Confidence < b.Confidence:
		return -1
	}
	return 0
}

