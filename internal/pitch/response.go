package pitch

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/jonathan/pitch-agent/internal/llm"
	"github.com/jonathan/pitch-agent/internal/schemas"
	"github.com/jonathan/pitch-agent/internal/types"
)

// ResponseKind tags what the model sent back.
type ResponseKind int

const (
	// Structured responses passed the pitch schema.
	Structured ResponseKind = iota
	// Unstructured responses are free text.
	Unstructured
)

func (k ResponseKind) String() string {
	if k == Structured {
		return "structured"
	}
	return "unstructured"
}

// Response is a decoded model answer: either a structured draft or raw text.
type Response struct {
	Kind       ResponseKind
	Structured *types.PitchDraft
	Text       string
}

// ShortSummaryWords bounds a short summary derived from free text.
const ShortSummaryWords = 300

type wireBullet struct {
	Summary string          `json:"summary"`
	Details json.RawMessage `json:"details"`
}

type wireSection struct {
	Title        string       `json:"title"`
	BulletPoints []wireBullet `json:"bullet_points"`
}

type wireDraft struct {
	Short    string        `json:"short"`
	Long     string        `json:"long"`
	Sections []wireSection `json:"sections"`
}

// DecodeResponse classifies raw model output. Output that is JSON and passes
// the pitch schema is Structured; everything else is Unstructured text.
func DecodeResponse(raw string) Response {
	cleaned := llm.CleanJSONBlock(raw)
	if llm.LooksLikeJSON(cleaned) && schemas.Validate(schemas.PitchDraft, cleaned) == nil {
		var w wireDraft
		if err := json.Unmarshal([]byte(cleaned), &w); err == nil {
			return Response{Kind: Structured, Structured: w.toDraft()}
		}
	}
	return Response{Kind: Unstructured, Text: strings.TrimSpace(raw)}
}

func (w wireDraft) toDraft() *types.PitchDraft {
	d := &types.PitchDraft{
		ShortSummary: strings.TrimSpace(w.Short),
		LongSummary:  strings.TrimSpace(w.Long),
		Sections:     []types.Section{},
	}
	for _, ws := range w.Sections {
		s := types.Section{Title: strings.TrimSpace(ws.Title)}
		for _, wb := range ws.BulletPoints {
			s.BulletPoints = append(s.BulletPoints, types.BulletPoint{
				Summary: strings.TrimSpace(wb.Summary),
				Details: decodeDetails(wb.Details),
			})
		}
		if s.Title != "" || len(s.BulletPoints) > 0 {
			d.Sections = append(d.Sections, s)
		}
	}
	return d
}

// decodeDetails accepts a list of strings or a single string, which is split
// into sentences.
func decodeDetails(raw json.RawMessage) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, s := range list {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return append(out, SplitSentences(single)...)
	}
	return out
}

// Draft maps the response to a draft. Structured drafts without sections get
// them from segmenting the long summary; free text is split into short and
// long pitches by markers when present, then segmented.
func (r Response) Draft() *types.PitchDraft {
	var d *types.PitchDraft
	switch r.Kind {
	case Structured:
		cp := *r.Structured
		d = &cp
	default:
		short, long, ok := ParseMarkers(r.Text)
		if !ok {
			long = r.Text
			short = LeadingSummary(r.Text, ShortSummaryWords)
		}
		d = &types.PitchDraft{ShortSummary: short, LongSummary: long}
	}

	if d.LongSummary == "" && len(d.Sections) > 0 {
		d.LongSummary = strings.TrimSpace(d.Render())
	}
	if len(d.Sections) == 0 {
		d.Sections = SegmentText(d.LongSummary)
	}
	if d.ShortSummary == "" {
		d.ShortSummary = LeadingSummary(d.LongSummary, ShortSummaryWords)
	}
	return d
}

var (
	shortMarker = regexp.MustCompile(`(?i)\**\s*short\s+pitch\s*\**\s*:?\**`)
	longMarker  = regexp.MustCompile(`(?i)\**\s*long\s+pitch\s*\**\s*:?\**`)
)

// ParseMarkers splits text written as "SHORT PITCH: ... LONG PITCH: ...".
// ok is false unless both markers are present in that order.
func ParseMarkers(text string) (short, long string, ok bool) {
	s := shortMarker.FindStringIndex(text)
	l := longMarker.FindStringIndex(text)
	if s == nil || l == nil || l[0] < s[1] {
		return "", "", false
	}
	short = strings.TrimSpace(text[s[1]:l[0]])
	long = strings.TrimSpace(text[l[1]:])
	if short == "" && long == "" {
		return "", "", false
	}
	return short, long, true
}

// LeadingSummary returns the opening sentences of text, stopping before the
// word budget is exceeded. Section headers are skipped.
func LeadingSummary(text string, maxWords int) string {
	var kept []string
	words := 0
	for _, line := range strings.Split(text, "\n") {
		if _, rest, ok := matchHeader(line); ok {
			if rest == "" {
				continue
			}
			line = rest
		}
		for _, s := range SplitSentences(line) {
			n := len(strings.Fields(s))
			if words+n > maxWords && len(kept) > 0 {
				return strings.Join(kept, " ")
			}
			kept = append(kept, s)
			words += n
		}
	}
	return strings.Join(kept, " ")
}
