package types

import "strings"

// BulletPoint is a one-line summary with expandable detail sentences.
type BulletPoint struct {
	Summary string   `json:"summary"`
	Details []string `json:"details"`
}

// Section is an ordered, titled block of a pitch.
type Section struct {
	Title        string        `json:"title"`
	BulletPoints []BulletPoint `json:"bullet_points"`
}

// PitchDraft is the editable pitch artifact. The caller owns it and passes it
// back in for refinement; refinement always returns a new draft.
type PitchDraft struct {
	ShortSummary string    `json:"short_summary"`
	LongSummary  string    `json:"long_summary"`
	Sections     []Section `json:"sections"`
}

// IsEmpty reports whether the draft carries no text at all.
func (d *PitchDraft) IsEmpty() bool {
	if d == nil {
		return true
	}
	return strings.TrimSpace(d.ShortSummary) == "" &&
		strings.TrimSpace(d.LongSummary) == "" &&
		len(d.Sections) == 0
}

// WordCount counts whitespace separated words in the short summary.
func (d *PitchDraft) WordCount() int {
	if d == nil {
		return 0
	}
	return len(strings.Fields(d.ShortSummary))
}

// Render flattens the sections into plain text, one header per section.
func (d *PitchDraft) Render() string {
	if d == nil {
		return ""
	}
	var sb strings.Builder
	for i, s := range d.Sections {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(s.Title)
		sb.WriteString("\n")
		for _, b := range s.BulletPoints {
			sb.WriteString("- ")
			sb.WriteString(b.Summary)
			sb.WriteString("\n")
			for _, line := range b.Details {
				sb.WriteString("    ")
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}
