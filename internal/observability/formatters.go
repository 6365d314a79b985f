// Package observability provides formatted output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/pitch-agent/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer renders pipeline results as boxed text.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content. Long lines are
// truncated unless wrap is set.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title, content string, wrap bool) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		var rows []string
		if wrap {
			rows = wrapLine(line, inner)
		} else {
			rows = []string{truncate(line, inner)}
		}
		for _, row := range rows {
			fmt.Fprintf(p.out, "│ %s │\n", pad(row, inner))
		}
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintClassification outputs the detected industry.
func (p *Printer) PrintClassification(customer string, cls types.IndustryClassification) {
	content := fmt.Sprintf("Customer:   %s\nIndustry:   %s\nConfidence: %.0f%%", customer, cls.Industry, cls.Confidence*100)
	p.printBox("INDUSTRY", content, false)
}

// PrintIntelligence outputs the extracted facts per category.
func (p *Printer) PrintIntelligence(record *types.IntelligenceRecord) {
	if record == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Customer:   %s\n", record.Customer)
	if record.Industry != "" {
		fmt.Fprintf(&sb, "Industry:   %s\n", record.Industry)
	}
	fmt.Fprintf(&sb, "Confidence: %.0f%%\n", record.ConfidenceScore*100)
	if record.Degraded {
		sb.WriteString("Warning:    search was degraded, results may be incomplete\n")
	}

	categories := record.PopulatedCategories()
	if len(categories) == 0 {
		sb.WriteString("\nNo facts found.")
	}
	for _, c := range categories {
		facts := record.Categories[c]
		fmt.Fprintf(&sb, "\n%s:\n", c.Label())
		for _, f := range facts[:min(len(facts), maxItemsToShow)] {
			marker := "✓"
			if !f.IsConfirmed() {
				marker = "?"
			}
			fmt.Fprintf(&sb, "  %s %s\n", marker, f.Value)
		}
		if len(facts) > maxItemsToShow {
			fmt.Fprintf(&sb, "  ... and %d more\n", len(facts)-maxItemsToShow)
		}
	}

	p.printBox("CUSTOMER INTELLIGENCE", strings.TrimSuffix(sb.String(), "\n"), false)
}

// PrintMatches outputs ranked portfolio entries with their scores.
func (p *Printer) PrintMatches(rows []types.MatchResult) {
	if len(rows) == 0 {
		p.printBox("PORTFOLIO MATCHES", "No matching engagements.", false)
		return
	}

	var sb strings.Builder
	for i, r := range rows {
		if r.Entry == nil {
			continue
		}
		fmt.Fprintf(&sb, "%d. %s (%s)  score %.1f\n", i+1, r.Entry.ClientName, r.Entry.Industry, r.MatchScore)
		fmt.Fprintf(&sb, "   similarity %.2f", r.Similarity)
		if r.IndustryBoost > 0 {
			fmt.Fprintf(&sb, "  +%.0f industry", r.IndustryBoost)
		}
		if r.TechnologyBoost > 0 {
			fmt.Fprintf(&sb, "  +%.0f tech", r.TechnologyBoost)
		}
		sb.WriteString("\n")
		if len(r.MatchedTokens) > 0 {
			fmt.Fprintf(&sb, "   matched: %s\n", strings.Join(r.MatchedTokens, ", "))
		}
	}
	p.printBox("PORTFOLIO MATCHES", strings.TrimSuffix(sb.String(), "\n"), false)
}

// PrintPitch outputs the short summary and every section.
func (p *Printer) PrintPitch(draft *types.PitchDraft) {
	if draft == nil {
		return
	}
	p.printBox(fmt.Sprintf("SHORT PITCH (%d words)", draft.WordCount()), draft.ShortSummary, true)

	body := strings.TrimSuffix(draft.Render(), "\n")
	if body == "" {
		body = draft.LongSummary
	}
	p.printBox("LONG PITCH", body, true)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

func pad(s string, n int) string {
	s = truncate(s, n)
	return s + strings.Repeat(" ", n-utf8.RuneCountInString(s))
}

// wrapLine breaks s at spaces into rows of at most n runes, keeping the
// line's indentation on continuation rows. Words longer than n are truncated.
func wrapLine(s string, n int) []string {
	trimmed := strings.TrimLeft(s, " ")
	indent := s[:len(s)-len(trimmed)]
	words := strings.Fields(trimmed)
	if len(words) == 0 {
		return []string{""}
	}

	var rows []string
	cur := indent + words[0]
	for _, w := range words[1:] {
		if utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(w) > n {
			rows = append(rows, cur)
			cur = indent + w
			continue
		}
		cur += " " + w
	}
	return append(rows, cur)
}
