package pitch

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/jonathan/pitch-agent/internal/types"
)

// SectionHeaders is the fixed vocabulary recognised when segmenting free text.
var SectionHeaders = []string{
	"Business Context",
	"Relevant Experience",
	"Strategic Fit & Value Proposition",
	"Next Steps & Engagement Model",
	"Executive Summary",
	"Challenges",
	"Solution Approach",
	"Outcomes",
}

// PreambleTitle names text that precedes the first recognised header.
const PreambleTitle = "Executive Summary"

const (
	maxSentencesPerBullet = 3
	summaryKeywords       = 4
	maxHeaderLength       = 80
	maxHeaderWords        = 8
)

var (
	headerDecoration = regexp.MustCompile(`^[#*_\s\d.)]+|[*_\s]+$`)
	listMarker       = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)
	wordPattern      = regexp.MustCompile(`[A-Za-z][A-Za-z0-9'&-]*`)
)

var abbreviations = map[string]bool{
	"e.g.": true, "i.e.": true, "inc.": true, "ltd.": true, "co.": true, "corp.": true,
	"vs.": true, "etc.": true, "mr.": true, "ms.": true, "dr.": true, "u.s.": true, "no.": true,
}

var stopWords = map[string]bool{
	"a": true, "about": true, "across": true, "after": true, "all": true, "also": true, "an": true,
	"and": true, "are": true, "as": true, "at": true, "be": true, "been": true, "by": true,
	"can": true, "could": true, "for": true, "from": true, "has": true, "have": true, "help": true,
	"how": true, "in": true, "into": true, "is": true, "it": true, "its": true, "more": true,
	"most": true, "new": true, "not": true, "of": true, "on": true, "or": true, "our": true,
	"over": true, "such": true, "that": true, "the": true, "their": true, "them": true,
	"these": true, "they": true, "this": true, "those": true, "through": true, "to": true,
	"was": true, "we": true, "were": true, "which": true, "while": true, "who": true, "will": true,
	"with": true, "within": true, "would": true, "you": true, "your": true,
}

// matchHeader reports whether line is a section header. It returns the
// canonical title and any content that followed a "Header:" prefix. A line
// that merely ends with a header name only counts when it is decorated
// (markdown, trailing colon) and short, as in "**Our Relevant Experience**".
func matchHeader(line string) (title, rest string, ok bool) {
	trimmed := strings.TrimSpace(line)
	cleaned := strings.TrimSpace(headerDecoration.ReplaceAllString(trimmed, ""))
	if cleaned == "" || len(cleaned) > maxHeaderLength && !strings.Contains(cleaned, ":") {
		return "", "", false
	}
	lower := strings.ToLower(cleaned)
	bare := strings.TrimSpace(strings.TrimSuffix(lower, ":"))
	decorated := cleaned != trimmed || strings.HasSuffix(lower, ":")

	for _, h := range SectionHeaders {
		hl := strings.ToLower(h)
		if bare == hl {
			return h, "", true
		}
		if decorated && len(strings.Fields(bare)) <= maxHeaderWords && strings.HasSuffix(bare, " "+hl) {
			return h, "", true
		}
		if strings.HasPrefix(lower, hl+":") {
			return h, strings.TrimSpace(cleaned[len(hl)+1:]), true
		}
	}
	return "", "", false
}

// SegmentText splits free text into sections using SectionHeaders. Sentences
// are grouped two or three per bullet and each bullet is summarised by its
// most frequent keywords. Output is deterministic for a given input.
func SegmentText(text string) []types.Section {
	type block struct {
		title string
		body  []string
	}
	var blocks []*block
	current := &block{title: PreambleTitle}
	blocks = append(blocks, current)

	for _, line := range strings.Split(text, "\n") {
		if title, rest, ok := matchHeader(line); ok {
			current = &block{title: title}
			blocks = append(blocks, current)
			if rest != "" {
				current.body = append(current.body, rest)
			}
			continue
		}
		if strings.TrimSpace(line) != "" {
			current.body = append(current.body, line)
		}
	}

	sections := []types.Section{}
	for _, b := range blocks {
		sentences := SplitSentences(strings.Join(b.body, "\n"))
		if len(sentences) == 0 {
			continue
		}
		var bullets []types.BulletPoint
		for _, group := range groupSentences(sentences) {
			bullets = append(bullets, types.BulletPoint{
				Summary: Summarize(group),
				Details: group,
			})
		}
		sections = append(sections, types.Section{Title: b.title, BulletPoints: bullets})
	}
	return sections
}

// SplitSentences breaks text into trimmed sentences. Line breaks and list
// markers also end a sentence.
func SplitSentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		out = append(out, splitLine(line)...)
	}
	return out
}

func splitLine(line string) []string {
	var out []string
	runes := []rune(line)
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Sentence ends at terminal punctuation followed by space and a capital,
		// digit or quote.
		j := i + 1
		for j < len(runes) && (runes[j] == '"' || runes[j] == '\'' || runes[j] == ')') {
			j++
		}
		if j >= len(runes) || !unicode.IsSpace(runes[j]) {
			continue
		}
		k := j
		for k < len(runes) && unicode.IsSpace(runes[k]) {
			k++
		}
		if k < len(runes) && !(unicode.IsUpper(runes[k]) || unicode.IsDigit(runes[k]) || runes[k] == '"') {
			continue
		}
		if r == '.' && isAbbreviation(runes[start : i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start:j])); s != "" {
			out = append(out, s)
		}
		start = k
		i = k - 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func isAbbreviation(sentence []rune) bool {
	fields := strings.Fields(string(sentence))
	if len(fields) == 0 {
		return false
	}
	return abbreviations[strings.ToLower(fields[len(fields)-1])]
}

// groupSentences packs sentences three to a group, rebalancing the tail so no
// group is left with a single sentence when two groups can share it.
func groupSentences(sentences []string) [][]string {
	n := len(sentences)
	if n <= maxSentencesPerBullet {
		return [][]string{sentences}
	}
	var sizes []int
	remaining := n
	for remaining > 0 {
		switch {
		case remaining == 4:
			sizes = append(sizes, 2, 2)
			remaining = 0
		case remaining <= maxSentencesPerBullet:
			sizes = append(sizes, remaining)
			remaining = 0
		default:
			sizes = append(sizes, maxSentencesPerBullet)
			remaining -= maxSentencesPerBullet
		}
	}
	groups := make([][]string, 0, len(sizes))
	start := 0
	for _, size := range sizes {
		groups = append(groups, sentences[start:start+size])
		start += size
	}
	return groups
}

// Summarize returns a one-line summary built from the most frequent
// non-stop-word keywords, ties broken by first occurrence.
func Summarize(sentences []string) string {
	type keyword struct {
		display string
		count   int
		first   int
	}
	seen := make(map[string]*keyword)
	var order []*keyword
	pos := 0
	for _, s := range sentences {
		for _, w := range wordPattern.FindAllString(s, -1) {
			lw := strings.ToLower(strings.Trim(w, "'-&"))
			if len(lw) < 3 || stopWords[lw] {
				continue
			}
			if k, ok := seen[lw]; ok {
				k.count++
				continue
			}
			k := &keyword{display: w, count: 1, first: pos}
			seen[lw] = k
			order = append(order, k)
			pos++
		}
	}
	if len(order) == 0 {
		return ""
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].first < order[j].first
	})
	if len(order) > summaryKeywords {
		order = order[:summaryKeywords]
	}
	parts := make([]string, len(order))
	for i, k := range order {
		parts[i] = capitalize(k.display)
	}
	return strings.Join(parts, ", ")
}

func capitalize(s string) string {
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
