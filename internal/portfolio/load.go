// Package portfolio loads the firm's past engagements and their embeddings.
package portfolio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jonathan/pitch-agent/internal/types"
)

// Load reads entries from a workbook (.xlsx) or a JSON array (.json).
func Load(path string) ([]types.PortfolioEntry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadWorkbook(path)
	case ".json":
		return LoadJSON(path)
	default:
		return nil, fmt.Errorf("unsupported portfolio format %q (use .xlsx or .json)", filepath.Ext(path))
	}
}

// LoadJSON reads entries from a JSON array.
func LoadJSON(path string) ([]types.PortfolioEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio: %w", err)
	}
	var entries []types.PortfolioEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse portfolio %s: %w", path, err)
	}
	return clean(entries), nil
}

// LoadWorkbook reads entries from a workbook. The first sheet holds active
// engagements and the second, when present, closed ones.
func LoadWorkbook(path string) ([]types.PortfolioEntry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open portfolio workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("portfolio workbook %s has no sheets", path)
	}

	var entries []types.PortfolioEntry
	for i, sheet := range sheets {
		if i > 1 {
			break
		}
		status := types.EngagementActive
		if i == 1 {
			status = types.EngagementClosed
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		entries = append(entries, rowsToEntries(rows, status)...)
	}
	return clean(entries), nil
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeHeader lower-cases a column header and joins its words with '_'.
func NormalizeHeader(h string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(h), "_"), "_")
}

type column int

const (
	colClient column = iota
	colIndustry
	colTechnologies
	colPractice
	colProblem
	colBusinessCase
	colSolution
	colRole
	colDeliverables
	numColumns
)

var columnAliases = [numColumns][]string{
	colClient:       {"client_name", "client", "customer", "customer_name"},
	colIndustry:     {"industry", "sector"},
	colTechnologies: {"technologies", "technology", "tech_stack"},
	colPractice:     {"practice", "service_line"},
	colProblem:      {"problem_opportunity_statement", "problem_statement", "opportunity_statement", "problem"},
	colBusinessCase: {"business_case"},
	colSolution:     {"solution_description", "solution"},
	colRole:         {"role", "our_role"},
	colDeliverables: {"key_deliverables", "deliverables"},
}

// resolveColumns maps each known column to its index in header, -1 when absent.
// Exact alias matches win; the solution column also matches any header
// containing "solution".
func resolveColumns(header []string) [numColumns]int {
	var idx [numColumns]int
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = NormalizeHeader(h)
	}
	for c := range numColumns {
		idx[c] = -1
		for _, alias := range columnAliases[c] {
			for i, h := range normalized {
				if h == alias {
					idx[c] = i
					break
				}
			}
			if idx[c] >= 0 {
				break
			}
		}
	}
	if idx[colSolution] < 0 {
		for i, h := range normalized {
			if strings.Contains(h, "solution") {
				idx[colSolution] = i
				break
			}
		}
	}
	return idx
}

func rowsToEntries(rows [][]string, status types.EngagementStatus) []types.PortfolioEntry {
	if len(rows) < 2 {
		return nil
	}
	idx := resolveColumns(rows[0])
	cell := func(row []string, c column) string {
		i := idx[c]
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []types.PortfolioEntry
	for _, row := range rows[1:] {
		out = append(out, types.PortfolioEntry{
			ClientName:          cell(row, colClient),
			Industry:            cell(row, colIndustry),
			Technologies:        cell(row, colTechnologies),
			Practice:            cell(row, colPractice),
			ProblemStatement:    cell(row, colProblem),
			BusinessCase:        cell(row, colBusinessCase),
			SolutionDescription: cell(row, colSolution),
			Role:                cell(row, colRole),
			Deliverables:        cell(row, colDeliverables),
			Status:              status,
		})
	}
	return out
}

// clean trims fields and drops entries without a client name.
func clean(entries []types.PortfolioEntry) []types.PortfolioEntry {
	out := make([]types.PortfolioEntry, 0, len(entries))
	for _, e := range entries {
		e.ClientName = strings.TrimSpace(e.ClientName)
		if e.ClientName == "" {
			continue
		}
		e.Industry = strings.TrimSpace(e.Industry)
		e.Technologies = strings.TrimSpace(e.Technologies)
		if e.Status == "" {
			e.Status = types.EngagementActive
		}
		out = append(out, e)
	}
	return out
}
