package intel

import (
	"strings"

	"github.com/jonathan/pitch-agent/internal/types"
)

var categoryQueries = map[types.Category][]string{
	types.CategoryFinancial: {
		"financial results revenue earnings",
		"annual report financial performance",
		"market capitalization stock price",
		"quarterly earnings investor relations",
	},
	types.CategoryTechnology: {
		"technology stack IT infrastructure",
		"cloud adoption digital transformation",
		"automation AI machine learning",
	},
	types.CategoryVendors: {
		"software vendors technology partners",
		"strategic partnerships alliances",
	},
	types.CategoryAnnouncements: {
		"recent announcements press releases",
		"latest news updates developments",
		"acquisitions mergers business development",
	},
	types.CategoryStrategic: {
		"business model revenue streams",
		"strategic priorities growth strategy",
	},
	types.CategoryLeadership: {
		"leadership team executives management",
	},
	types.CategoryCompetitors: {
		"market position competitive landscape",
		"competitors industry trends market analysis",
	},
}

var categoryGuidance = map[types.Category]string{
	types.CategoryFinancial:     "Focus on revenue, earnings, market capitalization, growth rate and funding.",
	types.CategoryTechnology:    "Focus on platforms, cloud providers, software, data and AI capabilities in use.",
	types.CategoryVendors:       "Focus on named vendors, suppliers and technology or channel partners.",
	types.CategoryAnnouncements: "Focus on dated announcements: launches, acquisitions, contracts and expansions.",
	types.CategoryStrategic:     "Focus on stated strategic priorities, transformation programs and business model.",
	types.CategoryLeadership:    "Focus on named executives and their roles. Label each value with the role.",
	types.CategoryCompetitors:   "Focus on named competitors and the company's market position.",
}

// QueriesFor returns the search queries used for one category. Industry and
// focus add targeted variants when present.
func QueriesFor(category types.Category, customer, industry, focus string) []string {
	customer = strings.TrimSpace(customer)
	industry = strings.TrimSpace(industry)
	focus = strings.TrimSpace(focus)
	if strings.EqualFold(industry, types.UnknownIndustry) {
		industry = ""
	}

	var out []string
	for _, suffix := range categoryQueries[category] {
		out = append(out, customer+" "+suffix)
	}

	if industry != "" {
		switch category {
		case types.CategoryCompetitors:
			out = append(out, customer+" "+industry+" market share position")
		case types.CategoryStrategic:
			out = append(out, customer+" "+industry+" challenges opportunities")
		case types.CategoryTechnology:
			out = append(out, customer+" "+industry+" technology adoption trends")
		}
	}
	if focus != "" {
		switch category {
		case types.CategoryStrategic:
			out = append(out, customer+" "+focus+" strategy roadmap")
		case types.CategoryAnnouncements:
			out = append(out, customer+" "+focus+" initiatives projects")
		}
	}
	return out
}
