package industry

import (
	"regexp"
	"strings"
)

// Taxonomy is the fixed list of industries, in tie-break order.
var Taxonomy = []string{
	"Technology",
	"Healthcare",
	"Financial Services",
	"Insurance",
	"Manufacturing",
	"Retail",
	"Energy",
	"Telecommunications",
	"Automotive",
	"Aerospace",
	"Media",
	"Real Estate",
	"Education",
	"Government",
	"Logistics",
	"Pharmaceuticals",
	"Hospitality",
	"Agriculture",
}

var taxonomyKeywords = map[string][]string{
	"Technology":         {"software", "saas", "cloud", "platform", "technology company", "tech company", "semiconductor", "it services", "artificial intelligence", "cybersecurity"},
	"Healthcare":         {"healthcare", "hospital", "health system", "clinical", "patient", "medical", "medtech", "health care"},
	"Financial Services": {"bank", "banking", "financial services", "asset management", "payments", "fintech", "lending", "investment", "wealth management"},
	"Insurance":          {"insurance", "insurer", "underwriting", "reinsurance", "policyholder"},
	"Manufacturing":      {"manufacturing", "manufacturer", "industrial", "factory", "factories", "production lines", "machinery"},
	"Retail":             {"retail", "retailer", "e-commerce", "ecommerce", "stores", "consumer goods", "shopping", "grocery"},
	"Energy":             {"energy", "oil", "gas", "utility", "utilities", "renewable", "solar", "power generation", "electricity"},
	"Telecommunications": {"telecom", "telecommunications", "wireless", "broadband", "mobile network", "5g", "carrier"},
	"Automotive":         {"automotive", "automaker", "vehicle", "vehicles", "car maker", "electric vehicle", "auto parts"},
	"Aerospace":          {"aerospace", "aircraft", "aviation", "defense", "satellite", "airline"},
	"Media":              {"media", "entertainment", "publishing", "broadcast", "streaming", "news organization", "advertising"},
	"Real Estate":        {"real estate", "property", "properties", "reit", "commercial real estate", "housing"},
	"Education":          {"education", "university", "school", "edtech", "learning", "college"},
	"Government":         {"government", "public sector", "agency", "federal", "municipal", "ministry"},
	"Logistics":          {"logistics", "shipping", "freight", "supply chain", "warehouse", "warehousing", "transportation"},
	"Pharmaceuticals":    {"pharmaceutical", "pharma", "biotech", "biotechnology", "drug", "therapeutics", "life sciences"},
	"Hospitality":        {"hospitality", "hotel", "hotels", "resort", "restaurant", "travel", "tourism"},
	"Agriculture":        {"agriculture", "agricultural", "farming", "crop", "agribusiness", "livestock"},
}

var keywordPatterns = compileKeywords()

func compileKeywords() map[string][]*regexp.Regexp {
	out := make(map[string][]*regexp.Regexp, len(taxonomyKeywords))
	for industry, keywords := range taxonomyKeywords {
		for _, kw := range keywords {
			out[industry] = append(out[industry], regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)+`\b`))
		}
	}
	return out
}

// keywordScores counts keyword hits per industry in text.
func keywordScores(text string) map[string]int {
	text = strings.ToLower(text)
	scores := make(map[string]int)
	for _, industry := range Taxonomy {
		for _, re := range keywordPatterns[industry] {
			scores[industry] += len(re.FindAllStringIndex(text, -1))
		}
	}
	return scores
}

// Canonical maps a free-form label onto the taxonomy. Labels outside the
// taxonomy are returned trimmed; empty, "unknown" and "other" labels yield "".
func Canonical(label string) string {
	label = strings.TrimSpace(label)
	if label == "" || strings.EqualFold(label, "unknown") || strings.EqualFold(label, "other") {
		return ""
	}
	for _, industry := range Taxonomy {
		if strings.EqualFold(label, industry) {
			return industry
		}
	}
	lower := strings.ToLower(label)
	for _, industry := range Taxonomy {
		if strings.Contains(lower, strings.ToLower(industry)) {
			return industry
		}
	}
	return label
}
