package types

import "time"

// FactStatus distinguishes evidence-backed facts from inferred ones.
type FactStatus string

const (
	// StatusConfirmed facts always carry an evidence URL.
	StatusConfirmed FactStatus = "confirmed"
	// StatusInferred facts always carry a reason.
	StatusInferred FactStatus = "inferred"
)

// Category names a family of facts in an IntelligenceRecord.
type Category string

// Fact categories, in display order.
const (
	CategoryFinancial     Category = "financial"
	CategoryTechnology    Category = "technology"
	CategoryVendors       Category = "vendors"
	CategoryAnnouncements Category = "announcements"
	CategoryStrategic     Category = "strategic_focus"
	CategoryLeadership    Category = "leadership"
	CategoryCompetitors   Category = "competitors"
)

// AllCategories lists every category the extractor knows about, in display order.
var AllCategories = []Category{
	CategoryFinancial,
	CategoryTechnology,
	CategoryVendors,
	CategoryAnnouncements,
	CategoryStrategic,
	CategoryLeadership,
	CategoryCompetitors,
}

// Label returns a human readable label for the category.
func (c Category) Label() string {
	switch c {
	case CategoryFinancial:
		return "Financial & Market"
	case CategoryTechnology:
		return "Technology Stack"
	case CategoryVendors:
		return "Vendors & Partnerships"
	case CategoryAnnouncements:
		return "Recent Announcements"
	case CategoryStrategic:
		return "Strategic Focus"
	case CategoryLeadership:
		return "Leadership"
	case CategoryCompetitors:
		return "Competitive Landscape"
	default:
		return string(c)
	}
}

// Fact is a single extracted datum.
type Fact struct {
	Value       string     `json:"value"`
	Status      FactStatus `json:"status"`
	Evidence    *string    `json:"evidence_url,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	Confidence  float64    `json:"confidence"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// IsConfirmed reports whether the fact is evidence-backed.
func (f Fact) IsConfirmed() bool {
	return f.Status == StatusConfirmed && f.Evidence != nil && *f.Evidence != ""
}

// IntelligenceRecord is the structured profile of a customer built by the extractor.
// Categories with no facts are absent from the map.
type IntelligenceRecord struct {
	Customer        string              `json:"customer"`
	Industry        string              `json:"industry,omitempty"`
	Categories      map[Category][]Fact `json:"categories"`
	ConfidenceScore float64             `json:"confidence_score"`
	Degraded        bool                `json:"degraded"`
	Sources         []string            `json:"sources,omitempty"`
}

// NewIntelligenceRecord returns an empty record for customer.
func NewIntelligenceRecord(customer string) *IntelligenceRecord {
	return &IntelligenceRecord{
		Customer:   customer,
		Categories: make(map[Category][]Fact),
	}
}

// PopulatedCategories returns the categories holding at least one fact, in display order.
func (r *IntelligenceRecord) PopulatedCategories() []Category {
	if r == nil {
		return nil
	}
	var out []Category
	for _, c := range AllCategories {
		if len(r.Categories[c]) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Recompute refreshes ConfidenceScore as the mean confidence of all facts.
// An empty record scores 0.
func (r *IntelligenceRecord) Recompute() {
	var total float64
	var n int
	for _, facts := range r.Categories {
		for _, f := range facts {
			total += ClampConfidence(f.Confidence)
			n++
		}
	}
	if n == 0 {
		r.ConfidenceScore = 0
		return
	}
	r.ConfidenceScore = total / float64(n)
}

// Highlights returns up to perCategory fact values from every populated category,
// prefixed with the category label. Confirmed facts come first.
func (r *IntelligenceRecord) Highlights(perCategory int) []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, c := range r.PopulatedCategories() {
		facts := r.Categories[c]
		picked := 0
		for _, pass := range []FactStatus{StatusConfirmed, StatusInferred} {
			for _, f := range facts {
				if f.Status != pass || picked >= perCategory {
					continue
				}
				out = append(out, c.Label()+": "+f.Value)
				picked++
			}
		}
	}
	return out
}

// IndustryClassification is the classifier's verdict. It is always produced whole.
type IndustryClassification struct {
	Industry   string  `json:"industry"`
	Confidence float64 `json:"confidence"`
}

// UnknownIndustry is returned when no evidence was available.
const UnknownIndustry = "Unknown"
