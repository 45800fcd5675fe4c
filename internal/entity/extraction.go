package entity

import "strings"

const (
	UrgencyHigh   = "high"
	UrgencyMedium = "medium"
	UrgencyLow    = "low"

	ProjectTypeUnknown = "unknown"
)

// ExtractionResult is the structured lead draft produced from free text or
// call metadata. Only its derived fields reach the lead store.
type ExtractionResult struct {
	IsLead      bool   `json:"is_lead"`
	Confidence  int    `json:"confidence"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	ProjectType string `json:"type_projet,omitempty"`
	Notes       string `json:"notes,omitempty"`
	Score       int    `json:"score"`
	Language    string `json:"language,omitempty"`
	Urgency     string `json:"urgency,omitempty"`

	// Provider names the model that produced the result, or "fallback".
	Provider string `json:"-"`
}

// Qualifies reports whether the draft is a lead at or above threshold.
func (r *ExtractionResult) Qualifies(threshold int) bool {
	return r != nil && r.IsLead && r.Confidence >= threshold
}

// KnownProjectType reports whether a project type was identified.
func (r *ExtractionResult) KnownProjectType() bool {
	t := strings.TrimSpace(strings.ToLower(r.ProjectType))
	return t != "" && t != ProjectTypeUnknown
}

// Priority maps urgency to the lead priority vocabulary.
func (r *ExtractionResult) Priority() string {
	switch r.Urgency {
	case UrgencyHigh, UrgencyLow:
		return r.Urgency
	default:
		return UrgencyMedium
	}
}
