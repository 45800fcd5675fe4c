package entity

import "time"

// LeadCapturedEvent is published downstream after a lead is created or
// updated by the capture pipeline.
type LeadCapturedEvent struct {
	LeadID     string    `json:"lead_id"`
	Channel    Channel   `json:"channel"`
	SourceCode string    `json:"source_code"`
	Created    bool      `json:"created"`
	FirstName  string    `json:"first_name,omitempty"`
	LastName   string    `json:"last_name,omitempty"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Company    string    `json:"company_name,omitempty"`
	Score      int       `json:"score"`
	Language   string    `json:"language,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
