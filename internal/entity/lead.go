package entity

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusQualified = "qualified"
)

// Lead is a prospect addressed by email or phone. Leads are never deleted by
// the capture pipeline.
type Lead struct {
	ID             string          `json:"id"`
	FirstName      string          `json:"first_name,omitempty"`
	LastName       string          `json:"last_name,omitempty"`
	Email          string          `json:"email,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	CompanyName    string          `json:"company_name,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Status         string          `json:"status"`
	Priority       string          `json:"priority,omitempty"`
	Score          int             `json:"score"`
	SourceID       string          `json:"source,omitempty"`
	SourceChannel  string          `json:"source_channel,omitempty"`
	SourceDetail   string          `json:"source_detail,omitempty"`
	ProjectType    string          `json:"project_type,omitempty"`
	Language       string          `json:"language,omitempty"`
	EstimatedValue float64         `json:"estimated_value,omitempty"`
	EventDate      *time.Time      `json:"event_date,omitempty"`
	RawData        json.RawMessage `json:"raw_data,omitempty"`
	LLMSummary     string          `json:"llm_summary,omitempty"`
	CallID         string          `json:"call_id,omitempty"`
	CallDuration   int             `json:"call_duration,omitempty"`
	CreatedAt      time.Time       `json:"date_created"`
	UpdatedAt      time.Time       `json:"date_updated"`
}

// HasIdentity reports whether the lead can be addressed for upserts.
func (l *Lead) HasIdentity() bool {
	return strings.TrimSpace(l.Email) != "" || strings.TrimSpace(l.Phone) != ""
}

// LeadSource is the registry entry a lead points to. Codes are unique.
type LeadSource struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	IsActive bool   `json:"is_active"`
}

// LeadActivity is one interaction recorded against a lead.
type LeadActivity struct {
	ID              string         `json:"id"`
	LeadID          string         `json:"lead"`
	Type            string         `json:"type"`
	Subject         string         `json:"subject,omitempty"`
	Content         string         `json:"content,omitempty"`
	DurationMinutes int            `json:"duration_minutes,omitempty"`
	IsAutomated     bool           `json:"is_automated"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"date_created"`
}

type LeadRepositoryInterface interface {
	FindByEmail(ctx context.Context, email string) (*Lead, error)
	FindByPhone(ctx context.Context, phone string) (*Lead, error)
	Create(ctx context.Context, lead *Lead) error
	Update(ctx context.Context, lead *Lead) error
	UpdateChannelMetadata(ctx context.Context, id, channel, detail string) error
}

type LeadSourceRepositoryInterface interface {
	GetOrCreate(ctx context.Context, code, name, sourceType string) (*LeadSource, error)
}

type LeadActivityRepositoryInterface interface {
	Create(ctx context.Context, activity *LeadActivity) error
}
