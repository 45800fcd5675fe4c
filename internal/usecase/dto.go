package usecase

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/xavierca1/leadcapture/internal/entity"
)

type UpsertLeadInput struct {
	Channel      entity.Channel
	SourceCode   string
	SourceDetail string
	Lead         entity.Lead

	retried bool
}

type UpsertLeadOutput struct {
	Lead    *entity.Lead
	Created bool
}

// Outcome is the terminal result of one pipeline run.
type Outcome struct {
	Status     entity.AutomationStatus  `json:"status"`
	LeadID     string                   `json:"lead_id,omitempty"`
	Created    bool                     `json:"created,omitempty"`
	Reason     string                   `json:"reason,omitempty"`
	Extraction *entity.ExtractionResult `json:"-"`
}

type EmailInput struct {
	MessageID   string
	FromName    string
	FromAddress string
	Subject     string
	Body        string
	ReceivedAt  time.Time
}

type CallInput struct {
	CallID      string          `json:"call_id"`
	Direction   string          `json:"direction"`
	Type        string          `json:"type"`
	FromNumber  string          `json:"from_number"`
	ToNumber    string          `json:"to_number"`
	Duration    int             `json:"duration"`
	StartedAt   time.Time       `json:"started_at"`
	Comment     string          `json:"comment,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	ContactName string          `json:"contact_name,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

// Missed reports whether the provider flagged the call as unanswered.
func (c CallInput) Missed() bool {
	switch strings.ToUpper(c.Type) {
	case "MISSED", "VOICEMAIL", "QUEUE_TIMEOUT", "NOANSWER":
		return true
	}
	return false
}

type WhatsAppInput struct {
	MessageID   string
	From        string
	ProfileName string
	Type        string
	Text        string
	Timestamp   time.Time
	Raw         json.RawMessage
}

type WebFormInput struct {
	Fields map[string]any
	Raw    json.RawMessage
	Origin string
}

type WebFormOutput struct {
	Success bool   `json:"success"`
	LeadID  string `json:"lead_id,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Score   int    `json:"score,omitempty"`
}
