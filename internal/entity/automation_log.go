package entity

import (
	"context"
	"time"
)

// AutomationStatus is the outcome recorded for one external event.
type AutomationStatus string

const (
	AutomationProcessing AutomationStatus = "processing"
	AutomationSuccess    AutomationStatus = "success"
	AutomationSkipped    AutomationStatus = "skipped"
	AutomationError      AutomationStatus = "error"
)

// Rule names double as the adapter identifier in automation_logs.
const (
	RuleEmail     = "email"
	RuleTelephony = "ringover"
	RuleMessaging = "whatsapp"
	RuleWebForm   = "webform"
)

// AutomationLogEntry is an append-only processing record. The (RuleName,
// EntityID) pair is the idempotency key of the whole pipeline.
type AutomationLogEntry struct {
	ID           string           `json:"id"`
	RuleName     string           `json:"rule_name"`
	EntityType   string           `json:"entity_type"`
	EntityID     string           `json:"entity_id"`
	LeadID       string           `json:"lead,omitempty"`
	Status       AutomationStatus `json:"status"`
	TriggerData  map[string]any   `json:"trigger_data,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	ExecutedAt   time.Time        `json:"executed_at"`
}

type AutomationLogRepositoryInterface interface {
	Record(ctx context.Context, entry *AutomationLogEntry) error
	// HasSuccessSince reports a success entry for the key at or after since.
	HasSuccessSince(ctx context.Context, ruleName, entityID string, since time.Time) (bool, error)
	// Exists reports an entry of any status for the key.
	Exists(ctx context.Context, ruleName, entityID string) (bool, error)
	// Claim atomically writes a processing entry. It returns false when the
	// key was already claimed.
	Claim(ctx context.Context, entry *AutomationLogEntry) (bool, error)
}
