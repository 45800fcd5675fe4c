package entity

import (
	"context"
	"time"
)

// WhatsAppMessage is the raw inbound message kept for the messaging channel.
type WhatsAppMessage struct {
	ID          string         `json:"id"`
	LeadID      string         `json:"lead,omitempty"`
	Phone       string         `json:"phone"`
	Direction   string         `json:"direction"`
	MessageType string         `json:"message_type"`
	Content     string         `json:"content"`
	ExternalID  string         `json:"external_id"`
	Status      string         `json:"status,omitempty"`
	Processed   bool           `json:"processed"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"date_created"`
}

type WhatsAppMessageRepositoryInterface interface {
	Create(ctx context.Context, msg *WhatsAppMessage) error
	MarkProcessed(ctx context.Context, id, leadID string) error
}
