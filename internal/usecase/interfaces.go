package usecase

import (
	"context"

	"github.com/xavierca1/leadcapture/internal/entity"
)

// Extractor turns free text into a lead draft. It returns an error when no
// provider could produce a valid result; callers then use their channel
// fallback.
type Extractor interface {
	Extract(ctx context.Context, systemPrompt, userContent string) (*entity.ExtractionResult, error)
}

// LeadNotifier receives best-effort downstream notifications.
type LeadNotifier interface {
	NotifyLeadCaptured(ctx context.Context, event entity.LeadCapturedEvent) error
}
