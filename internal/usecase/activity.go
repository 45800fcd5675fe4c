package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/xavierca1/leadcapture/internal/entity"
)

const maxActivityContent = 4000

func recordActivity(ctx context.Context, repo entity.LeadActivityRepositoryInterface, activity entity.LeadActivity) error {
	if repo == nil {
		return nil
	}
	activity.ID = uuid.New().String()
	activity.IsAutomated = true
	activity.Content = truncate(activity.Content, maxActivityContent)
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now()
	}
	if err := repo.Create(ctx, &activity); err != nil {
		return eris.Wrapf(err, "record %s activity for lead %s", activity.Type, activity.LeadID)
	}
	return nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
