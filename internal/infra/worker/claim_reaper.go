package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type AbandonedClaimCloser interface {
	CloseAbandonedClaims(ctx context.Context, before time.Time) ([]string, error)
}

// ClaimReaper closes telephony processing claims left behind by a crash
// mid-run. The calls stay deduplicated; the log just stops showing them as
// in flight.
type ClaimReaper struct {
	Audit  AbandonedClaimCloser
	MaxAge time.Duration
	Now    func() time.Time
}

func NewClaimReaper(audit AbandonedClaimCloser) *ClaimReaper {
	return &ClaimReaper{Audit: audit, MaxAge: time.Hour}
}

func (r *ClaimReaper) Run(ctx context.Context) error {
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}

	ids, err := r.Audit.CloseAbandonedClaims(ctx, now.Add(-r.MaxAge))
	if err != nil {
		return err
	}

	for _, id := range ids {
		zap.L().Warn("abandoned processing claim closed", zap.String("entity_id", id))
	}
	return nil
}

func (r *ClaimReaper) Task(interval time.Duration) Task {
	return Task{Name: "claim-reaper", Interval: interval, StartDelay: interval, Run: r.Run}
}
