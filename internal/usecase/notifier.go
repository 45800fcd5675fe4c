package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xavierca1/leadcapture/internal/entity"
)

const notificationTimeout = 15 * time.Second

// MultiNotifier fans an event out to every notifier and joins their errors.
type MultiNotifier []LeadNotifier

func (m MultiNotifier) NotifyLeadCaptured(ctx context.Context, event entity.LeadCapturedEvent) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.NotifyLeadCaptured(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return eris.Wrap(errors.Join(errs...), "lead notification failed")
}

// dispatchNotification runs the notifier detached from the request so that a
// finished response or tick never cancels it. Errors only reach the log.
func dispatchNotification(ctx context.Context, notifier LeadNotifier, event entity.LeadCapturedEvent, log *zap.Logger) {
	detached := context.WithoutCancel(ctx)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("lead notifier panicked", zap.Any("panic", r), zap.String("lead_id", event.LeadID))
			}
		}()

		nctx, cancel := context.WithTimeout(detached, notificationTimeout)
		defer cancel()

		if err := notifier.NotifyLeadCaptured(nctx, event); err != nil {
			log.Warn("lead notification failed",
				zap.Error(err),
				zap.String("lead_id", event.LeadID),
				zap.String("channel", string(event.Channel)),
			)
		}
	}()
}
