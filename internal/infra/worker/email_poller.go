package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/leadcapture/internal/entity"
	"github.com/xavierca1/leadcapture/internal/usecase"
)

const PollerEmail = "email"

type MailboxSession interface {
	FetchUnread(ctx context.Context, since time.Time) ([]entity.EmailMessage, error)
	MarkRead(ctx context.Context, uid uint32) error
	Close() error
}

type MailboxOpener interface {
	Open(ctx context.Context) (MailboxSession, error)
}

// MailboxOpenerFunc adapts a function to MailboxOpener.
type MailboxOpenerFunc func(ctx context.Context) (MailboxSession, error)

func (f MailboxOpenerFunc) Open(ctx context.Context) (MailboxSession, error) { return f(ctx) }

type EmailProcessor interface {
	Execute(ctx context.Context, in usecase.EmailInput) (*usecase.Outcome, error)
}

// EmailPoller reads unread mail and feeds each message to the email use
// case. A message is marked read only after its outcome was recorded, so a
// crash in between leaves it for the next tick where the audit log dedups it.
type EmailPoller struct {
	Mailbox    MailboxOpener
	Processor  EmailProcessor
	Lookback   time.Duration
	MsgTimeout time.Duration
	Observer   PollObserver
	Now        func() time.Time

	guard single
	log   *zap.Logger
}

func NewEmailPoller(mailbox MailboxOpener, processor EmailProcessor, lookback time.Duration) *EmailPoller {
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &EmailPoller{
		Mailbox:    mailbox,
		Processor:  processor,
		Lookback:   lookback,
		MsgTimeout: 90 * time.Second,
		log:        zap.L().Named("poller.email"),
	}
}

func (p *EmailPoller) Name() string { return PollerEmail }

func (p *EmailPoller) RunOnce(ctx context.Context) (*PollResult, error) {
	release, ok := p.guard.try()
	if !ok {
		return nil, ErrPollInProgress
	}
	defer release()

	now := p.now()
	result := &PollResult{Poller: PollerEmail, StartedAt: now}
	err := p.poll(ctx, now, result)
	result.Duration = p.now().Sub(now)

	if p.Observer != nil {
		p.Observer.ObservePoll(PollerEmail, result, err)
	}
	return result, err
}

func (p *EmailPoller) poll(ctx context.Context, now time.Time, result *PollResult) error {
	log := p.logger()

	session, err := p.Mailbox.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Debug("mailbox logout failed", zap.Error(err))
		}
	}()

	messages, err := session.FetchUnread(ctx, now.Add(-p.Lookback))
	if err != nil {
		return err
	}
	result.Fetched = len(messages)

	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return err
		}

		out, err := p.process(ctx, msg)
		result.add(out, err)
		if err != nil {
			log.Warn("email processing failed, leaving unread",
				zap.String("entity_id", msg.MessageID),
				zap.Error(err),
			)
			continue
		}

		if err := session.MarkRead(ctx, msg.UID); err != nil {
			log.Warn("failed to mark email read",
				zap.String("entity_id", msg.MessageID),
				zap.Error(err),
			)
		}
	}

	log.Info("email poll finished",
		zap.Int("fetched", result.Fetched),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors),
	)
	return nil
}

func (p *EmailPoller) process(ctx context.Context, msg entity.EmailMessage) (*usecase.Outcome, error) {
	timeout := p.MsgTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	mctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return p.Processor.Execute(mctx, usecase.EmailInput{
		MessageID:   msg.MessageID,
		FromName:    msg.FromName,
		FromAddress: msg.FromAddress,
		Subject:     msg.Subject,
		Body:        msg.Body,
		ReceivedAt:  msg.Date,
	})
}

func (p *EmailPoller) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *EmailPoller) logger() *zap.Logger {
	if p.log != nil {
		return p.log
	}
	return zap.L()
}
