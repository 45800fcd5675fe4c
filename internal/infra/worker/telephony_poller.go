package worker

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/leadcapture/internal/infra/integration/ringover"
	"github.com/xavierca1/leadcapture/internal/usecase"
)

const PollerTelephony = "telephony"

// DefaultTelephonyLookback is one minute wider than the default interval so
// consecutive windows overlap instead of leaving gaps.
const DefaultTelephonyLookback = 16 * time.Minute

type CallLister interface {
	ListCalls(ctx context.Context, since, until time.Time) ([]ringover.Call, error)
}

type CallProcessor interface {
	Execute(ctx context.Context, in usecase.CallInput) (*usecase.Outcome, error)
}

type TelephonyPoller struct {
	Calls       CallLister
	Processor   CallProcessor
	Lookback    time.Duration
	CallTimeout time.Duration
	Observer    PollObserver
	Now         func() time.Time

	guard single
	log   *zap.Logger
}

func NewTelephonyPoller(calls CallLister, processor CallProcessor, lookback time.Duration) *TelephonyPoller {
	if lookback <= 0 {
		lookback = DefaultTelephonyLookback
	}
	return &TelephonyPoller{
		Calls:       calls,
		Processor:   processor,
		Lookback:    lookback,
		CallTimeout: 90 * time.Second,
		log:         zap.L().Named("poller.telephony"),
	}
}

func (p *TelephonyPoller) Name() string { return PollerTelephony }

func (p *TelephonyPoller) RunOnce(ctx context.Context) (*PollResult, error) {
	release, ok := p.guard.try()
	if !ok {
		return nil, ErrPollInProgress
	}
	defer release()

	now := p.now()
	result := &PollResult{Poller: PollerTelephony, StartedAt: now}
	err := p.poll(ctx, now, result)
	result.Duration = p.now().Sub(now)

	if p.Observer != nil {
		p.Observer.ObservePoll(PollerTelephony, result, err)
	}
	return result, err
}

func (p *TelephonyPoller) poll(ctx context.Context, now time.Time, result *PollResult) error {
	log := p.logger()

	calls, err := p.Calls.ListCalls(ctx, now.Add(-p.Lookback), now)
	if err != nil {
		return err
	}
	result.Fetched = len(calls)

	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return err
		}

		in := CallInput(call)
		out, err := p.process(ctx, in)
		result.add(out, err)
		if err != nil {
			log.Warn("call processing failed", zap.String("entity_id", in.CallID), zap.Error(err))
		}
	}

	log.Info("telephony poll finished",
		zap.Int("fetched", result.Fetched),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors),
	)
	return nil
}

func (p *TelephonyPoller) process(ctx context.Context, in usecase.CallInput) (*usecase.Outcome, error) {
	timeout := p.CallTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return p.Processor.Execute(cctx, in)
}

// CallInput maps a provider call record onto the telephony use case input.
func CallInput(c ringover.Call) usecase.CallInput {
	id := c.CallID
	if id == "" && c.CDRID != 0 {
		id = strconv.FormatInt(c.CDRID, 10)
	}
	return usecase.CallInput{
		CallID:      id,
		Direction:   c.Direction,
		Type:        c.State(),
		FromNumber:  c.FromNumber,
		ToNumber:    c.ToNumber,
		Duration:    c.TotalDuration,
		StartedAt:   c.StartTime,
		Comment:     c.Comments,
		Tags:        c.TagNames(),
		ContactName: c.ContactName(),
		Raw:         c.Raw,
	}
}

func (p *TelephonyPoller) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *TelephonyPoller) logger() *zap.Logger {
	if p.log != nil {
		return p.log
	}
	return zap.L()
}
