// Package extraction turns free text and call metadata into structured lead
// drafts through a chain of language-model providers.
package extraction

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xavierca1/leadcapture/internal/entity"
)

// ErrUnavailable is returned when every provider failed or none is configured.
var ErrUnavailable = eris.New("extraction providers unavailable")

// Provider completes one system/user prompt pair and returns the raw text.
type Provider interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, userContent string) (string, error)
}

// Observer is notified of each provider attempt ("ok", "error", "invalid", "open").
type Observer func(provider, result string)

type Option func(*Service)

func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

func WithObserver(o Observer) Option {
	return func(s *Service) { s.observe = o }
}

func WithBreaker(threshold int, reset time.Duration) Option {
	return func(s *Service) {
		s.breakerThreshold = threshold
		s.breakerReset = reset
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

type chained struct {
	provider Provider
	breaker  *breaker
}

// Service tries its providers in order. Each attempt is bounded by the
// per-call timeout.
type Service struct {
	chain            []chained
	timeout          time.Duration
	observe          Observer
	breakerThreshold int
	breakerReset     time.Duration
	log              *zap.Logger
}

func NewService(providers []Provider, opts ...Option) *Service {
	s := &Service{
		timeout:          30 * time.Second,
		breakerThreshold: 3,
		breakerReset:     2 * time.Minute,
		log:              zap.L(),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, p := range providers {
		if p == nil {
			continue
		}
		s.chain = append(s.chain, chained{provider: p, breaker: newBreaker(s.breakerThreshold, s.breakerReset)})
	}
	return s
}

// Providers lists the configured provider names in attempt order.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.chain))
	for _, c := range s.chain {
		names = append(names, c.provider.Name())
	}
	return names
}

func (s *Service) Extract(ctx context.Context, systemPrompt, userContent string) (*entity.ExtractionResult, error) {
	if len(s.chain) == 0 {
		return nil, ErrUnavailable
	}

	var lastErr error
	for _, c := range s.chain {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "extraction cancelled")
		}

		name := c.provider.Name()
		if err := c.breaker.allow(); err != nil {
			s.emit(name, "open")
			lastErr = eris.Wrapf(err, "provider %s", name)
			continue
		}

		result, err := s.attempt(ctx, c.provider, systemPrompt, userContent)
		c.breaker.record(err)
		if err != nil {
			lastErr = err
			s.log.Warn("extraction provider failed", zap.String("provider", name), zap.Error(err))
			continue
		}

		s.emit(name, "ok")
		result.Provider = name
		return result, nil
	}

	return nil, eris.Wrap(ErrUnavailable, errString(lastErr))
}

func (s *Service) attempt(ctx context.Context, p Provider, systemPrompt, userContent string) (*entity.ExtractionResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := p.Complete(callCtx, systemPrompt, userContent)
	if err != nil {
		s.emit(p.Name(), "error")
		return nil, eris.Wrapf(err, "provider %s", p.Name())
	}

	result, err := ParseResult(text)
	if err != nil {
		s.emit(p.Name(), "invalid")
		return nil, eris.Wrapf(err, "provider %s returned an unusable response", p.Name())
	}
	return result, nil
}

func (s *Service) emit(provider, result string) {
	if s.observe != nil {
		s.observe(provider, result)
	}
}

func errString(err error) string {
	if err == nil {
		return "no provider answered"
	}
	return err.Error()
}
