package extraction

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrCircuitOpen is returned when a provider is skipped after repeated failures.
var ErrCircuitOpen = eris.New("provider circuit is open")

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// breaker opens after threshold consecutive failures and lets one probe
// through once resetTimeout has elapsed.
type breaker struct {
	threshold    int
	resetTimeout time.Duration
	now          func() time.Time

	mu          sync.Mutex
	state       breakerState
	failures    int
	lastFailure time.Time
	probing     bool
}

func newBreaker(threshold int, resetTimeout time.Duration) *breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if resetTimeout <= 0 {
		resetTimeout = time.Minute
	}
	return &breaker{threshold: threshold, resetTimeout: resetTimeout, now: time.Now}
}

func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateOpen:
		if b.now().Sub(b.lastFailure) < b.resetTimeout {
			return ErrCircuitOpen
		}
		b.state = stateHalfOpen
		b.probing = true
		return nil
	case stateHalfOpen:
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

func (b *breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	if err == nil {
		b.state = stateClosed
		b.failures = 0
		return
	}

	b.failures++
	b.lastFailure = b.now()
	if b.state == stateHalfOpen || b.failures >= b.threshold {
		b.state = stateOpen
	}
}
