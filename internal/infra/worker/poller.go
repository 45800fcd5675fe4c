// Package worker holds the background pollers and the scheduler that
// drives them.
package worker

import (
	"errors"
	"sync"
	"time"

	"github.com/xavierca1/leadcapture/internal/entity"
	"github.com/xavierca1/leadcapture/internal/usecase"
)

// ErrPollInProgress is returned when an iteration is requested while the
// same poller is still running one.
var ErrPollInProgress = errors.New("poll already in progress")

// PollResult summarizes one poller iteration. Scheduled runs and manual
// triggers return the same shape.
type PollResult struct {
	Poller    string        `json:"poller"`
	Fetched   int           `json:"fetched"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Skipped   int           `json:"skipped"`
	Errors    int           `json:"errors"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}

func (r *PollResult) add(out *usecase.Outcome, err error) {
	if err != nil || out == nil {
		r.Errors++
		return
	}
	switch out.Status {
	case entity.AutomationSuccess:
		if out.Created {
			r.Created++
		} else {
			r.Updated++
		}
	case entity.AutomationError:
		r.Errors++
	default:
		r.Skipped++
	}
}

// PollObserver is told about every finished iteration.
type PollObserver interface {
	ObservePoll(poller string, result *PollResult, err error)
}

// single guards a poller against overlapping iterations.
type single struct {
	mu sync.Mutex
}

func (s *single) try() (release func(), ok bool) {
	if !s.mu.TryLock() {
		return nil, false
	}
	return s.mu.Unlock, true
}
