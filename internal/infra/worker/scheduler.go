package worker

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Task is one independently scheduled background job.
type Task struct {
	Name       string
	Interval   time.Duration
	StartDelay time.Duration
	// Jitter adds a random share on top of StartDelay so tasks started
	// together do not fire together.
	Jitter time.Duration
	Run    func(ctx context.Context) error
}

type Poller interface {
	Name() string
	RunOnce(ctx context.Context) (*PollResult, error)
}

// PollTask wraps a poller for the scheduler.
func PollTask(p Poller, interval, startDelay, jitter time.Duration) Task {
	return Task{
		Name:       p.Name(),
		Interval:   interval,
		StartDelay: startDelay,
		Jitter:     jitter,
		Run: func(ctx context.Context) error {
			_, err := p.RunOnce(ctx)
			return err
		},
	}
}

type Scheduler struct {
	tasks []Task
	log   *zap.Logger
}

func NewScheduler(tasks ...Task) *Scheduler {
	return &Scheduler{tasks: tasks, log: zap.L().Named("scheduler")}
}

func (s *Scheduler) Add(t Task) {
	s.tasks = append(s.tasks, t)
}

func (s *Scheduler) Tasks() []string {
	names := make([]string, 0, len(s.tasks))
	for _, t := range s.tasks {
		names = append(names, t.Name)
	}
	return names
}

// Run starts every task on its own goroutine and blocks until ctx is done.
// A failing or panicking tick is logged and the schedule carries on.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range s.tasks {
		if t.Interval <= 0 || t.Run == nil {
			s.log.Warn("task not scheduled", zap.String("task", t.Name))
			continue
		}
		g.Go(func() error {
			s.loop(ctx, t)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, t Task) {
	delay := firstRunDelay(t.StartDelay, t.Jitter)
	log := s.log.With(zap.String("task", t.Name))
	log.Info("task scheduled", zap.Duration("interval", t.Interval), zap.Duration("first_run_in", delay))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	s.tick(ctx, t)

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("task stopped")
			return
		case <-ticker.C:
			s.tick(ctx, t)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, t Task) {
	log := s.log.With(zap.String("task", t.Name))

	err := runSafely(ctx, t.Run)
	switch {
	case err == nil:
	case errors.Is(err, ErrPollInProgress):
		log.Info("previous run still in progress, tick skipped")
	case ctx.Err() != nil:
	default:
		log.Error("task run failed", zap.Error(err))
	}
}

func runSafely(ctx context.Context, run func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("panic: %v", r)
		}
	}()
	return run(ctx)
}

func firstRunDelay(base, jitter time.Duration) time.Duration {
	if jitter <= 0 {
		return base
	}
	return base + rand.N(jitter)
}
