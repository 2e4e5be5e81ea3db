package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/daftuyda/Igris/internal"
	"github.com/daftuyda/Igris/internal/clock"
)

var (
	ErrSweepInProgress = errors.New("sweep already in progress")
	ErrSchedulerActive = errors.New("scheduler already started")
)

type SchedulerConfig struct {
	Interval time.Duration
	Workers  int
}

// SweepReport is what one pass over all users did.
type SweepReport struct {
	Users     int              `json:"users"`
	Evaluated int              `json:"evaluated"`
	Skipped   int              `json:"skipped"`
	Failed    map[string]error `json:"-"`
	Duration  time.Duration    `json:"duration"`
}

// Scheduler periodically closes the day for every user whose local date has
// moved past their last evaluated date.
type Scheduler struct {
	svc    *Service
	cfg    SchedulerConfig
	logger internal.Logger

	sweeping atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(svc *Service, cfg SchedulerConfig, logger internal.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Scheduler{svc: svc, cfg: cfg, logger: logger}
}

// Start runs one sweep right away and then one per interval until Stop is
// called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrSchedulerActive
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)

	s.logger.Infof("scheduler started: interval=%s workers=%d", s.cfg.Interval, s.cfg.Workers)
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	// Sweeps run in their own goroutine so a slow one makes the next tick hit
	// the overlap guard instead of queueing behind it.
	var inflight sync.WaitGroup
	defer inflight.Wait()
	run := func() {
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			s.tick(ctx)
		}()
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	report, err := s.Sweep(ctx, s.svc.clock.Now())
	if err != nil {
		if errors.Is(err, ErrSweepInProgress) {
			s.logger.Warn("previous sweep still running, skipping tick")
			return
		}
		s.logger.Errorf("sweep failed: %v", err)
		return
	}
	s.logger.Infof("sweep done: users=%d evaluated=%d skipped=%d failed=%d in %s",
		report.Users, report.Evaluated, report.Skipped, len(report.Failed), report.Duration)
}

// Sweep evaluates every user whose local date at now is later than their last
// evaluated date. A failure for one user is recorded and the sweep continues.
// Only one sweep runs at a time; an overlapping call returns ErrSweepInProgress.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) (SweepReport, error) {
	if !s.sweeping.CompareAndSwap(false, true) {
		return SweepReport{}, ErrSweepInProgress
	}
	defer s.sweeping.Store(false)

	start := time.Now()
	report := SweepReport{Failed: make(map[string]error)}

	users, err := s.svc.store.ListUsers(ctx)
	if err != nil {
		return report, fmt.Errorf("list users: %w", err)
	}
	report.Users = len(users)

	var mu sync.Mutex
	record := func(userID string, evaluated bool, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err != nil:
			report.Failed[userID] = err
		case evaluated:
			report.Evaluated++
		default:
			report.Skipped++
		}
	}

	jobs := make(chan internal.User)
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobs {
				evaluated, err := s.sweepUser(ctx, &u, now)
				if err != nil {
					s.logger.Errorf("sweep: user %s: %v", u.ID, err)
				}
				record(u.ID, evaluated, err)
			}
		}()
	}

feed:
	for _, u := range users {
		select {
		case jobs <- u:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	report.Duration = time.Since(start)
	return report, ctx.Err()
}

func (s *Scheduler) sweepUser(ctx context.Context, u *internal.User, now time.Time) (evaluated bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	// Cheap pre-check on the listed snapshot; Evaluate re-checks in its transaction.
	loc := s.svc.zones.Resolve(u.Timezone)
	if !dateAdvanced(u.LastEvaluatedDate, clock.LocalDate(now, loc)) {
		return false, nil
	}
	result, err := s.svc.Evaluate(ctx, u.ID, now, EvaluateOptions{MarkDate: true})
	if err != nil {
		return false, err
	}
	return !result.Skipped, nil
}
