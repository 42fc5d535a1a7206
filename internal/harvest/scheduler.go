package harvest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"tracker.wpgtransit.org/internal/clock"
	"tracker.wpgtransit.org/internal/logging"
	"tracker.wpgtransit.org/internal/stops"
)

// Scheduler triggers one harvest run at startup (unless the persisted
// inventory was already refreshed today) and then once per day at a fixed
// local hour. The harvester's own single-flight guard makes an overlapping
// trigger a no-op.
type Scheduler struct {
	harvester *Harvester
	clock     clock.Clock
	loc       *time.Location
	runHour   int
	logger    *slog.Logger

	shutdownChan chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewScheduler creates a scheduler firing daily at runHour local time.
func NewScheduler(h *Harvester, clk clock.Clock, loc *time.Location, runHour int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		harvester:    h,
		clock:        clk,
		loc:          loc,
		runHour:      runHour,
		logger:       logger.With(slog.String("component", "harvest_scheduler")),
		shutdownChan: make(chan struct{}),
	}
}

// nextRunAfter returns the next daily trigger strictly after now.
func nextRunAfter(now time.Time, loc *time.Location, runHour int) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), runHour, 0, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// shouldRunAtStartup reports whether the startup harvest is needed: it is
// skipped only when the persisted snapshot already carries today's date.
func shouldRunAtStartup(lastUpdated, now time.Time, loc *time.Location) bool {
	return !stops.UpdatedOnDay(lastUpdated, now.In(loc))
}

// Start launches the scheduling loop. The startup run, when due, is
// triggered asynchronously like the daily ones.
func (s *Scheduler) Start(ctx context.Context) {
	if shouldRunAtStartup(s.harvester.cache.LastUpdated(), s.clock.Now(), s.loc) {
		logging.LogOperation(s.logger, "startup_harvest_scheduled")
		s.trigger(ctx)
	} else {
		logging.LogOperation(s.logger, "inventory_current_skipping_startup_harvest")
	}

	s.wg.Add(1)
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	for {
		next := nextRunAfter(s.clock.Now(), s.loc, s.runHour)
		timer := time.NewTimer(next.Sub(s.clock.Now()))

		select {
		case <-timer.C:
			logging.LogOperation(s.logger, "daily_harvest_triggered",
				slog.String("scheduled_for", next.Format(time.RFC3339)))
			s.trigger(ctx)
		case <-s.shutdownChan:
			timer.Stop()
			logging.LogOperation(s.logger, "shutting_down_harvest_scheduler")
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// trigger starts a harvest run without blocking the scheduling loop.
func (s *Scheduler) trigger(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.harvester.Run(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrRunActive):
			s.logger.Debug("harvest trigger ignored, run already active")
		case errors.Is(err, context.Canceled):
		default:
			logging.LogError(s.logger, "harvest run failed", err)
		}
	}()
}

// Stop shuts the scheduler down and waits for any in-flight trigger
// goroutine to finish. Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.shutdownChan)
	})
	s.wg.Wait()
}
