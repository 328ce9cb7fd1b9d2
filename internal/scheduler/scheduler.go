package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Refresher is what the keep-warm job calls; sensor.Service satisfies it.
type Refresher interface {
	SiteID() string
	Refresh(ctx context.Context) error
}

// Scheduler periodically refreshes the cached reading so requests rarely
// wait on the upstream API.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler. interval is raised to minInterval so the job
// can never ask for a refresh more often than the cache TTL allows anyway.
func New(refresher Refresher, interval, minInterval, timeout time.Duration) *Scheduler {
	if interval > 0 && interval < minInterval {
		log.Printf("INFO: scheduler: warm interval %s raised to %s", interval, minInterval)
		interval = minInterval
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		refresher: refresher,
		interval:  interval,
		timeout:   timeout,
	}
}

// Interval returns the effective refresh interval (0 when disabled).
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		log.Println("scheduler: warm interval not set; background refresh disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.refresher.Refresh(ctx); err != nil {
		log.Printf("scheduler: refresh failed for site %s: %v", s.refresher.SiteID(), err)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
