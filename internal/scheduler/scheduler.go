// Package scheduler periodically refreshes stored competition snapshots.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/pfrederiksen/botgc-results/internal/logger"
	"github.com/pfrederiksen/botgc-results/internal/metrics"
)

// Metric names recorded by the Scheduler.
const (
	MetricTicks    = "scheduler.ticks"
	MetricFailures = "scheduler.failures"
	MetricDuration = "scheduler.duration"
)

// Refresher recomputes and stores one competition.
type Refresher interface {
	Refresh(ctx context.Context, compID string) error
}

// Scheduler runs a Refresher over a fixed set of competitions on an
// interval. Runs never overlap: a tick that arrives while the previous
// one is still working is rescheduled.
type Scheduler struct {
	refresher Refresher
	interval  time.Duration
	compIDs   []string
	log       *logger.Logger
	metrics   metrics.Sink

	mu     sync.Mutex
	cron   gocron.Scheduler
	job    gocron.Job
	cancel context.CancelFunc
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Scheduler) {
		s.log = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.Sink) Option {
	return func(s *Scheduler) {
		if m != nil {
			s.metrics = m
		}
	}
}

// New creates a Scheduler. It does not start until Start is called.
func New(r Refresher, interval time.Duration, compIDs []string, opts ...Option) (*Scheduler, error) {
	if r == nil {
		return nil, errors.New("refresher is required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("refresh interval must be positive, got %s", interval)
	}
	s := &Scheduler{
		refresher: r,
		interval:  interval,
		compIDs:   append([]string(nil), compIDs...),
		log:       logger.Default().With(logger.Fields{"component": "scheduler"}),
		metrics:   metrics.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start schedules the refresh job and runs it once immediately. The job
// stops when ctx is cancelled or Shutdown is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return errors.New("scheduler already started")
	}

	cron, err := gocron.NewScheduler(gocron.WithLogger(cronLogger{s.log}))
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	jobCtx, cancel := context.WithCancel(ctx)
	job, err := cron.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			if err := s.RefreshAll(jobCtx); err != nil {
				s.log.Error("Refresh run failed", logger.Fields{"compids": s.compIDs}, err)
			}
		}),
		gocron.WithName("refresh-snapshots"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		_ = cron.Shutdown()
		return fmt.Errorf("creating refresh job: %w", err)
	}

	cron.Start()
	s.cron, s.job, s.cancel = cron, job, cancel

	s.log.Info("Scheduler started", logger.Fields{
		"interval": s.interval.String(),
		"compids":  s.compIDs,
	})

	// duration jobs don't fire on start
	if err := job.RunNow(); err != nil {
		return fmt.Errorf("running initial refresh: %w", err)
	}
	return nil
}

// Shutdown stops the job and waits for a running refresh to finish.
func (s *Scheduler) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}
	s.cancel()
	err := s.cron.Shutdown()
	s.cron, s.job, s.cancel = nil, nil, nil
	return err
}

// NextRun reports when the refresh job fires next.
func (s *Scheduler) NextRun() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.job == nil {
		return time.Time{}, errors.New("scheduler not started")
	}
	return s.job.NextRun()
}

// RefreshAll refreshes every configured competition in order. A failing
// competition does not stop the others; all failures are returned joined.
func (s *Scheduler) RefreshAll(ctx context.Context) error {
	start := time.Now()
	s.metrics.IncrCounter(MetricTicks)
	defer func() {
		s.metrics.RecordTiming(MetricDuration, time.Since(start))
	}()

	var errs []error
	for _, id := range s.compIDs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.refresher.Refresh(ctx, id); err != nil {
			s.metrics.IncrCounter(MetricFailures)
			s.log.Warn("Refresh failed", logger.Fields{"compid": id, "error": err.Error()})
			errs = append(errs, fmt.Errorf("competition %s: %w", id, err))
			continue
		}
		s.log.Debug("Refreshed snapshot", logger.Fields{"compid": id})
	}
	return errors.Join(errs...)
}

// cronLogger routes gocron's key/value logging into the structured logger.
type cronLogger struct {
	log *logger.Logger
}

func (c cronLogger) Debug(msg string, args ...any) { c.log.Debug(msg, pairs(args)) }
func (c cronLogger) Info(msg string, args ...any)  { c.log.Debug(msg, pairs(args)) }
func (c cronLogger) Warn(msg string, args ...any)  { c.log.Warn(msg, pairs(args)) }
func (c cronLogger) Error(msg string, args ...any) { c.log.Error(msg, pairs(args), nil) }

func pairs(args []any) logger.Fields {
	if len(args) == 0 {
		return nil
	}
	f := logger.Fields{}
	for i := 0; i+1 < len(args); i += 2 {
		f[fmt.Sprint(args[i])] = args[i+1]
	}
	if len(args)%2 == 1 {
		f["extra"] = args[len(args)-1]
	}
	return f
}
