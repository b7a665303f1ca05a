// Package results wires the portal, extractor and winner selection into
// the competition results pipeline.
package results

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pfrederiksen/botgc-results/internal/config"
	"github.com/pfrederiksen/botgc-results/internal/leaderboard"
	"github.com/pfrederiksen/botgc-results/internal/logger"
	"github.com/pfrederiksen/botgc-results/internal/metrics"
	"github.com/pfrederiksen/botgc-results/internal/portal"
	"github.com/pfrederiksen/botgc-results/internal/report"
	"github.com/pfrederiksen/botgc-results/internal/startsheet"
	"github.com/pfrederiksen/botgc-results/internal/storage"
	"github.com/pfrederiksen/botgc-results/internal/winners"
	"golang.org/x/sync/errgroup"
)

// Metric names recorded by the Service.
const (
	MetricRuns        = "results.runs"
	MetricErrors      = "results.errors"
	MetricDuration    = "results.duration"
	MetricEntries     = "results.entries"
	MetricWinners     = "results.winners"
	MetricSnapshots   = "results.snapshots_saved"
	MetricLayoutError = "results.layout_errors"
)

// ErrNoStore is returned by Refresh when the Service has no snapshot store.
var ErrNoStore = errors.New("no snapshot store configured")

// Service computes leaderboards and winners for competitions.
type Service struct {
	reports *report.Fetcher
	sheets  *startsheet.Client
	rules   config.Provider
	metrics metrics.Sink
	store   *storage.Storage
	log     *logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics sets the sink for pipeline metrics.
func WithMetrics(m metrics.Sink) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithStore enables Refresh and snapshot saving.
func WithStore(st *storage.Storage) Option {
	return func(s *Service) {
		s.store = st
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// NewService creates a Service reading pages through f and competition
// rules from rules.
func NewService(f portal.Fetcher, rules config.Provider, opts ...Option) *Service {
	s := &Service{
		reports: report.NewFetcher(f),
		sheets:  startsheet.NewClient(f),
		rules:   rules,
		metrics: metrics.Nop{},
		log:     logger.Default().With(logger.Fields{"component": "results"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outcome is the full output of one pipeline run.
type Outcome struct {
	Leaderboard *leaderboard.Result
	Rules       config.Competition
	Winners     []winners.Entry
}

// Leaderboard fetches and extracts the results table for compID with
// start-sheet handicaps joined in.
func (s *Service) Leaderboard(ctx context.Context, compID string, opts report.Options) (*leaderboard.Result, error) {
	res, _, err := s.extract(ctx, compID, opts)
	return res, err
}

// ComputeWinners runs the whole pipeline for compID and returns the
// winners under the competition's matching rules.
func (s *Service) ComputeWinners(ctx context.Context, compID string, opts report.Options) ([]winners.Entry, error) {
	out, err := s.Run(ctx, compID, opts)
	if err != nil {
		return nil, err
	}
	return out.Winners, nil
}

// Run is ComputeWinners keeping the intermediate leaderboard.
func (s *Service) Run(ctx context.Context, compID string, opts report.Options) (*Outcome, error) {
	start := time.Now()
	s.metrics.IncrCounter(MetricRuns)
	defer func() {
		s.metrics.RecordTiming(MetricDuration, time.Since(start))
	}()

	out, err := s.run(ctx, compID, opts)
	if err != nil {
		s.metrics.IncrCounter(MetricErrors)
		var le *leaderboard.LayoutError
		if errors.As(err, &le) {
			s.metrics.IncrCounter(MetricLayoutError)
		}
		s.log.Error("Pipeline failed", logger.Fields{"compid": compID}, err)
		return nil, err
	}

	s.metrics.SetGauge(MetricEntries, float64(len(out.Leaderboard.Entries)))
	s.metrics.SetGauge(MetricWinners, float64(len(out.Winners)))
	s.log.Info("Computed winners", logger.Fields{
		"compid":      compID,
		"competition": out.Leaderboard.Competition,
		"layout":      out.Leaderboard.Variant.String(),
		"entries":     len(out.Leaderboard.Entries),
		"winners":     len(out.Winners),
	})
	return out, nil
}

func (s *Service) run(ctx context.Context, compID string, opts report.Options) (*Outcome, error) {
	res, cs, err := s.extract(ctx, compID, opts)
	if err != nil {
		return nil, err
	}

	selected, err := winners.Select(res.Competition, res.Entries, cs)
	if err != nil {
		return nil, err
	}
	rules, err := cs.Match(res.Competition)
	if err != nil {
		return nil, err
	}

	return &Outcome{Leaderboard: res, Rules: rules, Winners: selected}, nil
}

// extract fetches the results page, start sheet and rules concurrently
// and then runs the extractor.
//
// A details report without a caller-chosen ordering takes it from the
// rules: they load first so the document-level grossOrNet picks the
// page, and the page is fetched again if the matched rule asks for the
// other ordering.
func (s *Service) extract(ctx context.Context, compID string, opts report.Options) (*leaderboard.Result, *config.Competitions, error) {
	if compID == "" {
		return nil, nil, errors.New("competition id is required")
	}

	var (
		page    []byte
		records []startsheet.Record
		cs      *config.Competitions
	)

	fromRules := opts.Mode == report.ModeDetails && opts.GrossOrNet == ""
	if fromRules {
		var err error
		if cs, err = s.loadRules(ctx); err != nil {
			return nil, nil, err
		}
		opts.GrossOrNet = report.GrossOrNet(cs.GrossOrNetOrDefault())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page, err = s.reports.Fetch(gctx, compID, opts)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = s.sheets.Fetch(gctx, compID)
		return err
	})
	if cs == nil {
		g.Go(func() error {
			var err error
			cs, err = s.loadRules(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	x := leaderboard.NewExtractor(
		leaderboard.WithBaseline(cs.Baseline),
		leaderboard.WithLogger(s.log.With(logger.Fields{"component": "leaderboard"})),
	)
	lookup := startsheet.NewLookup(records)
	res, err := x.ExtractBytes(page, lookup)
	if err != nil {
		return nil, nil, err
	}

	if fromRules {
		rule, err := cs.Match(res.Competition)
		if err == nil && rule.GrossOrNet != "" {
			if want := report.GrossOrNet(rule.GrossOrNetOrDefault()); want != opts.GrossOrNet {
				s.log.Debug("Refetching details report", logger.Fields{
					"compid":     compID,
					"grossOrNet": string(want),
				})
				opts.GrossOrNet = want
				if page, err = s.reports.Fetch(ctx, compID, opts); err != nil {
					return nil, nil, err
				}
				if res, err = x.ExtractBytes(page, lookup); err != nil {
					return nil, nil, err
				}
			}
		}
	}
	return res, cs, nil
}

func (s *Service) loadRules(ctx context.Context) (*config.Competitions, error) {
	cs, err := s.rules.Competitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading competition rules: %w", err)
	}
	return cs, nil
}

// StartSheet fetches the start-sheet records for compID.
func (s *Service) StartSheet(ctx context.Context, compID string) ([]startsheet.Record, error) {
	if compID == "" {
		return nil, errors.New("competition id is required")
	}
	return s.sheets.Fetch(ctx, compID)
}

// Snapshot runs the pipeline and packages the result for storage.
func (s *Service) Snapshot(ctx context.Context, compID string, opts report.Options) (*storage.Snapshot, error) {
	out, err := s.Run(ctx, compID, opts)
	if err != nil {
		return nil, err
	}
	return &storage.Snapshot{
		CompID:      compID,
		Competition: out.Leaderboard.Competition,
		Layout:      out.Leaderboard.Variant.String(),
		Leaderboard: out.Leaderboard.Entries,
		Winners:     out.Winners,
	}, nil
}

// Refresh recomputes and stores the snapshot for compID.
func (s *Service) Refresh(ctx context.Context, compID string) error {
	if s.store == nil {
		return ErrNoStore
	}
	snap, err := s.Snapshot(ctx, compID, report.Options{})
	if err != nil {
		return err
	}
	if err := s.store.Save(snap); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	s.metrics.IncrCounter(MetricSnapshots)
	return nil
}

// Store returns the snapshot store, or nil.
func (s *Service) Store() *storage.Storage {
	return s.store
}
