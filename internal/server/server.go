// Package server exposes the results pipeline as a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pfrederiksen/botgc-results/internal/competitions"
	"github.com/pfrederiksen/botgc-results/internal/ksw"
	"github.com/pfrederiksen/botgc-results/internal/leaderboard"
	"github.com/pfrederiksen/botgc-results/internal/logger"
	"github.com/pfrederiksen/botgc-results/internal/report"
	"github.com/pfrederiksen/botgc-results/internal/startsheet"
	"github.com/pfrederiksen/botgc-results/internal/storage"
	"github.com/pfrederiksen/botgc-results/internal/winners"
)

// Results is the pipeline behind the competition endpoints.
// *results.Service satisfies it.
type Results interface {
	ComputeWinners(ctx context.Context, compID string, opts report.Options) ([]winners.Entry, error)
	Leaderboard(ctx context.Context, compID string, opts report.Options) (*leaderboard.Result, error)
	StartSheet(ctx context.Context, compID string) ([]startsheet.Record, error)
}

// Listing finds the competitions played on a day.
type Listing interface {
	OnDate(ctx context.Context, date time.Time) ([]competitions.Competition, error)
}

// KSWSource loads the KSW results table.
type KSWSource interface {
	Results(ctx context.Context) ([]ksw.Record, error)
}

// Server routes API requests.
type Server struct {
	results Results
	listing Listing
	ksw     KSWSource
	store   *storage.Storage
	metrics http.Handler
	log     *logger.Logger
	now     func() time.Time
	timeout time.Duration

	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithListing enables /api/competitions and /api/competitions.ics.
func WithListing(l Listing) Option {
	return func(s *Server) { s.listing = l }
}

// WithKSW enables /api/ksw_result.
func WithKSW(k KSWSource) Option {
	return func(s *Server) { s.ksw = k }
}

// WithStore enables /api/snapshots.
func WithStore(st *storage.Storage) Option {
	return func(s *Server) { s.store = st }
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithClock sets the clock used for the default listing date.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithTimeout bounds each request. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// New creates a Server over res.
func New(res Results, opts ...Option) *Server {
	s := &Server{
		results: res,
		log:     logger.Default().With(logger.Fields{"component": "server"}),
		now:     time.Now,
		timeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.timeout > 0 {
		r.Use(middleware.Timeout(s.timeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/competition_result", s.handleCompetitionResult)
		r.Post("/competition_result", s.handleCompetitionResult)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Post("/leaderboard", s.handleLeaderboard)
		r.Get("/startsheet", s.handleStartSheet)
		r.Post("/startsheet", s.handleStartSheet)
		r.Get("/competitions", s.handleCompetitions)
		r.Get("/competitions.ics", s.handleCalendar)
		r.Get("/ksw_result", s.handleKSW)
		r.Get("/snapshots", s.handleSnapshotList)
		r.Get("/snapshots/{compid}", s.handleSnapshot)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, kindNotFound, "no such endpoint")
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", logger.Fields{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("HTTP server shutting down", nil)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		fields := logger.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if id := middleware.GetReqID(r.Context()); id != "" {
			fields["request_id"] = id
		}
		if ww.Status() >= http.StatusInternalServerError {
			s.log.Warn("Request failed", fields)
			return
		}
		s.log.Debug("Request served", fields)
	})
}
