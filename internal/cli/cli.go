package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pfrederiksen/botgc-results/internal/calendar"
	"github.com/pfrederiksen/botgc-results/internal/competitions"
	"github.com/pfrederiksen/botgc-results/internal/config"
	"github.com/pfrederiksen/botgc-results/internal/export"
	"github.com/pfrederiksen/botgc-results/internal/ksw"
	"github.com/pfrederiksen/botgc-results/internal/logger"
	"github.com/pfrederiksen/botgc-results/internal/metrics"
	"github.com/pfrederiksen/botgc-results/internal/portal"
	"github.com/pfrederiksen/botgc-results/internal/report"
	"github.com/pfrederiksen/botgc-results/internal/results"
	"github.com/pfrederiksen/botgc-results/internal/scheduler"
	"github.com/pfrederiksen/botgc-results/internal/server"
	"github.com/pfrederiksen/botgc-results/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

const (
	ExitSuccess   = 0
	ExitError     = 1
	ExitNoResults = 2
)

// errNoResults makes the process exit with ExitNoResults.
var errNoResults = errors.New("no qualifying results")

// options holds the flags shared by the subcommands.
type options struct {
	configPath string
	verbose    bool

	compID     string
	mode       string
	grossOrNet string
	format     string
	output     string
	save       bool
	sort       string
	date       string
	compIDs    []string
}

// app is the wiring built from the loaded configuration.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	session *portal.Session
	metrics metrics.Sink
	store   *storage.Storage
	service *results.Service
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "botgc-results",
		Short: "Competition results and winners from the BOTGC members' portal",
		Long: `A CLI tool to read competition leaderboards from the BOTGC members' portal,
join start-sheet handicaps and pick prize winners under each competition's rules.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "botgc-results.yaml", "Path to the YAML config file")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(
		newWinnersCmd(opts),
		newLeaderboardCmd(opts),
		newStartSheetCmd(opts),
		newCompetitionsCmd(opts),
		newKSWCmd(opts),
		newRefreshCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

func addReportFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().StringVar(&opts.compID, "compid", "", "Competition id (required)")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "Report mode: leaderboard, live, summary or details")
	cmd.Flags().StringVar(&opts.grossOrNet, "gross-or-net", "", "Ordering of the details report: gross or net (default from the competition rules)")
	_ = cmd.MarkFlagRequired("compid")
}

func addOutputFlags(cmd *cobra.Command, opts *options, formats string) {
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: "+formats)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write output to a file instead of stdout")
}

func newWinnersCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "winners",
		Short: "Compute the prize winners of a competition",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(opts.format, FormatText, FormatJSON, FormatXLSX)
			if err != nil {
				return err
			}
			ropts, err := opts.reportOptions()
			if err != nil {
				return err
			}
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}

			snap, err := a.service.Snapshot(cmd.Context(), opts.compID, ropts)
			if err != nil {
				return fmt.Errorf("computing winners: %w", err)
			}
			if opts.save {
				if err := a.store.Save(snap); err != nil {
					return fmt.Errorf("saving snapshot: %w", err)
				}
				a.log.Info("Saved snapshot", logger.Fields{"compid": snap.CompID, "dir": a.store.Dir()})
			}

			err = withOutput(cmd, opts.output, format, func(w io.Writer) error {
				switch format {
				case FormatJSON:
					return writeJSON(w, snap.Winners)
				case FormatXLSX:
					return export.WriteSnapshot(w, snap)
				default:
					return writeWinnersText(w, snap, opts.verbose)
				}
			})
			if err != nil {
				return err
			}
			if len(snap.Winners) == 0 {
				return errNoResults
			}
			return nil
		},
	}
	addReportFlags(cmd, opts)
	addOutputFlags(cmd, opts, "text, json or xlsx")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Store the result as a snapshot in the data directory")
	return cmd
}

func newLeaderboardCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the extracted leaderboard of a competition",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(opts.format, FormatText, FormatJSON, FormatXLSX)
			if err != nil {
				return err
			}
			order, err := parseSortOrder(opts.sort)
			if err != nil {
				return err
			}
			ropts, err := opts.reportOptions()
			if err != nil {
				return err
			}
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}

			res, err := a.service.Leaderboard(cmd.Context(), opts.compID, ropts)
			if err != nil {
				return fmt.Errorf("extracting leaderboard: %w", err)
			}
			sortEntries(res.Entries, order)

			return withOutput(cmd, opts.output, format, func(w io.Writer) error {
				switch format {
				case FormatJSON:
					return writeJSON(w, res)
				case FormatXLSX:
					return export.WriteLeaderboard(w, res)
				default:
					return writeLeaderboardText(w, res, opts.verbose)
				}
			})
		},
	}
	addReportFlags(cmd, opts)
	addOutputFlags(cmd, opts, "text, json or xlsx")
	cmd.Flags().StringVar(&opts.sort, "sort", "position", "Sort order: position, name or handicap")
	return cmd
}

func newStartSheetCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "startsheet",
		Short: "Show the start-sheet handicaps of a competition",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(opts.format, FormatText, FormatJSON, FormatXLSX)
			if err != nil {
				return err
			}
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}

			records, err := a.service.StartSheet(cmd.Context(), opts.compID)
			if err != nil {
				return fmt.Errorf("fetching start sheet: %w", err)
			}

			return withOutput(cmd, opts.output, format, func(w io.Writer) error {
				switch format {
				case FormatJSON:
					return writeJSON(w, records)
				case FormatXLSX:
					return export.WriteStartSheet(w, "Start sheet "+opts.compID, records)
				default:
					return writeStartSheetText(w, records)
				}
			})
		},
	}
	cmd.Flags().StringVar(&opts.compID, "compid", "", "Competition id (required)")
	_ = cmd.MarkFlagRequired("compid")
	addOutputFlags(cmd, opts, "text, json or xlsx")
	return cmd
}

func newCompetitionsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "competitions",
		Short: "List the competitions played on a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(opts.format, FormatText, FormatJSON, FormatICS)
			if err != nil {
				return err
			}
			day := time.Now()
			if opts.date != "" {
				if day, err = time.Parse("2006-01-02", opts.date); err != nil {
					return fmt.Errorf("invalid date: %s (must be YYYY-MM-DD)", opts.date)
				}
			}
			day = competitions.Day(day)

			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}

			comps, err := competitions.NewClient(a.session).OnDate(cmd.Context(), day)
			if err != nil {
				return fmt.Errorf("listing competitions: %w", err)
			}

			return withOutput(cmd, opts.output, format, func(w io.Writer) error {
				switch format {
				case FormatJSON:
					return writeJSON(w, comps)
				case FormatICS:
					_, err := io.WriteString(w, calendar.GenerateICS(comps, day, calendar.Options{
						Name:    "BOTGC competitions " + day.Format("2 January 2006"),
						BaseURL: a.cfg.Portal.BaseURL,
					}))
					return err
				default:
					return writeCompetitionsText(w, comps, day.Format("Monday 2 January 2006"), opts.verbose)
				}
			})
		},
	}
	cmd.Flags().StringVar(&opts.date, "date", "", "Day to list, YYYY-MM-DD (default today)")
	addOutputFlags(cmd, opts, "text, json or ics")
	return cmd
}

func newKSWCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ksw",
		Short: "Show the KSW results table",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(opts.format, FormatText, FormatJSON)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			records, err := ksw.NewSource(cfg.KSW.Source).Results(cmd.Context())
			if err != nil {
				return err
			}

			return withOutput(cmd, opts.output, format, func(w io.Writer) error {
				if format == FormatJSON {
					return writeJSON(w, records)
				}
				return writeKSWText(w, records)
			})
		},
	}
	addOutputFlags(cmd, opts, "text or json")
	return cmd
}

func newRefreshCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Recompute and store snapshots once",
		Long: `Recompute and store the snapshot of each competition given with --compid,
or of refresh.compids from the config file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			ids := opts.compIDs
			if len(ids) == 0 {
				ids = a.cfg.Refresh.CompIDs
			}
			if len(ids) == 0 {
				return errors.New("no competitions to refresh: pass --compid or set refresh.compids")
			}

			s, err := scheduler.New(a.service, time.Minute, ids,
				scheduler.WithLogger(a.log.With(logger.Fields{"component": "scheduler"})),
				scheduler.WithMetrics(a.metrics),
			)
			if err != nil {
				return err
			}
			if err := s.RefreshAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Refreshed %d snapshots in %s\n", len(ids), a.store.Dir())
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&opts.compIDs, "compid", nil, "Competition ids to refresh (repeatable)")
	return cmd
}

func newServeCmd(opts *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and run the scheduled refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := prometheus.NewRegistry()
			prom := metrics.NewPrometheus(registry)
			a, err := newApp(cmd, opts, prom)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if a.cfg.Refresh.Interval > 0 && len(a.cfg.Refresh.CompIDs) > 0 {
				s, err := scheduler.New(a.service, a.cfg.Refresh.Interval, a.cfg.Refresh.CompIDs,
					scheduler.WithLogger(a.log.With(logger.Fields{"component": "scheduler"})),
					scheduler.WithMetrics(prom),
				)
				if err != nil {
					return err
				}
				if err := s.Start(ctx); err != nil {
					return err
				}
				defer s.Shutdown()
			}

			srvOpts := []server.Option{
				server.WithListing(competitions.NewClient(a.session)),
				server.WithStore(a.store),
				server.WithMetricsHandler(prom.Handler()),
				server.WithLogger(a.log.With(logger.Fields{"component": "server"})),
			}
			if a.cfg.KSW.Source != "" {
				srvOpts = append(srvOpts, server.WithKSW(ksw.NewSource(a.cfg.KSW.Source)))
			}

			return server.New(a.service, srvOpts...).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default server.addr from config)")
	return cmd
}

func (o *options) reportOptions() (report.Options, error) {
	mode, err := report.ParseMode(o.mode)
	if err != nil {
		return report.Options{}, err
	}
	gn, err := report.ParseGrossOrNet(o.grossOrNet)
	if err != nil {
		return report.Options{}, err
	}
	return report.Options{Mode: mode, GrossOrNet: gn}, nil
}

// loadConfig reads the config file and sets up the default logger on
// stderr.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if opts.verbose {
		level = logger.LevelDebug
	}
	logger.SetDefault(logger.New(level, cmd.ErrOrStderr()))
	return cfg, nil
}

func newApp(cmd *cobra.Command, opts *options, sink ...metrics.Sink) (*app, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}
	log := logger.Default()

	var m metrics.Sink = metrics.Nop{}
	if len(sink) > 0 {
		m = sink[0]
	}

	limit := rate.Inf
	if cfg.Portal.Interval > 0 {
		limit = rate.Every(cfg.Portal.Interval)
	}
	session, err := portal.NewSession(cfg.Portal.BaseURL,
		portal.Credentials{MemberID: cfg.Portal.MemberID, PIN: cfg.Portal.PIN},
		portal.WithRateLimit(limit, 1),
		portal.WithRetries(cfg.Portal.MaxRetries, 500*time.Millisecond),
		portal.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	store, err := storage.New(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	log.Debug("Configuration loaded", logger.Fields{
		"portal":       cfg.Portal.BaseURL,
		"competitions": cfg.Competitions.Source,
		"data_dir":     store.Dir(),
	})

	service := results.NewService(session, config.NewSource(cfg.Competitions.Source),
		results.WithMetrics(m),
		results.WithStore(store),
		results.WithLogger(log.With(logger.Fields{"component": "results"})),
	)

	return &app{
		cfg:     cfg,
		log:     log,
		session: session,
		metrics: m,
		store:   store,
		service: service,
	}, nil
}

// withOutput runs write against stdout or the --output file. xlsx is
// binary, so it needs a file.
func withOutput(cmd *cobra.Command, path string, format OutputFormat, write func(io.Writer) error) error {
	if path == "" {
		if format == FormatXLSX {
			return errors.New("--output is required for xlsx")
		}
		return write(cmd.OutOrStdout())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing output: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
	return nil
}

// Execute runs the CLI
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, errNoResults):
		return ExitNoResults
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitError
	}
}
