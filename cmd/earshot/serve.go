package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MrWong99/earshot/internal/api"
	"github.com/MrWong99/earshot/internal/config"
	"github.com/MrWong99/earshot/internal/events"
	"github.com/MrWong99/earshot/internal/health"
	"github.com/MrWong99/earshot/internal/observe"
	"github.com/MrWong99/earshot/internal/service"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	var watchInterval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API",
		Long: `Serve the HTTP API, the transcript websocket and the Prometheus metrics
endpoint. The configuration file is watched; changes to the lexicon, the
vocabulary, the log level and the batch limits apply without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cmd, v, watchInterval)
		},
	}
	cmd.Flags().DurationVar(&watchInterval, "watch-interval", 5*time.Second, "config file polling interval (0 disables watching)")
	return cmd
}

func serve(ctx context.Context, cmd *cobra.Command, v *viper.Viper, watchInterval time.Duration) error {
	cfg, path, err := loadConfig(v)
	if err != nil {
		return err
	}

	level := new(slog.LevelVar)
	level.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(newLogger(cmd.ErrOrStderr(), level))

	printStartupSummary(cmd.OutOrStdout(), cfg, path)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		Registerer:     reg,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Events ────────────────────────────────────────────────────────────────
	var (
		publisher service.Publisher = events.NopPublisher{}
		checkers  []health.Checker
	)
	if cfg.Events.NATSURL != "" {
		nats, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.Subject)
		if err != nil {
			return err
		}
		publisher = nats
		checkers = append(checkers, health.Checker{Name: "events", Check: nats.Check})
	}

	// ── Service and API ───────────────────────────────────────────────────────
	svc, err := service.New(cfg,
		service.WithPublisher(publisher),
		service.WithMetrics(metrics),
	)
	if err != nil {
		_ = publisher.Close()
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			slog.Warn("service close error", "err", err)
		}
	}()
	checkers = append(checkers, health.Checker{Name: "lexicon", Check: svc.CheckLexicon})

	srv := api.New(cfg, svc,
		api.WithMetrics(metrics),
		api.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
		api.WithReadiness(checkers...),
	)

	// ── Config hot reload ─────────────────────────────────────────────────────
	if path != "" && watchInterval > 0 {
		r := &reloader{v: v, level: level, svc: svc, limits: srv}
		w, err := config.NewWatcher(path, r.apply, config.WithInterval(watchInterval))
		if err != nil {
			return err
		}
		defer w.Stop()
	}

	slog.Info("earshot ready", "listen_addr", cfg.Server.ListenAddr)
	if err := srv.ListenAndServe(ctx, cfg.Server.ListenAddr); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("http server: %w", err)
	}
	slog.Info("goodbye")
	return nil
}

type limitSetter interface {
	SetLimits(maxBatch, concurrency int)
}

type analyzerReloader interface {
	Reload(cfg *config.Config) error
}

// reloader applies a changed config file to the running server.
type reloader struct {
	v      *viper.Viper
	level  *slog.LevelVar
	svc    analyzerReloader
	limits limitSetter
}

// apply is the watcher callback. Overrides are applied to both sides so an
// overridden key never shows up as changed.
func (r *reloader) apply(c config.Change) {
	prev, next := *c.Old, *c.New
	applyOverrides(r.v, &prev)
	applyOverrides(r.v, &next)
	d := config.Diff(&prev, &next)

	if d.LogLevelChanged {
		r.level.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.AnalyzerChanged || c.LexiconChanged {
		if err := r.svc.Reload(&next); err != nil {
			slog.Error("analyzer reload failed, keeping the current one", "err", err)
		}
	}
	if d.LimitsChanged {
		r.limits.SetLimits(next.Analysis.MaxBatch, next.Analysis.Concurrency)
		slog.Info("batch limits changed",
			"max_batch", next.Analysis.MaxBatch,
			"concurrency", next.Analysis.Concurrency,
		)
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes need a restart to apply", "keys", d.RestartRequired)
	}
}
