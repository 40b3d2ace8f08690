package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/salamanders/batch"
	"github.com/pthm-cable/salamanders/climate"
	"github.com/pthm-cable/salamanders/config"
	"github.com/pthm-cable/salamanders/storage"
	"github.com/pthm-cable/salamanders/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV, tree files and config snapshot (overrides output.dir)")
	seed := flag.Uint64("seed", 0, "Base RNG seed, replicate i uses seed+i (0 = config, then time-based)")
	replicates := flag.Int("replicates", 0, "Number of replicate runs (0 = use config)")
	workers := flag.Int("workers", -1, "Concurrent replicates (0 = GOMAXPROCS, -1 = use config)")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (overrides telemetry.metrics_addr)")
	sqlitePath := flag.String("sqlite", "", "SQLite database for run results (overrides output.sqlite_path)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")

	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		slog.Error("invalid log level", "level", *logLevel, "error", err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*configPath, overrides{
		outputDir:   *outputDir,
		seed:        *seed,
		replicates:  *replicates,
		workers:     *workers,
		metricsAddr: *metricsAddr,
		sqlitePath:  *sqlitePath,
	}); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

type overrides struct {
	outputDir   string
	seed        uint64
	replicates  int
	workers     int
	metricsAddr string
	sqlitePath  string
}

func (o overrides) apply(cfg *config.Config) {
	if o.outputDir != "" {
		cfg.Output.Dir = o.outputDir
	}
	if o.seed != 0 {
		cfg.Run.Seed = o.seed
	}
	if o.replicates > 0 {
		cfg.Batch.Replicates = o.replicates
	}
	if o.workers >= 0 {
		cfg.Batch.Workers = o.workers
	}
	if o.metricsAddr != "" {
		cfg.Telemetry.MetricsAddr = o.metricsAddr
	}
	if o.sqlitePath != "" {
		cfg.Output.SQLitePath = o.sqlitePath
	}
}

func run(configPath string, o overrides) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	o.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	series, err := climate.SeriesFromConfig(cfg.Temperature)
	if err != nil {
		return err
	}
	model := climate.NewModel(cfg.Mountain, series)

	om, err := telemetry.NewOutputManager(cfg.Output.Dir, cfg.Output)
	if err != nil {
		return err
	}
	defer om.Close()
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	var store batch.Store
	if cfg.Output.SQLitePath != "" {
		st := storage.NewSQLiteStore(cfg.Output.SQLitePath)
		if err := st.Init(ctx); err != nil {
			return err
		}
		defer st.Close()
		store = st
	}

	metrics := telemetry.NewMetrics()
	if cfg.Telemetry.MetricsAddr != "" {
		srv := serveMetrics(cfg.Telemetry.MetricsAddr, metrics)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	runner := batch.NewRunner(batch.Options{
		Config:  cfg,
		Climate: model,
		Output:  om,
		Metrics: metrics,
		Store:   store,
	})

	start := time.Now()
	results, err := runner.Run(ctx)

	var ok, failed int
	for _, r := range results {
		switch r.Summary.Status {
		case telemetry.StatusOK:
			ok++
		case telemetry.StatusFailed:
			failed++
		}
	}
	slog.Info("batch finished",
		"ok", ok,
		"failed", failed,
		"base_seed", runner.BaseSeed(),
		"elapsed", time.Since(start).Round(time.Millisecond),
		"output_dir", om.Dir(),
	)
	return err
}

func serveMetrics(addr string, m *telemetry.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "error", err)
		}
	}()
	slog.Info("serving metrics", "addr", addr)
	return srv
}
