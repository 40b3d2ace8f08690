// Package batch runs independent replicates in parallel. Each replicate
// owns its configuration copy, random stream, bands and lineage tree, so
// nothing mutable is shared between workers.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/salamanders/climate"
	"github.com/pthm-cable/salamanders/config"
	"github.com/pthm-cable/salamanders/phylo"
	"github.com/pthm-cable/salamanders/random"
	"github.com/pthm-cable/salamanders/sim"
	"github.com/pthm-cable/salamanders/telemetry"
)

// Store persists finished replicates.
type Store interface {
	SaveRun(ctx context.Context, sum telemetry.RunSummary, nodes []phylo.Record) error
}

// Options configures a Runner. Output, Metrics and Store are optional.
type Options struct {
	Config  *config.Config
	Climate *climate.Model
	Output  *telemetry.OutputManager
	Metrics *telemetry.Metrics
	Store   Store
	Logger  *slog.Logger
}

// Result is one replicate's outcome. Err is set when the run was aborted;
// Summary then carries status "failed" and the drawn parameters.
type Result struct {
	Summary telemetry.RunSummary
	Err     error
}

// Runner executes cfg.Batch.Replicates runs with at most cfg.Batch.Workers
// in flight.
type Runner struct {
	cfg      *config.Config
	climate  *climate.Model
	output   *telemetry.OutputManager
	metrics  *telemetry.Metrics
	store    Store
	logger   *slog.Logger
	baseSeed uint64
	workers  int
}

func NewRunner(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	seed := opts.Config.Run.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	workers := opts.Config.Batch.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &Runner{
		cfg:      opts.Config,
		climate:  opts.Climate,
		output:   opts.Output,
		metrics:  opts.Metrics,
		store:    opts.Store,
		logger:   logger,
		baseSeed: seed,
		workers:  workers,
	}
}

// BaseSeed is the seed of replicate 0; replicate i uses BaseSeed()+i.
func (r *Runner) BaseSeed() uint64 {
	return r.baseSeed
}

// Run executes every replicate and returns the results in replicate order.
// A failed replicate is logged and skipped; only cancellation of ctx makes
// Run return an error.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	n := r.cfg.Batch.Replicates
	results := make([]Result, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	r.logger.Info("batch starting",
		"replicates", n,
		"workers", r.workers,
		"base_seed", r.baseSeed,
	)

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = r.runOne(gctx, i)
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (r *Runner) runOne(ctx context.Context, i int) Result {
	cfg := r.cfg.Clone()
	seed := r.baseSeed + uint64(i)
	rng := random.New(seed)
	DrawParams(cfg, rng)
	cfg.ComputeDerived()

	runID := uuid.NewString()
	logger := r.logger.With("run", i, "run_id", runID)

	r.metrics.RunStarted()
	start := time.Now()

	s, err := sim.New(sim.Options{Config: cfg, Climate: r.climate, RNG: rng, Logger: logger})
	var sum telemetry.RunSummary
	if err == nil {
		sum, err = s.Run(ctx)
	}
	if err != nil {
		sum = telemetry.RunSummary{
			Seed:         seed,
			MutationProb: cfg.Genetics.MutationProb,
			TempDriftSD:  cfg.Genetics.TempDriftSD,
			SimThresh:    cfg.Genetics.SpeciesSimilarity,
			Status:       telemetry.StatusFailed,
			Error:        err.Error(),
		}
	}
	sum.Run = i
	sum.RunID = runID
	elapsed := time.Since(start)
	r.metrics.ObserveRun(sum, elapsed)

	if err != nil {
		logger.Warn("replicate failed, skipping", "error", err)
	} else {
		logger.Info("replicate finished", "summary", sum, "elapsed", elapsed.Round(time.Millisecond))
		logger.Debug("replicate perf", "perf", s.Perf())
	}

	r.persist(ctx, logger, s, sum, err == nil)
	return Result{Summary: sum, Err: err}
}

// persist writes a replicate's outputs. Write failures are logged and do
// not fail the replicate.
func (r *Runner) persist(ctx context.Context, logger *slog.Logger, s *sim.Simulation, sum telemetry.RunSummary, ok bool) {
	if err := r.output.WriteSummaries(sum); err != nil {
		logger.Error("failed to write summary", "error", err)
	}

	var nodes []phylo.Record
	if ok {
		if err := r.output.WriteRun(s.Artifacts(fmt.Sprintf("run_%04d", sum.Run))); err != nil {
			logger.Error("failed to write run files", "error", err)
		}
		if err := r.output.WritePerf(s.Perf(), sum.Run); err != nil {
			logger.Error("failed to write perf", "error", err)
		}
		nodes = s.Tree().Records()
	}

	if r.store != nil {
		if err := r.store.SaveRun(ctx, sum, nodes); err != nil {
			logger.Error("failed to store run", "error", err)
		}
	}
}

// DrawParams replaces mutation probability, drift SD and similarity with
// uniform draws from their active batch.vary ranges.
func DrawParams(cfg *config.Config, rng *random.Stream) {
	v := cfg.Batch.Vary
	if v.MutationProb.Active() {
		cfg.Genetics.MutationProb = rng.UniformReal(v.MutationProb.Min, v.MutationProb.Max)
	}
	if v.TempDriftSD.Active() {
		cfg.Genetics.TempDriftSD = rng.UniformReal(v.TempDriftSD.Min, v.TempDriftSD.Max)
	}
	if v.SpeciesSimilarity.Active() {
		cfg.Genetics.SpeciesSimilarity = rng.UniformReal(v.SpeciesSimilarity.Min, v.SpeciesSimilarity.Max)
	}
}
