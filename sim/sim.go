// Package sim drives one replicate: a fixed array of elevation bands on an
// eroding mountain, the lowland reservoir around it, and the lineage tree
// that records speciation as the populations drift apart.
package sim

import (
	"errors"
	"log/slog"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/salamanders/climate"
	"github.com/pthm-cable/salamanders/config"
	"github.com/pthm-cable/salamanders/deme"
	"github.com/pthm-cable/salamanders/organism"
	"github.com/pthm-cable/salamanders/phylo"
	"github.com/pthm-cable/salamanders/random"
	"github.com/pthm-cable/salamanders/telemetry"
)

// ErrRunawayPopulation aborts a run whose band outgrew run.max_deme_population.
var ErrRunawayPopulation = deme.ErrRunawayPopulation

// Summary is the scalar end-of-run record.
type Summary = telemetry.RunSummary

// timeEpsilon lets the last step land exactly on run.end_time.
const timeEpsilon = 1e-3

// Options configures a new simulation.
type Options struct {
	Config  *config.Config
	Climate *climate.Model
	RNG     *random.Stream
	Logger  *slog.Logger // nil = slog.Default()

	// StatsCallback receives every step's statistics (optional).
	StatsCallback func(telemetry.StepStats)
}

// Simulation is one replicate. It is not safe for concurrent use; run
// replicates in parallel by giving each its own Simulation.
type Simulation struct {
	cfg       *config.Config
	climate   *climate.Model
	rng       *random.Stream
	logger    *slog.Logger
	dispersal config.Dispersal

	demes    []*deme.Deme // mountain bands, lowest first
	lowlands *deme.Deme
	all      []*deme.Deme // demes followed by lowlands
	order    []int        // migration visiting order, reshuffled every step

	tree *phylo.Tree

	step    int
	endTime float64
	done    bool

	collector     *telemetry.Collector
	perf          *telemetry.PerfCollector
	bookmarks     *telemetry.BookmarkDetector
	steps         []telemetry.StepStats
	marks         []telemetry.Bookmark
	statsCallback func(telemetry.StepStats)
}

// New builds the mountain and places the founders: run.initial_population
// clones of a genome-zero ancestor whose thermal optimum matches the
// initial band at t=0.
func New(opts Options) (*Simulation, error) {
	cfg := opts.Config
	if cfg == nil || opts.Climate == nil || opts.RNG == nil {
		return nil, errors.New("sim: config, climate and rng are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ComputeDerived()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Simulation{
		cfg:           cfg,
		climate:       opts.Climate,
		rng:           opts.RNG,
		logger:        logger,
		dispersal:     cfg.Dispersal.Type,
		collector:     telemetry.NewCollector(),
		perf:          telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		bookmarks:     telemetry.NewBookmarkDetector(10),
		statsCallback: opts.StatsCallback,
	}

	s.demes = make([]*deme.Deme, cfg.Run.NumBins)
	s.order = make([]int, cfg.Run.NumBins)
	for m := range s.demes {
		s.demes[m] = deme.New(m, float64(m)*cfg.Derived.BinHeightKm, cfg, opts.Climate)
		s.order[m] = m
	}
	s.lowlands = deme.NewLowlands(cfg, opts.Climate)
	s.all = append(append(make([]*deme.Deme, 0, len(s.demes)+1), s.demes...), s.lowlands)

	home := s.demes[cfg.Run.InitialBin]
	eve := organism.Salamander{
		Genome:      0,
		OptimumTemp: home.Temperature(0),
		Lineage:     0,
	}
	for range cfg.Run.InitialPopulation {
		home.Add(eve)
	}
	s.tree = phylo.NewTree(eve, 0)

	return s, nil
}

// Time returns the simulated time of the next step, in Myr since the start.
func (s *Simulation) Time() float64 {
	return float64(s.step) * s.cfg.Run.Timestep
}

// StepCount returns the number of completed steps.
func (s *Simulation) StepCount() int {
	return s.step
}

// Done reports whether the run has reached its end time or died out.
func (s *Simulation) Done() bool {
	return s.done
}

// EndTime is the time of the last step processed, or the time at which the
// population was found extinct.
func (s *Simulation) EndTime() float64 {
	return s.endTime
}

// Tree returns the lineage tree.
func (s *Simulation) Tree() *phylo.Tree {
	return s.tree
}

// Demes returns the mountain bands, lowest first.
func (s *Simulation) Demes() []*deme.Deme {
	return s.demes
}

// Lowlands returns the reservoir.
func (s *Simulation) Lowlands() *deme.Deme {
	return s.lowlands
}

// Steps returns the statistics of every completed step.
func (s *Simulation) Steps() []telemetry.StepStats {
	return s.steps
}

// Bookmarks returns the notable moments detected so far.
func (s *Simulation) Bookmarks() []telemetry.Bookmark {
	return s.marks
}

// Perf returns phase timing over the collector window.
func (s *Simulation) Perf() telemetry.PerfStats {
	return s.perf.Stats()
}

// Alive counts salamanders on the mountain.
func (s *Simulation) Alive() int {
	n := 0
	for _, d := range s.demes {
		n += d.Len()
	}
	return n
}

// TotalAlive counts salamanders on the mountain and in the lowlands.
func (s *Simulation) TotalAlive() int {
	return s.Alive() + s.lowlands.Len()
}

// MeanOptimumTemp is the mean thermal optimum over the mountain population,
// or 0 when the mountain is empty.
func (s *Simulation) MeanOptimumTemp() float64 {
	temps := s.optimumTemps()
	if len(temps) == 0 {
		return 0
	}
	return stat.Mean(temps, nil)
}

// MeanElevation is the population-weighted mean band elevation over the
// mountain, or 0 when the mountain is empty.
func (s *Simulation) MeanElevation() float64 {
	if s.Alive() == 0 {
		return 0
	}
	elev := make([]float64, len(s.demes))
	weights := make([]float64, len(s.demes))
	for i, d := range s.demes {
		elev[i] = d.Elevation()
		weights[i] = float64(d.Len())
	}
	return stat.Mean(elev, weights)
}

// maxOccupiedElevation is the highest band holding anyone.
func (s *Simulation) maxOccupiedElevation() float64 {
	for i := len(s.demes) - 1; i >= 0; i-- {
		if s.demes[i].Len() > 0 {
			return s.demes[i].Elevation()
		}
	}
	return 0
}

func (s *Simulation) optimumTemps() []float64 {
	temps := make([]float64, 0, s.Alive())
	for _, d := range s.demes {
		for _, m := range d.Members() {
			temps = append(temps, m.OptimumTemp)
		}
	}
	return temps
}

// Summary extracts the end-of-run record at EndTime. Trait, population and
// elevation figures cover the mountain; the lowlands are reported apart.
func (s *Simulation) Summary() Summary {
	end := s.endTime
	return Summary{
		Seed:         s.rng.Seed(),
		MutationProb: s.cfg.Genetics.MutationProb,
		TempDriftSD:  s.cfg.Genetics.TempDriftSD,
		SimThresh:    s.cfg.Genetics.SpeciesSimilarity,
		NSpecies:     s.tree.LivingCount(end),
		FitScore:     s.tree.FitScore(end),
		AvgOptTemp:   s.MeanOptimumTemp(),
		NAlive:       s.Alive(),
		NLowlands:    s.lowlands.Len(),
		EndTime:      end,
		AvgElevation: s.MeanElevation(),
		NNodes:       s.tree.Len(),
		Status:       telemetry.StatusOK,
	}
}

// Artifacts bundles what the output manager writes for this run.
func (s *Simulation) Artifacts(label string) telemetry.RunArtifacts {
	return telemetry.RunArtifacts{
		Label:     label,
		Tree:      s.tree,
		Steps:     s.steps,
		Bookmarks: s.marks,
		EndTime:   s.endTime,
		Step:      s.cfg.Run.Timestep,
	}
}
