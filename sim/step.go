package sim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/salamanders/config"
	"github.com/pthm-cable/salamanders/deme"
	"github.com/pthm-cable/salamanders/telemetry"
)

// Run steps until the end time or extinction and returns the summary.
// Cancellation is checked between steps.
func (s *Simulation) Run(ctx context.Context) (Summary, error) {
	for !s.done {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		if err := s.Step(); err != nil {
			return Summary{}, err
		}
	}
	return s.Summary(), nil
}

// Step advances one timestep:
//
//	mortality -> erosion -> breeding -> migration -> lowland exchange -> tree update
//
// A run found with nobody left on the mountain or in the lowlands ends
// before any work is done. An error aborts the run; the state is then
// partially updated and should be discarded.
func (s *Simulation) Step() error {
	if s.done {
		return nil
	}
	t := s.Time()
	if t >= s.cfg.Run.EndTime+timeEpsilon {
		s.done = true
		return nil
	}
	if s.TotalAlive() == 0 {
		s.endTime = t
		s.done = true
		return nil
	}

	if s.cfg.Telemetry.LogProfile && s.logger.Enabled(context.Background(), slog.LevelDebug) {
		s.LogProfile(t)
	}

	s.perf.StartStep()

	s.perf.StartPhase(telemetry.PhaseMortality)
	for _, d := range s.all {
		s.collector.RecordDeaths(d.Mortaliate(t, s.rng))
	}

	s.perf.StartPhase(telemetry.PhaseErosion)
	for _, d := range s.demes {
		s.collector.RecordEroded(d.Erode(t))
	}

	s.perf.StartPhase(telemetry.PhaseBreeding)
	for _, d := range s.all {
		born, err := d.Breed(s.rng)
		s.collector.RecordBirths(born)
		if err != nil {
			return fmt.Errorf("step %d (t=%.3f Myr): %w", s.step, t, err)
		}
	}

	s.perf.StartPhase(telemetry.PhaseMigration)
	s.migrate(t)

	s.perf.StartPhase(telemetry.PhaseLowlands)
	s.exchangeLowlands(t)
	if err := s.checkCeiling(); err != nil {
		return fmt.Errorf("step %d (t=%.3f Myr): %w", s.step, t, err)
	}

	s.perf.StartPhase(telemetry.PhasePhylogeny)
	if err := s.tree.Update(t, s.cfg.Run.Timestep, s.all, s.cfg.Derived.SimilarityBits); err != nil {
		return fmt.Errorf("step %d (t=%.3f Myr): %w", s.step, t, err)
	}
	if s.cfg.Output.SpeciesStats {
		s.tree.RecordStats(t, s.all)
	}

	s.perf.StartPhase(telemetry.PhaseStats)
	s.flushStats(t)

	s.perf.EndStep()

	s.endTime = t
	s.step++
	return nil
}

// migrate offers every band a dispersal pass. The visiting order is
// reshuffled each step so no direction along the mountain is favoured.
func (s *Simulation) migrate(t float64) {
	s.rng.Shuffle(len(s.order), func(i, j int) {
		s.order[i], s.order[j] = s.order[j], s.order[i]
	})

	last := len(s.demes) - 1
	for _, m := range s.order {
		d := s.demes[m]
		if s.dispersal == config.DispersalGlobal {
			s.collector.RecordMigrants(d.DiffuseGlobal(s.demes, t, s.rng))
			continue
		}

		lower, upper := s.neighbours(m, last)
		switch s.dispersal {
		case config.DispersalBetter:
			s.collector.RecordMigrants(d.DiffuseTowardBetter(lower, upper, t, s.rng))
		case config.DispersalLocal:
			s.collector.RecordMigrants(d.DiffuseLocal(lower, upper, t, s.rng))
		}
	}
}

func (s *Simulation) neighbours(m, last int) (lower, upper *deme.Deme) {
	if m > 0 {
		lower = s.demes[m-1]
	}
	if m < last {
		upper = s.demes[m+1]
	}
	return lower, upper
}

// exchangeLowlands swaps members between the lowest band and the reservoir
// in both directions, in a random order.
func (s *Simulation) exchangeLowlands(t float64) {
	lowest := s.demes[0]
	if s.rng.UniformReal(0, 1) >= 0.5 {
		s.collector.RecordExchange(lowest.DiffuseToLowlands(s.lowlands, s.rng))
		s.collector.RecordExchange(s.lowlands.DiffuseFromLowlands(lowest, t, s.rng))
		return
	}
	s.collector.RecordExchange(s.lowlands.DiffuseFromLowlands(lowest, t, s.rng))
	s.collector.RecordExchange(lowest.DiffuseToLowlands(s.lowlands, s.rng))
}

// checkCeiling fails the run if migration or lowland exchange left a band
// above run.max_deme_population.
func (s *Simulation) checkCeiling() error {
	limit := s.cfg.Run.MaxDemePopulation
	for _, d := range s.demes {
		if d.Len() > limit {
			return fmt.Errorf("%w: band %d (%.2f km) holds %d after dispersal, ceiling %d",
				deme.ErrRunawayPopulation, d.Index(), d.Elevation(), d.Len(), limit)
		}
	}
	return nil
}

// flushStats samples the population, records the step and checks for
// bookmarks.
func (s *Simulation) flushStats(t float64) {
	stats := s.collector.Flush(telemetry.Snapshot{
		Step:          s.step,
		Time:          t,
		Alive:         s.Alive(),
		Lowlands:      s.lowlands.Len(),
		Species:       s.tree.LivingCount(t),
		Nodes:         s.tree.Len(),
		OptimumTemps:  s.optimumTemps(),
		MeanElevation: s.MeanElevation(),
		MaxElevation:  s.maxOccupiedElevation(),
	})
	s.steps = append(s.steps, stats)

	if s.statsCallback != nil {
		s.statsCallback(stats)
	}

	for _, bm := range s.bookmarks.Check(stats) {
		bm.LogBookmark(s.logger)
		s.marks = append(s.marks, bm)
	}
}
