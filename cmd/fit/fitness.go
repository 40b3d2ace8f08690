package main

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/pthm-cable/salamanders/climate"
	"github.com/pthm-cable/salamanders/config"
	"github.com/pthm-cable/salamanders/random"
	"github.com/pthm-cable/salamanders/sim"
)

// failedPenalty is worse than any reachable fit score (at most one per ECDF bin).
const failedPenalty = 2 * 100

// FitnessEvaluator runs full simulations and scores them against the
// reference branch-distance ECDF.
type FitnessEvaluator struct {
	params     *ParamVector
	seeds      []uint64
	baseConfig *config.Config
	climate    *climate.Model

	mu          sync.Mutex
	bestFitness float64
	bestSummary sim.Summary
	lastSpecies float64 // mean living species from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, seeds []uint64, baseCfg *config.Config, model *climate.Model) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		seeds:       seeds,
		baseConfig:  baseCfg,
		climate:     model,
		bestFitness: math.Inf(1),
	}
}

// BestSummary returns the lowest-scoring seed run seen so far.
func (fe *FitnessEvaluator) BestSummary() sim.Summary {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestSummary
}

// LastSpecies returns the mean living species of the most recent evaluation.
func (fe *FitnessEvaluator) LastSpecies() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastSpecies
}

type seedResult struct {
	fitness float64
	summary sim.Summary
}

// Evaluate computes fitness for a parameter vector (lower = better): the
// fit score averaged over seeds. Runs that abort or leave no living species
// score failedPenalty.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s uint64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(x, s)
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalSpecies float64
	bestSeed := seedResult{fitness: math.Inf(1)}
	for _, r := range results {
		totalFitness += r.fitness
		totalSpecies += float64(r.summary.NSpecies)
		if r.fitness < bestSeed.fitness {
			bestSeed = r
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestSummary = bestSeed.summary
	}
	fe.lastSpecies = totalSpecies / n
	fe.mu.Unlock()

	return avgFitness
}

func (fe *FitnessEvaluator) runSimulation(x []float64, seed uint64) seedResult {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)

	s, err := sim.New(sim.Options{
		Config:  cfg,
		Climate: fe.climate,
		RNG:     random.New(seed),
		Logger:  slog.Default().With("seed", seed),
	})
	if err != nil {
		slog.Warn("fit run rejected", "seed", seed, "error", err)
		return seedResult{fitness: failedPenalty}
	}

	sum, err := s.Run(context.Background())
	if err != nil {
		slog.Debug("fit run aborted", "seed", seed, "error", err)
		return seedResult{fitness: failedPenalty}
	}
	return seedResult{fitness: computeFitness(sum), summary: sum}
}

func computeFitness(sum sim.Summary) float64 {
	if sum.NSpecies == 0 {
		return failedPenalty
	}
	return sum.FitScore
}
