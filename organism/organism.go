// Package organism defines the individual salamander: its neutral genome,
// its thermal optimum and the lineage it is recorded under.
package organism

import (
	"math/bits"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pthm-cable/salamanders/config"
	"github.com/pthm-cable/salamanders/random"
)

// Genome is a neutral marker used only to decide lineage membership.
type Genome uint64

// Agreement counts bit positions where both genomes hold the same value.
// Matching zeros count as well as matching ones.
func (g Genome) Agreement(other Genome) int {
	return config.GenomeBits - bits.OnesCount64(uint64(g^other))
}

// IsSimilar reports whether more than threshold bits agree.
func (g Genome) IsSimilar(other Genome, threshold int) bool {
	return g.Agreement(other) > threshold
}

// Salamander is one living agent.
type Salamander struct {
	Genome      Genome
	OptimumTemp float64 // degC
	Lineage     int     // index into the lineage tree
}

// IsSimilar compares genomes with another salamander.
func (s Salamander) IsSimilar(other Salamander, threshold int) bool {
	return s.Genome.IsSimilar(other.Genome, threshold)
}

// Reproduce produces one offspring with partner. Both parents must be in
// the same lineage; the caller checks that.
//
// The optimum is the parents' mean plus Gaussian drift. The genome starts as
// this parent's and every locus where the parents disagree is redrawn from
// either parent with equal odds, then each bit flips with the mutation
// probability.
func (s Salamander) Reproduce(partner Salamander, g config.GeneticsConfig, rng *random.Stream) Salamander {
	child := Salamander{
		Lineage:     s.Lineage,
		OptimumTemp: (s.OptimumTemp+partner.OptimumTemp)/2 + rng.Normal(0, g.TempDriftSD),
	}

	differ := uint64(s.Genome ^ partner.Genome)
	genome := uint64(s.Genome) ^ (differ & rng.Uint64())

	if g.MutationProb > 0 {
		for i := 0; i < config.GenomeBits; i++ {
			if rng.Chance(g.MutationProb) {
				genome ^= 1 << i
			}
		}
	}
	child.Genome = Genome(genome)
	return child
}

// Dies evaluates the death predicate at the given local temperature and
// population densities. Outside the viable range death is certain.
func (s Salamander) Dies(localTemp, conspecific, heterospecific float64, m config.MortalityConfig, rng *random.Stream) bool {
	if !(localTemp >= m.MinViableTemp && localTemp <= m.MaxViableTemp) {
		return true
	}
	d := s.OptimumTemp - localTemp
	score := m.Offset +
		m.TempWeight*d*d +
		m.ConspecificWeight*conspecific +
		m.HeterospecificWeight*heterospecific
	return rng.UniformReal(0, 1) < Logistic(score)
}

// standardLogistic turns a mortality score into a death probability.
var standardLogistic = distuv.Logistic{Mu: 0, S: 1}

// Logistic maps a linear score onto (0,1).
func Logistic(x float64) float64 {
	return standardLogistic.CDF(x)
}
