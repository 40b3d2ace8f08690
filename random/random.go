// Package random provides the per-replicate random stream used by every
// stochastic operation. Streams are not safe for concurrent use; each
// replicate owns exactly one.
package random

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Stream is a seeded PCG generator with the draws the model needs.
type Stream struct {
	seed uint64
	src  rand.Source
	rng  *rand.Rand
}

// New creates a stream from a seed. Equal seeds give equal streams.
func New(seed uint64) *Stream {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &Stream{
		seed: seed,
		src:  src,
		rng:  rand.New(src),
	}
}

// Seed returns the seed the stream was created with.
func (s *Stream) Seed() uint64 {
	return s.seed
}

// Intn returns a value in [0, n). n must be positive.
func (s *Stream) Intn(n int) int {
	return s.rng.IntN(n)
}

// UniformInt returns a value on the closed interval [lo, hi].
func (s *Stream) UniformInt(lo, hi int) int {
	return lo + s.rng.IntN(hi-lo+1)
}

// UniformReal returns a value in [lo, hi).
func (s *Stream) UniformReal(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

// Chance returns true with probability p.
func (s *Stream) Chance(p float64) bool {
	return s.rng.Float64() < p
}

// Normal draws from a Gaussian with the given mean and standard deviation.
func (s *Stream) Normal(mean, sd float64) float64 {
	if sd == 0 {
		return mean
	}
	return distuv.Normal{Mu: mean, Sigma: sd, Src: s.src}.Rand()
}

// Shuffle permutes n elements with Fisher-Yates.
func (s *Stream) Shuffle(n int, swap func(i, j int)) {
	s.rng.Shuffle(n, swap)
}

// Uint64 returns a raw 64-bit draw, used to seed child streams.
func (s *Stream) Uint64() uint64 {
	return s.rng.Uint64()
}
