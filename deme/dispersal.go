package deme

import (
	"math"

	"github.com/pthm-cable/salamanders/random"
)

// DiffuseTowardBetter offers each member, with the dispersal probability, a
// move to whichever habitable neighbour is thermally closest to its optimum.
// The move happens only when that neighbour is strictly better than here.
// Either neighbour may be nil at the ends of the mountain. Returns the
// number of migrants.
func (d *Deme) DiffuseTowardBetter(lower, upper *Deme, tMyr float64, rng *random.Stream) int {
	if len(d.members) == 0 {
		return 0
	}
	lower, upper = habitableOrNil(lower, tMyr), habitableOrNil(upper, tMyr)
	if lower == nil && upper == nil {
		return 0
	}

	here := d.Temperature(tMyr)
	var tLower, tUpper float64
	if lower != nil {
		tLower = lower.Temperature(tMyr)
	}
	if upper != nil {
		tUpper = upper.Temperature(tMyr)
	}

	p := d.cfg.Dispersal.Prob
	moved := 0
	for i := 0; i < len(d.members); {
		if !rng.Chance(p) {
			i++
			continue
		}
		opt := d.members[i].OptimumTemp
		best := math.Abs(opt - here)
		var dst *Deme
		if lower != nil {
			if diff := math.Abs(opt - tLower); diff < best {
				best, dst = diff, lower
			}
		}
		if upper != nil {
			if diff := math.Abs(opt - tUpper); diff < best {
				dst = upper
			}
		}
		if dst == nil {
			i++
			continue
		}
		d.moveTo(i, dst)
		moved++
	}
	return moved
}

// DiffuseLocal is the climate-blind counterpart of DiffuseTowardBetter: a
// member that disperses picks up or down with equal odds and moves if that
// neighbour is habitable.
func (d *Deme) DiffuseLocal(lower, upper *Deme, tMyr float64, rng *random.Stream) int {
	if len(d.members) == 0 {
		return 0
	}
	lower, upper = habitableOrNil(lower, tMyr), habitableOrNil(upper, tMyr)
	if lower == nil && upper == nil {
		return 0
	}

	p := d.cfg.Dispersal.Prob
	moved := 0
	for i := 0; i < len(d.members); {
		if !rng.Chance(p) {
			i++
			continue
		}
		dst := upper
		if rng.Chance(0.5) {
			dst = lower
		}
		if dst == nil {
			i++
			continue
		}
		d.moveTo(i, dst)
		moved++
	}
	return moved
}

// DiffuseGlobal sends each dispersing member to a band drawn uniformly from
// every habitable band in all, adjacency ignored. Drawing d itself leaves
// the member where it is.
func (d *Deme) DiffuseGlobal(all []*Deme, tMyr float64, rng *random.Stream) int {
	if len(d.members) == 0 {
		return 0
	}
	targets := make([]*Deme, 0, len(all))
	for _, o := range all {
		if o.Habitable(tMyr) {
			targets = append(targets, o)
		}
	}
	if len(targets) == 0 {
		return 0
	}

	p := d.cfg.Dispersal.Prob
	moved := 0
	for i := 0; i < len(d.members); {
		if !rng.Chance(p) {
			i++
			continue
		}
		dst := targets[rng.Intn(len(targets))]
		if dst == d {
			i++
			continue
		}
		d.moveTo(i, dst)
		moved++
	}
	return moved
}

// DiffuseToLowlands moves members of the lowest band into the reservoir,
// each with the lowlands.to_prob probability.
func (d *Deme) DiffuseToLowlands(lowlands *Deme, rng *random.Stream) int {
	return d.exchange(lowlands, d.cfg.Lowlands.ToProb, rng)
}

// DiffuseFromLowlands moves reservoir members onto the lowest band, each
// with the lowlands.from_prob probability. Called on the reservoir.
func (d *Deme) DiffuseFromLowlands(lowest *Deme, tMyr float64, rng *random.Stream) int {
	if !lowest.Habitable(tMyr) {
		return 0
	}
	return d.exchange(lowest, d.cfg.Lowlands.FromProb, rng)
}

func (d *Deme) exchange(dst *Deme, p float64, rng *random.Stream) int {
	moved := 0
	for i := 0; i < len(d.members); {
		if !rng.Chance(p) {
			i++
			continue
		}
		d.moveTo(i, dst)
		moved++
	}
	return moved
}

func habitableOrNil(o *Deme, tMyr float64) *Deme {
	if o == nil || !o.Habitable(tMyr) {
		return nil
	}
	return o
}
