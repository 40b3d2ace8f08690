package deme

import (
	"github.com/pthm-cable/salamanders/random"
)

// Mortaliate applies the death predicate to every member. Densities come
// from a single tally taken before anyone dies: conspecific density counts
// the other members of the same lineage, heterospecific density counts
// members of every other lineage, both per unit of habitat area.
// Returns the number of deaths.
func (d *Deme) Mortaliate(tMyr float64, rng *random.Stream) int {
	if len(d.members) == 0 {
		return 0
	}

	counts := d.LineageCounts()
	total := len(d.members)
	temp := d.Temperature(tMyr)
	area := d.Area(tMyr)
	m := d.cfg.Mortality

	deaths := 0
	for i := 0; i < len(d.members); {
		s := d.members[i]
		own := counts[s.Lineage]
		conspecific := float64(own-1) / area
		heterospecific := float64(total-own) / area

		if s.Dies(temp, conspecific, heterospecific, m, rng) {
			d.removeAt(i)
			deaths++
			continue
		}
		i++
	}
	return deaths
}
