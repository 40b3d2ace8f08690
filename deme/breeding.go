package deme

import (
	"fmt"

	"github.com/pthm-cable/salamanders/random"
)

// Breed runs the bounded random-mating loop. Parents are drawn with
// replacement from the members present before breeding began, so offspring
// never mate in the same call. A pair produces one child only if both share
// a lineage. The loop stops at the offspring cap or the attempt cap.
//
// Mountain bands that exceed the population ceiling afterwards return
// ErrRunawayPopulation.
func (d *Deme) Breed(rng *random.Stream) (int, error) {
	n := len(d.members)
	if n == 0 {
		return 0, nil
	}

	b := d.cfg.Breeding
	genetics := d.cfg.Genetics
	born := 0
	for attempt := 0; attempt < b.MaxAttempts && born < b.MaxOffspring; attempt++ {
		a := d.members[rng.Intn(n)]
		p := d.members[rng.Intn(n)]
		if a.Lineage != p.Lineage {
			continue
		}
		d.Add(a.Reproduce(p, genetics, rng))
		born++
	}

	if !d.lowlands && len(d.members) > d.cfg.Run.MaxDemePopulation {
		return born, fmt.Errorf("%w: band %d (%.2f km) holds %d, ceiling %d",
			ErrRunawayPopulation, d.index, d.elevation, len(d.members), d.cfg.Run.MaxDemePopulation)
	}
	return born, nil
}
