package phylo

import (
	"fmt"

	"github.com/pthm-cable/salamanders/deme"
)

// recencySlack absorbs rounding in accumulated step times.
const recencySlack = 1e-9

// Update assigns every living agent to a lineage at time.
//
// An agent still similar to its recorded lineage keeps it and refreshes the
// lineage's last-seen time. A diverged agent joins the newest sibling that
// split from the same lineage within the last two steps and is similar to
// it; failing that it founds a new species under its old lineage.
func (t *Tree) Update(time, step float64, demes []*deme.Deme, threshold int) error {
	window := 2*step + recencySlack

	for _, d := range demes {
		members := d.Members()
		for i := range members {
			s := members[i]
			if s.Lineage < 0 || s.Lineage >= len(t.nodes) {
				return fmt.Errorf("%w: agent in band %d references lineage %d of %d",
					ErrInvalidLineage, d.Index(), s.Lineage, len(t.nodes))
			}

			rec := &t.nodes[s.Lineage]
			if s.Genome.IsSimilar(rec.Genome, threshold) {
				if time > rec.LastChild {
					rec.LastChild = time
				}
				continue
			}

			lineage := -1
			for p := len(t.nodes) - 1; p >= s.Lineage; p-- {
				c := &t.nodes[p]
				if c.Parent != s.Lineage || time-c.LastChild > window {
					continue
				}
				if s.Genome.IsSimilar(c.Genome, threshold) {
					lineage = p
					break
				}
			}
			if lineage < 0 {
				lineage = t.add(s, time)
			}
			d.SetLineage(i, lineage)
		}
	}
	return nil
}
