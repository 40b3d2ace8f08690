// Package deme implements one elevation band's population and the
// per-step demographic operations that act on it.
package deme

import (
	"errors"

	"github.com/pthm-cable/salamanders/climate"
	"github.com/pthm-cable/salamanders/config"
	"github.com/pthm-cable/salamanders/organism"
)

// ErrRunawayPopulation is returned when a band outgrows the sanity ceiling.
var ErrRunawayPopulation = errors.New("runaway population")

// Deme is the population living in one elevation band. Member order carries
// no meaning; removal swaps the last member into the vacated slot.
type Deme struct {
	index     int
	elevation float64
	lowlands  bool
	members   []organism.Salamander

	cfg     *config.Config
	climate *climate.Model
}

// New creates an empty mountain band at a fixed elevation. The index is
// the band's position on the mountain and is only used for reporting.
func New(index int, elevationKm float64, cfg *config.Config, model *climate.Model) *Deme {
	return &Deme{
		index:     index,
		elevation: elevationKm,
		cfg:       cfg,
		climate:   model,
	}
}

// NewLowlands creates the surrounding-lowlands reservoir at sea level. It
// never erodes and has no population ceiling.
func NewLowlands(cfg *config.Config, model *climate.Model) *Deme {
	return &Deme{
		index:    -1,
		lowlands: true,
		cfg:      cfg,
		climate:  model,
	}
}

// Index returns the band position, or -1 for the lowlands.
func (d *Deme) Index() int { return d.index }

// Elevation returns the band's nominal height in km.
func (d *Deme) Elevation() float64 { return d.elevation }

// IsLowlands reports whether d is the lowland reservoir.
func (d *Deme) IsLowlands() bool { return d.lowlands }

// Len returns the number of living members.
func (d *Deme) Len() int { return len(d.members) }

// Members returns the living members. The slice is owned by the Deme and
// is only valid until the next mutating call.
func (d *Deme) Members() []organism.Salamander { return d.members }

// Add places a salamander in the band.
func (d *Deme) Add(s organism.Salamander) {
	d.members = append(d.members, s)
}

// KillAll empties the band and returns how many died.
func (d *Deme) KillAll() int {
	n := len(d.members)
	clear(d.members)
	d.members = d.members[:0]
	return n
}

// SetLineage reassigns the lineage of the member at i.
func (d *Deme) SetLineage(i, lineage int) {
	d.members[i].Lineage = lineage
}

// Temperature is the local temperature at t.
func (d *Deme) Temperature(tMyr float64) float64 {
	return d.climate.LocalTemperature(d.elevation, tMyr)
}

// Area is the habitat area available to the band at t.
func (d *Deme) Area(tMyr float64) float64 {
	a := d.climate.HabitatArea(d.elevation, tMyr)
	if d.lowlands {
		a *= d.cfg.Lowlands.AreaScale
	}
	return a
}

// Habitable reports whether the band still exists at t.
func (d *Deme) Habitable(tMyr float64) bool {
	return d.lowlands || d.elevation <= d.climate.MaxElevation(tMyr)
}

// Erode empties the band if the mountain has worn down below it. It returns
// the number of members lost.
func (d *Deme) Erode(tMyr float64) int {
	if d.Habitable(tMyr) {
		return 0
	}
	return d.KillAll()
}

// LineageCounts tallies members per lineage.
func (d *Deme) LineageCounts() map[int]int {
	counts := make(map[int]int)
	for i := range d.members {
		counts[d.members[i].Lineage]++
	}
	return counts
}

// removeAt drops the member at i by moving the last member into its slot.
// Callers iterating by index must revisit i afterwards.
func (d *Deme) removeAt(i int) organism.Salamander {
	s := d.members[i]
	last := len(d.members) - 1
	d.members[i] = d.members[last]
	d.members[last] = organism.Salamander{}
	d.members = d.members[:last]
	return s
}

// moveTo transfers the member at i to dst.
func (d *Deme) moveTo(i int, dst *Deme) {
	dst.Add(d.removeAt(i))
}
