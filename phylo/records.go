package phylo

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/salamanders/deme"
)

// Record is the persisted form of a node, one row per species.
type Record struct {
	ID            int     `csv:"id"`
	Emergence     float64 `csv:"emergence"`
	LastChild     float64 `csv:"last_child"`
	Parent        int     `csv:"parent"`
	FoundingTrait float64 `csv:"founding_otemp"`
	Genome        uint64  `csv:"genome"`
}

// Records dumps the tree state. The root's parent is written as -1.
func (t *Tree) Records() []Record {
	out := make([]Record, len(t.nodes))
	for i := range t.nodes {
		n := &t.nodes[i]
		out[i] = Record{
			ID:            n.ID,
			Emergence:     n.Emergence,
			LastChild:     n.LastChild,
			Parent:        n.Parent,
			FoundingTrait: n.FoundingTrait,
			Genome:        uint64(n.Genome),
		}
	}
	return out
}

// StepStats summarises one lineage's living members at one step.
type StepStats struct {
	Time    float64
	Count   int
	ElevMin float64
	ElevMax float64
	ElevAvg float64
	OptMin  float64
	OptMax  float64
	OptAvg  float64
}

// SpeciesStatRow is one lineage at one step, flattened for CSV export.
type SpeciesStatRow struct {
	Lineage int     `csv:"lineage"`
	Time    float64 `csv:"time"`
	Count   int     `csv:"count"`
	ElevMin float64 `csv:"elev_min"`
	ElevMax float64 `csv:"elev_max"`
	ElevAvg float64 `csv:"elev_avg"`
	OptMin  float64 `csv:"otemp_min"`
	OptMax  float64 `csv:"otemp_max"`
	OptAvg  float64 `csv:"otemp_avg"`
}

// RecordStats appends a StepStats entry to every lineage observed in demes
// at time.
func (t *Tree) RecordStats(time float64, demes []*deme.Deme) {
	type sample struct{ elev, opt []float64 }
	byLineage := make(map[int]*sample)
	var order []int

	for _, d := range demes {
		for _, s := range d.Members() {
			sm, ok := byLineage[s.Lineage]
			if !ok {
				sm = &sample{}
				byLineage[s.Lineage] = sm
				order = append(order, s.Lineage)
			}
			sm.elev = append(sm.elev, d.Elevation())
			sm.opt = append(sm.opt, s.OptimumTemp)
		}
	}

	for _, id := range order {
		sm := byLineage[id]
		n := &t.nodes[id]
		n.Stats = append(n.Stats, StepStats{
			Time:    time,
			Count:   len(sm.elev),
			ElevMin: floats.Min(sm.elev),
			ElevMax: floats.Max(sm.elev),
			ElevAvg: stat.Mean(sm.elev, nil),
			OptMin:  floats.Min(sm.opt),
			OptMax:  floats.Max(sm.opt),
			OptAvg:  stat.Mean(sm.opt, nil),
		})
	}
}

// SpeciesStats flattens every lineage's recorded step statistics.
func (t *Tree) SpeciesStats() []SpeciesStatRow {
	var rows []SpeciesStatRow
	for i := range t.nodes {
		for _, s := range t.nodes[i].Stats {
			rows = append(rows, SpeciesStatRow{
				Lineage: i,
				Time:    s.Time,
				Count:   s.Count,
				ElevMin: s.ElevMin,
				ElevMax: s.ElevMax,
				ElevAvg: s.ElevAvg,
				OptMin:  s.OptMin,
				OptMax:  s.OptMax,
				OptAvg:  s.OptAvg,
			})
		}
	}
	return rows
}

// LTTPoint is one sample of the lineages-through-time curve.
type LTTPoint struct {
	Time   float64 `csv:"time"`
	Living int     `csv:"living"`
}

// LineagesThroughTime samples LivingCount from start to end inclusive.
func (t *Tree) LineagesThroughTime(start, end, step float64) []LTTPoint {
	if step <= 0 || end < start {
		return nil
	}
	n := int((end-start)/step+recencySlack) + 1
	out := make([]LTTPoint, n)
	for i := range out {
		tm := start + float64(i)*step
		out[i] = LTTPoint{Time: tm, Living: t.LivingCount(tm)}
	}
	return out
}

// WriteDot writes the tree as a Graphviz digraph labelled with emergence
// time and founding optimum.
func (t *Tree) WriteDot(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "digraph phylogeny {"); err != nil {
		return err
	}
	for i := range t.nodes {
		n := &t.nodes[i]
		if _, err := fmt.Fprintf(w, "  %d [label=\"%g %.2f\"];\n", i, n.Emergence, n.FoundingTrait); err != nil {
			return err
		}
	}
	for i := range t.nodes {
		if n := &t.nodes[i]; !n.IsRoot() {
			if _, err := fmt.Fprintf(w, "  %d -> %d;\n", n.Parent, i); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}
