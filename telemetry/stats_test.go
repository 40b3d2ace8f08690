package telemetry

import (
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestComputeTraitStats(t *testing.T) {
	// Unsorted on purpose; the input must not be reordered.
	values := []float64{16, 12, 14, 20, 18, 11, 13, 15, 17, 19}
	first := values[0]

	mean, std, p10, p50, p90 := ComputeTraitStats(values)

	if math.Abs(mean-15.5) > 0.001 {
		t.Errorf("mean = %v, want 15.5", mean)
	}
	// Population SD of 11..20 is sqrt(8.25).
	if math.Abs(std-math.Sqrt(8.25)) > 0.001 {
		t.Errorf("std = %v, want %v", std, math.Sqrt(8.25))
	}
	if math.Abs(p10-11.9) > 0.001 {
		t.Errorf("p10 = %v, want 11.9", p10)
	}
	if math.Abs(p50-15.5) > 0.001 {
		t.Errorf("p50 = %v, want 15.5", p50)
	}
	if math.Abs(p90-19.1) > 0.001 {
		t.Errorf("p90 = %v, want 19.1", p90)
	}
	if values[0] != first {
		t.Error("ComputeTraitStats reordered its input")
	}
}

func TestComputeTraitStatsEmpty(t *testing.T) {
	mean, std, p10, p50, p90 := ComputeTraitStats(nil)

	if mean != 0 || std != 0 || p10 != 0 || p50 != 0 || p90 != 0 {
		t.Error("empty slice should return all zeros")
	}
}

func TestCollectorFlush(t *testing.T) {
	c := NewCollector()
	c.RecordBirths(12)
	c.RecordBirths(3)
	c.RecordDeaths(7)
	c.RecordEroded(2)
	c.RecordMigrants(4)
	c.RecordExchange(1)

	stats := c.Flush(Snapshot{
		Step:          5,
		Time:          2.5,
		Alive:         40,
		Lowlands:      6,
		Species:       3,
		Nodes:         4,
		OptimumTemps:  []float64{10, 20},
		MeanElevation: 1.25,
		MaxElevation:  2.0,
	})

	if stats.Births != 15 || stats.Deaths != 7 || stats.Eroded != 2 {
		t.Errorf("births/deaths/eroded = %d/%d/%d, want 15/7/2", stats.Births, stats.Deaths, stats.Eroded)
	}
	if stats.Migrants != 4 || stats.Exchange != 1 {
		t.Errorf("migrants/exchange = %d/%d, want 4/1", stats.Migrants, stats.Exchange)
	}
	if stats.Step != 5 || stats.Alive != 40 || stats.Lowlands != 6 || stats.Species != 3 {
		t.Errorf("snapshot fields not copied: %+v", stats)
	}
	if stats.OptMean != 15 {
		t.Errorf("OptMean = %v, want 15", stats.OptMean)
	}

	next := c.Flush(Snapshot{Step: 6})
	if next.Births != 0 || next.Deaths != 0 || next.Migrants != 0 {
		t.Errorf("counters not reset after flush: %+v", next)
	}
}
