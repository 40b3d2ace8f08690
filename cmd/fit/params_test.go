package main

import (
	"math"
	"testing"
	"time"

	"github.com/pthm-cable/salamanders/config"
)

func TestNormalizeRoundTrip(t *testing.T) {
	pv := NewParamVector()
	raw := []float64{0.005, 0.25, 0.9}

	back := pv.Denormalize(pv.Normalize(raw))
	for i := range raw {
		if math.Abs(back[i]-raw[i]) > 1e-12 {
			t.Errorf("%s: got %v, want %v", pv.Specs[i].Name, back[i], raw[i])
		}
	}
}

func TestDefaultsWithinBounds(t *testing.T) {
	pv := NewParamVector()
	for i, v := range pv.Normalize(pv.DefaultVector()) {
		if v < 0 || v > 1 {
			t.Errorf("%s default normalizes to %v", pv.Specs[i].Name, v)
		}
	}
}

func TestClamp(t *testing.T) {
	pv := NewParamVector()
	got := pv.Clamp([]float64{-1, 5, 0.9})
	want := []float64{0.0001, 1.0, 0.9}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s: got %v, want %v", pv.Specs[i].Name, got[i], want[i])
		}
	}
}

func TestApplyToConfig(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Default()
	cfg.Batch.Vary.MutationProb = config.Range{Min: 0, Max: 1}

	pv.ApplyToConfig(cfg, []float64{0.01, 2, 0.875})

	if cfg.Genetics.MutationProb != 0.01 {
		t.Errorf("MutationProb = %v, want 0.01", cfg.Genetics.MutationProb)
	}
	if cfg.Genetics.TempDriftSD != 1 {
		t.Errorf("TempDriftSD = %v, want clamped 1", cfg.Genetics.TempDriftSD)
	}
	if cfg.Genetics.SpeciesSimilarity != 0.875 {
		t.Errorf("SpeciesSimilarity = %v, want 0.875", cfg.Genetics.SpeciesSimilarity)
	}
	if cfg.Derived.SimilarityBits != 56 {
		t.Errorf("SimilarityBits = %d, want 56", cfg.Derived.SimilarityBits)
	}
	if cfg.Batch.Vary.MutationProb.Active() {
		t.Error("vary ranges should be cleared during a fit")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    string
		want string
	}{
		{"seconds", "45s", "0m45s"},
		{"minutes", "12m3s", "12m03s"},
		{"hours", "2h5m9s", "2h05m09s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := time.ParseDuration(tt.d)
			if err != nil {
				t.Fatal(err)
			}
			if got := formatDuration(d); got != tt.want {
				t.Errorf("formatDuration(%s) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}
