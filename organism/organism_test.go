package organism

import (
	"math"
	"testing"

	"github.com/pthm-cable/salamanders/config"
	"github.com/pthm-cable/salamanders/random"
)

func TestAgreement(t *testing.T) {
	tests := []struct {
		name string
		a, b Genome
		want int
	}{
		{"identical zeros", 0, 0, 64},
		{"identical ones", ^Genome(0), ^Genome(0), 64},
		{"complement", 0, ^Genome(0), 0},
		{"one bit", 0, 1, 63},
		{"low byte", 0xff, 0, 56},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Agreement(tt.b); got != tt.want {
				t.Errorf("Agreement = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsSimilarSymmetric(t *testing.T) {
	rng := random.New(3)
	for i := 0; i < 500; i++ {
		a := Genome(rng.Uint64())
		b := Genome(rng.Uint64())
		th := rng.UniformInt(0, 64)
		if a.IsSimilar(b, th) != b.IsSimilar(a, th) {
			t.Fatalf("IsSimilar(%x, %x, %d) not symmetric", a, b, th)
		}
	}
}

func TestIsSimilarThreshold(t *testing.T) {
	var a, b Genome = 0, 0b111 // 61 agreeing bits
	if !a.IsSimilar(b, 60) {
		t.Error("61 agreeing bits should exceed threshold 60")
	}
	if a.IsSimilar(b, 61) {
		t.Error("61 agreeing bits should not exceed threshold 61")
	}
	// Threshold below zero: everything is similar, even complements.
	if !a.IsSimilar(^a, -1) {
		t.Error("threshold -1 should accept any pair")
	}
}

func TestReproduce(t *testing.T) {
	rng := random.New(11)
	g := config.GeneticsConfig{MutationProb: 0, TempDriftSD: 0}

	a := Salamander{Genome: 0x00ff00ff00ff00ff, OptimumTemp: 10, Lineage: 4}
	b := Salamander{Genome: 0x0f0f0f0f0f0f0f0f, OptimumTemp: 20, Lineage: 4}
	common := ^(a.Genome ^ b.Genome)

	for i := 0; i < 100; i++ {
		child := a.Reproduce(b, g, rng)
		if child.Lineage != 4 {
			t.Fatalf("child lineage = %d, want 4", child.Lineage)
		}
		if child.OptimumTemp != 15 {
			t.Fatalf("child optimum = %v, want 15 with zero drift", child.OptimumTemp)
		}
		// Loci where the parents agree are inherited unchanged.
		if child.Genome&common != a.Genome&common {
			t.Fatalf("child %x changed a locus both parents share", child.Genome)
		}
	}
}

func TestReproduceMutation(t *testing.T) {
	rng := random.New(5)
	g := config.GeneticsConfig{MutationProb: 1, TempDriftSD: 0}
	a := Salamander{Genome: 0}

	// With certain mutation every bit flips.
	child := a.Reproduce(a, g, rng)
	if child.Genome != ^Genome(0) {
		t.Errorf("child genome = %x, want all ones", child.Genome)
	}
}

func TestDiesOutsideViableRange(t *testing.T) {
	m := config.Default().Mortality
	rng := random.New(1)

	tests := []struct {
		name    string
		temp    float64
		optimum float64
	}{
		{"freezing", -10, -10},
		{"boiling", 100, 100},
		{"just below", -0.001, 0},
		{"just above", 50.001, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Salamander{OptimumTemp: tt.optimum}
			for i := 0; i < 100; i++ {
				if !s.Dies(tt.temp, 0, 0, m, rng) {
					t.Fatalf("salamander survived at %v C", tt.temp)
				}
			}
		})
	}
}

func TestDiesRateAtOptimum(t *testing.T) {
	m := config.Default().Mortality
	rng := random.New(2)
	s := Salamander{OptimumTemp: 20}

	const n = 20000
	deaths := 0
	for i := 0; i < n; i++ {
		if s.Dies(20, 0, 0, m, rng) {
			deaths++
		}
	}
	rate := float64(deaths) / n
	if math.Abs(rate-0.1) > 0.01 {
		t.Errorf("death rate at optimum = %v, want ~0.1", rate)
	}
}

func TestLogisticCalibration(t *testing.T) {
	m := config.Default().Mortality
	tests := []struct {
		name  string
		delta float64
		want  float64
	}{
		{"at optimum", 0, 0.1},
		{"12 degrees off", 12, 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Logistic(m.Offset + m.TempWeight*tt.delta*tt.delta)
			if math.Abs(got-tt.want) > 1e-3 {
				t.Errorf("Logistic = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogisticShape(t *testing.T) {
	if got := Logistic(0); got != 0.5 {
		t.Errorf("Logistic(0) = %v, want 0.5", got)
	}
	for _, x := range []float64{0.5, 2, 7} {
		if sum := Logistic(x) + Logistic(-x); math.Abs(sum-1) > 1e-12 {
			t.Errorf("Logistic(%v) + Logistic(-%v) = %v, want 1", x, x, sum)
		}
	}
}
