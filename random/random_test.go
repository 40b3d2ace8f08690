package random

import (
	"math"
	"testing"
)

func TestStreamReproducible(t *testing.T) {
	a := New(42)
	b := New(42)

	for i := 0; i < 100; i++ {
		if x, y := a.UniformReal(0, 1), b.UniformReal(0, 1); x != y {
			t.Fatalf("draw %d differs: %v != %v", i, x, y)
		}
		if x, y := a.Normal(0, 1), b.Normal(0, 1); x != y {
			t.Fatalf("normal draw %d differs: %v != %v", i, x, y)
		}
	}
}

func TestUniformIntBounds(t *testing.T) {
	s := New(7)
	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		v := s.UniformInt(3, 6)
		if v < 3 || v > 6 {
			t.Fatalf("UniformInt(3,6) = %d, out of range", v)
		}
		seen[v] = true
	}
	if len(seen) != 4 {
		t.Errorf("expected all 4 values on the closed interval, saw %d", len(seen))
	}
}

func TestNormalMoments(t *testing.T) {
	s := New(1)
	const n = 20000
	var sum, sq float64
	for i := 0; i < n; i++ {
		v := s.Normal(5, 2)
		sum += v
		sq += v * v
	}
	mean := sum / n
	sd := math.Sqrt(sq/n - mean*mean)

	if math.Abs(mean-5) > 0.1 {
		t.Errorf("mean = %v, want ~5", mean)
	}
	if math.Abs(sd-2) > 0.1 {
		t.Errorf("sd = %v, want ~2", sd)
	}
}

func TestNormalZeroSD(t *testing.T) {
	s := New(1)
	if v := s.Normal(3.5, 0); v != 3.5 {
		t.Errorf("Normal(3.5, 0) = %v, want 3.5", v)
	}
}

func TestChanceExtremes(t *testing.T) {
	s := New(9)
	for i := 0; i < 100; i++ {
		if s.Chance(0) {
			t.Fatal("Chance(0) returned true")
		}
		if !s.Chance(1) {
			t.Fatal("Chance(1) returned false")
		}
	}
}
