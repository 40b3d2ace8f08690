package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartStep()
		pc.StartPhase(PhaseMortality)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseBreeding)
		time.Sleep(200 * time.Microsecond)
		pc.EndStep()
	}

	stats := pc.Stats()

	if stats.AvgStepDuration <= 0 {
		t.Error("expected positive average step duration")
	}
	if stats.MinStepDuration > stats.MaxStepDuration {
		t.Errorf("min %v > max %v", stats.MinStepDuration, stats.MaxStepDuration)
	}
	if _, ok := stats.PhaseAvg[PhaseMortality]; !ok {
		t.Error("expected mortality phase to be tracked")
	}
	if _, ok := stats.PhaseAvg[PhaseBreeding]; !ok {
		t.Error("expected breeding phase to be tracked")
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 10; i++ {
		pc.StartStep()
		pc.StartPhase(PhasePhylogeny)
		pc.EndStep()
	}

	stats := pc.Stats()
	if stats.AvgStepDuration <= 0 {
		t.Error("expected positive average step duration after window filled")
	}
	if stats.StepsPerSecond <= 0 {
		t.Error("expected positive steps per second")
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartStep()
		pc.StartPhase("fast")
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase("slow")
		time.Sleep(2 * time.Millisecond)
		pc.EndStep()
	}

	stats := pc.Stats()
	fastPct := stats.PhasePct["fast"]
	slowPct := stats.PhasePct["slow"]

	if slowPct <= fastPct {
		t.Errorf("expected slow phase (%v%%) > fast phase (%v%%)", slowPct, fastPct)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()

	if stats.AvgStepDuration != 0 {
		t.Error("expected zero avg step duration for empty collector")
	}
	if stats.PhaseAvg == nil {
		t.Error("expected non-nil PhaseAvg map")
	}
	if stats.PhasePct == nil {
		t.Error("expected non-nil PhasePct map")
	}
}

func TestPerfStats_ToCSV(t *testing.T) {
	stats := PerfStats{
		AvgStepDuration: 1500 * time.Microsecond,
		PhasePct: map[string]float64{
			PhaseBreeding:  60,
			PhasePhylogeny: 25,
		},
	}

	row := stats.ToCSV(7)
	if row.Run != 7 {
		t.Errorf("Run = %d, want 7", row.Run)
	}
	if row.AvgStepUS != 1500 {
		t.Errorf("AvgStepUS = %d, want 1500", row.AvgStepUS)
	}
	if row.BreedingPct != 60 || row.PhylogenyPct != 25 {
		t.Errorf("phase pct = %v/%v, want 60/25", row.BreedingPct, row.PhylogenyPct)
	}
	if row.MortalityPct != 0 {
		t.Errorf("untracked phase pct = %v, want 0", row.MortalityPct)
	}
}
