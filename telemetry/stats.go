package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// StepStats holds the demographic picture of one run at the end of a step.
type StepStats struct {
	Step int     `csv:"step"`
	Time float64 `csv:"time_myr"`

	// Population at step end
	Alive    int `csv:"alive"`    // mountain bands only
	Lowlands int `csv:"lowlands"` // reservoir population
	Species  int `csv:"species"`  // living lineages
	Nodes    int `csv:"nodes"`    // lineages ever recorded

	// Events during the step
	Births   int `csv:"births"`
	Deaths   int `csv:"deaths"`
	Eroded   int `csv:"eroded"`
	Migrants int `csv:"migrants"`
	Exchange int `csv:"lowland_exchange"`

	// Thermal optimum distribution over mountain members
	OptMean float64 `csv:"otemp_mean"`
	OptStd  float64 `csv:"otemp_std"`
	OptP10  float64 `csv:"otemp_p10"`
	OptP50  float64 `csv:"otemp_p50"`
	OptP90  float64 `csv:"otemp_p90"`

	MeanElevation float64 `csv:"mean_elevation_km"`
	MaxElevation  float64 `csv:"max_elevation_km"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s StepStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("step", s.Step),
		slog.Float64("time_myr", s.Time),
		slog.Int("alive", s.Alive),
		slog.Int("lowlands", s.Lowlands),
		slog.Int("species", s.Species),
		slog.Int("nodes", s.Nodes),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Int("eroded", s.Eroded),
		slog.Int("migrants", s.Migrants),
		slog.Int("lowland_exchange", s.Exchange),
		slog.Float64("otemp_mean", s.OptMean),
		slog.Float64("otemp_p50", s.OptP50),
		slog.Float64("mean_elevation_km", s.MeanElevation),
	)
}

// RunSummary is the scalar record of one finished replicate, one row of
// summary.csv.
type RunSummary struct {
	Run          int     `csv:"run"`
	RunID        string  `csv:"run_id"`
	Seed         uint64  `csv:"seed"`
	MutationProb float64 `csv:"mutation_prob"`
	TempDriftSD  float64 `csv:"temp_drift_sd"`
	SimThresh    float64 `csv:"sim_thresh"`
	NSpecies     int     `csv:"nspecies"`
	FitScore     float64 `csv:"ecdf"`
	AvgOptTemp   float64 `csv:"avg_otemp_degc"`
	NAlive       int     `csv:"nalive"`
	NLowlands    int     `csv:"nlowlands"`
	EndTime      float64 `csv:"end_time"`
	AvgElevation float64 `csv:"avg_elevation"`
	NNodes       int     `csv:"nnodes"`
	Status       string  `csv:"status"`
	Error        string  `csv:"error"`
}

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// LogValue implements slog.LogValuer for structured logging.
func (s RunSummary) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("run", s.Run),
		slog.String("run_id", s.RunID),
		slog.Uint64("seed", s.Seed),
		slog.Float64("mutation_prob", s.MutationProb),
		slog.Float64("temp_drift_sd", s.TempDriftSD),
		slog.Float64("sim_thresh", s.SimThresh),
		slog.Int("nspecies", s.NSpecies),
		slog.Float64("fit_score", s.FitScore),
		slog.Float64("avg_otemp", s.AvgOptTemp),
		slog.Int("nalive", s.NAlive),
		slog.Int("nlowlands", s.NLowlands),
		slog.Float64("end_time", s.EndTime),
		slog.Float64("avg_elevation", s.AvgElevation),
		slog.Int("nnodes", s.NNodes),
		slog.String("status", s.Status),
	}
	if s.Error != "" {
		attrs = append(attrs, slog.String("error", s.Error))
	}
	return slog.GroupValue(attrs...)
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeTraitStats calculates mean, population standard deviation and
// percentiles of trait values.
func ComputeTraitStats(values []float64) (mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}

	mean, std = stat.PopMeanStdDev(values, nil)

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, std, p10, p50, p90
}
