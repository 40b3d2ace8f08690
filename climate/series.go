package climate

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/salamanders/config"
)

// Series gives the sea-level temperature at a time in Myr since the start.
type Series interface {
	TemperatureAt(tMyr float64) float64
}

// Constant is a series that never changes. Useful for controlled runs.
type Constant float64

// TemperatureAt returns the constant.
func (c Constant) TemperatureAt(float64) float64 {
	return float64(c)
}

// Interpolated is a series sampled every 1 kyr and linearly interpolated
// between samples. Times outside the samples clamp to the nearest end.
type Interpolated struct {
	values []float64
}

// NewInterpolated wraps samples spaced 1 kyr apart, the first at t=0.
func NewInterpolated(values []float64) (*Interpolated, error) {
	if len(values) == 0 {
		return nil, errors.New("temperature series is empty")
	}
	return &Interpolated{values: slices.Clone(values)}, nil
}

// Len returns the number of samples.
func (s *Interpolated) Len() int {
	return len(s.values)
}

// TemperatureAt interpolates between the two samples around tMyr.
func (s *Interpolated) TemperatureAt(tMyr float64) float64 {
	kyr := tMyr * 1000
	last := len(s.values) - 1
	if kyr <= 0 {
		return s.values[0]
	}
	if kyr >= float64(last) {
		return s.values[last]
	}
	i := int(kyr)
	a, b := s.values[i], s.values[i+1]
	return a + (b-a)*(kyr-float64(i))
}

type seriesRow struct {
	TempC float64 `csv:"temp_c"`
}

// LoadSeries reads one temperature per line, 1 kyr apart. When reverse is
// set the file is taken to list the present first. The final sample is
// duplicated so interpolation reaches the end of the record.
func LoadSeries(path string, reverse bool) (*Interpolated, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening temperature series: %w", err)
	}
	defer f.Close()

	var rows []*seriesRow
	if err := gocsv.UnmarshalWithoutHeaders(f, &rows); err != nil {
		return nil, fmt.Errorf("parsing temperature series %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("temperature series %s has no values", path)
	}

	values := make([]float64, 0, len(rows)+1)
	for _, r := range rows {
		values = append(values, r.TempC)
	}
	if reverse {
		slices.Reverse(values)
	}
	values = append(values, values[len(values)-1])

	return NewInterpolated(values)
}

// SeriesFromConfig loads the configured series, or a constant when no file
// is given.
func SeriesFromConfig(tc config.TemperatureConfig) (Series, error) {
	if tc.SeriesPath == "" {
		return Constant(tc.ConstantC), nil
	}
	return LoadSeries(tc.SeriesPath, tc.Reverse)
}
