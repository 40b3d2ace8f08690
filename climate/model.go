// Package climate holds the closed-form mountain relief and temperature
// models shared by every elevation band.
package climate

import (
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pthm-cable/salamanders/config"
)

// Model combines the sea-level series with the eroding mountain.
// It is immutable and may be shared between replicates.
type Model struct {
	series   Series
	mountain config.MountainConfig
	erosion  float64 // km per kyr
}

// NewModel builds a model from the mountain parameters and a series.
func NewModel(m config.MountainConfig, series Series) *Model {
	return &Model{
		series:   series,
		mountain: m,
		erosion:  (m.AncientHeightKm - m.PresentHeightKm) / (m.ErosionSpanMyr * 1000),
	}
}

// SeaLevelTemperature returns the series value at t.
func (m *Model) SeaLevelTemperature(tMyr float64) float64 {
	return m.series.TemperatureAt(tMyr)
}

// LocalTemperature applies the lapse rate to the sea-level temperature.
func (m *Model) LocalTemperature(elevationKm, tMyr float64) float64 {
	return m.SeaLevelTemperature(tMyr) - m.mountain.LapseRateCPerKm*elevationKm
}

// MaxElevation is the peak height at t, eroding linearly from the ancient
// to the present height.
func (m *Model) MaxElevation(tMyr float64) float64 {
	return m.mountain.AncientHeightKm - m.erosion*tMyr*1000
}

// HabitatArea is the land area (km^2) at an elevation. Area is Gaussian in
// elevation with a standard deviation that narrows linearly with time.
func (m *Model) HabitatArea(elevationKm, tMyr float64) float64 {
	sigma := m.mountain.AreaSigmaKm - tMyr*1000*m.mountain.AreaSigmaDeltaKyr
	density := distuv.Normal{Mu: m.mountain.AreaMeanKm, Sigma: sigma}.Prob(elevationKm)
	return m.mountain.AreaScaleKm2 * density
}
