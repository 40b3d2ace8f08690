package sim

import "strings"

const profileBarWidth = 20

// LogProfile writes the population distribution along the mountain at
// debug level: one record for the run and one per band, with a bar scaled
// to the most crowded band. Eroded bands are flagged.
func (s *Simulation) LogProfile(t float64) {
	alive := s.Alive()
	peak := 0
	for _, d := range s.demes {
		peak = max(peak, d.Len())
	}

	s.logger.Debug("mountain profile",
		"time_myr", t,
		"total", alive+s.lowlands.Len(),
		"lowlands", s.lowlands.Len(),
		"max_elevation_km", s.climate.MaxElevation(t),
	)

	for i, d := range s.demes {
		if !d.Habitable(t) {
			s.logger.Debug("band", "bin", i, "elevation_km", d.Elevation(), "eroded", true)
			continue
		}
		var pct float64
		bar := 0
		if alive > 0 {
			pct = float64(d.Len()) / float64(alive) * 100
		}
		if peak > 0 {
			bar = profileBarWidth * d.Len() / peak
		}
		s.logger.Debug("band",
			"bin", i,
			"elevation_km", d.Elevation(),
			"count", d.Len(),
			"pct", pct,
			"bar", strings.Repeat("#", bar),
		)
	}
}
