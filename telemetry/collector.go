package telemetry

// Collector accumulates demographic events within one step and produces
// StepStats.
type Collector struct {
	births   int
	deaths   int
	eroded   int
	migrants int
	exchange int
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// RecordBirths records offspring produced.
func (c *Collector) RecordBirths(n int) {
	c.births += n
}

// RecordDeaths records mortality losses.
func (c *Collector) RecordDeaths(n int) {
	c.deaths += n
}

// RecordEroded records members lost when their band eroded away.
func (c *Collector) RecordEroded(n int) {
	c.eroded += n
}

// RecordMigrants records moves between mountain bands.
func (c *Collector) RecordMigrants(n int) {
	c.migrants += n
}

// RecordExchange records moves between the lowest band and the lowlands.
func (c *Collector) RecordExchange(n int) {
	c.exchange += n
}

// Snapshot is the population state the caller samples at step end.
type Snapshot struct {
	Step          int
	Time          float64
	Alive         int
	Lowlands      int
	Species       int
	Nodes         int
	OptimumTemps  []float64
	MeanElevation float64
	MaxElevation  float64
}

// Flush produces a StepStats and resets counters for the next step.
func (c *Collector) Flush(s Snapshot) StepStats {
	mean, std, p10, p50, p90 := ComputeTraitStats(s.OptimumTemps)

	stats := StepStats{
		Step:     s.Step,
		Time:     s.Time,
		Alive:    s.Alive,
		Lowlands: s.Lowlands,
		Species:  s.Species,
		Nodes:    s.Nodes,

		Births:   c.births,
		Deaths:   c.deaths,
		Eroded:   c.eroded,
		Migrants: c.migrants,
		Exchange: c.exchange,

		OptMean: mean,
		OptStd:  std,
		OptP10:  p10,
		OptP50:  p50,
		OptP90:  p90,

		MeanElevation: s.MeanElevation,
		MaxElevation:  s.MaxElevation,
	}

	*c = Collector{}
	return stats
}
