// Package config provides configuration loading and validation for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// GenomeBits is the width of the neutral genome in bits.
const GenomeBits = 64

// ErrInvalidConfig is returned by Validate for out-of-range configuration.
var ErrInvalidConfig = errors.New("invalid config")

// Dispersal selects the migration policy used for the whole run.
type Dispersal string

const (
	DispersalBetter Dispersal = "better"
	DispersalLocal  Dispersal = "local"
	DispersalGlobal Dispersal = "global"
)

// Config holds all simulation configuration parameters.
type Config struct {
	Run         RunConfig         `yaml:"run"`
	Genetics    GeneticsConfig    `yaml:"genetics"`
	Mortality   MortalityConfig   `yaml:"mortality"`
	Breeding    BreedingConfig    `yaml:"breeding"`
	Dispersal   DispersalConfig   `yaml:"dispersal"`
	Lowlands    LowlandsConfig    `yaml:"lowlands"`
	Mountain    MountainConfig    `yaml:"mountain"`
	Temperature TemperatureConfig `yaml:"temperature"`
	Batch       BatchConfig       `yaml:"batch"`
	Output      OutputConfig      `yaml:"output"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// RunConfig holds time-loop and initial population parameters.
type RunConfig struct {
	Timestep          float64 `yaml:"timestep"`            // Myr per step
	EndTime           float64 `yaml:"end_time"`            // Myr after start (65 = present day)
	NumBins           int     `yaml:"num_bins"`            // Elevation bands on the mountain
	InitialBin        int     `yaml:"initial_bin"`         // Band the founders start in
	InitialPopulation int     `yaml:"initial_population"`  // Number of founder clones
	MaxDemePopulation int     `yaml:"max_deme_population"` // Runaway-growth sanity ceiling
	Seed              uint64  `yaml:"seed"`                // 0 = time-based
}

// GeneticsConfig holds inheritance parameters.
type GeneticsConfig struct {
	MutationProb      float64 `yaml:"mutation_prob"`      // Per-bit flip probability
	TempDriftSD       float64 `yaml:"temp_drift_sd"`      // SD of the optimum drift per birth
	SpeciesSimilarity float64 `yaml:"species_similarity"` // Fraction of agreeing bits for same species
}

// MortalityConfig holds the logistic death model.
// p(death) = logistic(offset + temp_weight*(opt-T)^2 + conspecific_weight*dc + heterospecific_weight*dh)
type MortalityConfig struct {
	Offset               float64 `yaml:"offset"`
	TempWeight           float64 `yaml:"temp_weight"`
	ConspecificWeight    float64 `yaml:"conspecific_weight"`
	HeterospecificWeight float64 `yaml:"heterospecific_weight"`
	MinViableTemp        float64 `yaml:"min_viable_temp"` // Always die below this
	MaxViableTemp        float64 `yaml:"max_viable_temp"` // Always die above this
}

// BreedingConfig caps the random-mating loop of one Deme per step.
type BreedingConfig struct {
	MaxOffspring int `yaml:"max_offspring"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// DispersalConfig holds migration parameters.
type DispersalConfig struct {
	Type Dispersal `yaml:"type"`
	Prob float64   `yaml:"prob"` // Per-member chance of attempting to move each step
}

// LowlandsConfig holds the surrounding-lowlands reservoir parameters.
type LowlandsConfig struct {
	ToProb    float64 `yaml:"to_prob"`    // Lowest band -> lowlands, per member
	FromProb  float64 `yaml:"from_prob"`  // Lowlands -> lowest band, per member
	AreaScale float64 `yaml:"area_scale"` // Lowland habitat area relative to the 0 km band
}

// MountainConfig holds the relief and erosion model.
type MountainConfig struct {
	AncientHeightKm   float64 `yaml:"ancient_height_km"`   // Peak height at t=0
	PresentHeightKm   float64 `yaml:"present_height_km"`   // Peak height at end of erosion
	ErosionSpanMyr    float64 `yaml:"erosion_span_myr"`    // Time over which the peak erodes
	LapseRateCPerKm   float64 `yaml:"lapse_rate_c_per_km"` // Temperature drop per km
	AreaScaleKm2      float64 `yaml:"area_scale_km2"`      // Total area scale of the Gaussian
	AreaMeanKm        float64 `yaml:"area_mean_km"`        // Mean elevation of the Gaussian
	AreaSigmaKm       float64 `yaml:"area_sigma_km"`       // SD at t=0
	AreaSigmaDeltaKyr float64 `yaml:"area_sigma_delta_kyr"` // SD shrink per kyr
}

// TemperatureConfig selects the sea-level temperature series.
type TemperatureConfig struct {
	SeriesPath string  `yaml:"series_path"` // One value per line, 1 kyr apart (empty = constant)
	Reverse    bool    `yaml:"reverse"`     // File lists present day first
	ConstantC  float64 `yaml:"constant_c"`  // Used when series_path is empty
}

// BatchConfig holds replicate orchestration parameters.
type BatchConfig struct {
	Replicates int        `yaml:"replicates"`
	Workers    int        `yaml:"workers"` // 0 = GOMAXPROCS
	Vary       VaryConfig `yaml:"vary"`
}

// VaryConfig holds optional per-replicate uniform parameter ranges.
// A range with max <= min leaves the base value untouched.
type VaryConfig struct {
	MutationProb      Range `yaml:"mutation_prob"`
	TempDriftSD       Range `yaml:"temp_drift_sd"`
	SpeciesSimilarity Range `yaml:"species_similarity"`
}

// Range is a closed interval.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Active reports whether the range should be sampled.
func (r Range) Active() bool {
	return r.Max > r.Min
}

// OutputConfig controls what gets written per run.
type OutputConfig struct {
	Dir          string `yaml:"dir"`
	SQLitePath   string `yaml:"sqlite_path"`
	SpeciesStats bool   `yaml:"species_stats"`
	Plots        bool   `yaml:"plots"`
}

// TelemetryConfig holds logging and metrics parameters.
type TelemetryConfig struct {
	PerfWindow  int    `yaml:"perf_window"`
	LogProfile  bool   `yaml:"log_profile"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	SimilarityBits int     // floor(species_similarity * GenomeBits)
	ErosionPerKyr  float64 // km lost per kyr
	BinHeightKm    float64 // Elevation spacing between bands
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ComputeDerived()

	return cfg, nil
}

// Default returns the embedded defaults. Panics if they fail to parse, which
// only happens if the embedded file is broken.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Clone returns a copy safe to mutate independently.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// ParseDispersal maps a policy name, including the historical parameter-file
// spellings, to a Dispersal value.
func ParseDispersal(name string) (Dispersal, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "better":
		return DispersalBetter, nil
	case "local", "maybeworse", "maybe_worse":
		return DispersalLocal, nil
	case "global":
		return DispersalGlobal, nil
	}
	return "", fmt.Errorf("%w: unrecognised dispersal type %q (expected better, local, global)", ErrInvalidConfig, name)
}

// Validate rejects out-of-range values. It never clamps.
func (c *Config) Validate() error {
	d, err := ParseDispersal(string(c.Dispersal.Type))
	if err != nil {
		return err
	}
	c.Dispersal.Type = d

	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}
	prob := func(name string, v float64) {
		check(v >= 0 && v <= 1 && !math.IsNaN(v), "%s must be in [0,1], got %v", name, v)
	}

	check(c.Run.Timestep > 0, "run.timestep must be positive, got %v", c.Run.Timestep)
	check(c.Run.EndTime > 0, "run.end_time must be positive, got %v", c.Run.EndTime)
	check(c.Run.NumBins >= 1, "run.num_bins must be at least 1, got %d", c.Run.NumBins)
	check(c.Run.InitialBin >= 0 && c.Run.InitialBin < c.Run.NumBins,
		"run.initial_bin was outside of range, should be in [0,%d], got %d", c.Run.NumBins-1, c.Run.InitialBin)
	check(c.Run.InitialPopulation >= 0, "run.initial_population must not be negative")
	check(c.Run.MaxDemePopulation > 0, "run.max_deme_population must be positive")

	prob("genetics.mutation_prob", c.Genetics.MutationProb)
	prob("genetics.species_similarity", c.Genetics.SpeciesSimilarity)
	check(c.Genetics.TempDriftSD >= 0, "genetics.temp_drift_sd must not be negative")

	check(c.Mortality.MinViableTemp < c.Mortality.MaxViableTemp, "mortality viable range is empty")

	check(c.Breeding.MaxOffspring >= 0, "breeding.max_offspring must not be negative")
	check(c.Breeding.MaxAttempts >= 0, "breeding.max_attempts must not be negative")

	prob("dispersal.prob", c.Dispersal.Prob)
	prob("lowlands.to_prob", c.Lowlands.ToProb)
	prob("lowlands.from_prob", c.Lowlands.FromProb)
	check(c.Lowlands.AreaScale > 0, "lowlands.area_scale must be positive")

	check(c.Mountain.AncientHeightKm > 0, "mountain.ancient_height_km must be positive")
	check(c.Mountain.ErosionSpanMyr > 0, "mountain.erosion_span_myr must be positive")
	check(c.Mountain.AreaSigmaKm > 0, "mountain.area_sigma_km must be positive")
	// The Gaussian must stay a Gaussian for the whole run.
	check(c.Mountain.AreaSigmaKm-c.Mountain.AreaSigmaDeltaKyr*c.Run.EndTime*1000 > 0,
		"mountain.area_sigma_km shrinks to zero before run.end_time")

	check(c.Batch.Replicates >= 1, "batch.replicates must be at least 1")
	check(c.Batch.Workers >= 0, "batch.workers must not be negative")
	for name, r := range map[string]Range{
		"batch.vary.mutation_prob":      c.Batch.Vary.MutationProb,
		"batch.vary.species_similarity": c.Batch.Vary.SpeciesSimilarity,
	} {
		if r.Active() {
			prob(name+".min", r.Min)
			prob(name+".max", r.Max)
		}
	}
	if r := c.Batch.Vary.TempDriftSD; r.Active() {
		check(r.Min >= 0, "batch.vary.temp_drift_sd.min must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// ComputeDerived calculates values derived from loaded config. Call again
// after mutating genetics or mountain fields.
func (c *Config) ComputeDerived() {
	c.Derived.SimilarityBits = int(math.Floor(c.Genetics.SpeciesSimilarity * GenomeBits))
	c.Derived.ErosionPerKyr = (c.Mountain.AncientHeightKm - c.Mountain.PresentHeightKm) / (c.Mountain.ErosionSpanMyr * 1000)
	c.Derived.BinHeightKm = c.Mountain.AncientHeightKm / float64(c.Run.NumBins)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
