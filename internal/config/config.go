// Package config loads detector settings from a JSON file.
//
// Every field is optional. Omitted fields keep their defaults, which the Get*
// methods supply, so partial files are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/rmsat-cfar/internal/cfar"
	"github.com/ironsheep/rmsat-cfar/internal/detection"
	"github.com/ironsheep/rmsat-cfar/internal/mixture"
	"github.com/ironsheep/rmsat-cfar/internal/tiling"
)

// DefaultProbabilityOfFalseAlarm is used when the file does not set one.
const DefaultProbabilityOfFalseAlarm = 1e-4

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config holds the detector settings. The JSON keys match the tool arguments of
// the MCP server.
type Config struct {
	ProbabilityOfFalseAlarm *float64 `json:"probability_of_false_alarm,omitempty"`

	// Named detector parameters
	GuardRadius         *int `json:"guard_radius,omitempty"`
	ClutterRadius       *int `json:"clutter_radius,omitempty"`
	MinimumMixtureCount *int `json:"minimum_mixture_count,omitempty"`
	MaximumMixtureCount *int `json:"maximum_mixture_count,omitempty"`

	// Orchestration
	TileSize          *int  `json:"tile_size,omitempty"`
	MaxWorkers        *int  `json:"max_workers,omitempty"`
	NormalizeTiles    *bool `json:"normalize_tiles,omitempty"`
	CropToBoundingBox *bool `json:"crop_to_bounding_box,omitempty"`

	// Model fit
	HistogramSize    *int     `json:"histogram_size,omitempty"`
	MaximumExpansion *int     `json:"maximum_expansion,omitempty"`
	ComplexityWeight *float64 `json:"complexity_weight,omitempty"`
	Seed             *uint64  `json:"seed,omitempty"` // 0 seeds from the clock
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrUint64(v uint64) *uint64    { return &v }

// Default returns a Config with every field set to its default.
func Default() *Config {
	return &Config{
		ProbabilityOfFalseAlarm: ptrFloat64(DefaultProbabilityOfFalseAlarm),
		GuardRadius:             ptrInt(cfar.DefaultGuardRadius),
		ClutterRadius:           ptrInt(cfar.DefaultClutterRadius),
		MinimumMixtureCount:     ptrInt(cfar.DefaultMinimumMixtureCount),
		MaximumMixtureCount:     ptrInt(cfar.DefaultMaximumMixtureCount),
		TileSize:                ptrInt(tiling.DefaultTileSize),
		MaxWorkers:              ptrInt(runtime.GOMAXPROCS(0)),
		NormalizeTiles:          ptrBool(true),
		CropToBoundingBox:       ptrBool(false),
		HistogramSize:           ptrInt(mixture.DefaultHistogramSize),
		MaximumExpansion:        ptrInt(detection.DefaultMaximumExpansion),
		ComplexityWeight:        ptrFloat64(0),
		Seed:                    ptrUint64(0),
	}
}

// Load reads a Config from a JSON file. The path must have a .json extension
// and the file must be at most 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Merge overwrites the fields of c that are set in o.
func (c *Config) Merge(o *Config) {
	if o == nil {
		return
	}
	merge(&c.ProbabilityOfFalseAlarm, o.ProbabilityOfFalseAlarm)
	merge(&c.GuardRadius, o.GuardRadius)
	merge(&c.ClutterRadius, o.ClutterRadius)
	merge(&c.MinimumMixtureCount, o.MinimumMixtureCount)
	merge(&c.MaximumMixtureCount, o.MaximumMixtureCount)
	merge(&c.TileSize, o.TileSize)
	merge(&c.MaxWorkers, o.MaxWorkers)
	merge(&c.NormalizeTiles, o.NormalizeTiles)
	merge(&c.CropToBoundingBox, o.CropToBoundingBox)
	merge(&c.HistogramSize, o.HistogramSize)
	merge(&c.MaximumExpansion, o.MaximumExpansion)
	merge(&c.ComplexityWeight, o.ComplexityWeight)
	merge(&c.Seed, o.Seed)
}

func merge[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

// Validate checks the ranges of the fields that are set.
func (c *Config) Validate() error {
	if c.ProbabilityOfFalseAlarm != nil {
		if p := *c.ProbabilityOfFalseAlarm; !(p > 0 && p < 1) {
			return fmt.Errorf("probability_of_false_alarm must be in (0, 1), got %g", p)
		}
	}
	if c.GuardRadius != nil && *c.GuardRadius < 0 {
		return fmt.Errorf("guard_radius must be non-negative, got %d", *c.GuardRadius)
	}
	if c.ClutterRadius != nil && *c.ClutterRadius < 1 {
		return fmt.Errorf("clutter_radius must be at least 1, got %d", *c.ClutterRadius)
	}
	if c.MinimumMixtureCount != nil && *c.MinimumMixtureCount < 1 {
		return fmt.Errorf("minimum_mixture_count must be at least 1, got %d", *c.MinimumMixtureCount)
	}
	if c.MaximumMixtureCount != nil && *c.MaximumMixtureCount < 1 {
		return fmt.Errorf("maximum_mixture_count must be at least 1, got %d", *c.MaximumMixtureCount)
	}
	if c.GetMinimumMixtureCount() > c.GetMaximumMixtureCount() {
		return fmt.Errorf("minimum_mixture_count %d exceeds maximum_mixture_count %d",
			c.GetMinimumMixtureCount(), c.GetMaximumMixtureCount())
	}
	if c.TileSize != nil && *c.TileSize < 1 {
		return fmt.Errorf("tile_size must be positive, got %d", *c.TileSize)
	}
	if c.MaxWorkers != nil && *c.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be positive, got %d", *c.MaxWorkers)
	}
	if c.HistogramSize != nil && *c.HistogramSize < 2 {
		return fmt.Errorf("histogram_size must be at least 2, got %d", *c.HistogramSize)
	}
	if c.MaximumExpansion != nil && *c.MaximumExpansion < 2 {
		return fmt.Errorf("maximum_expansion must be at least 2, got %d", *c.MaximumExpansion)
	}
	if c.ComplexityWeight != nil && *c.ComplexityWeight < 0 {
		return fmt.Errorf("complexity_weight must be non-negative, got %g", *c.ComplexityWeight)
	}
	return nil
}

// GetProbabilityOfFalseAlarm returns the probability_of_false_alarm value or the default.
func (c *Config) GetProbabilityOfFalseAlarm() float64 {
	if c.ProbabilityOfFalseAlarm == nil {
		return DefaultProbabilityOfFalseAlarm
	}
	return *c.ProbabilityOfFalseAlarm
}

// GetGuardRadius returns the guard_radius value or the default.
func (c *Config) GetGuardRadius() int {
	if c.GuardRadius == nil {
		return cfar.DefaultGuardRadius
	}
	return *c.GuardRadius
}

// GetClutterRadius returns the clutter_radius value or the default.
func (c *Config) GetClutterRadius() int {
	if c.ClutterRadius == nil {
		return cfar.DefaultClutterRadius
	}
	return *c.ClutterRadius
}

// GetMinimumMixtureCount returns the minimum_mixture_count value or the default.
func (c *Config) GetMinimumMixtureCount() int {
	if c.MinimumMixtureCount == nil {
		return cfar.DefaultMinimumMixtureCount
	}
	return *c.MinimumMixtureCount
}

// GetMaximumMixtureCount returns the maximum_mixture_count value or the default.
func (c *Config) GetMaximumMixtureCount() int {
	if c.MaximumMixtureCount == nil {
		return cfar.DefaultMaximumMixtureCount
	}
	return *c.MaximumMixtureCount
}

// GetTileSize returns the tile_size value or the default.
func (c *Config) GetTileSize() int {
	if c.TileSize == nil {
		return tiling.DefaultTileSize
	}
	return *c.TileSize
}

// GetMaxWorkers returns the max_workers value or GOMAXPROCS.
func (c *Config) GetMaxWorkers() int {
	if c.MaxWorkers == nil {
		return runtime.GOMAXPROCS(0)
	}
	return *c.MaxWorkers
}

// GetNormalizeTiles returns the normalize_tiles value or the default.
func (c *Config) GetNormalizeTiles() bool {
	if c.NormalizeTiles == nil {
		return true
	}
	return *c.NormalizeTiles
}

// GetCropToBoundingBox returns the crop_to_bounding_box value or the default.
func (c *Config) GetCropToBoundingBox() bool {
	if c.CropToBoundingBox == nil {
		return false
	}
	return *c.CropToBoundingBox
}

// GetHistogramSize returns the histogram_size value or the default.
func (c *Config) GetHistogramSize() int {
	if c.HistogramSize == nil {
		return mixture.DefaultHistogramSize
	}
	return *c.HistogramSize
}

// GetMaximumExpansion returns the maximum_expansion value or the default.
func (c *Config) GetMaximumExpansion() int {
	if c.MaximumExpansion == nil {
		return detection.DefaultMaximumExpansion
	}
	return *c.MaximumExpansion
}

// GetComplexityWeight returns the complexity_weight value or the default.
func (c *Config) GetComplexityWeight() float64 {
	if c.ComplexityWeight == nil {
		return 0
	}
	return *c.ComplexityWeight
}

// GetSeed returns the seed, drawing one from the clock when it is unset or 0.
func (c *Config) GetSeed() uint64 {
	if c.Seed == nil || *c.Seed == 0 {
		return uint64(time.Now().UnixNano())
	}
	return *c.Seed
}

// Parameters returns the named detector parameters.
func (c *Config) Parameters() cfar.Parameters {
	return cfar.Parameters{
		cfar.KeyGuardRadius:         float64(c.GetGuardRadius()),
		cfar.KeyClutterRadius:       float64(c.GetClutterRadius()),
		cfar.KeyMinimumMixtureCount: float64(c.GetMinimumMixtureCount()),
		cfar.KeyMaximumMixtureCount: float64(c.GetMaximumMixtureCount()),
	}
}

// Options returns the orchestrator options. logger may be nil.
func (c *Config) Options(logger *zerolog.Logger) cfar.Options {
	return cfar.Options{
		TileSize:             c.GetTileSize(),
		MaxWorkers:           c.GetMaxWorkers(),
		HistogramSize:        c.GetHistogramSize(),
		MaximumExpansion:     c.GetMaximumExpansion(),
		ComplexityWeight:     c.GetComplexityWeight(),
		Seed:                 c.GetSeed(),
		DisableNormalization: !c.GetNormalizeTiles(),
		CropToBoundingBox:    c.GetCropToBoundingBox(),
		Logger:               logger,
	}
}
