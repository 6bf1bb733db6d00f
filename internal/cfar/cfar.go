package cfar

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/ironsheep/rmsat-cfar/internal/imaging"
)

var (
	// ErrInvalidProbability is returned for a false alarm probability outside (0, 1).
	ErrInvalidProbability = errors.New("probability of false alarm must be in (0, 1)")

	// ErrInvalidParameter is returned for a named parameter outside its range.
	ErrInvalidParameter = errors.New("invalid detector parameter")
)

// Named parameter keys.
const (
	KeyGuardRadius         = "guardRadius"
	KeyClutterRadius       = "clutterRadius"
	KeyMinimumMixtureCount = "minimumMixtureCount"
	KeyMaximumMixtureCount = "maximumMixtureCount"

	// KeyPrefix may precede any key.
	KeyPrefix = "RmSAT-CFAR."
)

// Parameter defaults.
const (
	DefaultGuardRadius         = 5
	DefaultClutterRadius       = 5
	DefaultMinimumMixtureCount = 1
	DefaultMaximumMixtureCount = 5
)

// Detector is the contract shared by the CFAR detector family.
type Detector interface {
	// Execute returns the target mask of img.
	Execute(img *imaging.Raster, pfa float64, params Parameters) (*image.Gray, error)

	// ClutterArea is the nominal number of clutter pixels around a tested pixel.
	ClutterArea(params Parameters) int

	// BandWidth is the halo a tile needs around its cell.
	BandWidth(params Parameters) int

	IsDeterministic() bool
	RequiresGlobalHistogram() bool
}

// Parameters holds named numeric detector settings.
type Parameters map[string]float64

// Value returns the value of key, also looking for the prefixed form, or def
// when neither is set. The bare key wins when both are present.
func (p Parameters) Value(key string, def float64) float64 {
	key = strings.TrimPrefix(key, KeyPrefix)
	if v, ok := p[key]; ok {
		return v
	}
	if v, ok := p[KeyPrefix+key]; ok {
		return v
	}
	return def
}

// Int returns Value truncated to an integer.
func (p Parameters) Int(key string, def int) int {
	return int(p.Value(key, float64(def)))
}

// settings are the validated RmSAT parameters.
type settings struct {
	guard, clutter     int
	minCount, maxCount int
}

func (s settings) window() int { return s.guard + s.clutter }

func parseParameters(p Parameters) (settings, error) {
	for k, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return settings{}, fmt.Errorf("%w: %s is %v", ErrInvalidParameter, k, v)
		}
	}

	s := settings{
		guard:    p.Int(KeyGuardRadius, DefaultGuardRadius),
		clutter:  p.Int(KeyClutterRadius, DefaultClutterRadius),
		minCount: p.Int(KeyMinimumMixtureCount, DefaultMinimumMixtureCount),
		maxCount: p.Int(KeyMaximumMixtureCount, DefaultMaximumMixtureCount),
	}
	switch {
	case s.guard < 0:
		return s, fmt.Errorf("%w: %s must not be negative, got %d", ErrInvalidParameter, KeyGuardRadius, s.guard)
	case s.clutter < 1:
		return s, fmt.Errorf("%w: %s must be at least 1, got %d", ErrInvalidParameter, KeyClutterRadius, s.clutter)
	case s.maxCount < 1:
		return s, fmt.Errorf("%w: %s must be at least 1, got %d", ErrInvalidParameter, KeyMaximumMixtureCount, s.maxCount)
	}
	s.minCount = max(min(s.minCount, s.maxCount), 1)
	return s, nil
}

func validateProbability(pfa float64) error {
	if !(pfa > 0 && pfa < 1) {
		return fmt.Errorf("%w: got %g", ErrInvalidProbability, pfa)
	}
	return nil
}

// ClutterArea returns (2W+1)² - (2G+1)² for guard radius G and window radius W.
func ClutterArea(guard, window int) int {
	w := 2*window + 1
	g := 2*guard + 1
	return w*w - g*g
}

// BandSize rounds radius up to a multiple of 8.
func BandSize(radius int) int {
	const block = 8
	return (radius + block - 1) / block * block
}
