package viewskater

import (
	"runtime"
	"time"
)

// Default sizing for the viewer. The cache budget and window radii
// follow the two-pane comparison workload: a handful of full-size
// images around the cursor, biased toward the travel direction.
const (
	DefaultCacheBudget  = 512 << 20 // bytes of decoded pixels per pane
	DefaultBehindRadius = 2
	DefaultAheadRadius  = 3
	DefaultMaxInFlight  = 4

	DefaultKeyRepeat  = 50 * time.Millisecond
	DefaultSliderStep = 1

	DefaultResultBuffer = 64
)

// Config sizes a Viewer. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	// CacheBudget caps decoded pixel bytes held per pane.
	CacheBudget uint64

	// BehindRadius and AheadRadius size the cache window around the
	// current image. Ahead is measured in the travel direction.
	BehindRadius int
	AheadRadius  int

	// MaxInFlight bounds concurrent decodes per pane.
	MaxInFlight int

	// DecodeWorkers sizes the shared decode pool. Zero means NumCPU.
	DecodeWorkers int

	// ResultBuffer is the decode result channel depth.
	ResultBuffer int

	// AtlasLayerSize is the square dimension of each atlas layer.
	// Zero picks the atlas default.
	AtlasLayerSize int

	// AtlasMaxLayers caps atlas growth. Zero picks the atlas default.
	AtlasMaxLayers int

	// CompressTextures stores atlas layers block-compressed, trading
	// decode-time CPU for a 8:1 cut in GPU memory.
	CompressTextures bool

	// KeyRepeat is the interval between continuous-hold steps.
	KeyRepeat time.Duration

	// SliderStep is the index multiplier per slider tick.
	SliderStep int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		CacheBudget:   DefaultCacheBudget,
		BehindRadius:  DefaultBehindRadius,
		AheadRadius:   DefaultAheadRadius,
		MaxInFlight:   DefaultMaxInFlight,
		DecodeWorkers: runtime.NumCPU(),
		ResultBuffer:  DefaultResultBuffer,
		KeyRepeat:     DefaultKeyRepeat,
		SliderStep:    DefaultSliderStep,
	}
}
