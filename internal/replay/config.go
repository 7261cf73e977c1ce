// Package replay is the deterministic benchmark harness: it drives the
// navigation controller with synthesized events, samples frame rates
// and process memory while navigating, and emits a structured report.
package replay

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate before any run starts.
var ErrInvalidConfig = errors.New("replay: invalid configuration")

// Direction selects which way a run navigates.
type Direction string

const (
	// DirectionRight navigates forward through the collection.
	DirectionRight Direction = "right"
	// DirectionLeft navigates backward.
	DirectionLeft Direction = "left"
	// DirectionBoth runs right then left over the same directory.
	DirectionBoth Direction = "both"
)

// Mode selects how navigation events are synthesized.
type Mode string

const (
	// ModeKeyboard emits one adjacent step per interval.
	ModeKeyboard Mode = "keyboard"
	// ModeSlider emits absolute positions advancing by SliderStep.
	ModeSlider Mode = "slider"
)

// Format selects the report output format.
type Format string

const (
	// FormatJSON writes the report as JSON.
	FormatJSON Format = "json"
	// FormatMarkdown renders a table plus summary.
	FormatMarkdown Format = "markdown"
)

// Default harness settings.
const (
	DefaultDuration   = 10 * time.Second
	DefaultInterval   = 50 * time.Millisecond
	DefaultIterations = 1
	DefaultSliderStep = 1
)

// Config drives one harness invocation.
type Config struct {
	// Dirs are the image directories to benchmark, in order.
	Dirs []string

	// Duration is how long each direction runs per directory.
	Duration time.Duration

	// Directions lists the navigation directions to test.
	Directions []Direction

	// Iterations repeats the whole directory sweep.
	Iterations int

	// Mode selects keyboard or slider event synthesis.
	Mode Mode

	// Interval is the time between synthesized navigation events.
	Interval time.Duration

	// SliderStep is the index delta per slider event; slider mode only.
	SliderStep int

	// SkipInitial drops this many leading samples from aggregates to
	// exclude cold-cache warm-up. Raw logs keep them.
	SkipInitial int

	// Output is the report file path; empty writes to stdout.
	Output string

	// Format selects json or markdown output.
	Format Format

	// AutoExit signals process termination after the report is written.
	AutoExit bool

	// Verbose prints a per-run summary as runs complete.
	Verbose bool
}

// Default returns a Config with the documented defaults. Dirs must
// still be supplied.
func Default() Config {
	return Config{
		Duration:   DefaultDuration,
		Directions: []Direction{DirectionRight},
		Iterations: DefaultIterations,
		Mode:       ModeKeyboard,
		Interval:   DefaultInterval,
		SliderStep: DefaultSliderStep,
		Format:     FormatMarkdown,
	}
}

// Validate checks the configuration before any run starts.
func (c *Config) Validate() error {
	if len(c.Dirs) == 0 {
		return fmt.Errorf("%w: no test directories", ErrInvalidConfig)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration %v", ErrInvalidConfig, c.Duration)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval %v", ErrInvalidConfig, c.Interval)
	}
	if c.Iterations < 1 {
		return fmt.Errorf("%w: iterations %d", ErrInvalidConfig, c.Iterations)
	}
	if c.SliderStep < 1 {
		return fmt.Errorf("%w: slider step %d", ErrInvalidConfig, c.SliderStep)
	}
	if c.SkipInitial < 0 {
		return fmt.Errorf("%w: skip-initial %d", ErrInvalidConfig, c.SkipInitial)
	}
	if len(c.Directions) == 0 {
		return fmt.Errorf("%w: no directions", ErrInvalidConfig)
	}
	for _, d := range c.Directions {
		switch d {
		case DirectionRight, DirectionLeft, DirectionBoth:
		default:
			return fmt.Errorf("%w: unknown direction %q", ErrInvalidConfig, d)
		}
	}
	switch c.Mode {
	case ModeKeyboard, ModeSlider:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	switch c.Format {
	case FormatJSON, FormatMarkdown:
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, c.Format)
	}
	return nil
}

// ImagesPerSecond returns the synthesized navigation rate. For slider
// mode this is exact: (1000 / interval_ms) * slider_step.
func (c *Config) ImagesPerSecond() float64 {
	step := 1
	if c.Mode == ModeSlider {
		step = c.SliderStep
	}
	return 1000.0 / float64(c.Interval.Milliseconds()) * float64(step)
}

// fileConfig is the YAML shape of a harness config file. Durations are
// plain numbers matching the flag units.
type fileConfig struct {
	Dirs         []string `yaml:"dirs"`
	DurationSecs float64  `yaml:"duration_secs"`
	Directions   []string `yaml:"directions"`
	Iterations   int      `yaml:"iterations"`
	Mode         string   `yaml:"mode"`
	IntervalMs   int      `yaml:"interval_ms"`
	SliderStep   int      `yaml:"slider_step"`
	SkipInitial  int      `yaml:"skip_initial"`
	Output       string   `yaml:"output"`
	Format       string   `yaml:"format"`
	AutoExit     bool     `yaml:"auto_exit"`
	Verbose      bool     `yaml:"verbose"`
}

// LoadFile reads a YAML config file over the defaults. Zero fields in
// the file keep their defaults.
func LoadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("replay: read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg := Default()
	if len(fc.Dirs) > 0 {
		cfg.Dirs = fc.Dirs
	}
	if fc.DurationSecs > 0 {
		cfg.Duration = time.Duration(fc.DurationSecs * float64(time.Second))
	}
	if len(fc.Directions) > 0 {
		cfg.Directions = cfg.Directions[:0]
		for _, d := range fc.Directions {
			cfg.Directions = append(cfg.Directions, Direction(d))
		}
	}
	if fc.Iterations > 0 {
		cfg.Iterations = fc.Iterations
	}
	if fc.Mode != "" {
		cfg.Mode = Mode(fc.Mode)
	}
	if fc.IntervalMs > 0 {
		cfg.Interval = time.Duration(fc.IntervalMs) * time.Millisecond
	}
	if fc.SliderStep > 0 {
		cfg.SliderStep = fc.SliderStep
	}
	if fc.SkipInitial > 0 {
		cfg.SkipInitial = fc.SkipInitial
	}
	if fc.Output != "" {
		cfg.Output = fc.Output
	}
	if fc.Format != "" {
		cfg.Format = Format(fc.Format)
	}
	cfg.AutoExit = cfg.AutoExit || fc.AutoExit
	cfg.Verbose = cfg.Verbose || fc.Verbose
	return cfg, nil
}
