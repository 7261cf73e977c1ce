package replay

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Default()
	cfg.Dirs = []string{"/tmp/images"}
	return cfg
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults with dirs", func(c *Config) {}, true},
		{"no dirs", func(c *Config) { c.Dirs = nil }, false},
		{"zero duration", func(c *Config) { c.Duration = 0 }, false},
		{"zero interval", func(c *Config) { c.Interval = 0 }, false},
		{"zero iterations", func(c *Config) { c.Iterations = 0 }, false},
		{"zero slider step", func(c *Config) { c.SliderStep = 0 }, false},
		{"negative skip", func(c *Config) { c.SkipInitial = -1 }, false},
		{"no directions", func(c *Config) { c.Directions = nil }, false},
		{"unknown direction", func(c *Config) { c.Directions = []Direction{"sideways"} }, false},
		{"both direction", func(c *Config) { c.Directions = []Direction{DirectionBoth} }, true},
		{"unknown mode", func(c *Config) { c.Mode = "mouse" }, false},
		{"slider mode", func(c *Config) { c.Mode = ModeSlider }, true},
		{"unknown format", func(c *Config) { c.Format = "xml" }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestImagesPerSecond(t *testing.T) {
	cfg := validConfig()
	cfg.Interval = 50 * time.Millisecond
	assert.Equal(t, 20.0, cfg.ImagesPerSecond())

	cfg.Mode = ModeSlider
	cfg.Interval = 20 * time.Millisecond
	cfg.SliderStep = 1
	assert.Equal(t, 50.0, cfg.ImagesPerSecond())

	cfg.Interval = 50 * time.Millisecond
	cfg.SliderStep = 2
	assert.Equal(t, 40.0, cfg.ImagesPerSecond())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.yaml")
	doc := `dirs:
  - /data/a
  - /data/b
duration_secs: 2.5
directions: [both]
mode: slider
interval_ms: 20
slider_step: 3
skip_initial: 2
format: json
auto_exit: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/data/a", "/data/b"}, cfg.Dirs)
	assert.Equal(t, 2500*time.Millisecond, cfg.Duration)
	assert.Equal(t, []Direction{DirectionBoth}, cfg.Directions)
	assert.Equal(t, ModeSlider, cfg.Mode)
	assert.Equal(t, 20*time.Millisecond, cfg.Interval)
	assert.Equal(t, 3, cfg.SliderStep)
	assert.Equal(t, 2, cfg.SkipInitial)
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.True(t, cfg.AutoExit)

	// Absent fields keep their defaults.
	assert.Equal(t, DefaultIterations, cfg.Iterations)
	assert.Empty(t, cfg.Output)
	assert.False(t, cfg.Verbose)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dirs: [unclosed"), 0o644))
	_, err := LoadFile(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
