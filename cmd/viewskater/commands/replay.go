package commands

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ggand0/viewskater"
	"github.com/ggand0/viewskater/internal/replay"
)

type replayOptions struct {
	configPath  string
	duration    time.Duration
	directions  []string
	iterations  int
	mode        string
	interval    int
	sliderStep  int
	skipInitial int
	output      string
	format      string
	autoExit    bool
	verbose     bool
}

// newReplayCmd builds the replay subcommand. The options struct is
// returned alongside for tests that parse flags without running.
func newReplayCmd() (*cobra.Command, *replayOptions) {
	o := &replayOptions{}
	cmd := &cobra.Command{
		Use:   "replay [directories...]",
		Short: "Benchmark navigation over image directories",
		Long: `Replay drives the viewer with synthesized navigation at a fixed
interval, samples frame rates and process memory, and writes a JSON or
markdown report. Directories come from positional arguments or a YAML
config file.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config(cmd.Flags(), args)
			if err != nil {
				return err
			}
			return runReplay(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.configPath, "config", "", "YAML config file; flags override its values")
	f.DurationVar(&o.duration, "duration", replay.DefaultDuration, "duration of each run")
	f.StringSliceVar(&o.directions, "directions", []string{"right"}, "navigation directions: right, left, both")
	f.IntVar(&o.iterations, "iterations", replay.DefaultIterations, "repeat the whole directory sweep")
	f.StringVar(&o.mode, "mode", "keyboard", "event synthesis mode: keyboard or slider")
	f.IntVar(&o.interval, "interval", int(replay.DefaultInterval.Milliseconds()), "milliseconds between navigation events")
	f.IntVar(&o.sliderStep, "slider-step", replay.DefaultSliderStep, "index delta per slider event")
	f.IntVar(&o.skipInitial, "skip-initial", 0, "leading samples excluded from aggregates")
	f.StringVar(&o.output, "output", "", "report file path; stdout when empty")
	f.StringVar(&o.format, "format", "markdown", "report format: json or markdown")
	f.BoolVar(&o.autoExit, "auto-exit", false, "exit after the report is written")
	f.BoolVar(&o.verbose, "verbose", false, "log per-run summaries")
	return cmd, o
}

// config merges defaults, the optional config file and explicitly set
// flags, in that order.
func (o *replayOptions) config(fs *pflag.FlagSet, args []string) (replay.Config, error) {
	cfg := replay.Default()
	if o.configPath != "" {
		loaded, err := replay.LoadFile(o.configPath)
		if err != nil {
			return replay.Config{}, err
		}
		cfg = loaded
	}

	if len(args) > 0 {
		cfg.Dirs = args
	}
	if fs.Changed("duration") {
		cfg.Duration = o.duration
	}
	if fs.Changed("directions") {
		cfg.Directions = cfg.Directions[:0]
		for _, d := range o.directions {
			cfg.Directions = append(cfg.Directions, replay.Direction(d))
		}
	}
	if fs.Changed("iterations") {
		cfg.Iterations = o.iterations
	}
	if fs.Changed("mode") {
		cfg.Mode = replay.Mode(o.mode)
	}
	if fs.Changed("interval") {
		cfg.Interval = time.Duration(o.interval) * time.Millisecond
	}
	if fs.Changed("slider-step") {
		cfg.SliderStep = o.sliderStep
	}
	if fs.Changed("skip-initial") {
		cfg.SkipInitial = o.skipInitial
	}
	if fs.Changed("output") {
		cfg.Output = o.output
	}
	if fs.Changed("format") {
		cfg.Format = replay.Format(o.format)
	}
	if fs.Changed("auto-exit") {
		cfg.AutoExit = o.autoExit
	}
	if fs.Changed("verbose") {
		cfg.Verbose = o.verbose
	}

	if err := cfg.Validate(); err != nil {
		return replay.Config{}, err
	}
	return cfg, nil
}

func runReplay(ctx context.Context, cfg replay.Config) error {
	log := viewskater.Logger()
	if cfg.Verbose {
		log = slog.New(slog.NewTextHandler(os.Stderr, nil))
		viewskater.SetLogger(log)
	}

	// The runner applies the slider step multiplier itself and sends
	// absolute positions, so the viewer keeps its default step of 1.
	v := viewskater.NewViewer(viewskater.DefaultConfig(), log)
	defer v.Close()

	r := replay.NewRunner(cfg, viewerDriver{v}, log)
	_, err := r.Run(ctx)
	return err
}

// viewerDriver adapts a Viewer to replay.Driver: the runner only needs
// the frame to advance, so FrameTick's draw items are discarded.
type viewerDriver struct {
	*viewskater.Viewer
}

var _ replay.Driver = viewerDriver{}

func (d viewerDriver) FrameTick() { d.Viewer.FrameTick() }
