package replay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Driver is the harness's view of the application under test. The
// Viewer implements it; tests substitute fakes.
type Driver interface {
	// LoadDirectory replaces the collection under navigation.
	LoadDirectory(path string) error

	// Ready reports whether the first image is on screen.
	Ready() bool

	// Length returns the loaded collection size.
	Length() int

	// NavigateRight and NavigateLeft perform one adjacent step.
	NavigateRight()
	NavigateLeft()

	// JumpTo moves to an absolute ordinal (slider synthesis).
	JumpTo(pos int)

	// FrameTick advances the owning loop one frame.
	FrameTick()

	// Rates returns the current UI and image display rates.
	Rates() (uiFPS, imageFPS float64)
}

// Runner drives a Driver through the configured runs and writes the
// report.
type Runner struct {
	cfg  Config
	ctrl *Controller
	drv  Driver
	log  *slog.Logger

	// SampleCadence is the measurement interval. Defaults to 500ms.
	SampleCadence time.Duration

	sliderPos int
	exit      chan struct{}
}

// NewRunner wires a validated config to a driver.
func NewRunner(cfg Config, drv Driver, log *slog.Logger) *Runner {
	return &Runner{
		cfg:           cfg,
		ctrl:          NewController(cfg, log),
		drv:           drv,
		log:           log,
		SampleCadence: 500 * time.Millisecond,
		exit:          make(chan struct{}),
	}
}

// ExitRequested is closed after the report is written when AutoExit is
// configured.
func (r *Runner) ExitRequested() <-chan struct{} { return r.exit }

// Run executes every configured run and writes the report. The memory
// sampler runs beside the frame loop; both stop when the sequence
// finishes or the context is cancelled.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	if err := r.cfg.Validate(); err != nil {
		return Report{}, err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sampler := NewMemorySampler(r.SampleCadence)
	g, loopCtx := errgroup.WithContext(loopCtx)
	g.Go(func() error {
		return sampler.Run(loopCtx)
	})

	var report Report
	g.Go(func() error {
		defer cancel()
		rep, err := r.loop(loopCtx, sampler)
		if err != nil {
			return err
		}
		report = rep
		return nil
	})

	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	if err := report.Write(r.cfg); err != nil {
		return Report{}, err
	}
	if r.cfg.AutoExit {
		close(r.exit)
	}
	return report, nil
}

// frameInterval is the cadence of the owning loop while the harness
// drives it. Half the navigation interval keeps the interval gate
// accurate; the floor bounds CPU spin for very small intervals.
func (r *Runner) frameInterval() time.Duration {
	fi := r.cfg.Interval / 2
	if fi < 2*time.Millisecond {
		fi = 2 * time.Millisecond
	}
	return fi
}

func (r *Runner) loop(ctx context.Context, sampler *MemorySampler) (Report, error) {
	ticker := time.NewTicker(r.frameInterval())
	defer ticker.Stop()

	action := r.ctrl.Start(time.Now())
	lastSample := time.Now()

	for {
		select {
		case <-ctx.Done():
			return Report{}, ctx.Err()
		case <-ticker.C:
		}
		now := time.Now()

		if done, err := r.dispatch(action, now); err != nil {
			return Report{}, err
		} else if done {
			return BuildReport(r.ctrl.Results(), r.cfg.Iterations), nil
		}

		if r.ctrl.State() == StateWaitingForReady && r.drv.Ready() {
			r.ctrl.ReadyToNavigate(now)
			r.resetSlider()
		}

		r.drv.FrameTick()

		if now.Sub(lastSample) >= r.SampleCadence {
			lastSample = now
			ui, img := r.drv.Rates()
			r.ctrl.RecordSample(Sample{At: now, UIFPS: ui, ImageFPS: img, MemoryMB: sampler.Latest()})
		}

		action = r.ctrl.Update(now)
	}
}

// dispatch executes one controller action. Returns done=true when the
// sequence is finished.
func (r *Runner) dispatch(a Action, now time.Time) (bool, error) {
	switch a.Kind {
	case ActionLoadDirectory:
		if err := r.drv.LoadDirectory(a.Dir); err != nil {
			return false, fmt.Errorf("replay: load %s: %w", a.Dir, err)
		}
		r.ctrl.DirectoryLoaded(a.Dir)
	case ActionNavigateRight:
		r.navigate(1)
		r.ctrl.NavigationPerformed(now)
	case ActionNavigateLeft:
		r.navigate(-1)
		r.ctrl.NavigationPerformed(now)
	case ActionFinish:
		return true, nil
	}
	return false, nil
}

// navigate synthesizes one event. Keyboard mode steps; slider mode
// advances an absolute position by the step multiplier, which is what
// makes images_per_second exact.
func (r *Runner) navigate(sign int) {
	if r.cfg.Mode == ModeKeyboard {
		if sign > 0 {
			r.drv.NavigateRight()
		} else {
			r.drv.NavigateLeft()
		}
		return
	}

	r.sliderPos += sign * r.cfg.SliderStep
	if max := r.drv.Length() - 1; r.sliderPos > max {
		r.sliderPos = max
	}
	if r.sliderPos < 0 {
		r.sliderPos = 0
	}
	r.drv.JumpTo(r.sliderPos)
}

// resetSlider starts slider runs from the end matching the direction.
func (r *Runner) resetSlider() {
	if r.cfg.Mode != ModeSlider {
		return
	}
	switch r.ctrl.State() {
	case StateNavigatingLeft:
		r.sliderPos = r.drv.Length() - 1
		if r.sliderPos < 0 {
			r.sliderPos = 0
		}
	default:
		r.sliderPos = 0
	}
	r.drv.JumpTo(r.sliderPos)
}
