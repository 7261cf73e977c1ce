package replay

import (
	"log/slog"
	"time"
)

// State is the harness state machine's position.
type State int

const (
	// StateInactive means the harness has not started.
	StateInactive State = iota
	// StateLoadingDirectory waits for the directory scan.
	StateLoadingDirectory
	// StateWaitingForReady waits for the app to report the first image
	// on screen.
	StateWaitingForReady
	// StateNavigatingRight steps forward on the interval.
	StateNavigatingRight
	// StateNavigatingLeft steps backward on the interval.
	StateNavigatingLeft
	// StateFinished means every iteration completed.
	StateFinished
)

// String names the state for logs.
func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateLoadingDirectory:
		return "loading-directory"
	case StateWaitingForReady:
		return "waiting-for-ready"
	case StateNavigatingRight:
		return "navigating-right"
	case StateNavigatingLeft:
		return "navigating-left"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// ActionKind is what the runner should do next.
type ActionKind int

const (
	// ActionNone means keep waiting.
	ActionNone ActionKind = iota
	// ActionLoadDirectory asks the runner to load Action.Dir.
	ActionLoadDirectory
	// ActionNavigateRight asks for one forward step.
	ActionNavigateRight
	// ActionNavigateLeft asks for one backward step.
	ActionNavigateLeft
	// ActionFinish means the report can be written.
	ActionFinish
)

// Action is the controller's instruction to the runner.
type Action struct {
	Kind ActionKind
	// Dir is set for ActionLoadDirectory.
	Dir string
}

// Controller sequences runs across directories, directions and
// iterations. It is driven by Update calls with explicit timestamps,
// which keeps the machine deterministic under test. Not safe for
// concurrent use.
type Controller struct {
	cfg Config
	log *slog.Logger

	state    State
	dirIdx   int
	runIdx   int // position within the expanded per-directory run list
	runs     []Direction
	runStart time.Time
	lastNav  time.Time

	iteration int
	completed int
	current   *Metrics
	finished  []*Metrics
}

// NewController builds the state machine for a validated config.
func NewController(cfg Config, log *slog.Logger) *Controller {
	return &Controller{
		cfg:  cfg,
		log:  log,
		runs: expandDirections(cfg.Directions),
	}
}

// expandDirections flattens the direction set into the per-directory
// run sequence: "both" becomes right then left.
func expandDirections(dirs []Direction) []Direction {
	var runs []Direction
	for _, d := range dirs {
		switch d {
		case DirectionBoth:
			runs = append(runs, DirectionRight, DirectionLeft)
		default:
			runs = append(runs, d)
		}
	}
	return runs
}

// State returns the current machine state.
func (c *Controller) State() State { return c.state }

// Active reports whether a run sequence is underway.
func (c *Controller) Active() bool {
	return c.state != StateInactive && c.state != StateFinished
}

// Completed reports whether every iteration has finished.
func (c *Controller) Completed() bool {
	return c.state == StateFinished && c.completed >= c.cfg.Iterations
}

// Results returns the finished run metrics in completion order.
func (c *Controller) Results() []*Metrics { return c.finished }

// Iteration returns the 1-based iteration in progress.
func (c *Controller) Iteration() int { return c.iteration }

// Start begins the first iteration.
func (c *Controller) Start(now time.Time) Action {
	if len(c.cfg.Dirs) == 0 {
		c.state = StateFinished
		return Action{Kind: ActionFinish}
	}
	c.iteration = 1
	c.dirIdx = 0
	c.runIdx = 0
	c.state = StateLoadingDirectory
	c.lastNav = now
	if c.log != nil {
		c.log.Info("replay started",
			"iterations", c.cfg.Iterations,
			"directories", len(c.cfg.Dirs),
			"mode", string(c.cfg.Mode))
	}
	return Action{Kind: ActionLoadDirectory, Dir: c.cfg.Dirs[0]}
}

// DirectoryLoaded moves from loading to waiting-for-ready. A load
// signal for a stale directory is ignored.
func (c *Controller) DirectoryLoaded(dir string) {
	if c.state != StateLoadingDirectory || dir != c.cfg.Dirs[c.dirIdx] {
		return
	}
	c.state = StateWaitingForReady
}

// ReadyToNavigate starts the first run for the loaded directory once
// the app reports an image on screen.
func (c *Controller) ReadyToNavigate(now time.Time) {
	if c.state != StateWaitingForReady {
		return
	}
	c.beginRun(now)
}

// NavigationPerformed timestamps a completed step so the interval gate
// measures from actual navigation, not intent.
func (c *Controller) NavigationPerformed(now time.Time) {
	c.lastNav = now
	if c.current != nil {
		c.current.AddFrame()
	}
}

// RecordSample feeds one measurement row into the current run.
func (c *Controller) RecordSample(s Sample) {
	if c.current != nil {
		c.current.AddSample(s)
	}
}

// Update advances the machine and returns the next action. Navigation
// actions fire when the run is inside its duration and the interval
// has elapsed since the last performed step.
func (c *Controller) Update(now time.Time) Action {
	switch c.state {
	case StateNavigatingRight, StateNavigatingLeft:
		if now.Sub(c.runStart) >= c.cfg.Duration {
			c.finishRun(now)
			return c.nextRun(now)
		}
		if now.Sub(c.lastNav) >= c.cfg.Interval {
			if c.state == StateNavigatingRight {
				return Action{Kind: ActionNavigateRight}
			}
			return Action{Kind: ActionNavigateLeft}
		}
	}
	return Action{Kind: ActionNone}
}

func (c *Controller) beginRun(now time.Time) {
	dir := c.cfg.Dirs[c.dirIdx]
	direction := c.runs[c.runIdx]
	if direction == DirectionLeft {
		c.state = StateNavigatingLeft
	} else {
		c.state = StateNavigatingRight
	}
	c.runStart = now
	c.lastNav = now
	c.current = NewMetrics(dir, direction, c.cfg.SkipInitial, now)
	if c.log != nil {
		c.log.Info("replay run started",
			"directory", dir,
			"direction", string(direction),
			"iteration", c.iteration)
	}
}

func (c *Controller) finishRun(now time.Time) {
	if c.current == nil {
		return
	}
	c.current.Finalize(now)
	c.finished = append(c.finished, c.current)
	if c.cfg.Verbose && c.log != nil {
		m := c.current
		c.log.Info("replay run finished",
			"directory", m.Directory,
			"direction", string(m.Direction),
			"duration", m.Duration().Round(10*time.Millisecond),
			"frames", m.TotalFrames,
			"image_fps_avg", m.AvgImageFPS)
	}
	c.current = nil
}

// nextRun advances to the next direction, directory or iteration.
func (c *Controller) nextRun(now time.Time) Action {
	c.runIdx++
	if c.runIdx < len(c.runs) {
		// Same directory, next direction; the collection is already
		// loaded and warm.
		c.beginRun(now)
		return Action{Kind: ActionNone}
	}

	c.runIdx = 0
	c.dirIdx++
	if c.dirIdx < len(c.cfg.Dirs) {
		c.state = StateLoadingDirectory
		return Action{Kind: ActionLoadDirectory, Dir: c.cfg.Dirs[c.dirIdx]}
	}

	c.completed++
	if c.completed < c.cfg.Iterations {
		c.iteration++
		c.dirIdx = 0
		c.state = StateLoadingDirectory
		if c.log != nil {
			c.log.Info("replay iteration finished", "completed", c.completed, "total", c.cfg.Iterations)
		}
		return Action{Kind: ActionLoadDirectory, Dir: c.cfg.Dirs[0]}
	}

	c.state = StateFinished
	if c.log != nil {
		c.log.Info("replay finished", "runs", len(c.finished), "iterations", c.completed)
	}
	return Action{Kind: ActionFinish}
}
