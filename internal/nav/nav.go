// Package nav translates input events into navigation directives.
//
// Continuous key-hold ("skate") and slider drag are explicit states in a
// finite state machine, so illegal combinations such as a simultaneous
// hold and drag cannot be represented.
package nav

import (
	"fmt"
	"time"
)

// Direction is the active navigation direction.
type Direction int

const (
	// None means no directional bias.
	None Direction = iota
	// Forward moves toward higher ordinals.
	Forward
	// Backward moves toward lower ordinals.
	Backward
)

// String returns a human-readable name for the direction.
func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "none"
	}
}

// Step returns the ordinal delta for one step in this direction.
func (d Direction) Step() int {
	switch d {
	case Forward:
		return 1
	case Backward:
		return -1
	default:
		return 0
	}
}

// Mode is the input mode driving navigation.
type Mode int

const (
	// Keyboard navigation moves by adjacent steps.
	Keyboard Mode = iota
	// Slider navigation jumps to absolute positions.
	Slider
)

// String returns a human-readable name for the mode.
func (m Mode) String() string {
	if m == Slider {
		return "slider"
	}
	return "keyboard"
}

// state is the controller's FSM state.
type state int

const (
	stateIdle state = iota
	stateContinuousHold
	stateSliderDrag
)

// Event is an input event consumed by the Controller.
type Event struct {
	Kind EventKind
	// Dir applies to KeyDown.
	Dir Direction
	// Pos applies to SliderMove: absolute target ordinal before the
	// step multiplier.
	Pos int
	// At is the event timestamp; zero means time.Now.
	At time.Time
}

// EventKind discriminates input events.
type EventKind int

const (
	// KeyDown starts or redirects a continuous hold.
	KeyDown EventKind = iota
	// KeyUp ends a continuous hold.
	KeyUp
	// SliderPress starts a slider drag.
	SliderPress
	// SliderMove moves the slider to an absolute position.
	SliderMove
	// SliderRelease ends a slider drag.
	SliderRelease
	// Tick fires repeat steps while a hold is active.
	Tick
)

// Directive is the output of a transition, consumed by the owning loop.
type Directive struct {
	// Target is the new current ordinal.
	Target int
	// Dir is the direction hint for prefetch bias.
	Dir Direction
	// Mode distinguishes adjacent-step from direct-jump loading.
	Mode Mode
	// Burst requests loading the full window around Target at once,
	// set for direct jumps where incremental sliding cannot help.
	Burst bool
}

// Controller is the per-pane navigation state machine. It owns the
// current index and emits directives; it never touches cache or atlas
// state directly. Not safe for concurrent use: the owning loop is the
// only caller.
type Controller struct {
	length     int
	current    int
	st         state
	holdDir    Direction
	repeat     time.Duration
	sliderStep int
	lastAction time.Time
}

// NewController creates a controller over a collection of length images.
// repeat is the interval between continuous-hold steps; sliderStep is
// the multiplier applied per discrete slider tick (minimum 1).
func NewController(length int, repeat time.Duration, sliderStep int) *Controller {
	if sliderStep < 1 {
		sliderStep = 1
	}
	return &Controller{
		length:     length,
		repeat:     repeat,
		sliderStep: sliderStep,
	}
}

// Current returns the current ordinal.
func (c *Controller) Current() int { return c.current }

// SetCurrent moves the controller without emitting a directive.
// Used by the pane synchronizer to mirror an index change.
func (c *Controller) SetCurrent(i int) {
	c.current = c.clamp(i)
}

// Length returns the collection length the controller was built for.
func (c *Controller) Length() int { return c.length }

// Holding reports whether a continuous hold is active and its direction.
func (c *Controller) Holding() (Direction, bool) {
	if c.st != stateContinuousHold {
		return None, false
	}
	return c.holdDir, true
}

// Dragging reports whether a slider drag is active.
func (c *Controller) Dragging() bool { return c.st == stateSliderDrag }

// String describes the controller state for logging.
func (c *Controller) String() string {
	switch c.st {
	case stateContinuousHold:
		return fmt.Sprintf("ContinuousHold(%s)@%d", c.holdDir, c.current)
	case stateSliderDrag:
		return fmt.Sprintf("SliderDrag@%d", c.current)
	default:
		return fmt.Sprintf("Idle@%d", c.current)
	}
}

// Handle applies an event and returns the resulting directive, if any.
// Events that produce no index change (key-up, out-of-range ticks,
// presses) return ok=false.
func (c *Controller) Handle(ev Event) (Directive, bool) {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	switch ev.Kind {
	case KeyDown:
		if ev.Dir == None {
			return Directive{}, false
		}
		// Slider drag swallows key input; holds may redirect.
		if c.st == stateSliderDrag {
			return Directive{}, false
		}
		c.st = stateContinuousHold
		c.holdDir = ev.Dir
		c.lastAction = at
		return c.step(ev.Dir)

	case KeyUp:
		if c.st == stateContinuousHold {
			c.st = stateIdle
			c.holdDir = None
		}
		return Directive{}, false

	case Tick:
		if c.st != stateContinuousHold {
			return Directive{}, false
		}
		if at.Sub(c.lastAction) < c.repeat {
			return Directive{}, false
		}
		c.lastAction = at
		return c.step(c.holdDir)

	case SliderPress:
		// Entering a drag ends any hold.
		c.st = stateSliderDrag
		c.holdDir = None
		return Directive{}, false

	case SliderMove:
		if c.st != stateSliderDrag {
			c.st = stateSliderDrag
		}
		return c.jump(ev.Pos)

	case SliderRelease:
		if c.st == stateSliderDrag {
			c.st = stateIdle
		}
		return Directive{}, false
	}
	return Directive{}, false
}

// step emits one adjacent step in dir, clamped to bounds.
func (c *Controller) step(dir Direction) (Directive, bool) {
	next := c.clamp(c.current + dir.Step())
	if next == c.current {
		return Directive{}, false
	}
	c.current = next
	return Directive{
		Target: next,
		Dir:    dir,
		Mode:   Keyboard,
	}, true
}

// jump emits a direct jump to pos scaled by the step multiplier.
func (c *Controller) jump(pos int) (Directive, bool) {
	target := c.clamp(pos * c.sliderStep)
	dir := None
	switch {
	case target > c.current:
		dir = Forward
	case target < c.current:
		dir = Backward
	}
	if target == c.current {
		return Directive{}, false
	}
	c.current = target
	return Directive{
		Target: target,
		Dir:    dir,
		Mode:   Slider,
		Burst:  true,
	}, true
}

func (c *Controller) clamp(i int) int {
	if i < 0 {
		return 0
	}
	if i >= c.length {
		if c.length == 0 {
			return 0
		}
		return c.length - 1
	}
	return i
}
