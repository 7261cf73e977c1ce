// Package cache implements the CPU cache window: a bounded, ordinal-keyed
// cache of decoded pixel buffers centered on the current viewing position,
// with direction-aware prefetch and byte-budget eviction.
//
// The window is owned by a single goroutine (the owning loop). Decode
// workers never touch it; their results arrive through the decode
// handoff channel and are applied via CompleteDecode.
package cache

import (
	"log/slog"
	"sort"

	"github.com/ggand0/viewskater/internal/index"
	"github.com/ggand0/viewskater/internal/nav"
	"github.com/ggand0/viewskater/internal/pix"
)

// State is the lifecycle state of a cache entry.
type State int

const (
	// Pending is queued for decode but not yet started.
	Pending State = iota
	// Decoding has a decode task in flight.
	Decoding
	// Ready holds a decoded pixel buffer.
	Ready
	// Failed decoded unsuccessfully; permanent until the directory is
	// reloaded. Rendered as a placeholder.
	Failed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Decoding:
		return "decoding"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is the immediate result of a Request.
type Status int

const (
	// StatusReady means the pixel buffer was returned synchronously.
	StatusReady Status = iota
	// StatusPending means interest is registered; the buffer arrives
	// through a later CompleteDecode.
	StatusPending
	// StatusFailed means the entry decoded unsuccessfully.
	StatusFailed
	// StatusOutOfRange means the ordinal is outside the index.
	StatusOutOfRange
)

// Scheduler queues a decode for an image. Implemented by decode.Decoder.
type Scheduler interface {
	Schedule(index.ImageID)
}

// Config sizes the window. All fields are read-only after construction.
type Config struct {
	// BudgetBytes caps the sum of Ready pixel buffer sizes.
	BudgetBytes uint64
	// BehindRadius is the window radius opposite the travel direction.
	BehindRadius int
	// AheadRadius is the window radius in the travel direction.
	// Biased larger than BehindRadius for prefetch.
	AheadRadius int
	// MaxInFlight bounds concurrent decode tasks issued by this window.
	// Zero means 4. Queued-but-unstarted requests beyond this bound can
	// still be clipped on a direction reversal.
	MaxInFlight int
}

// Stats counts window activity.
type Stats struct {
	Hits          uint64
	Misses        uint64
	DecodesIssued uint64
	Evictions     uint64
}

type entry struct {
	id        index.ImageID
	state     State
	pixmap    *pix.Pixmap
	lastTouch int64
}

// Window is the CPU cache window for one pane.
type Window struct {
	ix    *index.Index
	cfg   Config
	sched Scheduler
	log   *slog.Logger

	entries    map[int]*entry
	pending    []int // FIFO of Pending ordinals awaiting a pool slot
	inFlight   int
	current    int
	dir        nav.Direction
	readyBytes uint64
	tick       int64
	stats      Stats

	// onEvict releases the atlas slot for the same image; eviction here
	// is the one direction of the reconciliation between the two maps.
	onEvict func(index.ImageID)
}

// NewWindow creates a cache window over ix, scheduling decodes on sched.
func NewWindow(ix *index.Index, cfg Config, sched Scheduler, log *slog.Logger) *Window {
	if cfg.BehindRadius < 0 {
		cfg.BehindRadius = 0
	}
	if cfg.AheadRadius < 1 {
		cfg.AheadRadius = 1
	}
	if cfg.MaxInFlight < 1 {
		cfg.MaxInFlight = 4
	}
	return &Window{
		ix:      ix,
		cfg:     cfg,
		sched:   sched,
		log:     log,
		entries: make(map[int]*entry),
	}
}

// OnEvict registers the hook called whenever a Ready entry is dropped.
func (w *Window) OnEvict(fn func(index.ImageID)) { w.onEvict = fn }

// Current returns the current ordinal.
func (w *Window) Current() int { return w.current }

// ReadyBytes returns the sum of Ready pixel buffer sizes.
func (w *Window) ReadyBytes() uint64 { return w.readyBytes }

// InFlight returns the number of decode tasks currently executing.
func (w *Window) InFlight() int { return w.inFlight }

// Stats returns a copy of the activity counters.
func (w *Window) Stats() Stats { return w.stats }

// StateOf returns the state of ordinal i and whether it is tracked.
func (w *Window) StateOf(i int) (State, bool) {
	e, ok := w.entries[i]
	if !ok {
		return 0, false
	}
	return e.state, true
}

// Request returns the pixel buffer for ordinal i if it is Ready, or
// registers interest and queues a decode. It never blocks: the caller
// is the per-frame render path.
//
// Requesting an out-of-range ordinal is a no-op returning
// StatusOutOfRange. Requesting an already-Ready ordinal returns the same
// buffer without re-triggering decode.
func (w *Window) Request(i int) (*pix.Pixmap, Status) {
	if !w.ix.Contains(i) {
		return nil, StatusOutOfRange
	}

	w.tick++
	if e, ok := w.entries[i]; ok {
		e.lastTouch = w.tick
		switch e.state {
		case Ready:
			w.stats.Hits++
			return e.pixmap, StatusReady
		case Failed:
			return nil, StatusFailed
		default:
			return nil, StatusPending
		}
	}

	w.stats.Misses++
	id, err := w.ix.At(i)
	if err != nil {
		return nil, StatusOutOfRange
	}

	w.entries[i] = &entry{id: id, state: Pending, lastTouch: w.tick}
	w.pending = append(w.pending, i)
	w.pump()
	return nil, StatusPending
}

// pump starts queued decodes while pool slots remain. This is the only
// Pending -> Decoding transition, which keeps at most one decode task in
// flight per ordinal.
func (w *Window) pump() {
	for w.inFlight < w.cfg.MaxInFlight && len(w.pending) > 0 {
		i := w.pending[0]
		w.pending = w.pending[1:]
		e, ok := w.entries[i]
		if !ok || e.state != Pending {
			continue // clipped or already resolved
		}
		e.state = Decoding
		w.inFlight++
		w.stats.DecodesIssued++
		w.sched.Schedule(e.id)
	}
}

// Advance slides the window: the current ordinal moves count steps in
// dir, prefetch is issued for the new window, and entries outside it are
// dropped. A direction reversal clears not-yet-started prefetch on the
// now-stale side; in-flight decodes are left to complete.
func (w *Window) Advance(dir nav.Direction, count int) {
	if dir != nav.None && w.dir != nav.None && dir != w.dir {
		w.clipStalePrefetch(dir)
	}
	if dir != nav.None {
		w.dir = dir
	}
	w.current = w.ix.Clamp(w.current + dir.Step()*count)
	w.prefetch()
	w.EvictOutside()
}

// JumpTo moves the window to an absolute ordinal (slider mode) and
// burst-requests the landing window. Pending prefetch from the old
// position is cleared; in-flight decodes still land in the cache.
func (w *Window) JumpTo(i int, dir nav.Direction) {
	i = w.ix.Clamp(i)
	if dir != nav.None {
		w.dir = dir
	}
	w.clipAllPending()
	w.current = i
	w.Request(i)
	w.prefetch()
	w.EvictOutside()
}

// CompleteDecode applies a drained decode result. Decoded work is never
// wasted: a buffer arriving for an ordinal no longer tracked is
// re-admitted and the budget reconciled afterwards.
func (w *Window) CompleteDecode(id index.ImageID, pm *pix.Pixmap, err error) {
	if id.Dir != w.ix.DirID() {
		// Result from a directory that has been replaced.
		return
	}

	e, ok := w.entries[id.Ordinal]
	if ok && e.state == Decoding {
		w.inFlight--
	}
	if !ok {
		e = &entry{id: id}
		w.entries[id.Ordinal] = e
	}

	if err != nil {
		e.state = Failed
		e.pixmap = nil
		if w.log != nil {
			w.log.Warn("image decode failed", "image", id.String(), "err", err)
		}
		w.pump()
		return
	}

	if e.state == Ready {
		w.pump()
		return // duplicate completion; keep the existing buffer
	}
	e.state = Ready
	e.pixmap = pm
	w.tick++
	e.lastTouch = w.tick
	w.readyBytes += pm.SizeBytes()
	w.enforceBudget()
	w.pump()
}

// EvictOutside drops entries whose distance from the current ordinal
// exceeds the window radius on their side. Decoding entries are skipped;
// they complete and are reconciled on the next pass. Failed entries stay
// tracked so they are not re-decoded.
func (w *Window) EvictOutside() {
	behind, ahead := w.orientedRadii()
	for i, e := range w.entries {
		d := i - w.current
		if d >= -behind && d <= ahead {
			continue
		}
		switch e.state {
		case Decoding, Failed:
			continue
		case Ready:
			w.evict(i, e)
		default: // Pending
			delete(w.entries, i)
		}
	}
}

// enforceBudget evicts Ready entries until the budget holds, choosing
// the entry with the largest index distance from the current position.
// At equal distance the behind-entry is evicted first. The entry at the
// current ordinal itself is exempt.
func (w *Window) enforceBudget() {
	if w.cfg.BudgetBytes == 0 {
		return
	}
	for w.readyBytes > w.cfg.BudgetBytes {
		i, e := w.farthestReady()
		if e == nil {
			return
		}
		w.evict(i, e)
	}
}

func (w *Window) farthestReady() (int, *entry) {
	victimIdx := -1
	var victim *entry
	victimDist := -1
	victimBehind := false

	for i, e := range w.entries {
		if e.state != Ready || i == w.current {
			continue
		}
		d := i - w.current
		behind := (w.aheadIsPositive() && d < 0) || (!w.aheadIsPositive() && d > 0)
		if d < 0 {
			d = -d
		}
		if d > victimDist || (d == victimDist && behind && !victimBehind) {
			victimIdx, victim = i, e
			victimDist = d
			victimBehind = behind
		}
	}
	return victimIdx, victim
}

// evict drops a Ready entry's buffer and fires the release hook.
func (w *Window) evict(i int, e *entry) {
	w.readyBytes -= e.pixmap.SizeBytes()
	e.pixmap = nil
	delete(w.entries, i)
	w.stats.Evictions++
	if w.onEvict != nil {
		w.onEvict(e.id)
	}
}

// prefetch requests every ordinal inside the window that is not yet
// tracked, nearest first so adjacent images win pool slots.
func (w *Window) prefetch() {
	behind, ahead := w.orientedRadii()

	var wanted []int
	for i := w.current - behind; i <= w.current+ahead; i++ {
		if !w.ix.Contains(i) {
			continue
		}
		if _, ok := w.entries[i]; ok {
			continue
		}
		wanted = append(wanted, i)
	}
	sort.Slice(wanted, func(a, b int) bool {
		da, db := wanted[a]-w.current, wanted[b]-w.current
		if da < 0 {
			da = -da
		}
		if db < 0 {
			db = -db
		}
		return da < db
	})
	for _, i := range wanted {
		w.Request(i)
	}
}

// clipStalePrefetch deletes Pending entries on the side made stale by a
// reversal toward newDir. Decoding entries are untouched.
func (w *Window) clipStalePrefetch(newDir nav.Direction) {
	for i, e := range w.entries {
		if e.state != Pending {
			continue
		}
		stale := (newDir == nav.Backward && i > w.current) ||
			(newDir == nav.Forward && i < w.current)
		if stale {
			delete(w.entries, i)
		}
	}
}

// clipAllPending clears every not-yet-started prefetch request.
func (w *Window) clipAllPending() {
	for i, e := range w.entries {
		if e.state == Pending {
			delete(w.entries, i)
		}
	}
	w.pending = w.pending[:0]
}

// orientedRadii maps the behind/ahead radii onto ordinal space: ahead
// points toward increasing ordinals unless travelling backward.
func (w *Window) orientedRadii() (lo, hi int) {
	if w.aheadIsPositive() {
		return w.cfg.BehindRadius, w.cfg.AheadRadius
	}
	return w.cfg.AheadRadius, w.cfg.BehindRadius
}

func (w *Window) aheadIsPositive() bool {
	return w.dir != nav.Backward
}
