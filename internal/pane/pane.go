// Package pane binds one viewing surface to its index, cache window,
// atlas and navigation controller, and synchronizes two panes for
// dual-pane comparison.
package pane

import (
	"log/slog"

	"github.com/ggand0/viewskater/internal/atlas"
	"github.com/ggand0/viewskater/internal/cache"
	"github.com/ggand0/viewskater/internal/index"
	"github.com/ggand0/viewskater/internal/nav"
)

// Pane is one viewing surface. All methods run on the owning loop.
type Pane struct {
	id   int
	ix   *index.Index
	win  *cache.Window
	at   *atlas.Atlas
	ctrl *nav.Controller
	log  *slog.Logger

	// slot is the atlas slot of the image currently on screen, if any.
	slot    atlas.Slot
	hasSlot bool
}

// New creates a pane over its collaborators. The atlas may be shared
// between panes; everything else is per pane.
func New(id int, ix *index.Index, win *cache.Window, at *atlas.Atlas, ctrl *nav.Controller, log *slog.Logger) *Pane {
	return &Pane{id: id, ix: ix, win: win, at: at, ctrl: ctrl, log: log}
}

// ID returns the pane identifier.
func (p *Pane) ID() int { return p.id }

// Index returns the pane's image collection.
func (p *Pane) Index() *index.Index { return p.ix }

// Cache returns the pane's CPU cache window.
func (p *Pane) Cache() *cache.Window { return p.win }

// Atlas returns the texture atlas serving this pane.
func (p *Pane) Atlas() *atlas.Atlas { return p.at }

// Controller returns the pane's navigation state machine.
func (p *Pane) Controller() *nav.Controller { return p.ctrl }

// Current returns the ordinal on screen.
func (p *Pane) Current() int { return p.ctrl.Current() }

// Handle feeds an input event to the pane's navigation state machine
// and applies the resulting directive to the cache window.
func (p *Pane) Handle(ev nav.Event) (nav.Directive, bool) {
	d, ok := p.ctrl.Handle(ev)
	if !ok {
		return nav.Directive{}, false
	}
	p.apply(d)
	return d, true
}

// Mirror applies a directive produced by the peer pane, clamped to this
// pane's collection. The navigation state machine is bypassed: a
// mirrored move is an index change and the window motion it implies,
// nothing more.
func (p *Pane) Mirror(d nav.Directive) {
	target := p.ix.Clamp(d.Target)
	p.ctrl.SetCurrent(target)
	if d.Burst {
		p.win.JumpTo(target, d.Dir)
		return
	}
	p.win.Advance(d.Dir, 1)
}

// SetSlot records the atlas slot drawn for the current image.
func (p *Pane) SetSlot(s atlas.Slot) {
	p.slot = s
	p.hasSlot = true
}

// ClearSlot forgets the current draw slot.
func (p *Pane) ClearSlot() { p.hasSlot = false }

// Slot returns the current draw slot, if one is resident.
func (p *Pane) Slot() (atlas.Slot, bool) {
	return p.slot, p.hasSlot
}

func (p *Pane) apply(d nav.Directive) {
	if d.Burst {
		p.win.JumpTo(d.Target, d.Dir)
		return
	}
	p.win.Advance(d.Dir, 1)
}

// Synchronizer routes input to a pane and mirrors index motion to its
// peer while sync is enabled.
type Synchronizer struct {
	a, b   *Pane
	synced bool
}

// Bind sets the pane pair and the initial sync state.
func (s *Synchronizer) Bind(a, b *Pane, synced bool) {
	s.a = a
	s.b = b
	s.synced = synced
}

// SetSynced flips pane sync. Unsync takes effect immediately; no
// catch-up motion is generated either way.
func (s *Synchronizer) SetSynced(on bool) { s.synced = on }

// Synced reports whether pane sync is active.
func (s *Synchronizer) Synced() bool { return s.synced }

// Route feeds an event to the target pane. When sync is on, the
// resulting directive is mirrored to the peer within the same call, so
// both panes observe the move on the same frame.
func (s *Synchronizer) Route(target *Pane, ev nav.Event) (nav.Directive, bool) {
	d, ok := target.Handle(ev)
	if !ok {
		return nav.Directive{}, false
	}
	if s.synced {
		if peer := s.peer(target); peer != nil {
			peer.Mirror(d)
		}
	}
	return d, true
}

func (s *Synchronizer) peer(p *Pane) *Pane {
	switch p {
	case s.a:
		return s.b
	case s.b:
		return s.a
	default:
		return nil
	}
}
