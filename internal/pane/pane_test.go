package pane

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ggand0/viewskater/internal/atlas"
	"github.com/ggand0/viewskater/internal/cache"
	"github.com/ggand0/viewskater/internal/index"
	"github.com/ggand0/viewskater/internal/nav"
)

type nopSched struct {
	count int
}

func (s *nopSched) Schedule(index.ImageID) { s.count++ }

func testIndex(t *testing.T, n int) *index.Index {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		name := filepath.Join(dir, fmt.Sprintf("img_%03d.png", i))
		if err := os.WriteFile(name, []byte{0}, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	ix, err := index.Scan(dir)
	if err != nil {
		t.Fatal(err)
	}
	return ix
}

func testPane(t *testing.T, id, n int, sched cache.Scheduler) *Pane {
	t.Helper()
	ix := testIndex(t, n)
	win := cache.NewWindow(ix, cache.Config{BehindRadius: 1, AheadRadius: 2}, sched, nil)
	at := atlas.New(atlas.Config{LayerSize: 256}, nil)
	ctrl := nav.NewController(ix.Len(), 50*time.Millisecond, 1)
	return New(id, ix, win, at, ctrl, nil)
}

func TestHandleMovesCacheAndController(t *testing.T) {
	s := &nopSched{}
	p := testPane(t, 0, 10, s)

	d, ok := p.Handle(nav.Event{Kind: nav.KeyDown, Dir: nav.Forward})
	if !ok {
		t.Fatal("key down produced no directive")
	}
	if d.Target != 1 {
		t.Errorf("Target = %d, want 1", d.Target)
	}
	if p.Current() != 1 || p.Cache().Current() != 1 {
		t.Errorf("pane at %d, cache at %d, want both 1", p.Current(), p.Cache().Current())
	}
}

func TestSyncMirrorsSameCall(t *testing.T) {
	sa, sb := &nopSched{}, &nopSched{}
	a := testPane(t, 0, 10, sa)
	b := testPane(t, 1, 10, sb)

	var sync Synchronizer
	sync.Bind(a, b, true)

	for i := 0; i < 3; i++ {
		if _, ok := sync.Route(a, nav.Event{Kind: nav.KeyDown, Dir: nav.Forward}); !ok {
			t.Fatalf("step %d produced no directive", i)
		}
		if a.Current() != b.Current() {
			t.Fatalf("panes diverged after step %d: %d vs %d", i, a.Current(), b.Current())
		}
		if a.Cache().Current() != b.Cache().Current() {
			t.Fatalf("cache windows diverged after step %d", i)
		}
	}
}

func TestSyncClampsToShorterCollection(t *testing.T) {
	sa, sb := &nopSched{}, &nopSched{}
	a := testPane(t, 0, 10, sa)
	b := testPane(t, 1, 3, sb)

	var sync Synchronizer
	sync.Bind(a, b, true)

	// Jump far past the short pane's end.
	if _, ok := sync.Route(a, nav.Event{Kind: nav.SliderMove, Pos: 8}); !ok {
		t.Fatal("slider move produced no directive")
	}
	if a.Current() != 8 {
		t.Errorf("a.Current() = %d, want 8", a.Current())
	}
	if b.Current() != 2 {
		t.Errorf("b.Current() = %d, want 2 (clamped)", b.Current())
	}
}

func TestMirrorBypassesNavState(t *testing.T) {
	s := &nopSched{}
	p := testPane(t, 0, 10, s)

	p.Mirror(nav.Directive{Target: 4, Dir: nav.Forward, Mode: nav.Slider, Burst: true})
	if p.Current() != 4 {
		t.Errorf("Current = %d, want 4", p.Current())
	}
	if _, holding := p.Controller().Holding(); holding {
		t.Error("mirror started a continuous hold")
	}
	if p.Controller().Dragging() {
		t.Error("mirror started a slider drag")
	}
}

func TestUnsyncStopsMirroring(t *testing.T) {
	sa, sb := &nopSched{}, &nopSched{}
	a := testPane(t, 0, 10, sa)
	b := testPane(t, 1, 10, sb)

	var sync Synchronizer
	sync.Bind(a, b, true)
	sync.Route(a, nav.Event{Kind: nav.KeyDown, Dir: nav.Forward})

	sync.SetSynced(false)
	sync.Route(a, nav.Event{Kind: nav.KeyDown, Dir: nav.Forward})

	if a.Current() != 2 {
		t.Errorf("a.Current() = %d, want 2", a.Current())
	}
	if b.Current() != 1 {
		t.Errorf("b.Current() = %d, want 1 (mirroring stopped)", b.Current())
	}
}

func TestMirrorDoesNotDoublePrefetch(t *testing.T) {
	sa, sb := &nopSched{}, &nopSched{}
	a := testPane(t, 0, 10, sa)
	b := testPane(t, 1, 10, sb)

	var sync Synchronizer
	sync.Bind(a, b, true)
	sync.Route(a, nav.Event{Kind: nav.KeyDown, Dir: nav.Forward})

	// The mirrored pane issues exactly the window slide's decodes, the
	// same as the pane that received the event.
	if sb.count != sa.count {
		t.Errorf("mirrored pane scheduled %d decodes, source scheduled %d", sb.count, sa.count)
	}
}

func TestSlotTracking(t *testing.T) {
	s := &nopSched{}
	p := testPane(t, 0, 5, s)

	if _, ok := p.Slot(); ok {
		t.Fatal("new pane reports a resident slot")
	}
	slot := atlas.Slot{Layer: 0, Region: atlas.Region{X: 4, Y: 8, Width: 16, Height: 16}}
	p.SetSlot(slot)
	if got, ok := p.Slot(); !ok || got != slot {
		t.Errorf("Slot() = %v, %v, want %v, true", got, ok, slot)
	}
	p.ClearSlot()
	if _, ok := p.Slot(); ok {
		t.Error("slot survived ClearSlot")
	}
}
