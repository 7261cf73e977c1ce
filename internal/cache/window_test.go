package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ggand0/viewskater/internal/index"
	"github.com/ggand0/viewskater/internal/nav"
	"github.com/ggand0/viewskater/internal/pix"
)

type fakeSched struct {
	scheduled []index.ImageID
}

func (s *fakeSched) Schedule(id index.ImageID) {
	s.scheduled = append(s.scheduled, id)
}

// drain completes every scheduled decode not yet applied, including ones
// the completions themselves pump into flight.
func (s *fakeSched) drain(w *Window, applied *int, pxSide int) {
	for *applied < len(s.scheduled) {
		id := s.scheduled[*applied]
		*applied++
		w.CompleteDecode(id, pix.New(pxSide, pxSide), nil)
	}
}

func testIndex(t testing.TB, n int) *index.Index {
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
	if ix.Len() != n {
		t.Fatalf("Len() = %d, want %d", ix.Len(), n)
	}
	return ix
}

func TestRequestOutOfRange(t *testing.T) {
	ix := testIndex(t, 3)
	s := &fakeSched{}
	w := NewWindow(ix, Config{}, s, nil)

	for _, i := range []int{-1, 3, 100} {
		pm, st := w.Request(i)
		if pm != nil || st != StatusOutOfRange {
			t.Errorf("Request(%d) = %v, %v, want nil, StatusOutOfRange", i, pm, st)
		}
	}
	if len(s.scheduled) != 0 {
		t.Errorf("out-of-range requests scheduled %d decodes", len(s.scheduled))
	}
}

func TestRequestSchedulesOnce(t *testing.T) {
	ix := testIndex(t, 5)
	s := &fakeSched{}
	w := NewWindow(ix, Config{}, s, nil)

	if _, st := w.Request(2); st != StatusPending {
		t.Fatalf("first Request = %v, want StatusPending", st)
	}
	if _, st := w.Request(2); st != StatusPending {
		t.Fatalf("second Request = %v, want StatusPending", st)
	}
	if len(s.scheduled) != 1 {
		t.Fatalf("scheduled %d decodes, want 1", len(s.scheduled))
	}

	pm := pix.New(4, 4)
	w.CompleteDecode(s.scheduled[0], pm, nil)

	got, st := w.Request(2)
	if st != StatusReady {
		t.Fatalf("Request after completion = %v, want StatusReady", st)
	}
	if got != pm {
		t.Error("ready request returned a different buffer")
	}
	if len(s.scheduled) != 1 {
		t.Errorf("ready request re-scheduled a decode")
	}
	if w.Stats().Hits != 1 || w.Stats().Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit, 1 miss", w.Stats())
	}
}

func TestBudgetEviction(t *testing.T) {
	ix := testIndex(t, 10)
	s := &fakeSched{}
	// Each 4x4 buffer is 64 bytes; budget admits two.
	w := NewWindow(ix, Config{BudgetBytes: 128, BehindRadius: 2, AheadRadius: 2, MaxInFlight: 8}, s, nil)

	var released []index.ImageID
	w.OnEvict(func(id index.ImageID) { released = append(released, id) })

	w.Advance(nav.Forward, 4) // window [2..6]
	applied := 0
	s.drain(w, &applied, 4)

	if w.ReadyBytes() > 128 {
		t.Errorf("ReadyBytes = %d, exceeds budget 128", w.ReadyBytes())
	}
	if w.Stats().Evictions == 0 {
		t.Error("expected evictions under budget pressure")
	}
	if len(released) != int(w.Stats().Evictions) {
		t.Errorf("release hook fired %d times, evictions = %d", len(released), w.Stats().Evictions)
	}
	// The current image survives budget pressure.
	if st, ok := w.StateOf(4); !ok || st != Ready {
		t.Errorf("current entry state = %v, %v, want Ready", st, ok)
	}
}

func TestBudgetEvictsBehindFirst(t *testing.T) {
	ix := testIndex(t, 5)
	s := &fakeSched{}
	w := NewWindow(ix, Config{BudgetBytes: 128, BehindRadius: 2, AheadRadius: 2, MaxInFlight: 8}, s, nil)

	w.Advance(nav.Forward, 2) // current 2, requests [0..4]

	complete := func(ordinal int) {
		for _, id := range s.scheduled {
			if id.Ordinal == ordinal {
				w.CompleteDecode(id, pix.New(4, 4), nil)
				return
			}
		}
		t.Fatalf("ordinal %d was never scheduled", ordinal)
	}
	complete(2)
	complete(3)
	complete(1) // third admit breaks the budget; 1 and 3 tie on distance

	if _, ok := w.StateOf(1); ok {
		t.Error("behind entry 1 should be evicted at equal distance")
	}
	if st, ok := w.StateOf(3); !ok || st != Ready {
		t.Errorf("ahead entry 3 = %v, %v, want Ready", st, ok)
	}
}

func TestAdvanceReversalClipsPendingAhead(t *testing.T) {
	ix := testIndex(t, 20)
	s := &fakeSched{}
	// One pool slot: everything past the first request stays Pending.
	w := NewWindow(ix, Config{BehindRadius: 1, AheadRadius: 3, MaxInFlight: 1}, s, nil)

	w.Advance(nav.Forward, 10) // window [9..13], one in flight

	pendingAhead := 0
	for i := 11; i <= 13; i++ {
		if st, ok := w.StateOf(i); ok && st == Pending {
			pendingAhead++
		}
	}
	if pendingAhead == 0 {
		t.Fatal("setup: expected pending prefetch ahead of current")
	}

	w.Advance(nav.Backward, 1) // current 9, stale side clipped

	for i := 10; i <= 13; i++ {
		if st, ok := w.StateOf(i); ok && st == Pending {
			t.Errorf("stale pending entry %d survived reversal (state %v)", i, st)
		}
	}
}

func TestJumpToClearsPending(t *testing.T) {
	ix := testIndex(t, 50)
	s := &fakeSched{}
	w := NewWindow(ix, Config{BehindRadius: 1, AheadRadius: 3, MaxInFlight: 1}, s, nil)

	w.Advance(nav.Forward, 5)
	before := len(s.scheduled)
	w.JumpTo(40, nav.Forward)

	for i := 0; i < 10; i++ {
		if st, ok := w.StateOf(i); ok && st == Pending {
			t.Errorf("pending entry %d near old position survived jump", i)
		}
	}
	if w.Current() != 40 {
		t.Errorf("Current() = %d, want 40", w.Current())
	}

	// The single pool slot is still held by the old in-flight decode;
	// completing it pumps the landing request.
	w.CompleteDecode(s.scheduled[0], pix.New(2, 2), nil)
	if len(s.scheduled) <= before {
		t.Error("jump issued no decode for the landing window")
	}
	if st, ok := w.StateOf(40); !ok || st != Decoding {
		t.Errorf("landing entry = %v, %v, want Decoding", st, ok)
	}
}

func TestEvictOutsideSkipsDecoding(t *testing.T) {
	ix := testIndex(t, 30)
	s := &fakeSched{}
	w := NewWindow(ix, Config{BehindRadius: 1, AheadRadius: 1, MaxInFlight: 4}, s, nil)

	w.Request(5) // in flight
	w.JumpTo(25, nav.Forward)

	if st, ok := w.StateOf(5); !ok || st != Decoding {
		t.Fatalf("in-flight entry 5 = %v, %v, want Decoding", st, ok)
	}

	// Late completion is admitted, then reconciled by the next pass.
	for _, id := range s.scheduled {
		if id.Ordinal == 5 {
			w.CompleteDecode(id, pix.New(4, 4), nil)
		}
	}
	w.EvictOutside()
	if _, ok := w.StateOf(5); ok {
		t.Error("far-outside entry 5 still tracked after reconciliation")
	}
}

func TestDecodeFailureIsPermanent(t *testing.T) {
	ix := testIndex(t, 3)
	s := &fakeSched{}
	w := NewWindow(ix, Config{}, s, nil)

	w.Request(1)
	w.CompleteDecode(s.scheduled[0], nil, errors.New("truncated file"))

	if _, st := w.Request(1); st != StatusFailed {
		t.Fatalf("Request after failure = %v, want StatusFailed", st)
	}
	if len(s.scheduled) != 1 {
		t.Errorf("failed entry was re-scheduled (%d decodes)", len(s.scheduled))
	}
}

func TestStaleDirectoryResultDropped(t *testing.T) {
	ix := testIndex(t, 3)
	s := &fakeSched{}
	w := NewWindow(ix, Config{}, s, nil)

	w.Request(1)
	stale := s.scheduled[0]
	stale.Dir = stale.Dir + 1
	w.CompleteDecode(stale, pix.New(4, 4), nil)

	if st, ok := w.StateOf(1); !ok || st == Ready {
		t.Errorf("entry 1 = %v, %v after stale result, want untouched Decoding", st, ok)
	}
	if w.ReadyBytes() != 0 {
		t.Errorf("ReadyBytes = %d after stale result, want 0", w.ReadyBytes())
	}
}

func TestSweepSchedulesEachOrdinalOnce(t *testing.T) {
	const n = 12
	ix := testIndex(t, n)
	s := &fakeSched{}
	// No budget, radii cover everything: nothing is ever evicted, so no
	// ordinal legitimately needs a second decode.
	w := NewWindow(ix, Config{BehindRadius: n, AheadRadius: n, MaxInFlight: 4}, s, nil)

	applied := 0
	for i := 0; i < n; i++ {
		w.Advance(nav.Forward, 1)
		s.drain(w, &applied, 2)
	}
	for i := 0; i < n; i++ {
		w.Advance(nav.Backward, 1)
		s.drain(w, &applied, 2)
	}

	seen := make(map[int]int)
	for _, id := range s.scheduled {
		seen[id.Ordinal]++
	}
	for ord, count := range seen {
		if count != 1 {
			t.Errorf("ordinal %d scheduled %d times, want 1", ord, count)
		}
	}
}

func TestReversalDecodeBound(t *testing.T) {
	const steps = 5
	ix := testIndex(t, 40)
	s := &fakeSched{}
	cfg := Config{BehindRadius: 1, AheadRadius: 3, MaxInFlight: 8}
	w := NewWindow(ix, cfg, s, nil)

	applied := 0
	w.JumpTo(20, nav.Forward)
	s.drain(w, &applied, 2)
	base := distinctOrdinals(s.scheduled)

	for i := 0; i < steps; i++ {
		w.Advance(nav.Forward, 1)
		s.drain(w, &applied, 2)
	}
	for i := 0; i < steps; i++ {
		w.Advance(nav.Backward, 1)
		s.drain(w, &applied, 2)
	}

	window := cfg.BehindRadius + cfg.AheadRadius + 1
	distinct := distinctOrdinals(s.scheduled) - base
	if distinct > 2*steps+window {
		t.Errorf("reversal sweep decoded %d distinct ordinals, bound is %d",
			distinct, 2*steps+window)
	}
}

func TestBudgetInvariantUnderSweep(t *testing.T) {
	ix := testIndex(t, 25)
	s := &fakeSched{}
	const budget = 3 * 64
	w := NewWindow(ix, Config{BudgetBytes: budget, BehindRadius: 2, AheadRadius: 4, MaxInFlight: 6}, s, nil)

	applied := 0
	moves := []struct {
		dir   nav.Direction
		count int
	}{
		{nav.Forward, 3}, {nav.Forward, 1}, {nav.Backward, 2},
		{nav.Forward, 5}, {nav.Backward, 7}, {nav.Forward, 10},
	}
	for _, m := range moves {
		w.Advance(m.dir, m.count)
		s.drain(w, &applied, 4)
		if w.ReadyBytes() > budget {
			t.Fatalf("ReadyBytes = %d after %v x%d, budget %d",
				w.ReadyBytes(), m.dir, m.count, budget)
		}
	}
}

func distinctOrdinals(ids []index.ImageID) int {
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		seen[id.Ordinal] = struct{}{}
	}
	return len(seen)
}
