package viewskater

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ggand0/viewskater/internal/atlas"
	"github.com/ggand0/viewskater/internal/cache"
	"github.com/ggand0/viewskater/internal/decode"
	"github.com/ggand0/viewskater/internal/index"
	"github.com/ggand0/viewskater/internal/nav"
	"github.com/ggand0/viewskater/internal/pane"
	"github.com/ggand0/viewskater/internal/pix"
)

// MaxPanes is the number of viewing surfaces.
const MaxPanes = 2

// DrawItem is what the render loop draws for one pane this frame.
type DrawItem struct {
	Pane    int
	Ordinal int

	// Slot locates the image in the shared atlas when HasSlot is set.
	Slot    atlas.Slot
	HasSlot bool

	// Direct carries the decoded pixels when the atlas could not place
	// the image (oversized, or every layer pinned by visible slots).
	// The renderer uploads it as a standalone texture.
	Direct *pix.Pixmap

	// Placeholder is set when nothing resident can be shown: the
	// current image failed to decode or is still loading with no
	// previous image to hold on screen.
	Placeholder bool
}

// shownImage tracks what a pane last put on screen, for holding the
// previous image while the next one decodes.
type shownImage struct {
	id      index.ImageID
	ordinal int
	valid   bool
}

// dedupScheduler suppresses duplicate decodes when both panes share a
// directory: the second pane's request for an image already in flight
// rides on the first decode, whose result is delivered to every
// matching pane. Owning-loop only, like the windows that call it.
type dedupScheduler struct {
	inner   cache.Scheduler
	pending map[index.ImageID]struct{}
}

func newDedupScheduler(inner cache.Scheduler) *dedupScheduler {
	return &dedupScheduler{inner: inner, pending: make(map[index.ImageID]struct{})}
}

func (s *dedupScheduler) Schedule(id index.ImageID) {
	if _, ok := s.pending[id]; ok {
		return
	}
	s.pending[id] = struct{}{}
	s.inner.Schedule(id)
}

// complete clears the in-flight mark when a result is drained.
func (s *dedupScheduler) complete(id index.ImageID) {
	delete(s.pending, id)
}

// Viewer owns the decode pool, the shared texture atlas and up to two
// panes, and advances them once per frame. All methods run on the
// owning loop except where noted.
type Viewer struct {
	cfg Config
	log *slog.Logger

	pool  *decode.Pool
	dec   *decode.Decoder
	sched *dedupScheduler
	at    *atlas.Atlas

	panes  [MaxPanes]*pane.Pane
	sync   pane.Synchronizer
	synced bool

	tick        int64
	shown       [MaxPanes]shownImage
	lastCounted int

	// frame rate accounting, pane 0 drives the image rate
	rateStart   time.Time
	uiFrames    int
	imageFrames int
	uiFPS       float64
	imageFPS    float64
}

// NewViewer builds a viewer. A nil log uses the package logger.
func NewViewer(cfg Config, log *slog.Logger) *Viewer {
	if log == nil {
		log = Logger()
	}
	pool := decode.NewPool(cfg.DecodeWorkers)
	dec := decode.NewDecoder(pool, cfg.ResultBuffer)
	format := atlas.FormatRGBA8
	if cfg.CompressTextures {
		format = atlas.FormatBC1
	}
	return &Viewer{
		cfg:   cfg,
		log:   log,
		pool:  pool,
		dec:   dec,
		sched: newDedupScheduler(dec),
		at: atlas.New(atlas.Config{
			LayerSize: cfg.AtlasLayerSize,
			MaxLayers: cfg.AtlasMaxLayers,
			Padding:   atlas.DefaultPadding,
			Format:    format,
			Pool:      pool,
		}, log),
		rateStart:   time.Now(),
		lastCounted: -1,
	}
}

// Atlas returns the shared texture atlas.
func (v *Viewer) Atlas() *atlas.Atlas { return v.at }

// Pane returns the pane at id, or nil when none is loaded.
func (v *Viewer) Pane(id int) *pane.Pane {
	if id < 0 || id >= MaxPanes {
		return nil
	}
	return v.panes[id]
}

// LoadDirectory loads a collection into pane 0. It satisfies the
// replay harness driver.
func (v *Viewer) LoadDirectory(path string) error {
	return v.LoadPane(0, path)
}

// LoadPane scans path and replaces the pane's collection. The first
// window of images is requested immediately; atlas slots belonging to
// the replaced collection age out of the LRU on their own.
func (v *Viewer) LoadPane(paneID int, path string) error {
	if paneID < 0 || paneID >= MaxPanes {
		return fmt.Errorf("viewskater: pane %d out of range", paneID)
	}
	ix, err := index.Scan(path)
	if err != nil {
		return err
	}

	win := cache.NewWindow(ix, cache.Config{
		BudgetBytes:  v.cfg.CacheBudget,
		BehindRadius: v.cfg.BehindRadius,
		AheadRadius:  v.cfg.AheadRadius,
		MaxInFlight:  v.cfg.MaxInFlight,
	}, v.sched, v.log)
	win.OnEvict(func(id index.ImageID) {
		v.at.Release(id)
	})

	ctrl := nav.NewController(ix.Len(), v.cfg.KeyRepeat, v.cfg.SliderStep)
	v.panes[paneID] = pane.New(paneID, ix, win, v.at, ctrl, v.log)
	v.shown[paneID] = shownImage{}
	if v.panes[0] != nil && v.panes[1] != nil {
		v.sync.Bind(v.panes[0], v.panes[1], v.synced)
	}

	v.log.Info("directory loaded", "pane", paneID, "path", path, "images", ix.Len())
	if ix.Len() > 0 {
		win.JumpTo(0, nav.None)
	}
	return nil
}

// SetSynced flips dual-pane sync. It has no effect until both panes
// are loaded.
func (v *Viewer) SetSynced(on bool) {
	v.synced = on
	v.sync.SetSynced(on)
}

// Synced reports whether dual-pane sync is active.
func (v *Viewer) Synced() bool { return v.synced }

// Navigate feeds an input event to a pane. With both panes loaded the
// synchronizer routes it, mirroring index motion to the peer when sync
// is on.
func (v *Viewer) Navigate(paneID int, ev nav.Event) (nav.Directive, bool) {
	p := v.Pane(paneID)
	if p == nil {
		return nav.Directive{}, false
	}
	if v.panes[0] != nil && v.panes[1] != nil {
		return v.sync.Route(p, ev)
	}
	return p.Handle(ev)
}

// FrameTick advances the viewer one frame: decode results are applied,
// hold-repeat steps fire, and each loaded pane resolves what to draw.
func (v *Viewer) FrameTick() []DrawItem {
	v.tick++
	now := time.Now()

	for _, r := range v.dec.Drain() {
		v.sched.complete(r.ID)
		v.routeResult(r)
	}

	for i, p := range v.panes {
		if p == nil {
			continue
		}
		v.Navigate(i, nav.Event{Kind: nav.Tick, At: now})
	}

	items := make([]DrawItem, 0, MaxPanes)
	for i, p := range v.panes {
		if p == nil {
			continue
		}
		items = append(items, v.drawPane(i, p))
	}

	v.accountRates(now, items)
	return items
}

// routeResult hands a finished decode to every pane whose collection it
// belongs to: with both panes on the same directory a single decode
// serves both windows. Results for a replaced collection have no home
// and are dropped.
func (v *Viewer) routeResult(r decode.Result) {
	for _, p := range v.panes {
		if p != nil && p.Index().DirID() == r.ID.Dir {
			p.Cache().CompleteDecode(r.ID, r.Pixmap, r.Err)
		}
	}
}

// drawPane resolves one pane's draw item: the current image when
// resident, the previous image while the current one decodes, a
// placeholder otherwise. Atlas slots only ever hold fully decoded
// pixels.
func (v *Viewer) drawPane(paneID int, p *pane.Pane) DrawItem {
	cur := p.Current()
	item := DrawItem{Pane: paneID, Ordinal: cur}

	pm, status := p.Cache().Request(cur)
	switch status {
	case cache.StatusReady:
		id, err := p.Index().At(cur)
		if err != nil {
			item.Placeholder = true
			return item
		}
		slot, ok := v.at.Lookup(id)
		if !ok {
			slot, err = v.at.Allocate(id, pm.Width(), pm.Height())
			if err == nil {
				err = v.at.Upload(slot, pm)
			}
			if err != nil {
				// Atlas saturated or image oversized; draw it as a
				// one-off texture this frame.
				v.log.Warn("atlas placement failed", "image", id, "err", err)
				v.shown[paneID] = shownImage{}
				item.Direct = pm
				return item
			}
		}
		v.at.Touch(id, v.tick)
		p.SetSlot(slot)
		v.shown[paneID] = shownImage{id: id, ordinal: cur, valid: true}
		item.Slot = slot
		item.HasSlot = true
		return item

	case cache.StatusFailed:
		item.Placeholder = true
		return item

	default:
		return v.holdPrevious(paneID, item)
	}
}

// holdPrevious keeps the last shown image on screen, touching its slot
// so the atlas does not evict what is visible. The item reports the
// ordinal actually drawn. The slot may have been reclaimed since it
// was last drawn; then the pane shows a placeholder.
func (v *Viewer) holdPrevious(paneID int, item DrawItem) DrawItem {
	prev := v.shown[paneID]
	if !prev.valid {
		item.Placeholder = true
		return item
	}
	slot, ok := v.at.Lookup(prev.id)
	if !ok {
		v.shown[paneID] = shownImage{}
		item.Placeholder = true
		return item
	}
	v.at.Touch(prev.id, v.tick)
	item.Ordinal = prev.ordinal
	item.Slot = slot
	item.HasSlot = true
	return item
}

// accountRates maintains the UI and image display rates over a
// half-second window. The image rate counts pane 0 showing an ordinal
// it had not shown the frame before.
func (v *Viewer) accountRates(now time.Time, items []DrawItem) {
	v.uiFrames++
	for _, it := range items {
		if it.Pane == 0 && (it.HasSlot || it.Direct != nil) && it.Ordinal != v.lastCounted {
			v.imageFrames++
			v.lastCounted = it.Ordinal
		}
	}

	elapsed := now.Sub(v.rateStart)
	if elapsed < 500*time.Millisecond {
		return
	}
	secs := elapsed.Seconds()
	v.uiFPS = float64(v.uiFrames) / secs
	v.imageFPS = float64(v.imageFrames) / secs
	v.uiFrames = 0
	v.imageFrames = 0
	v.rateStart = now
}

// Ready reports whether pane 0 has its current image decoded.
func (v *Viewer) Ready() bool {
	p := v.panes[0]
	if p == nil || p.Index().Len() == 0 {
		return false
	}
	st, ok := p.Cache().StateOf(p.Current())
	return ok && st == cache.Ready
}

// Length returns pane 0's collection size.
func (v *Viewer) Length() int {
	if v.panes[0] == nil {
		return 0
	}
	return v.panes[0].Index().Len()
}

// NavigateRight performs one forward step on pane 0.
func (v *Viewer) NavigateRight() {
	v.Navigate(0, nav.Event{Kind: nav.KeyDown, Dir: nav.Forward})
	v.Navigate(0, nav.Event{Kind: nav.KeyUp})
}

// NavigateLeft performs one backward step on pane 0.
func (v *Viewer) NavigateLeft() {
	v.Navigate(0, nav.Event{Kind: nav.KeyDown, Dir: nav.Backward})
	v.Navigate(0, nav.Event{Kind: nav.KeyUp})
}

// JumpTo moves pane 0 to an absolute ordinal through the slider path.
func (v *Viewer) JumpTo(pos int) {
	v.Navigate(0, nav.Event{Kind: nav.SliderPress})
	v.Navigate(0, nav.Event{Kind: nav.SliderMove, Pos: pos})
	v.Navigate(0, nav.Event{Kind: nav.SliderRelease})
}

// Rates returns the current UI and image display rates.
func (v *Viewer) Rates() (uiFPS, imageFPS float64) {
	return v.uiFPS, v.imageFPS
}

// Close releases the atlas and stops the decode pool. Pending decode
// results are discarded.
func (v *Viewer) Close() {
	v.at.Close()
	v.pool.Close()
}
