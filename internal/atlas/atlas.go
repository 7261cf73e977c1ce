// Package atlas manages the GPU-side texture store: fixed-size square
// layers packed with a shelf allocator, an LRU over occupied slots
// keyed by pane-visibility recency, and an optional block-compressed
// storage path.
//
// The atlas tracks logical textures; uploads run on the owning loop.
// Allocation failure is soft: callers fall back to a direct per-image
// texture when ErrAtlasFull is returned.
package atlas

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ggand0/viewskater/internal/index"
	"github.com/ggand0/viewskater/internal/pix"
)

// ErrAtlasFull is returned when no layer can fit the request and no
// slot is eligible for eviction.
var ErrAtlasFull = errors.New("atlas: texture atlas is full")

// Default atlas settings.
const (
	// DefaultLayerSize is the default layer dimension (2048x2048).
	DefaultLayerSize = 2048

	// MinLayerSize is the minimum layer dimension.
	MinLayerSize = 256

	// DefaultMaxLayers bounds atlas growth.
	DefaultMaxLayers = 8

	// DefaultPadding is the spacing between packed slots.
	DefaultPadding = 1
)

// Slot locates one image inside the atlas.
type Slot struct {
	// Layer is the index of the layer holding the image.
	Layer int
	// Region is the image's rectangle within that layer.
	Region Region
}

// Config sizes the atlas.
type Config struct {
	// LayerSize is the side of each square layer. Defaults to
	// DefaultLayerSize.
	LayerSize int

	// MaxLayers caps growth. Defaults to DefaultMaxLayers.
	MaxLayers int

	// Padding is the spacing between slots. Defaults to DefaultPadding;
	// rounded up to block alignment for compressed layers.
	Padding int

	// Format selects the layer storage format.
	Format Format

	// Pool runs block compression for the BC1 path. Nil compresses
	// serially on the owning loop.
	Pool Executor
}

// Stats counts atlas activity.
type Stats struct {
	Allocations uint64
	Evictions   uint64
	LayerResets uint64
}

type slotRec struct {
	slot      Slot
	node      *lruNode
	lastTouch int64
}

type layer struct {
	packer *shelfPacker
	tex    *layerTexture
	live   int
}

// Atlas is the multi-layer texture store for one viewer. Not safe for
// concurrent use; the owning loop serializes all calls.
type Atlas struct {
	cfg Config
	log *slog.Logger

	layers []*layer
	slots  map[index.ImageID]*slotRec
	lru    lruList

	// tick is the newest visibility tick seen; slots touched at this
	// tick are on screen and never evicted.
	tick  int64
	stats Stats
}

// New creates an empty atlas.
func New(cfg Config, log *slog.Logger) *Atlas {
	if cfg.LayerSize < MinLayerSize {
		cfg.LayerSize = DefaultLayerSize
	}
	if cfg.MaxLayers < 1 {
		cfg.MaxLayers = DefaultMaxLayers
	}
	if cfg.Padding < 0 {
		cfg.Padding = DefaultPadding
	}
	if cfg.Format == FormatBC1 {
		cfg.Padding = align(cfg.Padding, blockDim)
	}
	return &Atlas{
		cfg:   cfg,
		log:   log,
		slots: make(map[index.ImageID]*slotRec),
	}
}

// Lookup returns the slot for id if it is resident.
func (a *Atlas) Lookup(id index.ImageID) (Slot, bool) {
	rec, ok := a.slots[id]
	if !ok {
		return Slot{}, false
	}
	return rec.slot, true
}

// Touch records that id was visible at the given tick. Visible slots
// are protected from eviction and move to the recent end of the LRU.
func (a *Atlas) Touch(id index.ImageID, tick int64) {
	rec, ok := a.slots[id]
	if !ok {
		return
	}
	rec.lastTouch = tick
	if tick > a.tick {
		a.tick = tick
	}
	a.lru.MoveToFront(rec.node)
}

// Allocate finds space for a width x height image. Existing slots are
// returned as-is. When every layer is full the atlas grows up to
// MaxLayers, then evicts least-recently-visible slots; a layer whose
// slots are all gone is reset and reused. Images that cannot fit a
// single layer, or that only slots visible this tick could make room
// for, fail with ErrAtlasFull.
func (a *Atlas) Allocate(id index.ImageID, width, height int) (Slot, error) {
	if rec, ok := a.slots[id]; ok {
		return rec.slot, nil
	}
	if width <= 0 || height <= 0 {
		return Slot{}, fmt.Errorf("%w: invalid size %dx%d", ErrAtlasFull, width, height)
	}

	reqW, reqH := width, height
	if a.cfg.Format == FormatBC1 {
		reqW = align(reqW, blockDim)
		reqH = align(reqH, blockDim)
	}
	if reqW+a.cfg.Padding > a.cfg.LayerSize || reqH+a.cfg.Padding > a.cfg.LayerSize {
		return Slot{}, fmt.Errorf("%w: %dx%d exceeds layer size %d",
			ErrAtlasFull, width, height, a.cfg.LayerSize)
	}

	for {
		if slot, ok := a.tryPlace(reqW, reqH, width, height); ok {
			a.admit(id, slot)
			return slot, nil
		}
		if len(a.layers) < a.cfg.MaxLayers {
			a.addLayer()
			continue
		}
		if !a.evictOne() {
			return Slot{}, ErrAtlasFull
		}
	}
}

// Upload writes the image pixels into its slot. For compressed layers
// the pixels are block-encoded across the pool first.
func (a *Atlas) Upload(slot Slot, pm *pix.Pixmap) error {
	if pm == nil {
		return ErrNilPixmap
	}
	if slot.Layer < 0 || slot.Layer >= len(a.layers) {
		return fmt.Errorf("%w: layer %d of %d", ErrRegionOutOfBounds, slot.Layer, len(a.layers))
	}
	r := slot.Region
	if pm.Width() != r.Width || pm.Height() != r.Height {
		return fmt.Errorf("atlas: slot is %dx%d but pixmap is %dx%d",
			r.Width, r.Height, pm.Width(), pm.Height())
	}

	tex := a.layers[slot.Layer].tex
	if a.cfg.Format == FormatBC1 {
		blocks := CompressBC1(a.cfg.Pool, pm.Data(), pm.Width(), pm.Height())
		return tex.uploadCompressed(r.X, r.Y, r.Width, r.Height, blocks)
	}
	return tex.uploadRegion(r.X, r.Y, pm)
}

// Release frees the slot for id. The CPU cache entry for the same image
// is untouched.
func (a *Atlas) Release(id index.ImageID) {
	rec, ok := a.slots[id]
	if !ok {
		return
	}
	a.dropSlot(id, rec)
}

// SlotCount returns the number of occupied slots.
func (a *Atlas) SlotCount() int { return len(a.slots) }

// LayerCount returns the number of allocated layers.
func (a *Atlas) LayerCount() int { return len(a.layers) }

// SizeBytes returns the total storage of all layers.
func (a *Atlas) SizeBytes() uint64 {
	var total uint64
	for _, l := range a.layers {
		total += l.tex.SizeBytes()
	}
	return total
}

// Utilization returns the mean packed fraction across layers.
func (a *Atlas) Utilization() float64 {
	if len(a.layers) == 0 {
		return 0
	}
	var sum float64
	for _, l := range a.layers {
		sum += l.packer.Utilization()
	}
	return sum / float64(len(a.layers))
}

// Stats returns a copy of the activity counters.
func (a *Atlas) Stats() Stats { return a.stats }

// Close releases every layer texture.
func (a *Atlas) Close() {
	for _, l := range a.layers {
		l.tex.close()
	}
	a.layers = nil
	a.slots = make(map[index.ImageID]*slotRec)
	a.lru = lruList{}
}

func (a *Atlas) tryPlace(reqW, reqH, width, height int) (Slot, bool) {
	for i, l := range a.layers {
		r := l.packer.Allocate(reqW, reqH)
		if r.IsValid() {
			l.live++
			// Padding for alignment stays inside the packed rectangle;
			// the slot reports the true image size.
			r.Width = width
			r.Height = height
			return Slot{Layer: i, Region: r}, true
		}
	}
	return Slot{}, false
}

func (a *Atlas) addLayer() {
	label := fmt.Sprintf("atlas-layer-%d", len(a.layers))
	l := &layer{
		packer: newShelfPacker(a.cfg.LayerSize, a.cfg.LayerSize, a.cfg.Padding),
		tex:    newLayerTexture(a.cfg.LayerSize, a.cfg.Format, label),
	}
	a.layers = append(a.layers, l)
	if a.log != nil {
		a.log.Debug("atlas layer added", "layer", len(a.layers)-1, "size", a.cfg.LayerSize, "format", a.cfg.Format.String())
	}
}

func (a *Atlas) admit(id index.ImageID, slot Slot) {
	rec := &slotRec{slot: slot, lastTouch: a.tick}
	rec.node = a.lru.PushFront(id)
	a.slots[id] = rec
	a.stats.Allocations++
}

// evictOne removes the least-recently-visible slot. Returns false when
// the atlas holds nothing evictable, including when only slots visible
// at the current tick remain.
func (a *Atlas) evictOne() bool {
	id, ok := a.lru.Oldest()
	if !ok {
		return false
	}
	rec := a.slots[id]
	if rec.lastTouch == a.tick && a.tick != 0 {
		return false
	}
	a.dropSlot(id, rec)
	a.stats.Evictions++
	if a.log != nil {
		a.log.Debug("atlas slot evicted", "image", id.String())
	}
	return true
}

// dropSlot removes a slot record. Shelf packing cannot free individual
// rectangles, so a layer's space returns only when its last slot goes
// and the packer resets.
func (a *Atlas) dropSlot(id index.ImageID, rec *slotRec) {
	a.lru.Remove(rec.node)
	delete(a.slots, id)

	l := a.layers[rec.slot.Layer]
	l.live--
	if l.live == 0 {
		l.packer.Reset()
		a.stats.LayerResets++
	}
}

func align(v, to int) int {
	return (v + to - 1) / to * to
}
