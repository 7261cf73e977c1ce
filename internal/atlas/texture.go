package atlas

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core"

	"github.com/ggand0/viewskater/internal/pix"
)

// Texture errors.
var (
	// ErrTextureReleased is returned when operating on a released layer.
	ErrTextureReleased = errors.New("atlas: layer texture has been released")

	// ErrRegionOutOfBounds is returned when an upload exceeds the layer.
	ErrRegionOutOfBounds = errors.New("atlas: region is outside layer bounds")

	// ErrNilPixmap is returned when pixel data is missing.
	ErrNilPixmap = errors.New("atlas: pixmap is nil")
)

// Format is the storage format of an atlas layer.
type Format uint8

const (
	// FormatRGBA8 stores uncompressed 8-bit RGBA.
	FormatRGBA8 Format = iota

	// FormatBC1 stores block-compressed color at 8 bytes per 4x4 tile.
	FormatBC1
)

// String returns a human-readable format name.
func (f Format) String() string {
	switch f {
	case FormatRGBA8:
		return "RGBA8"
	case FormatBC1:
		return "BC1"
	default:
		return fmt.Sprintf("Unknown(%d)", f)
	}
}

// LayerBytes returns the storage size of one side x side layer.
func (f Format) LayerBytes(side int) uint64 {
	switch f {
	case FormatBC1:
		return CompressedSize(side, side)
	default:
		return uint64(side) * uint64(side) * 4
	}
}

// ToWGPUFormat converts to the wgpu texture format used at layer
// creation. Block-compressed layers keep logical IDs only until the
// wgpu backend exposes compressed formats.
func (f Format) ToWGPUFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// layerUsage is the usage every atlas layer is created with.
const layerUsage = gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding

// layerTexture is the logical GPU texture behind one atlas layer.
// Texture and view IDs are stub wgpu handles; uploads validate and track
// but do not touch a device.
//
// Safe for concurrent reads; uploads and Close are serialized by the
// owning loop.
type layerTexture struct {
	textureID core.TextureID
	viewID    core.TextureViewID

	side      int
	format    Format
	sizeBytes uint64
	label     string

	released atomic.Bool
}

func newLayerTexture(side int, format Format, label string) *layerTexture {
	// desc := &gputypes.TextureDescriptor{
	//     Label: label,
	//     Size: gputypes.Extent3D{
	//         Width:              uint32(side),
	//         Height:             uint32(side),
	//         DepthOrArrayLayers: 1,
	//     },
	//     MipLevelCount: 1,
	//     SampleCount:   1,
	//     Dimension:     gputypes.TextureDimension2D,
	//     Format:        format.ToWGPUFormat(),
	//     Usage:         layerUsage,
	// }
	// textureID, err := core.CreateTexture(device, desc)
	return &layerTexture{
		side:      side,
		format:    format,
		sizeBytes: format.LayerBytes(side),
		label:     label,
	}
}

// SizeBytes returns the layer storage size.
func (t *layerTexture) SizeBytes() uint64 { return t.sizeBytes }

// TextureID returns the wgpu texture handle. Zero for stub layers.
func (t *layerTexture) TextureID() core.TextureID { return t.textureID }

// ViewID returns the wgpu view handle. Zero for stub layers.
func (t *layerTexture) ViewID() core.TextureViewID { return t.viewID }

// uploadRegion writes uncompressed pixels into a sub-rectangle.
func (t *layerTexture) uploadRegion(x, y int, pm *pix.Pixmap) error {
	if t.released.Load() {
		return ErrTextureReleased
	}
	if pm == nil {
		return ErrNilPixmap
	}
	if x < 0 || y < 0 || x+pm.Width() > t.side || y+pm.Height() > t.side {
		return fmt.Errorf("%w: (%d,%d)+(%dx%d) on %dx%d layer",
			ErrRegionOutOfBounds, x, y, pm.Width(), pm.Height(), t.side, t.side)
	}

	// core.QueueWriteTexture(queue, &gputypes.ImageCopyTexture{
	//     Texture: t.textureID,
	//     Origin:  gputypes.Origin3D{X: uint32(x), Y: uint32(y)},
	//     Aspect:  gputypes.TextureAspectAll,
	// }, pm.Data(), &gputypes.TextureDataLayout{
	//     BytesPerRow:  uint32(pm.Stride()),
	//     RowsPerImage: uint32(pm.Height()),
	// }, &gputypes.Extent3D{
	//     Width:              uint32(pm.Width()),
	//     Height:             uint32(pm.Height()),
	//     DepthOrArrayLayers: 1,
	// })

	return nil
}

// uploadCompressed writes BC1 blocks into a block-aligned sub-rectangle.
func (t *layerTexture) uploadCompressed(x, y, w, h int, blocks []Block) error {
	if t.released.Load() {
		return ErrTextureReleased
	}
	if x%blockDim != 0 || y%blockDim != 0 {
		return fmt.Errorf("%w: offset (%d,%d) is not block aligned", ErrRegionOutOfBounds, x, y)
	}
	if x < 0 || y < 0 || x+w > t.side || y+h > t.side {
		return fmt.Errorf("%w: (%d,%d)+(%dx%d) on %dx%d layer",
			ErrRegionOutOfBounds, x, y, w, h, t.side, t.side)
	}
	if want := CompressedSize(w, h) / 8; uint64(len(blocks)) != want {
		return fmt.Errorf("atlas: %d blocks for a %dx%d region, want %d", len(blocks), w, h, want)
	}
	return nil
}

// close releases the layer's GPU handles.
func (t *layerTexture) close() {
	if t.released.Swap(true) {
		return
	}
	// core.TextureViewDrop(t.viewID)
	// core.TextureDrop(t.textureID)
	t.textureID = core.TextureID{}
	t.viewID = core.TextureViewID{}
}
