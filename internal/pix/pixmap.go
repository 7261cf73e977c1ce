// Package pix provides the RGBA8 pixel buffer shared by the decode,
// cache and atlas layers.
package pix

import (
	"image"
	"image/color"
)

// Pixmap is a rectangular RGBA8 pixel buffer, 4 bytes per pixel.
// Dimensions are fixed at creation.
type Pixmap struct {
	width  int
	height int
	data   []uint8
}

// New creates a pixmap with the given dimensions.
// Zero or negative dimensions are clamped to zero.
func New(width, height int) *Pixmap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Pixmap{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*4),
	}
}

// Width returns the width of the pixmap.
func (p *Pixmap) Width() int { return p.width }

// Height returns the height of the pixmap.
func (p *Pixmap) Height() int { return p.height }

// Stride returns the number of bytes per row.
func (p *Pixmap) Stride() int { return p.width * 4 }

// Data returns the raw pixel data (RGBA order).
func (p *Pixmap) Data() []uint8 { return p.data }

// SizeBytes returns the total size of the pixel data.
func (p *Pixmap) SizeBytes() uint64 { return uint64(len(p.data)) }

// RowBytes returns the pixel data for row y.
func (p *Pixmap) RowBytes(y int) []uint8 {
	start := y * p.Stride()
	return p.data[start : start+p.Stride()]
}

// SetRGBA sets a single pixel. Out-of-bounds coordinates are ignored.
func (p *Pixmap) SetRGBA(x, y int, r, g, b, a uint8) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	i := (y*p.width + x) * 4
	p.data[i+0] = r
	p.data[i+1] = g
	p.data[i+2] = b
	p.data[i+3] = a
}

// GetRGBA returns a single pixel. Out-of-bounds coordinates return zero.
func (p *Pixmap) GetRGBA(x, y int) (r, g, b, a uint8) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return 0, 0, 0, 0
	}
	i := (y*p.width + x) * 4
	return p.data[i+0], p.data[i+1], p.data[i+2], p.data[i+3]
}

// Fill sets every pixel to the given color.
func (p *Pixmap) Fill(r, g, b, a uint8) {
	for i := 0; i < len(p.data); i += 4 {
		p.data[i+0] = r
		p.data[i+1] = g
		p.data[i+2] = b
		p.data[i+3] = a
	}
}

// ToImage converts the pixmap to an image.RGBA sharing no memory.
func (p *Pixmap) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	copy(img.Pix, p.data)
	return img
}

// FromImage creates a pixmap from a standard library image.
// NRGBA and RGBA images take a fast row-copy path.
func FromImage(img image.Image) *Pixmap {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	pm := New(width, height)

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < height; y++ {
			start := y * src.Stride
			copy(pm.RowBytes(y), src.Pix[start:start+width*4])
		}
		return pm
	case *image.RGBA:
		for y := 0; y < height; y++ {
			start := y * src.Stride
			copy(pm.RowBytes(y), src.Pix[start:start+width*4])
		}
		return pm
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := img.At(bounds.Min.X+x, bounds.Min.Y+y)
			r, g, b, a := c.RGBA()
			pm.SetRGBA(x, y, uint8(r>>8), uint8(g>>8), uint8(b>>8), uint8(a>>8))
		}
	}
	return pm
}

// At implements image.Image.
func (p *Pixmap) At(x, y int) color.Color {
	r, g, b, a := p.GetRGBA(x, y)
	return color.RGBA{R: r, G: g, B: b, A: a}
}

// Bounds implements image.Image.
func (p *Pixmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.width, p.height)
}

// ColorModel implements image.Image.
func (p *Pixmap) ColorModel() color.Model {
	return color.RGBAModel
}
