package atlas

import "fmt"

// Region is a rectangular area inside one atlas layer.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// IsValid reports whether the region has positive dimensions.
func (r Region) IsValid() bool {
	return r.Width > 0 && r.Height > 0
}

// Overlaps reports whether two regions intersect.
func (r Region) Overlaps(o Region) bool {
	return r.X < o.X+o.Width && o.X < r.X+r.Width &&
		r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

// String returns a compact textual form for logs.
func (r Region) String() string {
	return fmt.Sprintf("Region(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// shelf is one horizontal band of a shelf-packed layer.
type shelf struct {
	y      int // top Y coordinate
	height int // tallest item so far, plus padding
	nextX  int // next free X position
}

// shelfPacker allocates rectangles within a fixed square area by
// stacking horizontal shelves. Rectangles cannot be freed individually;
// Reset reclaims the whole area once every slot on it is released.
// Not safe for concurrent use; the owning loop serializes all calls.
type shelfPacker struct {
	width   int
	height  int
	padding int

	shelves []*shelf

	allocCount int
	usedArea   int
}

func newShelfPacker(width, height, padding int) *shelfPacker {
	if padding < 0 {
		padding = 0
	}
	return &shelfPacker{
		width:   width,
		height:  height,
		padding: padding,
		shelves: make([]*shelf, 0, 16),
	}
}

// Allocate finds space for a width x height rectangle. Returns an
// invalid region when the packer cannot fit it.
func (p *shelfPacker) Allocate(width, height int) Region {
	if width <= 0 || height <= 0 {
		return Region{}
	}

	paddedW := width + p.padding
	paddedH := height + p.padding
	if paddedW > p.width || paddedH > p.height {
		return Region{}
	}

	for _, s := range p.shelves {
		if p.fits(s, paddedW, paddedH) {
			return p.place(s, width, height, paddedW)
		}
	}
	return p.newShelf(width, height, paddedW, paddedH)
}

func (p *shelfPacker) fits(s *shelf, paddedW, paddedH int) bool {
	if s.nextX+paddedW > p.width {
		return false
	}
	// A shelf can grow taller only while it is empty.
	if paddedH > s.height && s.nextX > 0 {
		return false
	}
	return true
}

func (p *shelfPacker) place(s *shelf, width, height, paddedW int) Region {
	region := Region{X: s.nextX, Y: s.y, Width: width, Height: height}
	s.nextX += paddedW
	if height+p.padding > s.height {
		s.height = height + p.padding
	}
	p.allocCount++
	p.usedArea += width * height
	return region
}

func (p *shelfPacker) newShelf(width, height, paddedW, paddedH int) Region {
	newY := 0
	if n := len(p.shelves); n > 0 {
		last := p.shelves[n-1]
		newY = last.y + last.height
	}
	if newY+paddedH > p.height {
		return Region{}
	}

	p.shelves = append(p.shelves, &shelf{y: newY, height: paddedH, nextX: paddedW})
	p.allocCount++
	p.usedArea += width * height
	return Region{X: 0, Y: newY, Width: width, Height: height}
}

// Reset discards all shelves, making the full area available again.
func (p *shelfPacker) Reset() {
	p.shelves = p.shelves[:0]
	p.allocCount = 0
	p.usedArea = 0
}

// Utilization returns the fraction of area covered by live rectangles.
func (p *shelfPacker) Utilization() float64 {
	total := p.width * p.height
	if total == 0 {
		return 0
	}
	return float64(p.usedArea) / float64(total)
}
