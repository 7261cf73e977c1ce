// Package decode turns image files into CPU pixel buffers on a bounded
// worker pool, off the owning loop's critical path.
//
// Files are read through memory-mapped readers so raw bytes are not
// copied before the codec consumes them. Results cross back to the
// owning loop on a single handoff channel drained once per frame.
package decode

import (
	"errors"
	"fmt"
	"image"
	"io"

	// Codec registration. The std formats plus the x/image extras give
	// the decode surface its supported extension set.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/exp/mmap"

	"github.com/ggand0/viewskater/internal/index"
	"github.com/ggand0/viewskater/internal/pix"
)

// ErrDecodeFailed is returned when an image cannot be decoded.
// Per-image and non-fatal: the cache marks the entry Failed and the
// renderer shows a placeholder.
var ErrDecodeFailed = errors.New("decode: image decode failed")

// Result is one completed decode, delivered on the handoff channel.
// Exactly one of Pixmap and Err is set.
type Result struct {
	ID     index.ImageID
	Pixmap *pix.Pixmap
	Err    error
}

// Decoder schedules decode tasks on a Pool and delivers results on a
// buffered channel. The channel is single-producer-set (any worker),
// single-consumer (the owning loop drains it once per tick).
type Decoder struct {
	pool    *Pool
	results chan Result
}

// NewDecoder creates a decoder on top of pool. resultBuffer bounds how
// many completed decodes can wait between ticks; it should exceed the
// pool's in-flight capacity so workers never block on delivery.
func NewDecoder(pool *Pool, resultBuffer int) *Decoder {
	if resultBuffer < pool.Workers()*4 {
		resultBuffer = pool.Workers() * 4
	}
	return &Decoder{
		pool:    pool,
		results: make(chan Result, resultBuffer),
	}
}

// Pool returns the underlying worker pool, shared with the block
// compressor.
func (d *Decoder) Pool() *Pool { return d.pool }

// Results returns the handoff channel drained by the owning loop.
func (d *Decoder) Results() <-chan Result { return d.results }

// Schedule queues a decode for id. The call never blocks on I/O; the
// file is read and decoded on a worker.
func (d *Decoder) Schedule(id index.ImageID) {
	d.pool.Submit(func() {
		pm, err := File(id.Path)
		// Blocks only if the owning loop has fallen a full buffer
		// behind; completed work is never dropped.
		d.results <- Result{ID: id, Pixmap: pm, Err: err}
	})
}

// Drain returns all completed results without blocking.
func (d *Decoder) Drain() []Result {
	var out []Result
	for {
		select {
		case r := <-d.results:
			out = append(out, r)
		default:
			return out
		}
	}
}

// File decodes a single image file into an RGBA pixmap using a
// memory-mapped read.
func File(path string) (*pix.Pixmap, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecodeFailed, path, err)
	}
	defer func() { _ = r.Close() }()

	return Reader(io.NewSectionReader(r, 0, int64(r.Len())), path)
}

// Reader decodes image bytes from r, auto-detecting the format.
// name is used for error reporting only.
func Reader(r io.Reader, name string) (*pix.Pixmap, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecodeFailed, name, err)
	}
	return pix.FromImage(img), nil
}
