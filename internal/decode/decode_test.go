package decode

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ggand0/viewskater/internal/index"
)

// writePNG writes a small solid-color PNG and returns its path.
func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x7f
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileDecodesPNG(t *testing.T) {
	path := writePNG(t, t.TempDir(), "a.png", 8, 6)

	pm, err := File(path)
	if err != nil {
		t.Fatal(err)
	}
	if pm.Width() != 8 || pm.Height() != 6 {
		t.Errorf("dimensions = %dx%d, want 8x6", pm.Width(), pm.Height())
	}
}

func TestFileDecodeFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "junk.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := File(path)
	if !errors.Is(err, ErrDecodeFailed) {
		t.Errorf("err = %v, want ErrDecodeFailed", err)
	}
}

func TestFileMissing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "missing.png"))
	if !errors.Is(err, ErrDecodeFailed) {
		t.Errorf("err = %v, want ErrDecodeFailed", err)
	}
}

func TestDecoderSchedulesAndDelivers(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "a.png", 4, 4)
	writePNG(t, dir, "b.png", 4, 4)

	ix, err := index.Scan(dir)
	if err != nil {
		t.Fatal(err)
	}

	pool := NewPool(2)
	defer pool.Close()
	d := NewDecoder(pool, 16)

	for i := 0; i < ix.Len(); i++ {
		id, _ := ix.At(i)
		d.Schedule(id)
	}

	got := map[int]bool{}
	deadline := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case r := <-d.Results():
			if r.Err != nil {
				t.Fatalf("decode %v failed: %v", r.ID, r.Err)
			}
			got[r.ID.Ordinal] = true
		case <-deadline:
			t.Fatalf("timed out, got %d results", len(got))
		}
	}
}

func TestPoolExecuteAll(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	var counter atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}

	pool.ExecuteAll(work)
	if counter.Load() != 100 {
		t.Errorf("executed %d items, want 100", counter.Load())
	}
}

func TestPoolSubmitAfterClose(t *testing.T) {
	pool := NewPool(1)
	pool.Close()

	var ran atomic.Bool
	pool.Submit(func() { ran.Store(true) })

	time.Sleep(50 * time.Millisecond)
	if ran.Load() {
		t.Error("work ran after Close")
	}
}

func TestPoolConcurrentSubmit(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	var counter atomic.Int64
	var wg sync.WaitGroup
	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		wg.Add(1)
		pool.Submit(func() {
			counter.Add(1)
			wg.Done()
		})
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for submitted work")
	}
	if counter.Load() != 50 {
		t.Errorf("executed %d, want 50", counter.Load())
	}
}
