// Package index builds the ordered image index for a directory.
//
// An Index is immutable after Scan: navigation, caching and atlas state are
// all keyed by the ordinals it assigns. Reloading a directory means building
// a new Index and discarding the old one.
package index

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/maruel/natural"
)

// ErrDirectoryUnreadable is returned when a directory cannot be scanned.
// The failure is fatal to that directory load only.
var ErrDirectoryUnreadable = errors.New("index: directory unreadable")

// ErrOutOfRange is returned for ordinals outside [0, Len).
var ErrOutOfRange = errors.New("index: ordinal out of range")

// supportedExts are the file extensions the decode layer can handle.
var supportedExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// ImageID identifies one image within a scanned directory.
// It is immutable once the Index is built.
type ImageID struct {
	// Dir is a stable 64-bit identity of the containing directory.
	Dir uint64
	// Ordinal is the position within the natural sort order.
	Ordinal int
	// Path is the absolute file path.
	Path string
}

// String returns a short representation for logging.
func (id ImageID) String() string {
	return fmt.Sprintf("%s#%d", filepath.Base(id.Path), id.Ordinal)
}

// Index is an immutable, naturally ordered list of images in one directory.
type Index struct {
	dir   string
	dirID uint64
	ids   []ImageID
}

// Scan reads a directory and builds its index. File names are ordered
// naturally (img2 before img10). Non-image files are skipped.
func Scan(dir string) (*Index, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDirectoryUnreadable, dir, err)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDirectoryUnreadable, abs, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if supportedExts[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return natural.Less(names[i], names[j])
	})

	dirID := xxhash.Sum64String(abs)
	ids := make([]ImageID, len(names))
	for i, name := range names {
		ids[i] = ImageID{
			Dir:     dirID,
			Ordinal: i,
			Path:    filepath.Join(abs, name),
		}
	}

	return &Index{dir: abs, dirID: dirID, ids: ids}, nil
}

// Dir returns the absolute directory path.
func (ix *Index) Dir() string { return ix.dir }

// DirID returns the stable directory identity.
func (ix *Index) DirID() uint64 { return ix.dirID }

// Len returns the number of images.
func (ix *Index) Len() int { return len(ix.ids) }

// Contains reports whether ordinal i is within range.
func (ix *Index) Contains(i int) bool {
	return i >= 0 && i < len(ix.ids)
}

// At returns the ImageID at ordinal i.
func (ix *Index) At(i int) (ImageID, error) {
	if !ix.Contains(i) {
		return ImageID{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, len(ix.ids))
	}
	return ix.ids[i], nil
}

// Clamp limits an ordinal to [0, Len). An empty index clamps to 0.
func (ix *Index) Clamp(i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(ix.ids) {
		if len(ix.ids) == 0 {
			return 0
		}
		return len(ix.ids) - 1
	}
	return i
}
