package atlas

import "math"

// Block is one compressed BC1 block: two little-endian RGB565 endpoints
// followed by sixteen 2-bit palette indices.
type Block [8]byte

const blockDim = 4

// Executor fans independent work items across workers and waits for all
// of them. Satisfied by the decode pool.
type Executor interface {
	ExecuteAll(work []func())
}

// CompressBC1 encodes RGBA pixel data into BC1 blocks, row-major in
// block order. Blocks on the right and bottom edges are padded with
// transparent black. The output is deterministic for a given input
// regardless of how exec schedules the work; a nil exec compresses
// serially.
//
// Encoding is lossy: endpoints are quantized to RGB565, so any channel
// may shift by up to the quantization step (8 for red and blue, 4 for
// green).
func CompressBC1(exec Executor, data []byte, width, height int) []Block {
	if width <= 0 || height <= 0 {
		return nil
	}

	blocksX := (width + blockDim - 1) / blockDim
	blocksY := (height + blockDim - 1) / blockDim
	out := make([]Block, blocksX*blocksY)

	// One task per block row keeps task count proportional to image
	// height without per-block scheduling overhead.
	tasks := make([]func(), 0, blocksY)
	for by := 0; by < blocksY; by++ {
		by := by
		tasks = append(tasks, func() {
			for bx := 0; bx < blocksX; bx++ {
				block := extractBlock(data, width, height, bx*blockDim, by*blockDim)
				out[by*blocksX+bx] = compressBlock(&block)
			}
		})
	}

	if exec == nil {
		for _, t := range tasks {
			t()
		}
	} else {
		exec.ExecuteAll(tasks)
	}
	return out
}

// CompressedSize returns the BC1 byte size for an image of the given
// dimensions.
func CompressedSize(width, height int) uint64 {
	blocksX := (width + blockDim - 1) / blockDim
	blocksY := (height + blockDim - 1) / blockDim
	return uint64(blocksX) * uint64(blocksY) * 8
}

// rgbaBlock is an uncompressed 4x4 tile, row-major, RGBA per pixel.
type rgbaBlock [16][4]byte

func extractBlock(data []byte, width, height, x0, y0 int) rgbaBlock {
	var block rgbaBlock
	for by := 0; by < blockDim; by++ {
		py := y0 + by
		if py >= height {
			break
		}
		for bx := 0; bx < blockDim; bx++ {
			px := x0 + bx
			if px >= width {
				break
			}
			i := 4 * (py*width + px)
			copy(block[by*blockDim+bx][:], data[i:i+4])
		}
	}
	return block
}

func rgbTo565(r, g, b byte) uint16 {
	return (uint16(r)>>3)<<11 | (uint16(g)>>2)<<5 | uint16(b)>>3
}

type rgb struct{ r, g, b byte }

func distSq(a rgb, b rgb) float64 {
	dr := float64(a.r) - float64(b.r)
	dg := float64(a.g) - float64(b.g)
	db := float64(a.b) - float64(b.b)
	return dr*dr + dg*dg + db*db
}

// principalAxis finds the dominant color direction of the block via a
// covariance matrix and a few rounds of power iteration.
func principalAxis(colors []rgb) (float64, float64, float64) {
	var sumR, sumG, sumB float64
	for _, c := range colors {
		sumR += float64(c.r)
		sumG += float64(c.g)
		sumB += float64(c.b)
	}
	n := float64(len(colors))
	meanR, meanG, meanB := sumR/n, sumG/n, sumB/n

	var cov [3][3]float64
	for _, c := range colors {
		dr := float64(c.r) - meanR
		dg := float64(c.g) - meanG
		db := float64(c.b) - meanB
		cov[0][0] += dr * dr
		cov[0][1] += dr * dg
		cov[0][2] += dr * db
		cov[1][1] += dg * dg
		cov[1][2] += dg * db
		cov[2][2] += db * db
	}
	cov[1][0] = cov[0][1]
	cov[2][0] = cov[0][2]
	cov[2][1] = cov[1][2]

	ax, ay, az := 1.0, 1.0, 1.0
	for i := 0; i < 4; i++ {
		x := cov[0][0]*ax + cov[0][1]*ay + cov[0][2]*az
		y := cov[1][0]*ax + cov[1][1]*ay + cov[1][2]*az
		z := cov[2][0]*ax + cov[2][1]*ay + cov[2][2]*az
		length := math.Sqrt(x*x + y*y + z*z)
		if length > 0 {
			ax, ay, az = x/length, y/length, z/length
		}
	}
	return ax, ay, az
}

// compressBlock encodes one 4x4 tile with range fit: project opaque
// colors on the principal axis, take the extremes as endpoints, then map
// each pixel to the nearest palette entry.
func compressBlock(block *rgbaBlock) Block {
	colors := make([]rgb, 0, 16)
	for _, px := range block {
		if px[3] > 128 {
			colors = append(colors, rgb{px[0], px[1], px[2]})
		}
	}
	if len(colors) == 0 {
		return Block{}
	}

	ax, ay, az := principalAxis(colors)

	minProj, maxProj := math.Inf(1), math.Inf(-1)
	var minColor, maxColor rgb
	for _, c := range colors {
		proj := float64(c.r)*ax + float64(c.g)*ay + float64(c.b)*az
		if proj < minProj {
			minProj = proj
			minColor = c
		}
		if proj > maxProj {
			maxProj = proj
			maxColor = c
		}
	}

	color0 := rgbTo565(minColor.r, minColor.g, minColor.b)
	color1 := rgbTo565(maxColor.r, maxColor.g, maxColor.b)

	palette := [4]rgb{minColor, maxColor, {}, {}}
	if color0 > color1 {
		// Four-color mode: two interpolated entries at 1/3 and 2/3.
		palette[2] = rgb{
			byte((2*uint16(minColor.r) + uint16(maxColor.r)) / 3),
			byte((2*uint16(minColor.g) + uint16(maxColor.g)) / 3),
			byte((2*uint16(minColor.b) + uint16(maxColor.b)) / 3),
		}
		palette[3] = rgb{
			byte((uint16(minColor.r) + 2*uint16(maxColor.r)) / 3),
			byte((uint16(minColor.g) + 2*uint16(maxColor.g)) / 3),
			byte((uint16(minColor.b) + 2*uint16(maxColor.b)) / 3),
		}
	} else {
		// Three-color mode: midpoint plus the transparent entry.
		palette[2] = rgb{
			byte((uint16(minColor.r) + uint16(maxColor.r)) / 2),
			byte((uint16(minColor.g) + uint16(maxColor.g)) / 2),
			byte((uint16(minColor.b) + uint16(maxColor.b)) / 2),
		}
	}

	var indices uint32
	for i, px := range block {
		best := 0
		if px[3] <= 128 {
			best = 3
		} else {
			bestDist := math.Inf(1)
			for j, pc := range palette {
				if d := distSq(rgb{px[0], px[1], px[2]}, pc); d < bestDist {
					bestDist = d
					best = j
				}
			}
		}
		indices |= uint32(best) << (2 * i)
	}

	var out Block
	out[0] = byte(color0)
	out[1] = byte(color0 >> 8)
	out[2] = byte(color1)
	out[3] = byte(color1 >> 8)
	out[4] = byte(indices)
	out[5] = byte(indices >> 8)
	out[6] = byte(indices >> 16)
	out[7] = byte(indices >> 24)
	return out
}
