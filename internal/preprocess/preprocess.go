// Package preprocess prepares scanned registry sheets for the vision model:
// orientation fix, contrast-limited equalization, and binarization.
package preprocess

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/disintegration/imaging"
)

// ErrUndecodableImage is returned when the input cannot be decoded as an image.
var ErrUndecodableImage = errors.New("undecodable image")

const (
	claheTilesX    = 8
	claheTilesY    = 8
	claheClipLimit = 2.0
)

// Preprocessor writes processed sheets to per-call temp files.
type Preprocessor struct {
	// TempDir is the directory for processed files. Empty means the OS
	// default temp directory.
	TempDir string
}

// New creates a Preprocessor writing into tempDir.
func New(tempDir string) *Preprocessor {
	return &Preprocessor{TempDir: tempDir}
}

// Process reads the image at path and writes the enhanced binary version to a
// unique temp PNG. The returned cleanup removes the temp file; callers must
// invoke it on every exit path. Concurrent calls never share an output file.
func (p *Preprocessor) Process(path string) (string, func(), error) {
	src, err := imaging.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s: %v", ErrUndecodableImage, path, err)
	}

	// Most sheets are scanned landscape; rotate to portrait.
	b := src.Bounds()
	if b.Dx() > b.Dy() {
		src = imaging.Rotate270(src)
	}

	gray := toGray(imaging.Grayscale(src))
	enhanced := clahe(gray, claheTilesX, claheTilesY, claheClipLimit)
	binary := threshold(enhanced, otsuThreshold(enhanced))

	out, err := os.CreateTemp(p.TempDir, "ormd-sheet-*.png")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(out.Name()) }

	if err := png.Encode(out, binary); err != nil {
		_ = out.Close()
		cleanup()
		return "", nil, fmt.Errorf("encoding processed image: %w", err)
	}
	if err := out.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing temp file: %w", err)
	}

	return out.Name(), cleanup, nil
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g.Set(x, y, img.At(x, y))
		}
	}
	return g
}

// clahe applies contrast-limited adaptive histogram equalization over a grid
// of tilesX by tilesY tiles. Each tile gets a clipped-histogram equalization
// mapping; pixel values are bilinearly interpolated between the mappings of
// the four surrounding tile centers.
func clahe(src *image.Gray, tilesX, tilesY int, clipLimit float64) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return src
	}

	tileW := (w + tilesX - 1) / tilesX
	tileH := (h + tilesY - 1) / tilesY

	// Per-tile equalization lookup tables.
	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := min(x0+tileW, w), min(y0+tileH, h)
			luts[ty*tilesX+tx] = tileLUT(src, b, x0, y0, x1, y1, clipLimit)
		}
	}

	dst := image.NewGray(b)
	for y := 0; y < h; y++ {
		// Position relative to tile centers.
		fy := float64(y)/float64(tileH) - 0.5
		ty0 := int(fy)
		if fy < 0 {
			fy = 0
			ty0 = 0
		}
		ty1 := min(ty0+1, tilesY-1)
		wy := fy - float64(ty0)

		for x := 0; x < w; x++ {
			fx := float64(x)/float64(tileW) - 0.5
			tx0 := int(fx)
			if fx < 0 {
				fx = 0
				tx0 = 0
			}
			tx1 := min(tx0+1, tilesX-1)
			wx := fx - float64(tx0)

			v := src.GrayAt(b.Min.X+x, b.Min.Y+y).Y
			tl := float64(luts[ty0*tilesX+tx0][v])
			tr := float64(luts[ty0*tilesX+tx1][v])
			bl := float64(luts[ty1*tilesX+tx0][v])
			br := float64(luts[ty1*tilesX+tx1][v])

			top := tl*(1-wx) + tr*wx
			bottom := bl*(1-wx) + br*wx
			dst.SetGray(b.Min.X+x, b.Min.Y+y, color.Gray{Y: uint8(top*(1-wy) + bottom*wy + 0.5)})
		}
	}
	return dst
}

func tileLUT(src *image.Gray, b image.Rectangle, x0, y0, x1, y1 int, clipLimit float64) [256]uint8 {
	var hist [256]int
	count := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			hist[src.GrayAt(b.Min.X+x, b.Min.Y+y).Y]++
			count++
		}
	}

	var lut [256]uint8
	if count == 0 {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}

	// Clip the histogram and redistribute the excess uniformly.
	clip := int(clipLimit * float64(count) / 256.0)
	if clip < 1 {
		clip = 1
	}
	excess := 0
	for i := range hist {
		if hist[i] > clip {
			excess += hist[i] - clip
			hist[i] = clip
		}
	}
	bonus := excess / 256
	for i := range hist {
		hist[i] += bonus
	}

	cum := 0
	scale := 255.0 / float64(count)
	for i := range hist {
		cum += hist[i]
		lut[i] = uint8(float64(cum)*scale + 0.5)
	}
	return lut
}

// otsuThreshold picks the global threshold maximizing between-class variance.
func otsuThreshold(src *image.Gray) uint8 {
	var hist [256]int
	b := src.Bounds()
	total := b.Dx() * b.Dy()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[src.GrayAt(x, y).Y]++
		}
	}
	if total == 0 {
		return 0
	}

	sum := 0.0
	for i, c := range hist {
		sum += float64(i) * float64(c)
	}

	sumB := 0.0
	wB := 0
	best := 0.0
	threshold := uint8(0)
	for i := 0; i < 256; i++ {
		wB += hist[i]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(i) * float64(hist[i])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = uint8(i)
		}
	}
	return threshold
}

func threshold(src *image.Gray, t uint8) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if src.GrayAt(x, y).Y > t {
				dst.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return dst
}
