// Package thumbnail renders JPEG previews through libvips.
package thumbnail

import (
	"fmt"
	"math"

	"github.com/h2non/bimg"
)

// MaxPixels caps the working resolution; larger inputs are downscaled first.
const MaxPixels = 50_000_000

type Generator struct{}

func New() *Generator { return &Generator{} }

// Thumbnail decodes data, applies EXIF orientation, converts to sRGB and fits
// the result into a box×box square without enlarging it.
func (g *Generator) Thumbnail(data []byte, box, quality int) ([]byte, error) {
	img := bimg.NewImage(data)
	size, err := img.Size()
	if err != nil {
		return nil, fmt.Errorf("read image size: %w", err)
	}

	if w, h := capPixels(size.Width, size.Height, MaxPixels); w != size.Width || h != size.Height {
		data, err = img.Process(bimg.Options{Width: w, Height: h, Force: true})
		if err != nil {
			return nil, fmt.Errorf("downscale: %w", err)
		}
		img = bimg.NewImage(data)
	}

	rotated, err := img.AutoRotate()
	if err != nil {
		return nil, fmt.Errorf("auto-rotate: %w", err)
	}
	img = bimg.NewImage(rotated)
	size, err = img.Size()
	if err != nil {
		return nil, fmt.Errorf("read image size: %w", err)
	}

	w, h := Fit(size.Width, size.Height, box)
	out, err := img.Process(bimg.Options{
		Width:          w,
		Height:         h,
		Force:          true,
		Quality:        quality,
		Type:           bimg.JPEG,
		Interpretation: bimg.InterpretationSRGB,
		StripMetadata:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return out, nil
}

// Fit scales w×h to fit inside box×box preserving aspect ratio. Images that
// already fit are returned unchanged.
func Fit(w, h, box int) (int, int) {
	if w <= 0 || h <= 0 || box <= 0 {
		return w, h
	}
	if w <= box && h <= box {
		return w, h
	}
	if w >= h {
		return box, max(1, int(math.Round(float64(h)*float64(box)/float64(w))))
	}
	return max(1, int(math.Round(float64(w)*float64(box)/float64(h)))), box
}

func capPixels(w, h, limit int) (int, int) {
	if w <= 0 || h <= 0 || w*h <= limit {
		return w, h
	}
	scale := math.Sqrt(float64(limit) / float64(w*h))
	return max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale))
}
