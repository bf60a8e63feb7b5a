// Package enginetest provides a deterministic engine.Engine for tests.
package enginetest

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/engine"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// Fake derives one face per image from its mean colour: the descriptor
// starts with the mean R, G, B in [0, 1] and is zero-padded to Dim. Images
// that are (nearly) black contain no face.
type Fake struct {
	Dim int
	Err error // returned from every Detect call when set

	mu    sync.Mutex
	calls int
}

// NewFake creates a fake engine producing descriptors of length dim.
func NewFake(dim int) *Fake {
	return &Fake{Dim: dim}
}

// Detect implements engine.Engine.
func (f *Fake) Detect(ctx context.Context, data []byte) ([]engine.Detection, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	r, g, b := MeanRGB(img)
	if r < 0.02 && g < 0.02 && b < 0.02 {
		return nil, nil
	}

	bounds := img.Bounds()
	dx, dy := bounds.Dx()/10, bounds.Dy()/10
	desc := make([]float32, max(f.Dim, 3))
	desc[0], desc[1], desc[2] = float32(r), float32(g), float32(b)
	return []engine.Detection{{
		Location: facematch.Location{
			Top:    dy,
			Right:  bounds.Dx() - dx,
			Bottom: bounds.Dy() - dy,
			Left:   dx,
		},
		Descriptor: desc,
		Score:      0.99,
	}}, nil
}

// Name implements engine.Engine.
func (f *Fake) Name() string { return "fake" }

// Close implements engine.Engine.
func (f *Fake) Close() error { return nil }

// Calls returns how many times Detect was invoked.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// MeanRGB returns the mean colour of img with channels scaled to [0, 1].
func MeanRGB(img image.Image) (r, g, b float64) {
	bounds := img.Bounds()
	n := float64(bounds.Dx() * bounds.Dy())
	if n == 0 {
		return 0, 0, 0
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			r += float64(cr)
			g += float64(cg)
			b += float64(cb)
		}
	}
	scale := n * 0xffff
	return r / scale, g / scale, b / scale
}

// Descriptor returns the descriptor the fake produces for a solid colour.
func Descriptor(c color.Color, dim int) []float32 {
	cr, cg, cb, _ := c.RGBA()
	desc := make([]float32, max(dim, 3))
	desc[0] = float32(cr) / 0xffff
	desc[1] = float32(cg) / 0xffff
	desc[2] = float32(cb) / 0xffff
	return desc
}

// SolidJPEG encodes a w x h image of a single colour.
func SolidJPEG(c color.Color, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
