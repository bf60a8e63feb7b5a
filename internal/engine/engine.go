// Package engine wraps the external face detector/encoder behind a small
// interface and turns raw uploads into face detections.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/imaging"
)

// ErrDimensionMismatch is returned when the engine produces descriptors of a
// length different from the configured one.
var ErrDimensionMismatch = errors.New("descriptor dimension mismatch")

// Detection is a single face found by an engine.
type Detection struct {
	Location   facematch.Location
	Descriptor []float32
	Score      float64
}

// Box implements facematch.Scored.
func (d Detection) Box() facematch.Location { return d.Location }

// Confidence implements facematch.Scored.
func (d Detection) Confidence() float64 { return d.Score }

// Engine detects faces in a JPEG image and computes a descriptor for each.
// Locations are in pixels of the submitted image.
type Engine interface {
	Detect(ctx context.Context, jpeg []byte) ([]Detection, error)
	Name() string
	Close() error
}

// Pipeline decodes uploads, normalises them for the engine and maps the
// results back onto the original image.
type Pipeline struct {
	engine      Engine
	maxSide     int
	dim         int
	jpegQuality int
}

// NewPipeline creates a pipeline. dim <= 0 disables the descriptor length check.
func NewPipeline(e Engine, maxSide, dim, jpegQuality int) *Pipeline {
	if jpegQuality <= 0 {
		jpegQuality = constants.DefaultJPEGQuality
	}
	return &Pipeline{engine: e, maxSide: maxSide, dim: dim, jpegQuality: jpegQuality}
}

// Engine returns the wrapped engine.
func (p *Pipeline) Engine() Engine {
	return p.engine
}

// Dim returns the expected descriptor length.
func (p *Pipeline) Dim() int {
	return p.dim
}

// Result holds the decoded image together with its detections.
type Result struct {
	Image      image.Image
	Format     string
	Detections []Detection
}

// Process decodes data and runs detection on it.
func (p *Pipeline) Process(ctx context.Context, data []byte) (*Result, error) {
	img, format, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}
	dets, err := p.DetectImage(ctx, img)
	if err != nil {
		return nil, err
	}
	return &Result{Image: img, Format: format, Detections: dets}, nil
}

// DetectImage runs detection on an already decoded image.
func (p *Pipeline) DetectImage(ctx context.Context, img image.Image) ([]Detection, error) {
	prepared, factor := imaging.Prepare(img, p.maxSide)
	jpegData, err := imaging.JPEGBytes(prepared, p.jpegQuality)
	if err != nil {
		return nil, err
	}

	dets, err := p.engine.Detect(ctx, jpegData)
	if err != nil {
		return nil, fmt.Errorf("%s engine: %w", p.engine.Name(), err)
	}

	b := img.Bounds()
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if p.dim > 0 && len(d.Descriptor) != p.dim {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(d.Descriptor), p.dim)
		}
		d.Location = d.Location.Scale(factor).Clamp(b.Dx(), b.Dy())
		out = append(out, d)
	}

	keep := facematch.DedupIndices(out, constants.DedupIoUThreshold)
	if len(keep) == len(out) {
		return out, nil
	}
	deduped := make([]Detection, 0, len(keep))
	for _, i := range keep {
		deduped = append(deduped, out[i])
	}
	return deduped, nil
}
