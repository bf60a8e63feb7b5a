package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

var (
	knownColor   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	unknownColor = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	textColor    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Box is one face to draw.
type Box struct {
	Location   facematch.Location
	Name       string
	Confidence float64
	Known      bool
}

// Label returns the text drawn under the box: the bare name for unknown
// faces, "Name (NN%)" for recognised ones.
func (b Box) Label() string {
	if !b.Known {
		return b.Name
	}
	return fmt.Sprintf("%s (%.0f%%)", b.Name, b.Confidence)
}

// Annotate returns a copy of img with a frame and a label strip drawn for
// every box.
func Annotate(img image.Image, boxes []Box) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Src)

	for _, b := range boxes {
		c := unknownColor
		if b.Known {
			c = knownColor
		}
		r := b.Location.Rect().Add(bounds.Min).Intersect(bounds)
		if r.Empty() {
			continue
		}
		drawFrame(dst, r, c, constants.BoxThickness)

		strip := image.Rect(r.Min.X, r.Max.Y-constants.LabelHeight, r.Max.X, r.Max.Y).Intersect(bounds)
		draw.Draw(dst, strip, image.NewUniform(c), image.Point{}, draw.Src)

		d := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(textColor),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(r.Min.X+constants.LabelPadding, r.Max.Y-constants.LabelPadding),
		}
		d.DrawString(b.Label())
	}
	return dst
}

// drawFrame strokes the inside edge of r with the given thickness.
func drawFrame(dst *image.RGBA, r image.Rectangle, c color.Color, thickness int) {
	u := image.NewUniform(c)
	t := min(thickness, r.Dx(), r.Dy())
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e, u, image.Point{}, draw.Src)
	}
}
