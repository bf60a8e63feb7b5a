package facematch

import (
	"image"
	"math"
	"sort"
)

// Location is a face bounding box in pixel coordinates, ordered the way
// face_recognition reports it: top, right, bottom, left.
type Location struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// FromCorners converts a [x1, y1, x2, y2] bounding box to a Location.
// Returns the zero Location if bbox does not have four elements.
func FromCorners(bbox []float64) Location {
	if len(bbox) != 4 {
		return Location{}
	}
	return Location{
		Top:    int(math.Round(bbox[1])),
		Right:  int(math.Round(bbox[2])),
		Bottom: int(math.Round(bbox[3])),
		Left:   int(math.Round(bbox[0])),
	}
}

// FromRect converts an image.Rectangle to a Location.
func FromRect(r image.Rectangle) Location {
	return Location{Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y, Left: r.Min.X}
}

// Rect returns the location as an image.Rectangle.
func (l Location) Rect() image.Rectangle {
	return image.Rect(l.Left, l.Top, l.Right, l.Bottom)
}

// Width returns the box width in pixels.
func (l Location) Width() int { return l.Right - l.Left }

// Height returns the box height in pixels.
func (l Location) Height() int { return l.Bottom - l.Top }

// Scale multiplies every coordinate by f, used to map boxes found on a
// downscaled image back onto the original.
func (l Location) Scale(f float64) Location {
	if f == 1 {
		return l
	}
	return Location{
		Top:    int(math.Round(float64(l.Top) * f)),
		Right:  int(math.Round(float64(l.Right) * f)),
		Bottom: int(math.Round(float64(l.Bottom) * f)),
		Left:   int(math.Round(float64(l.Left) * f)),
	}
}

// Clamp restricts the box to an image of the given size.
func (l Location) Clamp(width, height int) Location {
	return Location{
		Top:    min(max(l.Top, 0), height),
		Right:  min(max(l.Right, 0), width),
		Bottom: min(max(l.Bottom, 0), height),
		Left:   min(max(l.Left, 0), width),
	}
}

// ComputeIoU calculates Intersection over Union between two locations.
func ComputeIoU(a, b Location) float64 {
	x1 := max(a.Left, b.Left)
	y1 := max(a.Top, b.Top)
	x2 := min(a.Right, b.Right)
	y2 := min(a.Bottom, b.Bottom)

	if x2 <= x1 || y2 <= y1 {
		return 0 // No intersection
	}

	intersection := float64((x2 - x1) * (y2 - y1))
	areaA := float64(a.Width() * a.Height())
	areaB := float64(b.Width() * b.Height())
	union := areaA + areaB - intersection

	if union <= 0 {
		return 0
	}

	return intersection / union
}

// Scored is anything with a location and a detection score.
type Scored interface {
	Box() Location
	Confidence() float64
}

// DedupIndices returns the indices of items to keep after dropping any item
// that overlaps a higher-scored item by more than threshold IoU. The
// returned indices keep the original order.
func DedupIndices[T Scored](items []T, threshold float64) []int {
	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return items[order[a]].Confidence() > items[order[b]].Confidence()
	})

	dropped := make([]bool, len(items))
	for i, idx := range order {
		if dropped[idx] {
			continue
		}
		for _, other := range order[i+1:] {
			if !dropped[other] && ComputeIoU(items[idx].Box(), items[other].Box()) > threshold {
				dropped[other] = true
			}
		}
	}

	keep := make([]int, 0, len(items))
	for i := range items {
		if !dropped[i] {
			keep = append(keep, i)
		}
	}
	return keep
}
