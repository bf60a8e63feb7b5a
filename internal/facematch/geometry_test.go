package facematch

import (
	"image"
	"math"
	"testing"
)

func TestComputeIoU(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Location
		expected float64
	}{
		{
			name:     "identical boxes",
			a:        Location{Top: 0, Right: 10, Bottom: 10, Left: 0},
			b:        Location{Top: 0, Right: 10, Bottom: 10, Left: 0},
			expected: 1.0,
		},
		{
			name:     "no overlap",
			a:        Location{Top: 0, Right: 10, Bottom: 10, Left: 0},
			b:        Location{Top: 20, Right: 30, Bottom: 30, Left: 20},
			expected: 0.0,
		},
		{
			name:     "partial overlap",
			a:        Location{Top: 0, Right: 10, Bottom: 10, Left: 0},
			b:        Location{Top: 5, Right: 15, Bottom: 15, Left: 5},
			expected: 25.0 / 175.0, // intersection=25, union=100+100-25=175
		},
		{
			name:     "one inside other",
			a:        Location{Top: 0, Right: 20, Bottom: 20, Left: 0},
			b:        Location{Top: 5, Right: 15, Bottom: 15, Left: 5},
			expected: 100.0 / 400.0,
		},
		{
			name:     "degenerate",
			a:        Location{},
			b:        Location{},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ComputeIoU(tt.a, tt.b)
			if math.Abs(result-tt.expected) > 0.0001 {
				t.Errorf("ComputeIoU(%v, %v) = %v, want %v", tt.a, tt.b, result, tt.expected)
			}
		})
	}
}

func TestFromCorners(t *testing.T) {
	loc := FromCorners([]float64{10.4, 20.6, 110, 220})
	want := Location{Top: 21, Right: 110, Bottom: 220, Left: 10}
	if loc != want {
		t.Errorf("FromCorners() = %+v, want %+v", loc, want)
	}
	if got := FromCorners([]float64{1, 2}); got != (Location{}) {
		t.Errorf("FromCorners(short) = %+v, want zero", got)
	}
}

func TestLocationRectRoundTrip(t *testing.T) {
	r := image.Rect(5, 10, 50, 80)
	loc := FromRect(r)
	if loc.Rect() != r {
		t.Errorf("round trip = %v, want %v", loc.Rect(), r)
	}
	if loc.Width() != 45 || loc.Height() != 70 {
		t.Errorf("unexpected size %dx%d", loc.Width(), loc.Height())
	}
}

func TestLocationScaleAndClamp(t *testing.T) {
	loc := Location{Top: 10, Right: 40, Bottom: 30, Left: 5}
	if got := loc.Scale(1); got != loc {
		t.Errorf("Scale(1) changed location: %+v", got)
	}
	want := Location{Top: 40, Right: 160, Bottom: 120, Left: 20}
	if got := loc.Scale(4); got != want {
		t.Errorf("Scale(4) = %+v, want %+v", got, want)
	}

	clamped := Location{Top: -5, Right: 120, Bottom: 90, Left: -1}.Clamp(100, 80)
	wantClamped := Location{Top: 0, Right: 100, Bottom: 80, Left: 0}
	if clamped != wantClamped {
		t.Errorf("Clamp() = %+v, want %+v", clamped, wantClamped)
	}
}

type scoredBox struct {
	loc   Location
	score float64
}

func (s scoredBox) Box() Location       { return s.loc }
func (s scoredBox) Confidence() float64 { return s.score }

func TestDedupIndices(t *testing.T) {
	items := []scoredBox{
		{loc: Location{Top: 0, Right: 10, Bottom: 10, Left: 0}, score: 0.5},
		{loc: Location{Top: 0, Right: 10, Bottom: 11, Left: 0}, score: 0.9},
		{loc: Location{Top: 50, Right: 60, Bottom: 60, Left: 50}, score: 0.3},
	}

	keep := DedupIndices(items, 0.5)
	if len(keep) != 2 || keep[0] != 1 || keep[1] != 2 {
		t.Errorf("DedupIndices() = %v, want [1 2]", keep)
	}

	if got := DedupIndices([]scoredBox{}, 0.5); len(got) != 0 {
		t.Errorf("DedupIndices(empty) = %v, want empty", got)
	}
}
