// Package facematch compares face descriptors against a set of known faces
// and holds the geometry and name helpers shared by the CLI and web handlers.
package facematch

import "math"

// Match is the outcome of comparing one descriptor against known faces.
type Match struct {
	Index      int     // index of the closest known face, -1 if there are none
	Name       string  // matched name, or the unknown label
	Distance   float64 // Euclidean distance to the closest known face
	Confidence float64 // (1 - distance) * 100, clamped to [0, 100]; 0 when unmatched
	Matched    bool
}

// Distance returns the Euclidean distance between two descriptors.
// Vectors of different or zero length are infinitely far apart.
func Distance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// FaceDistance returns the distance from candidate to every known descriptor.
func FaceDistance(known [][]float32, candidate []float32) []float64 {
	out := make([]float64, len(known))
	for i, k := range known {
		out[i] = Distance(k, candidate)
	}
	return out
}

// CompareFaces reports, for every known descriptor, whether candidate lies
// within tolerance of it.
func CompareFaces(known [][]float32, candidate []float32, tolerance float64) []bool {
	out := make([]bool, len(known))
	for i, d := range FaceDistance(known, candidate) {
		out[i] = d <= tolerance
	}
	return out
}

// Confidence converts a distance to a percentage score.
func Confidence(distance float64) float64 {
	c := (1 - distance) * 100
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// BestMatch picks the closest known face. It matches only when that face is
// within tolerance; ties resolve to the lowest index.
func BestMatch(known [][]float32, names []string, candidate []float32, tolerance float64, unknownLabel string) Match {
	m := Match{Index: -1, Name: unknownLabel, Distance: math.Inf(1)}
	for i, d := range FaceDistance(known, candidate) {
		if d < m.Distance {
			m.Index = i
			m.Distance = d
		}
	}
	return Resolve(m, names, tolerance, unknownLabel)
}

// Resolve fills Name, Matched and Confidence for a match whose Index and
// Distance are already known.
func Resolve(m Match, names []string, tolerance float64, unknownLabel string) Match {
	if m.Index < 0 || m.Index >= len(names) || m.Distance > tolerance {
		m.Name = unknownLabel
		m.Matched = false
		m.Confidence = 0
		return m
	}
	m.Name = names[m.Index]
	m.Matched = true
	m.Confidence = Confidence(m.Distance)
	return m
}
