// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Face matching constants
const (
	// DefaultTolerance is the maximum Euclidean distance between two face
	// descriptors that still counts as the same person
	DefaultTolerance = 0.6

	// DedupIoUThreshold is the Intersection over Union above which two
	// detections are treated as the same face and the weaker one is dropped
	DedupIoUThreshold = 0.5
)

// Processing constants
const (
	// DefaultEncodeWorkers is the default number of parallel workers for dataset encoding
	DefaultEncodeWorkers = 5

	// DefaultJPEGQuality is used when re-encoding images for the engine and for saved samples
	DefaultJPEGQuality = 90
)

// Annotation constants
const (
	// BoxThickness is the stroke width in pixels of face boxes
	BoxThickness = 2

	// LabelHeight is the height of the filled strip under a face box
	LabelHeight = 35

	// LabelPadding is the horizontal and bottom text offset inside the strip
	LabelPadding = 6
)
