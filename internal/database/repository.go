package database

import (
	"context"
	"time"
)

// GalleryReader provides read-only access to the stored gallery of known faces
type GalleryReader interface {
	// LoadKnownFaces returns every stored face in insertion order
	LoadKnownFaces(ctx context.Context) ([]KnownFace, error)
	// Count returns the total number of stored faces
	Count(ctx context.Context) (int, error)
}

// GalleryWriter provides write access to the stored gallery
type GalleryWriter interface {
	GalleryReader

	// SaveKnownFaces replaces the whole gallery with faces
	SaveKnownFaces(ctx context.Context, faces []KnownFace) error

	// AddKnownFace appends a single face
	AddKnownFace(ctx context.Context, face KnownFace) error

	// DeletePerson removes every face of a person. Names are compared
	// normalized (lowercase, no diacritics, dashes to spaces).
	// Returns the number of removed faces.
	DeletePerson(ctx context.Context, name string) (int, error)
}

// AttendanceLog records at most one presence per person per calendar day
type AttendanceLog interface {
	// Mark records name as present on the day of at. It returns false when
	// the person was already marked that day.
	Mark(ctx context.Context, name string, at time.Time) (bool, error)

	// List returns the rows for day (YYYY-MM-DD) in insertion order, or all
	// rows when day is empty.
	List(ctx context.Context, day string) ([]AttendanceRecord, error)
}
