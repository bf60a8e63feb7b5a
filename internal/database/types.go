package database

import (
	"time"
)

// KnownFace is one enrolled face: a person's name and the descriptor
// computed from one of their sample images.
type KnownFace struct {
	ID         string // uuid
	Name       string
	Descriptor []float32
	Source     string // sample path the descriptor was computed from, may be empty
	CreatedAt  time.Time
}

// AttendanceRecord is a single row of the attendance log.
type AttendanceRecord struct {
	Name string `json:"name"`
	Date string `json:"date"` // YYYY-MM-DD
	Time string `json:"time"` // HH:MM:SS
}
