// Package constants provides shared constants used across the codebase.
package constants

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// File upload constants
const (
	// MaxUploadSize is the maximum file upload size in bytes (32MB)
	MaxUploadSize = 32 << 20
)

// Attendance formatting
const (
	// DateLayout is the calendar-day format used by the attendance log
	DateLayout = "2006-01-02"

	// TimeLayout is the time-of-day format used by the attendance log
	TimeLayout = "15:04:05"

	// SampleFileLayout names collected samples, e.g. 20240131_084512.jpg
	SampleFileLayout = "20060102_150405"
)
