// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// MockGalleryWriter is a mock implementation of database.GalleryWriter
type MockGalleryWriter struct {
	mu    sync.RWMutex
	faces []database.KnownFace

	// Error injection
	LoadError   error
	CountError  error
	SaveError   error
	AddError    error
	DeleteError error

	// SaveCalls counts successful SaveKnownFaces calls
	SaveCalls int
}

// NewMockGalleryWriter creates a new mock gallery store holding faces
func NewMockGalleryWriter(faces ...database.KnownFace) *MockGalleryWriter {
	return &MockGalleryWriter{faces: append([]database.KnownFace(nil), faces...)}
}

// Faces returns a copy of the stored faces
func (m *MockGalleryWriter) Faces() []database.KnownFace {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]database.KnownFace(nil), m.faces...)
}

// LoadKnownFaces returns all stored faces
func (m *MockGalleryWriter) LoadKnownFaces(ctx context.Context) ([]database.KnownFace, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	return m.Faces(), nil
}

// Count returns the number of stored faces
func (m *MockGalleryWriter) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.faces), nil
}

// SaveKnownFaces replaces all stored faces
func (m *MockGalleryWriter) SaveKnownFaces(ctx context.Context, faces []database.KnownFace) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = append([]database.KnownFace(nil), faces...)
	m.SaveCalls++
	return nil
}

// AddKnownFace appends a face
func (m *MockGalleryWriter) AddKnownFace(ctx context.Context, face database.KnownFace) error {
	if m.AddError != nil {
		return m.AddError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = append(m.faces, face)
	return nil
}

// DeletePerson removes all faces of a person (normalized name comparison)
func (m *MockGalleryWriter) DeletePerson(ctx context.Context, name string) (int, error) {
	if m.DeleteError != nil {
		return 0, m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var kept []database.KnownFace
	for _, f := range m.faces {
		if !facematch.SameName(f.Name, name) {
			kept = append(kept, f)
		}
	}
	removed := len(m.faces) - len(kept)
	m.faces = kept
	return removed, nil
}

// MockAttendanceLog is a mock implementation of database.AttendanceLog
type MockAttendanceLog struct {
	mu      sync.RWMutex
	records []database.AttendanceRecord

	// Error injection
	MarkError error
	ListError error
}

// NewMockAttendanceLog creates a new empty mock attendance log
func NewMockAttendanceLog() *MockAttendanceLog {
	return &MockAttendanceLog{}
}

// Mark records name once per day
func (m *MockAttendanceLog) Mark(ctx context.Context, name string, at time.Time) (bool, error) {
	if m.MarkError != nil {
		return false, m.MarkError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	day := at.Format(constants.DateLayout)
	for _, r := range m.records {
		if r.Name == name && r.Date == day {
			return false, nil
		}
	}
	m.records = append(m.records, database.AttendanceRecord{
		Name: name,
		Date: day,
		Time: at.Format(constants.TimeLayout),
	})
	return true, nil
}

// List returns the rows of day, or all rows when day is empty
func (m *MockAttendanceLog) List(ctx context.Context, day string) ([]database.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []database.AttendanceRecord
	for _, r := range m.records {
		if day == "" || r.Date == day {
			out = append(out, r)
		}
	}
	return out, nil
}

// Records returns a copy of all rows
func (m *MockAttendanceLog) Records() []database.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]database.AttendanceRecord(nil), m.records...)
}

// Compile-time interface checks
var (
	_ database.GalleryWriter = (*MockGalleryWriter)(nil)
	_ database.AttendanceLog = (*MockAttendanceLog)(nil)
)
