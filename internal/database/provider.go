package database

import (
	"context"
	"fmt"
	"sync"
)

var (
	providerMu        sync.RWMutex
	galleryWriter     func() GalleryWriter
	galleryBackend    string
	attendanceLog     func() AttendanceLog
	attendanceBackend string
)

// RegisterGalleryBackend registers the constructor of the active gallery store.
// This is called at startup by the command wiring to avoid import cycles.
func RegisterGalleryBackend(name string, writer func() GalleryWriter) {
	providerMu.Lock()
	defer providerMu.Unlock()
	galleryBackend = name
	galleryWriter = writer
}

// RegisterAttendanceBackend registers the constructor of the active attendance log.
func RegisterAttendanceBackend(name string, log func() AttendanceLog) {
	providerMu.Lock()
	defer providerMu.Unlock()
	attendanceBackend = name
	attendanceLog = log
}

// GetGalleryWriter returns a GalleryWriter from the registered backend
func GetGalleryWriter(ctx context.Context) (GalleryWriter, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if galleryWriter == nil {
		return nil, fmt.Errorf("gallery backend not registered")
	}
	return galleryWriter(), nil
}

// GetGalleryReader returns a GalleryReader from the registered backend
func GetGalleryReader(ctx context.Context) (GalleryReader, error) {
	w, err := GetGalleryWriter(ctx)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// GetAttendanceLog returns an AttendanceLog from the registered backend
func GetAttendanceLog(ctx context.Context) (AttendanceLog, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if attendanceLog == nil {
		return nil, fmt.Errorf("attendance backend not registered")
	}
	return attendanceLog(), nil
}

// GalleryBackendName returns the name of the registered gallery backend, or "".
func GalleryBackendName() string {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return galleryBackend
}

// AttendanceBackendName returns the name of the registered attendance backend, or "".
func AttendanceBackendName() string {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return attendanceBackend
}

// ResetBackends clears all registrations. Used by tests.
func ResetBackends() {
	providerMu.Lock()
	defer providerMu.Unlock()
	galleryWriter = nil
	galleryBackend = ""
	attendanceLog = nil
	attendanceBackend = ""
}
