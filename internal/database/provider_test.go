package database

import (
	"context"
	"strings"
	"testing"
	"time"
)

type stubLog struct{}

func (stubLog) Mark(ctx context.Context, name string, at time.Time) (bool, error) { return true, nil }
func (stubLog) List(ctx context.Context, day string) ([]AttendanceRecord, error)  { return nil, nil }

func TestProvider_Unregistered(t *testing.T) {
	ResetBackends()
	ctx := context.Background()

	if _, err := GetGalleryWriter(ctx); err == nil || !strings.Contains(err.Error(), "gallery backend") {
		t.Errorf("expected gallery backend error, got %v", err)
	}
	if _, err := GetGalleryReader(ctx); err == nil {
		t.Error("expected error for unregistered reader")
	}
	if _, err := GetAttendanceLog(ctx); err == nil || !strings.Contains(err.Error(), "attendance backend") {
		t.Errorf("expected attendance backend error, got %v", err)
	}
	if GalleryBackendName() != "" || AttendanceBackendName() != "" {
		t.Error("expected empty backend names")
	}
}

func TestProvider_RegisterAttendance(t *testing.T) {
	ResetBackends()
	t.Cleanup(ResetBackends)

	RegisterAttendanceBackend("csv", func() AttendanceLog { return stubLog{} })

	log, err := GetAttendanceLog(context.Background())
	if err != nil {
		t.Fatalf("GetAttendanceLog() error = %v", err)
	}
	marked, _ := log.Mark(context.Background(), "Alice", time.Now())
	if !marked {
		t.Error("expected stub to mark")
	}
	if AttendanceBackendName() != "csv" {
		t.Errorf("expected backend name csv, got %q", AttendanceBackendName())
	}
}
