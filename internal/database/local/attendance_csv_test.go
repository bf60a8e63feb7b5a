package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/face-attendance/internal/database"
)

func TestCSVAttendance_MarkOncePerDay(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "attendance.csv")
	log := NewCSVAttendance(path)

	morning := time.Date(2024, 3, 1, 8, 15, 0, 0, time.UTC)
	noon := time.Date(2024, 3, 1, 12, 0, 5, 0, time.UTC)
	nextDay := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)

	marked, err := log.Mark(ctx, "Alice", morning)
	require.NoError(t, err)
	assert.True(t, marked)

	marked, err = log.Mark(ctx, "Alice", noon)
	require.NoError(t, err)
	assert.False(t, marked)

	marked, err = log.Mark(ctx, "Bob", noon)
	require.NoError(t, err)
	assert.True(t, marked)

	marked, err = log.Mark(ctx, "Alice", nextDay)
	require.NoError(t, err)
	assert.True(t, marked)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Name,Date,Time\nAlice,2024-03-01,08:15:00\nBob,2024-03-01,12:00:05\nAlice,2024-03-02,09:00:00\n", string(data))

	day, err := log.List(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, []database.AttendanceRecord{
		{Name: "Alice", Date: "2024-03-01", Time: "08:15:00"},
		{Name: "Bob", Date: "2024-03-01", Time: "12:00:05"},
	}, day)

	all, err := log.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCSVAttendance_ExactNameMatch(t *testing.T) {
	ctx := context.Background()
	log := NewCSVAttendance(filepath.Join(t.TempDir(), "attendance.csv"))
	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	marked, err := log.Mark(ctx, "Alice Smith", at)
	require.NoError(t, err)
	assert.True(t, marked)

	// A name that is a substring of an existing row is a different person.
	marked, err = log.Mark(ctx, "Alice", at)
	require.NoError(t, err)
	assert.True(t, marked)

	marked, err = log.Mark(ctx, "Name, with comma", at)
	require.NoError(t, err)
	assert.True(t, marked)

	rows, err := log.List(ctx, "2024-03-01")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Name, with comma", rows[2].Name)
}

func TestCSVAttendance_MissingFile(t *testing.T) {
	rows, err := NewCSVAttendance(filepath.Join(t.TempDir(), "none.csv")).List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, rows)
}
