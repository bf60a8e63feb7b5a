package local

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

var csvHeader = []string{"Name", "Date", "Time"}

// CSVAttendance keeps the attendance log in a CSV file with a Name,Date,Time header.
type CSVAttendance struct {
	path string
	mu   sync.Mutex
}

// NewCSVAttendance creates a log backed by path. The file is created on first Mark.
func NewCSVAttendance(path string) *CSVAttendance {
	return &CSVAttendance{path: path}
}

// Path returns the file location.
func (a *CSVAttendance) Path() string {
	return a.path
}

// Mark appends a row unless name already has one for the day of at.
func (a *CSVAttendance) Mark(ctx context.Context, name string, at time.Time) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	day := at.Format(constants.DateLayout)
	records, err := a.read()
	if err != nil {
		return false, err
	}
	for _, r := range records {
		if r.Name == name && r.Date == day {
			return false, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return false, fmt.Errorf("create attendance directory: %w", err)
	}
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return false, fmt.Errorf("open attendance file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat attendance file: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return false, fmt.Errorf("write attendance header: %w", err)
		}
	}
	if err := w.Write([]string{name, day, at.Format(constants.TimeLayout)}); err != nil {
		return false, fmt.Errorf("write attendance row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return false, fmt.Errorf("flush attendance file: %w", err)
	}
	return true, nil
}

// List returns the rows of day, or all rows when day is empty.
func (a *CSVAttendance) List(ctx context.Context, day string) ([]database.AttendanceRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	records, err := a.read()
	if err != nil {
		return nil, err
	}
	if day == "" {
		return records, nil
	}
	out := make([]database.AttendanceRecord, 0, len(records))
	for _, r := range records {
		if r.Date == day {
			out = append(out, r)
		}
	}
	return out, nil
}

func (a *CSVAttendance) read() ([]database.AttendanceRecord, error) {
	f, err := os.Open(a.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open attendance file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var records []database.AttendanceRecord
	first := true
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse attendance file: %w", err)
		}
		if first {
			first = false
			if len(row) >= 1 && row[0] == csvHeader[0] {
				continue
			}
		}
		if len(row) < 3 {
			continue
		}
		records = append(records, database.AttendanceRecord{Name: row[0], Date: row[1], Time: row[2]})
	}
	return records, nil
}
