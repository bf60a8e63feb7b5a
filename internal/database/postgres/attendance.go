package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance storage.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// Mark records name for the calendar day of at, once.
func (r *AttendanceRepository) Mark(ctx context.Context, name string, at time.Time) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		INSERT INTO attendance (name, day, marked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name, day) DO NOTHING
	`, name, at.Format(constants.DateLayout), at)
	if err != nil {
		return false, fmt.Errorf("mark attendance: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// List returns the rows of day in insertion order, or all rows when day is empty.
func (r *AttendanceRepository) List(ctx context.Context, day string) ([]database.AttendanceRecord, error) {
	query := `SELECT name, to_char(day, 'YYYY-MM-DD'), marked_at FROM attendance`
	var args []any
	if day != "" {
		query += ` WHERE day = $1`
		args = append(args, day)
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		var rec database.AttendanceRecord
		var markedAt time.Time
		if err := rows.Scan(&rec.Name, &rec.Date, &markedAt); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		rec.Time = markedAt.Local().Format(constants.TimeLayout)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return records, nil
}
