package mariadb

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceRepository provides MariaDB-backed attendance storage.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new MariaDB attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// Mark records name for the calendar day of at. The unique key on
// (name, day) turns repeated marks into no-ops.
func (r *AttendanceRepository) Mark(ctx context.Context, name string, at time.Time) (bool, error) {
	result, err := r.pool.db.ExecContext(ctx,
		`INSERT IGNORE INTO attendance (name, day, marked_at) VALUES (?, ?, ?)`,
		name, at.Format(constants.DateLayout), at.Format(constants.DateLayout+" "+constants.TimeLayout),
	)
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
	query := `SELECT name, DATE_FORMAT(day, '%Y-%m-%d'), DATE_FORMAT(marked_at, '%H:%i:%s') FROM attendance`
	var args []any
	if day != "" {
		query += ` WHERE day = ?`
		args = append(args, day)
	}
	query += ` ORDER BY id`

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		var rec database.AttendanceRecord
		if err := rows.Scan(&rec.Name, &rec.Date, &rec.Time); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}
