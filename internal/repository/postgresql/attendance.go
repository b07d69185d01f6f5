package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gradbridge/presence-backend-go/internal/domain/attendance"
	"github.com/gradbridge/presence-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

const recordColumns = `
	id, user_id, date, day_type, holiday_name,
	attendance_status, clock_status,
	clock_in, clock_out, clock_in_notes, clock_out_notes,
	break_in, break_out, break_duration_ms, break_overdue_ms,
	break_taken, break_ended_by_system,
	duration_ms, is_closed, auto_clock_out, auto_marked_absent,
	notified, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (attendance.Record, error) {
	var rec attendance.Record
	var breakMs, overdueMs, durationMs int64
	var notified []string

	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.Date, &rec.DayType, &rec.HolidayName,
		&rec.Status, &rec.ClockStatus,
		&rec.ClockIn, &rec.ClockOut, &rec.ClockInNotes, &rec.ClockOutNotes,
		&rec.BreakIn, &rec.BreakOut, &breakMs, &overdueMs,
		&rec.BreakTaken, &rec.BreakEndedBySystem,
		&durationMs, &rec.IsClosed, &rec.AutoClockOut, &rec.AutoMarkedAbsent,
		&notified, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return attendance.Record{}, err
	}

	rec.BreakDuration = time.Duration(breakMs) * time.Millisecond
	rec.BreakOverdue = time.Duration(overdueMs) * time.Millisecond
	rec.Duration = time.Duration(durationMs) * time.Millisecond
	rec.Notified = make([]attendance.Condition, 0, len(notified))
	for _, n := range notified {
		rec.Notified = append(rec.Notified, attendance.Condition(n))
	}

	return rec, nil
}

// Find implements attendance.Repository.
func (r *attendanceRepository) Find(ctx context.Context, userID, dateKey string) (attendance.Record, error) {
	query := `SELECT` + recordColumns + `
		FROM attendance_records
		WHERE user_id = $1 AND date = $2`

	rec, err := scanRecord(r.db.QueryRow(ctx, query, userID, dateKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrRecordNotFound
		}
		return attendance.Record{}, fmt.Errorf("failed to find attendance record: %w", err)
	}

	return rec, nil
}

// FindMany implements attendance.Repository.
func (r *attendanceRepository) FindMany(ctx context.Context, filter attendance.Filter) ([]attendance.Record, error) {
	where := "TRUE"
	args := []interface{}{}
	argIdx := 1

	if filter.UserID != "" {
		where += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}
	if filter.Date != "" {
		where += fmt.Sprintf(" AND date = $%d", argIdx)
		args = append(args, filter.Date)
		argIdx++
	}
	if filter.DateFrom != "" {
		where += fmt.Sprintf(" AND date >= $%d", argIdx)
		args = append(args, filter.DateFrom)
		argIdx++
	}
	if filter.DateTo != "" {
		where += fmt.Sprintf(" AND date <= $%d", argIdx)
		args = append(args, filter.DateTo)
		argIdx++
	}
	if filter.ClockStatus != nil {
		where += fmt.Sprintf(" AND clock_status = $%d", argIdx)
		args = append(args, string(*filter.ClockStatus))
		argIdx++
	}
	if filter.OpenSession {
		where += " AND clock_in IS NOT NULL AND clock_out IS NULL AND is_closed = FALSE"
	}

	query := `SELECT` + recordColumns + `
		FROM attendance_records
		WHERE ` + where + `
		ORDER BY date DESC, user_id`

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance records: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// CreateIfAbsent implements attendance.Repository. The unique (user_id, date)
// index makes the duplicate-key failure the idempotency signal.
func (r *attendanceRepository) CreateIfAbsent(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	query := `
		INSERT INTO attendance_records (
			user_id, date, day_type, holiday_name,
			attendance_status, clock_status,
			clock_in, clock_out, clock_in_notes, clock_out_notes,
			break_in, break_out, break_duration_ms, break_overdue_ms,
			break_taken, break_ended_by_system,
			duration_ms, is_closed, auto_clock_out, auto_marked_absent, notified
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21
		) RETURNING id, created_at, updated_at`

	notified := make([]string, 0, len(rec.Notified))
	for _, c := range rec.Notified {
		notified = append(notified, string(c))
	}

	err := r.db.QueryRow(ctx, query,
		rec.UserID,
		rec.Date,
		string(rec.DayType),
		rec.HolidayName,
		string(rec.Status),
		string(rec.ClockStatus),
		rec.ClockIn,
		rec.ClockOut,
		rec.ClockInNotes,
		rec.ClockOutNotes,
		rec.BreakIn,
		rec.BreakOut,
		rec.BreakDuration.Milliseconds(),
		rec.BreakOverdue.Milliseconds(),
		rec.BreakTaken,
		rec.BreakEndedBySystem,
		rec.Duration.Milliseconds(),
		rec.IsClosed,
		rec.AutoClockOut,
		rec.AutoMarkedAbsent,
		notified,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return attendance.Record{}, attendance.ErrDuplicateRecord
		}
		return attendance.Record{}, fmt.Errorf("failed to create attendance record: %w", err)
	}

	return rec, nil
}

// UpdateIfMatches implements attendance.Repository. The expected state is
// folded into the WHERE clause so the guard re-check and the write are one
// atomic statement; a no-match comes back as ErrStateConflict.
func (r *attendanceRepository) UpdateIfMatches(ctx context.Context, id string, expected attendance.ExpectedState, patch attendance.Patch) (attendance.Record, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{}
	argIdx := 1

	addSet := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if patch.Status != nil {
		addSet("attendance_status", string(*patch.Status))
	}
	if patch.ClockStatus != nil {
		addSet("clock_status", string(*patch.ClockStatus))
	}
	if patch.ClockIn != nil {
		addSet("clock_in", *patch.ClockIn)
	}
	if patch.ClockOut != nil {
		addSet("clock_out", *patch.ClockOut)
	}
	if patch.ClockInNotes != nil {
		addSet("clock_in_notes", *patch.ClockInNotes)
	}
	if patch.ClockOutNotes != nil {
		addSet("clock_out_notes", *patch.ClockOutNotes)
	}
	if patch.BreakIn != nil {
		addSet("break_in", *patch.BreakIn)
	}
	if patch.BreakOut != nil {
		addSet("break_out", *patch.BreakOut)
	}
	if patch.BreakDuration != nil {
		addSet("break_duration_ms", patch.BreakDuration.Milliseconds())
	}
	if patch.BreakOverdue != nil {
		addSet("break_overdue_ms", patch.BreakOverdue.Milliseconds())
	}
	if patch.BreakTaken != nil {
		addSet("break_taken", *patch.BreakTaken)
	}
	if patch.BreakEndedBySystem != nil {
		addSet("break_ended_by_system", *patch.BreakEndedBySystem)
	}
	if patch.Duration != nil {
		addSet("duration_ms", patch.Duration.Milliseconds())
	}
	if patch.IsClosed != nil {
		addSet("is_closed", *patch.IsClosed)
	}
	if patch.AutoClockOut != nil {
		addSet("auto_clock_out", *patch.AutoClockOut)
	}
	if patch.AutoMarkedAbsent != nil {
		addSet("auto_marked_absent", *patch.AutoMarkedAbsent)
	}
	if len(patch.AddNotified) > 0 {
		tags := make([]string, 0, len(patch.AddNotified))
		for _, c := range patch.AddNotified {
			tags = append(tags, string(c))
		}
		sets = append(sets, fmt.Sprintf("notified = notified || $%d::text[]", argIdx))
		args = append(args, tags)
		argIdx++
	}

	where := fmt.Sprintf("id = $%d", argIdx)
	args = append(args, id)
	argIdx++

	addCond := func(cond string, value interface{}) {
		where += fmt.Sprintf(" AND %s $%d", cond, argIdx)
		args = append(args, value)
		argIdx++
	}

	if expected.ClockStatus != nil {
		addCond("clock_status =", string(*expected.ClockStatus))
	}
	if expected.IsClosed != nil {
		addCond("is_closed =", *expected.IsClosed)
	}
	if expected.BreakTaken != nil {
		addCond("break_taken =", *expected.BreakTaken)
	}
	if expected.ClockInSet != nil {
		if *expected.ClockInSet {
			where += " AND clock_in IS NOT NULL"
		} else {
			where += " AND clock_in IS NULL"
		}
	}
	if expected.AutoMarkedAbsent != nil {
		addCond("auto_marked_absent =", *expected.AutoMarkedAbsent)
	}

	query := "UPDATE attendance_records SET " + strings.Join(sets, ", ") + " WHERE " + where + " RETURNING" + recordColumns

	rec, err := scanRecord(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrStateConflict
		}
		return attendance.Record{}, fmt.Errorf("failed to update attendance record: %w", err)
	}

	return rec, nil
}
