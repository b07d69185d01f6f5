// Package memory holds in-memory repository implementations with the same
// guarded-update semantics as the PostgreSQL ones. They back the state
// machine and reconciliation job tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gradbridge/presence-backend-go/internal/domain/attendance"
)

type AttendanceRepository struct {
	mu    sync.Mutex
	byID  map[string]*attendance.Record
	byKey map[string]string // userID|date -> id
}

func NewAttendanceRepository() *AttendanceRepository {
	return &AttendanceRepository{
		byID:  make(map[string]*attendance.Record),
		byKey: make(map[string]string),
	}
}

func key(userID, date string) string { return userID + "|" + date }

func clone(r *attendance.Record) attendance.Record {
	out := *r
	out.Notified = append([]attendance.Condition(nil), r.Notified...)
	return out
}

// Find implements attendance.Repository.
func (m *AttendanceRepository) Find(_ context.Context, userID, dateKey string) (attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byKey[key(userID, dateKey)]
	if !ok {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	return clone(m.byID[id]), nil
}

// FindMany implements attendance.Repository.
func (m *AttendanceRepository) FindMany(_ context.Context, filter attendance.Filter) ([]attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []attendance.Record
	for _, rec := range m.byID {
		if filter.UserID != "" && rec.UserID != filter.UserID {
			continue
		}
		if filter.Date != "" && rec.Date != filter.Date {
			continue
		}
		if filter.DateFrom != "" && rec.Date < filter.DateFrom {
			continue
		}
		if filter.DateTo != "" && rec.Date > filter.DateTo {
			continue
		}
		if filter.ClockStatus != nil && rec.ClockStatus != *filter.ClockStatus {
			continue
		}
		if filter.OpenSession && (rec.ClockIn == nil || rec.ClockOut != nil || rec.IsClosed) {
			continue
		}
		out = append(out, clone(rec))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].UserID < out[j].UserID
	})

	if filter.Limit > 0 {
		start := filter.Offset
		if start > len(out) {
			start = len(out)
		}
		end := start + filter.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}

	return out, nil
}

// CreateIfAbsent implements attendance.Repository.
func (m *AttendanceRepository) CreateIfAbsent(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(rec.UserID, rec.Date)
	if _, exists := m.byKey[k]; exists {
		return attendance.Record{}, attendance.ErrDuplicateRecord
	}

	rec.ID = uuid.New().String()
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	stored := clone(&rec)
	m.byID[rec.ID] = &stored
	m.byKey[k] = rec.ID

	return rec, nil
}

// UpdateIfMatches implements attendance.Repository. The expected-state check
// and the patch apply under one lock, mirroring the single-statement
// conditional UPDATE of the PostgreSQL implementation.
func (m *AttendanceRepository) UpdateIfMatches(_ context.Context, id string, expected attendance.ExpectedState, patch attendance.Patch) (attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[id]
	if !ok {
		return attendance.Record{}, attendance.ErrStateConflict
	}

	if expected.ClockStatus != nil && rec.ClockStatus != *expected.ClockStatus {
		return attendance.Record{}, attendance.ErrStateConflict
	}
	if expected.IsClosed != nil && rec.IsClosed != *expected.IsClosed {
		return attendance.Record{}, attendance.ErrStateConflict
	}
	if expected.BreakTaken != nil && rec.BreakTaken != *expected.BreakTaken {
		return attendance.Record{}, attendance.ErrStateConflict
	}
	if expected.ClockInSet != nil && (rec.ClockIn != nil) != *expected.ClockInSet {
		return attendance.Record{}, attendance.ErrStateConflict
	}
	if expected.AutoMarkedAbsent != nil && rec.AutoMarkedAbsent != *expected.AutoMarkedAbsent {
		return attendance.Record{}, attendance.ErrStateConflict
	}

	if patch.Status != nil {
		rec.Status = *patch.Status
	}
	if patch.ClockStatus != nil {
		rec.ClockStatus = *patch.ClockStatus
	}
	if patch.ClockIn != nil {
		t := *patch.ClockIn
		rec.ClockIn = &t
	}
	if patch.ClockOut != nil {
		t := *patch.ClockOut
		rec.ClockOut = &t
	}
	if patch.ClockInNotes != nil {
		rec.ClockInNotes = *patch.ClockInNotes
	}
	if patch.ClockOutNotes != nil {
		rec.ClockOutNotes = *patch.ClockOutNotes
	}
	if patch.BreakIn != nil {
		t := *patch.BreakIn
		rec.BreakIn = &t
	}
	if patch.BreakOut != nil {
		t := *patch.BreakOut
		rec.BreakOut = &t
	}
	if patch.BreakDuration != nil {
		rec.BreakDuration = *patch.BreakDuration
	}
	if patch.BreakOverdue != nil {
		rec.BreakOverdue = *patch.BreakOverdue
	}
	if patch.BreakTaken != nil {
		rec.BreakTaken = *patch.BreakTaken
	}
	if patch.BreakEndedBySystem != nil {
		rec.BreakEndedBySystem = *patch.BreakEndedBySystem
	}
	if patch.Duration != nil {
		rec.Duration = *patch.Duration
	}
	if patch.IsClosed != nil {
		rec.IsClosed = *patch.IsClosed
	}
	if patch.AutoClockOut != nil {
		rec.AutoClockOut = *patch.AutoClockOut
	}
	if patch.AutoMarkedAbsent != nil {
		rec.AutoMarkedAbsent = *patch.AutoMarkedAbsent
	}
	for _, c := range patch.AddNotified {
		if !rec.HasNotified(c) {
			rec.Notified = append(rec.Notified, c)
		}
	}
	rec.UpdatedAt = time.Now()

	return clone(rec), nil
}
