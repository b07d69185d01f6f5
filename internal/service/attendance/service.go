package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gradbridge/presence-backend-go/internal/domain/attendance"
	"github.com/gradbridge/presence-backend-go/internal/pkg/calendar"
	"github.com/gradbridge/presence-backend-go/internal/pkg/tzclock"
)

// ServiceImpl drives the per-record state machine. Every mutation goes
// through the repository's guarded primitives, so a user action racing a
// reconciliation job resolves at the store instead of by overwrite.
type ServiceImpl struct {
	repo       attendance.Repository
	clock      tzclock.Clock
	loc        *time.Location
	cutoffHour int
}

func NewAttendanceService(repo attendance.Repository, clock tzclock.Clock, loc *time.Location, clockInCutoffHour int) *ServiceImpl {
	return &ServiceImpl{
		repo:       repo,
		clock:      clock,
		loc:        loc,
		cutoffHour: clockInCutoffHour,
	}
}

func clampNonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

func boolPtr(b bool) *bool { return &b }

func statusPtr(s attendance.Status) *attendance.Status { return &s }

func clockStatusPtr(s attendance.ClockStatus) *attendance.ClockStatus { return &s }

// ClockIn implements attendance.Service.
func (s *ServiceImpl) ClockIn(ctx context.Context, userID, notes string) (attendance.Record, error) {
	now := s.clock.Now()
	today := tzclock.DayKey(now, s.loc)

	dayInfo, err := calendar.ClassifyDay(today)
	if err != nil {
		return attendance.Record{}, err
	}
	if dayInfo.Type != calendar.DayTypeWorkday {
		return attendance.Record{}, attendance.ErrNotWorkday
	}
	if now.In(s.loc).Hour() >= s.cutoffHour {
		return attendance.Record{}, attendance.ErrOutsideBusinessHours
	}

	rec, err := s.repo.Find(ctx, userID, today)
	switch {
	case errors.Is(err, attendance.ErrRecordNotFound):
		created, err := s.repo.CreateIfAbsent(ctx, attendance.Record{
			UserID:       userID,
			Date:         today,
			DayType:      calendar.DayTypeWorkday,
			Status:       attendance.StatusPresent,
			ClockStatus:  attendance.ClockStatusClockedIn,
			ClockIn:      &now,
			ClockInNotes: notes,
		})
		if errors.Is(err, attendance.ErrDuplicateRecord) {
			// Lost the insert race (most likely against mark-absent). Re-read
			// and fall through to the guarded update path.
			rec, err = s.repo.Find(ctx, userID, today)
			if err != nil {
				return attendance.Record{}, err
			}
			return s.clockInExisting(ctx, rec, now, notes)
		}
		if err != nil {
			return attendance.Record{}, err
		}
		slog.Info("user clocked in", "user_id", userID, "date", today)
		return created, nil

	case err != nil:
		return attendance.Record{}, err
	}

	return s.clockInExisting(ctx, rec, now, notes)
}

// clockInExisting applies the clock-in guards to a pre-existing record. The
// mark-absent race is settled by the conditional update itself: the expected
// state re-checks auto_marked_absent at write time.
func (s *ServiceImpl) clockInExisting(ctx context.Context, rec attendance.Record, now time.Time, notes string) (attendance.Record, error) {
	if rec.Status == attendance.StatusAbsent && rec.AutoMarkedAbsent {
		return attendance.Record{}, attendance.ErrAlreadyMarkedAbsent
	}
	if rec.ClockIn != nil {
		return attendance.Record{}, attendance.ErrAlreadyClockedIn
	}

	updated, err := s.repo.UpdateIfMatches(ctx, rec.ID,
		attendance.ExpectedState{
			IsClosed:         boolPtr(false),
			ClockInSet:       boolPtr(false),
			AutoMarkedAbsent: boolPtr(false),
		},
		attendance.Patch{
			Status:       statusPtr(attendance.StatusPresent),
			ClockStatus:  clockStatusPtr(attendance.ClockStatusClockedIn),
			ClockIn:      &now,
			ClockInNotes: &notes,
		},
	)
	if errors.Is(err, attendance.ErrStateConflict) {
		// Someone got there first; report the precise reason.
		fresh, ferr := s.repo.Find(ctx, rec.UserID, rec.Date)
		if ferr == nil {
			if fresh.AutoMarkedAbsent {
				return attendance.Record{}, attendance.ErrAlreadyMarkedAbsent
			}
			if fresh.ClockIn != nil {
				return attendance.Record{}, attendance.ErrAlreadyClockedIn
			}
		}
		return attendance.Record{}, attendance.ErrStateConflict
	}
	if err != nil {
		return attendance.Record{}, err
	}

	slog.Info("user clocked in", "user_id", rec.UserID, "date", rec.Date)
	return updated, nil
}

// ClockOut implements attendance.Service.
func (s *ServiceImpl) ClockOut(ctx context.Context, userID, notes string) (attendance.Record, error) {
	now := s.clock.Now()
	today := tzclock.DayKey(now, s.loc)

	rec, err := s.repo.Find(ctx, userID, today)
	if errors.Is(err, attendance.ErrRecordNotFound) {
		return attendance.Record{}, attendance.ErrNoActiveSession
	}
	if err != nil {
		return attendance.Record{}, err
	}
	if rec.ClockIn == nil || rec.IsClosed {
		return attendance.Record{}, attendance.ErrNoActiveSession
	}

	breakTotal := rec.BreakDuration
	patch := attendance.Patch{
		ClockOut:      &now,
		ClockOutNotes: &notes,
		ClockStatus:   clockStatusPtr(attendance.ClockStatusClockedOut),
		IsClosed:      boolPtr(true),
	}

	// An open break is folded into the break total before the day closes.
	if rec.ClockStatus == attendance.ClockStatusOnBreak && rec.BreakIn != nil {
		breakTotal += clampNonNegative(now.Sub(*rec.BreakIn))
		patch.BreakOut = &now
		patch.BreakDuration = &breakTotal
		patch.BreakTaken = boolPtr(true)
	}

	duration := clampNonNegative(now.Sub(*rec.ClockIn) - breakTotal)
	patch.Duration = &duration

	updated, err := s.repo.UpdateIfMatches(ctx, rec.ID,
		attendance.ExpectedState{
			IsClosed:    boolPtr(false),
			ClockStatus: clockStatusPtr(rec.ClockStatus),
		},
		patch,
	)
	if err != nil {
		return attendance.Record{}, err
	}

	slog.Info("user clocked out", "user_id", userID, "date", today, "duration", duration)
	return updated, nil
}

// BreakIn implements attendance.Service.
func (s *ServiceImpl) BreakIn(ctx context.Context, userID string) (attendance.Record, error) {
	now := s.clock.Now()
	today := tzclock.DayKey(now, s.loc)

	rec, err := s.repo.Find(ctx, userID, today)
	if errors.Is(err, attendance.ErrRecordNotFound) {
		return attendance.Record{}, attendance.ErrNotClockedIn
	}
	if err != nil {
		return attendance.Record{}, err
	}
	if rec.ClockIn == nil || rec.IsClosed || rec.ClockStatus != attendance.ClockStatusClockedIn {
		return attendance.Record{}, attendance.ErrNotClockedIn
	}
	if rec.BreakTaken {
		return attendance.Record{}, attendance.ErrBreakAlreadyTaken
	}

	updated, err := s.repo.UpdateIfMatches(ctx, rec.ID,
		attendance.ExpectedState{
			IsClosed:    boolPtr(false),
			ClockStatus: clockStatusPtr(attendance.ClockStatusClockedIn),
			BreakTaken:  boolPtr(false),
		},
		attendance.Patch{
			BreakIn:     &now,
			ClockStatus: clockStatusPtr(attendance.ClockStatusOnBreak),
		},
	)
	if err != nil {
		return attendance.Record{}, err
	}

	slog.Info("user started break", "user_id", userID, "date", today)
	return updated, nil
}

// BreakOut implements attendance.Service.
func (s *ServiceImpl) BreakOut(ctx context.Context, userID string) (attendance.Record, error) {
	now := s.clock.Now()
	today := tzclock.DayKey(now, s.loc)

	rec, err := s.repo.Find(ctx, userID, today)
	if errors.Is(err, attendance.ErrRecordNotFound) {
		return attendance.Record{}, attendance.ErrNotOnBreak
	}
	if err != nil {
		return attendance.Record{}, err
	}
	if rec.ClockStatus != attendance.ClockStatusOnBreak || rec.BreakIn == nil {
		return attendance.Record{}, attendance.ErrNotOnBreak
	}

	total := rec.BreakDuration + clampNonNegative(now.Sub(*rec.BreakIn))

	updated, err := s.repo.UpdateIfMatches(ctx, rec.ID,
		attendance.ExpectedState{
			IsClosed:    boolPtr(false),
			ClockStatus: clockStatusPtr(attendance.ClockStatusOnBreak),
		},
		attendance.Patch{
			BreakOut:      &now,
			BreakDuration: &total,
			BreakTaken:    boolPtr(true),
			ClockStatus:   clockStatusPtr(attendance.ClockStatusClockedIn),
		},
	)
	if err != nil {
		return attendance.Record{}, err
	}

	slog.Info("user ended break", "user_id", userID, "date", today, "break_duration", total)
	return updated, nil
}

// GetStatus implements attendance.Service.
func (s *ServiceImpl) GetStatus(ctx context.Context, userID string) (attendance.StatusResponse, error) {
	now := s.clock.Now()
	today := tzclock.DayKey(now, s.loc)

	dayInfo, err := calendar.ClassifyDay(today)
	if err != nil {
		return attendance.StatusResponse{}, err
	}

	resp := attendance.StatusResponse{
		Date:        today,
		DayType:     dayInfo.Type,
		HolidayName: dayInfo.HolidayName,
		ClockStatus: attendance.ClockStatusClockedOut,
	}
	switch dayInfo.Type {
	case calendar.DayTypeWeekend:
		resp.Status = attendance.StatusWeekend
	case calendar.DayTypeHoliday:
		resp.Status = attendance.StatusHoliday
	default:
		resp.Status = attendance.StatusAbsent
	}

	rec, err := s.repo.Find(ctx, userID, today)
	if errors.Is(err, attendance.ErrRecordNotFound) {
		return resp, nil
	}
	if err != nil {
		return attendance.StatusResponse{}, err
	}

	resp.Status = rec.Status
	resp.ClockStatus = rec.ClockStatus
	resp.DurationMs = rec.WorkDuration(now).Milliseconds()
	if rec.IsClosed {
		resp.DurationMs = rec.Duration.Milliseconds()
	}
	view := attendance.NewRecordView(rec)
	resp.Record = &view

	return resp, nil
}

// ListMine implements attendance.Service.
func (s *ServiceImpl) ListMine(ctx context.Context, userID string, filter attendance.ListFilter) ([]attendance.RecordView, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	filter.UserID = userID
	return s.List(ctx, filter)
}

// List implements attendance.Service.
func (s *ServiceImpl) List(ctx context.Context, filter attendance.ListFilter) ([]attendance.RecordView, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	records, err := s.repo.FindMany(ctx, attendance.Filter{
		UserID:   filter.UserID,
		DateFrom: filter.DateFrom,
		DateTo:   filter.DateTo,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}

	views := make([]attendance.RecordView, 0, len(records))
	for _, rec := range records {
		views = append(views, attendance.NewRecordView(rec))
	}
	return views, nil
}
