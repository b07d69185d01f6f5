package attendance

import (
	"time"

	"github.com/gradbridge/presence-backend-go/internal/pkg/calendar"
)

// ClockStatus is the authoritative session state tag. The timestamp fields
// are data scoped to this tag, not a second source of truth.
type ClockStatus string

const (
	ClockStatusClockedOut ClockStatus = "clocked-out"
	ClockStatusClockedIn  ClockStatus = "clocked-in"
	ClockStatusOnBreak    ClockStatus = "on-break"
)

// Status is the day-level attendance outcome.
type Status string

const (
	StatusAbsent  Status = "absent"
	StatusPresent Status = "present"
	StatusWeekend Status = "weekend"
	StatusHoliday Status = "holiday"
)

// Condition tags the one-shot notifications a record has already fired.
// Break-reminder checks the ledger before sending, so repeated ticks that
// observe the same condition deliver at most once.
type Condition string

const (
	CondBreakWarning      Condition = "break_warning"
	CondBreakEnded        Condition = "break_ended"
	CondBreakAdminOverdue Condition = "break_admin_overdue"
	CondMissedClockOut    Condition = "missed_clockout"
)

// Record is one user's attendance for one business-timezone calendar day.
// (UserID, Date) is unique; Date is a YYYY-MM-DD key in the business
// timezone, never an instant.
type Record struct {
	ID          string
	UserID      string
	Date        string
	DayType     calendar.DayType
	HolidayName string

	Status      Status
	ClockStatus ClockStatus

	ClockIn       *time.Time
	ClockOut      *time.Time
	ClockInNotes  string
	ClockOutNotes string

	BreakIn            *time.Time
	BreakOut           *time.Time
	BreakDuration      time.Duration
	BreakOverdue       time.Duration
	BreakTaken         bool
	BreakEndedBySystem bool

	// Duration is worked time excluding breaks, clamped to zero.
	Duration time.Duration

	// IsClosed is terminal for the day: once set, only the reconciliation
	// jobs' own guarded updates touched the record, and they no longer match.
	IsClosed         bool
	AutoClockOut     bool
	AutoMarkedAbsent bool

	Notified []Condition

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasNotified reports whether the one-shot notification for cond already
// fired for this record.
func (r Record) HasNotified(cond Condition) bool {
	for _, c := range r.Notified {
		if c == cond {
			return true
		}
	}
	return false
}

// WorkDuration computes worked time as of now for an open session, or the
// stored duration for a closed one. Negative deltas from clock skew clamp
// to zero instead of propagating.
func (r Record) WorkDuration(now time.Time) time.Duration {
	if r.ClockIn == nil {
		return 0
	}
	end := now
	if r.ClockOut != nil {
		end = *r.ClockOut
	}
	d := end.Sub(*r.ClockIn) - r.BreakDuration
	if d < 0 {
		return 0
	}
	return d
}
