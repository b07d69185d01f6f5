package attendance

import "errors"

// Guard violations: a state-machine precondition failed. These are reported
// to the caller as a rejected operation with the specific reason, never
// coerced into a different state.
var (
	ErrAlreadyMarkedAbsent  = errors.New("you were marked absent for today and can no longer clock in")
	ErrAlreadyClockedIn     = errors.New("you have already clocked in today")
	ErrOutsideBusinessHours = errors.New("cannot clock in after business hours have ended")
	ErrNoActiveSession      = errors.New("no active clock-in found for today")
	ErrBreakAlreadyTaken    = errors.New("you have already taken your break for today")
	ErrNotClockedIn         = errors.New("you must be actively working to start a break")
	ErrNotOnBreak           = errors.New("you are not currently on break")
	ErrNotWorkday           = errors.New("cannot clock in on a weekend or holiday")
)

// Store-level errors.
var (
	ErrRecordNotFound  = errors.New("attendance record not found")
	ErrDuplicateRecord = errors.New("attendance record already exists for this user and date")
	// ErrStateConflict means a conditional update matched no row: the record
	// changed between read and write, and the caller lost the race.
	ErrStateConflict = errors.New("attendance record changed concurrently")
)
