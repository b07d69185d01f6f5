package attendance

import (
	"context"
	"time"
)

// Filter narrows FindMany scans. Zero values mean "don't filter".
type Filter struct {
	UserID      string
	Date        string
	DateFrom    string
	DateTo      string
	ClockStatus *ClockStatus

	// OpenSession selects records with clock_in set, clock_out unset and
	// is_closed=false: the auto-clock-out sweep.
	OpenSession bool

	Limit  int
	Offset int
}

// ExpectedState is the guard re-checked inside the conditional UPDATE. A nil
// field is not part of the condition. A user action and a concurrent job
// racing on the same record cannot both match; the loser sees
// ErrStateConflict instead of silently overwriting.
type ExpectedState struct {
	ClockStatus      *ClockStatus
	IsClosed         *bool
	BreakTaken       *bool
	ClockInSet       *bool
	AutoMarkedAbsent *bool
}

// Patch is a partial update. Nil fields are left untouched; AddNotified
// appends condition tags to the one-shot notification ledger.
type Patch struct {
	Status             *Status
	ClockStatus        *ClockStatus
	ClockIn            *time.Time
	ClockOut           *time.Time
	ClockInNotes       *string
	ClockOutNotes      *string
	BreakIn            *time.Time
	BreakOut           *time.Time
	BreakDuration      *time.Duration
	BreakOverdue       *time.Duration
	BreakTaken         *bool
	BreakEndedBySystem *bool
	Duration           *time.Duration
	IsClosed           *bool
	AutoClockOut       *bool
	AutoMarkedAbsent   *bool
	AddNotified        []Condition
}

// Repository is the store contract for attendance records. All writers go
// through these guarded primitives; nothing mutates a record without
// re-validating its expected state at write time.
type Repository interface {
	// Find returns the record for (userID, dateKey) or ErrRecordNotFound.
	Find(ctx context.Context, userID, dateKey string) (Record, error)

	FindMany(ctx context.Context, filter Filter) ([]Record, error)

	// CreateIfAbsent inserts the record, returning ErrDuplicateRecord when
	// the unique (user_id, date) constraint already holds a row. Callers
	// treat the duplicate as "already initialized", not as a failure.
	CreateIfAbsent(ctx context.Context, rec Record) (Record, error)

	// UpdateIfMatches applies patch to the record only while expected still
	// holds, returning the updated record or ErrStateConflict on no match.
	UpdateIfMatches(ctx context.Context, id string, expected ExpectedState, patch Patch) (Record, error)
}
