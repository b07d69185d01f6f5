package attendance

import "context"

// Service is the per-record state machine driven by user actions:
// clocked-out -> clocked-in -> on-break -> clocked-in -> clocked-out, with
// the break optional and single-use per day. Closure is terminal.
type Service interface {
	// ClockIn opens today's session. Guards: workday only, before the
	// business cutoff hour, not already clocked in, not marked absent by
	// the system.
	ClockIn(ctx context.Context, userID, notes string) (Record, error)

	// ClockOut closes today's session, folding any open break into the
	// break total and fixing the worked duration.
	ClockOut(ctx context.Context, userID, notes string) (Record, error)

	// BreakIn starts the single daily break.
	BreakIn(ctx context.Context, userID string) (Record, error)

	// BreakOut ends the break and accumulates its elapsed time.
	BreakOut(ctx context.Context, userID string) (Record, error)

	// GetStatus reports the user's state for today, including live worked
	// duration for an open session.
	GetStatus(ctx context.Context, userID string) (StatusResponse, error)

	// ListMine returns the user's own history.
	ListMine(ctx context.Context, userID string, filter ListFilter) ([]RecordView, error)

	// List returns records across users (admin view).
	List(ctx context.Context, filter ListFilter) ([]RecordView, error)
}
