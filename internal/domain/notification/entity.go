package notification

import "time"

// Kind identifies why a notification was sent.
type Kind string

const (
	KindBreakAlmostOver  Kind = "break_almost_over"
	KindBreakEnded       Kind = "break_ended_by_system"
	KindBreakAdminAlert  Kind = "break_overdue_admin_alert"
	KindMissedClockOut   Kind = "missed_clockout"
	KindAttendanceUpdate Kind = "attendance_update"
)

// Channel is a delivery transport.
type Channel string

const (
	ChannelInApp Channel = "inapp"
	ChannelSSE   Channel = "sse"
	ChannelEmail Channel = "email"
)

// Notification is the persisted in-app copy of a delivered message.
type Notification struct {
	ID        string
	UserID    string
	Kind      Kind
	Title     string
	Message   string
	Data      map[string]any
	Channels  []Channel
	IsRead    bool
	ReadAt    *time.Time
	CreatedAt time.Time
}
