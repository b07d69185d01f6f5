package attendance

import (
	"time"

	"github.com/gradbridge/presence-backend-go/internal/pkg/calendar"
)

// ListFilter narrows history queries from the HTTP layer.
type ListFilter struct {
	UserID   string `json:"user_id,omitempty"`
	DateFrom string `json:"date_from,omitempty"`
	DateTo   string `json:"date_to,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Page     int    `json:"page,omitempty"`
}

// RecordView is the JSON projection of a record.
type RecordView struct {
	ID               string           `json:"id"`
	UserID           string           `json:"user_id"`
	Date             string           `json:"date"`
	DayType          calendar.DayType `json:"day_type"`
	HolidayName      string           `json:"holiday_name,omitempty"`
	Status           Status           `json:"attendance_status"`
	ClockStatus      ClockStatus      `json:"clock_status"`
	ClockIn          *time.Time       `json:"clock_in,omitempty"`
	ClockOut         *time.Time       `json:"clock_out,omitempty"`
	ClockInNotes     string           `json:"clock_in_notes,omitempty"`
	ClockOutNotes    string           `json:"clock_out_notes,omitempty"`
	BreakIn          *time.Time       `json:"break_in,omitempty"`
	BreakOut         *time.Time       `json:"break_out,omitempty"`
	BreakDurationMs  int64            `json:"break_duration_ms"`
	BreakOverdueMs   int64            `json:"break_overdue_ms,omitempty"`
	BreakTaken       bool             `json:"break_taken"`
	DurationMs       int64            `json:"duration_ms"`
	IsClosed         bool             `json:"is_closed"`
	AutoClockOut     bool             `json:"auto_clock_out,omitempty"`
	AutoMarkedAbsent bool             `json:"auto_marked_absent,omitempty"`
}

// NewRecordView projects a record for API responses.
func NewRecordView(r Record) RecordView {
	return RecordView{
		ID:               r.ID,
		UserID:           r.UserID,
		Date:             r.Date,
		DayType:          r.DayType,
		HolidayName:      r.HolidayName,
		Status:           r.Status,
		ClockStatus:      r.ClockStatus,
		ClockIn:          r.ClockIn,
		ClockOut:         r.ClockOut,
		ClockInNotes:     r.ClockInNotes,
		ClockOutNotes:    r.ClockOutNotes,
		BreakIn:          r.BreakIn,
		BreakOut:         r.BreakOut,
		BreakDurationMs:  r.BreakDuration.Milliseconds(),
		BreakOverdueMs:   r.BreakOverdue.Milliseconds(),
		BreakTaken:       r.BreakTaken,
		DurationMs:       r.Duration.Milliseconds(),
		IsClosed:         r.IsClosed,
		AutoClockOut:     r.AutoClockOut,
		AutoMarkedAbsent: r.AutoMarkedAbsent,
	}
}

// StatusResponse is the "where am I right now" projection for today.
type StatusResponse struct {
	Date        string           `json:"date"`
	DayType     calendar.DayType `json:"day_type"`
	HolidayName string           `json:"holiday_name,omitempty"`
	Status      Status           `json:"attendance_status"`
	ClockStatus ClockStatus      `json:"clock_status"`

	// DurationMs is live for an open session: worked time up to now.
	DurationMs int64 `json:"duration_ms"`

	Record *RecordView `json:"record,omitempty"`
}
