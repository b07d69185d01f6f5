package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gradbridge/presence-backend-go/internal/config"
	"github.com/gradbridge/presence-backend-go/internal/domain/attendance"
	"github.com/gradbridge/presence-backend-go/internal/domain/notification"
	"github.com/gradbridge/presence-backend-go/internal/domain/user"
	"github.com/gradbridge/presence-backend-go/internal/pkg/calendar"
	"github.com/gradbridge/presence-backend-go/internal/pkg/tzclock"
)

// AttendanceJobs holds the five reconciliation sweeps. Every sweep keys off
// the current business-timezone date and mutates records only through the
// store's guarded primitives, so a tick racing a user action (or a repeat of
// itself) cannot double-apply.
type AttendanceJobs struct {
	records  attendance.Repository
	users    user.Repository
	notifier notification.Service
	clock    tzclock.Clock
	loc      *time.Location

	maxBreak   time.Duration
	warnLead   time.Duration
	adminAfter time.Duration
}

func NewAttendanceJobs(
	records attendance.Repository,
	users user.Repository,
	notifier notification.Service,
	clock tzclock.Clock,
	loc *time.Location,
	business config.BusinessConfig,
) *AttendanceJobs {
	return &AttendanceJobs{
		records:    records,
		users:      users,
		notifier:   notifier,
		clock:      clock,
		loc:        loc,
		maxBreak:   time.Duration(business.MaxBreakMinutes) * time.Minute,
		warnLead:   time.Duration(business.BreakWarningLeadMinutes) * time.Minute,
		adminAfter: time.Duration(business.AdminOverdueAfterMinutes) * time.Minute,
	}
}

// RegisterJobs schedules all five sweeps.
func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler, jobs config.JobsConfig) error {
	if err := scheduler.AddJob("day_init", jobs.DayInitCron, j.RunDayInit); err != nil {
		return err
	}
	if err := scheduler.AddJob("mark_absent", jobs.MarkAbsentCron, j.RunMarkAbsent); err != nil {
		return err
	}
	if err := scheduler.AddJob("clock_out_reminder", jobs.ClockOutReminderCron, j.RunClockOutReminder); err != nil {
		return err
	}
	if err := scheduler.AddJob("auto_clock_out", jobs.AutoClockOutCron, j.RunAutoClockOut); err != nil {
		return err
	}
	return scheduler.AddJob("break_reminder", jobs.BreakReminderCron, j.RunBreakReminder)
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

// RunDayInit ensures every active user has a closed weekend/holiday record
// for the current date. A duplicate-key insert means another run (or the
// user's own history) already initialized the day, and is not an error.
func (j *AttendanceJobs) RunDayInit(ctx context.Context) (RunReport, error) {
	today := tzclock.DayKey(j.clock.Now(), j.loc)

	info, err := calendar.ClassifyDay(today)
	if err != nil {
		return RunReport{}, err
	}
	if info.Type == calendar.DayTypeWorkday {
		slog.Info("day-init skipped: workday", "date", today)
		return RunReport{}, nil
	}

	status := attendance.StatusWeekend
	if info.Type == calendar.DayTypeHoliday {
		status = attendance.StatusHoliday
	}

	graduates, err := j.users.ListActiveGraduates(ctx)
	if err != nil {
		return RunReport{}, fmt.Errorf("day-init: failed to list users: %w", err)
	}

	var report RunReport
	for _, u := range graduates {
		report.Processed++
		_, err := j.records.CreateIfAbsent(ctx, attendance.Record{
			UserID:      u.ID,
			Date:        today,
			DayType:     info.Type,
			HolidayName: info.HolidayName,
			Status:      status,
			ClockStatus: attendance.ClockStatusClockedOut,
			IsClosed:    true,
		})
		if err != nil && !errors.Is(err, attendance.ErrDuplicateRecord) {
			slog.Error("day-init: failed to create record", "user_id", u.ID, "date", today, "error", err)
			report.Failed++
			continue
		}
		report.Succeeded++
	}

	slog.Info("day-init completed", "date", today, "day_type", info.Type, "created_or_existing", report.Succeeded)
	return report, nil
}

// RunMarkAbsent closes out workday records for users with no clock-in. The
// race against a concurrent clock-in settles at the store: our conditional
// update expects clock_in unset, theirs expects auto_marked_absent unset,
// and only one can match.
func (j *AttendanceJobs) RunMarkAbsent(ctx context.Context) (RunReport, error) {
	today := tzclock.DayKey(j.clock.Now(), j.loc)

	info, err := calendar.ClassifyDay(today)
	if err != nil {
		return RunReport{}, err
	}
	if info.Type != calendar.DayTypeWorkday {
		slog.Info("mark-absent skipped: not a workday", "date", today, "day_type", info.Type)
		return RunReport{}, nil
	}

	graduates, err := j.users.ListActiveGraduates(ctx)
	if err != nil {
		return RunReport{}, fmt.Errorf("mark-absent: failed to list users: %w", err)
	}

	var report RunReport
	for _, u := range graduates {
		report.Processed++
		if err := j.markAbsentUser(ctx, u.ID, today); err != nil {
			slog.Error("mark-absent: failed for user", "user_id", u.ID, "date", today, "error", err)
			report.Failed++
			continue
		}
		report.Succeeded++
	}

	slog.Info("mark-absent completed", "date", today, "processed", report.Processed, "failed", report.Failed)
	return report, nil
}

func (j *AttendanceJobs) markAbsentUser(ctx context.Context, userID, today string) error {
	rec, err := j.records.Find(ctx, userID, today)
	if errors.Is(err, attendance.ErrRecordNotFound) {
		_, err := j.records.CreateIfAbsent(ctx, attendance.Record{
			UserID:           userID,
			Date:             today,
			DayType:          calendar.DayTypeWorkday,
			Status:           attendance.StatusAbsent,
			ClockStatus:      attendance.ClockStatusClockedOut,
			AutoMarkedAbsent: true,
			IsClosed:         true,
		})
		if errors.Is(err, attendance.ErrDuplicateRecord) {
			// A clock-in won the insert race; leave the user alone.
			return nil
		}
		return err
	}
	if err != nil {
		return err
	}

	if rec.ClockIn != nil || rec.AutoMarkedAbsent {
		return nil
	}

	_, err = j.records.UpdateIfMatches(ctx, rec.ID,
		attendance.ExpectedState{
			ClockInSet:       boolPtr(false),
			AutoMarkedAbsent: boolPtr(false),
			IsClosed:         boolPtr(false),
		},
		attendance.Patch{
			Status:           statusPtr(attendance.StatusAbsent),
			ClockStatus:      clockStatusPtr(attendance.ClockStatusClockedOut),
			AutoMarkedAbsent: boolPtr(true),
			IsClosed:         boolPtr(true),
		},
	)
	if errors.Is(err, attendance.ErrStateConflict) {
		// The user clocked in between our read and write.
		return nil
	}
	return err
}

// RunClockOutReminder nudges users who are still clocked in late in the day.
// It only tags the record; the auto-clock-out sweep does the closing later.
// The ledger tag is written in the same conditional update that selects the
// record, so a repeat run or a racing clock-out sends nothing.
func (j *AttendanceJobs) RunClockOutReminder(ctx context.Context) (RunReport, error) {
	today := tzclock.DayKey(j.clock.Now(), j.loc)

	open, err := j.records.FindMany(ctx, attendance.Filter{Date: today, OpenSession: true})
	if err != nil {
		return RunReport{}, fmt.Errorf("clock-out-reminder: failed to find open sessions: %w", err)
	}

	var report RunReport
	for _, rec := range open {
		if rec.HasNotified(attendance.CondMissedClockOut) {
			continue
		}
		report.Processed++
		if err := j.remindClockOut(ctx, rec); err != nil {
			slog.Error("clock-out-reminder: failed for record", "record_id", rec.ID, "user_id", rec.UserID, "error", err)
			report.Failed++
			continue
		}
		report.Succeeded++
	}

	slog.Info("clock-out-reminder completed", "date", today, "processed", report.Processed, "failed", report.Failed)
	return report, nil
}

func (j *AttendanceJobs) remindClockOut(ctx context.Context, rec attendance.Record) error {
	_, err := j.records.UpdateIfMatches(ctx, rec.ID,
		attendance.ExpectedState{
			ClockInSet: boolPtr(true),
			IsClosed:   boolPtr(false),
		},
		attendance.Patch{
			AddNotified: []attendance.Condition{attendance.CondMissedClockOut},
		},
	)
	if errors.Is(err, attendance.ErrStateConflict) {
		// The session closed since the scan; no reminder needed.
		return nil
	}
	if err != nil {
		return err
	}

	j.notify(ctx, rec.UserID, notification.KindMissedClockOut,
		"Clock-out reminder",
		"You forgot to clock out today. Please clock out to record your hours.",
		[]notification.Channel{notification.ChannelInApp, notification.ChannelSSE, notification.ChannelEmail},
		map[string]any{"date": rec.Date},
	)
	return nil
}

// RunAutoClockOut force-closes every open session for the current date,
// folding in any open break and stamping the record as system-closed.
func (j *AttendanceJobs) RunAutoClockOut(ctx context.Context) (RunReport, error) {
	now := j.clock.Now()
	today := tzclock.DayKey(now, j.loc)

	open, err := j.records.FindMany(ctx, attendance.Filter{Date: today, OpenSession: true})
	if err != nil {
		return RunReport{}, fmt.Errorf("auto-clock-out: failed to find open sessions: %w", err)
	}

	var report RunReport
	for _, rec := range open {
		report.Processed++
		if err := j.autoClockOutRecord(ctx, rec, now); err != nil {
			slog.Error("auto-clock-out: failed for record", "record_id", rec.ID, "user_id", rec.UserID, "error", err)
			report.Failed++
			continue
		}
		report.Succeeded++
	}

	slog.Info("auto-clock-out completed", "date", today, "processed", report.Processed, "failed", report.Failed)
	return report, nil
}

func (j *AttendanceJobs) autoClockOutRecord(ctx context.Context, rec attendance.Record, now time.Time) error {
	notes := "Auto clocked out by system at end of day"
	breakTotal := rec.BreakDuration

	patch := attendance.Patch{
		ClockOut:      &now,
		ClockOutNotes: &notes,
		ClockStatus:   clockStatusPtr(attendance.ClockStatusClockedOut),
		IsClosed:      boolPtr(true),
		AutoClockOut:  boolPtr(true),
	}

	if rec.ClockStatus == attendance.ClockStatusOnBreak && rec.BreakIn != nil {
		breakTotal += clampNonNegative(now.Sub(*rec.BreakIn))
		patch.BreakOut = &now
		patch.BreakDuration = &breakTotal
		patch.BreakTaken = boolPtr(true)
	}

	duration := clampNonNegative(now.Sub(*rec.ClockIn) - breakTotal)
	patch.Duration = &duration

	_, err := j.records.UpdateIfMatches(ctx, rec.ID,
		attendance.ExpectedState{
			IsClosed:    boolPtr(false),
			ClockStatus: clockStatusPtr(rec.ClockStatus),
		},
		patch,
	)
	if errors.Is(err, attendance.ErrStateConflict) {
		// The user clocked out (or changed state) since the scan; the next
		// tick will catch the record if it is somehow still open.
		return nil
	}
	if err != nil {
		return err
	}

	// The update closed the record, so a repeat run cannot reach this point
	// twice for the same day.
	j.notify(ctx, rec.UserID, notification.KindAttendanceUpdate,
		"Automatically clocked out",
		"You were clocked out by the system at end of day. Your recorded hours stop at the automatic clock-out time.",
		[]notification.Channel{notification.ChannelInApp, notification.ChannelSSE},
		map[string]any{"date": rec.Date, "duration_ms": duration.Milliseconds()},
	)
	return nil
}

// RunBreakReminder enforces the break policy on every on-break record:
// warn when the allowance is nearly used, auto-close at exactly the policy
// limit, and escalate to admins past the overdue threshold. Each
// notification is gated by the record's ledger, set in the same conditional
// update that processes the condition, so repeated ticks deliver at most
// once.
func (j *AttendanceJobs) RunBreakReminder(ctx context.Context) (RunReport, error) {
	now := j.clock.Now()
	today := tzclock.DayKey(now, j.loc)

	onBreak := attendance.ClockStatusOnBreak
	records, err := j.records.FindMany(ctx, attendance.Filter{Date: today, ClockStatus: &onBreak})
	if err != nil {
		return RunReport{}, fmt.Errorf("break-reminder: failed to find on-break records: %w", err)
	}

	var report RunReport
	for _, rec := range records {
		if rec.BreakIn == nil || rec.IsClosed {
			continue
		}
		report.Processed++
		if err := j.remindBreakRecord(ctx, rec, now); err != nil {
			slog.Error("break-reminder: failed for record", "record_id", rec.ID, "user_id", rec.UserID, "error", err)
			report.Failed++
			continue
		}
		report.Succeeded++
	}

	return report, nil
}

func (j *AttendanceJobs) remindBreakRecord(ctx context.Context, rec attendance.Record, now time.Time) error {
	elapsed := clampNonNegative(now.Sub(*rec.BreakIn))

	if elapsed >= j.maxBreak {
		return j.endOverdueBreak(ctx, rec, elapsed)
	}

	remaining := j.maxBreak - elapsed
	if remaining <= j.warnLead && !rec.HasNotified(attendance.CondBreakWarning) {
		_, err := j.records.UpdateIfMatches(ctx, rec.ID,
			attendance.ExpectedState{
				ClockStatus: clockStatusPtr(attendance.ClockStatusOnBreak),
				IsClosed:    boolPtr(false),
			},
			attendance.Patch{
				AddNotified: []attendance.Condition{attendance.CondBreakWarning},
			},
		)
		if errors.Is(err, attendance.ErrStateConflict) {
			return nil
		}
		if err != nil {
			return err
		}

		j.notify(ctx, rec.UserID, notification.KindBreakAlmostOver,
			"Break almost over",
			fmt.Sprintf("Your break ends in %d minutes.", int(remaining/time.Minute)),
			[]notification.Channel{notification.ChannelInApp, notification.ChannelSSE},
			map[string]any{"date": rec.Date},
		)
	}

	return nil
}

// endOverdueBreak closes the break at exactly the policy limit. The overage
// beyond the limit still counts against the user as break time and is kept
// separately as break_overdue_ms.
func (j *AttendanceJobs) endOverdueBreak(ctx context.Context, rec attendance.Record, elapsed time.Duration) error {
	endAt := rec.BreakIn.Add(j.maxBreak)
	overage := elapsed - j.maxBreak
	breakTotal := rec.BreakDuration + j.maxBreak + overage
	overdueTotal := rec.BreakOverdue + overage

	notifyEnded := !rec.HasNotified(attendance.CondBreakEnded)
	notifyAdmins := overage >= j.adminAfter && !rec.HasNotified(attendance.CondBreakAdminOverdue)

	var tags []attendance.Condition
	if notifyEnded {
		tags = append(tags, attendance.CondBreakEnded)
	}
	if notifyAdmins {
		tags = append(tags, attendance.CondBreakAdminOverdue)
	}

	_, err := j.records.UpdateIfMatches(ctx, rec.ID,
		attendance.ExpectedState{
			ClockStatus: clockStatusPtr(attendance.ClockStatusOnBreak),
			IsClosed:    boolPtr(false),
		},
		attendance.Patch{
			BreakOut:           &endAt,
			BreakDuration:      &breakTotal,
			BreakOverdue:       &overdueTotal,
			BreakTaken:         boolPtr(true),
			BreakEndedBySystem: boolPtr(true),
			ClockStatus:        clockStatusPtr(attendance.ClockStatusClockedIn),
			AddNotified:        tags,
		},
	)
	if errors.Is(err, attendance.ErrStateConflict) {
		// The user ended the break (or clocked out) first.
		return nil
	}
	if err != nil {
		return err
	}

	if notifyEnded {
		j.notify(ctx, rec.UserID, notification.KindBreakEnded,
			"Break ended",
			fmt.Sprintf("Your break exceeded the %d-minute limit and was ended automatically. %d overdue minutes were deducted from your work time.",
				int(j.maxBreak/time.Minute), int(overage/time.Minute)),
			[]notification.Channel{notification.ChannelInApp, notification.ChannelSSE},
			map[string]any{"date": rec.Date, "overdue_ms": overage.Milliseconds()},
		)
	}

	if notifyAdmins {
		admins, err := j.users.ListAdmins(ctx)
		if err != nil {
			slog.Error("break-reminder: failed to list admins", "error", err)
			return nil
		}
		for _, admin := range admins {
			j.notify(ctx, admin.ID, notification.KindBreakAdminAlert,
				"Break overdue",
				fmt.Sprintf("User %s exceeded the break limit by %d minutes on %s.", rec.UserID, int(overage/time.Minute), rec.Date),
				[]notification.Channel{notification.ChannelInApp, notification.ChannelSSE, notification.ChannelEmail},
				map[string]any{"user_id": rec.UserID, "date": rec.Date, "overdue_ms": overage.Milliseconds()},
			)
		}
	}

	return nil
}

// notify fires and forgets: delivery failure never unwinds the state change
// that triggered the message.
func (j *AttendanceJobs) notify(ctx context.Context, userID string, kind notification.Kind, title, message string, channels []notification.Channel, data map[string]any) {
	if _, err := j.notifier.Notify(ctx, notification.Request{
		UserID:   userID,
		Kind:     kind,
		Title:    title,
		Message:  message,
		Channels: channels,
		Data:     data,
	}); err != nil {
		slog.Error("notification failed", "user_id", userID, "kind", kind, "error", err)
	}
}
