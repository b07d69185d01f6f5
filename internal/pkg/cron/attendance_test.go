package cron

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gradbridge/presence-backend-go/internal/config"
	"github.com/gradbridge/presence-backend-go/internal/domain/attendance"
	"github.com/gradbridge/presence-backend-go/internal/domain/notification"
	"github.com/gradbridge/presence-backend-go/internal/domain/user"
	"github.com/gradbridge/presence-backend-go/internal/repository/memory"
	attendancesvc "github.com/gradbridge/presence-backend-go/internal/service/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

type fakeUserRepo struct {
	graduates []user.User
	admins    []user.User
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (user.User, error) {
	for _, u := range append(f.graduates, f.admins...) {
		if u.ID == id {
			return u, nil
		}
	}
	return user.User{}, user.ErrUserNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, _ string) (user.User, error) {
	return user.User{}, user.ErrUserNotFound
}

func (f *fakeUserRepo) ListActiveGraduates(_ context.Context) ([]user.User, error) {
	return f.graduates, nil
}

func (f *fakeUserRepo) ListAdmins(_ context.Context) ([]user.User, error) {
	return f.admins, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification.Request
}

func (f *fakeNotifier) Notify(_ context.Context, req notification.Request) (notification.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	return notification.Result{ChannelsUsed: req.Channels}, nil
}

func (f *fakeNotifier) sentTo(userID string, kind notification.Kind) []notification.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notification.Request
	for _, req := range f.sent {
		if req.UserID == userID && req.Kind == kind {
			out = append(out, req)
		}
	}
	return out
}

func businessLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Africa/Johannesburg")
	require.NoError(t, err)
	return loc
}

// localTime builds an instant at wall-clock time in the business timezone.
func localTime(t *testing.T, day string, hour, min int) time.Time {
	t.Helper()
	loc := businessLoc(t)
	parsed, err := time.ParseInLocation("2006-01-02", day, loc)
	require.NoError(t, err)
	return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), hour, min, 0, 0, loc)
}

// 2025-06-17 is a Tuesday workday; 2025-06-21 a Saturday; 2025-06-16 Youth Day.
const (
	workday  = "2025-06-17"
	saturday = "2025-06-21"
	holiday  = "2025-06-16"
)

type jobFixture struct {
	jobs     *AttendanceJobs
	records  *memory.AttendanceRepository
	notifier *fakeNotifier
	clock    *fakeClock
	svc      *attendancesvc.ServiceImpl
}

func newJobFixture(t *testing.T, now time.Time, graduateIDs ...string) *jobFixture {
	t.Helper()

	users := &fakeUserRepo{
		admins: []user.User{{ID: "admin1", Email: "admin@gradbridge.example", Role: user.RoleAdmin, IsActive: true}},
	}
	for _, id := range graduateIDs {
		users.graduates = append(users.graduates, user.User{
			ID: id, Email: id + "@gradbridge.example", Role: user.RoleGraduate, IsActive: true, IsEmailVerified: true,
		})
	}

	records := memory.NewAttendanceRepository()
	notifier := &fakeNotifier{}
	clock := &fakeClock{now: now}
	loc := businessLoc(t)

	jobs := NewAttendanceJobs(records, users, notifier, clock, loc, config.BusinessConfig{
		Timezone:                 "Africa/Johannesburg",
		ClockInCutoffHour:        17,
		MaxBreakMinutes:          60,
		BreakWarningLeadMinutes:  5,
		AdminOverdueAfterMinutes: 10,
	})

	return &jobFixture{
		jobs:     jobs,
		records:  records,
		notifier: notifier,
		clock:    clock,
		svc:      attendancesvc.NewAttendanceService(records, clock, loc, 17),
	}
}

func TestDayInit_CreatesClosedWeekendRecords(t *testing.T) {
	t.Parallel()
	fx := newJobFixture(t, localTime(t, saturday, 0, 1), "u1", "u2")

	report, err := fx.jobs.RunDayInit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunReport{Processed: 2, Succeeded: 2}, report)

	rec, err := fx.records.Find(context.Background(), "u1", saturday)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusWeekend, rec.Status)
	assert.True(t, rec.IsClosed)
	assert.Nil(t, rec.ClockIn)
}

func TestDayInit_RunTwiceIsIdempotent(t *testing.T) {
	t.Parallel()
	fx := newJobFixture(t, localTime(t, holiday, 0, 1), "u1")

	_, err := fx.jobs.RunDayInit(context.Background())
	require.NoError(t, err)

	// The repeat run sees the duplicate insert and counts it as success.
	report, err := fx.jobs.RunDayInit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunReport{Processed: 1, Succeeded: 1}, report)

	recs, err := fx.records.FindMany(context.Background(), attendance.Filter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, attendance.StatusHoliday, recs[0].Status)
	assert.Equal(t, "Youth Day", recs[0].HolidayName)
}

func TestDayInit_SkipsWorkday(t *testing.T) {
	t.Parallel()
	fx := newJobFixture(t, localTime(t, workday, 0, 1), "u1")

	report, err := fx.jobs.RunDayInit(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Processed)

	_, err = fx.records.Find(context.Background(), "u1", workday)
	assert.ErrorIs(t, err, attendance.ErrRecordNotFound)
}

func TestMarkAbsent_MarksUsersWithoutClockIn(t *testing.T) {
	t.Parallel()
	fx := newJobFixture(t, localTime(t, workday, 9, 0), "present", "missing")

	_, err := fx.svc.ClockIn(context.Background(), "present", "")
	require.NoError(t, err)

	fx.clock.now = localTime(t, workday, 16, 0)
	report, err := fx.jobs.RunMarkAbsent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunReport{Processed: 2, Succeeded: 2}, report)

	missing, err := fx.records.Find(context.Background(), "missing", workday)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusAbsent, missing.Status)
	assert.True(t, missing.AutoMarkedAbsent)
	assert.True(t, missing.IsClosed)

	// The clocked-in user is left untouched.
	present, err := fx.records.Find(context.Background(), "present", workday)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPresent, present.Status)
	assert.False(t, present.AutoMarkedAbsent)
	assert.False(t, present.IsClosed)
}

func TestMarkAbsent_ThenClockInRejected(t *testing.T) {
	t.Parallel()
	fx := newJobFixture(t, localTime(t, workday, 16, 0), "u1")

	_, err := fx.jobs.RunMarkAbsent(context.Background())
	require.NoError(t, err)

	fx.clock.now = localTime(t, workday, 16, 30)
	_, err = fx.svc.ClockIn(context.Background(), "u1", "")
	assert.ErrorIs(t, err, attendance.ErrAlreadyMarkedAbsent)
}

func TestMarkAbsent_SkipsWeekend(t *testing.T) {
	t.Parallel()
	fx := newJobFixture(t, localTime(t, saturday, 17, 0), "u1")

	report, err := fx.jobs.RunMarkAbsent(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Processed)
}

func TestMarkAbsent_RunTwiceIsIdempotent(t *testing.T) {
	t.Parallel()
	fx := newJobFixture(t, localTime(t, workday, 16, 0), "u1")

	_, err := fx.jobs.RunMarkAbsent(context.Background())
	require.NoError(t, err)
	report, err := fx.jobs.RunMarkAbsent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunReport{Processed: 1, Succeeded: 1}, report)

	recs, err := fx.records.FindMany(context.Background(), attendance.Filter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestClockOutReminder_NotifiesOpenSessions(t *testing.T) {
	t.Parallel()
	fx := newJobFixture(t, localTime(t, workday, 9, 0), "forgetful", "diligent")

	_, err := fx.svc.ClockIn(context.Background(), "forgetful", "")
	require.NoError(t, err)
	_, err = fx.svc.ClockIn(context.Background(), "diligent", "")
	require.NoError(t, err)

	fx.clock.now = localTime(t, workday, 17, 0)
	_, err = fx.svc.ClockOut(context.Background(), "diligent", "")
	require.NoError(t, err)

	fx.clock.now = localTime(t, workday, 17, 30)
	report, err := fx.jobs.RunClockOutReminder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunReport{Processed: 1, Succeeded: 1}, report)

	reminders := fx.notifier.sentTo("forgetful", notification.KindMissedClockOut)
	require.Len(t, reminders, 1)
	assert.Contains(t, reminders[0].Channels, notification.ChannelEmail)
	assert.Empty(t, fx.notifier.sentTo("diligent", notification.KindMissedClockOut))

	// The reminder tags the record but leaves the session open for the user
	// (or the auto-clock-out sweep) to close.
	rec, err := fx.records.Find(context.Background(), "forgetful", workday)
	require.NoError(t, err)
	assert.True(t, rec.HasNotified(attendance.CondMissedClockOut))
	assert.Nil(t, rec.ClockOut)
	assert.False(t, rec.IsClosed)
}

func TestClockOutReminder_RunTwiceSendsOnce(t *testing.T) {
	t.Parallel()
	fx := newJobFixture(t, localTime(t, workday, 9, 0), "u1")

	_, err := fx.svc.ClockIn(context.Background(), "u1", "")
	require.NoError(t, err)

	fx.clock.now = localTime(t, workday, 17, 30)
	_, err = fx.jobs.RunClockOutReminder(context.Background())
	require.NoError(t, err)

	// The ledger tag makes the repeat run a no-op.
	fx.clock.now = localTime(t, workday, 17, 45)
	report, err := fx.jobs.RunClockOutReminder(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Processed)
	assert.Len(t, fx.notifier.sentTo("u1", notification.KindMissedClockOut), 1)
}

func TestAutoClockOut_ClosesOpenSession(t *testing.T) {
	t.Parallel()
	fx := newJobFixture(t, localTime(t, workday, 9, 0), "u1")

	_, err := fx.svc.ClockIn(context.Background(), "u1", "")
	require.NoError(t, err)

	fx.clock.now = localTime(t, workday, 23, 59)
	report, err := fx.jobs.RunAutoClockOut(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunReport{Processed: 1, Succeeded: 1}, report)

	rec, err := fx.records.Find(context.Background(), "u1", workday)
	require.NoError(t, err)
	require.NotNil(t, rec.ClockOut)
	assert.True(t, rec.ClockOut.Equal(fx.clock.now))
	assert.True(t, rec.AutoClockOut)
	assert.True(t, rec.IsClosed)
	assert.Equal(t, "Auto clocked out by system at end of day", rec.ClockOutNotes)
	assert.Equal(t, 14*time.Hour+59*time.Minute, rec.Duration)

	updates := fx.notifier.sentTo("u1", notification.KindAttendanceUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, "Automatically clocked out", updates[0].Title)
}

func TestAutoClockOut_FoldsOpenBreak(t *testing.T) {
	t.Parallel()
	fx := newJobFixture(t, localTime(t, workday, 9, 0), "u1")

	_, err := fx.svc.ClockIn(context.Background(), "u1", "")
	require.NoError(t, err)

	fx.clock.now = localTime(t, workday, 23, 30)
	_, err = fx.svc.BreakIn(context.Background(), "u1")
	require.NoError(t, err)

	fx.clock.now = localTime(t, workday, 23, 59)
	_, err = fx.jobs.RunAutoClockOut(context.Background())
	require.NoError(t, err)

	rec, err := fx.records.Find(context.Background(), "u1", workday)
	require.NoError(t, err)
	assert.Equal(t, attendance.ClockStatusClockedOut, rec.ClockStatus)
	assert.Equal(t, 29*time.Minute, rec.BreakDuration)
	assert.True(t, rec.BreakTaken)
	// 14h59m elapsed minus the 29m break.
	assert.Equal(t, 14*time.Hour+30*time.Minute, rec.Duration)
}

func TestAutoClockOut_RunTwiceIsIdempotent(t *testing.T) {
	t.Parallel()
	fx := newJobFixture(t, localTime(t, workday, 9, 0), "u1")

	_, err := fx.svc.ClockIn(context.Background(), "u1", "")
	require.NoError(t, err)

	fx.clock.now = localTime(t, workday, 23, 59)
	_, err = fx.jobs.RunAutoClockOut(context.Background())
	require.NoError(t, err)

	// The record is closed now, so the second sweep finds nothing and the
	// user is told only once.
	report, err := fx.jobs.RunAutoClockOut(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Processed)
	assert.Len(t, fx.notifier.sentTo("u1", notification.KindAttendanceUpdate), 1)
}

func TestBreakReminder_WarnsOnceNearLimit(t *testing.T) {
	t.Parallel()
	fx := newJobFixture(t, localTime(t, workday, 9, 0), "u1")

	_, err := fx.svc.ClockIn(context.Background(), "u1", "")
	require.NoError(t, err)
	fx.clock.now = localTime(t, workday, 12, 0)
	_, err = fx.svc.BreakIn(context.Background(), "u1")
	require.NoError(t, err)

	// 30 minutes in: nothing to say yet.
	fx.clock.now = localTime(t, workday, 12, 30)
	_, err = fx.jobs.RunBreakReminder(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fx.notifier.sentTo("u1", notification.KindBreakAlmostOver))

	// 56 minutes in: inside the 5-minute warning window.
	fx.clock.now = localTime(t, workday, 12, 56)
	_, err = fx.jobs.RunBreakReminder(context.Background())
	require.NoError(t, err)

	// A minute later the ledger suppresses the repeat.
	fx.clock.now = localTime(t, workday, 12, 57)
	_, err = fx.jobs.RunBreakReminder(context.Background())
	require.NoError(t, err)

	warnings := fx.notifier.sentTo("u1", notification.KindBreakAlmostOver)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "4 minutes")

	rec, err := fx.records.Find(context.Background(), "u1", workday)
	require.NoError(t, err)
	assert.True(t, rec.HasNotified(attendance.CondBreakWarning))
	assert.Equal(t, attendance.ClockStatusOnBreak, rec.ClockStatus)
}

func TestBreakReminder_EndsOverdueBreak(t *testing.T) {
	t.Parallel()
	fx := newJobFixture(t, localTime(t, workday, 9, 0), "u1")

	_, err := fx.svc.ClockIn(context.Background(), "u1", "")
	require.NoError(t, err)
	breakStart := localTime(t, workday, 12, 0)
	fx.clock.now = breakStart
	_, err = fx.svc.BreakIn(context.Background(), "u1")
	require.NoError(t, err)

	// First tick after the 60-minute limit: 75 minutes elapsed.
	fx.clock.now = localTime(t, workday, 13, 15)
	report, err := fx.jobs.RunBreakReminder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunReport{Processed: 1, Succeeded: 1}, report)

	rec, err := fx.records.Find(context.Background(), "u1", workday)
	require.NoError(t, err)
	assert.Equal(t, attendance.ClockStatusClockedIn, rec.ClockStatus)
	require.NotNil(t, rec.BreakOut)
	// The break closes at exactly the policy limit, not at the tick instant.
	assert.True(t, rec.BreakOut.Equal(breakStart.Add(60*time.Minute)))
	assert.Equal(t, 75*time.Minute, rec.BreakDuration)
	assert.Equal(t, 15*time.Minute, rec.BreakOverdue)
	assert.True(t, rec.BreakTaken)
	assert.True(t, rec.BreakEndedBySystem)

	ended := fx.notifier.sentTo("u1", notification.KindBreakEnded)
	require.Len(t, ended, 1)
	assert.Contains(t, ended[0].Message, "15 overdue minutes")
}

func TestBreakReminder_EscalatesToAdminsOnce(t *testing.T) {
	t.Parallel()
	fx := newJobFixture(t, localTime(t, workday, 9, 0), "u1")

	_, err := fx.svc.ClockIn(context.Background(), "u1", "")
	require.NoError(t, err)
	fx.clock.now = localTime(t, workday, 12, 0)
	_, err = fx.svc.BreakIn(context.Background(), "u1")
	require.NoError(t, err)

	// 72 minutes elapsed: 12 minutes overdue, past the 10-minute threshold,
	// so the same tick ends the break and escalates.
	fx.clock.now = localTime(t, workday, 13, 12)
	_, err = fx.jobs.RunBreakReminder(context.Background())
	require.NoError(t, err)

	alerts := fx.notifier.sentTo("admin1", notification.KindBreakAdminAlert)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Channels, notification.ChannelEmail)

	// The record left on-break state, so the next tick sweeps past it.
	fx.clock.now = localTime(t, workday, 13, 13)
	report, err := fx.jobs.RunBreakReminder(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Processed)
	assert.Len(t, fx.notifier.sentTo("admin1", notification.KindBreakAdminAlert), 1)
}

func TestBreakReminder_UserBeatsTheSweep(t *testing.T) {
	t.Parallel()
	fx := newJobFixture(t, localTime(t, workday, 9, 0), "u1")

	_, err := fx.svc.ClockIn(context.Background(), "u1", "")
	require.NoError(t, err)
	fx.clock.now = localTime(t, workday, 12, 0)
	_, err = fx.svc.BreakIn(context.Background(), "u1")
	require.NoError(t, err)

	// The user ends the break at 58 minutes, before any warning fired.
	fx.clock.now = localTime(t, workday, 12, 58)
	_, err = fx.svc.BreakOut(context.Background(), "u1")
	require.NoError(t, err)

	_, err = fx.jobs.RunBreakReminder(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fx.notifier.sent)

	rec, err := fx.records.Find(context.Background(), "u1", workday)
	require.NoError(t, err)
	assert.False(t, rec.BreakEndedBySystem)
	assert.Equal(t, 58*time.Minute, rec.BreakDuration)
}
