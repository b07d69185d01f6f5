package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/gradbridge/presence-backend-go/internal/domain/attendance"
	"github.com/gradbridge/presence-backend-go/internal/pkg/calendar"
	"github.com/gradbridge/presence-backend-go/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

// localTime builds an instant at wall-clock time in the business timezone.
// 2025-06-17 is a Tuesday workday.
func localTime(t *testing.T, day string, hour, min int) time.Time {
	t.Helper()
	loc := businessLoc(t)
	parsed, err := time.ParseInLocation("2006-01-02", day, loc)
	require.NoError(t, err)
	return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), hour, min, 0, 0, loc)
}

func businessLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Africa/Johannesburg")
	require.NoError(t, err)
	return loc
}

func newTestService(t *testing.T, now time.Time) (*ServiceImpl, *memory.AttendanceRepository, *fakeClock) {
	t.Helper()
	repo := memory.NewAttendanceRepository()
	clock := &fakeClock{now: now}
	svc := NewAttendanceService(repo, clock, businessLoc(t), 17)
	return svc, repo, clock
}

const workday = "2025-06-17"

func TestClockIn_CreatesRecord(t *testing.T) {
	t.Parallel()
	now := localTime(t, workday, 8, 0)
	svc, _, _ := newTestService(t, now)

	rec, err := svc.ClockIn(context.Background(), "u1", "starting early")
	require.NoError(t, err)

	assert.Equal(t, workday, rec.Date)
	assert.Equal(t, attendance.StatusPresent, rec.Status)
	assert.Equal(t, attendance.ClockStatusClockedIn, rec.ClockStatus)
	assert.Equal(t, calendar.DayTypeWorkday, rec.DayType)
	require.NotNil(t, rec.ClockIn)
	assert.True(t, rec.ClockIn.Equal(now))
	assert.Equal(t, "starting early", rec.ClockInNotes)
	assert.False(t, rec.IsClosed)
}

func TestClockIn_RejectsWeekendAndHoliday(t *testing.T) {
	t.Parallel()

	// Saturday
	svc, _, _ := newTestService(t, localTime(t, "2025-06-21", 9, 0))
	_, err := svc.ClockIn(context.Background(), "u1", "")
	assert.ErrorIs(t, err, attendance.ErrNotWorkday)

	// Youth Day
	svc, _, _ = newTestService(t, localTime(t, "2025-06-16", 9, 0))
	_, err = svc.ClockIn(context.Background(), "u1", "")
	assert.ErrorIs(t, err, attendance.ErrNotWorkday)
}

func TestClockIn_RejectsAfterCutoff(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t, localTime(t, workday, 17, 30))

	_, err := svc.ClockIn(context.Background(), "u1", "")
	assert.ErrorIs(t, err, attendance.ErrOutsideBusinessHours)
}

func TestClockIn_RejectsSecondClockIn(t *testing.T) {
	t.Parallel()
	svc, _, clock := newTestService(t, localTime(t, workday, 8, 0))

	_, err := svc.ClockIn(context.Background(), "u1", "")
	require.NoError(t, err)

	clock.now = localTime(t, workday, 9, 0)
	_, err = svc.ClockIn(context.Background(), "u1", "")
	assert.ErrorIs(t, err, attendance.ErrAlreadyClockedIn)
}

func TestClockIn_RejectedAfterAutoMarkedAbsent(t *testing.T) {
	t.Parallel()
	svc, repo, _ := newTestService(t, localTime(t, workday, 10, 0))

	_, err := repo.CreateIfAbsent(context.Background(), attendance.Record{
		UserID:           "u1",
		Date:             workday,
		DayType:          calendar.DayTypeWorkday,
		Status:           attendance.StatusAbsent,
		ClockStatus:      attendance.ClockStatusClockedOut,
		AutoMarkedAbsent: true,
		IsClosed:         true,
	})
	require.NoError(t, err)

	_, err = svc.ClockIn(context.Background(), "u1", "")
	assert.ErrorIs(t, err, attendance.ErrAlreadyMarkedAbsent)
}

func TestClockOut_WithThirtyMinuteBreak(t *testing.T) {
	t.Parallel()
	svc, _, clock := newTestService(t, localTime(t, workday, 8, 0))
	ctx := context.Background()

	_, err := svc.ClockIn(ctx, "u1", "")
	require.NoError(t, err)

	clock.now = localTime(t, workday, 12, 0)
	_, err = svc.BreakIn(ctx, "u1")
	require.NoError(t, err)

	clock.now = localTime(t, workday, 12, 30)
	rec, err := svc.BreakOut(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, rec.BreakDuration)
	assert.True(t, rec.BreakTaken)
	assert.Equal(t, attendance.ClockStatusClockedIn, rec.ClockStatus)

	clock.now = localTime(t, workday, 17, 0)
	rec, err = svc.ClockOut(ctx, "u1", "done")
	require.NoError(t, err)

	assert.Equal(t, 8*time.Hour+30*time.Minute, rec.Duration)
	assert.True(t, rec.IsClosed)
	assert.Equal(t, attendance.ClockStatusClockedOut, rec.ClockStatus)
	assert.Equal(t, "done", rec.ClockOutNotes)
}

func TestClockOut_ClosesOpenBreak(t *testing.T) {
	t.Parallel()
	svc, _, clock := newTestService(t, localTime(t, workday, 8, 0))
	ctx := context.Background()

	_, err := svc.ClockIn(ctx, "u1", "")
	require.NoError(t, err)

	clock.now = localTime(t, workday, 13, 0)
	_, err = svc.BreakIn(ctx, "u1")
	require.NoError(t, err)

	// Clock out while still on break: the open break is folded in.
	clock.now = localTime(t, workday, 13, 45)
	rec, err := svc.ClockOut(ctx, "u1", "")
	require.NoError(t, err)

	assert.Equal(t, 45*time.Minute, rec.BreakDuration)
	require.NotNil(t, rec.BreakOut)
	assert.Equal(t, 5*time.Hour, rec.Duration)
	assert.True(t, rec.BreakTaken)
	assert.True(t, rec.IsClosed)
}

func TestClockOut_NoActiveSession(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t, localTime(t, workday, 9, 0))

	_, err := svc.ClockOut(context.Background(), "u1", "")
	assert.ErrorIs(t, err, attendance.ErrNoActiveSession)
}

func TestClockOut_TwiceRejected(t *testing.T) {
	t.Parallel()
	svc, _, clock := newTestService(t, localTime(t, workday, 8, 0))
	ctx := context.Background()

	_, err := svc.ClockIn(ctx, "u1", "")
	require.NoError(t, err)

	clock.now = localTime(t, workday, 16, 0)
	_, err = svc.ClockOut(ctx, "u1", "")
	require.NoError(t, err)

	_, err = svc.ClockOut(ctx, "u1", "")
	assert.ErrorIs(t, err, attendance.ErrNoActiveSession)
}

func TestBreakIn_Guards(t *testing.T) {
	t.Parallel()
	svc, _, clock := newTestService(t, localTime(t, workday, 8, 0))
	ctx := context.Background()

	// Not clocked in at all.
	_, err := svc.BreakIn(ctx, "u1")
	assert.ErrorIs(t, err, attendance.ErrNotClockedIn)

	_, err = svc.ClockIn(ctx, "u1", "")
	require.NoError(t, err)

	clock.now = localTime(t, workday, 10, 0)
	_, err = svc.BreakIn(ctx, "u1")
	require.NoError(t, err)

	// Already on break.
	_, err = svc.BreakIn(ctx, "u1")
	assert.ErrorIs(t, err, attendance.ErrNotClockedIn)

	clock.now = localTime(t, workday, 10, 20)
	_, err = svc.BreakOut(ctx, "u1")
	require.NoError(t, err)

	// Single-break policy.
	clock.now = localTime(t, workday, 14, 0)
	_, err = svc.BreakIn(ctx, "u1")
	assert.ErrorIs(t, err, attendance.ErrBreakAlreadyTaken)
}

func TestBreakOut_NotOnBreak(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t, localTime(t, workday, 8, 0))
	ctx := context.Background()

	_, err := svc.ClockIn(ctx, "u1", "")
	require.NoError(t, err)

	_, err = svc.BreakOut(ctx, "u1")
	assert.ErrorIs(t, err, attendance.ErrNotOnBreak)
}

func TestDuration_ClampedUnderClockSkew(t *testing.T) {
	t.Parallel()
	svc, _, clock := newTestService(t, localTime(t, workday, 8, 0))
	ctx := context.Background()

	_, err := svc.ClockIn(ctx, "u1", "")
	require.NoError(t, err)

	// Wall clock jumped backwards past the clock-in instant.
	clock.now = localTime(t, workday, 7, 0)
	rec, err := svc.ClockOut(ctx, "u1", "")
	require.NoError(t, err)

	assert.Equal(t, time.Duration(0), rec.Duration)
	assert.True(t, rec.IsClosed)
}

func TestGetStatus(t *testing.T) {
	t.Parallel()
	svc, _, clock := newTestService(t, localTime(t, workday, 8, 0))
	ctx := context.Background()

	// No record yet on a workday.
	status, err := svc.GetStatus(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusAbsent, status.Status)
	assert.Equal(t, attendance.ClockStatusClockedOut, status.ClockStatus)
	assert.Nil(t, status.Record)

	_, err = svc.ClockIn(ctx, "u1", "")
	require.NoError(t, err)

	// Open session reports live duration.
	clock.now = localTime(t, workday, 11, 0)
	status, err = svc.GetStatus(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPresent, status.Status)
	assert.Equal(t, attendance.ClockStatusClockedIn, status.ClockStatus)
	assert.Equal(t, (3 * time.Hour).Milliseconds(), status.DurationMs)
	require.NotNil(t, status.Record)
}

func TestGetStatus_Weekend(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t, localTime(t, "2025-06-21", 10, 0))

	status, err := svc.GetStatus(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusWeekend, status.Status)
	assert.Equal(t, calendar.DayTypeWeekend, status.DayType)
}

func TestListMine_ScopesToUser(t *testing.T) {
	t.Parallel()
	svc, repo, _ := newTestService(t, localTime(t, workday, 8, 0))
	ctx := context.Background()

	for _, uid := range []string{"u1", "u2"} {
		_, err := repo.CreateIfAbsent(ctx, attendance.Record{
			UserID:      uid,
			Date:        workday,
			DayType:     calendar.DayTypeWorkday,
			Status:      attendance.StatusPresent,
			ClockStatus: attendance.ClockStatusClockedOut,
		})
		require.NoError(t, err)
	}

	views, err := svc.ListMine(ctx, "u1", attendance.ListFilter{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "u1", views[0].UserID)
}
