// Package tzclock converts between absolute instants and calendar date keys
// in the business timezone. Every consumer that needs "now" takes a Clock so
// the state machine and the reconciliation jobs stay deterministic under test.
package tzclock

import (
	"fmt"
	"time"

	"github.com/gradbridge/presence-backend-go/internal/pkg/calendar"
)

// Clock supplies the current instant. Production code uses SystemClock; tests
// inject a fixed or stepping clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// DayKey projects an instant onto its calendar date key in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// StartOfDay returns the instant of 00:00:00.000 local wall time for the date
// key in loc. time.Date resolves the wall time against the zone database, so
// no UTC offset is assumed anywhere.
func StartOfDay(key string, loc *time.Location) (time.Time, error) {
	y, m, d, err := calendar.ParseDateKey(key)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
}

// EndOfDay returns the instant of 23:59:59.999 local wall time for the date
// key in loc. Together with StartOfDay it brackets exactly the instants whose
// DayKey equals key.
func EndOfDay(key string, loc *time.Location) (time.Time, error) {
	y, m, d, err := calendar.ParseDateKey(key)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), loc), nil
}

// LoadLocation resolves an IANA timezone name, failing loudly rather than
// silently falling back to UTC: a wrong business timezone corrupts every
// date key derived from it.
func LoadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid business timezone %q: %w", name, err)
	}
	return loc, nil
}
