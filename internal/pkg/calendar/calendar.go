// Package calendar classifies business-timezone date keys (YYYY-MM-DD) as
// workdays, weekends or public holidays. Everything here is computed from
// the key alone so results never depend on the host timezone or locale.
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DayType is the business classification of a calendar day.
type DayType string

const (
	DayTypeWorkday DayType = "workday"
	DayTypeWeekend DayType = "weekend"
	DayTypeHoliday DayType = "holiday"
)

// DayInfo is the result of classifying a date key.
type DayInfo struct {
	Type        DayType
	HolidayName string
}

// fixedHolidays are the South African public holidays that fall on the same
// month/day every year.
var fixedHolidays = []struct {
	Month time.Month
	Day   int
	Name  string
}{
	{time.January, 1, "New Year's Day"},
	{time.March, 21, "Human Rights Day"},
	{time.April, 27, "Freedom Day"},
	{time.May, 1, "Workers' Day"},
	{time.June, 16, "Youth Day"},
	{time.August, 9, "National Women's Day"},
	{time.September, 24, "Heritage Day"},
	{time.December, 16, "Day of Reconciliation"},
	{time.December, 25, "Christmas Day"},
	{time.December, 26, "Day of Goodwill"},
}

// ParseDateKey splits a YYYY-MM-DD key into its calendar parts.
func ParseDateKey(key string) (year int, month time.Month, day int, err error) {
	parts := strings.Split(key, "-")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid date key %q", key)
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid date key %q: %w", key, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return 0, 0, 0, fmt.Errorf("invalid date key %q", key)
	}
	d, err := strconv.Atoi(parts[2])
	if err != nil || d < 1 || d > 31 {
		return 0, 0, 0, fmt.Errorf("invalid date key %q", key)
	}
	return y, time.Month(m), d, nil
}

// Weekday computes the day of week (time.Sunday..time.Saturday) for a date
// key using Sakamoto's method, so the answer is a pure function of the
// calendar date.
func Weekday(key string) (time.Weekday, error) {
	y, m, d, err := ParseDateKey(key)
	if err != nil {
		return 0, err
	}
	t := [12]int{0, 3, 2, 5, 0, 3, 5, 1, 4, 6, 2, 4}
	if m < 3 {
		y--
	}
	w := (y + y/4 - y/100 + y/400 + t[m-1] + d) % 7
	return time.Weekday(w), nil
}

// IsWeekend reports whether the date key falls on a Saturday or Sunday.
func IsWeekend(key string) (bool, error) {
	w, err := Weekday(key)
	if err != nil {
		return false, err
	}
	return w == time.Saturday || w == time.Sunday, nil
}

// EasterSunday returns Easter Sunday for the given Gregorian year using the
// Meeus/Jones/Butcher algorithm. Valid for year >= 1583.
func EasterSunday(year int) (month time.Month, day int) {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month = time.Month((h + l - 7*m + 114) / 31)
	day = (h+l-7*m+114)%31 + 1
	return month, day
}

// HolidaysForYear returns every public holiday of the year keyed by date.
// Fixed-date holidays come from the table above; Good Friday and Family Day
// are derived from Easter Sunday (two days before and one day after).
func HolidaysForYear(year int) map[string]string {
	holidays := make(map[string]string, len(fixedHolidays)+2)
	for _, h := range fixedHolidays {
		holidays[FormatDateKey(year, h.Month, h.Day)] = h.Name
	}

	em, ed := EasterSunday(year)
	easter := time.Date(year, em, ed, 0, 0, 0, 0, time.UTC)
	goodFriday := easter.AddDate(0, 0, -2)
	familyDay := easter.AddDate(0, 0, 1)
	holidays[FormatDateKey(goodFriday.Year(), goodFriday.Month(), goodFriday.Day())] = "Good Friday"
	holidays[FormatDateKey(familyDay.Year(), familyDay.Month(), familyDay.Day())] = "Family Day"

	return holidays
}

// HolidayName returns the holiday name for the key, or "" if it is not a
// public holiday.
func HolidayName(key string) (string, error) {
	y, _, _, err := ParseDateKey(key)
	if err != nil {
		return "", err
	}
	return HolidaysForYear(y)[key], nil
}

// ClassifyDay resolves a date key to its day type. Weekends win over
// holidays that happen to fall on them, matching how records are created.
func ClassifyDay(key string) (DayInfo, error) {
	weekend, err := IsWeekend(key)
	if err != nil {
		return DayInfo{}, err
	}
	if weekend {
		return DayInfo{Type: DayTypeWeekend}, nil
	}

	name, err := HolidayName(key)
	if err != nil {
		return DayInfo{}, err
	}
	if name != "" {
		return DayInfo{Type: DayTypeHoliday, HolidayName: name}, nil
	}

	return DayInfo{Type: DayTypeWorkday}, nil
}

// FormatDateKey builds a YYYY-MM-DD key from calendar parts.
func FormatDateKey(year int, month time.Month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}
