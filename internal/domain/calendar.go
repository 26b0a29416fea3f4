package domain

import (
	"strings"
	"time"
)

// CalendarUnits is the climatology grouping resolution.
type CalendarUnits int

const (
	// Monthly groups samples by calendar month (12 positions).
	Monthly CalendarUnits = iota + 1
	// Daily groups samples by leap-year day of year (366 positions).
	Daily
)

func (u CalendarUnits) String() string {
	switch u {
	case Monthly:
		return "monthly"
	case Daily:
		return "daily"
	default:
		return "unknown"
	}
}

// Positions returns the number of climatology positions for the units.
func (u CalendarUnits) Positions() int {
	if u == Daily {
		return 366
	}
	return 12
}

// Position returns the 1-based climatology position of t.
func (u CalendarUnits) Position(t time.Time) int {
	if u == Daily {
		return DayOfYear366(t)
	}
	return int(t.Month())
}

// DayOfYear366 returns the day of year of t within a leap year, so that
// 1 March is always 61 and 29 February always 60.
func DayOfYear366(t time.Time) int {
	doy := t.YearDay()
	if !isLeap(t.Year()) && t.Month() > time.February {
		doy++
	}
	return doy
}

// ParseCalendarUnits parses "monthly" or "daily", case-insensitively.
func ParseCalendarUnits(s string) (CalendarUnits, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly", "mon":
		return Monthly, nil
	case "daily", "day":
		return Daily, nil
	}
	return 0, Preconditionf("calendar units", "unknown calendar units %q", s)
}

// DetectCalendarUnits infers the timescale from the spacing of the first two
// time steps: at most one day is daily, 28 to 31 days is monthly.
func DetectCalendarUnits(times []time.Time) (CalendarUnits, error) {
	if len(times) < 2 {
		return 0, Preconditionf("timescale", "need at least two time steps, got %d", len(times))
	}
	diff := times[1].Sub(times[0])
	day := 24 * time.Hour
	switch {
	case diff > 0 && diff <= day:
		return Daily, nil
	case diff >= 28*day && diff <= 31*day:
		return Monthly, nil
	}
	return 0, Preconditionf("timescale", "unrecognised time step spacing %s", diff)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// unitIndex maps t onto a counter that advances by one per calendar unit.
func unitIndex(t time.Time, units CalendarUnits) int {
	if units == Daily {
		y, m, d := t.Date()
		return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
	}
	return t.Year()*12 + int(t.Month()) - 1
}
