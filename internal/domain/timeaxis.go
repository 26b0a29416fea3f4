package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TimeAxis holds decoded time coordinates together with the CF encoding
// they were read from, so writers can re-encode them.
type TimeAxis struct {
	Times    []time.Time
	Units    string
	Calendar string
}

// Len returns the number of time steps.
func (a TimeAxis) Len() int { return len(a.Times) }

// Subset returns the axis restricted to the given indices.
func (a TimeAxis) Subset(idx []int) TimeAxis {
	out := TimeAxis{Units: a.Units, Calendar: a.Calendar, Times: make([]time.Time, len(idx))}
	for k, i := range idx {
		out.Times[k] = a.Times[i]
	}
	return out
}

// DefaultTimeUnits is used when an axis carries no encoding of its own.
const DefaultTimeUnits = "days since 1800-01-01 00:00:00"

var unitSeconds = map[string]float64{
	"days":    86400,
	"day":     86400,
	"d":       86400,
	"hours":   3600,
	"hour":    3600,
	"h":       3600,
	"minutes": 60,
	"minute":  60,
	"seconds": 1,
	"second":  1,
	"s":       1,
}

var refLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.0",
	"2006-01-02 15:04",
	"2006-1-2 15:4:5",
	"2006-01-02",
	"2006-1-2",
}

type calendarKind int

const (
	calGregorian calendarKind = iota
	calNoLeap
)

func parseCalendar(name string) (calendarKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "standard", "gregorian", "proleptic_gregorian":
		return calGregorian, nil
	case "noleap", "365_day":
		return calNoLeap, nil
	}
	return 0, Preconditionf("time axis", "unsupported calendar %q", name)
}

// parseTimeUnits splits "<unit> since <reference>" into seconds per unit and
// the reference time.
func parseTimeUnits(units string) (float64, time.Time, error) {
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return 0, time.Time{}, Preconditionf("time axis", "malformed time units %q", units)
	}
	scale, ok := unitSeconds[strings.ToLower(strings.TrimSpace(parts[0]))]
	if !ok {
		return 0, time.Time{}, Preconditionf("time axis", "unsupported time unit %q", parts[0])
	}
	ref := strings.TrimSpace(parts[1])
	ref = strings.TrimSuffix(ref, " UTC")
	ref = strings.TrimSuffix(ref, " +00:00")
	ref = strings.TrimSuffix(ref, "Z")
	for _, layout := range refLayouts {
		if t, err := time.Parse(layout, ref); err == nil {
			return scale, t, nil
		}
	}
	return 0, time.Time{}, Preconditionf("time axis", "unparseable reference time %q", parts[1])
}

// DecodeTimes converts CF numeric time coordinates into calendar dates.
// Supported calendars are the Gregorian family and noleap/365_day.
func DecodeTimes(values []float64, units, calendar string) ([]time.Time, error) {
	kind, err := parseCalendar(calendar)
	if err != nil {
		return nil, err
	}
	scale, ref, err := parseTimeUnits(units)
	if err != nil {
		return nil, err
	}

	out := make([]time.Time, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, Preconditionf("time axis", "invalid time value at position %d", i)
		}
		offset := math.Round(v * scale)
		switch kind {
		case calNoLeap:
			out[i] = noLeapAdd(ref, offset)
		default:
			out[i] = gregorianAdd(ref, offset)
		}
	}
	return out, nil
}

// EncodeTimes is the inverse of DecodeTimes.
func EncodeTimes(times []time.Time, units, calendar string) ([]float64, error) {
	kind, err := parseCalendar(calendar)
	if err != nil {
		return nil, err
	}
	scale, ref, err := parseTimeUnits(units)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(times))
	for i, t := range times {
		var secs float64
		switch kind {
		case calNoLeap:
			if t.Month() == time.February && t.Day() == 29 {
				return nil, Preconditionf("time axis", "date %s does not exist in calendar %s", t.Format(time.DateOnly), calendar)
			}
			secs = noLeapSeconds(t) - noLeapSeconds(ref)
		default:
			secs = float64(t.Unix()-ref.Unix()) + float64(t.Nanosecond()-ref.Nanosecond())/1e9
		}
		out[i] = secs / scale
	}
	return out, nil
}

// gregorianAdd adds whole seconds to ref in day steps, since offsets of
// several centuries overflow time.Duration.
func gregorianAdd(ref time.Time, offset float64) time.Time {
	days := math.Floor(offset / 86400)
	return ref.AddDate(0, 0, int(days)).Add(time.Duration(offset-days*86400) * time.Second)
}

var noLeapCumDays = [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

func noLeapSeconds(t time.Time) float64 {
	days := t.Year()*365 + noLeapCumDays[t.Month()-1] + t.Day() - 1
	sod := t.Hour()*3600 + t.Minute()*60 + t.Second()
	return float64(days)*86400 + float64(sod)
}

func noLeapAdd(ref time.Time, offset float64) time.Time {
	total := noLeapSeconds(ref) + offset
	days := math.Floor(total / 86400)
	sod := int(total - days*86400)
	d := int(days)
	year := floorDiv(d, 365)
	doy := d - year*365
	month := 0
	for month < 11 && noLeapCumDays[month+1] <= doy {
		month++
	}
	day := doy - noLeapCumDays[month] + 1
	return time.Date(year, time.Month(month+1), day, 0, 0, sod, 0, time.UTC)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// FormatRange renders the first and last time of the axis as dates.
func (a TimeAxis) FormatRange() string {
	if len(a.Times) == 0 {
		return "empty"
	}
	return fmt.Sprintf("%s to %s", a.Times[0].Format(time.DateOnly), a.Times[len(a.Times)-1].Format(time.DateOnly))
}
