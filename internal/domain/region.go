package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// coordEpsilon absorbs float32 rounding of coordinates stored in files.
const coordEpsilon = 1e-6

// Region is a closed latitude/longitude box. Longitudes use the 0-360
// convention; West greater than East wraps through the 0/360 meridian.
type Region struct {
	Name  string  `json:"name"`
	South float64 `json:"south"`
	North float64 `json:"north"`
	West  float64 `json:"west"`
	East  float64 `json:"east"`
}

// Validate checks the latitude bounds.
func (r Region) Validate() error {
	if r.South > r.North {
		return Preconditionf("region", "region %s: south %.2f is north of %.2f", r.Name, r.South, r.North)
	}
	if r.South < -90 || r.North > 90 {
		return Preconditionf("region", "region %s: latitude outside [-90, 90]", r.Name)
	}
	return nil
}

// ContainsLat reports whether lat lies within the closed latitude interval.
func (r Region) ContainsLat(lat float64) bool {
	return lat >= r.South-coordEpsilon && lat <= r.North+coordEpsilon
}

// ContainsLon reports whether lon lies within the closed longitude interval.
func (r Region) ContainsLon(lon float64) bool {
	if r.East-r.West >= 360 {
		return true
	}
	w := normalizeLon360(r.West)
	e := r.East
	if e < 0 || e > 360 {
		e = normalizeLon360(e)
	}
	l := normalizeLon360(lon)
	if w <= e {
		return (l >= w-coordEpsilon && l <= e+coordEpsilon) || (e == 360 && l <= coordEpsilon)
	}
	return l >= w-coordEpsilon || l <= e+coordEpsilon
}

// Wraps reports whether the box crosses the 0/360 meridian.
func (r Region) Wraps() bool {
	if r.East-r.West >= 360 {
		return false
	}
	e := r.East
	if e < 0 || e > 360 {
		e = normalizeLon360(e)
	}
	return normalizeLon360(r.West) > e
}

func (r Region) String() string {
	return fmt.Sprintf("%s (lat %.2f to %.2f, lon %.2f to %.2f)", r.Name, r.South, r.North, r.West, r.East)
}

// normalizeLon360 maps a longitude into [0, 360).
func normalizeLon360(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	return lon
}

// Global covers the whole sphere.
var Global = Region{Name: "globe", South: -90, North: 90, West: 0, East: 360}

// namedRegions is read-only after package initialisation.
var namedRegions = map[string]Region{
	"asl":     {South: -75, North: -60, West: 180, East: 310},
	"aus":     {South: -45, North: -10, West: 110, East: 160},
	"ausnz":   {South: -50, North: 0, West: 100, East: 185},
	"emia":    {South: -10, North: 10, West: 165, East: 220},
	"emib":    {South: -15, North: 5, West: 250, East: 290},
	"emic":    {South: -10, North: 20, West: 125, East: 145},
	"globe":   {South: -90, North: 90, West: 0, East: 360},
	"mex":     {South: -75, North: -40, West: 0, East: 360},
	"nh":      {South: 0, North: 90, West: 0, East: 360},
	"nino1":   {South: -10, North: -5, West: 270, East: 280},
	"nino2":   {South: -5, North: 0, West: 270, East: 280},
	"nino12":  {South: -10, North: 0, West: 270, East: 280},
	"nino3":   {South: -5, North: 5, West: 210, East: 270},
	"nino34":  {South: -5, North: 5, West: 190, East: 240},
	"nino4":   {South: -5, North: 5, West: 160, East: 210},
	"sh":      {South: -90, North: 0, West: 0, East: 360},
	"small":   {South: -5, North: 0, West: 10, East: 15},
	"tropics": {South: -30, North: 30, West: 0, East: 360},
	"zw31":    {South: -50, North: -45, West: 45, East: 60},
	"zw32":    {South: -50, North: -45, West: 161, East: 176},
	"zw33":    {South: -50, North: -45, West: 279, East: 294},
}

// LookupRegion returns the named region.
func LookupRegion(name string) (Region, error) {
	r, ok := namedRegions[strings.ToLower(name)]
	if !ok {
		return Region{}, Preconditionf("region", "unknown region %q", name)
	}
	r.Name = strings.ToLower(name)
	return r, nil
}

// Regions returns all named regions sorted by name.
func Regions() []Region {
	out := make([]Region, 0, len(namedRegions))
	for name, r := range namedRegions {
		r.Name = name
		out = append(out, r)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// TimeRange is an inclusive range of calendar days.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// ParseTimeRange parses two YYYY-MM-DD dates.
func ParseTimeRange(start, end string) (TimeRange, error) {
	s, err := time.Parse(time.DateOnly, strings.TrimSpace(start))
	if err != nil {
		return TimeRange{}, Preconditionf("time range", "invalid start date %q", start)
	}
	e, err := time.Parse(time.DateOnly, strings.TrimSpace(end))
	if err != nil {
		return TimeRange{}, Preconditionf("time range", "invalid end date %q", end)
	}
	if e.Before(s) {
		return TimeRange{}, Preconditionf("time range", "end %s is before start %s", end, start)
	}
	return TimeRange{Start: s, End: e}, nil
}

// DefaultBasePeriod is 1981-01-01 to 2010-12-31.
func DefaultBasePeriod() TimeRange {
	return TimeRange{
		Start: time.Date(1981, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2010, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}

// Contains reports whether t falls on a day within the range.
func (r TimeRange) Contains(t time.Time) bool {
	d := dayOf(t)
	return !d.Before(dayOf(r.Start)) && !d.After(dayOf(r.End))
}

func (r TimeRange) String() string {
	return fmt.Sprintf("%s to %s", r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
