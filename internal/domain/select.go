package domain

import (
	"math"
	"time"
)

// Select restricts a field to the grid points inside region and, when tr is
// non-nil, to the time steps inside tr. Axis order and metadata carry over.
func Select(f *GridField, region Region, tr *TimeRange) (*GridField, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}

	var ti, li, lj []int
	for t, ts := range f.Time.Times {
		if tr == nil || tr.Contains(ts) {
			ti = append(ti, t)
		}
	}
	for i, lat := range f.Lat {
		if region.ContainsLat(lat) {
			li = append(li, i)
		}
	}
	for j, lon := range f.Lon {
		if region.ContainsLon(lon) {
			lj = append(lj, j)
		}
	}
	if len(li) == 0 || len(lj) == 0 {
		return nil, Preconditionf("select", "region %s contains no grid points", region)
	}
	if len(ti) == 0 {
		return nil, Preconditionf("select", "time range %s contains no time steps", tr)
	}

	out := &GridField{
		Variable: f.Variable,
		Units:    f.Units,
		Time:     f.Time.Subset(ti),
		Lat:      make([]float64, len(li)),
		Lon:      make([]float64, len(lj)),
		Order:    f.Order,
		Global:   copyAttrs(f.Global),
		Values:   make([]float64, len(ti)*len(li)*len(lj)),
	}
	for b, i := range li {
		out.Lat[b] = f.Lat[i]
	}
	for c, j := range lj {
		out.Lon[c] = f.Lon[j]
	}
	for a, t := range ti {
		for b, i := range li {
			for c, j := range lj {
				out.Set(a, b, c, f.At(t, i, j))
			}
		}
	}
	return out, nil
}

// SelectTime restricts a field to the time steps inside tr.
func SelectTime(f *GridField, tr TimeRange) (*GridField, error) {
	return Select(f, Global, &tr)
}

// NearestLatitude returns the index of the latitude closest to target.
// Equidistant candidates resolve to the poleward one.
func NearestLatitude(lats []float64, target float64) (int, error) {
	if len(lats) == 0 {
		return 0, Preconditionf("nearest latitude", "empty latitude axis")
	}
	best, bestDist := 0, math.Inf(1)
	for i, lat := range lats {
		d := math.Abs(lat - target)
		switch {
		case d < bestDist-coordEpsilon:
			best, bestDist = i, d
		case math.Abs(d-bestDist) <= coordEpsilon && math.Abs(lat) > math.Abs(lats[best]):
			best = i
		}
	}
	return best, nil
}

// CheckBase verifies that the base period lies within the time axis at the
// resolution of units.
func CheckBase(times []time.Time, base TimeRange, units CalendarUnits) error {
	if len(times) == 0 {
		return Preconditionf("base period", "empty time axis")
	}
	first, last := times[0], times[len(times)-1]
	if unitIndex(base.Start, units) < unitIndex(first, units) || unitIndex(base.End, units) > unitIndex(last, units) {
		return Preconditionf("base period", "base period %s is outside the data time range %s to %s",
			base, first.Format(time.DateOnly), last.Format(time.DateOnly))
	}
	return nil
}
