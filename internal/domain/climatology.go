package domain

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ClimatologyStats holds per-position means and population standard
// deviations. Mean[p-1] and Std[p-1] belong to position p.
type ClimatologyStats struct {
	Units CalendarUnits
	Mean  []float64
	Std   []float64
}

// At returns the mean and standard deviation of position pos.
func (s ClimatologyStats) At(pos int) (mean, std float64) {
	return s.Mean[pos-1], s.Std[pos-1]
}

// Climatology computes per-position statistics of a base-period series.
// The series must start in January (monthly) or on 1 January (daily).
// Missing samples are skipped; a position with no samples is NaN.
func Climatology(base []float64, times []time.Time, units CalendarUnits) (ClimatologyStats, error) {
	if len(base) != len(times) {
		return ClimatologyStats{}, Preconditionf("climatology", "%d values for %d time steps", len(base), len(times))
	}
	if len(base) == 0 {
		return ClimatologyStats{}, Preconditionf("climatology", "empty base period series")
	}
	if units.Position(times[0]) != 1 {
		if units == Daily {
			return ClimatologyStats{}, Preconditionf("climatology", "base period starts on %s, not on 1 January", times[0].Format(time.DateOnly))
		}
		return ClimatologyStats{}, Preconditionf("climatology", "base period starts in %s, not in January", times[0].Month())
	}

	n := units.Positions()
	groups := make([][]float64, n)
	for k, v := range base {
		if math.IsNaN(v) {
			continue
		}
		p := units.Position(times[k]) - 1
		groups[p] = append(groups[p], v)
	}

	stats := ClimatologyStats{Units: units, Mean: make([]float64, n), Std: make([]float64, n)}
	for p, g := range groups {
		if len(g) == 0 {
			stats.Mean[p], stats.Std[p] = math.NaN(), math.NaN()
			continue
		}
		stats.Mean[p], stats.Std[p] = stat.PopMeanStdDev(g, nil)
	}
	return stats, nil
}

// Anomaly subtracts the climatological mean of each element's position.
func Anomaly(full []float64, times []time.Time, stats ClimatologyStats) ([]float64, error) {
	if len(full) != len(times) {
		return nil, Preconditionf("anomaly", "%d values for %d time steps", len(full), len(times))
	}
	out := make([]float64, len(full))
	for k, v := range full {
		mean, _ := stats.At(stats.Units.Position(times[k]))
		out[k] = v - mean
	}
	return out, nil
}

// Normalize converts each element to a standardized anomaly against its
// position. A zero standard deviation is a DataQualityError; a NaN one
// yields NaN.
func Normalize(full []float64, times []time.Time, stats ClimatologyStats) ([]float64, error) {
	if len(full) != len(times) {
		return nil, Preconditionf("normalize", "%d values for %d time steps", len(full), len(times))
	}
	out := make([]float64, len(full))
	for k, v := range full {
		pos := stats.Units.Position(times[k])
		mean, std := stats.At(pos)
		if std == 0 {
			return nil, DataQualityf("normalize", "zero standard deviation at %s position %d", stats.Units, pos)
		}
		out[k] = (v - mean) / std
	}
	return out, nil
}

// Denormalize inverts Normalize.
func Denormalize(z []float64, times []time.Time, stats ClimatologyStats) ([]float64, error) {
	if len(z) != len(times) {
		return nil, Preconditionf("denormalize", "%d values for %d time steps", len(z), len(times))
	}
	out := make([]float64, len(z))
	for k, v := range z {
		mean, std := stats.At(stats.Units.Position(times[k]))
		out[k] = v*std + mean
	}
	return out, nil
}

// Standardize rescales a whole series to zero mean and unit population
// standard deviation, ignoring missing values.
func Standardize(series []float64) ([]float64, error) {
	valid := make([]float64, 0, len(series))
	for _, v := range series {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return nil, DataQualityf("standardize", "series has no valid values")
	}
	mean, std := stat.PopMeanStdDev(valid, nil)
	if std == 0 {
		return nil, DataQualityf("standardize", "series has zero standard deviation")
	}
	out := make([]float64, len(series))
	for k, v := range series {
		out[k] = (v - mean) / std
	}
	return out, nil
}

// BaseSubset returns the elements of series whose times fall in base.
func BaseSubset(series []float64, times []time.Time, base TimeRange) ([]float64, []time.Time) {
	var vals []float64
	var ts []time.Time
	for k, t := range times {
		if base.Contains(t) {
			vals = append(vals, series[k])
			ts = append(ts, t)
		}
	}
	return vals, ts
}

// AnomalyAgainst computes the anomaly of series relative to the climatology
// of its own base-period subset.
func AnomalyAgainst(series []float64, times []time.Time, base TimeRange, units CalendarUnits) ([]float64, error) {
	vals, ts := BaseSubset(series, times, base)
	stats, err := Climatology(vals, ts, units)
	if err != nil {
		return nil, err
	}
	return Anomaly(series, times, stats)
}

// NormalizeAgainst standardizes series relative to the climatology of its
// own base-period subset.
func NormalizeAgainst(series []float64, times []time.Time, base TimeRange, units CalendarUnits) ([]float64, error) {
	vals, ts := BaseSubset(series, times, base)
	stats, err := Climatology(vals, ts, units)
	if err != nil {
		return nil, err
	}
	return Normalize(series, times, stats)
}
