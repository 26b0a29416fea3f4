package domain

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AreaMean returns the unweighted mean over all non-missing cells of each
// time step. A step with no valid cells is NaN.
func AreaMean(f *GridField) []float64 {
	out := make([]float64, f.NTime())
	vals := make([]float64, 0, f.NLat()*f.NLon())
	for t := range out {
		vals = vals[:0]
		for i := range f.Lat {
			for j := range f.Lon {
				if v := f.At(t, i, j); !math.IsNaN(v) {
					vals = append(vals, v)
				}
			}
		}
		out[t] = meanOrNaN(vals, nil)
	}
	return out
}

// WeightedAreaMean returns the cosine-latitude weighted mean over all
// non-missing cells of each time step.
func WeightedAreaMean(f *GridField) []float64 {
	weights := make([]float64, f.NLat())
	for i, lat := range f.Lat {
		weights[i] = math.Max(0, math.Cos(lat*math.Pi/180))
	}

	out := make([]float64, f.NTime())
	vals := make([]float64, 0, f.NLat()*f.NLon())
	ws := make([]float64, 0, f.NLat()*f.NLon())
	for t := range out {
		vals, ws = vals[:0], ws[:0]
		for i := range f.Lat {
			for j := range f.Lon {
				if v := f.At(t, i, j); !math.IsNaN(v) {
					vals = append(vals, v)
					ws = append(ws, weights[i])
				}
			}
		}
		if floats.Sum(ws) == 0 {
			out[t] = math.NaN()
			continue
		}
		out[t] = meanOrNaN(vals, ws)
	}
	return out
}

// ZonalMean returns the mean over longitude at latitude index lat for each
// time step.
func ZonalMean(f *GridField, lat int) []float64 {
	out := make([]float64, f.NTime())
	vals := make([]float64, 0, f.NLon())
	for t := range out {
		vals = vals[:0]
		for j := range f.Lon {
			if v := f.At(t, lat, j); !math.IsNaN(v) {
				vals = append(vals, v)
			}
		}
		out[t] = meanOrNaN(vals, nil)
	}
	return out
}

// SpatialMinimum returns, for each time step, the minimum value and the
// latitude and longitude where it occurs. Ties resolve to the first cell in
// latitude-major order; an all-missing step yields NaN for all three.
func SpatialMinimum(f *GridField) (values, lats, lons []float64) {
	n := f.NTime()
	values, lats, lons = make([]float64, n), make([]float64, n), make([]float64, n)
	nlon := f.NLon()
	for t := 0; t < n; t++ {
		step := f.Step(t)
		if allNaN(step) {
			values[t], lats[t], lons[t] = math.NaN(), math.NaN(), math.NaN()
			continue
		}
		k := floats.MinIdx(step)
		values[t] = step[k]
		lats[t] = f.Lat[k/nlon]
		lons[t] = f.Lon[k%nlon]
	}
	return values, lats, lons
}

func meanOrNaN(vals, weights []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, weights)
}

func allNaN(xs []float64) bool {
	for _, x := range xs {
		if !math.IsNaN(x) {
			return false
		}
	}
	return true
}
