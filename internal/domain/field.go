// Package domain provides the data model and the numerical core of the
// climate index engine: climatologies, region selection and spatial
// reductions over gridded fields.
package domain

import (
	"fmt"
	"math"
)

// AxisOrder names the dimension order of a field using t (time),
// y (latitude) and x (longitude).
type AxisOrder string

const (
	OrderTYX AxisOrder = "tyx"
	OrderTXY AxisOrder = "txy"
	// OrderAny accepts either layout.
	OrderAny AxisOrder = "any"
)

// GridField is a gridded variable over (time, lat, lon). Values are stored
// flat in the layout named by Order; NaN marks a missing value.
type GridField struct {
	Variable string
	Units    string
	Values   []float64
	Time     TimeAxis
	Lat      []float64
	Lon      []float64
	Order    AxisOrder
	Global   map[string]string
}

// NewGridField allocates a zero-valued field over the given axes.
func NewGridField(variable string, time TimeAxis, lat, lon []float64, order AxisOrder) *GridField {
	return &GridField{
		Variable: variable,
		Time:     time,
		Lat:      lat,
		Lon:      lon,
		Order:    order,
		Values:   make([]float64, len(time.Times)*len(lat)*len(lon)),
	}
}

// NTime returns the length of the time axis.
func (f *GridField) NTime() int { return len(f.Time.Times) }

// NLat returns the length of the latitude axis.
func (f *GridField) NLat() int { return len(f.Lat) }

// NLon returns the length of the longitude axis.
func (f *GridField) NLon() int { return len(f.Lon) }

// Validate checks that the values match the axis lengths and the order is known.
func (f *GridField) Validate() error {
	if f.Order != OrderTYX && f.Order != OrderTXY {
		return Preconditionf("field", "unknown axis order %q", f.Order)
	}
	want := f.NTime() * f.NLat() * f.NLon()
	if len(f.Values) != want {
		return Preconditionf("field", "variable %s has %d values, axes imply %d", f.Variable, len(f.Values), want)
	}
	return nil
}

// RequireOrder fails with a PreconditionError unless the field is stored in
// order. OrderAny accepts both layouts.
func (f *GridField) RequireOrder(order AxisOrder) error {
	if order != OrderAny && f.Order != order {
		return Preconditionf("axis order", "input axis order %s is not %s", f.Order, order)
	}
	return nil
}

func (f *GridField) offset(t, i, j int) int {
	nlat, nlon := len(f.Lat), len(f.Lon)
	if f.Order == OrderTXY {
		return (t*nlon+j)*nlat + i
	}
	return (t*nlat+i)*nlon + j
}

// At returns the value at time step t, latitude index i and longitude index j.
func (f *GridField) At(t, i, j int) float64 {
	return f.Values[f.offset(t, i, j)]
}

// Set stores v at time step t, latitude index i and longitude index j.
func (f *GridField) Set(t, i, j int, v float64) {
	f.Values[f.offset(t, i, j)] = v
}

// Step returns a copy of time step t in latitude-major order.
func (f *GridField) Step(t int) []float64 {
	nlat, nlon := len(f.Lat), len(f.Lon)
	out := make([]float64, nlat*nlon)
	for i := 0; i < nlat; i++ {
		for j := 0; j < nlon; j++ {
			out[i*nlon+j] = f.At(t, i, j)
		}
	}
	return out
}

// CellSeries returns the time series at grid cell (i, j).
func (f *GridField) CellSeries(i, j int) []float64 {
	out := make([]float64, f.NTime())
	for t := range out {
		out[t] = f.At(t, i, j)
	}
	return out
}

// SetCellSeries overwrites the time series at grid cell (i, j).
func (f *GridField) SetCellSeries(i, j int, series []float64) {
	for t, v := range series {
		f.Set(t, i, j, v)
	}
}

// EmptyLike returns a field with the same axes and metadata and all values NaN.
func (f *GridField) EmptyLike() *GridField {
	out := &GridField{
		Variable: f.Variable,
		Units:    f.Units,
		Time:     f.Time,
		Lat:      append([]float64(nil), f.Lat...),
		Lon:      append([]float64(nil), f.Lon...),
		Order:    f.Order,
		Global:   copyAttrs(f.Global),
		Values:   make([]float64, len(f.Values)),
	}
	for k := range out.Values {
		out.Values[k] = math.NaN()
	}
	return out
}

// Bounds describes the extent of the latitude and longitude axes.
func (f *GridField) Bounds() string {
	return fmt.Sprintf("lat: %s to %s, lon: %s to %s",
		formatCoord(minOf(f.Lat)), formatCoord(maxOf(f.Lat)),
		formatCoord(minOf(f.Lon)), formatCoord(maxOf(f.Lon)))
}

func copyAttrs(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func minOf(xs []float64) float64 {
	m := math.Inf(1)
	for _, x := range xs {
		m = math.Min(m, x)
	}
	return m
}

func maxOf(xs []float64) float64 {
	m := math.Inf(-1)
	for _, x := range xs {
		m = math.Max(m, x)
	}
	return m
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
