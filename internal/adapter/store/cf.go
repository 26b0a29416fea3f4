package store

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"go.ngs.io/climate-indices/internal/domain"
)

// NetCDFLock serialises calls into the netCDF C library, which is not
// thread-safe.
var NetCDFLock sync.Mutex

// Candidate coordinate names, tried in order.
var (
	LatNames  = []string{"lat", "latitude", "y", "nav_lat"}
	LonNames  = []string{"lon", "longitude", "x", "nav_lon"}
	TimeNames = []string{"time", "t", "time_counter"}
)

// WellKnownGlobals lists the CF and ACDD global attributes carried from input
// to output.
var WellKnownGlobals = []string{
	"title", "institution", "source", "history", "references", "comment",
	"Conventions", "project_id", "experiment_id", "model_id", "frequency",
	"contact", "product", "realm", "summary",
}

// axisOf classifies a dimension name as 't', 'y', 'x' or 0.
func axisOf(name string) byte {
	lower := strings.ToLower(name)
	for _, n := range TimeNames {
		if lower == n {
			return 't'
		}
	}
	for _, n := range LatNames {
		if lower == n {
			return 'y'
		}
	}
	for _, n := range LonNames {
		if lower == n {
			return 'x'
		}
	}
	return 0
}

// OrderFromDims derives the axis order from a variable's dimension names.
// Only tyx and txy are accepted.
func OrderFromDims(dims []string) (domain.AxisOrder, error) {
	if len(dims) != 3 {
		return "", domain.Preconditionf("axis order", "expected a 3D (time, lat, lon) variable, got dimensions %v", dims)
	}
	order := make([]byte, 3)
	for k, d := range dims {
		order[k] = axisOf(d)
		if order[k] == 0 {
			return "", domain.Preconditionf("axis order", "unrecognised dimension %q", d)
		}
	}
	switch o := domain.AxisOrder(order); o {
	case domain.OrderTYX, domain.OrderTXY:
		return o, nil
	default:
		return "", domain.Preconditionf("axis order", "unsupported axis order %s", o)
	}
}

// AxisPositions returns the index of the time, latitude and longitude
// dimensions for order.
func AxisPositions(order domain.AxisOrder) (t, y, x int) {
	if order == domain.OrderTXY {
		return 0, 2, 1
	}
	return 0, 1, 2
}

// Packing describes CF packing and missing-value attributes.
type Packing struct {
	Scale   float64
	Offset  float64
	Missing []float64
}

// NoPacking leaves values unchanged.
var NoPacking = Packing{Scale: 1}

// Unpack replaces missing values with NaN and applies scale and offset in place.
func (p Packing) Unpack(values []float64) {
	scale := p.Scale
	if scale == 0 {
		scale = 1
	}
	for k, v := range values {
		if p.isMissing(v) {
			values[k] = math.NaN()
			continue
		}
		values[k] = v*scale + p.Offset
	}
}

func (p Packing) isMissing(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	for _, m := range p.Missing {
		if v == m {
			return true
		}
		// Fill values stored as float32 lose precision when widened.
		if m != 0 && math.Abs(v-m) <= math.Abs(m)*1e-6 {
			return true
		}
	}
	return false
}

// Contiguous returns the first index and count of the smallest contiguous
// block of coords that holds every value accepted by keep.
func Contiguous(coords []float64, keep func(float64) bool) (start, count int, err error) {
	start, end := -1, -1
	for i, c := range coords {
		if keep(c) {
			if start < 0 {
				start = i
			}
			end = i
		}
	}
	if start < 0 {
		return 0, 0, domain.Preconditionf("select", "no coordinates inside the requested range")
	}
	return start, end - start + 1, nil
}

// ToFloat64s converts a numeric slice of any width into float64.
func ToFloat64s(v any) ([]float64, error) {
	switch s := v.(type) {
	case []float64:
		return s, nil
	case []float32:
		return widen(s), nil
	case []int64:
		return widen(s), nil
	case []int32:
		return widen(s), nil
	case []int16:
		return widen(s), nil
	case []int8:
		return widen(s), nil
	case []uint64:
		return widen(s), nil
	case []uint32:
		return widen(s), nil
	case []uint16:
		return widen(s), nil
	case []uint8:
		return widen(s), nil
	case float64:
		return []float64{s}, nil
	case float32:
		return []float64{float64(s)}, nil
	case int64:
		return []float64{float64(s)}, nil
	case int32:
		return []float64{float64(s)}, nil
	case int16:
		return []float64{float64(s)}, nil
	case int8:
		return []float64{float64(s)}, nil
	default:
		return nil, fmt.Errorf("unsupported numeric type %T", v)
	}
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func widen[T number](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
