// Package native loads gridded climate fields with a pure-Go NetCDF reader,
// for hosts without the netCDF C library.
package native

import (
	"fmt"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"go.ngs.io/climate-indices/internal/adapter/store"
	"go.ngs.io/climate-indices/internal/domain"
)

// Store reads NetCDF classic (CDF) and HDF5-based NetCDF-4 files.
type Store struct{}

// NewStore creates a new pure-Go NetCDF store.
func NewStore() *Store {
	return &Store{}
}

// LoadField reads a 3D (time, lat, lon) variable and restricts it by opts.
func (s *Store) LoadField(path, variable string, opts store.LoadOptions) (*domain.GridField, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file %s: %w", path, err)
	}
	defer nc.Close()

	vg, err := nc.GetVarGetter(variable)
	if err != nil {
		return nil, domain.Preconditionf("load", "variable %s not found in %s", variable, path)
	}
	dims := vg.Dimensions()
	order, err := store.OrderFromDims(dims)
	if err != nil {
		return nil, err
	}
	tPos, yPos, xPos := store.AxisPositions(order)

	lat, err := coordValues(nc, dims[yPos], store.LatNames)
	if err != nil {
		return nil, fmt.Errorf("failed to read latitude: %w", err)
	}
	lon, err := coordValues(nc, dims[xPos], store.LonNames)
	if err != nil {
		return nil, fmt.Errorf("failed to read longitude: %w", err)
	}
	axis, err := timeAxis(nc, dims[tPos])
	if err != nil {
		return nil, err
	}

	raw, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", variable, err)
	}
	values, err := flatten(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", variable, err)
	}
	attrs := vg.Attributes()
	packingOf(attrs).Unpack(values)

	field := &domain.GridField{
		Variable: variable,
		Units:    attrText(attrs, "units"),
		Values:   values,
		Time:     axis,
		Lat:      lat,
		Lon:      lon,
		Order:    order,
		Global:   globals(nc),
	}
	if err := field.Validate(); err != nil {
		return nil, err
	}
	return opts.Apply(field)
}

// GlobalAttributes returns every text global attribute of a file.
func (s *Store) GlobalAttributes(path string) (map[string]string, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file %s: %w", path, err)
	}
	defer nc.Close()
	return globals(nc), nil
}

func globals(nc api.Group) map[string]string {
	attrs := nc.Attributes()
	out := make(map[string]string)
	for _, key := range attrs.Keys() {
		if text := attrText(attrs, key); text != "" {
			out[key] = text
		}
	}
	return out
}

func coordValues(nc api.Group, dimName string, fallbacks []string) ([]float64, error) {
	names := append([]string{dimName}, fallbacks...)
	for _, name := range names {
		vr, err := nc.GetVariable(name)
		if err != nil {
			continue
		}
		return store.ToFloat64s(vr.Values)
	}
	return nil, fmt.Errorf("coordinate variable not found (tried: %v)", names)
}

func timeAxis(nc api.Group, dimName string) (domain.TimeAxis, error) {
	names := append([]string{dimName}, store.TimeNames...)
	for _, name := range names {
		vr, err := nc.GetVariable(name)
		if err != nil {
			continue
		}
		raw, err := store.ToFloat64s(vr.Values)
		if err != nil {
			return domain.TimeAxis{}, fmt.Errorf("failed to read time: %w", err)
		}
		units := attrText(vr.Attributes, "units")
		calendar := attrText(vr.Attributes, "calendar")
		times, err := domain.DecodeTimes(raw, units, calendar)
		if err != nil {
			return domain.TimeAxis{}, err
		}
		return domain.TimeAxis{Times: times, Units: units, Calendar: calendar}, nil
	}
	return domain.TimeAxis{}, fmt.Errorf("time variable not found (tried: %v)", names)
}

func packingOf(attrs api.AttributeMap) store.Packing {
	p := store.NoPacking
	if scale, ok := attrFloat(attrs, "scale_factor"); ok && scale != 0 {
		p.Scale = scale
	}
	if offset, ok := attrFloat(attrs, "add_offset"); ok {
		p.Offset = offset
	}
	for _, name := range []string{"_FillValue", "missing_value"} {
		if fv, ok := attrFloat(attrs, name); ok {
			p.Missing = append(p.Missing, fv)
		}
	}
	return p
}

func attrText(attrs api.AttributeMap, key string) string {
	if attrs == nil {
		return ""
	}
	v, ok := attrs.Get(key)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimRight(s, "\x00")
	}
	return ""
}

func attrFloat(attrs api.AttributeMap, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	v, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	vals, err := store.ToFloat64s(v)
	if err != nil || len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

// flatten converts the nested slices returned for a 3D variable into a flat
// row-major slice.
func flatten(v any) ([]float64, error) {
	switch s := v.(type) {
	case [][][]float64:
		return flatten3(s), nil
	case [][][]float32:
		return flatten3(s), nil
	case [][][]int64:
		return flatten3(s), nil
	case [][][]int32:
		return flatten3(s), nil
	case [][][]int16:
		return flatten3(s), nil
	case [][][]int8:
		return flatten3(s), nil
	case [][][]uint8:
		return flatten3(s), nil
	default:
		return nil, fmt.Errorf("unsupported variable layout %T", v)
	}
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~float32 | ~float64
}

func flatten3[T number](in [][][]T) []float64 {
	var out []float64
	for _, plane := range in {
		for _, row := range plane {
			for _, v := range row {
				out = append(out, float64(v))
			}
		}
	}
	return out
}
