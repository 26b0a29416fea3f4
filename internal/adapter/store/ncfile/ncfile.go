// Package ncfile loads gridded climate fields from NetCDF files through the
// netCDF C library.
package ncfile

import (
	"fmt"
	"strings"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/climate-indices/internal/adapter/store"
	"go.ngs.io/climate-indices/internal/domain"
)

// Store reads NetCDF classic and NetCDF-4 files.
type Store struct{}

// NewStore creates a new NetCDF store.
func NewStore() *Store {
	return &Store{}
}

// LoadField reads a 3D (time, lat, lon) variable. For tyx layouts only the
// latitude band of the requested region is read from disk.
//
//nolint:gocyclo // Dimension discovery and hyperslab setup are sequential checks.
func (s *Store) LoadField(path, variable string, opts store.LoadOptions) (*domain.GridField, error) {
	store.NetCDFLock.Lock()
	defer store.NetCDFLock.Unlock()

	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file %s: %w", path, err)
	}
	defer func() { _ = nc.Close() }()

	v, err := nc.Var(variable)
	if err != nil {
		return nil, domain.Preconditionf("load", "variable %s not found in %s", variable, path)
	}

	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	names := make([]string, len(dims))
	lens := make([]uint64, len(dims))
	for k, d := range dims {
		if names[k], err = d.Name(); err != nil {
			return nil, fmt.Errorf("failed to get dimension name: %w", err)
		}
		if lens[k], err = d.Len(); err != nil {
			return nil, fmt.Errorf("failed to get dimension length: %w", err)
		}
	}
	order, err := store.OrderFromDims(names)
	if err != nil {
		return nil, err
	}
	tPos, yPos, xPos := store.AxisPositions(order)

	lat, err := readCoord(nc, names[yPos], store.LatNames)
	if err != nil {
		return nil, fmt.Errorf("failed to read latitude: %w", err)
	}
	lon, err := readCoord(nc, names[xPos], store.LonNames)
	if err != nil {
		return nil, fmt.Errorf("failed to read longitude: %w", err)
	}
	axis, err := readTimeAxis(nc, names[tPos])
	if err != nil {
		return nil, err
	}
	//nolint:gosec // G115: coordinate lengths come from the same file.
	if uint64(len(lat)) != lens[yPos] || uint64(len(lon)) != lens[xPos] || uint64(axis.Len()) != lens[tPos] {
		return nil, fmt.Errorf("coordinate lengths do not match dimensions of %s", variable)
	}

	// Hyperslab covering the whole variable, narrowed to the region's
	// latitude band when latitude is the middle dimension.
	start := []uint64{0, 0, 0}
	count := append([]uint64(nil), lens...)
	latStart, latCount := 0, len(lat)
	if opts.Region != nil && order == domain.OrderTYX {
		latStart, latCount, err = store.Contiguous(lat, opts.Region.ContainsLat)
		if err != nil {
			return nil, domain.Annotate(err, "", opts.Region.Name)
		}
		//nolint:gosec // G115: Safe int to uint64 conversion for NetCDF indices.
		start[yPos], count[yPos] = uint64(latStart), uint64(latCount)
	}

	values, err := readFloat64Slice(v, start, count)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", variable, err)
	}
	packingOf(v).Unpack(values)

	field := &domain.GridField{
		Variable: variable,
		Units:    attrText(v.Attr("units")),
		Values:   values,
		Time:     axis,
		Lat:      lat[latStart : latStart+latCount],
		Lon:      lon,
		Order:    order,
		Global:   readGlobals(nc),
	}
	if err := field.Validate(); err != nil {
		return nil, err
	}
	return opts.Apply(field)
}

// GlobalAttributes returns the well-known global text attributes of a file.
func (s *Store) GlobalAttributes(path string) (map[string]string, error) {
	store.NetCDFLock.Lock()
	defer store.NetCDFLock.Unlock()

	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file %s: %w", path, err)
	}
	defer func() { _ = nc.Close() }()
	return readGlobals(nc), nil
}

func readGlobals(nc netcdf.Dataset) map[string]string {
	out := make(map[string]string)
	for _, name := range store.WellKnownGlobals {
		if text := attrText(nc.Attr(name)); text != "" {
			out[name] = text
		}
	}
	return out
}

// readCoord reads a coordinate variable, trying the dimension name first.
func readCoord(nc netcdf.Dataset, dimName string, fallbacks []string) ([]float64, error) {
	names := append([]string{dimName}, fallbacks...)
	for _, name := range names {
		if v, err := nc.Var(name); err == nil {
			if data, err := readFloat64Var(v); err == nil {
				return data, nil
			}
		}
	}
	return nil, fmt.Errorf("coordinate variable not found (tried: %v)", names)
}

func readTimeAxis(nc netcdf.Dataset, dimName string) (domain.TimeAxis, error) {
	names := append([]string{dimName}, store.TimeNames...)
	for _, name := range names {
		v, err := nc.Var(name)
		if err != nil {
			continue
		}
		raw, err := readFloat64Var(v)
		if err != nil {
			return domain.TimeAxis{}, fmt.Errorf("failed to read time: %w", err)
		}
		units := attrText(v.Attr("units"))
		calendar := attrText(v.Attr("calendar"))
		times, err := domain.DecodeTimes(raw, units, calendar)
		if err != nil {
			return domain.TimeAxis{}, err
		}
		return domain.TimeAxis{Times: times, Units: units, Calendar: calendar}, nil
	}
	return domain.TimeAxis{}, fmt.Errorf("time variable not found (tried: %v)", names)
}

func packingOf(v netcdf.Var) store.Packing {
	p := store.NoPacking
	if scale, ok := attrFloat(v.Attr("scale_factor")); ok && scale != 0 {
		p.Scale = scale
	}
	if offset, ok := attrFloat(v.Attr("add_offset")); ok {
		p.Offset = offset
	}
	for _, name := range []string{"_FillValue", "missing_value"} {
		if fv, ok := attrFloat(v.Attr(name)); ok {
			p.Missing = append(p.Missing, fv)
		}
	}
	return p
}

// attrText returns a text attribute, or "" if absent or not text.
func attrText(a netcdf.Attr) string {
	n, err := a.Len()
	if err != nil || n == 0 {
		return ""
	}
	buf := make([]byte, n)
	if err := a.ReadBytes(buf); err != nil {
		return ""
	}
	return strings.TrimRight(string(buf), "\x00")
}

// attrFloat returns the first value of a numeric attribute.
func attrFloat(a netcdf.Attr) (float64, bool) {
	if n, err := a.Len(); err != nil || n == 0 {
		return 0, false
	}
	// Try float64
	buf64 := make([]float64, 1)
	if err := a.ReadFloat64s(buf64); err == nil {
		return buf64[0], true
	}
	// Try float32
	buf32 := make([]float32, 1)
	if err := a.ReadFloat32s(buf32); err == nil {
		return float64(buf32[0]), true
	}
	// Try int32
	bufi := make([]int32, 1)
	if err := a.ReadInt32s(bufi); err == nil {
		return float64(bufi[0]), true
	}
	// Try int16
	bufs := make([]int16, 1)
	if err := a.ReadInt16s(bufs); err == nil {
		return float64(bufs[0]), true
	}
	return 0, false
}

// readFloat64Var reads a 1D variable as float64.
func readFloat64Var(v netcdf.Var) ([]float64, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("expected 1D variable, got %dD", len(dims))
	}
	length, err := dims[0].Len()
	if err != nil {
		return nil, err
	}
	return readFloat64Slice(v, []uint64{0}, []uint64{length})
}

// readFloat64Slice reads the hyperslab [start, start+count) as float64.
func readFloat64Slice(v netcdf.Var, start, count []uint64) ([]float64, error) {
	varType, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get variable type: %w", err)
	}

	total := uint64(1)
	for _, c := range count {
		total *= c
	}

	switch varType {
	case netcdf.DOUBLE:
		data := make([]float64, total)
		if err := v.ReadFloat64Slice(data, start, count); err != nil {
			return nil, fmt.Errorf("failed to read float64 subset: %w", err)
		}
		return data, nil
	case netcdf.FLOAT:
		data := make([]float32, total)
		if err := v.ReadFloat32Slice(data, start, count); err != nil {
			return nil, fmt.Errorf("failed to read float32 subset: %w", err)
		}
		return store.ToFloat64s(data)
	case netcdf.INT:
		data := make([]int32, total)
		if err := v.ReadInt32Slice(data, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int32 subset: %w", err)
		}
		return store.ToFloat64s(data)
	case netcdf.SHORT:
		data := make([]int16, total)
		if err := v.ReadInt16Slice(data, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int16 subset: %w", err)
		}
		return store.ToFloat64s(data)
	case netcdf.INT64:
		data := make([]int64, total)
		if err := v.ReadInt64Slice(data, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int64 subset: %w", err)
		}
		return store.ToFloat64s(data)
	case netcdf.BYTE, netcdf.UBYTE, netcdf.CHAR, netcdf.USHORT, netcdf.UINT, netcdf.UINT64, netcdf.STRING:
		return nil, fmt.Errorf("unsupported data type: %v (expected DOUBLE, FLOAT, INT, INT64 or SHORT)", varType)
	default:
		return nil, fmt.Errorf("unsupported data type: %v", varType)
	}
}
