package writer

import (
	"fmt"
	"math"
	"time"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/climate-indices/internal/adapter/store"
	"go.ngs.io/climate-indices/internal/domain"
)

// FillValue marks missing values in NetCDF output.
const FillValue = 1e20

// NetCDFWriter writes index series as 1D variables over a time dimension.
type NetCDFWriter struct {
	now func() time.Time
}

// NewNetCDFWriter creates a NetCDF series writer.
func NewNetCDFWriter() *NetCDFWriter {
	return &NetCDFWriter{now: time.Now}
}

// WriteSeries writes result to path, one variable per series.
func (w *NetCDFWriter) WriteSeries(path, provenance string, result *domain.IndexResult) error {
	if err := result.Validate(); err != nil {
		return err
	}
	units, calendar := timeEncoding(result.Time)
	encoded, err := domain.EncodeTimes(result.Time.Times, units, calendar)
	if err != nil {
		return err
	}
	globals := Metadata(provenance, result, w.now())

	return atomicWrite(path, func(tmp string) error {
		store.NetCDFLock.Lock()
		defer store.NetCDFLock.Unlock()

		ds, err := netcdf.CreateFile(tmp, netcdf.CLOBBER|netcdf.NETCDF4)
		if err != nil {
			return fmt.Errorf("failed to create NetCDF file: %w", err)
		}
		closed := false
		defer func() {
			if !closed {
				_ = ds.Close()
			}
		}()

		timeDim, err := ds.AddDim("time", uint64(len(encoded)))
		if err != nil {
			return fmt.Errorf("failed to add time dimension: %w", err)
		}
		timeVar, err := ds.AddVar("time", netcdf.DOUBLE, []netcdf.Dim{timeDim})
		if err != nil {
			return fmt.Errorf("failed to add time variable: %w", err)
		}
		if err := writeTextAttrs(timeVar.Attr, map[string]string{
			"units":         units,
			"calendar":      calendar,
			"standard_name": "time",
			"axis":          "T",
		}); err != nil {
			return err
		}

		vars := make([]netcdf.Var, len(result.Series))
		for k, s := range result.Series {
			v, err := ds.AddVar(s.Attrs.ID, netcdf.DOUBLE, []netcdf.Dim{timeDim})
			if err != nil {
				return fmt.Errorf("failed to add variable %s: %w", s.Attrs.ID, err)
			}
			if err := writeTextAttrs(v.Attr, seriesAttrs(s.Attrs)); err != nil {
				return err
			}
			if err := v.Attr("_FillValue").WriteFloat64s([]float64{FillValue}); err != nil {
				return fmt.Errorf("failed to write _FillValue: %w", err)
			}
			if err := v.Attr("missing_value").WriteFloat64s([]float64{FillValue}); err != nil {
				return fmt.Errorf("failed to write missing_value: %w", err)
			}
			vars[k] = v
		}
		if err := writeTextAttrs(ds.Attr, globals); err != nil {
			return err
		}

		if err := ds.EndDef(); err != nil {
			return fmt.Errorf("failed to end define mode: %w", err)
		}
		if err := timeVar.WriteFloat64s(encoded); err != nil {
			return fmt.Errorf("failed to write time: %w", err)
		}
		for k, s := range result.Series {
			if err := vars[k].WriteFloat64s(withFill(s.Values)); err != nil {
				return fmt.Errorf("failed to write %s: %w", s.Attrs.ID, err)
			}
		}
		closed = true
		return ds.Close()
	})
}

// WriteField writes a gridded field with CF coordinate variables in the
// field's axis order.
func WriteField(path string, f *domain.GridField, globals map[string]string) error {
	if err := f.Validate(); err != nil {
		return err
	}
	units, calendar := timeEncoding(f.Time)
	encoded, err := domain.EncodeTimes(f.Time.Times, units, calendar)
	if err != nil {
		return err
	}

	return atomicWrite(path, func(tmp string) error {
		store.NetCDFLock.Lock()
		defer store.NetCDFLock.Unlock()

		ds, err := netcdf.CreateFile(tmp, netcdf.CLOBBER)
		if err != nil {
			return fmt.Errorf("failed to create NetCDF file: %w", err)
		}
		closed := false
		defer func() {
			if !closed {
				_ = ds.Close()
			}
		}()

		timeDim, err := ds.AddDim("time", uint64(f.NTime()))
		if err != nil {
			return fmt.Errorf("failed to add time dimension: %w", err)
		}
		latDim, err := ds.AddDim("lat", uint64(f.NLat()))
		if err != nil {
			return fmt.Errorf("failed to add lat dimension: %w", err)
		}
		lonDim, err := ds.AddDim("lon", uint64(f.NLon()))
		if err != nil {
			return fmt.Errorf("failed to add lon dimension: %w", err)
		}

		timeVar, err := ds.AddVar("time", netcdf.DOUBLE, []netcdf.Dim{timeDim})
		if err != nil {
			return fmt.Errorf("failed to add time variable: %w", err)
		}
		latVar, err := ds.AddVar("lat", netcdf.DOUBLE, []netcdf.Dim{latDim})
		if err != nil {
			return fmt.Errorf("failed to add lat variable: %w", err)
		}
		lonVar, err := ds.AddVar("lon", netcdf.DOUBLE, []netcdf.Dim{lonDim})
		if err != nil {
			return fmt.Errorf("failed to add lon variable: %w", err)
		}
		dims := []netcdf.Dim{timeDim, latDim, lonDim}
		if f.Order == domain.OrderTXY {
			dims = []netcdf.Dim{timeDim, lonDim, latDim}
		}
		dataVar, err := ds.AddVar(f.Variable, netcdf.FLOAT, dims)
		if err != nil {
			return fmt.Errorf("failed to add variable %s: %w", f.Variable, err)
		}

		if err := writeTextAttrs(timeVar.Attr, map[string]string{"units": units, "calendar": calendar, "axis": "T"}); err != nil {
			return err
		}
		if err := writeTextAttrs(latVar.Attr, map[string]string{"units": "degrees_north", "axis": "Y"}); err != nil {
			return err
		}
		if err := writeTextAttrs(lonVar.Attr, map[string]string{"units": "degrees_east", "axis": "X"}); err != nil {
			return err
		}
		if f.Units != "" {
			if err := dataVar.Attr("units").WriteBytes([]byte(f.Units)); err != nil {
				return fmt.Errorf("failed to write units: %w", err)
			}
		}
		if err := dataVar.Attr("_FillValue").WriteFloat32s([]float32{float32(FillValue)}); err != nil {
			return fmt.Errorf("failed to write _FillValue: %w", err)
		}
		if err := writeTextAttrs(ds.Attr, globals); err != nil {
			return err
		}

		if err := ds.EndDef(); err != nil {
			return fmt.Errorf("failed to end define mode: %w", err)
		}
		if err := timeVar.WriteFloat64s(encoded); err != nil {
			return fmt.Errorf("failed to write time: %w", err)
		}
		if err := latVar.WriteFloat64s(f.Lat); err != nil {
			return fmt.Errorf("failed to write lat: %w", err)
		}
		if err := lonVar.WriteFloat64s(f.Lon); err != nil {
			return fmt.Errorf("failed to write lon: %w", err)
		}
		data := make([]float32, len(f.Values))
		for k, v := range f.Values {
			if math.IsNaN(v) {
				data[k] = float32(FillValue)
				continue
			}
			data[k] = float32(v)
		}
		if err := dataVar.WriteFloat32s(data); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.Variable, err)
		}
		closed = true
		return ds.Close()
	})
}

// timeEncoding returns the axis' own CF encoding, or a default one.
func timeEncoding(axis domain.TimeAxis) (units, calendar string) {
	units, calendar = axis.Units, axis.Calendar
	if units == "" {
		units = domain.DefaultTimeUnits
	}
	if calendar == "" {
		calendar = "standard"
	}
	return units, calendar
}

func seriesAttrs(a domain.SeriesAttrs) map[string]string {
	return map[string]string{
		"long_name":     a.LongName,
		"standard_name": a.StandardName,
		"units":         a.Units,
		"notes":         a.Notes,
	}
}

// writeTextAttrs writes non-empty text attributes in key order.
func writeTextAttrs(attr func(string) netcdf.Attr, attrs map[string]string) error {
	for _, k := range sortedKeys(attrs) {
		if attrs[k] == "" {
			continue
		}
		if err := attr(k).WriteBytes([]byte(attrs[k])); err != nil {
			return fmt.Errorf("failed to write attribute %s: %w", k, err)
		}
	}
	return nil
}

func withFill(values []float64) []float64 {
	out := make([]float64, len(values))
	for k, v := range values {
		if math.IsNaN(v) {
			out[k] = FillValue
			continue
		}
		out[k] = v
	}
	return out
}
