package writer

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fhs/go-netcdf/netcdf"
	"github.com/parquet-go/parquet-go"

	"go.ngs.io/climate-indices/internal/domain"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleResult() *domain.IndexResult {
	times := []time.Time{
		time.Date(1981, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(1981, 2, 15, 0, 0, 0, 0, time.UTC),
		time.Date(1981, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	return &domain.IndexResult{
		Index: "ASL",
		Series: []domain.Series{
			{Attrs: domain.SeriesAttrs{ID: "asl_value", LongName: "asl_minimum_pressure", Units: "Pa", Notes: "Ref: test"}, Values: []float64{98000, math.NaN(), 97500.5}},
			{Attrs: domain.SeriesAttrs{ID: "asl_lat", LongName: "asl_latitude", Units: "degrees_north"}, Values: []float64{-70, math.NaN(), -65}},
		},
		Time:   domain.TimeAxis{Times: times},
		Global: map[string]string{"title": "ERA-Interim", "history": "regridded"},
	}
}

func assertSeries(t *testing.T, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(got))
	}
	for k := range want {
		if math.IsNaN(want[k]) != math.IsNaN(got[k]) || (!math.IsNaN(want[k]) && math.Abs(got[k]-want[k]) > 1e-9) {
			t.Errorf("value %d: expected %v, got %v", k, want[k], got[k])
		}
	}
}

// TestForPath tests writer selection by extension.
func TestForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"out/nino34.nc", "*writer.NetCDFWriter"},
		{"out/nino34.parquet", "*writer.ParquetWriter"},
		{"out/nino34.csv", "*writer.CSVWriter"},
		{"out/nino34.CSV.GZ", "*writer.CSVWriter"},
		{"out/nino34.csv.zst", "*writer.CSVWriter"},
	}
	for _, tt := range tests {
		w, err := ForPath(tt.path)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.path, err)
			continue
		}
		if got := typeName(w); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.path, tt.want, got)
		}
	}
	if _, err := ForPath("out/nino34.xlsx"); !errors.Is(err, domain.ErrPrecondition) {
		t.Errorf("expected precondition error, got %v", err)
	}
}

func typeName(w SeriesWriter) string {
	switch w.(type) {
	case *NetCDFWriter:
		return "*writer.NetCDFWriter"
	case *ParquetWriter:
		return "*writer.ParquetWriter"
	case *CSVWriter:
		return "*writer.CSVWriter"
	}
	return "unknown"
}

// TestHistory tests that provenance is prepended to the existing history.
func TestHistory(t *testing.T) {
	got := History("climate-index calc NINO34 in.nc sst out.nc", "regridded", fixedNow)
	want := "Fri Mar  1 12:00:00 2024: climate-index calc NINO34 in.nc sst out.nc\nregridded"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if got := History("cmd", "", fixedNow); strings.Contains(got, "\n") {
		t.Errorf("expected a single line, got %q", got)
	}
}

// TestNetCDFWriter tests the written variables and attributes.
func TestNetCDFWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asl.nc")
	w := &NetCDFWriter{now: func() time.Time { return fixedNow }}
	if err := w.WriteSeries(path, "climate-index calc ASL", sampleResult()); err != nil {
		t.Fatalf("WriteSeries error: %v", err)
	}

	ds, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = ds.Close() }()

	v, err := ds.Var("asl_value")
	if err != nil {
		t.Fatalf("asl_value missing: %v", err)
	}
	values := make([]float64, 3)
	if err := v.ReadFloat64s(values); err != nil {
		t.Fatalf("read: %v", err)
	}
	assertSeries(t, values, []float64{98000, FillValue, 97500.5})
	if got := readText(t, v.Attr("long_name")); got != "asl_minimum_pressure" {
		t.Errorf("long_name: got %q", got)
	}
	if got := readText(t, ds.Attr("title")); got != "ERA-Interim" {
		t.Errorf("title: got %q", got)
	}
	if got := readText(t, ds.Attr("history")); !strings.HasPrefix(got, "Fri Mar  1 12:00:00 2024: climate-index calc ASL\nregridded") {
		t.Errorf("history: got %q", got)
	}

	tv, err := ds.Var("time")
	if err != nil {
		t.Fatalf("time missing: %v", err)
	}
	raw := make([]float64, 3)
	if err := tv.ReadFloat64s(raw); err != nil {
		t.Fatalf("read time: %v", err)
	}
	times, err := domain.DecodeTimes(raw, readText(t, tv.Attr("units")), readText(t, tv.Attr("calendar")))
	if err != nil {
		t.Fatalf("decode time: %v", err)
	}
	if !times[2].Equal(time.Date(1981, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected time %v", times[2])
	}
}

func readText(t *testing.T, a netcdf.Attr) string {
	t.Helper()
	n, err := a.Len()
	if err != nil {
		t.Fatalf("attribute length: %v", err)
	}
	buf := make([]byte, n)
	if err := a.ReadBytes(buf); err != nil {
		t.Fatalf("read attribute: %v", err)
	}
	return string(buf)
}

// TestCSVWriter tests the CSV output in every compression.
func TestCSVWriter(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		compression Compression
	}{
		{"plain", "asl.csv", CompressionNone},
		{"gzip", "asl.csv.gz", CompressionGzip},
		{"zstd", "asl.csv.zst", CompressionZstd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			w := &CSVWriter{compression: tt.compression, now: func() time.Time { return fixedNow }}
			want := sampleResult()
			if err := w.WriteSeries(path, "climate-index calc ASL", want); err != nil {
				t.Fatalf("WriteSeries error: %v", err)
			}
			got, err := ReadCSV(path)
			if err != nil {
				t.Fatalf("ReadCSV error: %v", err)
			}
			if len(got.Series) != 2 || got.Series[0].Attrs.ID != "asl_value" || got.Series[1].Attrs.ID != "asl_lat" {
				t.Fatalf("unexpected series %+v", got.Series)
			}
			for k := range want.Series {
				assertSeries(t, got.Series[k].Values, want.Series[k].Values)
			}
			if !got.Time.Times[1].Equal(want.Time.Times[1]) {
				t.Errorf("unexpected time %v", got.Time.Times[1])
			}
		})
	}
}

// TestCSVWriter_Header tests the metadata comments and header line.
func TestCSVWriter_Header(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asl.csv")
	w := &CSVWriter{now: func() time.Time { return fixedNow }}
	if err := w.WriteSeries(path, "climate-index calc ASL", sampleResult()); err != nil {
		t.Fatalf("WriteSeries error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		"# title: ERA-Interim\n",
		"# history: Fri Mar  1 12:00:00 2024: climate-index calc ASL\n# history: regridded\n",
		"# asl_value: asl_minimum_pressure [Pa] Ref: test\n",
		"date,asl_value,asl_lat\n1981-01-15,98000,-70\n1981-02-15,,\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output:\n%s", want, text)
		}
	}
}

// TestParquetWriter tests long-format rows and key/value metadata.
func TestParquetWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asl.parquet")
	w := &ParquetWriter{now: func() time.Time { return fixedNow }}
	if err := w.WriteSeries(path, "climate-index calc ASL", sampleResult()); err != nil {
		t.Fatalf("WriteSeries error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		t.Fatal(err)
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		t.Fatalf("OpenFile error: %v", err)
	}
	if v, ok := pf.Lookup("index"); !ok || v != "ASL" {
		t.Errorf("index metadata: got %q, %v", v, ok)
	}
	if v, ok := pf.Lookup("asl_value.units"); !ok || v != "Pa" {
		t.Errorf("series metadata: got %q, %v", v, ok)
	}

	reader := parquet.NewGenericReader[SeriesRow](pf)
	defer func() { _ = reader.Close() }()
	rows := make([]SeriesRow, 6)
	n, err := reader.Read(rows)
	if n != 6 {
		t.Fatalf("expected 6 rows, got %d (%v)", n, err)
	}
	if rows[0].Date != "1981-01-15" || rows[0].Series != "asl_value" || rows[0].Value != 98000 {
		t.Errorf("unexpected first row %+v", rows[0])
	}
	if !math.IsNaN(rows[1].Value) {
		t.Errorf("expected NaN for the missing value, got %v", rows[1].Value)
	}
	if rows[3].Series != "asl_lat" || rows[3].Value != -70 {
		t.Errorf("unexpected fourth row %+v", rows[3])
	}
}

// TestAtomicWrite tests that a failed write leaves neither output nor temporary files.
func TestAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	err := atomicWrite(path, func(tmp string) error {
		if err := os.WriteFile(tmp, []byte("partial"), 0o600); err != nil {
			return err
		}
		return errors.New("disk full")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty directory, found %d entries", len(entries))
	}
}

// TestWriteSeries_InvalidResult tests that inconsistent results are rejected before writing.
func TestWriteSeries_InvalidResult(t *testing.T) {
	res := sampleResult()
	res.Series[1].Values = res.Series[1].Values[:2]
	path := filepath.Join(t.TempDir(), "bad.csv")
	if err := NewCSVWriter(CompressionNone).WriteSeries(path, "cmd", res); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected no output file, stat error: %v", err)
	}
}
