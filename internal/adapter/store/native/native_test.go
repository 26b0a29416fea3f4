package native

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"go.ngs.io/climate-indices/internal/adapter/store"
	"go.ngs.io/climate-indices/internal/adapter/writer"
	"go.ngs.io/climate-indices/internal/domain"
)

func fixture(t *testing.T) (string, *domain.GridField) {
	t.Helper()
	times := make([]time.Time, 12)
	for k := range times {
		times[k] = time.Date(1990, time.Month(k+1), 1, 0, 0, 0, 0, time.UTC)
	}
	axis := domain.TimeAxis{Times: times, Units: "days since 1990-01-01", Calendar: "gregorian"}
	f := domain.NewGridField("zg", axis, []float64{-60, -50, -40}, []float64{0, 90, 180, 270}, domain.OrderTYX)
	for step := range times {
		for i, lat := range f.Lat {
			for j, lon := range f.Lon {
				f.Set(step, i, j, 5000+float64(step)+lat+lon/10)
			}
		}
	}
	f.Set(0, 0, 0, math.NaN())
	path := filepath.Join(t.TempDir(), "zg.nc")
	if err := writer.WriteField(path, f, map[string]string{"title": "native fixture", "model_id": "test-1"}); err != nil {
		t.Fatalf("WriteField error: %v", err)
	}
	return path, f
}

// TestLoadField tests reading a classic NetCDF file without the C library.
func TestLoadField(t *testing.T) {
	path, want := fixture(t)
	region := domain.Region{Name: "band", South: -55, North: -35, West: 0, East: 360}
	got, err := NewStore().LoadField(path, "zg", store.LoadOptions{Region: &region})
	if err != nil {
		t.Fatalf("LoadField error: %v", err)
	}
	if got.Order != domain.OrderTYX || got.NLat() != 2 || got.NLon() != 4 || got.NTime() != 12 {
		t.Fatalf("unexpected shape %s %dx%dx%d", got.Order, got.NTime(), got.NLat(), got.NLon())
	}
	for step := 0; step < 12; step++ {
		if !got.Time.Times[step].Equal(want.Time.Times[step]) {
			t.Fatalf("time %d: expected %v, got %v", step, want.Time.Times[step], got.Time.Times[step])
		}
		for i := 0; i < 2; i++ {
			for j := 0; j < 4; j++ {
				w, g := want.At(step, i+1, j), got.At(step, i, j)
				if math.Abs(w-g) > 1e-3 {
					t.Fatalf("value (%d,%d,%d): expected %v, got %v", step, i, j, w, g)
				}
			}
		}
	}

	all, err := NewStore().LoadField(path, "zg", store.LoadOptions{})
	if err != nil {
		t.Fatalf("LoadField error: %v", err)
	}
	if !math.IsNaN(all.At(0, 0, 0)) {
		t.Errorf("expected fill value to load as NaN, got %v", all.At(0, 0, 0))
	}
}

// TestGlobalAttributes tests that every text global attribute is returned.
func TestGlobalAttributes(t *testing.T) {
	path, _ := fixture(t)
	attrs, err := NewStore().GlobalAttributes(path)
	if err != nil {
		t.Fatalf("GlobalAttributes error: %v", err)
	}
	if attrs["title"] != "native fixture" || attrs["model_id"] != "test-1" {
		t.Errorf("unexpected attributes %v", attrs)
	}
}

// TestLoadField_MissingVariable tests the error for an unknown variable.
func TestLoadField_MissingVariable(t *testing.T) {
	path, _ := fixture(t)
	if _, err := NewStore().LoadField(path, "psl", store.LoadOptions{}); !errors.Is(err, domain.ErrPrecondition) {
		t.Errorf("expected precondition error, got %v", err)
	}
}
