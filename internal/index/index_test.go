package index

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/stat"

	"go.ngs.io/climate-indices/internal/domain"
)

// memorySource serves regions of an in-memory field.
type memorySource struct {
	field *domain.GridField
}

func (s memorySource) Load(region domain.Region, tr *domain.TimeRange) (*domain.GridField, error) {
	return domain.Select(s.field, region, tr)
}

func (s memorySource) Path() string     { return "memory.nc" }
func (s memorySource) Variable() string { return s.field.Variable }

func monthlyTimes(startYear, n int) []time.Time {
	out := make([]time.Time, n)
	for k := range out {
		out[k] = time.Date(startYear, time.Month(k%12+1), 15, 0, 0, 0, 0, time.UTC).AddDate(k/12, 0, 0)
	}
	return out
}

// lonGrid returns longitudes from start in steps of step, excluding stop.
func lonGrid(start, stop, step float64) []float64 {
	var out []float64
	for lon := start; lon < stop; lon += step {
		out = append(out, lon)
	}
	return out
}

// newField builds a monthly tyx field over 1981-1983 whose values are given by fn.
func newField(variable string, lat, lon []float64, fn func(t int, lat, lon float64) float64) *domain.GridField {
	return fieldAt(variable, monthlyTimes(1981, 36), lat, lon, fn)
}

// dailyTimes returns n consecutive days starting on 1 January of startYear.
func dailyTimes(startYear, n int) []time.Time {
	out := make([]time.Time, n)
	for k := range out {
		out[k] = time.Date(startYear, time.January, 1+k, 0, 0, 0, 0, time.UTC)
	}
	return out
}

// fieldAt builds a tyx field on the given time axis whose values are given by fn.
func fieldAt(variable string, times []time.Time, lat, lon []float64, fn func(t int, lat, lon float64) float64) *domain.GridField {
	f := domain.NewGridField(variable, domain.TimeAxis{Times: times, Units: domain.DefaultTimeUnits}, lat, lon, domain.OrderTYX)
	for t := range times {
		for i := range lat {
			for j := range lon {
				f.Set(t, i, j, fn(t, lat[i], lon[j]))
			}
		}
	}
	return f
}

func basePeriod(t *testing.T) domain.TimeRange {
	t.Helper()
	base, err := domain.ParseTimeRange("1981-01-01", "1982-12-31")
	if err != nil {
		t.Fatalf("ParseTimeRange error: %v", err)
	}
	return base
}

func inRegion(name string, lat, lon float64) bool {
	r, err := domain.LookupRegion(name)
	if err != nil {
		panic(err)
	}
	return r.ContainsLat(lat) && r.ContainsLon(lon)
}

func seriesByID(t *testing.T, res *domain.IndexResult, id string) []float64 {
	t.Helper()
	for _, s := range res.Series {
		if s.Attrs.ID == id {
			return s.Values
		}
	}
	t.Fatalf("series %q not found", id)
	return nil
}

// TestCatalog_Names tests that every catalog index can be looked up case-insensitively.
func TestCatalog_Names(t *testing.T) {
	want := []string{"ASL", "IEMI", "MEX", "NINO12", "NINO3", "NINO34", "NINO4", "NINOCT", "NINOWP", "SAM", "ZW3"}
	got := Names()
	if len(got) != len(want) {
		t.Fatalf("expected %d names, got %v", len(want), got)
	}
	for k := range want {
		if got[k] != want[k] {
			t.Errorf("name %d: expected %s, got %s", k, want[k], got[k])
		}
		e, err := Lookup(" " + want[k] + " ")
		if err != nil {
			t.Errorf("Lookup(%s) error: %v", want[k], err)
			continue
		}
		for _, region := range e.Regions {
			if _, err := domain.LookupRegion(region); err != nil {
				t.Errorf("%s: unknown region %s", e.Name, region)
			}
		}
	}
	if _, err := Lookup("nino34"); err != nil {
		t.Errorf("lowercase lookup failed: %v", err)
	}
}

// TestCompute_UnknownIndex tests that an unknown index is a precondition error.
func TestCompute_UnknownIndex(t *testing.T) {
	_, err := Compute(context.Background(), "NINO5", Input{})
	if !errors.Is(err, domain.ErrPrecondition) {
		t.Errorf("expected precondition error, got %v", err)
	}
}

// transposed returns a copy of f stored in txy order.
func transposed(f *domain.GridField) *domain.GridField {
	out := domain.NewGridField(f.Variable, f.Time, f.Lat, f.Lon, domain.OrderTXY)
	out.Units = f.Units
	for t := 0; t < f.NTime(); t++ {
		for i := range f.Lat {
			for j := range f.Lon {
				out.Set(t, i, j, f.At(t, i, j))
			}
		}
	}
	return out
}

// TestCompute_AxisOrders tests that tyx and txy inputs give identical results.
func TestCompute_AxisOrders(t *testing.T) {
	sst := newField("sst", []float64{-2.5, 2.5}, lonGrid(127.5, 290, 5), func(step int, lat, lon float64) float64 {
		return 26 + math.Sin(0.8*float64(step)+lon/30) + lat/10
	})
	psl := newField("psl", []float64{-70, -66, -52, -41}, []float64{0, 90, 200, 250, 300}, func(step int, lat, lon float64) float64 {
		return 100000 + 300*math.Sin(1.1*float64(step)+lat/7) + 5*lon - 20*lat
	})
	zg := newField("zg", []float64{-70, -60, -50, -47.5}, []float64{0, 50, 120, 170, 240, 285}, func(step int, lat, lon float64) float64 {
		return 5000 + 10*math.Sin(1.3*float64(step)+0.07*lat+0.01*lon)
	})
	tests := []struct {
		index string
		field *domain.GridField
	}{
		{"NINO34", sst},
		{"NINOCT", sst},
		{"IEMI", sst},
		{"SAM", psl},
		{"ASL", psl},
		{"ZW3", zg},
		{"MEX", zg},
	}
	for _, tt := range tests {
		t.Run(tt.index, func(t *testing.T) {
			tyx, err := Compute(context.Background(), tt.index, Input{Source: memorySource{tt.field}, Base: basePeriod(t)})
			if err != nil {
				t.Fatalf("tyx: %v", err)
			}
			txy, err := Compute(context.Background(), tt.index, Input{Source: memorySource{transposed(tt.field)}, Base: basePeriod(t)})
			if err != nil {
				t.Fatalf("txy: %v", err)
			}
			for k, s := range tyx.Series {
				for step, v := range s.Values {
					if w := txy.Series[k].Values[step]; math.Abs(v-w) > 1e-9 {
						t.Fatalf("%s step %d: tyx %v, txy %v", s.Attrs.ID, step, v, w)
					}
				}
			}
		})
	}
}

// TestLoadRegion_RequiredOrder tests that a declared layout is enforced with
// the region in the error context.
func TestLoadRegion_RequiredOrder(t *testing.T) {
	f := transposed(newField("sst", []float64{-2.5, 2.5}, lonGrid(192.5, 240, 5), func(int, float64, float64) float64 { return 1 }))
	e := Entry{Name: "TEST", RequiredOrder: domain.OrderTYX}
	_, err := loadRegion(Input{Source: memorySource{f}}, e, "nino34")
	var pe *domain.PreconditionError
	if !errors.As(err, &pe) || pe.Region != "nino34" {
		t.Fatalf("expected precondition error for nino34, got %v", err)
	}
	e.RequiredOrder = domain.OrderTXY
	if _, err := loadRegion(Input{Source: memorySource{f}}, e, "nino34"); err != nil {
		t.Errorf("matching order rejected: %v", err)
	}
}

// TestCompute_CollaboratorNeedsTYX tests that txy input is not sent to the batch operator.
func TestCompute_CollaboratorNeedsTYX(t *testing.T) {
	op := &fakeOperator{values: map[string]float64{"zw31": 1, "zw32": 2, "zw33": 6}, nlat: 1}
	in := Input{Source: memorySource{transposed(zw3Field())}, Base: basePeriod(t), Engine: EngineCollaborator, Operator: op}
	_, err := Compute(context.Background(), "ZW3", in)
	var pe *domain.PreconditionError
	if !errors.As(err, &pe) || pe.Index != "ZW3" || pe.Region != "zw31" {
		t.Fatalf("expected precondition error for ZW3/zw31, got %v", err)
	}
	if len(op.requests) != 0 {
		t.Errorf("expected no operator requests, got %d", len(op.requests))
	}
}

// TestCompute_BaseOutsideData tests that a base period outside the time axis is rejected.
func TestCompute_BaseOutsideData(t *testing.T) {
	f := newField("sst", []float64{-2.5, 2.5}, lonGrid(192.5, 240, 5), func(int, float64, float64) float64 { return 1 })
	base, err := domain.ParseTimeRange("1971-01-01", "2000-12-31")
	if err != nil {
		t.Fatal(err)
	}
	_, err = Compute(context.Background(), "NINO34", Input{Source: memorySource{f}, Base: base})
	if !errors.Is(err, domain.ErrPrecondition) {
		t.Errorf("expected precondition error, got %v", err)
	}
}

// TestCompute_Nino34 tests that the NINO34 anomaly averages to zero over the base period.
func TestCompute_Nino34(t *testing.T) {
	f := newField("sst", []float64{-2.5, 2.5}, lonGrid(182.5, 250, 5), func(t int, lat, lon float64) float64 {
		return 26 + math.Sin(float64(t)) + lat/10 + lon/1000
	})
	res, err := Compute(context.Background(), "nino34", Input{Source: memorySource{f}, Base: basePeriod(t)})
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if len(res.Series) != 1 || res.Series[0].Attrs.ID != "nino34" || res.Series[0].Attrs.Units != "Celsius" {
		t.Fatalf("unexpected series attributes: %+v", res.Series)
	}
	anom := res.Series[0].Values
	if len(anom) != 36 {
		t.Fatalf("expected 36 values, got %d", len(anom))
	}
	if mean := stat.Mean(anom[:24], nil); math.Abs(mean) > 1e-9 {
		t.Errorf("base-period anomaly mean: expected 0, got %v", mean)
	}
}

// TestCompute_RenJin tests the cold-tongue and warm-pool combinations.
func TestCompute_RenJin(t *testing.T) {
	tests := []struct {
		name   string
		n3, n4 float64
		ct, wp float64
	}{
		{"same sign", 1.0, 1.0, 0.6, 0.6},
		{"opposite sign", 1.0, -1.0, 1.0, -1.0},
		{"zero", 0, 1.0, 0, 1.0},
	}
	// 210 sits on the nino3/nino4 boundary; the grid avoids it.
	lon := lonGrid(162.5, 270, 5)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newField("sst", []float64{-2.5, 2.5}, lon, func(step int, lat, lon float64) float64 {
				if step < 24 {
					return 0
				}
				if inRegion("nino3", lat, lon) {
					return tt.n3
				}
				return tt.n4
			})
			in := Input{Source: memorySource{f}, Base: basePeriod(t)}
			for name, want := range map[string]float64{"NINOCT": tt.ct, "NINOWP": tt.wp} {
				res, err := Compute(context.Background(), name, in)
				if err != nil {
					t.Fatalf("%s error: %v", name, err)
				}
				got := res.Series[0].Values[30]
				if math.Abs(got-want) > 1e-9 {
					t.Errorf("%s: expected %v, got %v", name, want, got)
				}
			}
		})
	}
}

// TestRenJin_NaN tests that a missing anomaly propagates to both indices.
func TestRenJin_NaN(t *testing.T) {
	ct, wp := RenJin([]float64{math.NaN(), 1}, []float64{1, math.NaN()})
	for k := range ct {
		if !math.IsNaN(ct[k]) || !math.IsNaN(wp[k]) {
			t.Errorf("step %d: expected NaN, got ct=%v wp=%v", k, ct[k], wp[k])
		}
	}
}

// TestCompute_IEMI tests the 3A - 2B - C combination.
func TestCompute_IEMI(t *testing.T) {
	f := newField("sst", []float64{-2.5, 2.5}, lonGrid(127.5, 290, 5), func(step int, lat, lon float64) float64 {
		if step < 24 {
			return 0
		}
		switch {
		case inRegion("emia", lat, lon):
			return 2
		case inRegion("emib", lat, lon):
			return 1
		case inRegion("emic", lat, lon):
			return 0.5
		}
		return 0
	})
	res, err := Compute(context.Background(), "IEMI", Input{Source: memorySource{f}, Base: basePeriod(t)})
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	iemi := seriesByID(t, res, "iemi")
	if math.Abs(iemi[30]-3.5) > 1e-9 {
		t.Errorf("expected 3.5, got %v", iemi[30])
	}
	if math.Abs(iemi[5]) > 1e-9 {
		t.Errorf("base period: expected 0, got %v", iemi[5])
	}
}

// TestCompute_SAM tests that opposite zonal means give twice the normalized northern series.
func TestCompute_SAM(t *testing.T) {
	north := func(step int) float64 { return 1000 + float64(step) + 0.5*math.Cos(1.7*float64(step)) }
	f := newField("psl", []float64{-66, -52, -41}, []float64{0, 90, 180, 270}, func(step int, lat, _ float64) float64 {
		switch lat {
		case -41:
			return north(step)
		case -66:
			return -north(step)
		}
		return 0
	})
	base := basePeriod(t)
	res, err := Compute(context.Background(), "SAM", Input{Source: memorySource{f}, Base: base})
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	raw := make([]float64, f.NTime())
	for k := range raw {
		raw[k] = north(k)
	}
	want, err := domain.NormalizeAgainst(raw, f.Time.Times, base, domain.Monthly)
	if err != nil {
		t.Fatal(err)
	}
	sam := seriesByID(t, res, "sam")
	for k := range sam {
		if math.Abs(sam[k]-2*want[k]) > 1e-9 {
			t.Fatalf("step %d: expected %v, got %v", k, 2*want[k], sam[k])
		}
	}
}

// TestCompute_MEX tests that MEX is standardized over the record.
func TestCompute_MEX(t *testing.T) {
	f := newField("zg", []float64{-70, -60, -50}, []float64{0, 120, 240}, func(step int, lat, lon float64) float64 {
		return 5000 + 10*math.Sin(1.3*float64(step)+0.07*lat+0.01*lon)
	})
	res, err := Compute(context.Background(), "MEX", Input{Source: memorySource{f}, Base: basePeriod(t)})
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	mean, std := stat.PopMeanStdDev(seriesByID(t, res, "mex"), nil)
	if math.Abs(mean) > 1e-9 || math.Abs(std-1) > 1e-9 {
		t.Errorf("expected mean 0 and std 1, got mean=%v std=%v", mean, std)
	}
}

// TestCompute_MEXConstantCell tests that a cell with no base-period variance is a data quality error.
func TestCompute_MEXConstantCell(t *testing.T) {
	f := newField("zg", []float64{-60}, []float64{0, 180}, func(step int, _, lon float64) float64 {
		if lon == 0 {
			return 5000
		}
		return 5000 + float64(step)
	})
	_, err := Compute(context.Background(), "MEX", Input{Source: memorySource{f}, Base: basePeriod(t)})
	if !errors.Is(err, domain.ErrDataQuality) {
		t.Errorf("expected data quality error, got %v", err)
	}
}

// TestCompute_ASL tests the location of the spatial minimum.
func TestCompute_ASL(t *testing.T) {
	f := newField("psl", []float64{-70, -65}, []float64{200, 250, 300}, func(step int, lat, lon float64) float64 {
		if step%2 == 0 && lat == -70 && lon == 250 {
			return 95000
		}
		if step%2 == 1 && lat == -65 && lon == 300 {
			return 96000
		}
		return 100000
	})
	f.Units = "Pa"
	// ASL does not use a base period.
	base, err := domain.ParseTimeRange("1900-01-01", "1900-12-31")
	if err != nil {
		t.Fatal(err)
	}
	res, err := Compute(context.Background(), "ASL", Input{Source: memorySource{f}, Base: base})
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	values, lats, lons := seriesByID(t, res, "asl_value"), seriesByID(t, res, "asl_lat"), seriesByID(t, res, "asl_lon")
	tests := []struct {
		step          int
		value, lat, l float64
	}{
		{0, 95000, -70, 250},
		{1, 96000, -65, 300},
	}
	for _, tt := range tests {
		if values[tt.step] != tt.value || lats[tt.step] != tt.lat || lons[tt.step] != tt.l {
			t.Errorf("step %d: expected (%v, %v, %v), got (%v, %v, %v)",
				tt.step, tt.value, tt.lat, tt.l, values[tt.step], lats[tt.step], lons[tt.step])
		}
	}
	if len(values) != res.Time.Len() {
		t.Errorf("expected %d values, got %d", res.Time.Len(), len(values))
	}
}

// fakeOperator answers operator requests with a constant series per region.
type fakeOperator struct {
	values   map[string]float64
	nlat     int
	err      error
	requests []domain.OperatorRequest
}

func (o *fakeOperator) Apply(_ context.Context, req domain.OperatorRequest) (*domain.GridField, error) {
	o.requests = append(o.requests, req)
	if o.err != nil {
		return nil, o.err
	}
	lat := make([]float64, o.nlat)
	out := domain.NewGridField("zg", domain.TimeAxis{Times: monthlyTimes(1981, 36)}, lat, []float64{0}, domain.OrderTYX)
	for k := range out.Values {
		out.Values[k] = o.values[req.Region.Name]
	}
	return out, nil
}

func zw3Field() *domain.GridField {
	return newField("zg", []float64{-47.5}, []float64{50, 170, 285}, func(step int, _, lon float64) float64 {
		return 5000 + lon + float64(step%7)
	})
}

// TestCompute_ZW3Collaborator tests that ZW3 delegates the box normalization.
func TestCompute_ZW3Collaborator(t *testing.T) {
	op := &fakeOperator{values: map[string]float64{"zw31": 1, "zw32": 2, "zw33": 6}, nlat: 1}
	in := Input{Source: memorySource{zw3Field()}, Base: basePeriod(t), Engine: EngineCollaborator, Operator: op}
	res, err := Compute(context.Background(), "ZW3", in)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	zw3 := seriesByID(t, res, "zw3")
	if math.Abs(zw3[0]-3) > 1e-9 {
		t.Errorf("expected 3, got %v", zw3[0])
	}
	if len(op.requests) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(op.requests))
	}
	req := op.requests[0]
	if req.Kind != domain.OpNormalize || req.Reduce != domain.ReduceFieldMean || req.Calendar != domain.Monthly {
		t.Errorf("unexpected request: %+v", req)
	}
	if req.InputPath != "memory.nc" || req.Variable != "zg" {
		t.Errorf("unexpected input: %s %s", req.InputPath, req.Variable)
	}
}

// TestCompute_ZW3Native tests that ZW3 is the mean of the normalized box means.
func TestCompute_ZW3Native(t *testing.T) {
	f := zw3Field()
	base := basePeriod(t)
	res, err := Compute(context.Background(), "ZW3", Input{Source: memorySource{f}, Base: base})
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	want := make([]float64, f.NTime())
	for _, name := range []string{"zw31", "zw32", "zw33"} {
		region, err := domain.LookupRegion(name)
		if err != nil {
			t.Fatal(err)
		}
		box, err := domain.Select(f, region, nil)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		z, err := domain.NormalizeAgainst(domain.AreaMean(box), box.Time.Times, base, domain.Monthly)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		for k := range want {
			want[k] += z[k] / 3
		}
	}
	zw3 := seriesByID(t, res, "zw3")
	for k := range zw3 {
		if math.Abs(zw3[k]-want[k]) > 1e-9 {
			t.Fatalf("step %d: expected %v, got %v", k, want[k], zw3[k])
		}
	}
	if math.Abs(zw3[0]+1) > 1e-9 || math.Abs(zw3[3]-1) > 1e-9 {
		t.Errorf("expected -1 at step 0 and 1 at step 3, got %v and %v", zw3[0], zw3[3])
	}
}

// TestCompute_SAMDaily tests SAM on a daily axis against the day-of-year climatology.
func TestCompute_SAMDaily(t *testing.T) {
	north := func(step int) float64 { return 1000 + float64(step) + 0.5*math.Cos(1.7*float64(step)) }
	f := fieldAt("psl", dailyTimes(1981, 3*365), []float64{-66, -52, -41}, []float64{0, 90, 180, 270}, func(step int, lat, _ float64) float64 {
		switch lat {
		case -41:
			return north(step)
		case -66:
			return -north(step)
		}
		return 0
	})
	base := basePeriod(t)
	res, err := Compute(context.Background(), "SAM", Input{Source: memorySource{f}, Base: base})
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	raw := make([]float64, f.NTime())
	for k := range raw {
		raw[k] = north(k)
	}
	want, err := domain.NormalizeAgainst(raw, f.Time.Times, base, domain.Daily)
	if err != nil {
		t.Fatal(err)
	}
	sam := seriesByID(t, res, "sam")
	if len(sam) != 3*365 {
		t.Fatalf("expected %d values, got %d", 3*365, len(sam))
	}
	for k := range sam {
		if math.Abs(sam[k]-2*want[k]) > 1e-9 {
			t.Fatalf("step %d: expected %v, got %v", k, 2*want[k], sam[k])
		}
	}
}

// TestCompute_TimescaleOverride tests that an explicit timescale replaces detection.
func TestCompute_TimescaleOverride(t *testing.T) {
	f := newField("sst", []float64{-2.5, 2.5}, lonGrid(192.5, 240, 5), func(step int, _, _ float64) float64 { return float64(step % 5) })
	// A 45-day first step is neither daily nor monthly.
	f.Time.Times[0] = time.Date(1981, time.January, 1, 0, 0, 0, 0, time.UTC)
	f.Time.Times[1] = time.Date(1981, time.February, 15, 0, 0, 0, 0, time.UTC)
	in := Input{Source: memorySource{f}, Base: basePeriod(t)}
	if _, err := Compute(context.Background(), "NINO34", in); !errors.Is(err, domain.ErrPrecondition) {
		t.Fatalf("expected detection to fail, got %v", err)
	}
	in.Timescale = domain.Monthly
	if _, err := Compute(context.Background(), "NINO34", in); err != nil {
		t.Errorf("Compute with monthly timescale: %v", err)
	}
	in.Timescale = domain.CalendarUnits(7)
	if _, err := Compute(context.Background(), "NINO34", in); !errors.Is(err, domain.ErrPrecondition) {
		t.Errorf("expected precondition error for unknown timescale, got %v", err)
	}
}

// TestCompute_CollaboratorFailures tests how operator failures surface.
func TestCompute_CollaboratorFailures(t *testing.T) {
	tests := []struct {
		name string
		op   *fakeOperator
	}{
		{"operator error", &fakeOperator{err: domain.CollaboratorFailure("run", errors.New("exit status 1"))}},
		{"not squeezed", &fakeOperator{nlat: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Input{Source: memorySource{zw3Field()}, Base: basePeriod(t), Engine: EngineCollaborator, Operator: tt.op}
			_, err := Compute(context.Background(), "ZW3", in)
			if !errors.Is(err, domain.ErrCollaborator) {
				t.Errorf("expected collaborator failure, got %v", err)
			}
		})
	}
}

// TestCompute_CollaboratorNeedsOperator tests that the collaborator engine requires an operator.
func TestCompute_CollaboratorNeedsOperator(t *testing.T) {
	in := Input{Source: memorySource{zw3Field()}, Base: basePeriod(t), Engine: EngineCollaborator}
	_, err := Compute(context.Background(), "ZW3", in)
	if !errors.Is(err, domain.ErrPrecondition) {
		t.Errorf("expected precondition error, got %v", err)
	}
}

// TestCompute_NativeFallback tests that indices without a collaborator path ignore the engine.
func TestCompute_NativeFallback(t *testing.T) {
	f := newField("sst", []float64{-2.5, 2.5}, lonGrid(192.5, 240, 5), func(step int, _, _ float64) float64 { return float64(step % 5) })
	op := &fakeOperator{}
	in := Input{Source: memorySource{f}, Base: basePeriod(t), Engine: EngineCollaborator, Operator: op}
	if _, err := Compute(context.Background(), "NINO34", in); err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if len(op.requests) != 0 {
		t.Errorf("expected no operator requests, got %d", len(op.requests))
	}
}

// TestParseEngine tests engine name parsing.
func TestParseEngine(t *testing.T) {
	tests := []struct {
		in      string
		want    Engine
		wantErr bool
	}{
		{"", EngineNative, false},
		{"native", EngineNative, false},
		{"CDO", EngineCollaborator, false},
		{"collaborator", EngineCollaborator, false},
		{"python", "", true},
	}
	for _, tt := range tests {
		got, err := ParseEngine(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseEngine(%q) = %v, %v", tt.in, got, err)
		}
	}
}
