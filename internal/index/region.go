package index

import (
	"context"
	"fmt"

	"go.ngs.io/climate-indices/internal/domain"
)

// regionData is one named region of the input, loaded and checked.
type regionData struct {
	name  string
	field *domain.GridField
	units domain.CalendarUnits
}

// loadRegion loads a named region and checks the axis order required by e.
func loadRegion(in Input, e Entry, name string) (*regionData, error) {
	region, err := domain.LookupRegion(name)
	if err != nil {
		return nil, err
	}
	field, err := in.Source.Load(region, nil)
	if err != nil {
		return nil, domain.Annotate(err, "", name)
	}
	if err := field.RequireOrder(e.RequiredOrder); err != nil {
		return nil, domain.Annotate(err, "", name)
	}
	return &regionData{name: name, field: field}, nil
}

// loadRegionWithBase loads a named region and verifies that the base period
// lies within its time axis.
func loadRegionWithBase(in Input, e Entry, name string) (*regionData, error) {
	r, err := loadRegion(in, e, name)
	if err != nil {
		return nil, err
	}
	r.units = in.Timescale
	if r.units == 0 {
		if r.units, err = domain.DetectCalendarUnits(r.field.Time.Times); err != nil {
			return nil, domain.Annotate(err, "", name)
		}
	}
	if err := domain.CheckBase(r.field.Time.Times, in.Base, r.units); err != nil {
		return nil, domain.Annotate(err, "", name)
	}
	return r, nil
}

// areaAnomaly returns the area-mean anomaly of the region.
func (r *regionData) areaAnomaly(base domain.TimeRange) ([]float64, error) {
	anom, err := domain.AnomalyAgainst(domain.AreaMean(r.field), r.field.Time.Times, base, r.units)
	if err != nil {
		return nil, domain.Annotate(err, "", r.name)
	}
	return anom, nil
}

// normalized standardizes series against the region's base climatology.
func (r *regionData) normalized(series []float64, base domain.TimeRange) ([]float64, error) {
	z, err := domain.NormalizeAgainst(series, r.field.Time.Times, base, r.units)
	if err != nil {
		return nil, domain.Annotate(err, "", r.name)
	}
	return z, nil
}

// collaborate delegates a climatology operation on the region's input file
// to the batch operator and checks the shape of the result.
func (r *regionData) collaborate(ctx context.Context, in Input, req domain.OperatorRequest) (*domain.GridField, error) {
	if err := r.field.RequireOrder(collaboratorOrder); err != nil {
		return nil, domain.Annotate(err, "", r.name)
	}
	req.Calendar = r.units
	req.InputPath = in.Source.Path()
	req.Variable = in.Source.Variable()
	req.Base = in.Base
	if err := req.Validate(); err != nil {
		return nil, domain.Annotate(err, "", req.Region.Name)
	}
	out, err := in.Operator.Apply(ctx, req)
	if err != nil {
		return nil, domain.Annotate(err, "", req.Region.Name)
	}
	if out.NTime() != r.field.NTime() {
		err := domain.CollaboratorFailure("result", fmt.Errorf("returned %d time steps, expected %d", out.NTime(), r.field.NTime()))
		return nil, domain.Annotate(err, "", req.Region.Name)
	}
	return out, nil
}

// squeeze extracts the single time series of a reduced operator result.
func squeeze(f *domain.GridField) ([]float64, error) {
	if f.NLat() != 1 || f.NLon() != 1 {
		return nil, domain.CollaboratorFailure("result", fmt.Errorf("expected a single grid point, got %dx%d", f.NLat(), f.NLon()))
	}
	return f.CellSeries(0, 0), nil
}

func sameLength(step string, series ...[]float64) error {
	for _, s := range series[1:] {
		if len(s) != len(series[0]) {
			return domain.Preconditionf(step, "regional series have different lengths (%d and %d)", len(series[0]), len(s))
		}
	}
	return nil
}

func basePeriodNote(ref string, base domain.TimeRange) string {
	return fmt.Sprintf("Ref: %s. Base period: %s", ref, base)
}
