package index

import (
	"context"

	"go.ngs.io/climate-indices/internal/domain"
)

func computeASL(_ context.Context, e Entry, in Input) (*domain.IndexResult, error) {
	r, err := loadRegion(in, e, e.Regions[0])
	if err != nil {
		return nil, err
	}
	values, lats, lons := domain.SpatialMinimum(r.field)

	units := r.field.Units
	if units == "" {
		units = "Pa"
	}
	notes := "Ref: " + refASL
	series := []domain.Series{
		{Attrs: domain.SeriesAttrs{ID: "asl_value", LongName: "asl_minimum_pressure", StandardName: "asl_minimum_pressure", Units: units, Notes: notes}, Values: values},
		{Attrs: domain.SeriesAttrs{ID: "asl_lat", LongName: "asl_latitude", StandardName: "asl_latitude", Units: "degrees_north", Notes: notes}, Values: lats},
		{Attrs: domain.SeriesAttrs{ID: "asl_lon", LongName: "asl_longitude", StandardName: "asl_longitude", Units: "degrees_east", Notes: notes}, Values: lons},
	}
	return &domain.IndexResult{
		Index:  e.Name,
		Series: series,
		Time:   r.field.Time,
		Global: r.field.Global,
	}, nil
}
