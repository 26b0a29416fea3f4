package index

import (
	"context"
	"fmt"

	"go.ngs.io/climate-indices/internal/domain"
)

// SAM reference latitudes.
const (
	samNorthLat = -40.0
	samSouthLat = -65.0
)

func computeSAM(ctx context.Context, e Entry, in Input) (*domain.IndexResult, error) {
	r, err := loadRegionWithBase(in, e, e.Regions[0])
	if err != nil {
		return nil, err
	}
	north, err := domain.NearestLatitude(r.field.Lat, samNorthLat)
	if err != nil {
		return nil, domain.Annotate(err, "", r.name)
	}
	south, err := domain.NearestLatitude(r.field.Lat, samSouthLat)
	if err != nil {
		return nil, domain.Annotate(err, "", r.name)
	}

	zn, err := samZonal(ctx, in, r, north)
	if err != nil {
		return nil, err
	}
	zs, err := samZonal(ctx, in, r, south)
	if err != nil {
		return nil, err
	}

	sam := make([]float64, len(zn))
	for k := range sam {
		sam[k] = zn[k] - zs[k]
	}
	attrs := domain.SeriesAttrs{
		ID:           "sam",
		LongName:     "Southern_Annular_Mode_Index",
		StandardName: "Southern_Annular_Mode_Index",
		Notes:        basePeriodNote(refSAM, in.Base),
	}
	return &domain.IndexResult{
		Index:  e.Name,
		Series: []domain.Series{{Attrs: attrs, Values: sam}},
		Time:   r.field.Time,
		Global: r.field.Global,
	}, nil
}

// samZonal returns the normalized zonal mean at latitude row lat.
func samZonal(ctx context.Context, in Input, r *regionData, lat int) ([]float64, error) {
	if !in.collaborator() {
		return r.normalized(domain.ZonalMean(r.field, lat), in.Base)
	}
	latitude := r.field.Lat[lat]
	out, err := r.collaborate(ctx, in, domain.OperatorRequest{
		Kind:   domain.OpNormalize,
		Reduce: domain.ReduceZonalMean,
		Region: domain.Region{
			Name:  fmt.Sprintf("%s@%.2f", r.name, latitude),
			South: latitude,
			North: latitude,
			West:  0,
			East:  360,
		},
	})
	if err != nil {
		return nil, err
	}
	z, err := squeeze(out)
	if err != nil {
		return nil, domain.Annotate(err, "", r.name)
	}
	return z, nil
}
