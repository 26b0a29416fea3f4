package index

import (
	"context"

	"go.ngs.io/climate-indices/internal/domain"
)

func computeZW3(ctx context.Context, e Entry, in Input) (*domain.IndexResult, error) {
	zs := make([][]float64, len(e.Regions))
	var first *regionData
	for k, name := range e.Regions {
		r, err := loadRegionWithBase(in, e, name)
		if err != nil {
			return nil, err
		}
		if first == nil {
			first = r
		}
		if zs[k], err = zw3Box(ctx, in, r); err != nil {
			return nil, err
		}
	}
	if err := sameLength("combine", zs...); err != nil {
		return nil, err
	}

	zw3 := make([]float64, len(zs[0]))
	for t := range zw3 {
		var sum float64
		for _, z := range zs {
			sum += z[t]
		}
		zw3[t] = sum / float64(len(zs))
	}
	attrs := domain.SeriesAttrs{
		ID:           "zw3",
		LongName:     "zonal_wave_3_index",
		StandardName: "zonal_wave_3_index",
		Notes:        "Ref: " + refZW3,
	}
	return &domain.IndexResult{
		Index:  e.Name,
		Series: []domain.Series{{Attrs: attrs, Values: zw3}},
		Time:   first.field.Time,
		Global: first.field.Global,
	}, nil
}

// zw3Box returns the normalized area mean of one ZW3 box.
func zw3Box(ctx context.Context, in Input, r *regionData) ([]float64, error) {
	if !in.collaborator() {
		return r.normalized(domain.AreaMean(r.field), in.Base)
	}
	region, err := domain.LookupRegion(r.name)
	if err != nil {
		return nil, err
	}
	out, err := r.collaborate(ctx, in, domain.OperatorRequest{
		Kind:   domain.OpNormalize,
		Reduce: domain.ReduceFieldMean,
		Region: region,
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
