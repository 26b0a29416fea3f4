package index

import (
	"context"
	"fmt"

	"go.ngs.io/climate-indices/internal/domain"
)

func computeMEX(ctx context.Context, e Entry, in Input) (*domain.IndexResult, error) {
	r, err := loadRegionWithBase(in, e, e.Regions[0])
	if err != nil {
		return nil, err
	}
	norm, err := mexNormalized(ctx, in, r)
	if err != nil {
		return nil, err
	}

	squared := norm.EmptyLike()
	for k, v := range norm.Values {
		squared.Values[k] = v * v
	}
	mex, err := domain.Standardize(domain.WeightedAreaMean(squared))
	if err != nil {
		return nil, domain.Annotate(err, "", r.name)
	}
	attrs := domain.SeriesAttrs{
		ID:           "mex",
		LongName:     "midlatitude_extreme_index",
		StandardName: "midlatitude_extreme_index",
		Notes:        "Ref: " + refMEX,
	}
	return &domain.IndexResult{
		Index:  e.Name,
		Series: []domain.Series{{Attrs: attrs, Values: mex}},
		Time:   r.field.Time,
		Global: r.field.Global,
	}, nil
}

// mexNormalized returns the field normalized cell by cell against the base
// climatology.
func mexNormalized(ctx context.Context, in Input, r *regionData) (*domain.GridField, error) {
	if in.collaborator() {
		region, err := domain.LookupRegion(r.name)
		if err != nil {
			return nil, err
		}
		out, err := r.collaborate(ctx, in, domain.OperatorRequest{
			Kind:   domain.OpNormalize,
			Reduce: domain.ReduceNone,
			Region: region,
		})
		if err != nil {
			return nil, err
		}
		if out.NLat() != r.field.NLat() || out.NLon() != r.field.NLon() {
			err := domain.CollaboratorFailure("result", fmt.Errorf("returned a %dx%d grid, expected %dx%d",
				out.NLat(), out.NLon(), r.field.NLat(), r.field.NLon()))
			return nil, domain.Annotate(err, "", r.name)
		}
		return out, nil
	}

	out := r.field.EmptyLike()
	for i := range r.field.Lat {
		for j := range r.field.Lon {
			z, err := r.normalized(r.field.CellSeries(i, j), in.Base)
			if err != nil {
				return nil, err
			}
			out.SetCellSeries(i, j, z)
		}
	}
	return out, nil
}
