package index

import (
	"context"

	"go.ngs.io/climate-indices/internal/domain"
)

// IEMI weights of the three regional anomalies.
const (
	iemiWeightA = 3.0
	iemiWeightB = -2.0
	iemiWeightC = -1.0
)

func computeIEMI(_ context.Context, e Entry, in Input) (*domain.IndexResult, error) {
	anoms := make([][]float64, len(e.Regions))
	var first *regionData
	for k, name := range e.Regions {
		r, err := loadRegionWithBase(in, e, name)
		if err != nil {
			return nil, err
		}
		if first == nil {
			first = r
		}
		if anoms[k], err = r.areaAnomaly(in.Base); err != nil {
			return nil, err
		}
	}
	if err := sameLength("combine", anoms...); err != nil {
		return nil, err
	}

	a, b, c := anoms[0], anoms[1], anoms[2]
	iemi := make([]float64, len(a))
	for k := range iemi {
		iemi[k] = iemiWeightA*a[k] + iemiWeightB*b[k] + iemiWeightC*c[k]
	}
	attrs := domain.SeriesAttrs{
		ID:           "iemi",
		LongName:     "improved_ENSO_Modoki_Index",
		StandardName: "improved_ENSO_Modoki_Index",
		Units:        "Celsius",
		Notes:        basePeriodNote(refIEMI, in.Base),
	}
	return &domain.IndexResult{
		Index:  e.Name,
		Series: []domain.Series{{Attrs: attrs, Values: iemi}},
		Time:   first.field.Time,
		Global: first.field.Global,
	}, nil
}
