package index

import (
	"context"
	"fmt"
	"strings"

	"go.ngs.io/climate-indices/internal/domain"
)

// renJinAlpha couples NINO3 and NINO4 when their anomalies share a sign.
const renJinAlpha = 0.4

func computeNino(_ context.Context, e Entry, in Input) (*domain.IndexResult, error) {
	r, err := loadRegionWithBase(in, e, e.Regions[0])
	if err != nil {
		return nil, err
	}
	anom, err := r.areaAnomaly(in.Base)
	if err != nil {
		return nil, err
	}
	id := "nino" + strings.TrimPrefix(strings.ToLower(e.Name), "nino")
	attrs := domain.SeriesAttrs{
		ID:           id,
		LongName:     id + "_index",
		StandardName: id + "_index",
		Units:        "Celsius",
		Notes:        fmt.Sprintf("%s, base: %s", r.field.Bounds(), in.Base),
	}
	return &domain.IndexResult{
		Index:  e.Name,
		Series: []domain.Series{{Attrs: attrs, Values: anom}},
		Time:   r.field.Time,
		Global: r.field.Global,
	}, nil
}

func computeNinoNew(_ context.Context, e Entry, in Input) (*domain.IndexResult, error) {
	n3, err := loadRegionWithBase(in, e, "nino3")
	if err != nil {
		return nil, err
	}
	n4, err := loadRegionWithBase(in, e, "nino4")
	if err != nil {
		return nil, err
	}
	a3, err := n3.areaAnomaly(in.Base)
	if err != nil {
		return nil, err
	}
	a4, err := n4.areaAnomaly(in.Base)
	if err != nil {
		return nil, err
	}
	if err := sameLength("combine", a3, a4); err != nil {
		return nil, err
	}

	ct, wp := RenJin(a3, a4)
	attrs := domain.SeriesAttrs{Units: "Celsius", Notes: basePeriodNote(refRenJin, in.Base)}
	values := ct
	if e.Name == "NINOWP" {
		attrs.ID, attrs.LongName = "ninoWP", "nino_warm_pool_index"
		values = wp
	} else {
		attrs.ID, attrs.LongName = "ninoCT", "nino_cold_tongue_index"
	}
	attrs.StandardName = attrs.LongName
	return &domain.IndexResult{
		Index:  e.Name,
		Series: []domain.Series{{Attrs: attrs, Values: values}},
		Time:   n3.field.Time,
		Global: n3.field.Global,
	}, nil
}

// RenJin combines NINO3 and NINO4 anomalies into the cold-tongue and
// warm-pool indices of Ren & Jin (2011). The coupling coefficient is 0.4
// where the two anomalies have the same sign and 0 elsewhere.
func RenJin(n3, n4 []float64) (ct, wp []float64) {
	ct = make([]float64, len(n3))
	wp = make([]float64, len(n3))
	for k := range n3 {
		alpha := 0.0
		if n3[k]*n4[k] > 0 {
			alpha = renJinAlpha
		}
		ct[k] = n3[k] - alpha*n4[k]
		wp[k] = n4[k] - alpha*n3[k]
	}
	return ct, wp
}
