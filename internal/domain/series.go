package domain

import "fmt"

// SeriesAttrs describes one output series.
type SeriesAttrs struct {
	ID           string `json:"id"`
	LongName     string `json:"long_name"`
	StandardName string `json:"standard_name"`
	Units        string `json:"units"`
	Notes        string `json:"notes"`
}

// Series is one index time series.
type Series struct {
	Attrs  SeriesAttrs
	Values []float64
}

// IndexResult is the outcome of an index computation: one or more series
// sharing a time axis, plus the global attributes of the input.
type IndexResult struct {
	Index  string
	Series []Series
	Time   TimeAxis
	Global map[string]string
}

// Validate checks that every series matches the time axis and series
// identifiers are unique.
func (r *IndexResult) Validate() error {
	if len(r.Series) == 0 {
		return fmt.Errorf("index %s produced no series", r.Index)
	}
	seen := make(map[string]bool, len(r.Series))
	for _, s := range r.Series {
		if s.Attrs.ID == "" {
			return fmt.Errorf("index %s: series without identifier", r.Index)
		}
		if seen[s.Attrs.ID] {
			return fmt.Errorf("index %s: duplicate series %s", r.Index, s.Attrs.ID)
		}
		seen[s.Attrs.ID] = true
		if len(s.Values) != r.Time.Len() {
			return fmt.Errorf("index %s: series %s has %d values for %d time steps", r.Index, s.Attrs.ID, len(s.Values), r.Time.Len())
		}
	}
	return nil
}
