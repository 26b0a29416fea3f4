package writer

import (
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"go.ngs.io/climate-indices/internal/domain"
)

// SeriesRow is one observation of one series in long format. Missing values
// are stored as NaN.
type SeriesRow struct {
	Date   string  `parquet:"date"`
	Series string  `parquet:"series"`
	Value  float64 `parquet:"value"`
}

// ParquetWriter writes index series as long-format Parquet rows. Global and
// per-series attributes go into the file key/value metadata.
type ParquetWriter struct {
	now func() time.Time
}

// NewParquetWriter creates a Parquet series writer.
func NewParquetWriter() *ParquetWriter {
	return &ParquetWriter{now: time.Now}
}

// WriteSeries writes result to path.
func (w *ParquetWriter) WriteSeries(path, provenance string, result *domain.IndexResult) error {
	if err := result.Validate(); err != nil {
		return err
	}
	meta := Metadata(provenance, result, w.now())
	meta["index"] = result.Index
	for _, s := range result.Series {
		for k, v := range seriesAttrs(s.Attrs) {
			if v != "" {
				meta[s.Attrs.ID+"."+k] = v
			}
		}
	}

	rows := Rows(result)
	return atomicWrite(path, func(tmp string) error {
		//nolint:gosec // G304: tmp is created by atomicWrite.
		f, err := os.Create(tmp)
		if err != nil {
			return fmt.Errorf("failed to create Parquet file: %w", err)
		}
		defer func() { _ = f.Close() }()

		opts := make([]parquet.WriterOption, 0, len(meta))
		for _, k := range sortedKeys(meta) {
			opts = append(opts, parquet.KeyValueMetadata(k, meta[k]))
		}
		pw := parquet.NewGenericWriter[SeriesRow](f, opts...)
		if _, err := pw.Write(rows); err != nil {
			return fmt.Errorf("failed to write Parquet rows: %w", err)
		}
		if err := pw.Close(); err != nil {
			return fmt.Errorf("failed to close Parquet writer: %w", err)
		}
		return f.Close()
	})
}

// Rows flattens result into long-format rows ordered by series then time.
func Rows(result *domain.IndexResult) []SeriesRow {
	layout := dateLayout(result.Time.Times)
	rows := make([]SeriesRow, 0, len(result.Series)*result.Time.Len())
	for _, s := range result.Series {
		for t, ts := range result.Time.Times {
			rows = append(rows, SeriesRow{Date: ts.Format(layout), Series: s.Attrs.ID, Value: s.Values[t]})
		}
	}
	return rows
}
