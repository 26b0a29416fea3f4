package writer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"

	"go.ngs.io/climate-indices/internal/domain"
)

// Compression selects the stream compression of CSV output.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
)

// CSVWriter writes index series as a wide CSV table: one date column and one
// column per series. Global attributes precede the header as "# key: value"
// comment lines.
type CSVWriter struct {
	compression Compression
	now         func() time.Time
}

// NewCSVWriter creates a CSV series writer.
func NewCSVWriter(c Compression) *CSVWriter {
	return &CSVWriter{compression: c, now: time.Now}
}

// WriteSeries writes result to path.
func (w *CSVWriter) WriteSeries(path, provenance string, result *domain.IndexResult) error {
	if err := result.Validate(); err != nil {
		return err
	}
	meta := Metadata(provenance, result, w.now())

	return atomicWrite(path, func(tmp string) error {
		//nolint:gosec // G304: tmp is created by atomicWrite.
		f, err := os.Create(tmp)
		if err != nil {
			return fmt.Errorf("failed to create CSV file: %w", err)
		}
		defer func() { _ = f.Close() }()

		out, finish, err := w.wrap(f)
		if err != nil {
			return err
		}
		if err := writeCSV(out, meta, result); err != nil {
			return err
		}
		if err := finish(); err != nil {
			return fmt.Errorf("failed to finish compressed stream: %w", err)
		}
		return f.Close()
	})
}

func (w *CSVWriter) wrap(f *os.File) (io.Writer, func() error, error) {
	switch w.compression {
	case CompressionGzip:
		gz := pgzip.NewWriter(f)
		return gz, gz.Close, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(f)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		return enc, enc.Close, nil
	default:
		bw := bufio.NewWriter(f)
		return bw, bw.Flush, nil
	}
}

func writeCSV(out io.Writer, meta map[string]string, result *domain.IndexResult) error {
	for _, k := range sortedKeys(meta) {
		for _, line := range strings.Split(meta[k], "\n") {
			if _, err := fmt.Fprintf(out, "# %s: %s\n", k, line); err != nil {
				return fmt.Errorf("failed to write CSV metadata: %w", err)
			}
		}
	}
	for _, s := range result.Series {
		if _, err := fmt.Fprintf(out, "# %s: %s [%s] %s\n", s.Attrs.ID, s.Attrs.LongName, s.Attrs.Units, s.Attrs.Notes); err != nil {
			return fmt.Errorf("failed to write CSV metadata: %w", err)
		}
	}

	cw := csv.NewWriter(out)
	header := make([]string, 0, len(result.Series)+1)
	header = append(header, "date")
	for _, s := range result.Series {
		header = append(header, s.Attrs.ID)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	layout := dateLayout(result.Time.Times)
	record := make([]string, len(header))
	for t, ts := range result.Time.Times {
		record[0] = ts.Format(layout)
		for k, s := range result.Series {
			record[k+1] = formatValue(s.Values[t])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ReadCSV reads a file produced by CSVWriter back into an index result.
// The compression is chosen from the file extension. Series attributes other
// than the identifier are not recovered.
func ReadCSV(path string) (*domain.IndexResult, error) {
	//nolint:gosec // G304: path is supplied by the operator.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var in io.Reader = f
	switch lower := strings.ToLower(path); {
	case strings.HasSuffix(lower, ".gz"):
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer func() { _ = gz.Close() }()
		in = gz
	case strings.HasSuffix(lower, ".zst"):
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		defer dec.Close()
		in = dec
	}

	reader := csv.NewReader(in)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	// Read header.
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) < 2 || header[0] != "date" {
		return nil, fmt.Errorf("invalid CSV header: expected date and at least one series, got %v", header)
	}

	result := &domain.IndexResult{Series: make([]domain.Series, len(header)-1)}
	for k, id := range header[1:] {
		result.Series[k].Attrs.ID = id
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		ts, err := parseDate(record[0])
		if err != nil {
			return nil, err
		}
		result.Time.Times = append(result.Time.Times, ts)
		for k, field := range record[1:] {
			v := math.NaN()
			if field != "" {
				if v, err = strconv.ParseFloat(field, 64); err != nil {
					return nil, fmt.Errorf("invalid value %q in column %s: %w", field, header[k+1], err)
				}
			}
			result.Series[k].Values = append(result.Series[k].Values, v)
		}
	}
	return result, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
