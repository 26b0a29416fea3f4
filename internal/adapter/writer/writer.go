// Package writer persists index results as NetCDF, Parquet or CSV files.
package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.ngs.io/climate-indices/internal/domain"
)

// SeriesWriter writes an index result to a file.
type SeriesWriter interface {
	WriteSeries(path, provenance string, result *domain.IndexResult) error
}

// Extensions lists the supported output file suffixes.
var Extensions = []string{".nc", ".parquet", ".csv", ".csv.gz", ".csv.zst"}

// ForPath selects a writer from the output file extension.
func ForPath(path string) (SeriesWriter, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".nc"):
		return NewNetCDFWriter(), nil
	case strings.HasSuffix(lower, ".parquet"):
		return NewParquetWriter(), nil
	case strings.HasSuffix(lower, ".csv.gz"):
		return NewCSVWriter(CompressionGzip), nil
	case strings.HasSuffix(lower, ".csv.zst"):
		return NewCSVWriter(CompressionZstd), nil
	case strings.HasSuffix(lower, ".csv"):
		return NewCSVWriter(CompressionNone), nil
	}
	return nil, domain.Preconditionf("output", "unsupported output file %s (want one of %v)", filepath.Base(path), Extensions)
}

// History prepends a timestamped provenance line to an existing history
// attribute.
func History(provenance, previous string, now time.Time) string {
	line := fmt.Sprintf("%s: %s", now.UTC().Format(time.ANSIC), provenance)
	if previous == "" {
		return line
	}
	return line + "\n" + previous
}

// Metadata returns the global attributes of result with history updated.
func Metadata(provenance string, result *domain.IndexResult, now time.Time) map[string]string {
	out := make(map[string]string, len(result.Global)+1)
	for k, v := range result.Global {
		out[k] = v
	}
	out["history"] = History(provenance, result.Global["history"], now)
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// atomicWrite runs write against a temporary file next to path and renames
// it into place on success, so a failed write leaves no partial output.
func atomicWrite(path string, write func(tmp string) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmp := f.Name()
	_ = f.Close()

	if err := write(tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// dateLayout uses plain dates unless some time step carries a time of day.
func dateLayout(times []time.Time) string {
	for _, t := range times {
		if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 {
			return time.RFC3339
		}
	}
	return time.DateOnly
}
