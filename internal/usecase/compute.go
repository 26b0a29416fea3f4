package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"go.ngs.io/climate-indices/internal/adapter/store"
	"go.ngs.io/climate-indices/internal/adapter/writer"
	"go.ngs.io/climate-indices/internal/domain"
	"go.ngs.io/climate-indices/internal/index"
)

// Publisher receives every computed result in addition to the output file.
type Publisher interface {
	Publish(ctx context.Context, runID uuid.UUID, provenance string, result *domain.IndexResult) (int, error)
}

// ComputeRequest encapsulates one index computation
type ComputeRequest struct {
	Index    string
	InFile   string
	Variable string
	OutFile  string

	// Base period as YYYY-MM-DD; both empty means the configured default.
	BaseStart string
	BaseEnd   string

	// "native" or "collaborator"; empty means the configured default.
	Engine string

	// "monthly" or "daily"; empty means the configured default.
	Timescale string

	// Provenance is recorded in the output history.
	Provenance string
}

// ComputeResponse summarises a finished computation
type ComputeResponse struct {
	RunID      string          `json:"run_id"`
	Index      string          `json:"index"`
	Output     string          `json:"output"`
	Engine     string          `json:"engine"`
	BasePeriod string          `json:"base_period"`
	TimeRange  string          `json:"time_range"`
	Steps      int             `json:"steps"`
	Series     []SeriesSummary `json:"series"`
	Published  int             `json:"published,omitempty"`
}

// SeriesSummary describes one output series. Statistics are nil when the
// series has no valid values.
type SeriesSummary struct {
	ID       string   `json:"id"`
	LongName string   `json:"long_name"`
	Units    string   `json:"units,omitempty"`
	Valid    int      `json:"valid"`
	Missing  int      `json:"missing"`
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Mean     *float64 `json:"mean"`
}

// ComputeOptions configures a ComputeUseCase.
type ComputeOptions struct {
	Operator      domain.BatchOperator
	Publisher     Publisher
	DefaultEngine index.Engine
	DefaultBase   domain.TimeRange
	Log           logrus.FieldLogger

	// Zero detects the timescale from each input's time axis.
	DefaultTimescale domain.CalendarUnits
}

// ComputeUseCase orchestrates index computation: load, compute, write and
// optionally publish.
type ComputeUseCase struct {
	loader    store.FieldLoader
	operator  domain.BatchOperator
	publisher Publisher
	engine    index.Engine
	base      domain.TimeRange
	timescale domain.CalendarUnits
	log       logrus.FieldLogger
}

// NewComputeUseCase creates a new compute use case
func NewComputeUseCase(loader store.FieldLoader, opts ComputeOptions) *ComputeUseCase {
	uc := &ComputeUseCase{
		loader:    loader,
		operator:  opts.Operator,
		publisher: opts.Publisher,
		engine:    opts.DefaultEngine,
		base:      opts.DefaultBase,
		timescale: opts.DefaultTimescale,
		log:       opts.Log,
	}
	if uc.engine == "" {
		uc.engine = index.EngineNative
	}
	if uc.base.Start.IsZero() && uc.base.End.IsZero() {
		uc.base = domain.DefaultBasePeriod()
	}
	if uc.log == nil {
		uc.log = logrus.StandardLogger()
	}
	return uc
}

// Validate checks if the request is valid
func (r *ComputeRequest) Validate() error {
	if _, err := index.Lookup(r.Index); err != nil {
		return err
	}
	if strings.TrimSpace(r.InFile) == "" {
		return domain.Preconditionf("request", "input file is required")
	}
	if strings.TrimSpace(r.Variable) == "" {
		return domain.Preconditionf("request", "variable is required")
	}
	if strings.TrimSpace(r.OutFile) == "" {
		return domain.Preconditionf("request", "output file is required")
	}
	if _, err := writer.ForPath(r.OutFile); err != nil {
		return err
	}
	if (r.BaseStart == "") != (r.BaseEnd == "") {
		return domain.Preconditionf("request", "base period needs both a start and an end")
	}
	if _, err := index.ParseEngine(r.Engine); err != nil {
		return err
	}
	if r.Timescale != "" {
		if _, err := domain.ParseCalendarUnits(r.Timescale); err != nil {
			return err
		}
	}
	return nil
}

// Base returns the requested base period, or def when none was given.
func (r *ComputeRequest) Base(def domain.TimeRange) (domain.TimeRange, error) {
	if r.BaseStart == "" && r.BaseEnd == "" {
		return def, nil
	}
	return domain.ParseTimeRange(r.BaseStart, r.BaseEnd)
}

// Execute computes the requested index and writes it to the output file
func (uc *ComputeUseCase) Execute(ctx context.Context, req ComputeRequest) (*ComputeResponse, error) {
	// Validate request
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	base, err := req.Base(uc.base)
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	engine := uc.engine
	if req.Engine != "" {
		engine, _ = index.ParseEngine(req.Engine)
	}
	timescale := uc.timescale
	if req.Timescale != "" {
		timescale, _ = domain.ParseCalendarUnits(req.Timescale)
	}
	out, _ := writer.ForPath(req.OutFile)

	log := uc.log.WithFields(logrus.Fields{
		"index":  strings.ToUpper(req.Index),
		"file":   req.InFile,
		"engine": engine,
	})
	start := time.Now()

	in := index.Input{
		Source:    store.Bind(uc.loader, req.InFile, req.Variable),
		Base:      base,
		Engine:    engine,
		Operator:  uc.operator,
		Timescale: timescale,
	}
	result, err := index.Compute(ctx, req.Index, in)
	if err != nil {
		log.WithError(err).Warn("index computation failed")
		return nil, err
	}

	provenance := req.Provenance
	if provenance == "" {
		provenance = fmt.Sprintf("climate-index calc %s %s %s %s", result.Index, req.InFile, req.Variable, req.OutFile)
	}
	if err := out.WriteSeries(req.OutFile, provenance, result); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", req.OutFile, err)
	}

	runID := uuid.New()
	response := &ComputeResponse{
		RunID:      runID.String(),
		Index:      result.Index,
		Output:     req.OutFile,
		Engine:     string(engine),
		BasePeriod: base.String(),
		TimeRange:  result.Time.FormatRange(),
		Steps:      result.Time.Len(),
		Series:     summarize(result),
	}

	if uc.publisher != nil {
		n, err := uc.publisher.Publish(ctx, runID, provenance, result)
		if err != nil {
			// A run that fails leaves no output behind.
			if rmErr := os.Remove(req.OutFile); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				log.WithError(rmErr).Warn("failed to remove output")
			}
			return nil, fmt.Errorf("failed to publish %s: %w", result.Index, err)
		}
		response.Published = n
	}

	log.WithFields(logrus.Fields{
		"output":  req.OutFile,
		"steps":   response.Steps,
		"elapsed": time.Since(start),
	}).Info("index written")
	return response, nil
}

func summarize(result *domain.IndexResult) []SeriesSummary {
	out := make([]SeriesSummary, len(result.Series))
	for k, s := range result.Series {
		valid := make([]float64, 0, len(s.Values))
		for _, v := range s.Values {
			if !math.IsNaN(v) {
				valid = append(valid, v)
			}
		}
		sum := SeriesSummary{
			ID:       s.Attrs.ID,
			LongName: s.Attrs.LongName,
			Units:    s.Attrs.Units,
			Valid:    len(valid),
			Missing:  len(s.Values) - len(valid),
		}
		if len(valid) > 0 {
			lo, hi := floats.Min(valid), floats.Max(valid)
			mean := roundToDecimal(stat.Mean(valid, nil), 6)
			sum.Min, sum.Max, sum.Mean = &lo, &hi, &mean
		}
		out[k] = sum
	}
	return out
}

// Helper function to round to decimal places
func roundToDecimal(val float64, precision int) float64 {
	multiplier := math.Pow(10, float64(precision))
	return math.Round(val*multiplier) / multiplier
}
