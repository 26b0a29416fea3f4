package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"go.ngs.io/climate-indices/internal/domain"
)

// BatchRequest computes one index for several input files.
type BatchRequest struct {
	Index      string
	Variable   string
	InFiles    []string
	OutDir     string
	Extension  string // output format, e.g. ".nc" (default) or ".csv.gz"
	BaseStart  string
	BaseEnd    string
	Engine     string
	Timescale  string
	Provenance string
}

// BatchFailure records an input file whose computation failed.
type BatchFailure struct {
	InFile string `json:"infile"`
	Error  string `json:"error"`
}

// BatchResponse collects the outcome of every input file, in input order.
type BatchResponse struct {
	Results  []ComputeResponse `json:"results"`
	Failures []BatchFailure    `json:"failures,omitempty"`
}

// OutputName derives the output file name for one input of a batch:
// <input stem>_<index><ext>.
func OutputName(inFile, indexName, ext string) string {
	stem := filepath.Base(inFile)
	stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	return stem + "_" + strings.ToLower(indexName) + ext
}

// ExecuteBatch runs the computations with at most concurrency in flight.
// Files are independent: a failing file is reported and the others continue.
func (uc *ComputeUseCase) ExecuteBatch(ctx context.Context, req BatchRequest, concurrency int) (*BatchResponse, error) {
	if len(req.InFiles) == 0 {
		return nil, domain.Preconditionf("batch", "no input files")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	ext := req.Extension
	if ext == "" {
		ext = ".nc"
	}

	requests := make([]ComputeRequest, len(req.InFiles))
	seen := make(map[string]string, len(req.InFiles))
	for k, in := range req.InFiles {
		out := filepath.Join(req.OutDir, OutputName(in, req.Index, ext))
		if prev, ok := seen[out]; ok {
			return nil, domain.Preconditionf("batch", "inputs %s and %s map to the same output %s", prev, in, out)
		}
		seen[out] = in
		requests[k] = ComputeRequest{
			Index:      req.Index,
			InFile:     in,
			Variable:   req.Variable,
			OutFile:    out,
			BaseStart:  req.BaseStart,
			BaseEnd:    req.BaseEnd,
			Engine:     req.Engine,
			Timescale:  req.Timescale,
			Provenance: req.Provenance,
		}
		if err := requests[k].Validate(); err != nil {
			return nil, fmt.Errorf("invalid request: %w", err)
		}
	}

	results := make([]*ComputeResponse, len(requests))
	errs := make([]error, len(requests))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for k := range requests {
		g.Go(func() error {
			results[k], errs[k] = uc.Execute(gctx, requests[k])
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	response := &BatchResponse{}
	for k := range requests {
		if errs[k] != nil {
			response.Failures = append(response.Failures, BatchFailure{InFile: requests[k].InFile, Error: errs[k].Error()})
			continue
		}
		response.Results = append(response.Results, *results[k])
	}
	return response, nil
}
