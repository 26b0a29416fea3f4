// Package cdo runs climatology operations through the Climate Data Operators
// command-line tool.
package cdo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"go.ngs.io/climate-indices/internal/adapter/store"
	"go.ngs.io/climate-indices/internal/domain"
)

// DefaultCommand is the executable looked up on PATH when none is configured.
const DefaultCommand = "cdo"

// Runner executes operator requests with CDO and reads the result back
// through Loader. It implements domain.BatchOperator.
type Runner struct {
	Command string
	Loader  store.FieldLoader
	TempDir string
	Log     logrus.FieldLogger
}

// NewRunner creates a runner for command; an empty command means DefaultCommand.
func NewRunner(command string, loader store.FieldLoader, log logrus.FieldLogger) *Runner {
	if command == "" {
		command = DefaultCommand
	}
	return &Runner{Command: command, Loader: loader, Log: log}
}

// Args returns the CDO argument list for req writing to out. The chain is
//
//	y{mon,day}sub X -y{mon,day}avg B           (anomaly)
//	y{mon,day}div -y{mon,day}sub X -y{mon,day}avg B -y{mon,day}std B   (normalize)
//
// where X is the reduced region of the input and B is X restricted to the
// base period.
func Args(req domain.OperatorRequest, out string) ([]string, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var ts string
	switch req.Calendar {
	case domain.Monthly:
		ts = "mon"
	case domain.Daily:
		ts = "day"
	}

	x := selection(req)
	b := append([]string{fmt.Sprintf("-seldate,%s,%s", req.Base.Start.Format(time.DateOnly), req.Base.End.Format(time.DateOnly))}, x...)

	args := []string{"-O", "-f", "nc"}
	switch req.Kind {
	case domain.OpAnomaly:
		args = append(args, "y"+ts+"sub")
		args = append(args, x...)
		args = append(args, "-y"+ts+"avg")
		args = append(args, b...)
	case domain.OpNormalize:
		args = append(args, "y"+ts+"div", "-y"+ts+"sub")
		args = append(args, x...)
		args = append(args, "-y"+ts+"avg")
		args = append(args, b...)
		args = append(args, "-y"+ts+"std")
		args = append(args, b...)
	}
	return append(args, out), nil
}

// selection returns the operator chain selecting and reducing the region.
func selection(req domain.OperatorRequest) []string {
	var chain []string
	switch req.Reduce {
	case domain.ReduceFieldMean:
		chain = append(chain, "-fldmean")
	case domain.ReduceZonalMean:
		chain = append(chain, "-zonmean")
	}
	r := req.Region
	west := r.West
	if r.Wraps() {
		// sellonlatbox expects west < east; shift the western edge below 0.
		west = math.Mod(west, 360)
		if west > 0 {
			west -= 360
		}
	}
	return append(chain,
		"-sellonlatbox,"+coord(west)+","+coord(r.East)+","+coord(r.South)+","+coord(r.North),
		"-selname,"+req.Variable,
		req.InputPath,
	)
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Apply runs req and loads the resulting field. Any failure of the external
// tool is reported as a CollaboratorFailureError.
func (r *Runner) Apply(ctx context.Context, req domain.OperatorRequest) (*domain.GridField, error) {
	tmp, err := os.CreateTemp(r.TempDir, "climidx-*.nc")
	if err != nil {
		return nil, domain.CollaboratorFailure("temp file", err)
	}
	out := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(out) }()

	args, err := Args(req, out)
	if err != nil {
		return nil, err
	}

	log := r.logger().WithFields(logrus.Fields{"region": req.Region.Name, "op": req.Kind, "reduce": req.Reduce})
	log.Debugf("%s %s", r.Command, strings.Join(args, " "))

	start := time.Now()
	//nolint:gosec // G204: command is configured by the operator; args contain no shell syntax.
	cmd := exec.CommandContext(ctx, r.Command, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, domain.CollaboratorFailure("run", fmt.Errorf("%s exited with status %d: %s", r.Command, exitErr.ExitCode(), msg))
		}
		return nil, domain.CollaboratorFailure("run", fmt.Errorf("%s: %w", r.Command, err))
	}

	field, err := r.Loader.LoadField(out, req.Variable, store.LoadOptions{})
	if err != nil {
		return nil, domain.CollaboratorFailure("read result", err)
	}
	log.WithField("elapsed", time.Since(start)).Debug("cdo finished")
	return field, nil
}

func (r *Runner) logger() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}
