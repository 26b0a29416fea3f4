package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrPrecondition = errors.New("precondition failed")
	ErrDataQuality  = errors.New("data quality error")
	ErrCollaborator = errors.New("collaborator failure")
)

// Context identifies where in a computation an error was raised.
type Context struct {
	Index  string
	Region string
	Step   string
}

func (c Context) String() string {
	parts := make([]string, 0, 3)
	if c.Index != "" {
		parts = append(parts, "index "+c.Index)
	}
	if c.Region != "" {
		parts = append(parts, "region "+c.Region)
	}
	if c.Step != "" {
		parts = append(parts, c.Step)
	}
	return strings.Join(parts, ": ")
}

func describe(c Context, kind, err error) string {
	msg := kind.Error()
	if err != nil {
		msg += ": " + err.Error()
	}
	if prefix := c.String(); prefix != "" {
		return prefix + ": " + msg
	}
	return msg
}

func unwrapWith(kind, err error) []error {
	if err == nil {
		return []error{kind}
	}
	return []error{kind, err}
}

// PreconditionError reports invalid input: wrong axis order, a base period
// outside the data, an unknown index name and similar. Never retried.
type PreconditionError struct {
	Context
	Err error
}

func (e *PreconditionError) Error() string   { return describe(e.Context, ErrPrecondition, e.Err) }
func (e *PreconditionError) Unwrap() []error { return unwrapWith(ErrPrecondition, e.Err) }

// DataQualityError reports data that cannot yield a defined statistic where
// the computation requires one (e.g. a zero standard deviation divisor).
type DataQualityError struct {
	Context
	Err error
}

func (e *DataQualityError) Error() string   { return describe(e.Context, ErrDataQuality, e.Err) }
func (e *DataQualityError) Unwrap() []error { return unwrapWith(ErrDataQuality, e.Err) }

// CollaboratorFailureError reports a failed external batch-operator call.
type CollaboratorFailureError struct {
	Context
	Err error
}

func (e *CollaboratorFailureError) Error() string   { return describe(e.Context, ErrCollaborator, e.Err) }
func (e *CollaboratorFailureError) Unwrap() []error { return unwrapWith(ErrCollaborator, e.Err) }

// Preconditionf creates a PreconditionError for the given step.
func Preconditionf(step, format string, args ...any) error {
	return &PreconditionError{Context: Context{Step: step}, Err: fmt.Errorf(format, args...)}
}

// DataQualityf creates a DataQualityError for the given step.
func DataQualityf(step, format string, args ...any) error {
	return &DataQualityError{Context: Context{Step: step}, Err: fmt.Errorf(format, args...)}
}

// CollaboratorFailure wraps err as a CollaboratorFailureError for the given step.
func CollaboratorFailure(step string, err error) error {
	return &CollaboratorFailureError{Context: Context{Step: step}, Err: err}
}

// Annotate fills in the index and region of a typed domain error that does
// not carry them yet. Other errors are wrapped with a plain prefix.
func Annotate(err error, index, region string) error {
	if err == nil {
		return nil
	}
	var ctx *Context
	var pe *PreconditionError
	var de *DataQualityError
	var ce *CollaboratorFailureError
	switch {
	case errors.As(err, &pe):
		ctx = &pe.Context
	case errors.As(err, &de):
		ctx = &de.Context
	case errors.As(err, &ce):
		ctx = &ce.Context
	}
	if ctx == nil {
		prefix := Context{Index: index, Region: region}.String()
		if prefix == "" {
			return err
		}
		return fmt.Errorf("%s: %w", prefix, err)
	}
	if ctx.Index == "" {
		ctx.Index = index
	}
	if ctx.Region == "" {
		ctx.Region = region
	}
	return err
}
