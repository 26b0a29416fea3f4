package domain

import "context"

// OperatorKind selects the climatology operation delegated to a batch operator.
type OperatorKind string

const (
	OpAnomaly   OperatorKind = "anomaly"
	OpNormalize OperatorKind = "normalize"
)

// Reduction selects the spatial reduction applied before the operation.
type Reduction string

const (
	ReduceNone      Reduction = "none"
	ReduceFieldMean Reduction = "fldmean"
	ReduceZonalMean Reduction = "zonmean"
)

// OperatorRequest is a typed request for an external batch operator. The
// operator selects Region from InputPath, applies Reduce, and computes Kind
// against the climatology of Base.
type OperatorRequest struct {
	Kind      OperatorKind
	Calendar  CalendarUnits
	Reduce    Reduction
	Region    Region
	InputPath string
	Variable  string
	Base      TimeRange
}

// Validate checks that the request is complete.
func (r OperatorRequest) Validate() error {
	switch r.Kind {
	case OpAnomaly, OpNormalize:
	default:
		return Preconditionf("operator request", "unknown operation %q", r.Kind)
	}
	switch r.Reduce {
	case ReduceNone, ReduceFieldMean, ReduceZonalMean:
	default:
		return Preconditionf("operator request", "unknown reduction %q", r.Reduce)
	}
	if r.Calendar != Monthly && r.Calendar != Daily {
		return Preconditionf("operator request", "calendar units not set")
	}
	if r.InputPath == "" || r.Variable == "" {
		return Preconditionf("operator request", "input path and variable are required")
	}
	return r.Region.Validate()
}

// BatchOperator executes climatology operations outside the process.
// Failures are returned as CollaboratorFailureError.
type BatchOperator interface {
	Apply(ctx context.Context, req OperatorRequest) (*GridField, error)
}
