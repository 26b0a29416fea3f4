// Package index defines the catalog of climate indices and computes them from
// gridded fields.
package index

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.ngs.io/climate-indices/internal/domain"
)

// Family groups indices that share a formula.
type Family int

const (
	FamilyNino Family = iota + 1
	FamilyNinoNew
	FamilyIEMI
	FamilySAM
	FamilyZW3
	FamilyMEX
	FamilyASL
)

func (f Family) String() string {
	switch f {
	case FamilyNino:
		return "NINO"
	case FamilyNinoNew:
		return "NINO_new"
	case FamilyIEMI:
		return "IEMI"
	case FamilySAM:
		return "SAM"
	case FamilyZW3:
		return "ZW3"
	case FamilyMEX:
		return "MEX"
	case FamilyASL:
		return "ASL"
	default:
		return "unknown"
	}
}

// Engine selects where climatology operations run.
type Engine string

const (
	EngineNative       Engine = "native"
	EngineCollaborator Engine = "collaborator"
)

// ParseEngine parses an engine name; the empty string means native.
func ParseEngine(s string) (Engine, error) {
	switch Engine(strings.ToLower(s)) {
	case "", EngineNative:
		return EngineNative, nil
	case EngineCollaborator, "cdo":
		return EngineCollaborator, nil
	}
	return "", domain.Preconditionf("engine", "unknown engine %q", s)
}

// FieldSource loads regions of one input variable.
type FieldSource interface {
	Load(region domain.Region, tr *domain.TimeRange) (*domain.GridField, error)
	Path() string
	Variable() string
}

// Input carries everything an index computation needs.
type Input struct {
	Source   FieldSource
	Base     domain.TimeRange
	Engine   Engine
	Operator domain.BatchOperator

	// Timescale overrides detection from the time axis when non-zero.
	Timescale domain.CalendarUnits
}

func (in Input) validate() error {
	if in.Source == nil {
		return domain.Preconditionf("input", "no field source")
	}
	if in.Base.End.Before(in.Base.Start) {
		return domain.Preconditionf("input", "base period %s ends before it starts", in.Base)
	}
	switch in.Engine {
	case EngineNative, "":
	case EngineCollaborator:
		if in.Operator == nil {
			return domain.Preconditionf("input", "collaborator engine requested without a batch operator")
		}
	default:
		return domain.Preconditionf("input", "unknown engine %q", in.Engine)
	}
	switch in.Timescale {
	case 0, domain.Monthly, domain.Daily:
	default:
		return domain.Preconditionf("input", "unknown timescale %d", in.Timescale)
	}
	return nil
}

func (in Input) collaborator() bool { return in.Engine == EngineCollaborator }

type formula func(ctx context.Context, e Entry, in Input) (*domain.IndexResult, error)

// Entry describes one catalog index.
type Entry struct {
	Name          string           `json:"name"`
	Family        Family           `json:"-"`
	FamilyName    string           `json:"family"`
	Regions       []string         `json:"regions"`
	RequiredOrder domain.AxisOrder `json:"required_order"`
	Collaborator  bool             `json:"collaborator"`
	Description   string           `json:"description"`
	Reference     string           `json:"reference,omitempty"`

	compute formula
}

func entry(name string, family Family, order domain.AxisOrder, regions []string, collaborator bool, description, reference string, fn formula) Entry {
	return Entry{
		Name:          name,
		Family:        family,
		FamilyName:    family.String(),
		Regions:       regions,
		RequiredOrder: order,
		Collaborator:  collaborator,
		Description:   description,
		Reference:     reference,
		compute:       fn,
	}
}

const (
	refRenJin  = "Ren & Jin 2011, GRL, 38, L04704"
	refIEMI    = "Li et al 2010, Adv Atmos Sci, 27, 1210-20. doi:10.1007/s00376-010-9173-5"
	refSAM     = "Gong & Wang (1999). GRL, 26, 459-462. doi:10.1029/1999GL900003"
	refZW3     = "ZW3 index of Raphael (2004)"
	refMEX     = "MEX index of Coumou (2014) doi:10.1073/pnas.1412797111"
	refASL     = "Turner et al (2013). Int J Clim. 33, 1818-1829. doi:10.1002/joc.3558."
	descNino   = "Area-mean anomaly of %s relative to the base-period climatology"
	descRenJin = "Ren & Jin (2011) combination of the NINO3 and NINO4 anomalies"
)

// catalog is read-only after package initialisation. The reductions read
// cells through GridField accessors, so no formula depends on the storage
// layout of its input.
var catalog = map[string]Entry{
	"NINO12": entry("NINO12", FamilyNino, domain.OrderAny, []string{"nino12"}, false, ninoDescription("nino12"), "", computeNino),
	"NINO3":  entry("NINO3", FamilyNino, domain.OrderAny, []string{"nino3"}, false, ninoDescription("nino3"), "", computeNino),
	"NINO4":  entry("NINO4", FamilyNino, domain.OrderAny, []string{"nino4"}, false, ninoDescription("nino4"), "", computeNino),
	"NINO34": entry("NINO34", FamilyNino, domain.OrderAny, []string{"nino34"}, false, ninoDescription("nino34"), "", computeNino),
	"NINOCT": entry("NINOCT", FamilyNinoNew, domain.OrderAny, []string{"nino3", "nino4"}, false, descRenJin+" (cold tongue)", refRenJin, computeNinoNew),
	"NINOWP": entry("NINOWP", FamilyNinoNew, domain.OrderAny, []string{"nino3", "nino4"}, false, descRenJin+" (warm pool)", refRenJin, computeNinoNew),
	"IEMI": entry("IEMI", FamilyIEMI, domain.OrderAny, []string{"emia", "emib", "emic"}, false,
		"Improved ENSO Modoki index: 3*A - 2*B - C of regional area-mean anomalies", refIEMI, computeIEMI),
	"SAM": entry("SAM", FamilySAM, domain.OrderAny, []string{"sh"}, true,
		"Difference of normalized zonal-mean pressure at 40S and 65S", refSAM, computeSAM),
	"ZW3": entry("ZW3", FamilyZW3, domain.OrderAny, []string{"zw31", "zw32", "zw33"}, true,
		"Mean of three normalized regional area means of geopotential height", refZW3, computeZW3),
	"MEX": entry("MEX", FamilyMEX, domain.OrderAny, []string{"mex"}, true,
		"Standardized area mean of squared normalized anomalies", refMEX, computeMEX),
	// Minimum locations are searched latitude-major whatever the layout.
	"ASL": entry("ASL", FamilyASL, domain.OrderAny, []string{"asl"}, false,
		"Amundsen Sea Low: minimum pressure and its location", refASL, computeASL),
}

// collaboratorOrder is the layout the batch operator reads.
const collaboratorOrder = domain.OrderTYX

func ninoDescription(region string) string {
	return fmt.Sprintf(descNino, regionBounds(region))
}

func regionBounds(name string) string {
	r, err := domain.LookupRegion(name)
	if err != nil {
		return name
	}
	return r.String()
}

// Lookup returns the catalog entry for name, case-insensitively.
func Lookup(name string) (Entry, error) {
	e, ok := catalog[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Entry{}, domain.Preconditionf("catalog", "unknown index %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return e, nil
}

// Names returns the catalog index names in sorted order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries returns all catalog entries sorted by name.
func Entries() []Entry {
	out := make([]Entry, 0, len(catalog))
	for _, name := range Names() {
		out = append(out, catalog[name])
	}
	return out
}

// Compute evaluates the named index.
func Compute(ctx context.Context, name string, in Input) (*domain.IndexResult, error) {
	e, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, domain.Annotate(err, e.Name, "")
	}
	if in.collaborator() && !e.Collaborator {
		in.Engine = EngineNative
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := e.compute(ctx, e, in)
	if err != nil {
		return nil, domain.Annotate(err, e.Name, "")
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}
