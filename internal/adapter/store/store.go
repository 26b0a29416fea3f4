package store

import (
	"go.ngs.io/climate-indices/internal/domain"
)

// FieldLoader is the interface for loading gridded fields from dataset files.
type FieldLoader interface {
	// LoadField reads variable from the file at path, restricted by opts.
	LoadField(path, variable string, opts LoadOptions) (*domain.GridField, error)

	// GlobalAttributes returns the file-level attributes of the dataset.
	GlobalAttributes(path string) (map[string]string, error)
}

// LoadOptions restricts a load to a region and a time range. Nil means no
// restriction.
type LoadOptions struct {
	Region *domain.Region
	Time   *domain.TimeRange
}

// Apply restricts an already loaded field according to opts.
func (o LoadOptions) Apply(f *domain.GridField) (*domain.GridField, error) {
	if o.Region == nil && o.Time == nil {
		return f, nil
	}
	region := domain.Global
	if o.Region != nil {
		region = *o.Region
	}
	return domain.Select(f, region, o.Time)
}

// Bound ties a loader to one input file and variable so index formulas can
// load regions without knowing where the data lives.
type Bound struct {
	loader   FieldLoader
	path     string
	variable string
}

// Bind creates a Bound source.
func Bind(loader FieldLoader, path, variable string) *Bound {
	return &Bound{loader: loader, path: path, variable: variable}
}

// Load reads the bound variable restricted to region and, if non-nil, tr.
func (b *Bound) Load(region domain.Region, tr *domain.TimeRange) (*domain.GridField, error) {
	return b.loader.LoadField(b.path, b.variable, LoadOptions{Region: &region, Time: tr})
}

// Path returns the bound file path.
func (b *Bound) Path() string { return b.path }

// Variable returns the bound variable name.
func (b *Bound) Variable() string { return b.variable }
