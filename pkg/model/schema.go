// pkg/model/schema.go
package model

import (
	"fmt"
	"slices"
)

// Column names used by downstream logic. Columns are always addressed by name.
const (
	ColAccountID      = "AccountID"
	ColResourceID     = "ResourceID"
	ColService        = "Service"
	ColRegion         = "Region"
	ColDepartment     = "Department"
	ColProject        = "Project"
	ColEnvironment    = "Environment"
	ColOwner          = "Owner"
	ColCostCenter     = "CostCenter"
	ColCreatedBy      = "CreatedBy"
	ColMonthlyCostUSD = "MonthlyCostUSD"
	ColTagged         = "Tagged"
)

// Values of the Tagged column
const (
	TaggedYes = "Yes"
	TaggedNo  = "No"
)

// RequiredColumns must all be present for a file to be accepted
var RequiredColumns = []string{ColResourceID, ColService, ColMonthlyCostUSD, ColTagged}

// TagFields are the governance fields scored by tag completeness
var TagFields = []string{ColDepartment, ColProject, ColEnvironment, ColOwner, ColCostCenter}

// AccountabilityFields gate the automatic Yes on the Tagged column.
// Environment and CostCenter are scored for completeness but do not gate tagging.
var AccountabilityFields = []string{ColDepartment, ColProject, ColOwner}

// ProtectedColumns can never be edited through remediation
var ProtectedColumns = []string{
	ColAccountID, ColResourceID, ColService, ColRegion,
	ColMonthlyCostUSD, ColCreatedBy, ColTagged,
}

// IsEditable reports whether a column may be changed by a remediation edit
func IsEditable(column string) bool {
	return !slices.Contains(ProtectedColumns, column)
}

// ColumnType is the declared type of a column
type ColumnType uint8

const (
	// TypeText columns hold trimmed strings
	TypeText ColumnType = iota
	// TypeNumber columns are parsed as float64 with lossy coercion
	TypeNumber
)

// String returns the type name
func (t ColumnType) String() string {
	if t == TypeNumber {
		return "number"
	}
	return "text"
}

// Schema is the ordered list of columns read from a header line
type Schema struct {
	columns []string
	types   []ColumnType
	index   map[string]int
}

// NewSchema builds a Schema from header names in order.
// MonthlyCostUSD is declared numeric; every other column is text.
func NewSchema(columns []string) (Schema, error) {
	s := Schema{
		columns: make([]string, len(columns)),
		types:   make([]ColumnType, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, name := range columns {
		if name == "" {
			return Schema{}, fmt.Errorf("%w: column %d", ErrEmptyColumnName, i+1)
		}
		if _, dup := s.index[name]; dup {
			return Schema{}, fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
		}
		s.columns[i] = name
		s.index[name] = i
		if name == ColMonthlyCostUSD {
			s.types[i] = TypeNumber
		}
	}
	return s, nil
}

// Columns returns a copy of the ordered column names
func (s Schema) Columns() []string {
	return slices.Clone(s.columns)
}

// Len returns the number of columns
func (s Schema) Len() int {
	return len(s.columns)
}

// Index returns the position of a column
func (s Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Has reports whether the column exists
func (s Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Type returns the declared type of the column at position i
func (s Schema) Type(i int) ColumnType {
	return s.types[i]
}

// Present filters names down to the columns that exist, keeping their order
func (s Schema) Present(names []string) []string {
	present := make([]string, 0, len(names))
	for _, name := range names {
		if s.Has(name) {
			present = append(present, name)
		}
	}
	return present
}

// MissingRequired returns the required columns absent from the schema
func (s Schema) MissingRequired() []string {
	var missing []string
	for _, name := range RequiredColumns {
		if !s.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Equal reports whether two schemas have the same columns in the same order
func (s Schema) Equal(other Schema) bool {
	return slices.Equal(s.columns, other.columns)
}
