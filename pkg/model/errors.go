// pkg/model/errors.go
package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel reasons wrapped by IngestionError
var (
	ErrEmptyContent    = errors.New("file is empty")
	ErrEmptyHeader     = errors.New("header line yields no columns")
	ErrDuplicateColumn = errors.New("duplicate column in header")
	ErrEmptyColumnName = errors.New("empty column name in header")
	ErrUnrepairableRow = errors.New("row cannot be repaired to schema length")
	ErrInvalidEncoding = errors.New("content is not valid UTF-8")
	ErrNoSession       = errors.New("no file has been loaded in this session")
	ErrInvalidPolicy   = errors.New("invalid repair policy")
	ErrUnknownColumn   = errors.New("unknown column")
)

// ErrorCategory classifies failures surfaced by the core
type ErrorCategory int

const (
	ErrorCategoryNone ErrorCategory = iota
	// ErrorCategoryCoercion is a cost cell that failed to parse; never fatal
	ErrorCategoryCoercion
	// ErrorCategoryEditRejected is a single dropped edit; never fatal
	ErrorCategoryEditRejected
	// ErrorCategorySchema is fatal to the current upload
	ErrorCategorySchema
	// ErrorCategoryIngestion is fatal to the current upload
	ErrorCategoryIngestion
	// ErrorCategoryInternal covers everything else
	ErrorCategoryInternal
)

// String returns a string representation of the error category
func (ec ErrorCategory) String() string {
	switch ec {
	case ErrorCategoryNone:
		return "None"
	case ErrorCategoryCoercion:
		return "Coercion"
	case ErrorCategoryEditRejected:
		return "EditRejected"
	case ErrorCategorySchema:
		return "Schema"
	case ErrorCategoryIngestion:
		return "Ingestion"
	case ErrorCategoryInternal:
		return "Internal"
	default:
		return fmt.Sprintf("Unknown(%d)", ec)
	}
}

// Fatal reports whether the category aborts the current upload
func (ec ErrorCategory) Fatal() bool {
	return ec == ErrorCategorySchema || ec == ErrorCategoryIngestion
}

// IngestionError aborts loading of a whole file. No table is published.
type IngestionError struct {
	Line   int // 1-based physical line, 0 when not line specific
	Reason error
	Detail string
}

func (e *IngestionError) Error() string {
	var sb strings.Builder
	sb.WriteString("ingestion failed")
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(" at line %d", e.Line))
	}
	sb.WriteString(": ")
	sb.WriteString(e.Reason.Error())
	if e.Detail != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Detail)
		sb.WriteString(")")
	}
	return sb.String()
}

func (e *IngestionError) Unwrap() error {
	return e.Reason
}

// SchemaError reports required columns absent after loading
type SchemaError struct {
	Missing   []string
	Available []string
	Required  []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s (available: %s; required: %s)",
		strings.Join(e.Missing, ", "),
		strings.Join(e.Available, ", "),
		strings.Join(e.Required, ", "))
}

// RejectReason explains why an edit was dropped from a batch
type RejectReason string

const (
	RejectUnknownRow     RejectReason = "unknown_row"
	RejectUnknownColumn  RejectReason = "unknown_column"
	RejectNotEditable    RejectReason = "column_not_editable"
	RejectNotUntagged    RejectReason = "row_not_untagged"
	RejectUnresolvedName RejectReason = "unresolved_resource_id"
)

// EditRejection is a non-fatal, per-edit failure. The rest of the batch still applies.
type EditRejection struct {
	Row    int          `json:"row" yaml:"row"`
	Column string       `json:"column" yaml:"column"`
	Value  string       `json:"value" yaml:"value"`
	Reason RejectReason `json:"reason" yaml:"reason"`
}

func (r EditRejection) Error() string {
	return fmt.Sprintf("edit rejected: row %d column %q: %s", r.Row, r.Column, r.Reason)
}

// Categorize determines the category of an error
func Categorize(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryNone
	}

	var ingestErr *IngestionError
	if errors.As(err, &ingestErr) {
		return ErrorCategoryIngestion
	}

	var schemaErr *SchemaError
	if errors.As(err, &schemaErr) {
		return ErrorCategorySchema
	}

	var rejection EditRejection
	if errors.As(err, &rejection) {
		return ErrorCategoryEditRejected
	}

	return ErrorCategoryInternal
}
