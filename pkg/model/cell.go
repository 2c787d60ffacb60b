// pkg/model/cell.go
package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// CellKind identifies what a Cell holds
type CellKind uint8

const (
	// KindMissing marks an absent value. The zero Cell is missing.
	KindMissing CellKind = iota
	// KindText is a trimmed, non-empty string
	KindText
	// KindNumber is a parsed numeric value (MonthlyCostUSD only)
	KindNumber
)

// Cell is a single table value: text, number, or missing
type Cell struct {
	kind CellKind
	text string
	num  float64
}

// Missing returns the missing-value marker
func Missing() Cell {
	return Cell{}
}

// Text returns a text cell. The empty string is canonicalized to missing.
func Text(s string) Cell {
	if s == "" {
		return Cell{}
	}
	return Cell{kind: KindText, text: s}
}

// Number returns a numeric cell. NaN and infinities are treated as missing.
func Number(f float64) Cell {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Cell{}
	}
	return Cell{kind: KindNumber, num: f}
}

// Kind reports what the cell holds
func (c Cell) Kind() CellKind {
	return c.kind
}

// IsMissing reports whether the cell is the missing marker
func (c Cell) IsMissing() bool {
	return c.kind == KindMissing
}

// Float returns the numeric value and whether the cell is numeric
func (c Cell) Float() (float64, bool) {
	if c.kind != KindNumber {
		return 0, false
	}
	return c.num, true
}

// Amount returns the numeric value, or 0 for anything that is not a number.
// Summations use this so that a missing cost contributes nothing.
func (c Cell) Amount() float64 {
	if c.kind != KindNumber {
		return 0
	}
	return c.num
}

// String renders the cell the way it is written to an export.
// Missing cells render as the empty string.
func (c Cell) String() string {
	switch c.kind {
	case KindText:
		return c.text
	case KindNumber:
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	default:
		return ""
	}
}

// Equal reports whether two cells hold the same kind and value
func (c Cell) Equal(other Cell) bool {
	return c.kind == other.kind && c.text == other.text && c.num == other.num
}

// MarshalJSON renders missing cells as null, numbers as numbers and text as strings
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case KindText:
		return json.Marshal(c.text)
	case KindNumber:
		return []byte(strconv.FormatFloat(c.num, 'f', -1, 64)), nil
	default:
		return []byte("null"), nil
	}
}

// MarshalYAML renders the cell as its natural scalar, or null when missing
func (c Cell) MarshalYAML() (interface{}, error) {
	switch c.kind {
	case KindText:
		return c.text, nil
	case KindNumber:
		return c.num, nil
	default:
		return nil, nil
	}
}
