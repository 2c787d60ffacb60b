// pkg/cleaner/repair.go
package cleaner

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/David-Botos/tag-remediation/pkg/model"
)

// DefaultTrailingColumns is the number of trailing fields the export always
// fills in: CreatedBy, MonthlyCostUSD and Tagged.
const DefaultTrailingColumns = 3

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// RepairPolicy controls how short rows are reconstructed.
//
// A short row keeps its last TrailingColumns fields at the end of the row and
// gets the missing fields inserted just before them, so the gaps land in the
// optional middle columns rather than in the cost and status columns.
type RepairPolicy struct {
	TrailingColumns int
}

// DefaultRepairPolicy returns the right-alignment policy with 3 guaranteed trailing columns
func DefaultRepairPolicy() RepairPolicy {
	return RepairPolicy{TrailingColumns: DefaultTrailingColumns}
}

// Validate ensures the policy is usable
func (p RepairPolicy) Validate() error {
	if p.TrailingColumns < 0 {
		return fmt.Errorf("%w: trailing columns cannot be negative (got %d)", model.ErrInvalidPolicy, p.TrailingColumns)
	}
	return nil
}

// RepairKind describes what happened to a row during parsing
type RepairKind string

const (
	RepairNone         RepairKind = ""
	RepairRightAligned RepairKind = "right_aligned"
	RepairTruncated    RepairKind = "truncated"
)

// RowRepair records a row whose field count did not match the header
type RowRepair struct {
	Line   int        // 1-based physical line number
	Kind   RepairKind // What was done
	Fields int        // Field count before repair
	Width  int        // Schema width the row was brought to
}

// ParsedRows is the output of the row repair parser: a header and
// a rectangular set of raw string fields
type ParsedRows struct {
	Header     []string
	HeaderLine int
	Rows       [][]string
	Lines      []int // physical line of each row
	Repairs    []RowRepair
}

// Width returns the schema width N
func (p *ParsedRows) Width() int {
	return len(p.Header)
}

// Repair brings fields to exactly width entries.
// Long rows are truncated; short rows are right-aligned on the trailing columns.
func (p RepairPolicy) Repair(fields []string, width int) ([]string, RepairKind, error) {
	n := len(fields)
	switch {
	case n == width:
		return fields, RepairNone, nil
	case n > width:
		return fields[:width], RepairTruncated, nil
	}

	if n < p.TrailingColumns {
		return nil, RepairNone, fmt.Errorf("%w: %d fields, need at least %d", model.ErrUnrepairableRow, n, p.TrailingColumns)
	}

	split := n - p.TrailingColumns
	repaired := make([]string, 0, width)
	repaired = append(repaired, fields[:split]...)
	for i := 0; i < width-n; i++ {
		repaired = append(repaired, "")
	}
	repaired = append(repaired, fields[split:]...)

	return repaired, RepairRightAligned, nil
}

// ParseRows turns raw delimited content into a header and fixed-width rows.
// Any malformed input aborts the whole parse; nothing partial is returned.
func ParseRows(content []byte, policy RepairPolicy) (*ParsedRows, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		return nil, &model.IngestionError{Reason: model.ErrInvalidEncoding}
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, &model.IngestionError{Reason: model.ErrEmptyContent}
	}

	lines := strings.Split(string(content), "\n")

	// First non-empty line is the header
	headerIdx := 0
	for headerIdx < len(lines) && strings.TrimSpace(lines[headerIdx]) == "" {
		headerIdx++
	}

	headerLine := stripEnclosingQuotes(strings.TrimSpace(lines[headerIdx]))
	if strings.TrimSpace(headerLine) == "" {
		return nil, &model.IngestionError{Line: headerIdx + 1, Reason: model.ErrEmptyHeader}
	}

	header := strings.Split(headerLine, ",")
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	parsed := &ParsedRows{
		Header:     header,
		HeaderLine: headerIdx + 1,
	}
	width := len(header)

	for i := headerIdx + 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		lineNo := i + 1

		fields := strings.Split(stripEnclosingQuotes(line), ",")
		row, kind, err := policy.Repair(fields, width)
		if err != nil {
			return nil, &model.IngestionError{
				Line:   lineNo,
				Reason: model.ErrUnrepairableRow,
				Detail: fmt.Sprintf("%d fields, header has %d, policy keeps %d trailing", len(fields), width, policy.TrailingColumns),
			}
		}

		if kind != RepairNone {
			parsed.Repairs = append(parsed.Repairs, RowRepair{
				Line:   lineNo,
				Kind:   kind,
				Fields: len(fields),
				Width:  width,
			})
		}

		parsed.Rows = append(parsed.Rows, row)
		parsed.Lines = append(parsed.Lines, lineNo)
	}

	return parsed, nil
}

// stripEnclosingQuotes removes one pair of double quotes wrapping the whole string
func stripEnclosingQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
