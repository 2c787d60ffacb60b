// Package export writes a table view back out in the comma-separated layout it
// was loaded from: header line first, one row per line, no field quoting.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/David-Botos/tag-remediation/pkg/model"
)

// Suggested download names
const (
	UntaggedFileName = "untagged_resources.csv"
	EditedFileName   = "cloudmart_remediated.csv"
	OriginalFileName = "cloudmart_original.csv"
)

// ContentType is the media type of an export
const ContentType = "text/csv; charset=utf-8"

// Write renders v to w. Missing cells are written as empty fields.
func Write(w io.Writer, v model.View) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(strings.Join(v.Schema().Columns(), ",")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := bw.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	fields := make([]string, v.Schema().Len())
	for i := 0; i < v.Len(); i++ {
		for c, cell := range v.Row(i).Cells() {
			fields[c] = cell.String()
		}
		if _, err := bw.WriteString(strings.Join(fields, ",")); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush export: %w", err)
	}
	return nil
}

// String renders v as delimited text
func String(v model.View) string {
	var sb strings.Builder
	// strings.Builder never returns a write error
	_ = Write(&sb, v)
	return sb.String()
}
