// pkg/cleaner/loader.go
package cleaner

import (
	"strings"

	"github.com/David-Botos/tag-remediation/pkg/model"
)

// Coercion records a numeric cell that could not be parsed and became missing
type Coercion struct {
	Line   int
	Row    int
	Column string
	Raw    string
}

// BuildTable applies column typing and missing-value canonicalization to parsed rows.
// It fails with an IngestionError on a bad header and a SchemaError when a
// required column is absent.
func BuildTable(parsed *ParsedRows) (*model.Table, []Coercion, error) {
	schema, err := model.NewSchema(parsed.Header)
	if err != nil {
		return nil, nil, &model.IngestionError{Line: parsed.HeaderLine, Reason: err}
	}

	if missing := schema.MissingRequired(); len(missing) > 0 {
		return nil, nil, &model.SchemaError{
			Missing:   missing,
			Available: schema.Columns(),
			Required:  append([]string(nil), model.RequiredColumns...),
		}
	}

	table := model.NewTable(schema)
	var coercions []Coercion
	cells := make([]model.Cell, schema.Len())

	for r, fields := range parsed.Rows {
		for i, raw := range fields {
			value := strings.TrimSpace(raw)

			if schema.Type(i) != model.TypeNumber {
				cells[i] = model.Text(value)
				continue
			}

			cost, ok := parseCost(value)
			if !ok {
				cells[i] = model.Missing()
				if value != "" {
					coercions = append(coercions, Coercion{
						Line:   parsed.Lines[r],
						Row:    r,
						Column: parsed.Header[i],
						Raw:    value,
					})
				}
				continue
			}
			cells[i] = model.Number(cost)
		}

		if err := table.Append(cells); err != nil {
			return nil, nil, &model.IngestionError{Line: parsed.Lines[r], Reason: model.ErrUnrepairableRow, Detail: err.Error()}
		}
	}

	return table, coercions, nil
}
