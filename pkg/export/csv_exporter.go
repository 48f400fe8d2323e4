package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Table is a positional, column-ordered dataset ready for rendering.
// Rows must carry their cells in the same order as Columns.
type Table struct {
	Columns []string
	Rows    [][]string
}

// CSVExporter renders a Table as RFC 4180 CSV.
type CSVExporter struct{}

func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render encodes the table, header row first. Short rows are padded with
// empty cells so every record has the full column count.
func (e *CSVExporter) Render(table Table) ([]byte, error) {
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("csv export needs at least one column")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(table.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	width := len(table.Columns)
	for i, row := range table.Rows {
		if len(row) > width {
			return nil, fmt.Errorf("csv row %d has %d cells, table has %d columns", i, len(row), width)
		}
		record := make([]string, width)
		copy(record, row)
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
