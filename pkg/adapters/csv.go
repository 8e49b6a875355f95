package adapters

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/HatiCode/salescast/pkg/dataset"
)

// CSVSource reads a sales panel from a local CSV file. The first row must
// be a header naming the columns; every subsequent row becomes one raw
// record with string-typed values.
type CSVSource struct {
	// Path is the CSV file to read (required).
	Path string
}

func (s *CSVSource) Name() string { return "csv" }

// Fetch reads the whole file into a raw table. Rows shorter than the header
// are rejected; trailing empty fields are kept as empty strings, which the
// dataset layer treats as nulls.
func (s *CSVSource) Fetch(ctx context.Context) (*dataset.Table, error) {
	if s.Path == "" {
		return nil, fmt.Errorf("csv source: path is required")
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("csv source: open %s: %w", s.Path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = false

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("csv source: read header: %w", err)
	}

	table := &dataset.Table{Columns: append([]string(nil), header...)}

	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv source: line %d: %w", line, err)
		}

		row := make(dataset.Row, len(header))
		for i, col := range header {
			row[col] = fields[i]
		}
		table.Rows = append(table.Rows, row)
	}

	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("csv source: %s contains no data rows", s.Path)
	}
	return table, nil
}
