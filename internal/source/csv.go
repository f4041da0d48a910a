package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JonMunkholm/sheetsync/internal/core"
)

// CSV reads rows from a comma-separated export of the sheet. Cells carry the
// exported values, so HYPERLINK cells arrive as their display text.
type CSV struct {
	path string
}

// NewCSV creates a CSV source.
func NewCSV(path string) (*CSV, error) {
	if path == "" {
		return nil, errors.New("csv: path is required")
	}
	return &CSV{path: path}, nil
}

// Name implements core.Source.
func (c *CSV) Name() string { return "csv" }

// Fetch implements core.Source.
func (c *CSV) Fetch(ctx context.Context) ([]core.Row, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	defer f.Close()

	rows, err := ReadCSV(ctx, f)
	if err != nil {
		return nil, err
	}

	slog.Debug("csv read", "path", c.path, "rows", len(rows))
	return rows, nil
}

// ReadCSV decodes every record of r. Records may have different lengths.
func ReadCSV(ctx context.Context, r io.Reader) ([]core.Row, error) {
	reader := csv.NewReader(newCleanReader(r))
	reader.FieldsPerRecord = -1

	var rows []core.Row
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := -1
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line - 1
			}
			return nil, &core.DecodeError{Kind: core.DecodeMalformed, Row: line, Column: -1, Err: err}
		}
		rows = append(rows, core.DecodeTextRow(record))
	}
	return rows, nil
}
