package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/sheetsync/internal/core"
	"github.com/xuri/excelize/v2"
)

// XLSX reads rows from a worksheet of a local workbook, typically a sheet
// exported with File > Download > Microsoft Excel.
type XLSX struct {
	path  string
	sheet string
}

// NewXLSX creates an XLSX source. An empty sheet selects the first worksheet.
func NewXLSX(path, sheet string) (*XLSX, error) {
	if path == "" {
		return nil, errors.New("xlsx: path is required")
	}
	return &XLSX{path: path, sheet: sheet}, nil
}

// Name implements core.Source.
func (x *XLSX) Name() string { return "xlsx" }

// Fetch implements core.Source. Formula cells yield their formula text with a
// leading "=", matching the formula rendering of the Sheets API, so a
// HYPERLINK key cell maps the same way from either source.
func (x *XLSX) Fetch(ctx context.Context) ([]core.Row, error) {
	f, err := excelize.OpenFile(x.path)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open %s: %w", x.path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close workbook", "path", x.path, "error", err)
		}
	}()

	sheet := x.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("xlsx: sheet %q not found in %s", sheet, x.path)
	}

	values, err := f.GetRows(sheet)
	if err != nil {
		return nil, &core.DecodeError{Kind: core.DecodeMalformed, Row: -1, Column: -1, Err: err}
	}

	rows := make([]core.Row, len(values))
	for r, cells := range values {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for c := range cells {
			cellName, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				continue
			}
			formula, err := f.GetCellFormula(sheet, cellName)
			if err == nil && formula != "" {
				cells[c] = "=" + strings.TrimPrefix(formula, "=")
			}
		}
		rows[r] = core.DecodeTextRow(cells)
	}

	slog.Debug("workbook read", "path", x.path, "sheet", sheet, "rows", len(rows))
	return rows, nil
}
