// Package source provides the row sources a sync pass reads from: the Google
// Sheets API, a local xlsx workbook and a CSV export. Every source returns the
// whole payload, header rows included, as decoded core.Rows.
package source

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/sheetsync/internal/config"
	"github.com/JonMunkholm/sheetsync/internal/core"
)

// TokenSetter is implemented by sources that authenticate with a bearer token.
type TokenSetter interface {
	HasToken() bool
	SetToken(token string)
}

// New builds the source selected by cfg.Source.Kind.
func New(cfg *config.Config) (core.Source, error) {
	switch strings.ToLower(cfg.Source.Kind) {
	case config.SourceSheets:
		return NewSheets(SheetsConfig{
			BaseURL:       cfg.Sheets.BaseURL,
			SpreadsheetID: cfg.Sheets.SpreadsheetID,
			Range:         cfg.Sheets.Range,
			Token:         cfg.Sheets.BearerToken,
			Timeout:       cfg.Sheets.Timeout,
		})
	case config.SourceXLSX:
		return NewXLSX(cfg.Source.Path, cfg.Source.Sheet)
	case config.SourceCSV:
		return NewCSV(cfg.Source.Path)
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}
