package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/sheetsync/internal/core"
)

// DefaultSheetsBaseURL is the Google Sheets API root.
const DefaultSheetsBaseURL = "https://sheets.googleapis.com"

// ErrNoToken is returned by Fetch when no bearer token has been provided.
var ErrNoToken = errors.New("sheets: bearer token is not set")

// APIError is a non-200 response from the Sheets API.
type APIError struct {
	StatusCode int
	Status     string // Google status string, e.g. UNAUTHENTICATED
	Message    string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("sheets api: status %d", e.StatusCode)
	if e.Status != "" {
		msg += " " + e.Status
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// SheetsConfig configures a Sheets source.
type SheetsConfig struct {
	BaseURL       string
	SpreadsheetID string
	Range         string
	Token         string
	Timeout       time.Duration
	HTTPClient    *http.Client // optional, overrides Timeout
}

// Sheets reads a value range from the Google Sheets API. Cells are requested
// in their formula rendering so HYPERLINK cells keep their display text.
type Sheets struct {
	http          *http.Client
	baseURL       string
	spreadsheetID string
	rangeA1       string

	mu    sync.RWMutex
	token string
}

// valueRange is the body of a values.get response.
type valueRange struct {
	Range          string              `json:"range"`
	MajorDimension string              `json:"majorDimension"`
	Values         [][]json.RawMessage `json:"values"`
}

// apiErrorBody is the error envelope returned by Google APIs.
type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewSheets creates a Sheets source.
func NewSheets(cfg SheetsConfig) (*Sheets, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}
	if cfg.Range == "" {
		return nil, errors.New("sheets: range is required")
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultSheetsBaseURL
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &Sheets{
		http:          client,
		baseURL:       base,
		spreadsheetID: cfg.SpreadsheetID,
		rangeA1:       cfg.Range,
		token:         cfg.Token,
	}, nil
}

// Name implements core.Source.
func (s *Sheets) Name() string { return "sheets" }

// SetToken replaces the bearer token used by later fetches.
func (s *Sheets) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// HasToken reports whether a bearer token is configured.
func (s *Sheets) HasToken() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// URL returns the values.get endpoint for the configured range.
func (s *Sheets) URL() string {
	q := url.Values{}
	q.Set("dateTimeRenderOption", "FORMATTED_STRING")
	q.Set("valueRenderOption", "FORMULA")
	return fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s?%s",
		s.baseURL,
		url.PathEscape(s.spreadsheetID),
		url.PathEscape(s.rangeA1),
		q.Encode(),
	)
}

// Fetch implements core.Source. The whole payload is decoded before it is
// returned; one bad cell fails the fetch with a *core.DecodeError.
func (s *Sheets) Fetch(ctx context.Context) ([]core.Row, error) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return nil, ErrNoToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(), nil)
	if err != nil {
		return nil, fmt.Errorf("sheets: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheets: request failed: %w", err)
	}

	var body valueRange
	if err := decodeResponse(resp, &body); err != nil {
		return nil, err
	}

	rows := make([]core.Row, len(body.Values))
	for i, raw := range body.Values {
		row, err := core.DecodeRow(raw)
		if err != nil {
			var de *core.DecodeError
			if errors.As(err, &de) {
				de.Row = i
			}
			return nil, err
		}
		rows[i] = row
	}

	slog.Debug("sheets range fetched", "range", body.Range, "rows", len(rows))
	return rows, nil
}

// decodeResponse reads resp and unmarshals a 200 body into target.
func decodeResponse(resp *http.Response, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("sheets: read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope apiErrorBody
		if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
			apiErr.Status = envelope.Error.Status
			apiErr.Message = envelope.Error.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}

	if err := json.Unmarshal(body, target); err != nil {
		return &core.DecodeError{Kind: core.DecodeMalformed, Row: -1, Column: -1, Err: err}
	}
	return nil
}
