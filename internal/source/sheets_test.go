package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JonMunkholm/sheetsync/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sheetsPayload = `{
  "range": "Talents!A1:N4",
  "majorDimension": "ROWS",
  "values": [
    ["Talent list"],
    ["Channel", "Name"],
    ["=HYPERLINK(\"https://youtube.com/channel/UC1\",\"UC1\")", "Alice", "", "", "", "", "", "Cute", "", "", "", "01 January", "Indie", "=HYPERLINK(\"l\",\"logo1\")"],
    [12345, "Bob"]
  ]
}`

func newTestSheets(t *testing.T, handler http.HandlerFunc) *Sheets {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := NewSheets(SheetsConfig{
		BaseURL:       srv.URL,
		SpreadsheetID: "sheet-1",
		Range:         "Talents!A:N",
		Token:         "tok",
	})
	require.NoError(t, err)
	return s
}

func TestSheets_Fetch(t *testing.T) {
	var gotReq *http.Request
	s := newTestSheets(t, func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sheetsPayload))
	})

	rows, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "/v4/spreadsheets/sheet-1/values/Talents!A:N", gotReq.URL.Path)
	assert.Equal(t, "FORMULA", gotReq.URL.Query().Get("valueRenderOption"))
	assert.Equal(t, "FORMATTED_STRING", gotReq.URL.Query().Get("dateTimeRenderOption"))
	assert.Equal(t, "Bearer tok", gotReq.Header.Get("Authorization"))

	assert.Equal(t, `=HYPERLINK("https://youtube.com/channel/UC1","UC1")`, rows[2][0].String())
	assert.Equal(t, core.CellText, rows[2][0].Kind())
	assert.Len(t, rows[2], 14)

	i, ok := rows[3][0].Int()
	assert.True(t, ok)
	assert.Equal(t, int64(12345), i)
}

func TestSheets_FetchFeedsEngine(t *testing.T) {
	s := newTestSheets(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sheetsPayload))
	})

	rows, err := s.Fetch(context.Background())
	require.NoError(t, err)

	recs := core.DefaultLayout.MapRows(rows[2:])
	require.Len(t, recs, 2)
	assert.Equal(t, "UC1", recs[0].Key)
	assert.Equal(t, "logo1", *recs[0].AffiliationLogo)
	assert.Equal(t, "12345", recs[1].Key)
}

func TestSheets_DecodeErrorHasPosition(t *testing.T) {
	s := newTestSheets(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"values": [["a"], ["UC1", true]]}`))
	})

	_, err := s.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDecode))

	var de *core.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 1, de.Row)
	assert.Equal(t, 1, de.Column)
}

func TestSheets_MalformedBody(t *testing.T) {
	s := newTestSheets(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"values": [`))
	})

	_, err := s.Fetch(context.Background())
	var de *core.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, core.DecodeMalformed, de.Kind)
}

func TestSheets_EmptyRange(t *testing.T) {
	s := newTestSheets(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"range": "Talents!A1:N1", "majorDimension": "ROWS"}`))
	})

	rows, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSheets_APIErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantMsg  string
	}{
		{
			name:     "unauthenticated",
			status:   http.StatusUnauthorized,
			body:     `{"error": {"code": 401, "message": "Request had invalid authentication credentials.", "status": "UNAUTHENTICATED"}}`,
			wantCode: "SRC001",
			wantMsg:  "invalid authentication credentials",
		},
		{
			name:     "permission denied",
			status:   http.StatusForbidden,
			body:     `{"error": {"code": 403, "message": "The caller does not have permission", "status": "PERMISSION_DENIED"}}`,
			wantCode: "SRC002",
			wantMsg:  "does not have permission",
		},
		{
			name:     "not found with plain body",
			status:   http.StatusNotFound,
			body:     "not here",
			wantCode: "SRC003",
			wantMsg:  "not here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSheets(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := s.Fetch(context.Background())
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Contains(t, apiErr.Error(), tt.wantMsg)
			assert.Equal(t, tt.wantCode, core.MapError(err).Code)
		})
	}
}

func TestSheets_Token(t *testing.T) {
	calls := 0
	s := newTestSheets(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	})

	s.SetToken("")
	assert.False(t, s.HasToken())
	_, err := s.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
	assert.Equal(t, 0, calls)

	s.SetToken("fresh")
	assert.True(t, s.HasToken())
	_, err = s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestNewSheets_Validation(t *testing.T) {
	_, err := NewSheets(SheetsConfig{Range: "A:N"})
	assert.Error(t, err)

	_, err = NewSheets(SheetsConfig{SpreadsheetID: "x"})
	assert.Error(t, err)

	s, err := NewSheets(SheetsConfig{SpreadsheetID: "x", Range: "A:N"})
	require.NoError(t, err)
	assert.Contains(t, s.URL(), DefaultSheetsBaseURL+"/v4/spreadsheets/x/values/A:N?")
}
