package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetsync/internal/core"
)

func sampleReport() core.PassReport {
	return core.PassReport{
		PassID:    "pass-1",
		Source:    "sheets",
		Phase:     core.PhaseDone,
		StartedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Processed: 4,
		Created:   2,
		Updated:   1,
		Failed:    1,
		Deleted:   3,
		Failures: []core.RowFailure{
			{Index: 2, Key: "UC9", Reason: "A database error occurred"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", "", false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML", nil))
	assert.Equal(t, FormatJSON, DetectFormat("", nil))

	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, FormatJSON, DetectFormat("", f), "regular files are not terminals")
}

func TestPass_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, Pass{Report: sampleReport()}))

	out := buf.String()
	assert.Contains(t, out, "Pass pass-1")
	assert.Contains(t, out, "Failed rows")
	assert.Contains(t, out, "UC9")
	assert.Contains(t, out, "1.5s")
}

func TestPass_NoFailureTable(t *testing.T) {
	r := sampleReport()
	r.Failures = nil
	r.Failed = 0

	tables := Pass{Report: r}.Tables()
	assert.Len(t, tables, 1)
}

func TestPass_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatJSON).Format(&buf, Pass{Report: sampleReport()}))

	var got core.PassReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "pass-1", got.PassID)
	assert.Equal(t, 2, got.Created)
	require.Len(t, got.Failures, 1)
	assert.Equal(t, "UC9", got.Failures[0].Key)
}

func TestPass_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatYAML).Format(&buf, Pass{Report: sampleReport()}))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "pass-1", got["passId"])
	assert.Equal(t, "done", got["phase"])
}

func TestRecords_Table(t *testing.T) {
	name := "Alice"
	bday := time.Date(core.BirthdayYear, time.March, 4, 0, 0, 0, 0, time.UTC)
	recs := Records{{Key: "UC1", Name: &name, Birthday: &bday}}

	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, recs))
	out := buf.String()
	assert.Contains(t, out, "UC1")
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "04 March")
}

func TestTableFormatter_FallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, map[string]int{"deleted": 2}))
	assert.JSONEq(t, `{"deleted": 2}`, buf.String())
}
