package core

import (
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// ExtractQuoted Tests
// ----------------------------------------------------------------------------

func TestExtractQuoted(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "hyperlink formula",
			input: `=HYPERLINK("http://x","UCabc123")`,
			want:  "UCabc123",
		},
		{
			name:  "youtube channel link",
			input: `=HYPERLINK("https://www.youtube.com/channel/UC1","UC1")`,
			want:  "UC1",
		},
		{
			name:  "single quoted segment",
			input: `prefix "inner" suffix`,
			want:  "inner",
		},
		{
			name:  "plain text returned verbatim",
			input: "UCplain",
			want:  "UCplain",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "empty display text",
			input: `=HYPERLINK("http://x","")`,
			want:  "",
		},
		{
			name:  "lone quote returned verbatim",
			input: `O"Neil`,
			want:  `O"Neil`,
		},
		{
			name:  "trailing unpaired quote ignored",
			input: `say "hi" to O"Neil`,
			want:  "hi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractQuoted(tt.input); got != tt.want {
				t.Errorf("ExtractQuoted(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractQuoted_LoneQuotesKeepKeysDistinct(t *testing.T) {
	a, b := ExtractQuoted(`O"Neil`), ExtractQuoted(`O"Brien`)
	if a == b {
		t.Errorf("distinct keys collapsed to %q", a)
	}
}

func TestQuotedTransform_EmptyFails(t *testing.T) {
	if _, ok := quoted(`=HYPERLINK("http://x","")`); ok {
		t.Error("quoted() should fail on empty display text")
	}
	if v, ok := quoted("UC1"); !ok || v != "UC1" {
		t.Errorf("quoted(UC1) = %q, %v", v, ok)
	}
}

// ----------------------------------------------------------------------------
// ParseBirthday Tests
// ----------------------------------------------------------------------------

func TestParseBirthday(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantMonth time.Month
		wantDay   int
	}{
		// Valid
		{name: "zero padded day", input: "01 January", wantValid: true, wantMonth: time.January, wantDay: 1},
		{name: "single digit day", input: "1 January", wantValid: true, wantMonth: time.January, wantDay: 1},
		{name: "two digit day", input: "25 December", wantValid: true, wantMonth: time.December, wantDay: 25},
		{name: "leap day", input: "29 February", wantValid: true, wantMonth: time.February, wantDay: 29},
		{name: "extra whitespace", input: "  3   March ", wantValid: true, wantMonth: time.March, wantDay: 3},

		// Invalid
		{name: "empty", input: "", wantValid: false},
		{name: "month first", input: "January 01", wantValid: false},
		{name: "numeric month", input: "01/01", wantValid: false},
		{name: "day out of range", input: "31 February", wantValid: false},
		{name: "unknown month", input: "01 Smarch", wantValid: false},
		{name: "not a date", input: "TBD", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseBirthday(tt.input)
			if ok != tt.wantValid {
				t.Fatalf("ParseBirthday(%q) ok = %v, want %v", tt.input, ok, tt.wantValid)
			}
			if !ok {
				return
			}
			if got.Month() != tt.wantMonth || got.Day() != tt.wantDay {
				t.Errorf("ParseBirthday(%q) = %v, want %v %d", tt.input, got, tt.wantMonth, tt.wantDay)
			}
			if got.Year() != BirthdayYear {
				t.Errorf("Year() = %d, want %d", got.Year(), BirthdayYear)
			}
			if got.Location() != time.UTC {
				t.Errorf("Location() = %v, want UTC", got.Location())
			}
		})
	}
}

func TestBirthdayString(t *testing.T) {
	if got := BirthdayString(nil); got != "" {
		t.Errorf("BirthdayString(nil) = %q, want empty", got)
	}

	d, _ := ParseBirthday("1 January")
	if got := BirthdayString(&d); got != "01 January" {
		t.Errorf("BirthdayString = %q, want %q", got, "01 January")
	}
}
