package core

// convert.go provides the field transforms applied by the row mapper.
//
// Source cells arrive in their formula rendering, so a key or logo column
// may hold either plain text or a formula such as
// =HYPERLINK("https://youtube.com/channel/UC...","UC..."). The transforms
// here pull the display value out of those formulas and parse the
// "day month-name" birthday column.
//
// Every transform returns ok=false instead of an error: a failed optional
// field is left unset and never rejects the row.

import (
	"strings"
	"time"
)

// BirthdayLayout is the accepted birthday format ("1 January", "01 January").
const BirthdayLayout = "2 January"

// BirthdayYear is the year assigned to parsed birthdays, which carry no year
// in the source. A leap year keeps "29 February" valid.
const BirthdayYear = 2000

// ExtractQuoted returns the last double-quoted segment of s, such as the
// display text of a HYPERLINK formula. Quotes pair up from the left and a
// trailing unpaired quote is ignored. Text without a complete pair, like
// O"Neil, is returned verbatim.
func ExtractQuoted(s string) string {
	parts := strings.Split(s, `"`)
	quotes := len(parts) - 1
	if quotes < 2 {
		return s
	}
	if quotes%2 == 1 {
		// parts[i] sits between quote i and quote i+1 (1-based).
		return parts[quotes-2]
	}
	return parts[quotes-1]
}

// ParseBirthday parses a "day month-name" date. Month names match
// case-insensitively; the year is pinned to BirthdayYear in UTC.
func ParseBirthday(s string) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(BirthdayLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(BirthdayYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}

// identity is the transform for plain text columns.
func identity(s string) (string, bool) {
	return s, true
}

// quoted is ExtractQuoted as a field transform; an empty extraction fails.
func quoted(s string) (string, bool) {
	v := ExtractQuoted(s)
	return v, v != ""
}

func ptr[T any](v T) *T {
	return &v
}
