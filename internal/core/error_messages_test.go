package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "pass in progress",
			err:         ErrPassInProgress,
			wantCode:    "SYNC001",
			wantMessage: "Another sync pass is running",
		},
		{
			name:        "deletion error",
			err:         &DeletionError{Kept: 3, Err: errors.New("connection refused")},
			wantCode:    "SYNC002",
			wantMessage: "Stale records could not be removed",
		},
		{
			name:        "persistence error wins over driver error",
			err:         &PersistenceError{Op: "create", Key: "UC1", Err: errors.New("duplicate key value")},
			wantCode:    "SYNC003",
			wantMessage: "A record could not be written",
		},
		{
			name:        "decode error",
			err:         &DecodeError{Kind: DecodeTypeMismatch, Row: 4, Column: 2, Raw: "true"},
			wantCode:    "DEC001",
			wantMessage: "A cell is neither a whole number nor text",
		},
		{
			name:        "wrapped decode error",
			err:         fmt.Errorf("fetch sheets: %w", newMismatch([]byte("null"))),
			wantCode:    "DEC001",
			wantMessage: "A cell is neither a whole number nor text",
		},
		{
			name:        "unauthorized",
			err:         errors.New("sheets api: status 401: Request had invalid authentication credentials"),
			wantCode:    "SRC001",
			wantMessage: "The bearer token was rejected",
		},
		{
			name:        "not found",
			err:         errors.New("sheets api: status 404: Requested entity was not found"),
			wantCode:    "SRC003",
			wantMessage: "Spreadsheet or range does not exist",
		},
		{
			name:        "missing file",
			err:         errors.New("open talent.xlsx: no such file or directory"),
			wantCode:    "SRC004",
			wantMessage: "The source file was not found",
		},
		{
			name:        "duplicate key",
			err:         errors.New("ERROR: duplicate key value violates unique constraint"),
			wantCode:    "DB001",
			wantMessage: "A record with this key already exists",
		},
		{
			name:        "connection refused",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    "DB002",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "timeout",
			err:         errors.New("context deadline exceeded"),
			wantCode:    "DB004",
			wantMessage: "Operation timed out",
		},
		{
			name:        "sqlite busy",
			err:         errors.New("database is locked (5) (SQLITE_BUSY)"),
			wantCode:    "DB005",
			wantMessage: "The database file is locked",
		},
		{
			name:        "missing table",
			err:         errors.New(`relation "source_table_rows" does not exist`),
			wantCode:    "DB006",
			wantMessage: "The records table does not exist",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("DUPLICATE KEY value violates"),
			wantCode:    "DB001",
			wantMessage: "A record with this key already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrPassInProgress)

	expected := "Another sync pass is running (Code: SYNC001). Wait for the running pass to finish"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  errors.New("duplicate key"),
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := &DeletionError{Err: errors.New("connection reset")}
		userErr := NewUserError(techErr)

		if userErr.Error() != "Stale records could not be removed" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, ErrDeletion) {
			t.Error("Unwrap() should reach the DeletionError")
		}
	})
}

func TestTypedErrors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"decode", &DecodeError{Kind: DecodeMalformed, Row: -1, Column: -1, Err: cause}, ErrDecode},
		{"persistence", &PersistenceError{Op: "update", Key: "K", Err: cause}, ErrPersistence},
		{"deletion", &DeletionError{Kept: 1, Err: cause}, ErrDeletion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("%v does not match its sentinel", tt.err)
			}
			if !errors.Is(tt.err, cause) {
				t.Errorf("%v does not unwrap to its cause", tt.err)
			}
		})
	}
}

func TestDecodeError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *DecodeError
		want string
	}{
		{
			name: "row and column",
			err:  &DecodeError{Kind: DecodeTypeMismatch, Row: 3, Column: 1, Raw: "true"},
			want: "decode error: type mismatch at row 3 column 1 (value true)",
		},
		{
			name: "position unknown",
			err:  &DecodeError{Kind: DecodeMalformed, Row: -1, Column: -1, Err: errors.New("unexpected EOF")},
			want: "decode error: malformed payload: unexpected EOF",
		},
		{
			name: "long value truncated",
			err:  &DecodeError{Kind: DecodeTypeMismatch, Row: -1, Column: 0, Raw: "[1,2,3,4,5,6,7,8,9,10,11,12,13,14,15,16,17]"},
			want: "decode error: type mismatch column 0 (value [1,2,3,4,5,6,7,8,9,10,11,12,13,14,15,16,...)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}
