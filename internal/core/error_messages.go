// Package core provides the reconciliation logic for mirroring source rows.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. The CLI prints them next to failed passes and the HTTP layer
// returns them in error bodies.
//
// # Sync Errors (SYNC001-SYNC099)
//
//	SYNC001 - Pass in progress: Another sync pass is running
//	          Action: Wait for the running pass to finish
//	          Patterns: "sync pass already in progress"
//
//	SYNC002 - Deletion failed: Stale records could not be removed
//	          Action: Run the sync again; the store may hold extra records
//	          Patterns: "deletion error"
//
//	SYNC003 - Row write failed: A record could not be written
//	          Action: Check the failed rows in the pass report
//	          Patterns: "persistence error"
//
// # Decode Errors (DEC001-DEC099)
//
//	DEC001 - Bad cell: A cell is neither a whole number nor text
//	         Action: Fix the cell in the sheet and sync again
//	         Patterns: "decode error"
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Unauthorized: The bearer token was rejected
//	         Action: Provide a fresh token with --bearer-token
//	         Patterns: "status 401"
//
//	SRC002 - Forbidden: The token cannot read this spreadsheet
//	         Action: Share the sheet with the token's account
//	         Patterns: "status 403"
//
//	SRC003 - Not found: Spreadsheet or range does not exist
//	         Action: Check SPREADSHEET_ID and SPREADSHEET_RANGE
//	         Patterns: "status 404"
//
//	SRC004 - Source file missing: The workbook or CSV file was not found
//	         Action: Check SOURCE_PATH
//	         Patterns: "no such file"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: A record with this key already exists
//	        Patterns: "duplicate key", "unique constraint"
//
//	DB002 - Connection refused: Unable to connect to database
//	        Patterns: "connection refused"
//
//	DB003 - Connection reset: Database connection was interrupted
//	        Patterns: "connection reset"
//
//	DB004 - Timeout: Operation timed out
//	        Patterns: "timeout", "deadline exceeded"
//
//	DB005 - Database busy: The database file is locked
//	        Patterns: "database is locked"
//
//	DB006 - Missing table: The records table does not exist
//	        Patterns: "does not exist", "no such table"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Check the logs for the technical error
//
// # Pattern Matching
//
// Patterns are matched case-insensitively using strings.Contains. The first
// matching pattern wins, so the sync patterns come before the database ones:
// a persistence error wraps the driver error that caused it.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user
// messages. Order matters: specific patterns come before general ones.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Sync Errors (SYNC001-SYNC003)
	// =========================================================================
	{
		pattern: "sync pass already in progress",
		msg: UserMessage{
			Message: "Another sync pass is running",
			Action:  "Wait for the running pass to finish",
			Code:    "SYNC001",
		},
	},
	{
		pattern: "deletion error",
		msg: UserMessage{
			Message: "Stale records could not be removed",
			Action:  "Run the sync again; the store may hold extra records",
			Code:    "SYNC002",
		},
	},
	{
		pattern: "persistence error",
		msg: UserMessage{
			Message: "A record could not be written",
			Action:  "Check the failed rows in the pass report",
			Code:    "SYNC003",
		},
	},

	// =========================================================================
	// Decode Errors (DEC001)
	// =========================================================================
	{
		pattern: "decode error",
		msg: UserMessage{
			Message: "A cell is neither a whole number nor text",
			Action:  "Fix the cell in the sheet and sync again",
			Code:    "DEC001",
		},
	},

	// =========================================================================
	// Source Errors (SRC001-SRC004)
	// =========================================================================
	{
		pattern: "status 401",
		msg: UserMessage{
			Message: "The bearer token was rejected",
			Action:  "Provide a fresh token with --bearer-token",
			Code:    "SRC001",
		},
	},
	{
		pattern: "status 403",
		msg: UserMessage{
			Message: "The token cannot read this spreadsheet",
			Action:  "Share the sheet with the token's account",
			Code:    "SRC002",
		},
	},
	{
		pattern: "status 404",
		msg: UserMessage{
			Message: "Spreadsheet or range does not exist",
			Action:  "Check SPREADSHEET_ID and SPREADSHEET_RANGE",
			Code:    "SRC003",
		},
	},
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "The source file was not found",
			Action:  "Check SOURCE_PATH",
			Code:    "SRC004",
		},
	},

	// =========================================================================
	// Database Errors (DB001-DB006)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Run the sync again",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Run the sync again",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Raise SYNC_TIMEOUT or try again later",
			Code:    "DB004",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Raise SYNC_TIMEOUT or try again later",
			Code:    "DB004",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "The database file is locked",
			Action:  "Stop other processes using the database",
			Code:    "DB005",
		},
	},
	{
		pattern: "no such table",
		msg: UserMessage{
			Message: "The records table does not exist",
			Action:  "Start the command once with a writable database",
			Code:    "DB006",
		},
	},
	{
		pattern: "does not exist",
		msg: UserMessage{
			Message: "The records table does not exist",
			Action:  "Start the command once with a writable database",
			Code:    "DB006",
		},
	},
}

// defaultMessage is returned when no specific pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for the technical error",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage for nil errors.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. The original error stays reachable
// through Unwrap for logging. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
