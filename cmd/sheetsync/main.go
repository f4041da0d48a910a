// Command sheetsync mirrors the talent spreadsheet into a SQL table.
//
// Usage:
//
//	sheetsync [sync] [--bearer-token TOKEN] [--dry-run] [-o table|json|yaml]
//	sheetsync serve
//	sheetsync records
//	sheetsync purge --yes
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/JonMunkholm/sheetsync/internal/core"
)

// exitError carries a process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

const (
	exitFailure    = 1 // pass aborted or command failed
	exitRowFailure = 2 // pass finished with failed rows
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		code := exitFailure
		var ee *exitError
		if errors.As(err, &ee) {
			code = ee.code
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		if core.IsUserFacing(err) {
			ue := core.NewUserError(err)
			fmt.Fprintf(os.Stderr, "       %s. %s (%s)\n", ue.User.Message, ue.User.Action, ue.User.Code)
		}
		os.Exit(code)
	}
}
