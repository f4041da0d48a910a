package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetsync/internal/admin"
	"github.com/JonMunkholm/sheetsync/internal/core"
	"github.com/JonMunkholm/sheetsync/internal/report"
	"github.com/JonMunkholm/sheetsync/internal/source"
	"github.com/JonMunkholm/sheetsync/internal/store"
	"github.com/JonMunkholm/sheetsync/internal/web"
)

type syncOptions struct {
	bearerToken string
	dryRun      bool
	output      string
}

func addSyncFlags(cmd *cobra.Command, opts *syncOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.bearerToken, "bearer-token", "", "Sheets API bearer token (env SHEETS_BEARER_TOKEN); prompted for when unset")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Reconcile against an in-memory copy of the store and leave the store untouched")
	f.StringVarP(&opts.output, "output", "o", "", "Report format: table, json or yaml (default: table on a terminal, json otherwise)")
}

func newSyncCmd(a *app) *cobra.Command {
	var opts syncOptions
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSync(cmd, opts)
		},
	}
	addSyncFlags(cmd, &opts)
	return cmd
}

// runSync runs one pass and prints its report. A pass with failed rows
// exits with exitRowFailure.
func (a *app) runSync(cmd *cobra.Command, opts syncOptions) error {
	format, err := report.ParseFormat(opts.output)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, src, st, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer closeStore(st)

	if ts, ok := src.(source.TokenSetter); ok && !ts.HasToken() {
		token, err := promptToken(stdin, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		ts.SetToken(token)
	}

	ctx, cancel := context.WithTimeout(core.ContextWithTrigger(ctx, "cli"), a.cfg.Sync.Timeout)
	defer cancel()

	var rep *core.PassReport
	if opts.dryRun {
		scratch, serr := store.Snapshot(ctx, st)
		if serr != nil {
			return serr
		}
		rep, err = svc.DryRun(ctx, scratch)
	} else {
		rep, err = svc.Sync(ctx)
	}

	if rep != nil {
		out := cmd.OutOrStdout()
		if ferr := report.NewFormatter(report.DetectFormat(string(format), asFile(out))).Format(out, report.Pass{Report: *rep}); ferr != nil {
			slog.Error("writing report failed", "error", ferr)
		}
	}
	if err != nil {
		return err
	}
	if rep.Failed > 0 {
		return &exitError{code: exitRowFailure, err: fmt.Errorf("%d of %d rows failed", rep.Failed, rep.Processed)}
	}
	return nil
}

// promptToken reads a bearer token from in. The prompt is only shown when in
// is a terminal.
func promptToken(in *os.File, prompt io.Writer) (string, error) {
	if isatty.IsTerminal(in.Fd()) || isatty.IsCygwinTerminal(in.Fd()) {
		fmt.Fprint(prompt, "Sheets bearer token: ")
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read bearer token: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return "", source.ErrNoToken
	}
	return token, nil
}

// asFile returns w as *os.File when it is one, for terminal detection.
func asFile(w io.Writer) *os.File {
	f, _ := w.(*os.File)
	return f
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run scheduled passes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd.Context())
		},
	}
}

func (a *app) runServe(ctx context.Context) error {
	svc, src, st, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer closeStore(st)

	if ts, ok := src.(source.TokenSetter); ok && !ts.HasToken() {
		slog.Warn("no bearer token configured; passes will fail until SHEETS_BEARER_TOKEN is set")
	}

	slog.Info("configuration loaded",
		"source", src.Name(),
		"store", st.Name(),
		"port", a.cfg.Server.Port,
		"sync_interval", a.cfg.Sync.Interval.String(),
		"rate_limit_enabled", a.cfg.Rate.Enabled,
		"require_api_key", a.cfg.Security.RequireAPIKey,
	)

	server := web.NewServer(svc, st, a.cfg)

	// Cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	go svc.StartScheduler(jobCtx, core.ScheduleConfig{
		Interval:     a.cfg.Sync.Interval,
		Timeout:      a.cfg.Sync.Timeout,
		RunOnStartup: true,
	})

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := svc.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for sync pass to complete")
			if err := svc.WaitForPasses(shutdownCtx); err != nil {
				slog.Warn("sync pass did not complete in time", "error", err)
			} else {
				slog.Info("sync pass completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-stopped
	slog.Info("server stopped")
	return nil
}

func newRecordsCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:         "records",
		Short:       "List the stored records",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{storeOnly: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(output)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			st, err := store.Open(ctx, a.cfg.Database)
			if err != nil {
				return err
			}
			defer closeStore(st)

			recs, err := st.List(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return report.NewFormatter(report.DetectFormat(string(format), asFile(out))).Format(out, report.Records(recs))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format: table, json or yaml")
	return cmd
}

func newPurgeCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:         "purge",
		Short:       "Delete every stored record",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{storeOnly: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore(st)

			n, err := (&admin.Purger{Service: svc}).Purge(ctx, yes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d records\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deleting every record")
	return cmd
}
