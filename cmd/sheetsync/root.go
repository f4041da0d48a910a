package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetsync/internal/config"
	"github.com/JonMunkholm/sheetsync/internal/core"
	"github.com/JonMunkholm/sheetsync/internal/logging"
	"github.com/JonMunkholm/sheetsync/internal/source"
	"github.com/JonMunkholm/sheetsync/internal/store"
)

// globalOptions are flags shared by every command. Set flags override the
// environment.
type globalOptions struct {
	envFile     string
	source      string
	path        string
	sheet       string
	databaseURL string
	logLevel    string
	logFormat   string
}

// app holds what commands share after the root pre-run.
type app struct {
	opts globalOptions
	cfg  *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var syncOpts syncOptions

	root := &cobra.Command{
		Use:           "sheetsync",
		Short:         "Mirror the talent spreadsheet into a SQL table",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSync(cmd, syncOpts)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.opts.envFile, "env-file", ".env", "Environment file to load (missing file is ignored)")
	f.StringVar(&a.opts.source, "source", "", "Source kind: sheets, xlsx or csv (env SOURCE_KIND)")
	f.StringVar(&a.opts.path, "path", "", "Workbook or CSV path for the xlsx and csv sources (env SOURCE_PATH)")
	f.StringVar(&a.opts.sheet, "sheet", "", "Worksheet name for the xlsx source (env SOURCE_SHEET)")
	f.StringVar(&a.opts.databaseURL, "database-url", "", "postgres:// URL, sqlite:<path> or memory: (env DATABASE_URL)")
	f.StringVar(&a.opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (env LOG_LEVEL)")
	f.StringVar(&a.opts.logFormat, "log-format", "", "Log format: text or json (env LOG_FORMAT)")

	addSyncFlags(root, &syncOpts)

	root.AddCommand(
		newSyncCmd(a),
		newServeCmd(a),
		newRecordsCmd(a),
		newPurgeCmd(a),
	)
	return root
}

// loadConfig reads .env and the environment, applies flags and validates.
func (a *app) loadConfig(cmd *cobra.Command) error {
	// Overload: the env file wins over the inherited environment.
	if err := godotenv.Overload(a.opts.envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env-file") {
			return fmt.Errorf("load %s: %w", a.opts.envFile, err)
		}
	}

	cfg, err := config.Parse()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Source.Kind = a.opts.source
	}
	if flags.Changed("path") {
		cfg.Source.Path = a.opts.path
	}
	if flags.Changed("sheet") {
		cfg.Source.Sheet = a.opts.sheet
	}
	if flags.Changed("database-url") {
		cfg.Database.URL = a.opts.databaseURL
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = a.opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = a.opts.logFormat
	}
	if flags.Changed("bearer-token") {
		token, _ := flags.GetString("bearer-token")
		cfg.Sheets.BearerToken = token
	}

	validate := cfg.Validate
	if !needsSource(cmd) {
		validate = cfg.ValidateWithoutSource
	}
	if err := validate(); err != nil {
		return err
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	a.cfg = cfg
	return nil
}

// open builds the source, the store and the service around them. The caller
// closes the returned store.
func (a *app) open(ctx context.Context) (*core.Service, core.Source, store.Backend, error) {
	src, err := source.New(a.cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	st, err := store.Open(ctx, a.cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}
	slog.Info("store opened", "backend", st.Name())

	svc, err := core.NewService(src, st, core.ServiceConfig{
		HeaderRows:  headerRows(a.cfg.Source.HeaderRows),
		HistorySize: a.cfg.Sync.HistorySize,
		MaxWait:     a.cfg.Sync.MaxWait,
	})
	if err != nil {
		_ = st.Close()
		return nil, nil, nil, err
	}
	return svc, src, st, nil
}

// storeOnly marks commands that never read the source, so its settings are
// not required.
const storeOnly = "store-only"

func needsSource(cmd *cobra.Command) bool {
	_, ok := cmd.Annotations[storeOnly]
	return !ok
}

// errNoSource is returned if a store-only service is asked to fetch.
var errNoSource = errors.New("no source configured for this command")

// openStore opens the store behind a service that cannot fetch, for
// commands that never run a pass.
func (a *app) openStore(ctx context.Context) (*core.Service, store.Backend, error) {
	st, err := store.Open(ctx, a.cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	noSource := core.SourceFunc(func(context.Context) ([]core.Row, error) { return nil, errNoSource })
	svc, err := core.NewService(noSource, st, core.ServiceConfig{MaxWait: a.cfg.Sync.MaxWait})
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	return svc, st, nil
}

// headerRows converts SOURCE_HEADER_ROWS to core.ServiceConfig, where zero
// means the default and a negative count means none.
func headerRows(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

// closeStore closes st and logs failures.
func closeStore(st store.Backend) {
	if err := st.Close(); err != nil {
		slog.Warn("closing store failed", "error", err)
	}
}

// stdin is the token prompt's input; tests replace it.
var stdin = os.Stdin
