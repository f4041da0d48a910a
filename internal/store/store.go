// Package store implements core.Store on PostgreSQL, SQLite and memory.
//
// All backends keep records in one table keyed by channel_id:
//
//	source_table_rows(channel_id, vtuber_name, vtuber_persona,
//	                  vtuber_birthday, vtuber_affiliation,
//	                  vtuber_affiliation_logo, created_at, updated_at)
//
// Update writes only when the merge changes a field, so an idempotent pass
// leaves updated_at untouched.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/sheetsync/internal/config"
	"github.com/JonMunkholm/sheetsync/internal/core"
)

// TableName is the table holding mirrored records.
const TableName = "source_table_rows"

// ErrDuplicateKey is returned by Create when the key already exists.
var ErrDuplicateKey = errors.New("duplicate key")

// Backend is a core.Store that can also list, report health and close.
type Backend interface {
	core.Store
	core.Lister
	Name() string
	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the database named by cfg.URL: postgres:// and
// postgresql:// URLs use Postgres, sqlite:<path> uses SQLite, and
// memory: keeps everything in process.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Backend, error) {
	switch {
	case strings.HasPrefix(cfg.URL, "postgres://"), strings.HasPrefix(cfg.URL, "postgresql://"):
		return NewPostgres(ctx, cfg)
	case strings.HasPrefix(cfg.URL, "sqlite:"):
		return NewSQLite(ctx, strings.TrimPrefix(cfg.URL, "sqlite:"))
	case cfg.URL == "memory:":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("store: unsupported database url scheme in %q", redact(cfg.URL))
	}
}

// Snapshot copies every record of src into a new Memory store. Dry runs
// reconcile against the copy.
func Snapshot(ctx context.Context, src core.Lister) (*Memory, error) {
	recs, err := src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return NewMemoryFrom(recs), nil
}

// redact drops everything after the scheme so credentials never reach logs.
func redact(u string) string {
	if i := strings.Index(u, "://"); i >= 0 {
		return u[:i+3] + "..."
	}
	if i := strings.Index(u, ":"); i >= 0 {
		return u[:i+1] + "..."
	}
	return "..."
}
