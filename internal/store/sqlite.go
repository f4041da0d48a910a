package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/sheetsync/internal/core"
)

const (
	sqliteDateLayout = "2006-01-02"
	sqliteTimeLayout = time.RFC3339Nano
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS source_table_rows (
    id                      INTEGER PRIMARY KEY AUTOINCREMENT,
    channel_id              TEXT UNIQUE NOT NULL,
    vtuber_name             TEXT,
    vtuber_persona          TEXT,
    vtuber_birthday         TEXT,
    vtuber_affiliation      TEXT,
    vtuber_affiliation_logo TEXT,
    created_at              TEXT NOT NULL,
    updated_at              TEXT NOT NULL
)`

const sqliteColumns = `channel_id, vtuber_name, vtuber_persona, vtuber_birthday,
    vtuber_affiliation, vtuber_affiliation_logo, created_at, updated_at`

// SQLite stores records in a SQLite file through database/sql.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens the database at path (":memory:" for a private in-memory
// database) and creates the table.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite: path is required")
	}

	dsn := path
	if path != ":memory:" && !strings.Contains(path, "?") {
		dsn += "?_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; also keeps ":memory:" on a single database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &SQLite{db: db, now: time.Now}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Debug("sqlite database opened", "path", path)
	return s, nil
}

func (s *SQLite) Name() string { return "sqlite" }

// EnsureSchema creates the records table if it does not exist.
func (s *SQLite) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create %s: %w", TableName, err)
	}
	return nil
}

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) FindByKey(ctx context.Context, key string) (*core.PersistedRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM source_table_rows WHERE channel_id = ?`, key)

	rec, err := scanSQLiteRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", key, err)
	}
	return rec, nil
}

func (s *SQLite) Create(ctx context.Context, rec core.DomainRecord) error {
	now := s.now().UTC().Format(sqliteTimeLayout)
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO source_table_rows (channel_id, vtuber_name, vtuber_persona,
            vtuber_birthday, vtuber_affiliation, vtuber_affiliation_logo,
            created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Key,
		toNullString(rec.Name),
		toNullString(rec.Persona),
		toNullDate(rec.Birthday),
		toNullString(rec.Affiliation),
		toNullString(rec.AffiliationLogo),
		now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, rec.Key)
		}
		return fmt.Errorf("insert %s: %w", rec.Key, err)
	}
	return nil
}

func (s *SQLite) Update(ctx context.Context, existing core.PersistedRecord, with core.DomainRecord) error {
	if !core.Changed(existing, with) {
		return nil
	}
	merged := core.Merge(existing, with)

	_, err := s.db.ExecContext(ctx, `
        UPDATE source_table_rows SET
            vtuber_name = ?,
            vtuber_persona = ?,
            vtuber_birthday = ?,
            vtuber_affiliation = ?,
            vtuber_affiliation_logo = ?,
            updated_at = ?
        WHERE channel_id = ?`,
		toNullString(merged.Name),
		toNullString(merged.Persona),
		toNullDate(merged.Birthday),
		toNullString(merged.Affiliation),
		toNullString(merged.AffiliationLogo),
		s.now().UTC().Format(sqliteTimeLayout),
		existing.Key,
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", existing.Key, err)
	}
	return nil
}

// DeleteWhereKeyNotIn loads keys into a temporary table and deletes every
// record missing from it, all in one transaction. This avoids the bound
// parameter limit on large sheets.
func (s *SQLite) DeleteWhereKeyNotIn(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		res, err := s.db.ExecContext(ctx, `DELETE FROM source_table_rows`)
		if err != nil {
			return 0, fmt.Errorf("delete stale records: %w", err)
		}
		return res.RowsAffected()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `CREATE TEMP TABLE IF NOT EXISTS keep_keys (channel_id TEXT PRIMARY KEY)`); err != nil {
		return 0, fmt.Errorf("create keep_keys: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM keep_keys`); err != nil {
		return 0, fmt.Errorf("clear keep_keys: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO keep_keys (channel_id) VALUES (?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare keep_keys insert: %w", err)
	}
	defer stmt.Close()

	for _, k := range keys {
		if _, err := stmt.ExecContext(ctx, k); err != nil {
			return 0, fmt.Errorf("insert keep key %s: %w", k, err)
		}
	}

	res, err := tx.ExecContext(ctx, `
        DELETE FROM source_table_rows
        WHERE channel_id NOT IN (SELECT channel_id FROM keep_keys)`)
	if err != nil {
		return 0, fmt.Errorf("delete stale records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM keep_keys`); err != nil {
		return 0, fmt.Errorf("clear keep_keys: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func (s *SQLite) List(ctx context.Context) ([]core.PersistedRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteColumns+` FROM source_table_rows ORDER BY channel_id`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []core.PersistedRecord
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row rowScanner) (*core.PersistedRecord, error) {
	var (
		rec                                        core.PersistedRecord
		name, persona, birthday, affiliation, logo sql.NullString
		createdAt, updatedAt                       string
	)
	if err := row.Scan(&rec.Key, &name, &persona, &birthday, &affiliation, &logo, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	rec.Name = fromNullString(name)
	rec.Persona = fromNullString(persona)
	rec.Affiliation = fromNullString(affiliation)
	rec.AffiliationLogo = fromNullString(logo)

	if birthday.Valid {
		t, err := time.Parse(sqliteDateLayout, birthday.String)
		if err != nil {
			return nil, fmt.Errorf("parse birthday %q: %w", birthday.String, err)
		}
		rec.Birthday = &t
	}

	var err error
	if rec.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(sqliteTimeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &rec, nil
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func toNullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(sqliteDateLayout), Valid: true}
}
