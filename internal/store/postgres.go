package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/sheetsync/internal/config"
	"github.com/JonMunkholm/sheetsync/internal/core"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// DBTX is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS source_table_rows (
    id                      BIGSERIAL PRIMARY KEY,
    channel_id              TEXT UNIQUE NOT NULL,
    vtuber_name             TEXT,
    vtuber_persona          TEXT,
    vtuber_birthday         DATE,
    vtuber_affiliation      TEXT,
    vtuber_affiliation_logo TEXT,
    created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const pgColumns = `channel_id, vtuber_name, vtuber_persona, vtuber_birthday,
    vtuber_affiliation, vtuber_affiliation_logo, created_at, updated_at`

// Postgres stores records in PostgreSQL through a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
	db   DBTX
}

// NewPostgres opens a pool for cfg.URL, verifies it and creates the table.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("database pool configured",
		"max_conns", poolConfig.MaxConns,
		"min_conns", poolConfig.MinConns,
		"max_conn_lifetime", poolConfig.MaxConnLifetime,
		"max_conn_idle_time", poolConfig.MaxConnIdleTime,
	)

	p := &Postgres{pool: pool, db: pool}
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Name() string { return "postgres" }

// EnsureSchema creates the records table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("create %s: %w", TableName, err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) FindByKey(ctx context.Context, key string) (*core.PersistedRecord, error) {
	row := p.db.QueryRow(ctx, `SELECT `+pgColumns+` FROM source_table_rows WHERE channel_id = $1`, key)

	rec, err := scanPgRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", key, err)
	}
	return rec, nil
}

func (p *Postgres) Create(ctx context.Context, rec core.DomainRecord) error {
	_, err := p.db.Exec(ctx, `
        INSERT INTO source_table_rows (channel_id, vtuber_name, vtuber_persona,
            vtuber_birthday, vtuber_affiliation, vtuber_affiliation_logo)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.Key,
		toPgText(rec.Name),
		toPgText(rec.Persona),
		toPgDate(rec.Birthday),
		toPgText(rec.Affiliation),
		toPgText(rec.AffiliationLogo),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, rec.Key)
		}
		return fmt.Errorf("insert %s: %w", rec.Key, err)
	}
	return nil
}

func (p *Postgres) Update(ctx context.Context, existing core.PersistedRecord, with core.DomainRecord) error {
	if !core.Changed(existing, with) {
		return nil
	}
	merged := core.Merge(existing, with)

	_, err := p.db.Exec(ctx, `
        UPDATE source_table_rows SET
            vtuber_name = $2,
            vtuber_persona = $3,
            vtuber_birthday = $4,
            vtuber_affiliation = $5,
            vtuber_affiliation_logo = $6,
            updated_at = now()
        WHERE channel_id = $1`,
		existing.Key,
		toPgText(merged.Name),
		toPgText(merged.Persona),
		toPgDate(merged.Birthday),
		toPgText(merged.Affiliation),
		toPgText(merged.AffiliationLogo),
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", existing.Key, err)
	}
	return nil
}

func (p *Postgres) DeleteWhereKeyNotIn(ctx context.Context, keys []string) (int64, error) {
	var (
		tag pgconn.CommandTag
		err error
	)
	if len(keys) == 0 {
		tag, err = p.db.Exec(ctx, `DELETE FROM source_table_rows`)
	} else {
		tag, err = p.db.Exec(ctx, `DELETE FROM source_table_rows WHERE NOT (channel_id = ANY($1))`, keys)
	}
	if err != nil {
		return 0, fmt.Errorf("delete stale records: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) List(ctx context.Context) ([]core.PersistedRecord, error) {
	rows, err := p.db.Query(ctx, `SELECT `+pgColumns+` FROM source_table_rows ORDER BY channel_id`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []core.PersistedRecord
	for rows.Next() {
		rec, err := scanPgRecord(rows)
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

func scanPgRecord(row pgx.Row) (*core.PersistedRecord, error) {
	var (
		rec                              core.PersistedRecord
		name, persona, affiliation, logo pgtype.Text
		birthday                         pgtype.Date
	)
	if err := row.Scan(&rec.Key, &name, &persona, &birthday, &affiliation, &logo, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Name = fromPgText(name)
	rec.Persona = fromPgText(persona)
	rec.Birthday = fromPgDate(birthday)
	rec.Affiliation = fromPgText(affiliation)
	rec.AffiliationLogo = fromPgText(logo)
	return &rec, nil
}
