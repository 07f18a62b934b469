package cache

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/address-geocoder/internal/model"
)

// Pool is the subset of pgxpool.Pool the cache needs; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresStore keeps the cache in a shared Postgres table so several
// machines can reuse one set of resolutions.
type PostgresStore struct {
	memo
	pool  Pool
	table string
}

// NewPostgresStore connects to databaseURL and ensures table exists.
func NewPostgresStore(ctx context.Context, databaseURL, table string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, eris.New("postgres: database_url is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	s := NewPostgresStoreWithPool(pool, table)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreWithPool wraps an existing pool. table may be schema
// qualified; it defaults to geocode_cache.
func NewPostgresStoreWithPool(pool Pool, table string) *PostgresStore {
	if table == "" {
		table = "geocode_cache"
	}
	return &PostgresStore{
		pool:  pool,
		table: pgx.Identifier(strings.Split(table, ".")).Sanitize(),
	}
}

// Migrate creates the cache table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+s.table+` (
		address   TEXT PRIMARY KEY,
		outcome   JSONB NOT NULL,
		success   BOOLEAN NOT NULL DEFAULT false,
		cached_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	return eris.Wrap(err, "postgres: migrate")
}

// Load implements Store.
func (s *PostgresStore) Load(ctx context.Context) (map[string]model.ResolutionOutcome, error) {
	rows, err := s.pool.Query(ctx, `SELECT address, outcome::text FROM `+s.table)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load cache")
	}
	defer rows.Close()

	entries := make(map[string]model.ResolutionOutcome)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan cache row")
		}
		v, err := decodeOutcome(key, raw)
		if err != nil {
			return nil, err
		}
		entries[key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate cache")
	}
	return s.replace(entries), nil
}

// Put implements Store. The upsert commits before returning.
func (s *PostgresStore) Put(ctx context.Context, key string, v model.ResolutionOutcome) error {
	return s.put(key, v, func() error {
		data, err := json.Marshal(v)
		if err != nil {
			return eris.Wrap(err, "postgres: encode outcome")
		}
		_, err = s.pool.Exec(ctx, `INSERT INTO `+s.table+` (address, outcome, success, cached_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (address) DO UPDATE SET
				outcome = EXCLUDED.outcome,
				success = EXCLUDED.success,
				cached_at = now()`,
			key, string(data), v.Succeeded,
		)
		return eris.Wrap(err, "postgres: put")
	})
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
