package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/address-geocoder/internal/model"
)

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address   TEXT PRIMARY KEY,
	outcome   TEXT NOT NULL,
	success   INTEGER NOT NULL DEFAULT 0,
	cached_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// SQLiteStore keeps the cache in a SQLite database. Outcomes are stored as
// JSON text, inspectable with the sqlite3 shell.
type SQLiteStore struct {
	memo
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path.
// synchronous=FULL makes each committed Put durable.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, eris.New("sqlite: path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrap(err, "sqlite: create directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=FULL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteMigration); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "sqlite: migrate")
	}
	return &SQLiteStore{db: db}, nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context) (map[string]model.ResolutionOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT address, outcome FROM geocode_cache`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load cache")
	}
	defer rows.Close() //nolint:errcheck

	entries := make(map[string]model.ResolutionOutcome)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cache row")
		}
		v, err := decodeOutcome(key, raw)
		if err != nil {
			return nil, err
		}
		entries[key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate cache")
	}
	return s.replace(entries), nil
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, key string, v model.ResolutionOutcome) error {
	return s.put(key, v, func() error {
		data, err := json.Marshal(v)
		if err != nil {
			return eris.Wrap(err, "sqlite: encode outcome")
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO geocode_cache (address, outcome, success, cached_at)
			VALUES (?, ?, ?, datetime('now'))
			ON CONFLICT(address) DO UPDATE SET
				outcome = excluded.outcome,
				success = excluded.success,
				cached_at = excluded.cached_at`,
			key, string(data), v.Succeeded,
		)
		return eris.Wrap(err, "sqlite: put")
	})
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func decodeOutcome(key, raw string) (model.ResolutionOutcome, error) {
	var v model.ResolutionOutcome
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, eris.Wrapf(err, "cache: decode entry %q", key)
	}
	if err := v.Validate(); err != nil {
		return v, eris.Wrapf(err, "cache: entry %q", key)
	}
	return v, nil
}
