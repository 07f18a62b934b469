package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/rotisserie/eris"

	"github.com/sells-group/address-geocoder/internal/model"
)

// quoteLiteral escapes s for use inside a single-quoted DuckDB string.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// writeParquet stages the records in an in-memory DuckDB table and copies
// them out as Parquet. The COPY targets a temp file that is renamed into
// place once complete.
func writeParquet(path string, records []model.EnrichedRecord, withGroup bool) error {
	ctx := context.Background()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return eris.Wrap(err, "dataset: open duckdb")
	}
	defer db.Close() //nolint:errcheck

	ddl := `CREATE TABLE records (
		original_address VARCHAR,
		normalized_address VARCHAR,
		lat DOUBLE,
		lon DOUBLE,
		geocode_success BOOLEAN,
		match_score DOUBLE,`
	if withGroup {
		ddl += "\n\t\tcity VARCHAR,"
	}
	ddl += "\n\t\tgeocode_error VARCHAR\n\t)"
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return eris.Wrap(err, "dataset: create staging table")
	}

	if err := insertRecords(ctx, db, records, withGroup); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "dataset: create directory")
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%d.tmp", filepath.Base(path), os.Getpid()))
	defer os.Remove(tmp) //nolint:errcheck

	cp := fmt.Sprintf("COPY records TO %s (FORMAT PARQUET)", quoteLiteral(tmp))
	if _, err := db.ExecContext(ctx, cp); err != nil {
		return eris.Wrap(err, "dataset: copy to parquet")
	}
	return eris.Wrap(os.Rename(tmp, path), "dataset: rename parquet")
}

func insertRecords(ctx context.Context, db *sql.DB, records []model.EnrichedRecord, withGroup bool) error {
	cols := Columns(withGroup)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	insert := fmt.Sprintf("INSERT INTO records (%s) VALUES (%s)", strings.Join(cols, ", "), placeholders)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "dataset: begin insert")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return eris.Wrap(err, "dataset: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i, r := range records {
		args := []any{
			r.OriginalText,
			r.NormalizedText,
			nullFloat(r.Latitude),
			nullFloat(r.Longitude),
			r.Succeeded,
			r.QualityScore,
		}
		if withGroup {
			args = append(args, r.Group)
		}
		args = append(args, r.Error)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrapf(err, "dataset: insert record %d", i+1)
		}
	}
	return eris.Wrap(tx.Commit(), "dataset: commit insert")
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// readParquet loads a Parquet file written by writeParquet (or any file
// with the same column names).
func readParquet(path string) ([]model.EnrichedRecord, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrap(err, "dataset: open parquet")
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open duckdb")
	}
	defer db.Close() //nolint:errcheck

	rows, err := db.Query("SELECT * FROM read_parquet(" + quoteLiteral(path) + ")")
	if err != nil {
		return nil, eris.Wrap(err, "dataset: query parquet")
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrap(err, "dataset: parquet columns")
	}
	idx := headerIndex(cols)

	var out []model.EnrichedRecord
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrap(err, "dataset: scan parquet row")
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			row[i] = stringify(v)
		}
		rec, err := fromRow(idx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "dataset: iterate parquet")
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	default:
		return fmt.Sprint(t)
	}
}
