// Package dataset reads raw address tables and writes the enriched output
// in the formats downstream consumers use.
package dataset

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/address-geocoder/internal/model"
)

// Output columns. The first six are the stable consumer contract.
const (
	ColOriginal   = "original_address"
	ColNormalized = "normalized_address"
	ColLat        = "lat"
	ColLon        = "lon"
	ColSuccess    = "geocode_success"
	ColScore      = "match_score"
	ColGroup      = "city"
	ColError      = "geocode_error"
)

// Columns returns the output header. The group column is only present when
// the input had one.
func Columns(withGroup bool) []string {
	cols := []string{ColOriginal, ColNormalized, ColLat, ColLon, ColSuccess, ColScore}
	if withGroup {
		cols = append(cols, ColGroup)
	}
	return append(cols, ColError)
}

// HasGroups reports whether any record carries a group.
func HasGroups(records []model.EnrichedRecord) bool {
	for _, r := range records {
		if r.Group != "" {
			return true
		}
	}
	return false
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

// toRow renders a record in Columns order.
func toRow(r model.EnrichedRecord, withGroup bool) []string {
	row := []string{
		r.OriginalText,
		r.NormalizedText,
		formatOptional(r.Latitude),
		formatOptional(r.Longitude),
		strconv.FormatBool(r.Succeeded),
		formatFloat(r.QualityScore),
	}
	if withGroup {
		row = append(row, r.Group)
	}
	return append(row, r.Error)
}

// fromRow parses a row using a header index built by headerIndex.
func fromRow(idx map[string]int, row []string) (model.EnrichedRecord, error) {
	get := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	rec := model.EnrichedRecord{
		OriginalText:   get(ColOriginal),
		NormalizedText: get(ColNormalized),
		Group:          get(ColGroup),
		Error:          get(ColError),
	}

	var err error
	if s := get(ColSuccess); s != "" {
		if rec.Succeeded, err = strconv.ParseBool(strings.ToLower(s)); err != nil {
			return rec, eris.Wrapf(err, "dataset: invalid %s %q", ColSuccess, s)
		}
	}
	if s := get(ColScore); s != "" {
		if rec.QualityScore, err = strconv.ParseFloat(s, 64); err != nil {
			return rec, eris.Wrapf(err, "dataset: invalid %s %q", ColScore, s)
		}
	}
	if rec.Latitude, err = parseOptional(ColLat, get(ColLat)); err != nil {
		return rec, err
	}
	if rec.Longitude, err = parseOptional(ColLon, get(ColLon)); err != nil {
		return rec, err
	}
	return rec, nil
}

func parseOptional(col, s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: invalid %s %q", col, s)
	}
	return &v, nil
}

// headerIndex maps trimmed, lower-cased column names to their position.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

// atomicWrite writes path through a temp file in the same directory so
// readers never see a partial file.
func atomicWrite(path string, write func(f *os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "dataset: create directory")
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "dataset: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := write(tmp); err != nil {
		tmp.Close() //nolint:errcheck
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "dataset: sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "dataset: close temp file")
	}
	return eris.Wrap(os.Rename(tmp.Name(), path), "dataset: rename temp file")
}

func extension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
