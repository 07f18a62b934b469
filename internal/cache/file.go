package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/address-geocoder/internal/model"
)

// FileStore keeps the cache as one indented JSON object on disk, readable
// and editable by hand. Every Put rewrites the whole file atomically.
type FileStore struct {
	memo
	path string
}

// NewFileStore returns a FileStore backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Load implements Store. A missing or zero-length file is an empty cache; a
// file that does not parse is an error rather than silently discarded.
func (s *FileStore) Load(_ context.Context) (map[string]model.ResolutionOutcome, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.replace(make(map[string]model.ResolutionOutcome)), nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "cache: read file")
	}

	entries := make(map[string]model.ResolutionOutcome)
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, eris.Wrapf(err, "cache: parse %s", s.path)
		}
	}
	for k, v := range entries {
		if err := v.Validate(); err != nil {
			return nil, eris.Wrapf(err, "cache: entry %q", k)
		}
	}
	return s.replace(entries), nil
}

// Put implements Store.
func (s *FileStore) Put(_ context.Context, key string, v model.ResolutionOutcome) error {
	return s.put(key, v, s.flush)
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }

// flush writes the full map to a temp file in the target directory, syncs
// it, renames it over the target and syncs the directory. Callers hold the
// write lock.
func (s *FileStore) flush() error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.entries); err != nil {
		return eris.Wrap(err, "cache: encode")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "cache: create directory")
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "cache: create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "cache: write temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "cache: sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "cache: close temp file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return eris.Wrap(err, "cache: rename temp file")
	}
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return eris.Wrap(err, "cache: open directory")
	}
	defer d.Close() //nolint:errcheck
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return eris.Wrap(err, "cache: sync directory")
	}
	return nil
}
