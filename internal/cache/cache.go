// Package cache persists resolution outcomes keyed by normalized address so
// that no address is sent to the lookup service twice, within a run or
// across runs.
package cache

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/address-geocoder/internal/config"
	"github.com/sells-group/address-geocoder/internal/model"
)

// Store is a write-through lookup cache. Put must not return before the
// entry is durable; a Put error means the durability guarantee is lost and
// the caller should stop.
type Store interface {
	// Load restores persisted entries. Missing state is an empty cache.
	Load(ctx context.Context) (map[string]model.ResolutionOutcome, error)
	// Get reads the in-memory state.
	Get(key string) (model.ResolutionOutcome, bool)
	// Put inserts or replaces key and persists before returning.
	Put(ctx context.Context, key string, v model.ResolutionOutcome) error
	Len() int
	Close() error
}

// Open returns the Store selected by cfg.Driver. The store is empty until
// Load is called.
func Open(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	switch cfg.Driver {
	case "", "file":
		if cfg.Path == "" {
			return nil, eris.New("cache: file driver requires a path")
		}
		return NewFileStore(cfg.Path), nil
	case "sqlite":
		return NewSQLiteStore(ctx, cfg.Path)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DatabaseURL, cfg.Table)
	default:
		return nil, eris.Errorf("cache: unknown driver %q", cfg.Driver)
	}
}

// memo is the in-memory view shared by all backends.
type memo struct {
	mu      sync.RWMutex
	entries map[string]model.ResolutionOutcome
}

func (m *memo) Get(key string) (model.ResolutionOutcome, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok
}

func (m *memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// replace swaps in freshly loaded entries and returns a copy for the caller.
func (m *memo) replace(entries map[string]model.ResolutionOutcome) map[string]model.ResolutionOutcome {
	out := make(map[string]model.ResolutionOutcome, len(entries))
	for k, v := range entries {
		out[k] = v
	}
	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()
	return out
}

// put sets key under the write lock and runs persist. The previous state of
// key is restored if persist fails, so memory never claims more than disk.
func (m *memo) put(key string, v model.ResolutionOutcome, persist func() error) error {
	if err := v.Validate(); err != nil {
		return eris.Wrapf(err, "cache: refusing invalid outcome for %q", key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]model.ResolutionOutcome)
	}
	prev, had := m.entries[key]
	m.entries[key] = v

	if err := persist(); err != nil {
		if had {
			m.entries[key] = prev
		} else {
			delete(m.entries, key)
		}
		return err
	}
	return nil
}
