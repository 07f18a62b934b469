package pipeline

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/mock"

	"github.com/sells-group/address-geocoder/internal/model"
	"github.com/sells-group/address-geocoder/pkg/geocode"
)

// --- Resolver Mock ---

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, normalized string) model.ResolutionOutcome {
	args := m.Called(ctx, normalized)
	return args.Get(0).(model.ResolutionOutcome)
}

// --- Cache Stub ---

// memCache is an in-memory cache.Store that can be told to fail writes.
type memCache struct {
	mu      sync.Mutex
	entries map[string]model.ResolutionOutcome
	puts    []string
	failPut bool
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]model.ResolutionOutcome)}
}

func (c *memCache) Load(_ context.Context) (map[string]model.ResolutionOutcome, error) {
	return c.entries, nil
}

func (c *memCache) Get(key string) (model.ResolutionOutcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *memCache) Put(_ context.Context, key string, v model.ResolutionOutcome) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failPut {
		return eris.New("disk full")
	}
	c.entries[key] = v
	c.puts = append(c.puts, key)
	return nil
}

func (c *memCache) Len() int     { return len(c.entries) }
func (c *memCache) Close() error { return nil }

// --- Progress Stub ---

type countingProgress struct{ n int }

func (p *countingProgress) Add(n int) error {
	p.n += n
	return nil
}

// brokenProgress counts rows but reports a write failure each time.
type brokenProgress struct{ n int }

func (p *brokenProgress) Add(n int) error {
	p.n += n
	return eris.New("write /dev/tty: broken pipe")
}

// --- Geocoder Stub ---

// scriptedGeocoder answers from a fixed table; unknown queries are not found.
type scriptedGeocoder struct {
	matches map[string]*geocode.Match
}

func (g *scriptedGeocoder) Name() string { return "scripted" }

func (g *scriptedGeocoder) Geocode(_ context.Context, query string) (*geocode.Match, error) {
	return g.matches[query], nil
}
