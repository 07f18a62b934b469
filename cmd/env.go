package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/address-geocoder/internal/cache"
	"github.com/sells-group/address-geocoder/internal/config"
	"github.com/sells-group/address-geocoder/internal/normalize"
	"github.com/sells-group/address-geocoder/internal/pipeline"
	"github.com/sells-group/address-geocoder/internal/resolver"
	"github.com/sells-group/address-geocoder/internal/scorer"
	"github.com/sells-group/address-geocoder/pkg/geocode"
)

// runEnv holds the cache, resolver and pipeline used by the run command.
type runEnv struct {
	Cache    cache.Store
	Resolver *resolver.Resolver
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (e *runEnv) Close() {
	if e.Cache != nil {
		if err := e.Cache.Close(); err != nil {
			zap.L().Warn("close cache", zap.Error(err))
		}
	}
}

// openCache opens and loads the configured cache backend.
func openCache(ctx context.Context, c config.CacheConfig) (cache.Store, error) {
	store, err := cache.Open(ctx, c)
	if err != nil {
		return nil, err
	}
	entries, err := store.Load(ctx)
	if err != nil {
		_ = store.Close()
		return nil, eris.Wrap(err, "load cache")
	}
	zap.L().Info("cache loaded", zap.String("driver", c.Driver), zap.Int("entries", len(entries)))
	return store, nil
}

// initRunEnv wires the cache, provider chain, resolver, scorer and
// pipeline from c. Callers should defer env.Close().
func initRunEnv(ctx context.Context, c *config.Config, opts ...pipeline.Option) (*runEnv, error) {
	if err := c.Validate("run"); err != nil {
		return nil, err
	}

	geocoder, err := geocode.New(c.Geocode)
	if err != nil {
		return nil, err
	}
	sc, err := scorer.New(c.Score.Policy)
	if err != nil {
		return nil, err
	}

	store, err := openCache(ctx, c.Cache)
	if err != nil {
		return nil, err
	}

	res := resolver.FromConfig(geocoder, c.Geocode)
	opts = append([]pipeline.Option{pipeline.WithNormalizer(normalize.New(c.Normalize.Expansions...))}, opts...)

	return &runEnv{
		Cache:    store,
		Resolver: res,
		Pipeline: pipeline.New(store, res, sc, opts...),
	}, nil
}
