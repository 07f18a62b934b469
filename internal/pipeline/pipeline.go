// Package pipeline drives a geocoding run: normalize each address, reuse a
// cached outcome or resolve and persist a new one, score it, and collect the
// enriched records in input order.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/address-geocoder/internal/cache"
	"github.com/sells-group/address-geocoder/internal/model"
	"github.com/sells-group/address-geocoder/internal/normalize"
	"github.com/sells-group/address-geocoder/internal/scorer"
)

// Resolver resolves one normalized address. Implementations never fail;
// problems are reported inside the outcome.
type Resolver interface {
	Resolve(ctx context.Context, normalized string) model.ResolutionOutcome
}

// Progress is advanced once per processed row.
type Progress interface {
	Add(n int) error
}

// Result is the output of a run.
type Result struct {
	Records []model.EnrichedRecord
	Summary model.RunSummary
	Stats   model.RunStats
}

// Pipeline runs batches against one cache, resolver and scorer.
type Pipeline struct {
	normalizer  *normalize.Normalizer
	cache       cache.Store
	resolver    Resolver
	scorer      scorer.Scorer
	progress    Progress
	retryFaults bool
	runID       func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithNormalizer replaces the default normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(p *Pipeline) {
		if n != nil {
			p.normalizer = n
		}
	}
}

// WithProgress reports per-row progress.
func WithProgress(pr Progress) Option {
	return func(p *Pipeline) {
		p.progress = pr
	}
}

// WithRetryFaults treats cached mechanism faults as misses so they are
// resolved again. Cached successes and not-found results are still reused.
func WithRetryFaults(retry bool) Option {
	return func(p *Pipeline) {
		p.retryFaults = retry
	}
}

// New creates a Pipeline. The cache must already be loaded.
func New(c cache.Store, r Resolver, s scorer.Scorer, opts ...Option) *Pipeline {
	p := &Pipeline{
		normalizer: normalize.New(),
		cache:      c,
		resolver:   r,
		scorer:     s,
		runID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes inputs strictly in order. Each miss is written to the cache
// before the next row starts. The only errors are a failed cache write and
// context cancellation; in both cases every earlier resolution is already
// persisted.
func (p *Pipeline) Run(ctx context.Context, inputs []model.AddressInput) (*Result, error) {
	start := time.Now()
	stats := model.RunStats{RunID: p.runID()}
	log := zap.L().With(zap.String("run_id", stats.RunID))
	log.Info("pipeline: starting run", zap.Int("rows", len(inputs)), zap.Int("cached", p.cache.Len()))

	records := make([]model.EnrichedRecord, 0, len(inputs))
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrapf(err, "pipeline: interrupted before row %d", in.Row)
		}

		key := p.normalizer.Normalize(in.OriginalText)
		out, hit := p.cache.Get(key)
		if hit && p.retryFaults && out.IsFault() {
			hit = false
		}

		if hit {
			stats.CacheHits++
		} else {
			out = p.resolver.Resolve(ctx, key)
			// Outcomes produced after cancellation are not cached.
			if err := ctx.Err(); err != nil {
				return nil, eris.Wrapf(err, "pipeline: interrupted at row %d", in.Row)
			}
			stats.Lookups++
			if err := p.cache.Put(ctx, key, out); err != nil {
				return nil, eris.Wrapf(err, "pipeline: persist cache entry for row %d", in.Row)
			}
		}

		rec := model.NewEnrichedRecord(in, key, out, scorer.Clamp(p.scorer.Score(out)))
		records = append(records, rec)

		log.Debug("pipeline: row processed",
			zap.Int("row", in.Row),
			zap.String("address", key),
			zap.Bool("cache_hit", hit),
			zap.Bool("success", rec.Succeeded),
			zap.Float64("score", rec.QualityScore),
			zap.String("error", rec.Error),
		)

		if p.progress != nil {
			if err := p.progress.Add(1); err != nil {
				log.Debug("pipeline: progress update failed", zap.Int("row", in.Row), zap.Error(err))
			}
		}
	}

	stats.Duration = time.Since(start)
	summary := Summarize(records)
	log.Info("pipeline: batch complete",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("not_found", summary.NotFound),
		zap.Int("faulted", summary.Faulted),
		zap.Float64("success_rate", summary.SuccessRate),
		zap.Int("cache_hits", stats.CacheHits),
		zap.Int("lookups", stats.Lookups),
		zap.Duration("duration", stats.Duration),
	)

	return &Result{Records: records, Summary: summary, Stats: stats}, nil
}
