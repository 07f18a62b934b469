// Package resolver wraps an external geocoding service with the policies a
// batch run needs: a minimum spacing between calls, capped retries for
// transient failures, and conversion of every result into a
// model.ResolutionOutcome so that no single address can abort a run.
package resolver

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/address-geocoder/internal/config"
	"github.com/sells-group/address-geocoder/internal/model"
	"github.com/sells-group/address-geocoder/internal/resilience"
	"github.com/sells-group/address-geocoder/pkg/geocode"
)

// Resolver resolves normalized addresses one at a time. It owns its rate
// limiter; create one per run.
type Resolver struct {
	geocoder geocode.Geocoder
	limiter  *rate.Limiter
	retry    resilience.RetryConfig
	breaker  *resilience.CircuitBreaker
	calls    atomic.Int64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMinDelay sets the minimum spacing between external calls. Zero or
// negative disables spacing.
func WithMinDelay(d time.Duration) Option {
	return func(r *Resolver) {
		r.limiter = newLimiter(d)
	}
}

// WithRetry sets the retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(r *Resolver) {
		r.retry = cfg
	}
}

// WithCircuitBreaker fails lookups fast once the service has failed
// threshold resolutions in a row. threshold <= 0 disables the breaker.
func WithCircuitBreaker(threshold int, reset time.Duration) Option {
	return func(r *Resolver) {
		if threshold <= 0 {
			r.breaker = nil
			return
		}
		r.breaker = resilience.NewCircuitBreaker(resilience.BreakerConfig{
			Threshold:    threshold,
			ResetTimeout: reset,
			OnStateChange: func(from, to resilience.BreakerState) {
				zap.L().Warn("resolver: circuit breaker state change",
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
	}
}

// New creates a Resolver around g. Defaults: one call per second, two
// retries, no circuit breaker.
func New(g geocode.Geocoder, opts ...Option) *Resolver {
	r := &Resolver{
		geocoder: g,
		limiter:  newLimiter(time.Second),
		retry:    resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func newLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// Calls returns the number of external calls made so far, retries included.
func (r *Resolver) Calls() int {
	return int(r.calls.Load())
}

// Resolve looks up a normalized address. It never returns an error: a
// match becomes model.Resolved, a clean miss model.NotFound, and a failure
// that survives the retries model.Faulted carrying the diagnostic. A match
// whose coordinates are not finite or out of range is also a fault.
func (r *Resolver) Resolve(ctx context.Context, normalized string) model.ResolutionOutcome {
	if strings.TrimSpace(normalized) == "" {
		return model.NotFound()
	}

	retry := r.retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(r.geocoder.Name(), normalized)
	}

	lookup := func(ctx context.Context) (*geocode.Match, error) {
		return resilience.DoVal(ctx, retry, func(ctx context.Context) (*geocode.Match, error) {
			return r.attempt(ctx, normalized)
		})
	}

	var (
		match *geocode.Match
		err   error
	)
	if r.breaker != nil {
		match, err = resilience.ExecuteVal(ctx, r.breaker, lookup)
	} else {
		match, err = lookup(ctx)
	}

	switch {
	case err != nil:
		zap.L().Warn("resolver: lookup failed",
			zap.String("address", normalized),
			zap.String("provider", r.geocoder.Name()),
			zap.String("error_type", resilience.Classify(err)),
			zap.Error(err),
		)
		return model.Faulted(err.Error())
	case match == nil:
		return model.NotFound()
	}

	if err := model.CheckCoordinates(match.Latitude, match.Longitude); err != nil {
		zap.L().Warn("resolver: unusable coordinates",
			zap.String("address", normalized),
			zap.String("provider", r.geocoder.Name()),
			zap.Error(err),
		)
		return model.Faulted("geocode: invalid coordinates from " + r.geocoder.Name() + ": " + err.Error())
	}
	return model.Resolved(match.Latitude, match.Longitude, match.Raw)
}

// attempt is one rate-limited external call.
func (r *Resolver) attempt(ctx context.Context, query string) (*geocode.Match, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	r.calls.Add(1)
	return r.geocoder.Geocode(ctx, query)
}

// FromConfig builds a Resolver with the limits in cfg.
func FromConfig(g geocode.Geocoder, cfg config.GeocodeConfig) *Resolver {
	return New(g,
		WithMinDelay(cfg.MinDelay()),
		WithRetry(resilience.FromRetries(cfg.MaxRetries, cfg.InitialBackoffMs, cfg.MaxBackoffMs)),
		WithCircuitBreaker(cfg.BreakerThreshold, time.Duration(cfg.BreakerResetSecs)*time.Second),
	)
}
