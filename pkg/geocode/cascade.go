package geocode

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Cascade tries providers in order until one finds the address.
type Cascade struct {
	providers []Geocoder
}

// NewCascade creates a Cascade over providers.
func NewCascade(providers ...Geocoder) *Cascade {
	return &Cascade{providers: providers}
}

// Name implements Geocoder.
func (c *Cascade) Name() string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return "cascade(" + strings.Join(names, ",") + ")"
}

// Geocode implements Geocoder. The address is reported not found when at
// least one provider answered cleanly without a match; if every provider
// failed, the last error is returned.
func (c *Cascade) Geocode(ctx context.Context, query string) (*Match, error) {
	var lastErr error
	answered := false
	for _, p := range c.providers {
		m, err := p.Geocode(ctx, query)
		if err != nil {
			zap.L().Debug("cascade: provider error, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			lastErr = err
			if ctx.Err() != nil {
				return nil, err
			}
			continue
		}
		if m != nil {
			return m, nil
		}
		answered = true
	}
	if answered || lastErr == nil {
		return nil, nil
	}
	return nil, lastErr
}
