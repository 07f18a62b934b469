package geocode

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/address-geocoder/internal/config"
)

// New builds the provider chain described by cfg. A single provider is
// returned as is; several are wrapped in a Cascade.
func New(cfg config.GeocodeConfig, extra ...Option) (Geocoder, error) {
	chain := cfg.ProviderChain()
	if len(chain) == 0 {
		return nil, eris.New("geocode: no provider configured")
	}

	base := []Option{WithTimeout(cfg.Timeout()), WithUserAgent(cfg.UserAgent)}

	providers := make([]Geocoder, 0, len(chain))
	for _, name := range chain {
		opts := append([]Option{}, base...)
		switch name {
		case "nominatim":
			if cfg.BaseURL != "" {
				opts = append(opts, WithBaseURL(cfg.BaseURL))
			}
			opts = append(opts, WithEmail(cfg.Email))
			providers = append(providers, NewNominatim(append(opts, extra...)...))
		case "google":
			if cfg.GoogleAPIKey == "" {
				return nil, eris.New("geocode: google provider requires google_api_key")
			}
			providers = append(providers, NewGoogle(cfg.GoogleAPIKey, append(opts, extra...)...))
		case "census":
			providers = append(providers, NewCensus(append(opts, extra...)...))
		default:
			return nil, eris.Errorf("geocode: unknown provider %q", name)
		}
	}

	if len(providers) == 1 {
		return providers[0], nil
	}
	return NewCascade(providers...), nil
}
