// Package geocode provides the external lookup services that turn a
// normalized address into coordinates: Nominatim (default), Google and the
// Census one-line geocoder, optionally chained as a cascade.
package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/address-geocoder/internal/resilience"
)

// Match is a successful lookup.
type Match struct {
	Latitude  float64
	Longitude float64
	Provider  string
	// Raw carries provider metadata as returned, for scoring and audit.
	Raw map[string]any
}

// Geocoder resolves one address. A nil Match with a nil error means the
// service answered and found nothing.
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, query string) (*Match, error)
}

// Option configures a provider.
type Option func(*options)

type options struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	email      string
}

func defaultOptions() options {
	return options{httpClient: &http.Client{Timeout: 10 * time.Second}}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		if hc != nil {
			o.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithBaseURL overrides the service endpoint.
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

// WithUserAgent sets the User-Agent header. Nominatim's usage policy
// requires one that identifies the application.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithEmail adds a contact address to Nominatim requests.
func WithEmail(email string) Option {
	return func(o *options) {
		o.email = email
	}
}

// getJSON performs a GET and decodes a JSON body into dst. 429 and 5xx
// responses come back as resilience.TransientError so the resolver retries
// them.
func getJSON(ctx context.Context, hc *http.Client, provider, reqURL, userAgent string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrapf(err, "geocode: %s build request", provider)
	}
	req.Header.Set("Accept", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return eris.Wrapf(err, "geocode: %s request", provider)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		statusErr := eris.Errorf("geocode: %s returned status %d", provider, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrapf(err, "geocode: %s read body", provider)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return eris.Wrapf(err, "geocode: %s parse response", provider)
	}
	return nil
}
