package geocode

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/address-geocoder/internal/resilience"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// googleGeocodeResponse is the JSON response from the Google Geocoding API.
type googleGeocodeResponse struct {
	Results      []googleResult `json:"results"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		LocationType string `json:"location_type"`
	} `json:"geometry"`
	FormattedAddress string   `json:"formatted_address"`
	PlaceID          string   `json:"place_id"`
	Types            []string `json:"types"`
	PartialMatch     bool     `json:"partial_match"`
}

// Google geocodes with the Google Geocoding API.
type Google struct {
	key  string
	opts options
}

// NewGoogle creates a Google provider with the given API key.
func NewGoogle(key string, opts ...Option) *Google {
	o := defaultOptions()
	o.baseURL = googleGeocodeURL
	for _, opt := range opts {
		opt(&o)
	}
	return &Google{key: key, opts: o}
}

// Name implements Geocoder.
func (g *Google) Name() string { return "google" }

// Geocode implements Geocoder.
func (g *Google) Geocode(ctx context.Context, query string) (*Match, error) {
	if g.key == "" {
		return nil, eris.New("geocode: google api key not configured")
	}

	params := url.Values{
		"address": {query},
		"key":     {g.key},
	}

	var resp googleGeocodeResponse
	if err := getJSON(ctx, g.opts.httpClient, g.Name(), g.opts.baseURL+"?"+params.Encode(), g.opts.userAgent, &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
		return nil, resilience.NewTransientError(eris.Errorf("geocode: google status %s", resp.Status), 0)
	default:
		return nil, eris.Errorf("geocode: google status %s: %s", resp.Status, resp.ErrorMessage)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	r := resp.Results[0]
	return &Match{
		Latitude:  r.Geometry.Location.Lat,
		Longitude: r.Geometry.Location.Lng,
		Provider:  g.Name(),
		Raw: map[string]any{
			"formatted_address": r.FormattedAddress,
			"location_type":     r.Geometry.LocationType,
			"place_id":          r.PlaceID,
			"partial_match":     r.PartialMatch,
			"quality":           googleLocationTypeToQuality(r.Geometry.LocationType),
		},
	}, nil
}

// googleLocationTypeToQuality maps Google's location_type to our quality taxonomy.
func googleLocationTypeToQuality(locType string) string {
	switch strings.ToUpper(locType) {
	case "ROOFTOP":
		return "rooftop"
	case "RANGE_INTERPOLATED":
		return "range"
	case "GEOMETRIC_CENTER":
		return "centroid"
	default:
		return "approximate"
	}
}
