package geocode

import (
	"context"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

const nominatimBaseURL = "https://nominatim.openstreetmap.org"

// Nominatim geocodes against an OpenStreetMap Nominatim instance.
type Nominatim struct {
	opts options
}

// NewNominatim creates a Nominatim provider. The public instance is used
// unless WithBaseURL is given.
func NewNominatim(opts ...Option) *Nominatim {
	o := defaultOptions()
	o.baseURL = nominatimBaseURL
	for _, opt := range opts {
		opt(&o)
	}
	o.baseURL = strings.TrimRight(o.baseURL, "/")
	return &Nominatim{opts: o}
}

// Name implements Geocoder.
func (n *Nominatim) Name() string { return "nominatim" }

// Geocode implements Geocoder. The first search result is returned with
// its full JSON object as Raw, including the importance field.
func (n *Nominatim) Geocode(ctx context.Context, query string) (*Match, error) {
	params := url.Values{
		"q":              {query},
		"format":         {"jsonv2"},
		"limit":          {"1"},
		"addressdetails": {"1"},
	}
	if n.opts.email != "" {
		params.Set("email", n.opts.email)
	}

	var results []map[string]any
	if err := getJSON(ctx, n.opts.httpClient, n.Name(), n.opts.baseURL+"/search?"+params.Encode(), n.opts.userAgent, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	raw := results[0]
	lat, err := coordinate(raw, "lat")
	if err != nil {
		return nil, err
	}
	lon, err := coordinate(raw, "lon")
	if err != nil {
		return nil, err
	}
	return &Match{Latitude: lat, Longitude: lon, Provider: n.Name(), Raw: raw}, nil
}

// coordinate reads a Nominatim coordinate, which the API encodes as a
// decimal string.
func coordinate(raw map[string]any, key string) (float64, error) {
	switch v := raw[key].(type) {
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, eris.Wrapf(err, "geocode: nominatim invalid %s %q", key, v)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, eris.Errorf("geocode: nominatim invalid %s %q", key, v)
		}
		return f, nil
	case float64:
		return v, nil
	default:
		return 0, eris.Errorf("geocode: nominatim result missing %s", key)
	}
}
