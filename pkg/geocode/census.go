package geocode

import (
	"context"
	"net/url"
)

const (
	censusOneLineURL = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"
	censusBenchmark  = "Public_AR_Current"
)

// censusOneLineResponse is the JSON response from the Census single-address API.
type censusOneLineResponse struct {
	Result struct {
		AddressMatches []censusAddressMatch `json:"addressMatches"`
	} `json:"result"`
}

type censusAddressMatch struct {
	Coordinates struct {
		X float64 `json:"x"` // longitude
		Y float64 `json:"y"` // latitude
	} `json:"coordinates"`
	TigerLine struct {
		Side    string `json:"side"`
		TigerID string `json:"tigerLineId"`
	} `json:"tigerLine"`
	MatchedAddress string `json:"matchedAddress"`
}

// Census geocodes US addresses with the Census Bureau one-line geocoder.
type Census struct {
	opts options
}

// NewCensus creates a Census provider.
func NewCensus(opts ...Option) *Census {
	o := defaultOptions()
	o.baseURL = censusOneLineURL
	for _, opt := range opts {
		opt(&o)
	}
	return &Census{opts: o}
}

// Name implements Geocoder.
func (c *Census) Name() string { return "census" }

// Geocode implements Geocoder.
func (c *Census) Geocode(ctx context.Context, query string) (*Match, error) {
	params := url.Values{
		"address":   {query},
		"benchmark": {censusBenchmark},
		"format":    {"json"},
	}

	var resp censusOneLineResponse
	if err := getJSON(ctx, c.opts.httpClient, c.Name(), c.opts.baseURL+"?"+params.Encode(), c.opts.userAgent, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result.AddressMatches) == 0 {
		return nil, nil
	}

	m := resp.Result.AddressMatches[0]
	return &Match{
		Latitude:  m.Coordinates.Y,
		Longitude: m.Coordinates.X,
		Provider:  c.Name(),
		Raw: map[string]any{
			"matched_address": m.MatchedAddress,
			"tiger_line_id":   m.TigerLine.TigerID,
			"side":            m.TigerLine.Side,
			"quality":         "rooftop", // Census one-line matches are exact
		},
	}, nil
}
