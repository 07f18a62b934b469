package geocode

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/address-geocoder/internal/resilience"
)

const bakerStreetJSON = `[{
	"place_id": 123,
	"lat": "51.5237629",
	"lon": "-0.1584743",
	"display_name": "221B, Baker Street, London",
	"importance": 0.62,
	"category": "tourism",
	"type": "museum"
}]`

func TestNominatimGeocode_Match(t *testing.T) {
	srv, last := jsonServer(t, http.StatusOK, bakerStreetJSON)

	n := NewNominatim(WithBaseURL(srv.URL+"/"), WithUserAgent("address-geocoder-test"), WithEmail("ops@example.com"))
	m, err := n.Geocode(context.Background(), "221b baker street, london")
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.InDelta(t, 51.5237629, m.Latitude, 1e-7)
	assert.InDelta(t, -0.1584743, m.Longitude, 1e-7)
	assert.Equal(t, "nominatim", m.Provider)
	assert.Equal(t, 0.62, m.Raw["importance"])
	assert.Equal(t, "221B, Baker Street, London", m.Raw["display_name"])

	assert.Equal(t, "/search", last.URL.Path)
	q := last.URL.Query()
	assert.Equal(t, "221b baker street, london", q.Get("q"))
	assert.Equal(t, "jsonv2", q.Get("format"))
	assert.Equal(t, "1", q.Get("limit"))
	assert.Equal(t, "ops@example.com", q.Get("email"))
	assert.Equal(t, "address-geocoder-test", last.Header.Get("User-Agent"))
}

func TestNominatimGeocode_NotFound(t *testing.T) {
	srv, _ := jsonServer(t, http.StatusOK, `[]`)

	m, err := NewNominatim(WithBaseURL(srv.URL)).Geocode(context.Background(), "not a real place")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestNominatimGeocode_RateLimitedIsTransient(t *testing.T) {
	srv, _ := jsonServer(t, http.StatusTooManyRequests, `{"error":"slow down"}`)

	_, err := NewNominatim(WithBaseURL(srv.URL)).Geocode(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Contains(t, err.Error(), "status 429")
}

func TestNominatimGeocode_BadRequestIsPermanent(t *testing.T) {
	srv, _ := jsonServer(t, http.StatusBadRequest, `{}`)

	_, err := NewNominatim(WithBaseURL(srv.URL)).Geocode(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestNominatimGeocode_MalformedBody(t *testing.T) {
	srv, _ := jsonServer(t, http.StatusOK, `<html>oops</html>`)

	_, err := NewNominatim(WithBaseURL(srv.URL)).Geocode(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse response")
}

func TestNominatimGeocode_BadCoordinate(t *testing.T) {
	srv, _ := jsonServer(t, http.StatusOK, `[{"lat":"north","lon":"1.0"}]`)

	_, err := NewNominatim(WithBaseURL(srv.URL)).Geocode(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid lat")
}

func TestNominatimGeocode_NonFiniteCoordinate(t *testing.T) {
	for _, lat := range []string{"NaN", "Inf", "-Infinity"} {
		t.Run(lat, func(t *testing.T) {
			srv, _ := jsonServer(t, http.StatusOK, `[{"lat":"`+lat+`","lon":"1.0"}]`)

			m, err := NewNominatim(WithBaseURL(srv.URL)).Geocode(context.Background(), "x")
			require.Error(t, err)
			assert.Nil(t, m)
			assert.Contains(t, err.Error(), "invalid lat")
		})
	}
}

func TestNominatimGeocode_MissingCoordinate(t *testing.T) {
	srv, _ := jsonServer(t, http.StatusOK, `[{"lat":"1.0"}]`)

	_, err := NewNominatim(WithBaseURL(srv.URL)).Geocode(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing lon")
}
