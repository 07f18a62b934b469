package model

import (
	"math"

	"github.com/rotisserie/eris"
)

// ResolutionOutcome is the result of resolving one normalized address. Either
// Succeeded is true and both coordinates are set, or Succeeded is false and
// both coordinates are nil. Error is only set when the lookup mechanism
// itself failed; an address the service does not know has no error.
//
// The JSON form matches the persisted cache entry format.
type ResolutionOutcome struct {
	Latitude  *float64       `json:"lat"`
	Longitude *float64       `json:"lon"`
	Raw       map[string]any `json:"raw"`
	Succeeded bool           `json:"success"`
	Error     string         `json:"error"`
}

// Resolved builds a successful outcome.
func Resolved(lat, lon float64, raw map[string]any) ResolutionOutcome {
	return ResolutionOutcome{
		Latitude:  &lat,
		Longitude: &lon,
		Raw:       raw,
		Succeeded: true,
	}
}

// NotFound builds the outcome for a well-formed "no match" response.
func NotFound() ResolutionOutcome {
	return ResolutionOutcome{}
}

// Faulted builds the outcome for a lookup that failed after retries.
func Faulted(msg string) ResolutionOutcome {
	if msg == "" {
		msg = "unknown error"
	}
	return ResolutionOutcome{Error: msg}
}

// IsNotFound reports whether the lookup completed but found nothing.
func (o ResolutionOutcome) IsNotFound() bool {
	return !o.Succeeded && o.Error == ""
}

// IsFault reports whether the lookup mechanism failed.
func (o ResolutionOutcome) IsFault() bool {
	return !o.Succeeded && o.Error != ""
}

// Validate checks the coordinate invariant. Outcomes loaded from a persisted
// cache are validated before use.
func (o ResolutionOutcome) Validate() error {
	hasLat, hasLon := o.Latitude != nil, o.Longitude != nil
	if o.Succeeded {
		if !hasLat || !hasLon {
			return eris.New("model: successful outcome is missing coordinates")
		}
		if err := CheckCoordinates(*o.Latitude, *o.Longitude); err != nil {
			return eris.Wrap(err, "model: successful outcome has unusable coordinates")
		}
		if o.Error != "" {
			return eris.New("model: successful outcome carries an error")
		}
		return nil
	}
	if hasLat || hasLon {
		return eris.New("model: failed outcome carries coordinates")
	}
	return nil
}

// CheckCoordinates rejects non-finite values and values outside the WGS84
// ranges (lat [-90,90], lon [-180,180]).
func CheckCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return eris.Errorf("latitude %v out of range", lat)
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return eris.Errorf("longitude %v out of range", lon)
	}
	return nil
}
