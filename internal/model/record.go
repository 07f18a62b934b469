package model

// EnrichedRecord is one row of the output dataset. Records are produced once
// by the pipeline and never modified afterwards.
type EnrichedRecord struct {
	OriginalText   string   `json:"original_address"`
	NormalizedText string   `json:"normalized_address"`
	Latitude       *float64 `json:"lat"`
	Longitude      *float64 `json:"lon"`
	Succeeded      bool     `json:"geocode_success"`
	QualityScore   float64  `json:"match_score"`
	Group          string   `json:"city,omitempty"`
	Error          string   `json:"geocode_error,omitempty"`
}

// NewEnrichedRecord assembles an output row from an input, its normalized
// form, the resolution outcome and its score.
func NewEnrichedRecord(in AddressInput, normalized string, out ResolutionOutcome, score float64) EnrichedRecord {
	rec := EnrichedRecord{
		OriginalText:   in.OriginalText,
		NormalizedText: normalized,
		Succeeded:      out.Succeeded,
		QualityScore:   score,
		Group:          in.Group,
		Error:          out.Error,
	}
	if out.Succeeded {
		lat, lon := *out.Latitude, *out.Longitude
		rec.Latitude = &lat
		rec.Longitude = &lon
	}
	return rec
}

// Point returns the record coordinates when the record was geocoded.
func (r EnrichedRecord) Point() (lat, lon float64, ok bool) {
	if !r.Succeeded || r.Latitude == nil || r.Longitude == nil {
		return 0, 0, false
	}
	return *r.Latitude, *r.Longitude, true
}
