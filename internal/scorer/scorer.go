// Package scorer assigns a [0,1] confidence to resolution outcomes.
package scorer

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/address-geocoder/internal/model"
)

// Scorer maps an outcome to a confidence in [0,1]. Failed outcomes score 0.
type Scorer interface {
	Score(out model.ResolutionOutcome) float64
}

// Bucket scores.
const (
	ScoreFailed     = 0.0
	ScoreConfident  = 1.0
	ScoreUnsignaled = 0.8
)

// New returns the Scorer for policy: "importance" (default) or "precision".
func New(policy string) (Scorer, error) {
	switch policy {
	case "", "importance":
		return NewImportanceScorer(), nil
	case "precision":
		return NewPrecisionScorer(), nil
	default:
		return nil, eris.Errorf("scorer: unknown policy %q", policy)
	}
}

// ImportanceScorer rates a success 1.0 when the provider metadata carries a
// truthy confidence signal and 0.8 otherwise.
type ImportanceScorer struct {
	Signals []string
}

// NewImportanceScorer recognizes Nominatim's "importance" field.
func NewImportanceScorer() *ImportanceScorer {
	return &ImportanceScorer{Signals: []string{"importance"}}
}

// Score implements Scorer.
func (s *ImportanceScorer) Score(out model.ResolutionOutcome) float64 {
	if !out.Succeeded || len(out.Raw) == 0 {
		return ScoreFailed
	}
	for _, key := range s.Signals {
		if truthy(out.Raw[key]) {
			return ScoreConfident
		}
	}
	return ScoreUnsignaled
}

// PrecisionScorer rates a success by the match precision reported in the
// raw "quality" field (rooftop, range, centroid, approximate), falling back
// to ImportanceScorer when the provider reports none.
type PrecisionScorer struct {
	Levels   map[string]float64
	Fallback Scorer
}

// NewPrecisionScorer returns a PrecisionScorer with the default levels.
func NewPrecisionScorer() *PrecisionScorer {
	return &PrecisionScorer{
		Levels: map[string]float64{
			"rooftop":     1.0,
			"range":       0.9,
			"centroid":    0.7,
			"approximate": 0.5,
		},
		Fallback: NewImportanceScorer(),
	}
}

// Score implements Scorer.
func (s *PrecisionScorer) Score(out model.ResolutionOutcome) float64 {
	if !out.Succeeded {
		return ScoreFailed
	}
	if q, ok := out.Raw["quality"].(string); ok {
		if v, ok := s.Levels[q]; ok {
			return Clamp(v)
		}
	}
	return Clamp(s.Fallback.Score(out))
}

// Clamp bounds v to [0,1]; NaN becomes 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// truthy follows the usual dynamic-language notion: zero numbers, empty
// strings and empty collections are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case float32:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
