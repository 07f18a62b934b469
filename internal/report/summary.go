package report

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/address-geocoder/internal/model"
)

// SummaryDocument is the on-disk run summary.
type SummaryDocument struct {
	RunID       string           `yaml:"run_id,omitempty"`
	GeneratedAt time.Time        `yaml:"generated_at"`
	Output      string           `yaml:"output,omitempty"`
	CacheHits   int              `yaml:"cache_hits"`
	Lookups     int              `yaml:"lookups"`
	Duration    string           `yaml:"duration,omitempty"`
	Summary     model.RunSummary `yaml:"summary"`
}

// NewSummaryDocument pairs a summary with the stats of the run that
// produced it.
func NewSummaryDocument(output string, summary model.RunSummary, stats model.RunStats) SummaryDocument {
	doc := SummaryDocument{
		RunID:       stats.RunID,
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
		Output:      output,
		CacheHits:   stats.CacheHits,
		Lookups:     stats.Lookups,
		Summary:     summary,
	}
	if stats.Duration > 0 {
		doc.Duration = stats.Duration.Round(time.Millisecond).String()
	}
	return doc
}

// WriteSummaryYAML writes doc to path, creating parent directories.
func WriteSummaryYAML(path string, doc SummaryDocument) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return eris.Wrap(err, "report: marshal summary")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "report: create summary directory")
	}
	return eris.Wrap(os.WriteFile(path, data, 0o644), "report: write summary")
}

// ReadSummaryYAML loads a summary written by WriteSummaryYAML.
func ReadSummaryYAML(path string) (SummaryDocument, error) {
	var doc SummaryDocument
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, eris.Wrap(err, "report: read summary")
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, eris.Wrap(err, "report: parse summary")
	}
	return doc, nil
}
