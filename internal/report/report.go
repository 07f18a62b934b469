// Package report derives the views the result consumer shows from an
// output dataset: KPIs, filtered tables, map points and hex aggregates.
package report

import (
	"sort"

	"github.com/sells-group/address-geocoder/internal/model"
	"github.com/sells-group/address-geocoder/internal/pipeline"
)

// Default row limits for the failure and sample tables.
const (
	DefaultFailureLimit = 50
	DefaultSampleLimit  = 100
)

// Filter narrows a dataset for display. The zero value keeps every record.
type Filter struct {
	MinScore   float64
	FailedOnly bool
	Group      string
}

// Apply returns the records that pass the filter, in input order.
func (f Filter) Apply(records []model.EnrichedRecord) []model.EnrichedRecord {
	out := make([]model.EnrichedRecord, 0, len(records))
	for _, r := range records {
		if r.QualityScore < f.MinScore {
			continue
		}
		if f.FailedOnly && r.Succeeded {
			continue
		}
		if f.Group != "" && r.Group != f.Group {
			continue
		}
		out = append(out, r)
	}
	return out
}

// KPIs summarizes records the same way a pipeline run does.
func KPIs(records []model.EnrichedRecord) model.RunSummary {
	return pipeline.Summarize(records)
}

// Failures returns up to limit records that were not geocoded.
func Failures(records []model.EnrichedRecord, limit int) []model.EnrichedRecord {
	if limit <= 0 {
		limit = DefaultFailureLimit
	}
	return head(Filter{FailedOnly: true}.Apply(records), limit)
}

// Sample returns the first limit records.
func Sample(records []model.EnrichedRecord, limit int) []model.EnrichedRecord {
	if limit <= 0 {
		limit = DefaultSampleLimit
	}
	return head(records, limit)
}

func head(records []model.EnrichedRecord, n int) []model.EnrichedRecord {
	if len(records) > n {
		records = records[:n]
	}
	return records
}

// Groups returns the distinct non-empty groups, sorted.
func Groups(records []model.EnrichedRecord) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		if r.Group != "" {
			seen[r.Group] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Center returns the mean position of the geocoded records. ok is false when
// no record has coordinates.
func Center(records []model.EnrichedRecord) (lat, lon float64, ok bool) {
	var n int
	for _, r := range records {
		la, lo, has := r.Point()
		if !has {
			continue
		}
		lat += la
		lon += lo
		n++
	}
	if n == 0 {
		return 0, 0, false
	}
	return lat / float64(n), lon / float64(n), true
}
