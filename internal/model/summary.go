package model

import "time"

// RunSummary aggregates an output dataset. It is always derived from the
// records and never stored on its own.
type RunSummary struct {
	Total       int         `json:"total" yaml:"total"`
	Succeeded   int         `json:"succeeded" yaml:"succeeded"`
	Failed      int         `json:"failed" yaml:"failed"`
	NotFound    int         `json:"not_found" yaml:"not_found"`
	Faulted     int         `json:"faulted" yaml:"faulted"`
	SuccessRate float64     `json:"success_rate" yaml:"success_rate"` // Percentage, 0 when Total is 0
	Groups      []GroupStat `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// GroupStat is the per-group breakdown of a RunSummary.
type GroupStat struct {
	Group       string  `json:"city" yaml:"city"`
	Count       int     `json:"count" yaml:"count"`
	Succeeded   int     `json:"succeeded" yaml:"succeeded"`
	SuccessRate float64 `json:"success_rate" yaml:"success_rate"`
}

// RunStats is pipeline bookkeeping for a single run.
type RunStats struct {
	RunID     string        `json:"run_id"`
	CacheHits int           `json:"cache_hits"`
	Lookups   int           `json:"lookups"`
	Duration  time.Duration `json:"duration"`
}
