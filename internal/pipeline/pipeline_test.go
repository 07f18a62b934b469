package pipeline

import (
	"context"
	"math"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/address-geocoder/internal/cache"
	"github.com/sells-group/address-geocoder/internal/model"
	"github.com/sells-group/address-geocoder/internal/resilience"
	"github.com/sells-group/address-geocoder/internal/resolver"
	"github.com/sells-group/address-geocoder/internal/scorer"
	"github.com/sells-group/address-geocoder/pkg/geocode"
)

func inputs(texts ...string) []model.AddressInput {
	out := make([]model.AddressInput, len(texts))
	for i, t := range texts {
		out[i] = model.AddressInput{Row: i + 1, OriginalText: t}
	}
	return out
}

func f(v float64) *float64 { return &v }

func TestRun_FailureIsolation(t *testing.T) {
	r := &mockResolver{}
	r.On("Resolve", mock.Anything, "221b baker street").
		Return(model.Resolved(51.5237, -0.1585, map[string]any{"importance": 0.6})).Once()
	r.On("Resolve", mock.Anything, "not a real place").
		Return(model.Faulted("geocode: nominatim request: i/o timeout")).Once()
	r.On("Resolve", mock.Anything, "10 downing street").
		Return(model.Resolved(51.5034, -0.1276, map[string]any{"display_name": "10 Downing Street"})).Once()

	p := New(newMemCache(), r, scorer.NewImportanceScorer())
	res, err := p.Run(context.Background(), inputs("221B Baker Street", "not a real place", "10 Downing St."))
	require.NoError(t, err)

	want := []model.EnrichedRecord{
		{OriginalText: "221B Baker Street", NormalizedText: "221b baker street", Latitude: f(51.5237), Longitude: f(-0.1585), Succeeded: true, QualityScore: 1},
		{OriginalText: "not a real place", NormalizedText: "not a real place", Error: "geocode: nominatim request: i/o timeout"},
		{OriginalText: "10 Downing St.", NormalizedText: "10 downing street", Latitude: f(51.5034), Longitude: f(-0.1276), Succeeded: true, QualityScore: 0.8},
	}
	if diff := cmp.Diff(want, res.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 3, res.Summary.Total)
	assert.Equal(t, 2, res.Summary.Succeeded)
	assert.Equal(t, 1, res.Summary.Faulted)
	assert.InDelta(t, 200.0/3.0, res.Summary.SuccessRate, 1e-9)
	r.AssertExpectations(t)
}

func TestRun_CacheDeterminism(t *testing.T) {
	r := &mockResolver{}
	r.On("Resolve", mock.Anything, "123 main street").
		Return(model.Resolved(40.1, -75.2, map[string]any{"importance": 0.3})).Once()

	c := newMemCache()
	p := New(c, r, scorer.NewImportanceScorer())
	res, err := p.Run(context.Background(), inputs("123 Main St.", "  123 MAIN St. ", "123 main street"))
	require.NoError(t, err)

	require.Len(t, res.Records, 3)
	assert.Equal(t, res.Records[0].Latitude, res.Records[1].Latitude)
	assert.Equal(t, *res.Records[0].Latitude, *res.Records[2].Latitude)
	assert.Equal(t, 1, res.Stats.Lookups)
	assert.Equal(t, 2, res.Stats.CacheHits)
	assert.Equal(t, []string{"123 main street"}, c.puts)
	r.AssertNumberOfCalls(t, "Resolve", 1)
}

func TestRun_EmptyInput(t *testing.T) {
	r := &mockResolver{}
	res, err := New(newMemCache(), r, scorer.NewImportanceScorer()).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, 0, res.Summary.Total)
	assert.Zero(t, res.Summary.SuccessRate)
	r.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestRun_OrderPreserved(t *testing.T) {
	r := &mockResolver{}
	r.On("Resolve", mock.Anything, mock.Anything).Return(model.NotFound())

	texts := []string{"e", "d", "c", "b", "a", "d"}
	res, err := New(newMemCache(), r, scorer.NewImportanceScorer()).Run(context.Background(), inputs(texts...))
	require.NoError(t, err)
	require.Len(t, res.Records, len(texts))
	for i, rec := range res.Records {
		assert.Equal(t, texts[i], rec.OriginalText)
		assert.Zero(t, rec.QualityScore)
	}
}

func TestRun_CachePutFailureIsFatal(t *testing.T) {
	r := &mockResolver{}
	r.On("Resolve", mock.Anything, "a").Return(model.NotFound()).Once()

	c := newMemCache()
	c.failPut = true
	_, err := New(c, r, scorer.NewImportanceScorer()).Run(context.Background(), inputs("a", "b"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist cache entry for row 1")
	assert.Contains(t, err.Error(), "disk full")
	r.AssertNotCalled(t, "Resolve", mock.Anything, "b")
}

func TestRun_RetryFaults(t *testing.T) {
	c := newMemCache()
	c.entries["a"] = model.Faulted("timeout")
	c.entries["b"] = model.NotFound()
	c.entries["c"] = model.Resolved(1, 2, nil)

	r := &mockResolver{}
	r.On("Resolve", mock.Anything, "a").Return(model.Resolved(3, 4, nil)).Once()

	res, err := New(c, r, scorer.NewImportanceScorer(), WithRetryFaults(true)).
		Run(context.Background(), inputs("a", "b", "c"))
	require.NoError(t, err)
	assert.True(t, res.Records[0].Succeeded)
	assert.False(t, res.Records[1].Succeeded)
	assert.True(t, res.Records[2].Succeeded)
	assert.Equal(t, 1, res.Stats.Lookups)
	assert.True(t, c.entries["a"].Succeeded)
	r.AssertExpectations(t)
}

func TestRun_FaultsReusedByDefault(t *testing.T) {
	c := newMemCache()
	c.entries["a"] = model.Faulted("timeout")

	r := &mockResolver{}
	res, err := New(c, r, scorer.NewImportanceScorer()).Run(context.Background(), inputs("a"))
	require.NoError(t, err)
	assert.Equal(t, "timeout", res.Records[0].Error)
	r.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &mockResolver{}
	_, err := New(newMemCache(), r, scorer.NewImportanceScorer()).Run(ctx, inputs("a"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_CancelledDuringLookupNotCached(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &mockResolver{}
	r.On("Resolve", mock.Anything, "a").
		Run(func(mock.Arguments) { cancel() }).
		Return(model.Faulted("context canceled")).Once()

	c := newMemCache()
	_, err := New(c, r, scorer.NewImportanceScorer()).Run(ctx, inputs("a", "b"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, c.puts)
}

func TestRun_Progress(t *testing.T) {
	r := &mockResolver{}
	r.On("Resolve", mock.Anything, mock.Anything).Return(model.NotFound())

	pr := &countingProgress{}
	_, err := New(newMemCache(), r, scorer.NewImportanceScorer(), WithProgress(pr)).
		Run(context.Background(), inputs("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, 3, pr.n)
}

func TestRun_ProgressErrorsDoNotStopRun(t *testing.T) {
	r := &mockResolver{}
	r.On("Resolve", mock.Anything, mock.Anything).Return(model.NotFound())

	pr := &brokenProgress{}
	res, err := New(newMemCache(), r, scorer.NewImportanceScorer(), WithProgress(pr)).
		Run(context.Background(), inputs("a", "b"))
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
	assert.Equal(t, 2, pr.n)
}

func TestRun_PersistenceSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocode_cache.json")
	ctx := context.Background()

	first := cache.NewFileStore(path)
	_, err := first.Load(ctx)
	require.NoError(t, err)

	r1 := &mockResolver{}
	r1.On("Resolve", mock.Anything, "123 main street").
		Return(model.Resolved(39.95, -75.16, map[string]any{"importance": 0.5})).Once()
	res1, err := New(first, r1, scorer.NewImportanceScorer()).Run(ctx, inputs("123 Main St."))
	require.NoError(t, err)

	// A fresh process loads the same file and never calls the resolver.
	second := cache.NewFileStore(path)
	_, err = second.Load(ctx)
	require.NoError(t, err)

	r2 := &mockResolver{}
	res2, err := New(second, r2, scorer.NewImportanceScorer()).Run(ctx, inputs("123 Main St."))
	require.NoError(t, err)

	if diff := cmp.Diff(res1.Records, res2.Records); diff != "" {
		t.Errorf("records differ after reload (-first +second):\n%s", diff)
	}
	r2.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
	assert.Equal(t, 1, res2.Stats.CacheHits)
}

func TestRun_UnusableCoordinatesDoNotAbortBatch(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), 123.4} {
		t.Run(strconv.FormatFloat(bad, 'f', -1, 64), func(t *testing.T) {
			ctx := context.Background()
			store := cache.NewFileStore(filepath.Join(t.TempDir(), "geocode_cache.json"))
			_, err := store.Load(ctx)
			require.NoError(t, err)

			g := &scriptedGeocoder{matches: map[string]*geocode.Match{
				"1 good road": {Latitude: 52.52, Longitude: 13.40, Raw: map[string]any{"importance": 0.7}},
				"2 bad road":  {Latitude: bad, Longitude: 13.41, Raw: map[string]any{"importance": 0.7}},
				"3 good road": {Latitude: 48.14, Longitude: 11.58, Raw: map[string]any{}},
			}}
			r := resolver.New(g,
				resolver.WithMinDelay(0),
				resolver.WithRetry(resilience.RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}),
			)

			res, err := New(store, r, scorer.NewImportanceScorer()).
				Run(ctx, inputs("1 Good Rd.", "2 Bad Rd.", "3 Good Rd."))
			require.NoError(t, err)
			require.Len(t, res.Records, 3)

			assert.True(t, res.Records[0].Succeeded)
			assert.True(t, res.Records[2].Succeeded)

			failed := res.Records[1]
			assert.False(t, failed.Succeeded)
			assert.Nil(t, failed.Latitude)
			assert.Contains(t, failed.Error, "invalid coordinates")
			assert.Zero(t, failed.QualityScore)

			assert.Equal(t, 2, res.Summary.Succeeded)
			assert.Equal(t, 1, res.Summary.Faulted)

			// The fault was persisted like any other outcome.
			reloaded, err := cache.NewFileStore(store.Path()).Load(ctx)
			require.NoError(t, err)
			assert.True(t, reloaded["2 bad road"].IsFault())
		})
	}
}
