package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/address-geocoder/internal/model"
)

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()

	s := Summarize(nil)
	assert.Equal(t, 0, s.Total)
	assert.Zero(t, s.SuccessRate)
	assert.Nil(t, s.Groups)
}

func TestSummarize_Counts(t *testing.T) {
	t.Parallel()

	lat, lon := 1.0, 2.0
	records := []model.EnrichedRecord{
		{Succeeded: true, Latitude: &lat, Longitude: &lon},
		{Succeeded: true, Latitude: &lat, Longitude: &lon},
		{Error: "timeout"},
		{},
	}

	s := Summarize(records)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Succeeded)
	assert.Equal(t, 2, s.Failed)
	assert.Equal(t, 1, s.Faulted)
	assert.Equal(t, 1, s.NotFound)
	assert.InDelta(t, 50.0, s.SuccessRate, 1e-9)
	assert.InDelta(t, float64(s.Succeeded)/float64(s.Total)*100, s.SuccessRate, 1e-9)
	assert.Nil(t, s.Groups)
}

func TestSummarize_Groups(t *testing.T) {
	t.Parallel()

	records := []model.EnrichedRecord{
		{Group: "London", Succeeded: true},
		{Group: "Berlin", Succeeded: true},
		{Group: "London"},
		{Group: "London", Succeeded: true},
		{Group: ""},
	}

	s := Summarize(records)
	require.Len(t, s.Groups, 2)
	assert.Equal(t, model.GroupStat{Group: "Berlin", Count: 1, Succeeded: 1, SuccessRate: 100}, s.Groups[0])
	assert.Equal(t, "London", s.Groups[1].Group)
	assert.Equal(t, 3, s.Groups[1].Count)
	assert.InDelta(t, 200.0/3.0, s.Groups[1].SuccessRate, 1e-9)
}
