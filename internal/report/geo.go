package report

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/uber/h3-go/v4"

	"github.com/sells-group/address-geocoder/internal/model"
)

const tooltipWidth = 80

// Tooltip is the map label for a record: the first 80 characters of the
// original address followed by the score.
func Tooltip(r model.EnrichedRecord) string {
	text := []rune(r.OriginalText)
	if len(text) > tooltipWidth {
		text = text[:tooltipWidth]
	}
	return fmt.Sprintf("%s (score %.2f)", string(text), r.QualityScore)
}

// GeoJSON builds a FeatureCollection with one point per geocoded record.
func GeoJSON(records []model.EnrichedRecord) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	for _, r := range records {
		lat, lon, ok := r.Point()
		if !ok {
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: geom.NewPointFlat(geom.XY, []float64{lon, lat}),
			Properties: map[string]any{
				"original_address": r.OriginalText,
				"match_score":      r.QualityScore,
				"tooltip":          Tooltip(r),
			},
		})
	}
	return fc
}

// Cell is the number of geocoded records falling in one H3 cell. Lat and Lon
// are the mean position of those records.
type Cell struct {
	Index string  `json:"h3"`
	Count int     `json:"count"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// MaxResolution is the finest H3 resolution.
const MaxResolution = 15

// Cells aggregates geocoded records into H3 cells at the given resolution,
// sorted by count descending then index.
func Cells(records []model.EnrichedRecord, resolution int) ([]Cell, error) {
	if resolution < 0 || resolution > MaxResolution {
		return nil, eris.Errorf("report: h3 resolution %d out of range [0,%d]", resolution, MaxResolution)
	}

	byCell := make(map[h3.Cell]*Cell)
	for _, r := range records {
		lat, lon, ok := r.Point()
		if !ok {
			continue
		}
		cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lon), resolution)
		if err != nil {
			return nil, eris.Wrapf(err, "report: h3 cell for %q", r.OriginalText)
		}
		c, ok := byCell[cell]
		if !ok {
			c = &Cell{Index: cell.String()}
			byCell[cell] = c
		}
		c.Count++
		c.Lat += lat
		c.Lon += lon
	}

	out := make([]Cell, 0, len(byCell))
	for _, c := range byCell {
		c.Lat /= float64(c.Count)
		c.Lon /= float64(c.Count)
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}
