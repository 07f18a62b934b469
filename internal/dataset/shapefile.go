package dataset

import (
	"os"
	"path/filepath"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/address-geocoder/internal/model"
)

// DBF field names are limited to 10 characters.
func shapefileFields(withGroup bool) []shp.Field {
	fields := []shp.Field{
		shp.StringField("orig_addr", 254),
		shp.StringField("norm_addr", 254),
		shp.FloatField("score", 12, 4),
	}
	if withGroup {
		fields = append(fields, shp.StringField("city", 120))
	}
	return fields
}

// writeShapefile writes one point per succeeded record. Longitude is X and
// latitude is Y. Records without coordinates are omitted.
func writeShapefile(path string, records []model.EnrichedRecord, withGroup bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "dataset: create directory")
	}

	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrap(err, "dataset: create shapefile")
	}
	defer w.Close()

	w.SetFields(shapefileFields(withGroup)) //nolint:errcheck

	var row int
	for _, r := range records {
		lat, lon, ok := r.Point()
		if !ok || !r.Succeeded {
			continue
		}
		n := int(w.Write(&shp.Point{X: lon, Y: lat}))
		attrs := []any{r.OriginalText, r.NormalizedText, r.QualityScore}
		if withGroup {
			attrs = append(attrs, r.Group)
		}
		for field, v := range attrs {
			if err := w.WriteAttribute(n, field, v); err != nil {
				return eris.Wrapf(err, "dataset: shapefile attribute row %d", row+1)
			}
		}
		row++
	}
	return nil
}
