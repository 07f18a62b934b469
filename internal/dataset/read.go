package dataset

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/address-geocoder/internal/model"
)

// ReadOutput loads a previously written dataset. Supported formats are
// .csv, .json and .parquet.
func ReadOutput(path string) ([]model.EnrichedRecord, error) {
	switch extension(path) {
	case ".csv":
		return readOutputCSV(path)
	case ".json":
		return readOutputJSON(path)
	case ".parquet":
		return readParquet(path)
	default:
		return nil, eris.Errorf("dataset: cannot read %q output", extension(path))
	}
}

func readOutputCSV(path string) ([]model.EnrichedRecord, error) {
	rows, err := readCSVRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	idx := headerIndex(rows[0])
	if _, ok := idx[ColOriginal]; !ok {
		return nil, eris.Errorf("dataset: %s is missing column %q", path, ColOriginal)
	}
	out := make([]model.EnrichedRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := fromRow(idx, row)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: row %d", i+1)
		}
		out = append(out, rec)
	}
	return out, nil
}

func readOutputJSON(path string) ([]model.EnrichedRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open output")
	}
	var out []model.EnrichedRecord
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "dataset: parse json output")
	}
	return out, nil
}
