package dataset

import (
	"encoding/csv"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"github.com/sells-group/address-geocoder/internal/model"
)

// WriteOutput writes records to path in the format implied by its
// extension: .csv, .xlsx, .parquet, .json or .shp.
func WriteOutput(path string, records []model.EnrichedRecord) error {
	withGroup := HasGroups(records)
	switch extension(path) {
	case ".csv":
		return writeCSV(path, records, withGroup)
	case ".xlsx":
		return writeXLSX(path, records, withGroup)
	case ".parquet":
		return writeParquet(path, records, withGroup)
	case ".json":
		return writeJSON(path, records)
	case ".shp":
		return writeShapefile(path, records, withGroup)
	default:
		return eris.Errorf("dataset: unsupported output format %q", extension(path))
	}
}

// WritePreview writes the first n records as CSV.
func WritePreview(path string, records []model.EnrichedRecord, n int) error {
	withGroup := HasGroups(records)
	if n >= 0 && n < len(records) {
		records = records[:n]
	}
	return writeCSV(path, records, withGroup)
}

func writeCSV(path string, records []model.EnrichedRecord, withGroup bool) error {
	return atomicWrite(path, func(f *os.File) error {
		w := csv.NewWriter(f)
		if err := w.Write(Columns(withGroup)); err != nil {
			return eris.Wrap(err, "dataset: write csv header")
		}
		for _, r := range records {
			if err := w.Write(toRow(r, withGroup)); err != nil {
				return eris.Wrap(err, "dataset: write csv row")
			}
		}
		w.Flush()
		return eris.Wrap(w.Error(), "dataset: flush csv")
	})
}

func writeJSON(path string, records []model.EnrichedRecord) error {
	if records == nil {
		records = []model.EnrichedRecord{}
	}
	return atomicWrite(path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return eris.Wrap(enc.Encode(records), "dataset: encode json")
	})
}

const xlsxSheet = "Sheet1"

func writeXLSX(path string, records []model.EnrichedRecord, withGroup bool) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	sw, err := f.NewStreamWriter(xlsxSheet)
	if err != nil {
		return eris.Wrap(err, "dataset: xlsx stream writer")
	}

	header := Columns(withGroup)
	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := sw.SetRow("A1", headerRow); err != nil {
		return eris.Wrap(err, "dataset: xlsx header")
	}

	for i, r := range records {
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return eris.Wrap(err, "dataset: xlsx cell name")
		}
		if err := sw.SetRow(cellName, xlsxRow(r, withGroup)); err != nil {
			return eris.Wrapf(err, "dataset: xlsx row %d", i+1)
		}
	}
	if err := sw.Flush(); err != nil {
		return eris.Wrap(err, "dataset: xlsx flush")
	}

	return atomicWrite(path, func(out *os.File) error {
		return eris.Wrap(f.Write(out), "dataset: xlsx write")
	})
}

// xlsxRow keeps numeric cells numeric and leaves missing coordinates blank.
func xlsxRow(r model.EnrichedRecord, withGroup bool) []any {
	row := []any{r.OriginalText, r.NormalizedText, nil, nil, r.Succeeded, r.QualityScore}
	if r.Latitude != nil {
		row[2] = *r.Latitude
	}
	if r.Longitude != nil {
		row[3] = *r.Longitude
	}
	if withGroup {
		row = append(row, r.Group)
	}
	return append(row, r.Error)
}
