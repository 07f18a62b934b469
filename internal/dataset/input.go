package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/address-geocoder/internal/model"
)

// InputOptions locates the columns of a raw address table.
type InputOptions struct {
	AddressColumn string // required
	GroupColumn   string // optional; ignored when absent from the header
	Sheet         string // XLSX sheet name; first sheet when empty
	Limit         int    // 0 reads every row
}

// ReadInput reads a .csv or .xlsx file with a header row. Blank rows are
// skipped; a row with an empty address is kept and resolves as not found.
func ReadInput(path string, opts InputOptions) ([]model.AddressInput, error) {
	if opts.AddressColumn == "" {
		opts.AddressColumn = "address"
	}

	var (
		rows [][]string
		err  error
	)
	switch extension(path) {
	case ".csv", ".txt":
		rows, err = readCSVRows(path)
	case ".xlsx":
		rows, err = readXLSXRows(path, opts.Sheet)
	default:
		return nil, eris.Errorf("dataset: unsupported input format %q", extension(path))
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("dataset: %s has no header row", path)
	}

	idx := headerIndex(rows[0])
	addrCol, ok := idx[strings.ToLower(opts.AddressColumn)]
	if !ok {
		return nil, eris.Errorf("dataset: column %q not found in %s", opts.AddressColumn, path)
	}
	groupCol := -1
	if opts.GroupColumn != "" {
		if i, ok := idx[strings.ToLower(opts.GroupColumn)]; ok {
			groupCol = i
		} else {
			zap.L().Debug("dataset: group column not present, per-group stats disabled",
				zap.String("column", opts.GroupColumn))
		}
	}

	inputs := make([]model.AddressInput, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		in := model.AddressInput{Row: len(inputs) + 1, OriginalText: cell(row, addrCol)}
		if groupCol >= 0 {
			in.Group = strings.TrimSpace(cell(row, groupCol))
		}
		inputs = append(inputs, in)
		if opts.Limit > 0 && len(inputs) >= opts.Limit {
			break
		}
	}
	return inputs, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open input")
	}
	defer f.Close() //nolint:errcheck
	return readCSV(f)
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow ragged rows
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "dataset: read csv")
	}
	return rows, nil
}

func readXLSXRows(path, sheetName string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open xlsx")
	}

	var sheet *xlsx.Sheet
	if sheetName != "" {
		s, ok := f.Sheet[sheetName]
		if !ok {
			return nil, eris.Errorf("dataset: sheet %q not found", sheetName)
		}
		sheet = s
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.New("dataset: workbook has no sheets")
		}
		sheet = f.Sheets[0]
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, c := range row.Cells {
			cells[j] = c.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
