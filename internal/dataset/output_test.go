package dataset

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sells-group/address-geocoder/internal/model"
)

func ptr(v float64) *float64 { return &v }

func sampleRecords() []model.EnrichedRecord {
	return []model.EnrichedRecord{
		{
			OriginalText:   "Main St. 5",
			NormalizedText: "main street 5",
			Latitude:       ptr(52.52),
			Longitude:      ptr(13.405),
			Succeeded:      true,
			QualityScore:   1,
			Group:          "Berlin",
		},
		{
			OriginalText:   "Nowhere 0",
			NormalizedText: "nowhere 0",
			Group:          "Berlin",
		},
		{
			OriginalText:   "Oak Rd., 7",
			NormalizedText: "oak road, 7",
			Group:          "Munich",
			Error:          "nominatim: status 503",
		},
	}
}

func readCSVFile(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestColumns(t *testing.T) {
	assert.Equal(t, []string{
		"original_address", "normalized_address", "lat", "lon", "geocode_success", "match_score", "geocode_error",
	}, Columns(false))
	assert.Equal(t, []string{
		"original_address", "normalized_address", "lat", "lon", "geocode_success", "match_score", "city", "geocode_error",
	}, Columns(true))
}

func TestWriteOutput_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "clean.csv")
	require.NoError(t, WriteOutput(path, sampleRecords()))

	rows := readCSVFile(t, path)
	require.Len(t, rows, 4)
	assert.Equal(t, Columns(true), rows[0])
	assert.Equal(t, []string{"Main St. 5", "main street 5", "52.52", "13.405", "true", "1", "Berlin", ""}, rows[1])
	assert.Equal(t, []string{"Nowhere 0", "nowhere 0", "", "", "false", "0", "Berlin", ""}, rows[2])
	assert.Equal(t, "nominatim: status 503", rows[3][7])
}

func TestWriteOutput_CSVWithoutGroups(t *testing.T) {
	records := sampleRecords()
	for i := range records {
		records[i].Group = ""
	}
	path := filepath.Join(t.TempDir(), "clean.csv")
	require.NoError(t, WriteOutput(path, records))

	rows := readCSVFile(t, path)
	assert.Equal(t, Columns(false), rows[0])
	assert.NotContains(t, rows[0], "city")
}

func TestWriteOutput_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteOutput(filepath.Join(dir, "clean.json"), sampleRecords()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "clean.json", entries[0].Name())
}

func TestWriteOutput_Unsupported(t *testing.T) {
	err := WriteOutput(filepath.Join(t.TempDir(), "clean.txt"), sampleRecords())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestRoundTrip_CSVAndJSON(t *testing.T) {
	for _, ext := range []string{".csv", ".json"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "clean"+ext)
			require.NoError(t, WriteOutput(path, sampleRecords()))

			got, err := ReadOutput(path)
			require.NoError(t, err)
			if diff := cmp.Diff(sampleRecords(), got); diff != "" {
				t.Errorf("records mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundTrip_Parquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clean.parquet")
	require.NoError(t, WriteOutput(path, sampleRecords()))

	got, err := ReadOutput(path)
	require.NoError(t, err)
	if diff := cmp.Diff(sampleRecords(), got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteOutput_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clean.xlsx")
	require.NoError(t, WriteOutput(path, sampleRecords()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, Columns(true), rows[0])
	assert.Equal(t, "Main St. 5", rows[1][0])
	assert.Equal(t, "52.52", rows[1][2])
	assert.Equal(t, "Munich", rows[3][6])
}

func TestWriteOutput_Shapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.shp")
	require.NoError(t, WriteOutput(path, sampleRecords()))

	reader, err := shp.Open(path)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	var points []*shp.Point
	var names []string
	for reader.Next() {
		_, shape := reader.Shape()
		p, ok := shape.(*shp.Point)
		require.True(t, ok)
		points = append(points, p)
		names = append(names, strings.TrimSpace(reader.Attribute(0)))
	}
	require.Len(t, points, 1)
	assert.InDelta(t, 13.405, points[0].X, 1e-9)
	assert.InDelta(t, 52.52, points[0].Y, 1e-9)
	assert.Equal(t, []string{"Main St. 5"}, names)
}

func TestWritePreview(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preview.csv")
	require.NoError(t, WritePreview(path, sampleRecords(), 2))

	rows := readCSVFile(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns(true), rows[0])
	assert.Equal(t, "Nowhere 0", rows[2][0])
}

func TestWritePreview_FewerRecordsThanLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preview.csv")
	require.NoError(t, WritePreview(path, sampleRecords(), 20))
	assert.Len(t, readCSVFile(t, path), 4)
}

func TestReadOutput_CSVMissingColumn(t *testing.T) {
	path := writeFile(t, "bad.csv", "foo,bar\n1,2\n")
	_, err := ReadOutput(path)
	require.Error(t, err)
}

func TestReadOutput_CSVBadNumber(t *testing.T) {
	path := writeFile(t, "bad.csv", "original_address,lat\nx,north\n")
	_, err := ReadOutput(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid lat")
}

func TestReadOutput_Unsupported(t *testing.T) {
	_, err := ReadOutput("clean.xlsx")
	require.Error(t, err)
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "'/tmp/o''brien.parquet'", quoteLiteral("/tmp/o'brien.parquet"))
}
