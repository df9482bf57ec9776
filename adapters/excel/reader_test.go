package excel

import (
	"os"
	"path/filepath"
	"testing"

	"goiqc/domain/core"
	"goiqc/domain/qc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadRuns_CSVWithDates(t *testing.T) {
	path := writeCSV(t, "Ngày/Lần,Ctrl1,Ctrl2\n"+
		"2024-03-02,101.5,203\n"+
		"2024-03-01,99.8,\n"+
		",,\n"+
		"2024-03-03, 100.2 ,198.4\n")

	runs, err := NewDataReader(path).ReadRuns(qc.DefaultLevels(2))
	require.NoError(t, err)
	require.Len(t, runs, 3)

	assert.Equal(t, "2024-03-02", runs[0].ID.Label)
	assert.Less(t, runs[1].ID.Order, runs[0].ID.Order)
	assert.Less(t, runs[0].ID.Order, runs[2].ID.Order)

	require.NotNil(t, runs[0].Value("Ctrl1"))
	assert.Equal(t, 101.5, *runs[0].Value("Ctrl1"))
	assert.Nil(t, runs[1].Value("Ctrl2"))
	assert.Equal(t, 100.2, *runs[2].Value("Ctrl1"))

	sorted := qc.SortRuns(runs)
	assert.Equal(t, "2024-03-01", sorted[0].ID.Label)
}

func TestReadRuns_RowPositionWhenNotDates(t *testing.T) {
	path := writeCSV(t, "Run,Low,High\nA,1,2\nB,3,4\n2024-01-01,5,6\n")

	runs, err := NewDataReader(path).ReadRuns(qc.NamedLevels("Low", "High"))
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for i, run := range runs {
		assert.Equal(t, int64(i+1), run.ID.Order)
	}
	assert.Equal(t, 6.0, *runs[2].Value("High"))
}

func TestReadRuns_MatchesColumnsByNameNotPosition(t *testing.T) {
	path := writeCSV(t, "Run,ctrl2,Note,CTRL1\nr1,20,x,10\n")

	runs, err := NewDataReader(path).ReadRuns(qc.DefaultLevels(2))
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 10.0, *runs[0].Value("Ctrl1"))
	assert.Equal(t, 20.0, *runs[0].Value("Ctrl2"))
}

func TestReadRuns_Errors(t *testing.T) {
	levels := qc.DefaultLevels(2)

	_, err := NewDataReader(writeCSV(t, "Run,Ctrl1\nr1,1\n")).ReadRuns(levels)
	assert.True(t, core.IsConfigurationError(err), "missing level column")

	_, err = NewDataReader(writeCSV(t, "Run,Ctrl1,Ctrl2\nr1,1,abc\n")).ReadRuns(levels)
	assert.True(t, core.IsConfigurationError(err), "non-numeric cell")
	assert.Contains(t, err.Error(), "abc")

	_, err = NewDataReader(filepath.Join(t.TempDir(), "missing.csv")).ReadRuns(levels)
	assert.Error(t, err)
}

func TestReadBaseline_CSV(t *testing.T) {
	path := writeCSV(t, "Ctrl1,Ctrl2\n100,200\n102,\n98,204\n")

	samples, err := NewDataReader(path).ReadBaseline(qc.DefaultLevels(2))
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 102, 98}, samples["Ctrl1"])
	assert.Equal(t, []float64{200, 204}, samples["Ctrl2"])
}

func TestReadRuns_XLSXNamedSheet(t *testing.T) {
	f := excelize.NewFile()
	_, err := f.NewSheet("QC")
	require.NoError(t, err)
	rows := [][]interface{}{
		{"Ngày/Lần", "Ctrl1", "Ctrl2"},
		{"01/03/2024", 1.5, 2.5},
		{"02/03/2024", nil, -0.5},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("QC", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "runs.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	cfg := DefaultExcelConfig()
	cfg.FilePath = path
	cfg.Sheet = "QC"
	runs, err := NewDataReaderWithConfig(cfg).ReadRuns(qc.DefaultLevels(2))
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 1.5, *runs[0].Value("Ctrl1"))
	assert.Nil(t, runs[1].Value("Ctrl1"))
	assert.Equal(t, -0.5, *runs[1].Value("Ctrl2"))
	assert.Less(t, runs[0].ID.Order, runs[1].ID.Order)
}
