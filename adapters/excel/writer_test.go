package excel

import (
	"bytes"
	"path/filepath"
	"testing"

	"goiqc/domain/qc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleReport() *qc.Report {
	return &qc.Report{
		Category: "5σ",
		Rules:    qc.RuleSet{qc.Rule13s, qc.Rule22s, qc.RuleR4s},
		Levels:   []string{"Ctrl1", "Ctrl2"},
		Summary: []qc.SummaryRow{
			{RunID: qc.RunID{Label: "r1", Order: 1}, Status: qc.StatusInControl, RejectingRules: []string{}, WarningRules: []string{}},
			{RunID: qc.RunID{Label: "r2", Order: 2}, Status: qc.StatusOutOfControl,
				RejectingRules: []string{"13s(Ctrl1)", "22s(Ctrl1&2)"}, WarningRules: []string{}},
		},
		Points: []qc.PointRow{
			{RunID: qc.RunID{Label: "r1", Order: 1}, Level: "Ctrl1", Z: qc.Float(0.5), Status: qc.PointOK, RuleCodes: []string{}},
			{RunID: qc.RunID{Label: "r1", Order: 1}, Level: "Ctrl2", Status: qc.PointOK, RuleCodes: []string{}},
			{RunID: qc.RunID{Label: "r2", Order: 2}, Level: "Ctrl1", Z: qc.Float(3.25), Status: qc.PointRej,
				RuleCodes: []string{"13s(Ctrl1)", "22s(Ctrl1&2)"}},
		},
		InControl:  1,
		Rejections: 1,
	}
}

func TestWorkbook_Sheets(t *testing.T) {
	limits := []qc.Limit{{Level: "Ctrl1", Label: "Mean", K: 0, Value: 100}}
	f, err := Workbook(sampleReport(), limits)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, PointsSheet, LimitsSheet}, f.GetSheetList())

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, []string{"r2", "OutOfControl", "13s(Ctrl1); 22s(Ctrl1&2)"}, summary[2])

	points, err := f.GetRows(PointsSheet)
	require.NoError(t, err)
	require.Len(t, points, 4)
	assert.Equal(t, []string{"r1", "Ctrl2", "", "OK"}, points[2])
	assert.Equal(t, "3.25", points[3][2])
	assert.Equal(t, "REJ", points[3][3])

	lines, err := f.GetRows(LimitsSheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ctrl1", "Mean", "0", "100"}, lines[1])
}

func TestReportWriter_SaveAndStream(t *testing.T) {
	w := NewReportWriter()
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, w.WriteReport(sampleReport(), nil, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	rows, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	require.NoError(t, f.Close())

	var buf bytes.Buffer
	require.NoError(t, w.Write(sampleReport(), nil, &buf))
	assert.Greater(t, buf.Len(), 0)

	assert.Error(t, w.WriteReport(nil, nil, path))
}
