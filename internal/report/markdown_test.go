package report

import (
	"strings"
	"testing"

	"goiqc/domain/qc"

	"github.com/stretchr/testify/assert"
)

func sampleDocument() Document {
	cfg := qc.DefaultAnalyteConfig("Glucose")
	cfg.Unit = "mmol/L"
	cfg.QCLot = "L-42|A"
	cfg.SigmaValue = 5.2
	return Document{
		Lab:    "central",
		Config: cfg,
		Limits: []qc.Limit{{Level: "Ctrl1", Label: "+2SD", K: 2, Value: 104}},
		Report: &qc.Report{
			Category: "5σ",
			Rules:    qc.RuleSet{qc.Rule13s, qc.Rule22s, qc.RuleR4s},
			Levels:   []string{"Ctrl1", "Ctrl2"},
			Summary: []qc.SummaryRow{
				{RunID: qc.RunID{Label: "d1", Order: 1}, Status: qc.StatusOutOfControl,
					RejectingRules: []string{"22s(Ctrl1&2)"}, WarningRules: []string{}},
			},
			Points: []qc.PointRow{
				{RunID: qc.RunID{Label: "d1", Order: 1}, Level: "Ctrl1", Z: qc.Float(2.3), Status: qc.PointRej, RuleCodes: []string{"22s(Ctrl1&2)"}},
				{RunID: qc.RunID{Label: "d1", Order: 1}, Level: "Ctrl2", Status: qc.PointOK, RuleCodes: []string{}},
			},
			Rejections:  1,
			Fingerprint: "abc123",
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleDocument())

	assert.True(t, strings.HasPrefix(md, "# IQC report: Glucose\n"))
	assert.Contains(t, md, "| Unit | mmol/L |")
	assert.Contains(t, md, `| QC lot | L-42\|A |`)
	assert.Contains(t, md, "| Sigma | 5.2 |")
	assert.Contains(t, md, "| Rules | 13s, 22s, R4s |")
	assert.NotContains(t, md, "| Device |")
	assert.Contains(t, md, "1 runs: 0 in control, 0 warnings, 1 rejected.")
	assert.Contains(t, md, "| d1 | OutOfControl | 22s(Ctrl1&2) |  |")
	assert.Contains(t, md, "| d1 | Ctrl1 | 2.30 | REJ | 22s(Ctrl1&2) |")
	assert.Contains(t, md, "| d1 | Ctrl2 | – | OK |  |")
	assert.Contains(t, md, "| Ctrl1 | +2SD | 104.000 |")
	assert.Contains(t, md, "Fingerprint: `abc123`")
}

func TestMarkdown_NoReport(t *testing.T) {
	md := Markdown(Document{Config: qc.DefaultAnalyteConfig("TSH")})
	assert.Contains(t, md, "0 runs")
	assert.NotContains(t, md, "## Control points")
}

func TestHTML(t *testing.T) {
	page := string(HTML(sampleDocument()))
	assert.Contains(t, page, "<title>IQC report: Glucose</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "22s(Ctrl1&amp;2)")
	assert.Contains(t, page, "L-42")
}
