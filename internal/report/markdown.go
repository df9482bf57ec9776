// Package report renders a stored QC report as Markdown and HTML.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"goiqc/domain/qc"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Document is what a rendered report shows
type Document struct {
	Lab    string
	Config qc.AnalyteConfig
	Limits []qc.Limit
	Report *qc.Report
}

// Markdown renders the document as GitHub-style Markdown tables
func Markdown(doc Document) string {
	var b strings.Builder
	cfg := doc.Config
	rep := doc.Report
	if rep == nil {
		rep = &qc.Report{}
	}

	fmt.Fprintf(&b, "# IQC report: %s\n\n", cell(cfg.TestName))

	b.WriteString("| Field | Value |\n|---|---|\n")
	for _, kv := range [][2]string{
		{"Lab", doc.Lab},
		{"Unit", cfg.Unit},
		{"Device", cfg.Device},
		{"Method", cfg.Method},
		{"QC material", cfg.QCName},
		{"QC lot", cfg.QCLot},
		{"QC expiry", cfg.QCExpiry},
		{"Period", cfg.ReportPeriod},
		{"Sigma", strconv.FormatFloat(cfg.SigmaValue, 'f', -1, 64)},
		{"Category", rep.Category},
		{"Rules", rep.Rules.String()},
	} {
		if kv[1] == "" {
			continue
		}
		fmt.Fprintf(&b, "| %s | %s |\n", kv[0], cell(kv[1]))
	}

	fmt.Fprintf(&b, "\n## Summary\n\n%d runs: %d in control, %d warnings, %d rejected.\n\n",
		len(rep.Summary), rep.InControl, rep.Warnings, rep.Rejections)

	if len(rep.Summary) > 0 {
		b.WriteString("| Run | Status | Rejecting rules | Warning rules |\n|---|---|---|---|\n")
		for _, row := range rep.Summary {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				cell(row.RunID.Label), row.Status, cell(row.RejectingCell()), cell(row.WarningCell()))
		}
	}

	if len(rep.Points) > 0 {
		b.WriteString("\n## Control points\n\n| Run | Level | z | Status | Rules |\n|---|---|---:|---|---|\n")
		for _, p := range rep.Points {
			z := "–"
			if p.Z != nil {
				z = strconv.FormatFloat(*p.Z, 'f', 2, 64)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				cell(p.RunID.Label), cell(p.Level), z, p.Status, cell(p.RuleCell()))
		}
	}

	if len(doc.Limits) > 0 {
		b.WriteString("\n## Control limits\n\n| Level | Line | Value |\n|---|---|---:|\n")
		for _, l := range doc.Limits {
			fmt.Fprintf(&b, "| %s | %s | %s |\n",
				cell(l.Level), l.Label, strconv.FormatFloat(l.Value, 'f', 3, 64))
		}
	}

	if !rep.Fingerprint.IsEmpty() {
		fmt.Fprintf(&b, "\nFingerprint: `%s`\n", rep.Fingerprint)
	}
	return b.String()
}

// HTML renders the document as a complete HTML page
func HTML(doc Document) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	ast := p.Parse([]byte(Markdown(doc)))

	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: "IQC report: " + doc.Config.TestName,
	})
	return markdown.Render(ast, renderer)
}

// cell makes a value safe inside a Markdown table cell
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
