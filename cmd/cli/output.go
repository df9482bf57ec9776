package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"goiqc/app"
	"goiqc/domain/qc"
	"goiqc/internal/sigma"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	colorOK      = lipgloss.Color("#2CD7C7")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorBorder  = lipgloss.Color("#2C4A54")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorOK)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorBorder)
	okStyle      = lipgloss.NewStyle().Foreground(colorOK)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		StyleFunc(func(row, col int) lipgloss.Style { return cellStyle }).
		Headers(headers...)
}

func runStatus(s qc.RunStatus) string {
	switch s {
	case qc.StatusOutOfControl:
		return errorStyle.Render(string(s))
	case qc.StatusWarning:
		return warningStyle.Render(string(s))
	default:
		return okStyle.Render(string(s))
	}
}

func pointStatus(s qc.PointStatus) string {
	switch s {
	case qc.PointRej:
		return errorStyle.Render(string(s))
	case qc.PointWarn:
		return warningStyle.Render(string(s))
	default:
		return okStyle.Render(string(s))
	}
}

func formatZ(z *float64) string {
	if z == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *z)
}

func formatSD(sd float64) string {
	if math.IsNaN(sd) {
		return "undefined"
	}
	return fmt.Sprintf("%.4g", sd)
}

func printClassification(w io.Writer, value float64, category sigma.Category, rules qc.RuleSet, perf sigma.Performance) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Sigma %.2f → %s", value, category)))
	fmt.Fprintf(w, "Active rules: %s\n", strings.Join(rules.Strings(), ", "))

	t := newTable("Rule", "Per check", "Per run")
	for _, p := range perf.Rules {
		t.Row(string(p.Rule), fmt.Sprintf("%.5f", p.PerCheck), fmt.Sprintf("%.5f", p.PerRun))
	}
	fmt.Fprintln(w, t.String())
	fmt.Fprintf(w, "Expected false rejection per run (%d levels): %.4f\n", perf.Levels, perf.FalseRejection)
	if perf.FalseWarning > 0 {
		fmt.Fprintf(w, "Expected false warning per run: %.4f\n", perf.FalseWarning)
	}
}

func printBaseline(w io.Writer, stats []qc.BaselineStats, limits []qc.Limit) {
	t := newTable("Level", "N", "Mean", "SD")
	for _, st := range stats {
		t.Row(st.Level, fmt.Sprintf("%d", st.N), fmt.Sprintf("%.4g", st.Mean), formatSD(st.SD))
	}
	fmt.Fprintln(w, t.String())

	if len(limits) == 0 {
		return
	}
	lt := newTable("Level", "Line", "Value")
	for _, l := range limits {
		lt.Row(l.Level, l.Label, fmt.Sprintf("%.4g", l.Value))
	}
	fmt.Fprintln(w, lt.String())
}

func printOutcome(w io.Writer, testName string, out *app.Outcome) {
	report := out.Report
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s: %s (%s)", testName, out.Category, report.Rules.String())))

	summary := newTable("Run", "Status", "Rejecting", "Warning")
	for _, row := range report.Summary {
		summary.Row(row.RunID.String(), runStatus(row.Status), row.RejectingCell(), row.WarningCell())
	}
	fmt.Fprintln(w, summary.String())

	points := newTable("Run", "Level", "z", "Status", "Rules")
	for _, p := range report.Points {
		points.Row(p.RunID.String(), p.Level, formatZ(p.Z), pointStatus(p.Status), p.RuleCell())
	}
	fmt.Fprintln(w, points.String())

	fmt.Fprintf(w, "%d in control, %d warning, %d rejected\n", report.InControl, report.Warnings, report.Rejections)
	fmt.Fprintln(w, mutedStyle.Render("fingerprint "+report.Fingerprint.Short()))
}

func printLab(w io.Writer, title string, keys []string, results map[string]*app.Outcome) {
	fmt.Fprintln(w, titleStyle.Render(title))
	t := newTable("Analyte", "Category", "Runs", "Rejected", "Warning", "Fingerprint")
	for _, key := range keys {
		out := results[key]
		rejected := fmt.Sprintf("%d", out.Report.Rejections)
		if out.Report.Rejections > 0 {
			rejected = errorStyle.Render(rejected)
		}
		t.Row(key, string(out.Category), fmt.Sprintf("%d", len(out.Report.Summary)),
			rejected, fmt.Sprintf("%d", out.Report.Warnings), out.Report.Fingerprint.Short())
	}
	fmt.Fprintln(w, t.String())
}
