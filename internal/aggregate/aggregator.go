// Package aggregate shapes evaluator output into the run-level summary table
// and the control-point status table.
package aggregate

import (
	"sort"

	"goiqc/domain/core"
	"goiqc/domain/qc"
)

// Aggregate joins run verdicts and point verdicts into a report ordered by run
// order, then level position. It copies everything it keeps, so the report
// does not alias the evaluation. The fingerprint is a SHA-256 of the report's
// JSON encoding with the fingerprint field empty.
func Aggregate(ev *qc.Evaluation, category string) (*qc.Report, error) {
	if ev == nil {
		ev = &qc.Evaluation{}
	}

	levels := qc.SortLevels(ev.Levels)
	position := make(map[string]int, len(levels))
	names := make([]string, len(levels))
	for i, l := range levels {
		position[l.Name] = l.Position
		names[i] = l.Name
	}

	report := &qc.Report{
		Category: category,
		Rules:    append(qc.RuleSet{}, ev.Rules...),
		Levels:   names,
		Summary:  make([]qc.SummaryRow, 0, len(ev.Runs)),
		Points:   make([]qc.PointRow, 0, len(ev.Points)),
	}

	for _, r := range ev.Runs {
		report.Summary = append(report.Summary, qc.SummaryRow{
			RunID:          r.RunID,
			Status:         r.Status,
			RejectingRules: copyStrings(r.RejectingRules),
			WarningRules:   copyStrings(r.WarningRules),
		})
		switch r.Status {
		case qc.StatusOutOfControl:
			report.Rejections++
		case qc.StatusWarning:
			report.Warnings++
		default:
			report.InControl++
		}
	}
	sort.SliceStable(report.Summary, func(i, j int) bool {
		return report.Summary[i].RunID.Order < report.Summary[j].RunID.Order
	})

	for _, p := range ev.Points {
		row := qc.PointRow{
			RunID:     p.RunID,
			Level:     p.Level,
			Status:    p.Status,
			RuleCodes: copyStrings(p.RuleCodes),
		}
		if p.Z != nil {
			z := *p.Z
			row.Z = &z
		}
		report.Points = append(report.Points, row)
	}
	sort.SliceStable(report.Points, func(i, j int) bool {
		a, b := report.Points[i], report.Points[j]
		if a.RunID.Order != b.RunID.Order {
			return a.RunID.Order < b.RunID.Order
		}
		return position[a.Level] < position[b.Level]
	})

	fp, err := Fingerprint(report)
	if err != nil {
		return nil, err
	}
	report.Fingerprint = fp
	return report, nil
}

// Fingerprint hashes a report, ignoring any fingerprint it already carries
func Fingerprint(report *qc.Report) (core.Hash, error) {
	clone := *report
	clone.Fingerprint = ""
	return core.HashJSON(clone)
}

// Verify reports whether a report's fingerprint matches its content
func Verify(report *qc.Report) bool {
	if report == nil || report.Fingerprint.IsEmpty() {
		return false
	}
	fp, err := Fingerprint(report)
	return err == nil && fp.Equals(report.Fingerprint)
}

// LevelRows returns the point rows of one level, in run order
func LevelRows(report *qc.Report, level string) []qc.PointRow {
	var out []qc.PointRow
	for _, p := range report.Points {
		if p.Level == level {
			out = append(out, p)
		}
	}
	return out
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
