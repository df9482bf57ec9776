package excel

import (
	"fmt"
	"io"

	"goiqc/domain/qc"
	"goiqc/ports"

	"github.com/xuri/excelize/v2"
)

// Sheet names of an exported report
const (
	SummarySheet = "Summary"
	PointsSheet  = "Points"
	LimitsSheet  = "Limits"
)

// ReportWriter exports reports as xlsx workbooks
type ReportWriter struct{}

var _ ports.ReportWriter = (*ReportWriter)(nil)

// NewReportWriter creates a workbook writer
func NewReportWriter() *ReportWriter {
	return &ReportWriter{}
}

// WriteReport saves the report workbook to path
func (w *ReportWriter) WriteReport(report *qc.Report, limits []qc.Limit, path string) error {
	f, err := Workbook(report, limits)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	readerLog.Info("Report written to %s (%d runs)", path, len(report.Summary))
	return nil
}

// Write streams the report workbook to out
func (w *ReportWriter) Write(report *qc.Report, limits []qc.Limit, out io.Writer) error {
	f, err := Workbook(report, limits)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Workbook builds the Summary, Points and Limits sheets of a report
func Workbook(report *qc.Report, limits []qc.Limit) (*excelize.File, error) {
	if report == nil {
		return nil, fmt.Errorf("no report to export")
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name summary sheet: %w", err)
	}
	for _, name := range []string{PointsSheet, LimitsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	summary := [][]interface{}{{"Run", "Status", "Rejecting rules", "Warning rules"}}
	for _, row := range report.Summary {
		summary = append(summary, []interface{}{
			row.RunID.Label, string(row.Status), row.RejectingCell(), row.WarningCell(),
		})
	}

	points := [][]interface{}{{"Run", "Level", "Z", "Status", "Rules"}}
	for _, row := range report.Points {
		var z interface{} = ""
		if row.Z != nil {
			z = *row.Z
		}
		points = append(points, []interface{}{
			row.RunID.Label, row.Level, z, string(row.Status), row.RuleCell(),
		})
	}

	lines := [][]interface{}{{"Level", "Line", "K", "Value"}}
	for _, l := range limits {
		lines = append(lines, []interface{}{l.Level, l.Label, l.K, l.Value})
	}

	for sheet, rows := range map[string][][]interface{}{
		SummarySheet: summary,
		PointsSheet:  points,
		LimitsSheet:  lines,
	} {
		if err := writeRows(f, sheet, rows); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
