package ports

import (
	"goiqc/domain/qc"
)

// RunReader loads daily control runs from a tabular source. Columns are
// matched to levels by name; blank cells become missing values.
type RunReader interface {
	ReadRuns(levels []qc.ControlLevel) ([]qc.QCRun, error)
}

// BaselineReader loads calibration samples, one column per level
type BaselineReader interface {
	ReadBaseline(levels []qc.ControlLevel) (map[string][]float64, error)
}

// SheetReader reads both baseline and run tables from one worksheet source
type SheetReader interface {
	RunReader
	BaselineReader
}

// ReportWriter exports an aggregated report together with its limit lines
type ReportWriter interface {
	WriteReport(report *qc.Report, limits []qc.Limit, path string) error
}
