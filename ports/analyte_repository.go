package ports

import (
	"context"

	"goiqc/domain/core"
	"goiqc/domain/qc"
)

// AnalyteRepository stores the per-(lab, analyte) working document.
// Get returns core.ErrNotFound when the analyte has never been saved.
type AnalyteRepository interface {
	Get(ctx context.Context, lab core.LabID, key core.AnalyteKey) (*qc.AnalyteState, error)
	Save(ctx context.Context, lab core.LabID, key core.AnalyteKey, state *qc.AnalyteState) error
	List(ctx context.Context, lab core.LabID) ([]core.AnalyteKey, error)
	Delete(ctx context.Context, lab core.LabID, key core.AnalyteKey) error
}
