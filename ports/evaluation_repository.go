package ports

import (
	"context"

	"goiqc/domain/core"
	"goiqc/domain/qc"
)

// EvaluationRepository keeps an append-only trace of evaluations
type EvaluationRepository interface {
	SaveEvaluation(ctx context.Context, record *qc.EvaluationRecord) error
	ListEvaluations(ctx context.Context, lab core.LabID, key core.AnalyteKey, limit int) ([]*qc.EvaluationRecord, error)
}
