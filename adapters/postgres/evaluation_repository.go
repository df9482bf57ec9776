package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"goiqc/domain/core"
	"goiqc/domain/qc"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// EvaluationRepository appends evaluation records to iqc_evaluations
type EvaluationRepository struct {
	db *sqlx.DB
}

// NewEvaluationRepository creates a new evaluation repository
func NewEvaluationRepository(db *sqlx.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// evaluationRow mirrors an iqc_evaluations row
type evaluationRow struct {
	ID          string         `db:"id"`
	LabID       string         `db:"lab_id"`
	AnalyteKey  string         `db:"analyte_key"`
	SigmaValue  float64        `db:"sigma_value"`
	Category    string         `db:"category"`
	Rules       pq.StringArray `db:"rules"`
	RunCount    int            `db:"run_count"`
	Rejections  int            `db:"rejections"`
	Warnings    int            `db:"warnings"`
	Fingerprint string         `db:"fingerprint"`
	Report      []byte         `db:"report"`
	CreatedAt   time.Time      `db:"created_at"`
}

// SaveEvaluation inserts a record, assigning its ID and timestamp when unset
func (r *EvaluationRepository) SaveEvaluation(ctx context.Context, record *qc.EvaluationRecord) error {
	if record.ID == "" {
		record.ID = core.NewEvaluationID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	reportJSON, err := json.Marshal(record.Report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO iqc_evaluations (
			id, lab_id, analyte_key, sigma_value, category, rules,
			run_count, rejections, warnings, fingerprint, report, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.db.ExecContext(ctx, query,
		record.ID.String(),
		record.LabID.String(),
		record.AnalyteKey.String(),
		record.SigmaValue,
		record.Category,
		pq.Array(record.Rules.Strings()),
		record.RunCount,
		record.Rejections,
		record.Warnings,
		record.Fingerprint.String(),
		reportJSON,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save evaluation: %w", err)
	}
	return nil
}

// ListEvaluations returns up to limit records, newest first; limit <= 0 means all
func (r *EvaluationRepository) ListEvaluations(ctx context.Context, lab core.LabID, key core.AnalyteKey, limit int) ([]*qc.EvaluationRecord, error) {
	query := `
		SELECT id, lab_id, analyte_key, sigma_value, category, rules,
			run_count, rejections, warnings, fingerprint, report, created_at
		FROM iqc_evaluations
		WHERE lab_id = $1 AND analyte_key = $2
		ORDER BY created_at DESC, id DESC`
	args := []interface{}{lab.String(), key.String()}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	var rows []evaluationRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}

	out := make([]*qc.EvaluationRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (row evaluationRow) toRecord() (*qc.EvaluationRecord, error) {
	rules, err := qc.ParseRuleSet(row.Rules)
	if err != nil {
		return nil, fmt.Errorf("stored evaluation %s: %w", row.ID, err)
	}
	rec := &qc.EvaluationRecord{
		ID:          core.EvaluationID(row.ID),
		LabID:       core.LabID(row.LabID),
		AnalyteKey:  core.AnalyteKey(row.AnalyteKey),
		SigmaValue:  row.SigmaValue,
		Category:    row.Category,
		Rules:       rules,
		RunCount:    row.RunCount,
		Rejections:  row.Rejections,
		Warnings:    row.Warnings,
		Fingerprint: core.Hash(row.Fingerprint),
		CreatedAt:   row.CreatedAt,
	}
	if len(row.Report) > 0 && string(row.Report) != "null" {
		var report qc.Report
		if err := json.Unmarshal(row.Report, &report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
		rec.Report = &report
	}
	return rec, nil
}
