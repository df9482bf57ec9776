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
)

// AnalyteRepository persists per-(lab, analyte) state as one JSONB document
type AnalyteRepository struct {
	db *sqlx.DB
}

// NewAnalyteRepository creates a new analyte state repository
func NewAnalyteRepository(db *sqlx.DB) *AnalyteRepository {
	return &AnalyteRepository{db: db}
}

// Save upserts the state for a lab and analyte
func (r *AnalyteRepository) Save(ctx context.Context, lab core.LabID, key core.AnalyteKey, state *qc.AnalyteState) error {
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now().UTC()
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal analyte state: %w", err)
	}

	query := `
		INSERT INTO iqc_state (lab_id, analyte_key, state, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (lab_id, analyte_key) DO UPDATE SET
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at`

	_, err = r.db.ExecContext(ctx, query, lab.String(), key.String(), stateJSON, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save analyte state: %w", err)
	}
	return nil
}

// Get loads the state for a lab and analyte
func (r *AnalyteRepository) Get(ctx context.Context, lab core.LabID, key core.AnalyteKey) (*qc.AnalyteState, error) {
	query := `
		SELECT state
		FROM iqc_state
		WHERE lab_id = $1 AND analyte_key = $2`

	var stateJSON []byte
	err := r.db.QueryRowContext(ctx, query, lab.String(), key.String()).Scan(&stateJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewNotFoundError("analyte", lab.String()+"/"+key.String())
		}
		return nil, fmt.Errorf("failed to get analyte state: %w", err)
	}

	var state qc.AnalyteState
	if err := json.Unmarshal(stateJSON, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analyte state: %w", err)
	}
	if state.Baseline == nil {
		state.Baseline = make(map[string][]float64)
	}
	return &state, nil
}

// List returns the analyte keys of a lab
func (r *AnalyteRepository) List(ctx context.Context, lab core.LabID) ([]core.AnalyteKey, error) {
	var keys []string
	err := r.db.SelectContext(ctx, &keys, `
		SELECT analyte_key
		FROM iqc_state
		WHERE lab_id = $1
		ORDER BY analyte_key`, lab.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list analytes: %w", err)
	}

	out := make([]core.AnalyteKey, len(keys))
	for i, k := range keys {
		out[i] = core.AnalyteKey(k)
	}
	return out, nil
}

// Delete removes a lab's analyte; its evaluations cascade
func (r *AnalyteRepository) Delete(ctx context.Context, lab core.LabID, key core.AnalyteKey) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM iqc_state
		WHERE lab_id = $1 AND analyte_key = $2`, lab.String(), key.String())
	if err != nil {
		return fmt.Errorf("failed to delete analyte state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete analyte state: %w", err)
	}
	if n == 0 {
		return core.NewNotFoundError("analyte", lab.String()+"/"+key.String())
	}
	return nil
}
