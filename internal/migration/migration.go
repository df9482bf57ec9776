package migration

import (
	"context"

	"goiqc/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order. Every statement
// is idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createStateTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create iqc_state table", err)
	}

	if err := r.createEvaluationsTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create iqc_evaluations table", err)
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.DatabaseError("failed to create indexes", err)
	}

	return nil
}

// Tables lists the managed tables in dependency order
func Tables() []string {
	return []string{"iqc_state", "iqc_evaluations"}
}

func (r *MigrationRunner) createStateTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS iqc_state (
			lab_id TEXT NOT NULL,
			analyte_key TEXT NOT NULL,
			state JSONB NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (lab_id, analyte_key)
		)
	`)
	return err
}

func (r *MigrationRunner) createEvaluationsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS iqc_evaluations (
			id UUID PRIMARY KEY,
			lab_id TEXT NOT NULL,
			analyte_key TEXT NOT NULL,
			sigma_value DOUBLE PRECISION NOT NULL,
			category VARCHAR(8) NOT NULL,
			rules TEXT[] NOT NULL DEFAULT '{}',
			run_count INTEGER NOT NULL DEFAULT 0,
			rejections INTEGER NOT NULL DEFAULT 0,
			warnings INTEGER NOT NULL DEFAULT 0,
			fingerprint VARCHAR(64) NOT NULL,
			report JSONB,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			FOREIGN KEY (lab_id, analyte_key)
				REFERENCES iqc_state(lab_id, analyte_key) ON DELETE CASCADE
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_iqc_state_lab ON iqc_state(lab_id)`,
		`CREATE INDEX IF NOT EXISTS idx_iqc_evaluations_analyte ON iqc_evaluations(lab_id, analyte_key, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_iqc_evaluations_fingerprint ON iqc_evaluations(fingerprint)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
