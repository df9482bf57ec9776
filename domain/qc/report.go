package qc

import (
	"strings"
	"time"

	"goiqc/domain/core"
)

// RuleSeparator joins rule messages in single-cell tabular output
const RuleSeparator = "; "

// SummaryRow is one run in the run-level summary table
type SummaryRow struct {
	RunID          RunID     `json:"run_id"`
	Status         RunStatus `json:"status"`
	RejectingRules []string  `json:"rejecting_rules"`
	WarningRules   []string  `json:"warning_rules"`
}

// RejectingCell returns the rejecting rules as one table cell
func (r SummaryRow) RejectingCell() string { return strings.Join(r.RejectingRules, RuleSeparator) }

// WarningCell returns the warning rules as one table cell
func (r SummaryRow) WarningCell() string { return strings.Join(r.WarningRules, RuleSeparator) }

// PointRow is one control point in the point-level status table
type PointRow struct {
	RunID     RunID       `json:"run_id"`
	Level     string      `json:"level"`
	Z         *float64    `json:"z"`
	Status    PointStatus `json:"point_status"`
	RuleCodes []string    `json:"rule_codes"`
}

// RuleCell returns the point's rule codes as one table cell
func (r PointRow) RuleCell() string { return strings.Join(r.RuleCodes, RuleSeparator) }

// Limit is one Levey-Jennings reference line for a level
type Limit struct {
	Level string  `json:"level"`
	Label string  `json:"label"`
	K     float64 `json:"k"`
	Value float64 `json:"value"`
}

// Report is the aggregated, display-ready output of an evaluation
type Report struct {
	Category    string       `json:"category"`
	Rules       RuleSet      `json:"rules"`
	Levels      []string     `json:"levels"`
	Summary     []SummaryRow `json:"summary"`
	Points      []PointRow   `json:"points"`
	InControl   int          `json:"in_control"`
	Warnings    int          `json:"warnings"`
	Rejections  int          `json:"rejections"`
	Fingerprint core.Hash    `json:"fingerprint"`
}

// AnalyteState is the per-(lab, analyte) working document: configuration,
// inputs and the latest derived outputs
type AnalyteState struct {
	Config    AnalyteConfig        `json:"config"`
	Baseline  map[string][]float64 `json:"baseline"`
	Stats     []BaselineStats      `json:"qc_stats,omitempty"`
	Runs      []QCRun              `json:"daily_runs"`
	ZScores   []ZScoreRun          `json:"z_scores,omitempty"`
	Report    *Report              `json:"report,omitempty"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// NewAnalyteState creates an empty state for a configuration
func NewAnalyteState(cfg AnalyteConfig) *AnalyteState {
	return &AnalyteState{
		Config:   cfg,
		Baseline: make(map[string][]float64),
	}
}

// EvaluationRecord is the persisted trace of one evaluation
type EvaluationRecord struct {
	ID          core.EvaluationID `json:"id"`
	LabID       core.LabID        `json:"lab_id"`
	AnalyteKey  core.AnalyteKey   `json:"analyte_key"`
	SigmaValue  float64           `json:"sigma_value"`
	Category    string            `json:"category"`
	Rules       RuleSet           `json:"rules"`
	RunCount    int               `json:"run_count"`
	Rejections  int               `json:"rejections"`
	Warnings    int               `json:"warnings"`
	Fingerprint core.Hash         `json:"fingerprint"`
	Report      *Report           `json:"report"`
	CreatedAt   time.Time         `json:"created_at"`
}
