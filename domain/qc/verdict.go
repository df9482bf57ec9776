package qc

// RunStatus is the verdict for a whole run
type RunStatus string

const (
	StatusInControl    RunStatus = "InControl"
	StatusWarning      RunStatus = "Warning"
	StatusOutOfControl RunStatus = "OutOfControl"
)

// PointStatus is the verdict for one control level within a run
type PointStatus string

const (
	PointOK   PointStatus = "OK"
	PointWarn PointStatus = "WARN"
	PointRej  PointStatus = "REJ"
)

// RuleHit records one rule firing and the levels it implicates
type RuleHit struct {
	Rule    RuleCode `json:"rule"`
	Levels  []string `json:"levels"`
	Message string   `json:"message"`
}

// Names reports whether the hit implicates the given level
func (h RuleHit) Names(level string) bool {
	for _, l := range h.Levels {
		if l == level {
			return true
		}
	}
	return false
}

// RunVerdict is the evaluator's judgement of one run
type RunVerdict struct {
	RunID          RunID     `json:"run_id"`
	Status         RunStatus `json:"status"`
	RejectingRules []string  `json:"rejecting_rules"`
	WarningRules   []string  `json:"warning_rules"`
	Hits           []RuleHit `json:"-"`
}

// PointVerdict is the evaluator's judgement of one control point
type PointVerdict struct {
	RunID     RunID       `json:"run_id"`
	Level     string      `json:"level"`
	Z         *float64    `json:"z"`
	Status    PointStatus `json:"point_status"`
	RuleCodes []string    `json:"rule_codes"`
}

// Evaluation is the full output of one evaluator call
type Evaluation struct {
	Levels []ControlLevel `json:"levels"`
	Rules  RuleSet        `json:"rules"`
	Runs   []RunVerdict   `json:"runs"`
	Points []PointVerdict `json:"points"`
}

// CountByStatus tallies runs per status
func (e *Evaluation) CountByStatus() map[RunStatus]int {
	counts := map[RunStatus]int{
		StatusInControl:    0,
		StatusWarning:      0,
		StatusOutOfControl: 0,
	}
	for _, r := range e.Runs {
		counts[r.Status]++
	}
	return counts
}
