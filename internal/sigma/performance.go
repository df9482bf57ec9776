package sigma

import (
	"math"

	"goiqc/domain/qc"

	"gonum.org/v1/gonum/stat/distuv"
)

// RuleProbability is the chance a rule fires on an in-control process
type RuleProbability struct {
	Rule qc.RuleCode `json:"rule"`
	// PerCheck is the probability one rule check fires when every z is N(0,1)
	PerCheck float64 `json:"per_check"`
	// PerRun scales PerCheck by the number of independent checks in a run
	PerRun float64 `json:"per_run"`
}

// Performance summarises expected false rejections for a rule set
type Performance struct {
	Levels int               `json:"levels"`
	Rules  []RuleProbability `json:"rules"`
	// FalseRejection is the per-run probability that any rejecting rule fires,
	// treating rules as independent.
	FalseRejection float64 `json:"false_rejection"`
	// FalseWarning is the per-run probability that 12s fires
	FalseWarning float64 `json:"false_warning"`
}

// tail is the two-sided probability |z| > k for a standard normal z
func tail(k float64) float64 {
	return 2 * distuv.UnitNormal.Survival(k)
}

// perCheck returns the single-check probability and the number of checks per
// run for a rule given the level count
func perCheck(rule qc.RuleCode, levels int) (float64, int) {
	upper := distuv.UnitNormal.Survival
	switch rule {
	case qc.Rule12s:
		return tail(2), levels
	case qc.Rule13s:
		return tail(3), levels
	case qc.Rule22s:
		return 2 * math.Pow(upper(2), 2), 1
	case qc.RuleR4s:
		if levels < 2 {
			return 0, 0
		}
		// z1-z2 ~ N(0, 2); the range condition contains the straddle condition
		diff := distuv.Normal{Mu: 0, Sigma: math.Sqrt2}
		return 2 * diff.Survival(4), 1
	case qc.Rule41s:
		return 2 * math.Pow(upper(1), 4), levels
	case qc.Rule10x:
		return 2 * math.Pow(0.5, 10), levels
	}
	return 0, 0
}

// Estimate computes false-rejection characteristics of a rule set. Window
// rules are scored on a full window, ignoring overlap between successive runs.
func Estimate(rules qc.RuleSet, levels int) Performance {
	perf := Performance{Levels: levels}
	passReject, passWarn := 1.0, 1.0
	for _, rule := range rules {
		p, checks := perCheck(rule, levels)
		perRun := 1 - math.Pow(1-p, float64(checks))
		perf.Rules = append(perf.Rules, RuleProbability{Rule: rule, PerCheck: p, PerRun: perRun})
		if rule.Warning() {
			passWarn *= 1 - perRun
		} else {
			passReject *= 1 - perRun
		}
	}
	perf.FalseRejection = 1 - passReject
	perf.FalseWarning = 1 - passWarn
	return perf
}
