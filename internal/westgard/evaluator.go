// Package westgard evaluates ordered control runs against Westgard multi-rules.
//
// Evaluation is a single pass over the full run history. Per-level windows of
// the last 2, 4 and 10 non-missing z-scores are rebuilt on every call, so the
// evaluator keeps no state between calls and never mutates its inputs.
package westgard

import (
	"fmt"
	"strings"

	"goiqc/domain/core"
	"goiqc/domain/qc"
)

// Evaluate judges every run and every control point. Runs are evaluated in
// RunID.Order (stable for ties). An unknown rule fails with ErrInvalidRuleSet;
// missing values, zero SD and short histories are not errors.
func Evaluate(levels []qc.ControlLevel, runs []qc.ZScoreRun, active qc.RuleSet) (*qc.Evaluation, error) {
	if err := active.Validate(); err != nil {
		return nil, err
	}
	if err := qc.ValidateLevels(levels); err != nil {
		return nil, core.NewConfigurationError("levels", err.Error())
	}

	e := &evaluator{
		levels:  qc.SortLevels(levels),
		rules:   dedupe(active),
		history: make(map[string]*levelHistory, len(levels)),
	}
	for _, l := range e.levels {
		e.history[l.Name] = newLevelHistory()
	}

	sorted := qc.SortZScoreRuns(runs)
	out := &qc.Evaluation{
		Levels: e.levels,
		Rules:  e.rules,
		Runs:   make([]qc.RunVerdict, 0, len(sorted)),
		Points: make([]qc.PointVerdict, 0, len(sorted)*len(e.levels)),
	}
	for _, run := range sorted {
		verdict, points := e.step(run)
		out.Runs = append(out.Runs, verdict)
		out.Points = append(out.Points, points...)
	}
	return out, nil
}

type evaluator struct {
	levels  []qc.ControlLevel
	rules   qc.RuleSet
	history map[string]*levelHistory
}

// step advances the windows with one run and applies every active rule
func (e *evaluator) step(run qc.ZScoreRun) (qc.RunVerdict, []qc.PointVerdict) {
	current := make(map[string]*float64, len(e.levels))
	for _, l := range e.levels {
		z := run.Value(l.Name)
		current[l.Name] = z
		if z != nil {
			e.history[l.Name].push(*z)
		}
	}

	var hits []qc.RuleHit
	for _, rule := range e.rules {
		hits = append(hits, e.apply(rule, current)...)
	}
	for _, l := range e.levels {
		e.history[l.Name].previous = current[l.Name]
	}

	verdict := qc.RunVerdict{
		RunID:          run.ID,
		Status:         qc.StatusInControl,
		RejectingRules: []string{},
		WarningRules:   []string{},
		Hits:           hits,
	}
	for _, h := range hits {
		if h.Rule.Warning() {
			verdict.WarningRules = append(verdict.WarningRules, h.Message)
		} else {
			verdict.RejectingRules = append(verdict.RejectingRules, h.Message)
		}
	}
	switch {
	case len(verdict.RejectingRules) > 0:
		verdict.Status = qc.StatusOutOfControl
	case len(verdict.WarningRules) > 0:
		verdict.Status = qc.StatusWarning
	}

	points := make([]qc.PointVerdict, 0, len(e.levels))
	for _, l := range e.levels {
		points = append(points, pointVerdict(run.ID, l.Name, current[l.Name], hits))
	}
	return verdict, points
}

// apply evaluates one rule against the current run and the level histories
func (e *evaluator) apply(rule qc.RuleCode, current map[string]*float64) []qc.RuleHit {
	var hits []qc.RuleHit
	switch rule {
	case qc.Rule12s, qc.Rule13s:
		check := rule12s
		if rule == qc.Rule13s {
			check = rule13s
		}
		for _, l := range e.levels {
			if z := current[l.Name]; z != nil && check(*z) {
				hits = append(hits, singleHit(rule, l.Name))
			}
		}

	case qc.Rule22s:
		if len(e.levels) >= 2 {
			l1, l2 := e.levels[0].Name, e.levels[1].Name
			z1, z2 := current[l1], current[l2]
			if z1 != nil && z2 != nil && rule22s(*z1, *z2) {
				hits = append(hits, pairHit(rule, l1, l2))
			}
			break
		}
		// one level: the same rule across its two most recent runs; a run
		// without a value breaks the pair
		l := e.levels[0].Name
		prev, z := e.history[l].previous, current[l]
		if prev != nil && z != nil {
			if rule22s(*prev, *z) {
				hits = append(hits, qc.RuleHit{
					Rule:    rule,
					Levels:  []string{l},
					Message: fmt.Sprintf("%s(%s consecutive)", rule, l),
				})
			}
		}

	case qc.RuleR4s:
		if len(e.levels) < 2 {
			break
		}
		l1, l2 := e.levels[0].Name, e.levels[1].Name
		z1, z2 := current[l1], current[l2]
		if z1 != nil && z2 != nil && ruleR4s(*z1, *z2) {
			hits = append(hits, pairHit(rule, l1, l2))
		}

	case qc.Rule41s, qc.Rule10x:
		for _, l := range e.levels {
			if current[l.Name] == nil {
				continue
			}
			h := e.history[l.Name]
			var fired bool
			if rule == qc.Rule41s {
				fired = rule41s(h.last4)
			} else {
				fired = rule10x(h.last10)
			}
			if fired {
				hits = append(hits, singleHit(rule, l.Name))
			}
		}
	}
	return hits
}

// pointVerdict attributes rule hits to one control point
func pointVerdict(id qc.RunID, level string, z *float64, hits []qc.RuleHit) qc.PointVerdict {
	p := qc.PointVerdict{RunID: id, Level: level, Z: z, Status: qc.PointOK, RuleCodes: []string{}}

	var rejecting, warning []string
	for _, h := range hits {
		if !h.Names(level) {
			continue
		}
		if h.Rule.Warning() {
			warning = append(warning, h.Message)
		} else {
			rejecting = append(rejecting, h.Message)
		}
	}
	switch {
	case len(rejecting) > 0:
		p.Status = qc.PointRej
	case len(warning) > 0:
		p.Status = qc.PointWarn
	}
	p.RuleCodes = append(p.RuleCodes, rejecting...)
	p.RuleCodes = append(p.RuleCodes, warning...)
	return p
}

func singleHit(rule qc.RuleCode, level string) qc.RuleHit {
	return qc.RuleHit{
		Rule:    rule,
		Levels:  []string{level},
		Message: fmt.Sprintf("%s(%s)", rule, level),
	}
}

func pairHit(rule qc.RuleCode, l1, l2 string) qc.RuleHit {
	return qc.RuleHit{
		Rule:    rule,
		Levels:  []string{l1, l2},
		Message: fmt.Sprintf("%s(%s)", rule, PairLabel(l1, l2)),
	}
}

// PairLabel names a level pair compactly: Ctrl1 and Ctrl2 become "Ctrl1&2",
// unrelated names are joined whole ("Low&High").
func PairLabel(a, b string) string {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	// never split inside a trailing number
	for n > 0 && isDigit(a[n-1]) {
		n--
	}
	suffix := b[n:]
	if strings.TrimSpace(suffix) == "" {
		suffix = b
	}
	return a + "&" + suffix
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func dedupe(rules qc.RuleSet) qc.RuleSet {
	out := make(qc.RuleSet, 0, len(rules))
	seen := make(map[qc.RuleCode]bool, len(rules))
	for _, r := range rules {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
