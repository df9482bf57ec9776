package qc

import (
	"strings"

	"goiqc/domain/core"
)

// RuleCode names one Westgard rule
type RuleCode string

const (
	Rule12s RuleCode = "12s"
	Rule13s RuleCode = "13s"
	Rule22s RuleCode = "22s"
	RuleR4s RuleCode = "R4s"
	Rule41s RuleCode = "41s"
	Rule10x RuleCode = "10x"
)

// AllRules is the fixed rule universe in presentation order
var AllRules = []RuleCode{Rule12s, Rule13s, Rule22s, RuleR4s, Rule41s, Rule10x}

// Valid reports whether r belongs to the rule universe
func (r RuleCode) Valid() bool {
	for _, known := range AllRules {
		if r == known {
			return true
		}
	}
	return false
}

// Warning reports whether the rule only warns and never rejects
func (r RuleCode) Warning() bool {
	return r == Rule12s
}

// RuleSet is an ordered set of active rules
type RuleSet []RuleCode

// ParseRuleSet converts rule tokens into a RuleSet, dropping duplicates.
// Any token outside the rule universe fails with ErrInvalidRuleSet.
func ParseRuleSet(tokens []string) (RuleSet, error) {
	rs := make(RuleSet, 0, len(tokens))
	seen := make(map[RuleCode]bool, len(tokens))
	for _, tok := range tokens {
		code := RuleCode(strings.TrimSpace(tok))
		if !code.Valid() {
			return nil, core.NewRuleSetError(tok)
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		rs = append(rs, code)
	}
	return rs, nil
}

// Validate checks every member is a known rule
func (rs RuleSet) Validate() error {
	for _, code := range rs {
		if !code.Valid() {
			return core.NewRuleSetError(string(code))
		}
	}
	return nil
}

// Contains reports whether code is active
func (rs RuleSet) Contains(code RuleCode) bool {
	for _, c := range rs {
		if c == code {
			return true
		}
	}
	return false
}

// Strings returns the rule tokens in set order
func (rs RuleSet) Strings() []string {
	out := make([]string, len(rs))
	for i, c := range rs {
		out[i] = string(c)
	}
	return out
}

func (rs RuleSet) String() string {
	return strings.Join(rs.Strings(), ", ")
}
