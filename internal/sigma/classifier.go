// Package sigma maps a method's process sigma metric to the Westgard rules
// that should be active for it.
package sigma

import (
	"math"
	"strconv"
	"strings"

	"goiqc/domain/core"
	"goiqc/domain/qc"
)

// Category is a named sigma band
type Category string

const (
	CategorySixPlus Category = "≥6σ"
	CategoryFive    Category = "5σ"
	CategoryFour    Category = "4σ"
	CategoryLow     Category = "<4σ"
)

func (c Category) String() string {
	return string(c)
}

// band is one row of the classification table; lower bounds are inclusive
type band struct {
	lower    float64
	category Category
	rules    []qc.RuleCode
}

// bands are ordered from the highest lower bound down
var bands = []band{
	{6, CategorySixPlus, []qc.RuleCode{qc.Rule13s, qc.Rule22s, qc.RuleR4s, qc.Rule41s, qc.Rule10x}},
	{5, CategoryFive, []qc.RuleCode{qc.Rule13s, qc.Rule22s, qc.RuleR4s}},
	{4, CategoryFour, []qc.RuleCode{qc.Rule13s, qc.Rule22s}},
	{math.Inf(-1), CategoryLow, []qc.RuleCode{qc.Rule12s}},
}

// Classify returns the sigma category and the rule set to activate.
// Lower sigma capability gets more sensitive rules; higher sigma fewer, more
// specific ones. NaN fails with ErrInvalidConfiguration.
func Classify(sigma float64) (Category, qc.RuleSet, error) {
	if math.IsNaN(sigma) {
		return "", nil, core.NewConfigurationError("sigma_value", "must be a number")
	}
	for _, b := range bands {
		if sigma >= b.lower {
			return b.category, append(qc.RuleSet(nil), b.rules...), nil
		}
	}
	// unreachable: the last band starts at -Inf
	return CategoryLow, qc.RuleSet{qc.Rule12s}, nil
}

// ParseSigma parses a sigma value from user input
func ParseSigma(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) {
		return 0, core.NewConfigurationError("sigma_value", "not a number: "+strconv.Quote(s))
	}
	return v, nil
}

// ClassifyString parses and classifies a sigma value in one step
func ClassifyString(s string) (Category, qc.RuleSet, error) {
	v, err := ParseSigma(s)
	if err != nil {
		return "", nil, err
	}
	return Classify(v)
}
