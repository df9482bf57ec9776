package sigma

import (
	"math"
	"testing"

	"goiqc/domain/core"
	"goiqc/domain/qc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Bands(t *testing.T) {
	tests := []struct {
		sigma    float64
		category Category
		rules    qc.RuleSet
	}{
		{10, CategorySixPlus, qc.RuleSet{qc.Rule13s, qc.Rule22s, qc.RuleR4s, qc.Rule41s, qc.Rule10x}},
		{6, CategorySixPlus, qc.RuleSet{qc.Rule13s, qc.Rule22s, qc.RuleR4s, qc.Rule41s, qc.Rule10x}},
		{5.99, CategoryFive, qc.RuleSet{qc.Rule13s, qc.Rule22s, qc.RuleR4s}},
		{5, CategoryFive, qc.RuleSet{qc.Rule13s, qc.Rule22s, qc.RuleR4s}},
		{4.999, CategoryFour, qc.RuleSet{qc.Rule13s, qc.Rule22s}},
		{4, CategoryFour, qc.RuleSet{qc.Rule13s, qc.Rule22s}},
		{3.99, CategoryLow, qc.RuleSet{qc.Rule12s}},
		{1, CategoryLow, qc.RuleSet{qc.Rule12s}},
		{-3, CategoryLow, qc.RuleSet{qc.Rule12s}},
		{math.Inf(1), CategorySixPlus, qc.RuleSet{qc.Rule13s, qc.Rule22s, qc.RuleR4s, qc.Rule41s, qc.Rule10x}},
		{math.Inf(-1), CategoryLow, qc.RuleSet{qc.Rule12s}},
	}

	for _, tt := range tests {
		category, rules, err := Classify(tt.sigma)
		require.NoError(t, err, "sigma %v", tt.sigma)
		assert.Equal(t, tt.category, category, "sigma %v", tt.sigma)
		assert.Equal(t, tt.rules, rules, "sigma %v", tt.sigma)
	}
}

func TestClassify_RuleCountNonIncreasingAsSigmaFalls(t *testing.T) {
	prev := math.MaxInt
	for s := 8.0; s >= 4.0; s -= 0.25 {
		_, rules, err := Classify(s)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(rules), prev, "sigma %v", s)
		prev = len(rules)
	}
}

func TestClassify_ReturnsFreshSlice(t *testing.T) {
	_, rules, err := Classify(6)
	require.NoError(t, err)
	rules[0] = qc.Rule12s

	_, again, err := Classify(6)
	require.NoError(t, err)
	assert.Equal(t, qc.Rule13s, again[0])
}

func TestClassify_NaN(t *testing.T) {
	_, _, err := Classify(math.NaN())
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))
}

func TestClassifyString(t *testing.T) {
	category, rules, err := ClassifyString(" 5.2 ")
	require.NoError(t, err)
	assert.Equal(t, CategoryFive, category)
	assert.Len(t, rules, 3)

	for _, bad := range []string{"", "abc", "NaN", "5,2"} {
		_, _, err := ClassifyString(bad)
		assert.True(t, core.IsConfigurationError(err), "input %q", bad)
	}
}

func TestEstimate(t *testing.T) {
	_, rules, err := Classify(3)
	require.NoError(t, err)

	perf := Estimate(rules, 2)
	require.Len(t, perf.Rules, 1)
	assert.InDelta(t, 0.0455, perf.Rules[0].PerCheck, 1e-3)
	// two levels, two independent 12s checks
	assert.InDelta(t, 1-math.Pow(1-0.0455, 2), perf.FalseWarning, 1e-3)
	assert.Zero(t, perf.FalseRejection)

	_, rules, err = Classify(6)
	require.NoError(t, err)
	perf = Estimate(rules, 2)
	assert.Len(t, perf.Rules, 5)
	assert.Greater(t, perf.FalseRejection, 0.0)
	assert.Less(t, perf.FalseRejection, 0.05)
	assert.Zero(t, perf.FalseWarning)
}

func TestEstimate_R4sNeedsTwoLevels(t *testing.T) {
	perf := Estimate(qc.RuleSet{qc.RuleR4s}, 1)
	require.Len(t, perf.Rules, 1)
	assert.Zero(t, perf.Rules[0].PerRun)
	assert.Zero(t, perf.FalseRejection)
}
