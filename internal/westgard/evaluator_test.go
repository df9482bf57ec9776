package westgard

import (
	"encoding/json"
	"testing"

	"goiqc/domain/core"
	"goiqc/domain/qc"
	"goiqc/internal/baseline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zRuns builds one-level-per-column z-score runs; a nil entry is a missing value
func zRuns(levels []qc.ControlLevel, rows ...[]*float64) []qc.ZScoreRun {
	runs := make([]qc.ZScoreRun, len(rows))
	for i, row := range rows {
		z := make(map[string]*float64, len(levels))
		for j, l := range levels {
			z[l.Name] = row[j]
		}
		runs[i] = qc.ZScoreRun{ID: qc.RunID{Label: runLabel(i), Order: int64(i + 1)}, Z: z}
	}
	return runs
}

func runLabel(i int) string {
	return "run-" + string(rune('A'+i))
}

func f(v float64) *float64 { return qc.Float(v) }

// series builds single-level runs from a z history
func series(values ...*float64) []qc.ZScoreRun {
	rows := make([][]*float64, len(values))
	for i, v := range values {
		rows[i] = []*float64{v}
	}
	return zRuns(qc.DefaultLevels(1), rows...)
}

func statuses(ev *qc.Evaluation) []qc.RunStatus {
	out := make([]qc.RunStatus, len(ev.Runs))
	for i, r := range ev.Runs {
		out[i] = r.Status
	}
	return out
}

func TestScenarioA_12sWarningOnly(t *testing.T) {
	levels := qc.DefaultLevels(1)
	stats := []qc.BaselineStats{{Level: "Ctrl1", Mean: 100, SD: 5, N: 20}}
	runs := []qc.QCRun{
		{ID: qc.RunID{Label: "1", Order: 1}, Values: map[string]*float64{"Ctrl1": f(100)}},
		{ID: qc.RunID{Label: "2", Order: 2}, Values: map[string]*float64{"Ctrl1": f(112)}},
	}

	ev, err := Evaluate(levels, baseline.Transform(levels, runs, stats), qc.RuleSet{qc.Rule12s})
	require.NoError(t, err)
	require.Len(t, ev.Runs, 2)

	assert.Equal(t, qc.StatusInControl, ev.Runs[0].Status)
	assert.Equal(t, qc.StatusWarning, ev.Runs[1].Status)
	assert.Equal(t, []string{"12s(Ctrl1)"}, ev.Runs[1].WarningRules)
	assert.Empty(t, ev.Runs[1].RejectingRules)

	require.Len(t, ev.Points, 2)
	assert.Equal(t, qc.PointWarn, ev.Points[1].Status)
	require.NotNil(t, ev.Points[1].Z)
	assert.InDelta(t, 2.4, *ev.Points[1].Z, 1e-9)
}

func TestScenarioB_22sAcrossLevels(t *testing.T) {
	levels := qc.DefaultLevels(2)
	stats := []qc.BaselineStats{
		{Level: "Ctrl1", Mean: 100, SD: 5, N: 20},
		{Level: "Ctrl2", Mean: 100, SD: 5, N: 20},
	}
	runs := []qc.QCRun{{
		ID:     qc.RunID{Label: "1", Order: 1},
		Values: map[string]*float64{"Ctrl1": f(112), "Ctrl2": f(111)},
	}}

	ev, err := Evaluate(levels, baseline.Transform(levels, runs, stats), qc.RuleSet{qc.Rule13s, qc.Rule22s})
	require.NoError(t, err)

	assert.Equal(t, qc.StatusOutOfControl, ev.Runs[0].Status)
	assert.Equal(t, []string{"22s(Ctrl1&2)"}, ev.Runs[0].RejectingRules)
	// the cross-level rule is attributed to both points
	require.Len(t, ev.Points, 2)
	for _, p := range ev.Points {
		assert.Equal(t, qc.PointRej, p.Status, p.Level)
		assert.Equal(t, []string{"22s(Ctrl1&2)"}, p.RuleCodes, p.Level)
	}
}

func TestScenarioC_R4sReportedOnce(t *testing.T) {
	levels := qc.DefaultLevels(2)
	runs := zRuns(levels, []*float64{f(2.5), f(-2.5)})

	ev, err := Evaluate(levels, runs, qc.RuleSet{qc.RuleR4s})
	require.NoError(t, err)
	assert.Equal(t, []string{"R4s(Ctrl1&2)"}, ev.Runs[0].RejectingRules)
}

func TestR4s_RangeWithoutStraddle(t *testing.T) {
	levels := qc.DefaultLevels(2)
	runs := zRuns(levels,
		[]*float64{f(2.9), f(-1.5)}, // range 4.4, only one side beyond 2
		[]*float64{f(1.9), f(-1.9)}, // range 3.8
		[]*float64{f(2.5), nil},
	)

	ev, err := Evaluate(levels, runs, qc.RuleSet{qc.RuleR4s})
	require.NoError(t, err)
	assert.Equal(t, []qc.RunStatus{qc.StatusOutOfControl, qc.StatusInControl, qc.StatusInControl}, statuses(ev))
}

func TestScenarioD_41sFiresOnFourthRunOnly(t *testing.T) {
	ev, err := Evaluate(qc.DefaultLevels(1), series(f(1.2), f(1.5), f(1.1), f(1.3)), qc.RuleSet{qc.Rule41s})
	require.NoError(t, err)

	assert.Equal(t, []qc.RunStatus{
		qc.StatusInControl, qc.StatusInControl, qc.StatusInControl, qc.StatusOutOfControl,
	}, statuses(ev))
	assert.Equal(t, []string{"41s(Ctrl1)"}, ev.Runs[3].RejectingRules)
}

func TestScenarioE_MissingValueDoesNotResetWindow(t *testing.T) {
	ev, err := Evaluate(qc.DefaultLevels(1), series(f(1.2), nil, f(1.5), f(1.1), f(1.3)), qc.RuleSet{qc.Rule41s})
	require.NoError(t, err)

	assert.Equal(t, []qc.RunStatus{
		qc.StatusInControl, qc.StatusInControl, qc.StatusInControl, qc.StatusInControl, qc.StatusOutOfControl,
	}, statuses(ev))
	assert.Nil(t, ev.Points[1].Z)
	assert.Equal(t, qc.PointOK, ev.Points[1].Status)
}

func TestMissingCurrentValueDoesNotRefire(t *testing.T) {
	ev, err := Evaluate(qc.DefaultLevels(1), series(f(-1.2), f(-1.5), f(-1.1), f(-1.3), nil), qc.RuleSet{qc.Rule41s})
	require.NoError(t, err)
	assert.Equal(t, qc.StatusOutOfControl, ev.Runs[3].Status)
	assert.Equal(t, qc.StatusInControl, ev.Runs[4].Status)
}

func TestWindowRulesNeedMinimumHistory(t *testing.T) {
	values := make([]*float64, 0, 12)
	for i := 0; i < 9; i++ {
		values = append(values, f(0.5))
	}
	values = append(values, nil, f(0.4), f(0.3))

	ev, err := Evaluate(qc.DefaultLevels(1), series(values...), qc.RuleSet{qc.Rule10x, qc.Rule41s})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		assert.Equal(t, qc.StatusInControl, ev.Runs[i].Status, "run %d", i+1)
	}
	// tenth non-missing value arrives on run 11
	assert.Equal(t, []string{"10x(Ctrl1)"}, ev.Runs[10].RejectingRules)
	assert.Equal(t, qc.StatusOutOfControl, ev.Runs[11].Status)
}

func TestTenXNegativeSide(t *testing.T) {
	values := make([]*float64, 10)
	for i := range values {
		values[i] = f(-0.1)
	}
	values[4] = f(0.2)

	ev, err := Evaluate(qc.DefaultLevels(1), series(values...), qc.RuleSet{qc.Rule10x})
	require.NoError(t, err)
	assert.Equal(t, qc.StatusInControl, ev.Runs[9].Status)
}

func TestTenXFiresOnTenNegatives(t *testing.T) {
	values := make([]*float64, 10)
	for i := range values {
		values[i] = f(-0.3)
	}

	ev, err := Evaluate(qc.DefaultLevels(1), series(values...), qc.RuleSet{qc.Rule10x})
	require.NoError(t, err)
	assert.Equal(t, qc.StatusInControl, ev.Runs[8].Status)
	assert.Equal(t, qc.StatusOutOfControl, ev.Runs[9].Status)
	assert.Equal(t, []string{"10x(Ctrl1)"}, ev.Runs[9].RejectingRules)
}

func TestTenXZeroBreaksStreak(t *testing.T) {
	for _, sign := range []float64{1, -1} {
		values := make([]*float64, 10)
		for i := range values {
			values[i] = f(sign * 0.4)
		}
		values[3] = f(0)

		ev, err := Evaluate(qc.DefaultLevels(1), series(values...), qc.RuleSet{qc.Rule10x})
		require.NoError(t, err)
		assert.Equal(t, qc.StatusInControl, ev.Runs[9].Status, "sign %v", sign)
	}
}

func TestAllRejectingRulesRecorded(t *testing.T) {
	levels := qc.DefaultLevels(2)
	runs := zRuns(levels,
		[]*float64{f(1.5), f(0)},
		[]*float64{f(1.5), f(0)},
		[]*float64{f(1.5), f(0)},
		[]*float64{f(3.5), f(2.5)},
	)

	ev, err := Evaluate(levels, runs, qc.RuleSet{qc.Rule13s, qc.Rule22s, qc.RuleR4s, qc.Rule41s, qc.Rule10x})
	require.NoError(t, err)

	last := ev.Runs[3]
	assert.Equal(t, qc.StatusOutOfControl, last.Status)
	assert.Equal(t, []string{"13s(Ctrl1)", "22s(Ctrl1&2)", "41s(Ctrl1)"}, last.RejectingRules)

	p1, p2 := ev.Points[6], ev.Points[7]
	assert.Equal(t, "Ctrl1", p1.Level)
	assert.Equal(t, []string{"13s(Ctrl1)", "22s(Ctrl1&2)", "41s(Ctrl1)"}, p1.RuleCodes)
	assert.Equal(t, "Ctrl2", p2.Level)
	assert.Equal(t, qc.PointRej, p2.Status)
	assert.Equal(t, []string{"22s(Ctrl1&2)"}, p2.RuleCodes)
}

func TestWarningAndRejectionTogether(t *testing.T) {
	levels := qc.DefaultLevels(2)
	runs := zRuns(levels, []*float64{f(2.5), f(3.2)})

	ev, err := Evaluate(levels, runs, qc.RuleSet{qc.Rule12s, qc.Rule13s})
	require.NoError(t, err)

	run := ev.Runs[0]
	assert.Equal(t, qc.StatusOutOfControl, run.Status)
	assert.Equal(t, []string{"13s(Ctrl2)"}, run.RejectingRules)
	assert.Equal(t, []string{"12s(Ctrl1)", "12s(Ctrl2)"}, run.WarningRules)

	assert.Equal(t, qc.PointWarn, ev.Points[0].Status)
	assert.Equal(t, qc.PointRej, ev.Points[1].Status)
	assert.Equal(t, []string{"13s(Ctrl2)", "12s(Ctrl2)"}, ev.Points[1].RuleCodes)
}

func TestThreeLevels_PairRulesUseFirstTwo(t *testing.T) {
	levels := qc.DefaultLevels(3)
	runs := zRuns(levels,
		[]*float64{f(2.5), f(0.5), f(2.6)},
		[]*float64{f(0), f(2.3), f(-2.4)},
	)

	ev, err := Evaluate(levels, runs, qc.RuleSet{qc.Rule22s, qc.RuleR4s})
	require.NoError(t, err)
	assert.Equal(t, []qc.RunStatus{qc.StatusInControl, qc.StatusInControl}, statuses(ev))
	assert.Len(t, ev.Points, 6)
}

func TestSingleLevel22sConsecutive(t *testing.T) {
	ev, err := Evaluate(qc.DefaultLevels(1), series(f(2.5), f(2.1), f(-2.2), nil, f(-2.6)), qc.RuleSet{qc.Rule22s, qc.RuleR4s})
	require.NoError(t, err)

	assert.Equal(t, []qc.RunStatus{
		qc.StatusInControl, qc.StatusOutOfControl, qc.StatusInControl, qc.StatusInControl, qc.StatusInControl,
	}, statuses(ev))
	assert.Equal(t, []string{"22s(Ctrl1 consecutive)"}, ev.Runs[1].RejectingRules)
	assert.Empty(t, ev.Runs[4].RejectingRules)
}

func TestSingleLevel22sMissingRunBreaksPair(t *testing.T) {
	ev, err := Evaluate(qc.DefaultLevels(1), series(f(2.5), nil, f(2.6), f(2.7)), qc.RuleSet{qc.Rule22s})
	require.NoError(t, err)

	assert.Equal(t, []qc.RunStatus{
		qc.StatusInControl, qc.StatusInControl, qc.StatusInControl, qc.StatusOutOfControl,
	}, statuses(ev))
	assert.Empty(t, ev.Runs[2].RejectingRules)
	assert.Equal(t, []string{"22s(Ctrl1 consecutive)"}, ev.Runs[3].RejectingRules)
}

func TestZeroSDLevelNeverFires(t *testing.T) {
	levels := qc.DefaultLevels(2)
	stats := []qc.BaselineStats{
		{Level: "Ctrl1", Mean: 100, SD: 5, N: 20},
		{Level: "Ctrl2", Mean: 50, SD: 0, N: 20},
	}
	runs := []qc.QCRun{{
		ID:     qc.RunID{Label: "1", Order: 1},
		Values: map[string]*float64{"Ctrl1": f(130), "Ctrl2": f(500)},
	}}

	ev, err := Evaluate(levels, baseline.Transform(levels, runs, stats), qc.RuleSet{qc.Rule13s, qc.Rule22s, qc.RuleR4s})
	require.NoError(t, err)
	assert.Equal(t, []string{"13s(Ctrl1)"}, ev.Runs[0].RejectingRules)
	assert.Equal(t, qc.PointOK, ev.Points[1].Status)
	assert.Nil(t, ev.Points[1].Z)
}

func TestRunsAreSortedByOrder(t *testing.T) {
	runs := []qc.ZScoreRun{
		{ID: qc.RunID{Label: "third", Order: 30}, Z: map[string]*float64{"Ctrl1": f(2.5)}},
		{ID: qc.RunID{Label: "first", Order: 10}, Z: map[string]*float64{"Ctrl1": f(2.5)}},
		{ID: qc.RunID{Label: "second", Order: 20}, Z: map[string]*float64{"Ctrl1": f(0)}},
	}

	ev, err := Evaluate(qc.DefaultLevels(1), runs, qc.RuleSet{qc.Rule22s})
	require.NoError(t, err)
	assert.Equal(t, "first", ev.Runs[0].RunID.Label)
	assert.Equal(t, "second", ev.Runs[1].RunID.Label)
	assert.Equal(t, "third", ev.Runs[2].RunID.Label)
	// first and third are not consecutive once sorted
	assert.Equal(t, qc.StatusInControl, ev.Runs[2].Status)
	assert.Equal(t, "third", runs[0].ID.Label, "input must not be reordered")
}

func TestEvaluate_Idempotent(t *testing.T) {
	levels := qc.DefaultLevels(2)
	runs := zRuns(levels,
		[]*float64{f(1.5), f(-0.3)},
		[]*float64{f(2.2), nil},
		[]*float64{f(1.1), f(2.4)},
		[]*float64{f(1.8), f(-2.1)},
		[]*float64{f(3.1), f(2.6)},
	)
	rules := qc.RuleSet{qc.Rule13s, qc.Rule22s, qc.RuleR4s, qc.Rule41s, qc.Rule10x}

	first, err := Evaluate(levels, runs, rules)
	require.NoError(t, err)
	second, err := Evaluate(levels, runs, rules)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestEvaluate_InvalidRuleSet(t *testing.T) {
	_, err := Evaluate(qc.DefaultLevels(2), nil, qc.RuleSet{qc.Rule13s, "99x"})
	require.Error(t, err)
	assert.True(t, core.IsRuleSetError(err))
}

func TestEvaluate_InvalidLevels(t *testing.T) {
	_, err := Evaluate(nil, nil, qc.RuleSet{qc.Rule13s})
	assert.True(t, core.IsConfigurationError(err))

	_, err = Evaluate(qc.NamedLevels("A", "A"), nil, qc.RuleSet{qc.Rule13s})
	assert.True(t, core.IsConfigurationError(err))
}

func TestEvaluate_EmptyHistory(t *testing.T) {
	ev, err := Evaluate(qc.DefaultLevels(2), nil, qc.RuleSet{qc.Rule13s})
	require.NoError(t, err)
	assert.Empty(t, ev.Runs)
	assert.Empty(t, ev.Points)
}

func TestDuplicateRulesCountOnce(t *testing.T) {
	ev, err := Evaluate(qc.DefaultLevels(1), series(f(3.5)), qc.RuleSet{qc.Rule13s, qc.Rule13s})
	require.NoError(t, err)
	assert.Equal(t, []string{"13s(Ctrl1)"}, ev.Runs[0].RejectingRules)
}

func TestPairLabel(t *testing.T) {
	tests := []struct {
		a, b, want string
	}{
		{"Ctrl1", "Ctrl2", "Ctrl1&2"},
		{"Ctrl1", "Ctrl10", "Ctrl1&10"},
		{"Level 1", "Level 2", "Level 1&2"},
		{"Low", "High", "Low&High"},
		{"CtrlX", "Ctrl", "CtrlX&Ctrl"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PairLabel(tt.a, tt.b))
	}
}

func TestWindow(t *testing.T) {
	w := NewWindow(3)
	assert.False(t, w.Full())
	assert.Empty(t, w.Values())

	for _, v := range []float64{1, 2, 3, 4, 5} {
		w.Push(v)
	}
	assert.True(t, w.Full())
	assert.Equal(t, 3, w.Count())
	assert.Equal(t, []float64{3, 4, 5}, w.Values())
	assert.True(t, w.All(func(v float64) bool { return v > 2 }))
	assert.False(t, w.All(func(v float64) bool { return v > 3 }))

	partial := NewWindow(4)
	partial.Push(9)
	assert.False(t, partial.All(func(v float64) bool { return v > 0 }))
}
