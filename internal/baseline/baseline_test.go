package baseline

import (
	"encoding/json"
	"math"
	"testing"

	"goiqc/domain/core"
	"goiqc/domain/qc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_SampleStandardDeviation(t *testing.T) {
	st := Compute("Ctrl1", []float64{95, 100, 105})

	assert.Equal(t, "Ctrl1", st.Level)
	assert.Equal(t, 3, st.N)
	assert.InDelta(t, 100.0, st.Mean, 1e-12)
	assert.InDelta(t, 5.0, st.SD, 1e-12)
	assert.False(t, st.Degenerate())
}

func TestCompute_TooFewSamples(t *testing.T) {
	one := Compute("Ctrl1", []float64{42})
	assert.Equal(t, 1, one.N)
	assert.Equal(t, 42.0, one.Mean)
	assert.True(t, math.IsNaN(one.SD))
	assert.True(t, one.Degenerate())

	none := Compute("Ctrl1", nil)
	assert.Equal(t, 0, none.N)
	assert.True(t, math.IsNaN(none.Mean))
	assert.True(t, none.Degenerate())
}

func TestCompute_IgnoresNaN(t *testing.T) {
	st := Compute("Ctrl1", []float64{95, math.NaN(), 105})
	assert.Equal(t, 2, st.N)
	assert.InDelta(t, 100.0, st.Mean, 1e-12)
}

func TestCompute_ZeroSpread(t *testing.T) {
	st := Compute("Ctrl1", []float64{7, 7, 7})
	assert.Equal(t, 0.0, st.SD)
	assert.True(t, st.Degenerate())
	assert.Nil(t, ZScore(qc.Float(7), st))
}

func TestComputeAll_Strict(t *testing.T) {
	levels := qc.DefaultLevels(2)
	samples := map[string][]float64{
		"Ctrl1": {1, 2, 3},
		"Ctrl2": {4},
	}

	all, err := ComputeAll(levels, samples, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[1].Degenerate())

	_, err = ComputeAll(levels, samples, true)
	require.Error(t, err)
	assert.True(t, core.IsInsufficientBaselineError(err))
}

func TestParseSamples(t *testing.T) {
	got, err := ParseSamples("Ctrl1", []string{"1.5", " ", "", "2"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2}, got)

	_, err = ParseSamples("Ctrl1", []string{"1.5", "abc"})
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "sample 2")
}

func TestZScore_Properties(t *testing.T) {
	st := qc.BaselineStats{Level: "Ctrl1", Mean: 100, SD: 5, N: 20}

	z := ZScore(qc.Float(st.Mean), st)
	require.NotNil(t, z)
	assert.Equal(t, 0.0, *z)

	for _, k := range []float64{-3.5, -2, -0.25, 1, 2.4, 7} {
		z := ZScore(qc.Float(st.Mean+k*st.SD), st)
		require.NotNil(t, z)
		assert.InDelta(t, k, *z, 1e-9, "k=%v", k)
	}

	assert.Nil(t, ZScore(nil, st))
	assert.Nil(t, ZScore(qc.Float(1), qc.BaselineStats{Mean: 1, SD: math.NaN()}))
	assert.Nil(t, ZScore(qc.Float(1), qc.BaselineStats{Mean: 1, SD: -1}))
}

func TestTransform_SortsAndKeepsMissing(t *testing.T) {
	levels := qc.DefaultLevels(2)
	stats := []qc.BaselineStats{
		{Level: "Ctrl1", Mean: 100, SD: 5, N: 20},
		{Level: "Ctrl2", Mean: 200, SD: 0, N: 20},
	}
	runs := []qc.QCRun{
		{ID: qc.RunID{Label: "r2", Order: 2}, Values: map[string]*float64{"Ctrl1": qc.Float(110)}},
		{ID: qc.RunID{Label: "r1", Order: 1}, Values: map[string]*float64{"Ctrl1": nil, "Ctrl2": qc.Float(200)}},
	}

	z := Transform(levels, runs, stats)
	require.Len(t, z, 2)
	assert.Equal(t, "r1", z[0].ID.Label)
	assert.Nil(t, z[0].Value("Ctrl1"))
	assert.Nil(t, z[0].Value("Ctrl2"), "zero SD gives no z-score")
	require.NotNil(t, z[1].Value("Ctrl1"))
	assert.InDelta(t, 2.0, *z[1].Value("Ctrl1"), 1e-12)

	// input untouched
	assert.Equal(t, "r2", runs[0].ID.Label)
}

func TestControlLimits(t *testing.T) {
	limits := ControlLimits(qc.BaselineStats{Level: "Ctrl1", Mean: 100, SD: 5, N: 20})
	require.Len(t, limits, 9)
	assert.Equal(t, "Mean", limits[0].Label)
	assert.Equal(t, "+1SD", limits[1].Label)
	assert.Equal(t, "-3.5SD", limits[8].Label)
	assert.InDelta(t, 82.5, limits[8].Value, 1e-12)

	assert.Len(t, ControlLimits(qc.BaselineStats{Level: "Ctrl1", Mean: 100, SD: 0}), 1)
	assert.Empty(t, ControlLimits(Compute("Ctrl1", nil)))
}

func TestBaselineStats_JSONNaN(t *testing.T) {
	st := Compute("Ctrl1", []float64{3})
	data, err := json.Marshal(st)
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":"Ctrl1","mean":3,"sd":null,"n":1}`, string(data))

	var back qc.BaselineStats
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 3.0, back.Mean)
	assert.True(t, math.IsNaN(back.SD))
}
