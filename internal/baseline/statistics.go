// Package baseline derives per-level reference statistics from baseline
// (calibration) samples and standardizes daily measurements against them.
package baseline

import (
	"math"
	"strconv"
	"strings"

	"goiqc/domain/core"
	"goiqc/domain/qc"

	"github.com/montanaflynn/stats"
)

// Compute returns the arithmetic mean and sample standard deviation (n-1) of
// one level's baseline samples. NaN samples are ignored. With fewer than two
// samples SD is NaN, which downstream treats as "no z-scores for this level".
func Compute(level string, samples []float64) qc.BaselineStats {
	data := make(stats.Float64Data, 0, len(samples))
	for _, v := range samples {
		if !math.IsNaN(v) {
			data = append(data, v)
		}
	}

	result := qc.BaselineStats{Level: level, Mean: math.NaN(), SD: math.NaN(), N: len(data)}
	if len(data) == 0 {
		return result
	}

	mean, err := stats.Mean(data)
	if err != nil {
		return result
	}
	result.Mean = mean
	if len(data) < 2 {
		return result
	}

	sd, err := stats.StandardDeviationSample(data)
	if err != nil {
		return result
	}
	result.SD = sd
	return result
}

// ComputeAll derives statistics for every level in position order. With strict
// set, a level with fewer than two samples fails with ErrInsufficientBaseline
// instead of degrading.
func ComputeAll(levels []qc.ControlLevel, samples map[string][]float64, strict bool) ([]qc.BaselineStats, error) {
	out := make([]qc.BaselineStats, 0, len(levels))
	for _, level := range qc.SortLevels(levels) {
		st := Compute(level.Name, samples[level.Name])
		if strict && st.N < 2 {
			return nil, core.NewInsufficientBaselineError(level.Name, st.N)
		}
		out = append(out, st)
	}
	return out, nil
}

// ParseSamples converts raw baseline cells into numbers. Blank cells are
// skipped; anything else that is not numeric fails with ErrInvalidConfiguration.
func ParseSamples(level string, cells []string) ([]float64, error) {
	out := make([]float64, 0, len(cells))
	for i, cell := range cells {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, core.NewConfigurationError(
				"baseline."+level, "sample "+strconv.Itoa(i+1)+" is not numeric: "+strconv.Quote(cell))
		}
		out = append(out, v)
	}
	return out, nil
}

// Lookup indexes statistics by level name
func Lookup(all []qc.BaselineStats) map[string]qc.BaselineStats {
	m := make(map[string]qc.BaselineStats, len(all))
	for _, st := range all {
		m[st.Level] = st
	}
	return m
}
