package baseline

import (
	"math"

	"goiqc/domain/qc"
)

// ZScore standardizes one measurement. It returns nil when the measurement is
// missing or non-finite, or the level's SD is zero or undefined.
func ZScore(raw *float64, st qc.BaselineStats) *float64 {
	if raw == nil || st.Degenerate() || math.IsNaN(st.Mean) || math.IsNaN(*raw) || math.IsInf(*raw, 0) {
		return nil
	}
	z := (*raw - st.Mean) / st.SD
	return &z
}

// Transform converts runs into z-score runs, ordered by run order. Levels with
// no statistics get nil z-scores.
func Transform(levels []qc.ControlLevel, runs []qc.QCRun, all []qc.BaselineStats) []qc.ZScoreRun {
	byLevel := Lookup(all)
	sorted := qc.SortRuns(runs)

	out := make([]qc.ZScoreRun, len(sorted))
	for i, run := range sorted {
		z := make(map[string]*float64, len(levels))
		for _, level := range levels {
			st, ok := byLevel[level.Name]
			if !ok {
				z[level.Name] = nil
				continue
			}
			z[level.Name] = ZScore(run.Value(level.Name), st)
		}
		out[i] = qc.ZScoreRun{ID: run.ID, Z: z}
	}
	return out
}
