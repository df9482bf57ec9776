package baseline

import (
	"fmt"
	"math"

	"goiqc/domain/qc"
)

// limitMultiples are the Levey-Jennings reference lines, in display order
var limitMultiples = []float64{0, 1, -1, 2, -2, 3, -3, 3.5, -3.5}

// ControlLimits returns the Levey-Jennings lines (mean, ±1/2/3 SD, ±3.5 SD)
// for a level. A degenerate SD yields only the mean line; an undefined mean
// yields nothing.
func ControlLimits(st qc.BaselineStats) []qc.Limit {
	if math.IsNaN(st.Mean) {
		return nil
	}
	if st.Degenerate() {
		return []qc.Limit{{Level: st.Level, Label: "Mean", K: 0, Value: st.Mean}}
	}
	out := make([]qc.Limit, 0, len(limitMultiples))
	for _, k := range limitMultiples {
		out = append(out, qc.Limit{Level: st.Level, Label: limitLabel(k), K: k, Value: st.Mean + k*st.SD})
	}
	return out
}

// AllControlLimits concatenates the lines of every level
func AllControlLimits(all []qc.BaselineStats) []qc.Limit {
	var out []qc.Limit
	for _, st := range all {
		out = append(out, ControlLimits(st)...)
	}
	return out
}

func limitLabel(k float64) string {
	if k == 0 {
		return "Mean"
	}
	return fmt.Sprintf("%+gSD", k)
}
