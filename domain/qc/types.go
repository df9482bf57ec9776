package qc

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ControlLevel identifies one QC material level within an analyte.
// Position is 1-based and drives level-pair comparisons.
type ControlLevel struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// DefaultLevels returns Ctrl1..CtrlN
func DefaultLevels(n int) []ControlLevel {
	levels := make([]ControlLevel, n)
	for i := range levels {
		levels[i] = ControlLevel{Name: fmt.Sprintf("Ctrl%d", i+1), Position: i + 1}
	}
	return levels
}

// NamedLevels builds levels from names in position order
func NamedLevels(names ...string) []ControlLevel {
	levels := make([]ControlLevel, len(names))
	for i, name := range names {
		levels[i] = ControlLevel{Name: strings.TrimSpace(name), Position: i + 1}
	}
	return levels
}

// SortLevels returns a copy of levels ordered by position
func SortLevels(levels []ControlLevel) []ControlLevel {
	out := append([]ControlLevel(nil), levels...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// ValidateLevels checks names are non-empty and unique and positions distinct
func ValidateLevels(levels []ControlLevel) error {
	if len(levels) == 0 {
		return fmt.Errorf("at least one control level is required")
	}
	names := make(map[string]bool, len(levels))
	positions := make(map[int]bool, len(levels))
	for _, l := range levels {
		if l.Name == "" {
			return fmt.Errorf("control level at position %d has no name", l.Position)
		}
		if names[l.Name] {
			return fmt.Errorf("duplicate control level name %q", l.Name)
		}
		if positions[l.Position] {
			return fmt.Errorf("duplicate control level position %d", l.Position)
		}
		names[l.Name] = true
		positions[l.Position] = true
	}
	return nil
}

// BaselineStats is the mean/SD of one control level's baseline sample set.
// SD is NaN when fewer than two samples were available.
type BaselineStats struct {
	Level string  `json:"level"`
	Mean  float64 `json:"mean"`
	SD    float64 `json:"sd"`
	N     int     `json:"n"`
}

// Degenerate reports whether z-scores for this level are undefined
func (b BaselineStats) Degenerate() bool {
	return !(b.SD > 0)
}

type baselineStatsJSON struct {
	Level string   `json:"level"`
	Mean  *float64 `json:"mean"`
	SD    *float64 `json:"sd"`
	N     int      `json:"n"`
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// MarshalJSON encodes NaN mean/SD as null
func (b BaselineStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(baselineStatsJSON{
		Level: b.Level,
		Mean:  finiteOrNil(b.Mean),
		SD:    finiteOrNil(b.SD),
		N:     b.N,
	})
}

// UnmarshalJSON decodes null mean/SD as NaN
func (b *BaselineStats) UnmarshalJSON(data []byte) error {
	var raw baselineStatsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Level = raw.Level
	b.N = raw.N
	b.Mean = math.NaN()
	b.SD = math.NaN()
	if raw.Mean != nil {
		b.Mean = *raw.Mean
	}
	if raw.SD != nil {
		b.SD = *raw.SD
	}
	return nil
}

// RunID identifies a run; Order is the total order the evaluator windows over
type RunID struct {
	Label string `json:"label"`
	Order int64  `json:"order"`
}

func (id RunID) String() string {
	return id.Label
}

// QCRun is one occasion on which the control levels were measured.
// A nil value means the level was not measured.
type QCRun struct {
	ID     RunID               `json:"id"`
	Values map[string]*float64 `json:"values"`
}

// Value returns the measurement for a level, nil when missing
func (r QCRun) Value(level string) *float64 {
	if r.Values == nil {
		return nil
	}
	return r.Values[level]
}

// ZScoreRun holds the standardized values of one run
type ZScoreRun struct {
	ID RunID               `json:"id"`
	Z  map[string]*float64 `json:"z"`
}

// Value returns the z-score for a level, nil when undefined
func (r ZScoreRun) Value(level string) *float64 {
	if r.Z == nil {
		return nil
	}
	return r.Z[level]
}

// SortRuns orders runs by RunID.Order, keeping input order for ties
func SortRuns(runs []QCRun) []QCRun {
	out := append([]QCRun(nil), runs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID.Order < out[j].ID.Order })
	return out
}

// SortZScoreRuns orders z-score runs by RunID.Order, keeping input order for ties
func SortZScoreRuns(runs []ZScoreRun) []ZScoreRun {
	out := append([]ZScoreRun(nil), runs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID.Order < out[j].ID.Order })
	return out
}

// Float returns a pointer to v, for building run values
func Float(v float64) *float64 {
	return &v
}
