package westgard

import "math"

func beyond2(z float64) bool { return z > 2 }

func below2(z float64) bool { return z < -2 }

func rule12s(z float64) bool {
	return math.Abs(z) > 2
}

func rule13s(z float64) bool {
	return math.Abs(z) > 3
}

// rule22s: both values beyond 2 SD on the same side
func rule22s(z1, z2 float64) bool {
	return (beyond2(z1) && beyond2(z2)) || (below2(z1) && below2(z2))
}

// ruleR4s: opposite sides beyond 2 SD, or a range wider than 4 SD
func ruleR4s(z1, z2 float64) bool {
	return (beyond2(z1) && below2(z2)) || (below2(z1) && beyond2(z2)) || math.Abs(z1-z2) > 4
}

// rule41s: four consecutive values beyond 1 SD on the same side
func rule41s(w *Window) bool {
	return w.All(func(z float64) bool { return z > 1 }) || w.All(func(z float64) bool { return z < -1 })
}

// rule10x: ten consecutive values on the same side of the mean
func rule10x(w *Window) bool {
	return w.All(func(z float64) bool { return z > 0 }) || w.All(func(z float64) bool { return z < 0 })
}
