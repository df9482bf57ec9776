package westgard

// Window keeps the most recent non-missing z-scores of one control level in a
// fixed-capacity ring.
type Window struct {
	capacity int
	values   []float64
	idx      int
	count    int
}

// NewWindow creates a window holding at most capacity values
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = 1
	}
	return &Window{
		capacity: capacity,
		values:   make([]float64, capacity),
	}
}

// Push appends v, evicting the oldest value once full
func (w *Window) Push(v float64) {
	w.values[w.idx] = v
	w.idx = (w.idx + 1) % w.capacity
	if w.count < w.capacity {
		w.count++
	}
}

// Full reports whether the window holds capacity values
func (w *Window) Full() bool {
	return w.count == w.capacity
}

// Count returns how many values the window holds
func (w *Window) Count() int {
	return w.count
}

// Values returns the held values oldest first
func (w *Window) Values() []float64 {
	out := make([]float64, 0, w.count)
	start := (w.idx - w.count + w.capacity) % w.capacity
	for i := 0; i < w.count; i++ {
		out = append(out, w.values[(start+i)%w.capacity])
	}
	return out
}

// All reports whether the window is full and every value satisfies pred
func (w *Window) All(pred func(float64) bool) bool {
	if !w.Full() {
		return false
	}
	for _, v := range w.values {
		if !pred(v) {
			return false
		}
	}
	return true
}

// levelHistory is the rolling state of one level during a pass. The windows
// hold non-missing values only; previous is the z of the preceding run and is
// nil when that run had no value for the level.
type levelHistory struct {
	last4    *Window
	last10   *Window
	previous *float64
}

func newLevelHistory() *levelHistory {
	return &levelHistory{
		last4:  NewWindow(4),
		last10: NewWindow(10),
	}
}

func (h *levelHistory) push(z float64) {
	h.last4.Push(z)
	h.last10.Push(z)
}
