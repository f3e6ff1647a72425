package agent

import "time"

// Accumulator measures backend calls and keeps the running total.
type Accumulator struct {
	now   func() time.Time
	total time.Duration
}

// NewAccumulator creates an accumulator. A nil clock means time.Now.
func NewAccumulator(now func() time.Time) *Accumulator {
	if now == nil {
		now = time.Now
	}
	return &Accumulator{now: now}
}

// Measure runs fn, adds its wall-clock duration to the total and returns it.
func (a *Accumulator) Measure(fn func()) time.Duration {
	start := a.now()
	fn()
	elapsed := a.now().Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	a.total += elapsed
	return elapsed
}

// Total returns the accumulated duration.
func (a *Accumulator) Total() time.Duration {
	return a.total
}
