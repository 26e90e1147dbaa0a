package domain

import "math"

// Range is a closed interval of seconds used to re-roll timer targets.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Fixed returns a degenerate range that always samples v.
func Fixed(v float64) Range { return Range{Min: v, Max: v} }

// Validate rejects inverted, non-positive, and non-finite ranges.
func (r Range) Validate(field string) error {
	switch {
	case math.IsNaN(r.Min) || math.IsNaN(r.Max):
		return configErrorf(field, "range bounds must be numbers")
	case math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0):
		return configErrorf(field, "range bounds must be finite")
	case r.Min > r.Max:
		return configErrorf(field, "min %g exceeds max %g", r.Min, r.Max)
	case r.Min <= 0:
		return configErrorf(field, "min %g must be positive", r.Min)
	}
	return nil
}

// Sample draws a value from the range. Degenerate ranges consume no randomness.
func (r Range) Sample(rng *RandomSource) float64 {
	if r.Max <= r.Min {
		return r.Min
	}
	return rng.NextInRange(r.Min, r.Max)
}

// ThresholdTimer accumulates time and fires once elapsed reaches target,
// then re-rolls target from its range.
//
// A single Tick fires at most once: time beyond the target is discarded rather
// than carried into the next interval.
type ThresholdTimer struct {
	elapsed float64
	target  float64
	reroll  Range
	rng     *RandomSource
}

// NewThresholdTimer creates a timer whose first target is drawn from reroll.
func NewThresholdTimer(rng *RandomSource, reroll Range) (*ThresholdTimer, error) {
	if err := reroll.Validate("reroll_range"); err != nil {
		return nil, err
	}
	return &ThresholdTimer{target: reroll.Sample(rng), reroll: reroll, rng: rng}, nil
}

// NewThresholdTimerWithTarget creates a timer with an explicit first target.
func NewThresholdTimerWithTarget(rng *RandomSource, target float64, reroll Range) (*ThresholdTimer, error) {
	if err := reroll.Validate("reroll_range"); err != nil {
		return nil, err
	}
	if !(target > 0) {
		return nil, configErrorf("target", "%g must be positive", target)
	}
	return &ThresholdTimer{target: target, reroll: reroll, rng: rng}, nil
}

// Tick adds dt and reports whether the timer fired. Non-positive dt is ignored.
func (t *ThresholdTimer) Tick(dt float64) bool {
	if dt > 0 {
		t.elapsed += dt
	}
	if t.elapsed < t.target {
		return false
	}
	t.elapsed = 0
	t.target = t.reroll.Sample(t.rng)
	return true
}

// Reset zeroes elapsed time without re-rolling the target.
func (t *ThresholdTimer) Reset() { t.elapsed = 0 }

func (t *ThresholdTimer) Elapsed() float64 { return t.elapsed }
func (t *ThresholdTimer) Target() float64  { return t.target }
func (t *ThresholdTimer) Range() Range     { return t.reroll }

// Remaining returns the time left before the next fire.
func (t *ThresholdTimer) Remaining() float64 {
	return math.Max(0, t.target-t.elapsed)
}
