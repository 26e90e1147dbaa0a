package domain

import "math"

// SeverityAccumulator is a bounded [0,1] exposure value with separate gain and
// decay rates. Gain is scaled by an externally settable multiplier; decay is not.
// Threshold checks belong to the caller.
type SeverityAccumulator struct {
	value      float64
	gain       float64
	decay      float64
	multiplier float64
}

// NewSeverityAccumulator validates the rates and starts at zero with multiplier 1.
func NewSeverityAccumulator(gain, decay float64) (*SeverityAccumulator, error) {
	if !(gain >= 0) || math.IsInf(gain, 0) {
		return nil, configErrorf("gain_rate", "%g must be a non-negative number", gain)
	}
	if !(decay >= 0) || math.IsInf(decay, 0) {
		return nil, configErrorf("decay_rate", "%g must be a non-negative number", decay)
	}
	return &SeverityAccumulator{gain: gain, decay: decay, multiplier: 1}, nil
}

// Update advances the value by dt seconds. Negative dt is treated as zero.
func (s *SeverityAccumulator) Update(dt float64, inZone bool) {
	if !(dt > 0) {
		return
	}
	delta := -dt * s.decay
	if inZone {
		delta = dt * s.gain * s.multiplier
	}
	s.Add(delta)
}

// Add applies an instantaneous change, clamped to [0,1].
func (s *SeverityAccumulator) Add(delta float64) {
	if math.IsNaN(delta) {
		return
	}
	s.value = clamp01(s.value + delta)
}

// SetMultiplier changes gain scaling. Negative values are rejected.
func (s *SeverityAccumulator) SetMultiplier(m float64) error {
	if !(m >= 0) || math.IsInf(m, 0) {
		return configErrorf("multiplier", "%g must be a non-negative number", m)
	}
	s.multiplier = m
	return nil
}

// Reset forces the value to zero and restores multiplier 1.
func (s *SeverityAccumulator) Reset() {
	s.value = 0
	s.multiplier = 1
}

func (s *SeverityAccumulator) Value() float64      { return s.value }
func (s *SeverityAccumulator) Multiplier() float64 { return s.multiplier }
func (s *SeverityAccumulator) GainRate() float64   { return s.gain }
func (s *SeverityAccumulator) DecayRate() float64  { return s.decay }

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
