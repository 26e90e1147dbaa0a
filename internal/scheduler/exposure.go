package scheduler

import (
	"github.com/couchcryptid/storm-data-scheduler/internal/domain"
)

// Exposure accumulates heat or cold severity for one subject and fires damage
// and audio-cue events when the value crosses its thresholds.
type Exposure struct {
	emitter
	cfg      ExposureConfig
	rng      *domain.RandomSource
	severity *domain.SeverityAccumulator
	damage   *domain.ThresholdTimer

	timeUntilEffect float64
	cueOn           bool
	invalid         bool
	totalDamage     int
}

func newExposure(em emitter, rng *domain.RandomSource, cfg ExposureConfig) (*Exposure, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeUntil := cfg.TimeUntilEffect.Sample(rng)
	severity, err := domain.NewSeverityAccumulator(1/timeUntil, 1/cfg.RecoveryTime)
	if err != nil {
		return nil, err
	}
	damage, err := domain.NewThresholdTimer(rng, domain.Fixed(cfg.DamageInterval))
	if err != nil {
		return nil, err
	}
	return &Exposure{
		emitter:         em,
		cfg:             cfg,
		rng:             rng,
		severity:        severity,
		damage:          damage,
		timeUntilEffect: timeUntil,
	}, nil
}

func (e *Exposure) ID() string              { return e.id }
func (e *Exposure) Weather() domain.Weather { return e.weather }

// Subject returns the subject the session tracks.
func (e *Exposure) Subject() string { return e.subject }

// Severity returns the current value in [0,1].
func (e *Exposure) Severity() float64 { return e.severity.Value() }

// Multiplier returns the gain multiplier applied on the last fixed tick.
func (e *Exposure) Multiplier() float64 { return e.severity.Multiplier() }

// TimeUntilEffect returns the sampled seconds from zero to full severity.
func (e *Exposure) TimeUntilEffect() float64 { return e.timeUntilEffect }

// CueActive reports whether the audio cue is currently on.
func (e *Exposure) CueActive() bool { return e.cueOn }

// TotalDamage returns the damage dealt since the session started.
func (e *Exposure) TotalDamage() int { return e.totalDamage }

func (e *Exposure) State() SessionState {
	phase := "normal"
	switch {
	case e.invalid:
		phase = "invalid"
	case e.severity.Value() >= e.cfg.DamageThreshold:
		phase = "damaging"
	case e.cueOn:
		phase = "cue"
	}
	return SessionState{
		ID:       e.id,
		Weather:  e.weather,
		Subject:  e.subject,
		Phase:    phase,
		Severity: e.severity.Value(),
		Values: map[string]float64{
			"multiplier":        e.severity.Multiplier(),
			"gain_rate":         e.severity.GainRate(),
			"decay_rate":        e.severity.DecayRate(),
			"time_until_effect": e.timeUntilEffect,
			"total_damage":      float64(e.totalDamage),
		},
	}
}

func (e *Exposure) tick(*tickContext) {}

func (e *Exposure) fixedTick(tc *tickContext) {
	st, ok := tc.input.Subjects[e.subject]
	if !ok {
		// Subjects the host stopped reporting recover as if outside the zone.
		st = SubjectState{}
	}
	if st.Invalid {
		e.invalidate()
		return
	}
	e.invalid = false

	m := 1.0
	if st.Paused {
		m = e.cfg.PausedMultiplier
	}
	_ = e.severity.SetMultiplier(m) // validated with the config
	e.severity.Update(tc.dt, st.InZone)
	e.observe(tc.dt)
}

// boost applies an instantaneous severity change, such as a passing chill wave.
func (e *Exposure) boost(delta float64) {
	if e.invalid {
		return
	}
	e.severity.Add(delta)
}

func (e *Exposure) stop() {
	e.damage.Reset()
}

func (e *Exposure) invalidate() {
	if e.invalid {
		return
	}
	e.invalid = true
	e.severity.Reset()
	e.damage.Reset()
	e.event(domain.EventExposureReset, 0, nil)
	if e.cueOn {
		e.cueOn = false
		e.event(domain.EventExposureCueOff, 0, nil)
	}
}

// observe compares the value against the thresholds. Damage is gated by its
// own cooldown so crossing the threshold does not fire every tick.
func (e *Exposure) observe(dt float64) {
	v := e.severity.Value()

	if e.cfg.CueThreshold > 0 {
		switch {
		case !e.cueOn && v >= e.cfg.CueThreshold:
			e.cueOn = true
			e.event(domain.EventExposureCueOn, v, nil)
		case e.cueOn && v < e.cfg.CueThreshold:
			e.cueOn = false
			e.event(domain.EventExposureCueOff, v, nil)
		}
	}

	if v < e.cfg.DamageThreshold {
		e.damage.Reset()
		return
	}
	if !e.damage.Tick(dt) {
		return
	}
	amount := e.rng.NextInt(e.cfg.DamageMin, e.cfg.DamageMax+1)
	e.totalDamage += amount
	e.event(domain.EventExposureDamage, float64(amount), map[string]float64{
		"severity": v,
	})
}
