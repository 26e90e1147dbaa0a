package scheduler

import (
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/couchcryptid/storm-data-scheduler/internal/domain"
)

// BlizzardPhase is the state of a blizzard session.
type BlizzardPhase int

const (
	BlizzardIdle BlizzardPhase = iota
	BlizzardWindChanging
	BlizzardWaveActive
)

func (p BlizzardPhase) String() string {
	switch p {
	case BlizzardIdle:
		return "idle"
	case BlizzardWindChanging:
		return "wind_changing"
	case BlizzardWaveActive:
		return "wave_active"
	}
	return "unknown"
}

// Blizzard alternates between idle time, wind changes and chill waves.
// Only one busy action runs at a time, and no timer advances while it runs.
type Blizzard struct {
	emitter
	cfg BlizzardConfig
	rng *domain.RandomSource

	windTimer *domain.ThresholdTimer
	waveTimer *domain.ThresholdTimer
	windSeq   domain.Sequence
	waveSeq   domain.Sequence

	isWindChangeActive bool
	isChillWaveActive  bool

	windDirection float64
	windForce     float64
	fromDirection float64
	toDirection   float64
	fromForce     float64
	toForce       float64

	gust  *perlin.Perlin
	waves int
}

func newBlizzard(em emitter, rng *domain.RandomSource, cfg BlizzardConfig) (*Blizzard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	windTimer, err := domain.NewThresholdTimer(rng.Derive("wind"), cfg.WindChangeInterval)
	if err != nil {
		return nil, err
	}
	waveTimer, err := domain.NewThresholdTimer(rng.Derive("wave"), cfg.WaveInterval)
	if err != nil {
		return nil, err
	}
	gustSeed := int64(rng.Derive("gust").NextInt(1, math.MaxInt32))
	return &Blizzard{
		emitter:       em,
		cfg:           cfg,
		rng:           rng,
		windTimer:     windTimer,
		waveTimer:     waveTimer,
		windDirection: rng.NextInRange(0, 360),
		windForce:     cfg.WindForce.Sample(rng),
		gust:          perlin.NewPerlin(2, 2, 3, gustSeed),
	}, nil
}

func (b *Blizzard) ID() string              { return b.id }
func (b *Blizzard) Weather() domain.Weather { return domain.WeatherBlizzard }

// Phase returns the current state of the session.
func (b *Blizzard) Phase() BlizzardPhase {
	switch {
	case b.isWindChangeActive:
		return BlizzardWindChanging
	case b.isChillWaveActive:
		return BlizzardWaveActive
	}
	return BlizzardIdle
}

// WindDirection returns the wind heading in degrees [0,360).
func (b *Blizzard) WindDirection() float64 { return b.windDirection }

// BaseWindForce returns the wind force without gusts.
func (b *Blizzard) BaseWindForce() float64 { return b.windForce }

// WindForce returns the wind force modulated by gust noise at the current global time.
func (b *Blizzard) WindForce() float64 {
	if b.cfg.GustStrength == 0 {
		return b.windForce
	}
	n := b.gust.Noise1D(*b.now * b.cfg.GustFrequency)
	return math.Max(0, b.windForce*(1+b.cfg.GustStrength*n))
}

// WindChangeTimer exposes the wind-change cadence for inspection.
func (b *Blizzard) WindChangeTimer() *domain.ThresholdTimer { return b.windTimer }

// WaveTimer exposes the chill-wave cadence for inspection.
func (b *Blizzard) WaveTimer() *domain.ThresholdTimer { return b.waveTimer }

func (b *Blizzard) State() SessionState {
	return SessionState{
		ID:      b.id,
		Weather: domain.WeatherBlizzard,
		Phase:   b.Phase().String(),
		Values: map[string]float64{
			"wind_direction": b.windDirection,
			"wind_force":     b.WindForce(),
			"wind_timer":     b.windTimer.Remaining(),
			"wave_timer":     b.waveTimer.Remaining(),
			"wave_progress":  b.waveSeq.Progress(),
			"waves":          float64(b.waves),
		},
	}
}

func (b *Blizzard) tick(tc *tickContext) {
	switch {
	case b.isWindChangeActive:
		b.windSeq.Step(tc.dt)
	case b.isChillWaveActive:
		b.chillSubjects(tc)
		b.waveSeq.Step(tc.dt)
	default:
		if b.windTimer.Tick(tc.dt) {
			b.startWindChange()
			return
		}
		if b.waveTimer.Tick(tc.dt) {
			b.startWave()
		}
	}
}

func (b *Blizzard) fixedTick(*tickContext) {}

func (b *Blizzard) stop() {
	b.windSeq.Stop()
	b.waveSeq.Stop()
	b.isWindChangeActive = false
	b.isChillWaveActive = false
}

func (b *Blizzard) startWindChange() {
	b.isWindChangeActive = true
	b.fromDirection = b.windDirection
	b.fromForce = b.windForce
	b.toDirection = b.rng.NextInRange(0, 360)
	b.toForce = b.cfg.WindForce.Sample(b.rng)
	b.event(domain.EventWindChangeStarted, b.toDirection, map[string]float64{
		"from_direction": b.fromDirection,
		"to_direction":   b.toDirection,
		"to_force":       b.toForce,
		"duration":       b.cfg.WindChangeDuration,
	})
	b.windSeq.Start(b.cfg.WindChangeDuration, b.stepWind, b.finishWindChange)
}

func (b *Blizzard) stepWind(progress float64) {
	b.windDirection = lerpAngle(b.fromDirection, b.toDirection, progress)
	b.windForce = b.fromForce + (b.toForce-b.fromForce)*progress
}

func (b *Blizzard) finishWindChange() {
	b.isWindChangeActive = false
	b.windDirection = b.toDirection
	b.windForce = b.toForce
	b.event(domain.EventWindChangeCompleted, b.windDirection, map[string]float64{
		"force": b.windForce,
	})
}

func (b *Blizzard) startWave() {
	b.isChillWaveActive = true
	b.waves++
	b.event(domain.EventChillWaveStarted, float64(b.waves), map[string]float64{
		"direction": b.windDirection,
		"duration":  b.cfg.WaveDuration,
	})
	b.waveSeq.Start(b.cfg.WaveDuration, nil, b.finishWave)
}

func (b *Blizzard) finishWave() {
	b.isChillWaveActive = false
	b.event(domain.EventChillWaveCompleted, float64(b.waves), nil)
}

// chillSubjects spreads WaveChillBoost over the wave for subjects in zone.
func (b *Blizzard) chillSubjects(tc *tickContext) {
	if tc.chill == nil || b.cfg.WaveChillBoost == 0 || b.cfg.WaveDuration <= 0 || !(tc.dt > 0) {
		return
	}
	// The final step of a wave only covers what is left of it.
	dt := math.Min(tc.dt, b.waveSeq.Remaining())
	if dt <= 0 {
		return
	}
	delta := b.cfg.WaveChillBoost * dt / b.cfg.WaveDuration
	for subject, st := range tc.input.Subjects {
		if st.InZone && !st.Invalid {
			tc.chill(subject, delta)
		}
	}
}

// lerpAngle interpolates along the shortest arc and returns degrees in [0,360).
func lerpAngle(from, to, t float64) float64 {
	delta := math.Mod(to-from+540, 360) - 180
	return normalizeDegrees(from + delta*t)
}

func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}
