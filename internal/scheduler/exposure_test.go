package scheduler

import (
	"testing"

	"github.com/couchcryptid/storm-data-scheduler/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coldConfig(timeUntil float64) ExposureConfig {
	cfg := DefaultColdConfig()
	cfg.TimeUntilEffect = domain.Fixed(timeUntil)
	cfg.RecoveryTime = timeUntil
	return cfg
}

func TestExposure_GainAndDecay(t *testing.T) {
	s, _ := newRecordedScheduler(t, 1)
	e, err := s.StartExposure("p1", domain.WeatherCold, coldConfig(17))
	require.NoError(t, err)

	s.FixedTick(17, inZone("p1"))
	assert.Equal(t, 1.0, e.Severity())
	assert.InDelta(t, 1.0/17, e.State().Values["gain_rate"], 1e-12)
	assert.InDelta(t, 1.0/17, e.State().Values["decay_rate"], 1e-12)

	s.FixedTick(17, TickInput{Subjects: map[string]SubjectState{"p1": {}}})
	assert.Equal(t, 0.0, e.Severity())
}

func TestExposure_DamageCooldown(t *testing.T) {
	s, rec := newRecordedScheduler(t, 2)
	e, err := s.StartExposure("p1", domain.WeatherCold, coldConfig(8))
	require.NoError(t, err)

	// gain 1/8 at dt 0.5 reaches the 0.5 frostbite threshold on the eighth tick.
	fixedTickN(s, 8, 0.5, inZone("p1"))
	require.Equal(t, 0.5, e.Severity())
	assert.Empty(t, rec.ofKind(domain.EventExposureDamage))

	s.FixedTick(0.5, inZone("p1"))
	require.Len(t, rec.ofKind(domain.EventExposureDamage), 1)

	// Half an interval later: still on cooldown.
	s.FixedTick(0.5, inZone("p1"))
	assert.Len(t, rec.ofKind(domain.EventExposureDamage), 1)

	s.FixedTick(0.5, inZone("p1"))
	damage := rec.ofKind(domain.EventExposureDamage)
	require.Len(t, damage, 2)
	for _, d := range damage {
		assert.GreaterOrEqual(t, d.Value, 1.0)
		assert.LessOrEqual(t, d.Value, 3.0)
		assert.Equal(t, "p1", d.Subject)
	}
	assert.Equal(t, int(damage[0].Value+damage[1].Value), e.TotalDamage())
}

func TestExposure_DamageCooldownResetsBelowThreshold(t *testing.T) {
	s, rec := newRecordedScheduler(t, 3)
	e, err := s.StartExposure("p1", domain.WeatherCold, coldConfig(8))
	require.NoError(t, err)

	fixedTickN(s, 9, 0.5, inZone("p1"))
	require.Len(t, rec.ofKind(domain.EventExposureDamage), 1)

	// Dip below the threshold, then climb back: the cooldown starts over.
	out := TickInput{Subjects: map[string]SubjectState{"p1": {}}}
	fixedTickN(s, 2, 0.5, out)
	require.Less(t, e.Severity(), 0.5)

	s.FixedTick(0.5, inZone("p1"))
	require.GreaterOrEqual(t, e.Severity(), 0.5)
	assert.Len(t, rec.ofKind(domain.EventExposureDamage), 1)

	s.FixedTick(0.5, inZone("p1"))
	assert.Len(t, rec.ofKind(domain.EventExposureDamage), 2)
}

func TestExposure_PausedMultiplier(t *testing.T) {
	s, _ := newRecordedScheduler(t, 4)
	e, err := s.StartExposure("p1", domain.WeatherCold, coldConfig(10))
	require.NoError(t, err)

	paused := TickInput{Subjects: map[string]SubjectState{"p1": {InZone: true, Paused: true}}}
	s.FixedTick(1, paused)
	assert.Equal(t, PausedMultiplier, e.Multiplier())
	assert.InDelta(t, 0.033, e.Severity(), 1e-12)

	s.FixedTick(1, inZone("p1"))
	assert.Equal(t, 1.0, e.Multiplier())
	assert.InDelta(t, 0.133, e.Severity(), 1e-12)
}

func TestExposure_InvalidSubjectResets(t *testing.T) {
	s, rec := newRecordedScheduler(t, 5)
	cfg := DefaultHeatConfig()
	cfg.TimeUntilEffect = domain.Fixed(10)
	e, err := s.StartExposure("p1", domain.WeatherHeatwave, cfg)
	require.NoError(t, err)

	paused := TickInput{Subjects: map[string]SubjectState{"p1": {InZone: true, Paused: true}}}
	fixedTickN(s, 5, 1, paused)
	require.Greater(t, e.Severity(), 0.0)

	dead := TickInput{Subjects: map[string]SubjectState{"p1": {InZone: true, Invalid: true}}}
	fixedTickN(s, 3, 1, dead)
	assert.Equal(t, 0.0, e.Severity())
	assert.Equal(t, 1.0, e.Multiplier())
	assert.Equal(t, "invalid", e.State().Phase)
	assert.Len(t, rec.ofKind(domain.EventExposureReset), 1)

	s.FixedTick(1, inZone("p1"))
	assert.InDelta(t, 0.1, e.Severity(), 1e-12)
}

func TestExposure_HeatCue(t *testing.T) {
	s, rec := newRecordedScheduler(t, 6)
	cfg := DefaultHeatConfig()
	cfg.TimeUntilEffect = domain.Fixed(10)
	e, err := s.StartExposure("p1", domain.WeatherHeatwave, cfg)
	require.NoError(t, err)

	fixedTickN(s, 8, 1, inZone("p1"))
	assert.False(t, e.CueActive())

	s.FixedTick(1, inZone("p1"))
	assert.True(t, e.CueActive())
	require.Len(t, rec.ofKind(domain.EventExposureCueOn), 1)

	fixedTickN(s, 3, 1, inZone("p1"))
	assert.Len(t, rec.ofKind(domain.EventExposureCueOn), 1)

	out := TickInput{Subjects: map[string]SubjectState{"p1": {}}}
	fixedTickN(s, 5, 1, out)
	assert.False(t, e.CueActive())
	assert.Len(t, rec.ofKind(domain.EventExposureCueOff), 1)
}

func TestExposure_HeatstrokeDamageAtFullSeverity(t *testing.T) {
	s, rec := newRecordedScheduler(t, 7)
	cfg := DefaultHeatConfig()
	cfg.TimeUntilEffect = domain.Fixed(4)
	_, err := s.StartExposure("p1", domain.WeatherHeatwave, cfg)
	require.NoError(t, err)

	fixedTickN(s, 3, 1, inZone("p1"))
	assert.Empty(t, rec.ofKind(domain.EventExposureDamage))

	// Full severity is reached on the fourth tick; damage then fires once per interval.
	fixedTickN(s, 4, 1, inZone("p1"))
	assert.Len(t, rec.ofKind(domain.EventExposureDamage), 4)
}

func TestExposure_MissingSubjectRecovers(t *testing.T) {
	s, _ := newRecordedScheduler(t, 8)
	e, err := s.StartExposure("p1", domain.WeatherCold, coldConfig(10))
	require.NoError(t, err)

	fixedTickN(s, 5, 1, inZone("p1"))
	fixedTickN(s, 2, 1, TickInput{})
	assert.InDelta(t, 0.3, e.Severity(), 1e-12)
}

func TestExposure_SeverityBoundedUnderAdversarialTicks(t *testing.T) {
	s, _ := newRecordedScheduler(t, 9)
	e, err := s.StartExposure("p1", domain.WeatherCold, DefaultColdConfig())
	require.NoError(t, err)

	rng := domain.NewRandomSource(9)
	for i := 0; i < 1000; i++ {
		in := TickInput{Subjects: map[string]SubjectState{"p1": {
			InZone:  rng.Next() < 0.6,
			Paused:  rng.Next() < 0.2,
			Invalid: rng.Next() < 0.05,
		}}}
		s.FixedTick(rng.NextInRange(0, 1e6), in)
		require.GreaterOrEqual(t, e.Severity(), 0.0)
		require.LessOrEqual(t, e.Severity(), 1.0)
	}
}

func TestExposure_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ExposureConfig)
	}{
		{"inverted time until effect", func(c *ExposureConfig) { c.TimeUntilEffect = domain.Range{Min: 5, Max: 1} }},
		{"zero recovery", func(c *ExposureConfig) { c.RecoveryTime = 0 }},
		{"negative multiplier", func(c *ExposureConfig) { c.PausedMultiplier = -0.33 }},
		{"threshold above one", func(c *ExposureConfig) { c.DamageThreshold = 1.2 }},
		{"zero threshold", func(c *ExposureConfig) { c.DamageThreshold = 0 }},
		{"zero damage interval", func(c *ExposureConfig) { c.DamageInterval = 0 }},
		{"inverted damage", func(c *ExposureConfig) { c.DamageMin, c.DamageMax = 4, 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultColdConfig()
			tt.mutate(&cfg)

			s, _ := newRecordedScheduler(t, 1)
			_, err := s.StartExposure("p1", domain.WeatherCold, cfg)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
			assert.False(t, s.HasExposure("p1", domain.WeatherCold))
		})
	}
}
