package scheduler

import (
	"math"

	"github.com/couchcryptid/storm-data-scheduler/internal/domain"
)

// PausedMultiplier scales exposure gain while a subject is in a special
// animation, climbing, or riding a vehicle.
const PausedMultiplier = 0.33

// BlizzardConfig tunes wind and chill-wave cadence. Durations are seconds.
type BlizzardConfig struct {
	WindChangeInterval domain.Range `json:"wind_change_interval" yaml:"wind_change_interval"`
	WindChangeDuration float64      `json:"wind_change_duration" yaml:"wind_change_duration"`
	WindForce          domain.Range `json:"wind_force" yaml:"wind_force"`
	GustStrength       float64      `json:"gust_strength" yaml:"gust_strength"`
	GustFrequency      float64      `json:"gust_frequency" yaml:"gust_frequency"`
	WaveInterval       domain.Range `json:"wave_interval" yaml:"wave_interval"`
	WaveDuration       float64      `json:"wave_duration" yaml:"wave_duration"`
	// WaveChillBoost is the cold severity added over a full wave to subjects in zone.
	WaveChillBoost float64 `json:"wave_chill_boost" yaml:"wave_chill_boost"`
}

// DefaultBlizzardConfig returns the stock blizzard tuning.
func DefaultBlizzardConfig() BlizzardConfig {
	return BlizzardConfig{
		WindChangeInterval: domain.Range{Min: 20, Max: 60},
		WindChangeDuration: 10,
		WindForce:          domain.Range{Min: 0.2, Max: 1},
		GustStrength:       0.35,
		GustFrequency:      0.1,
		WaveInterval:       domain.Range{Min: 60, Max: 180},
		WaveDuration:       30,
		WaveChillBoost:     0.2,
	}
}

// Validate reports the first invalid field.
func (c BlizzardConfig) Validate() error {
	if err := c.WindChangeInterval.Validate("wind_change_interval"); err != nil {
		return err
	}
	if err := c.WaveInterval.Validate("wave_interval"); err != nil {
		return err
	}
	if err := c.WindForce.Validate("wind_force"); err != nil {
		return err
	}
	if err := nonNegative("wind_change_duration", c.WindChangeDuration); err != nil {
		return err
	}
	if err := nonNegative("wave_duration", c.WaveDuration); err != nil {
		return err
	}
	if err := nonNegative("gust_frequency", c.GustFrequency); err != nil {
		return err
	}
	if err := unitInterval("gust_strength", c.GustStrength); err != nil {
		return err
	}
	return unitInterval("wave_chill_boost", c.WaveChillBoost)
}

// ExposureConfig tunes a heat or cold severity session. Durations are seconds.
type ExposureConfig struct {
	// TimeUntilEffect is how long a subject must stay in zone to go from 0 to 1.
	TimeUntilEffect domain.Range `json:"time_until_effect" yaml:"time_until_effect"`
	// RecoveryTime is how long it takes to decay from 1 to 0 outside the zone.
	RecoveryTime     float64 `json:"recovery_time" yaml:"recovery_time"`
	PausedMultiplier float64 `json:"paused_multiplier" yaml:"paused_multiplier"`
	DamageThreshold  float64 `json:"damage_threshold" yaml:"damage_threshold"`
	DamageInterval   float64 `json:"damage_interval" yaml:"damage_interval"`
	DamageMin        int     `json:"damage_min" yaml:"damage_min"`
	DamageMax        int     `json:"damage_max" yaml:"damage_max"`
	// CueThreshold switches the audio cue on and off. Zero disables it.
	CueThreshold float64 `json:"cue_threshold" yaml:"cue_threshold"`
}

// DefaultHeatConfig returns the stock heatwave tuning.
func DefaultHeatConfig() ExposureConfig {
	return ExposureConfig{
		TimeUntilEffect:  domain.Range{Min: 40, Max: 80},
		RecoveryTime:     20,
		PausedMultiplier: PausedMultiplier,
		DamageThreshold:  1,
		DamageInterval:   1,
		DamageMin:        2,
		DamageMax:        4,
		CueThreshold:     0.85,
	}
}

// DefaultColdConfig returns the stock cold tuning. Frostbite starts at half severity.
func DefaultColdConfig() ExposureConfig {
	return ExposureConfig{
		TimeUntilEffect:  domain.Range{Min: 30, Max: 60},
		RecoveryTime:     17,
		PausedMultiplier: PausedMultiplier,
		DamageThreshold:  0.5,
		DamageInterval:   1,
		DamageMin:        1,
		DamageMax:        3,
	}
}

// DefaultExposureConfig returns the stock tuning for an exposure weather.
func DefaultExposureConfig(w domain.Weather) ExposureConfig {
	if w == domain.WeatherHeatwave {
		return DefaultHeatConfig()
	}
	return DefaultColdConfig()
}

// Validate reports the first invalid field.
func (c ExposureConfig) Validate() error {
	if err := c.TimeUntilEffect.Validate("time_until_effect"); err != nil {
		return err
	}
	if !(c.RecoveryTime > 0) || math.IsInf(c.RecoveryTime, 0) {
		return &domain.ConfigurationError{Field: "recovery_time", Reason: "must be a positive number"}
	}
	if err := nonNegative("paused_multiplier", c.PausedMultiplier); err != nil {
		return err
	}
	if err := unitInterval("damage_threshold", c.DamageThreshold); err != nil {
		return err
	}
	if !(c.DamageThreshold > 0) {
		return &domain.ConfigurationError{Field: "damage_threshold", Reason: "must be positive"}
	}
	if err := domain.Fixed(c.DamageInterval).Validate("damage_interval"); err != nil {
		return err
	}
	if c.DamageMin < 0 || c.DamageMax < c.DamageMin {
		return &domain.ConfigurationError{Field: "damage_min", Reason: "damage range must satisfy 0 <= min <= max"}
	}
	return unitInterval("cue_threshold", c.CueThreshold)
}

// FlareConfig tunes a solar-flare session. Period and epsilon are fractions of a day.
type FlareConfig struct {
	// Tier forces the intensity tier; nil draws it from the session stream.
	Tier               *domain.FlareTier `json:"tier,omitempty" yaml:"tier,omitempty"`
	MalfunctionPeriod  float64           `json:"malfunction_period" yaml:"malfunction_period"`
	MalfunctionEpsilon float64           `json:"malfunction_epsilon" yaml:"malfunction_epsilon"`
	MalfunctionChance  float64           `json:"malfunction_chance" yaml:"malfunction_chance"`
}

// DefaultFlareConfig returns the stock solar-flare tuning.
func DefaultFlareConfig() FlareConfig {
	return FlareConfig{
		MalfunctionPeriod:  0.05,
		MalfunctionEpsilon: 0.005,
		MalfunctionChance:  0.5,
	}
}

// Validate reports the first invalid field.
func (c FlareConfig) Validate() error {
	if c.Tier != nil && (*c.Tier < domain.FlareWeak || *c.Tier > domain.FlareStrong) {
		return &domain.ConfigurationError{Field: "tier", Reason: "unknown tier"}
	}
	if !(c.MalfunctionPeriod > 0) || c.MalfunctionPeriod > 1 {
		return &domain.ConfigurationError{Field: "malfunction_period", Reason: "must be in (0,1]"}
	}
	if !(c.MalfunctionEpsilon > 0) || c.MalfunctionEpsilon > c.MalfunctionPeriod {
		return &domain.ConfigurationError{Field: "malfunction_epsilon", Reason: "must be in (0,malfunction_period]"}
	}
	return unitInterval("malfunction_chance", c.MalfunctionChance)
}

func nonNegative(field string, v float64) error {
	if !(v >= 0) || math.IsInf(v, 0) {
		return &domain.ConfigurationError{Field: field, Reason: "must be a non-negative number"}
	}
	return nil
}

func unitInterval(field string, v float64) error {
	if !(v >= 0 && v <= 1) {
		return &domain.ConfigurationError{Field: field, Reason: "must be in [0,1]"}
	}
	return nil
}
