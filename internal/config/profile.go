package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/storm-data-scheduler/internal/domain"
	"github.com/couchcryptid/storm-data-scheduler/internal/scheduler"
	"gopkg.in/yaml.v3"
)

// Profile is the per-weather tuning. Keys absent from a profile file keep their defaults.
type Profile struct {
	Blizzard scheduler.BlizzardConfig `yaml:"blizzard"`
	Heat     scheduler.ExposureConfig `yaml:"heat"`
	Cold     scheduler.ExposureConfig `yaml:"cold"`
	Flare    scheduler.FlareConfig    `yaml:"flare"`
}

// DefaultProfile returns the stock tuning for every weather.
func DefaultProfile() Profile {
	return Profile{
		Blizzard: scheduler.DefaultBlizzardConfig(),
		Heat:     scheduler.DefaultHeatConfig(),
		Cold:     scheduler.DefaultColdConfig(),
		Flare:    scheduler.DefaultFlareConfig(),
	}
}

// LoadProfile reads a YAML profile from path. An empty path yields the defaults.
func LoadProfile(path string) (Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes YAML over the defaults and validates every section.
// Unknown keys are rejected.
func ParseProfile(data []byte) (Profile, error) {
	p := DefaultProfile()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate checks each section, prefixing errors with the section name.
func (p Profile) Validate() error {
	if err := p.Blizzard.Validate(); err != nil {
		return fmt.Errorf("blizzard: %w", err)
	}
	if err := p.Heat.Validate(); err != nil {
		return fmt.Errorf("heat: %w", err)
	}
	if err := p.Cold.Validate(); err != nil {
		return fmt.Errorf("cold: %w", err)
	}
	if err := p.Flare.Validate(); err != nil {
		return fmt.Errorf("flare: %w", err)
	}
	return nil
}

// Exposure returns the heat section for heatwaves and the cold section otherwise.
func (p Profile) Exposure(w domain.Weather) scheduler.ExposureConfig {
	if w == domain.WeatherHeatwave {
		return p.Heat
	}
	return p.Cold
}
