package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Weather identifies the kind of session that emitted an event.
type Weather string

const (
	WeatherBlizzard   Weather = "blizzard"
	WeatherHeatwave   Weather = "heatwave"
	WeatherCold       Weather = "cold"
	WeatherSolarFlare Weather = "solar_flare"
)

// Weathers lists every supported session kind.
var Weathers = []Weather{WeatherBlizzard, WeatherHeatwave, WeatherCold, WeatherSolarFlare}

// ParseWeather maps a name to a Weather.
func ParseWeather(s string) (Weather, error) {
	for _, w := range Weathers {
		if string(w) == s {
			return w, nil
		}
	}
	return "", configErrorf("weather", "unknown weather %q", s)
}

// EventKind is an opaque effect identifier. Consumers map kinds to host effects.
type EventKind string

const (
	EventSessionStarted      EventKind = "session_started"
	EventSessionEnded        EventKind = "session_ended"
	EventWindChangeStarted   EventKind = "wind_change_started"
	EventWindChangeCompleted EventKind = "wind_change_completed"
	EventChillWaveStarted    EventKind = "chill_wave_started"
	EventChillWaveCompleted  EventKind = "chill_wave_completed"
	EventExposureDamage      EventKind = "exposure_damage"
	EventExposureCueOn       EventKind = "exposure_cue_on"
	EventExposureCueOff      EventKind = "exposure_cue_off"
	EventExposureReset       EventKind = "exposure_reset"
	EventFlareStarted        EventKind = "flare_started"
	EventDoorMalfunction     EventKind = "door_malfunction"
)

// Event is a discrete effect fired by a session.
// Time is the scheduler's global time in seconds; EmittedAt is wall-clock and
// is only set when the event leaves the process.
type Event struct {
	Kind      EventKind          `json:"kind"`
	Weather   Weather            `json:"weather"`
	SessionID string             `json:"session_id"`
	Subject   string             `json:"subject,omitempty"`
	Time      float64            `json:"time"`
	Value     float64            `json:"value"`
	Attrs     map[string]float64 `json:"attrs,omitempty"`
	EmittedAt time.Time          `json:"emitted_at,omitzero"`
}

// Stamp sets EmittedAt from the package clock.
func Stamp(e Event) Event {
	e.EmittedAt = clock.Now().UTC()
	return e
}

// SerializeEvent marshals an Event to JSON for the sink topic.
func SerializeEvent(e Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("serialize event: %w", err)
	}
	return data, nil
}
