package domain

import (
	"fmt"
	"strings"
)

// FlareTier is the solar-flare intensity level chosen once per session.
type FlareTier int

const (
	FlareWeak FlareTier = iota
	FlareMild
	FlareAverage
	FlareStrong
)

// FlareTierCount is the number of tiers a session draws from.
const FlareTierCount = 4

var flareTierNames = [FlareTierCount]string{"weak", "mild", "average", "strong"}

func (t FlareTier) String() string {
	if t < 0 || int(t) >= FlareTierCount {
		return fmt.Sprintf("flare_tier(%d)", int(t))
	}
	return flareTierNames[t]
}

// ParseFlareTier maps a case-insensitive tier name to its FlareTier.
func ParseFlareTier(s string) (FlareTier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range flareTierNames {
		if s == name {
			return FlareTier(i), nil
		}
	}
	return 0, configErrorf("flare_tier", "unknown tier %q", s)
}

// Color is a linear RGBA color.
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// FlareParams holds the fixed effect parameters of a tier.
type FlareParams struct {
	Tier                      FlareTier `json:"tier"`
	ScreenDistortionIntensity float64   `json:"screen_distortion_intensity"`
	RadioDistortionIntensity  float64   `json:"radio_distortion_intensity"`
	RadioBreakthroughLength   float64   `json:"radio_breakthrough_length"`
	RadioFrequencyShift       float64   `json:"radio_frequency_shift"`
	AuroraColor1              Color     `json:"aurora_color_1"`
	AuroraColor2              Color     `json:"aurora_color_2"`
	IsDoorMalfunction         bool      `json:"is_door_malfunction"`
}

// Distortion rises and breakthrough windows shrink as the tier rises.
var flareTable = [FlareTierCount]FlareParams{
	FlareWeak: {
		Tier:                      FlareWeak,
		ScreenDistortionIntensity: 0.3,
		RadioDistortionIntensity:  0.25,
		RadioBreakthroughLength:   1.25,
		RadioFrequencyShift:       1000,
		AuroraColor1:              Color{R: 0, G: 12, B: 2, A: 1},
		AuroraColor2:              Color{R: 12, G: 1, B: 0, A: 1},
	},
	FlareMild: {
		Tier:                      FlareMild,
		ScreenDistortionIntensity: 0.5,
		RadioDistortionIntensity:  0.45,
		RadioBreakthroughLength:   0.75,
		RadioFrequencyShift:       250,
		AuroraColor1:              Color{R: 0, G: 11, B: 7, A: 1},
		AuroraColor2:              Color{R: 12, G: 0, B: 3, A: 1},
	},
	FlareAverage: {
		Tier:                      FlareAverage,
		ScreenDistortionIntensity: 0.8,
		RadioDistortionIntensity:  0.65,
		RadioBreakthroughLength:   0.5,
		RadioFrequencyShift:       50,
		AuroraColor1:              Color{R: 0, G: 10, B: 12, A: 1},
		AuroraColor2:              Color{R: 12, G: 0, B: 8, A: 1},
		IsDoorMalfunction:         true,
	},
	FlareStrong: {
		Tier:                      FlareStrong,
		ScreenDistortionIntensity: 1,
		RadioDistortionIntensity:  0.85,
		RadioBreakthroughLength:   0.25,
		RadioFrequencyShift:       10,
		AuroraColor1:              Color{R: 12, G: 0, B: 12, A: 1},
		AuroraColor2:              Color{R: 12, G: 0, B: 0, A: 1},
		IsDoorMalfunction:         true,
	},
}

// FlareParamsFor returns the constant parameters of a tier. Out-of-range tiers
// are clamped to the nearest valid one.
func FlareParamsFor(t FlareTier) FlareParams {
	switch {
	case t < FlareWeak:
		t = FlareWeak
	case t > FlareStrong:
		t = FlareStrong
	}
	return flareTable[t]
}

// IsDoorMalfunction reports whether a tier causes periodic door malfunctions.
func IsDoorMalfunction(t FlareTier) bool {
	return FlareParamsFor(t).IsDoorMalfunction
}

func (t FlareTier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *FlareTier) UnmarshalText(b []byte) error {
	v, err := ParseFlareTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
