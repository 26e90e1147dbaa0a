package scheduler

import (
	"math"

	"github.com/couchcryptid/storm-data-scheduler/internal/domain"
)

// dayWrapGap is how far time of day must fall back to count as a new day
// rather than a late or jittered reading.
const dayWrapGap = 0.5

// Flare holds a solar-flare tier for the whole session and, on tiers that
// cause door malfunctions, flips the door state by periodic coin toss.
type Flare struct {
	emitter
	cfg    FlareConfig
	rng    *domain.RandomSource
	tier   domain.FlareTier
	params domain.FlareParams

	doorOpen   bool
	lastPeriod int
	lastTime   float64
	trials     int
	flips      int
}

func newFlare(em emitter, rng *domain.RandomSource, cfg FlareConfig) (*Flare, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tier := domain.FlareTier(rng.NextInt(0, domain.FlareTierCount))
	if cfg.Tier != nil {
		tier = *cfg.Tier
	}
	return &Flare{
		emitter:    em,
		cfg:        cfg,
		rng:        rng.Derive("doors"),
		tier:       tier,
		params:     domain.FlareParamsFor(tier),
		lastPeriod: -1,
	}, nil
}

func (f *Flare) ID() string              { return f.id }
func (f *Flare) Weather() domain.Weather { return domain.WeatherSolarFlare }

// Tier returns the intensity tier drawn at session start.
func (f *Flare) Tier() domain.FlareTier { return f.tier }

// Params returns the constant effect parameters of the tier.
func (f *Flare) Params() domain.FlareParams { return f.params }

// DoorOpen reports the current door state driven by malfunctions.
func (f *Flare) DoorOpen() bool { return f.doorOpen }

// Trials returns how many malfunction coin tosses have been made.
func (f *Flare) Trials() int { return f.trials }

func (f *Flare) State() SessionState {
	tier := f.tier
	door := 0.0
	if f.doorOpen {
		door = 1
	}
	return SessionState{
		ID:        f.id,
		Weather:   domain.WeatherSolarFlare,
		Phase:     f.tier.String(),
		Severity:  f.params.RadioDistortionIntensity,
		FlareTier: &tier,
		Values: map[string]float64{
			"screen_distortion": f.params.ScreenDistortionIntensity,
			"radio_distortion":  f.params.RadioDistortionIntensity,
			"door_open":         door,
			"trials":            float64(f.trials),
			"flips":             float64(f.flips),
		},
	}
}

// announce emits the start event once the session is registered.
func (f *Flare) announce() {
	malfunction := 0.0
	if f.params.IsDoorMalfunction {
		malfunction = 1
	}
	f.event(domain.EventFlareStarted, float64(f.tier), map[string]float64{
		"screen_distortion": f.params.ScreenDistortionIntensity,
		"radio_distortion":  f.params.RadioDistortionIntensity,
		"door_malfunction":  malfunction,
	})
}

// tick runs at most one trial per period, on the first tick whose time of day
// falls within epsilon after a period boundary.
func (f *Flare) tick(tc *tickContext) {
	if !f.params.IsDoorMalfunction {
		return
	}
	t := tc.input.TimeOfDay
	if math.IsNaN(t) || t < 0 {
		return
	}
	switch {
	case t < f.lastTime-dayWrapGap:
		// New day; period indices start over.
		f.lastPeriod = -1
	case t < f.lastTime:
		// Stale reading from before the latest one seen.
		return
	}
	f.lastTime = t
	if math.Mod(t, f.cfg.MalfunctionPeriod) >= f.cfg.MalfunctionEpsilon {
		return
	}
	period := int(math.Floor(t / f.cfg.MalfunctionPeriod))
	if period == f.lastPeriod {
		return
	}
	f.lastPeriod = period
	f.trials++
	if f.rng.Next() >= f.cfg.MalfunctionChance {
		return
	}
	f.flips++
	f.doorOpen = !f.doorOpen
	state := 0.0
	if f.doorOpen {
		state = 1
	}
	f.event(domain.EventDoorMalfunction, state, map[string]float64{
		"time_of_day": t,
	})
}

func (f *Flare) fixedTick(*tickContext) {}

func (f *Flare) stop() {}
