// Command simulate runs a scheduler offline from a seed and prints every fired
// event as one JSON object per line. Two runs with the same flags print the
// same bytes, which makes it handy for checking that peers will agree.
//
// Usage:
//
//	go run ./cmd/simulate -seed 42 -weather blizzard,cold -duration 600 \
//	  -zone-on 30 -zone-off 300
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/couchcryptid/storm-data-scheduler/internal/config"
	"github.com/couchcryptid/storm-data-scheduler/internal/domain"
	"github.com/couchcryptid/storm-data-scheduler/internal/scheduler"
)

// options are the parsed command-line flags.
type options struct {
	seed      int64
	weathers  []domain.Weather
	subject   string
	duration  float64
	dt        float64
	fixedDT   float64
	dayLength float64
	zoneOn    float64
	zoneOff   float64
	profile   config.Profile
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	return simulate(opts, stdout, slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	seed := fs.Int64("seed", 1, "session seed")
	weather := fs.String("weather", "blizzard,cold", "comma-separated weathers to run")
	subject := fs.String("subject", "player-1", "subject name for exposure sessions")
	duration := fs.Float64("duration", 600, "simulated seconds")
	dt := fs.Float64("dt", 0.05, "regular tick delta in seconds")
	fixedDT := fs.Float64("fixed-dt", 0.02, "fixed tick delta in seconds")
	dayLength := fs.Float64("day-length", 600, "seconds per full day cycle")
	zoneOn := fs.Float64("zone-on", 0, "time the subject enters the hazard zone")
	zoneOff := fs.Float64("zone-off", 0, "time the subject leaves the hazard zone; 0 never leaves")
	profilePath := fs.String("profile", "", "optional YAML weather profile")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	weathers, err := parseWeathers(*weather)
	if err != nil {
		return options{}, err
	}
	profile, err := config.LoadProfile(*profilePath)
	if err != nil {
		return options{}, err
	}

	opts := options{
		seed:      *seed,
		weathers:  weathers,
		subject:   strings.TrimSpace(*subject),
		duration:  *duration,
		dt:        *dt,
		fixedDT:   *fixedDT,
		dayLength: *dayLength,
		zoneOn:    *zoneOn,
		zoneOff:   *zoneOff,
		profile:   profile,
	}
	switch {
	case !(opts.duration >= 0):
		return options{}, errors.New("-duration must be non-negative")
	case !(opts.dt > 0), !(opts.fixedDT > 0):
		return options{}, errors.New("-dt and -fixed-dt must be positive")
	case !(opts.dayLength > 0):
		return options{}, errors.New("-day-length must be positive")
	case opts.subject == "":
		return options{}, errors.New("-subject is required")
	}
	return opts, nil
}

// parseWeathers wraps config.ParseWeathers with a spelling hint.
func parseWeathers(s string) ([]domain.Weather, error) {
	weathers, err := config.ParseWeathers(s)
	if err == nil {
		return weathers, nil
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, perr := domain.ParseWeather(part); perr != nil {
			if hint := suggest(part); hint != "" {
				return nil, fmt.Errorf("unknown weather %q (did you mean %q?)", part, hint)
			}
			return nil, fmt.Errorf("unknown weather %q", part)
		}
	}
	return nil, err
}

func simulate(opts options, w io.Writer, logger *slog.Logger) error {
	sched := scheduler.New(opts.seed, logger)
	enc := json.NewEncoder(w)
	var writeErr error
	sched.OnEvent(func(e domain.Event) {
		if writeErr == nil {
			writeErr = enc.Encode(e)
		}
	})

	for _, weather := range opts.weathers {
		var err error
		switch weather {
		case domain.WeatherBlizzard:
			_, err = sched.StartBlizzard(opts.profile.Blizzard)
		case domain.WeatherSolarFlare:
			_, err = sched.StartFlare(opts.profile.Flare)
		case domain.WeatherHeatwave, domain.WeatherCold:
			_, err = sched.StartExposure(opts.subject, weather, opts.profile.Exposure(weather))
		}
		if err != nil {
			return fmt.Errorf("start %s: %w", weather, err)
		}
	}

	steps := int(math.Ceil(opts.duration / opts.dt))
	fixedDebt := 0.0
	for i := range steps {
		t := float64(i) * opts.dt
		in := opts.input(t)
		fixedDebt += opts.dt
		for fixedDebt >= opts.fixedDT {
			sched.FixedTick(opts.fixedDT, in)
			fixedDebt -= opts.fixedDT
		}
		sched.Tick(opts.dt, in)
		if writeErr != nil {
			return fmt.Errorf("write event: %w", writeErr)
		}
	}
	sched.EndAll()
	if writeErr != nil {
		return fmt.Errorf("write event: %w", writeErr)
	}
	return nil
}

// input is the host state at simulated time t.
func (o options) input(t float64) scheduler.TickInput {
	inZone := t >= o.zoneOn && (o.zoneOff <= 0 || t < o.zoneOff)
	_, frac := math.Modf(t / o.dayLength)
	return scheduler.TickInput{
		TimeOfDay: frac,
		Subjects:  map[string]scheduler.SubjectState{o.subject: {InZone: inZone}},
	}
}
