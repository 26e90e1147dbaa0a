package scheduler

import (
	"errors"
	"log/slog"
	"math"
	"strings"

	"github.com/couchcryptid/storm-data-scheduler/internal/domain"
)

// Handler receives fired events. Handlers run synchronously in registration order.
type Handler func(domain.Event)

type exposureKey struct {
	weather domain.Weather
	subject string
}

// Scheduler owns the weather sessions of one game session and drives them
// from an external tick source. It is not safe for concurrent use: every call
// must come from the goroutine that ticks it.
type Scheduler struct {
	seed   int64
	rng    *domain.RandomSource
	logger *slog.Logger

	now     float64
	ticking bool
	pending []domain.Event

	sessions  []sessionRuntime
	exposures map[exposureKey]*Exposure
	ordinals  map[string]int
	handlers  []Handler
}

// New creates a scheduler whose every random draw derives from seed.
func New(seed int64, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		seed:      seed,
		rng:       domain.NewRandomSource(seed),
		logger:    logger,
		exposures: make(map[exposureKey]*Exposure),
		ordinals:  make(map[string]int),
	}
}

// Seed returns the session seed.
func (s *Scheduler) Seed() int64 { return s.seed }

// Now returns the scheduler's global time in seconds.
func (s *Scheduler) Now() float64 { return s.now }

// OnEvent subscribes h to every event fired after the call.
func (s *Scheduler) OnEvent(h Handler) {
	if h != nil {
		s.handlers = append(s.handlers, h)
	}
}

// StartBlizzard starts a blizzard session.
func (s *Scheduler) StartBlizzard(cfg BlizzardConfig) (*Blizzard, error) {
	em, rng := s.prepare(domain.WeatherBlizzard, "")
	b, err := newBlizzard(em, rng, cfg)
	if err != nil {
		return nil, err
	}
	s.register(b, "")
	return b, nil
}

// StartExposure starts a heat or cold session for subject. Starting a session
// that already exists for the same weather and subject returns the existing one.
func (s *Scheduler) StartExposure(subject string, w domain.Weather, cfg ExposureConfig) (*Exposure, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, &domain.ConfigurationError{Field: "subject", Reason: "is required"}
	}
	if w != domain.WeatherHeatwave && w != domain.WeatherCold {
		return nil, &domain.ConfigurationError{Field: "weather", Reason: "exposure sessions are heatwave or cold"}
	}
	key := exposureKey{weather: w, subject: subject}
	if e, ok := s.exposures[key]; ok {
		return e, nil
	}
	em, rng := s.prepare(w, subject)
	e, err := newExposure(em, rng, cfg)
	if err != nil {
		return nil, err
	}
	s.exposures[key] = e
	s.register(e, subject)
	return e, nil
}

// StartFlare starts a solar-flare session and announces its tier.
func (s *Scheduler) StartFlare(cfg FlareConfig) (*Flare, error) {
	em, rng := s.prepare(domain.WeatherSolarFlare, "")
	f, err := newFlare(em, rng, cfg)
	if err != nil {
		return nil, err
	}
	s.register(f, "")
	f.announce()
	return f, nil
}

// prepare reserves the next ordinal for (weather, subject) and derives the
// session's identity and random stream from it. Ordinals only advance for
// sessions that start successfully.
func (s *Scheduler) prepare(w domain.Weather, subject string) (emitter, *domain.RandomSource) {
	prefix := sessionLabel(w, subject, 0)
	label := sessionLabel(w, subject, s.ordinals[prefix])
	em := emitter{
		id:      sessionID(s.seed, label),
		weather: w,
		subject: subject,
		now:     &s.now,
		emit:    s.emit,
	}
	return em, s.rng.Derive(label)
}

func (s *Scheduler) register(rt sessionRuntime, subject string) {
	s.ordinals[sessionLabel(rt.Weather(), subject, 0)]++
	s.sessions = append(s.sessions, rt)
	s.logger.Info("session started", "session_id", rt.ID(), "weather", rt.Weather(), "subject", subject)
	s.emit(domain.Event{
		Kind:      domain.EventSessionStarted,
		Weather:   rt.Weather(),
		SessionID: rt.ID(),
		Subject:   subject,
		Time:      s.now,
	})
}

// End stops and removes a session. It reports whether the session existed.
func (s *Scheduler) End(id string) bool {
	for i, rt := range s.sessions {
		if rt.ID() != id {
			continue
		}
		rt.stop()
		s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
		subject := ""
		if e, ok := rt.(*Exposure); ok {
			subject = e.Subject()
			delete(s.exposures, exposureKey{weather: e.Weather(), subject: subject})
		}
		s.logger.Info("session ended", "session_id", id, "weather", rt.Weather(), "subject", subject)
		s.emit(domain.Event{
			Kind:      domain.EventSessionEnded,
			Weather:   rt.Weather(),
			SessionID: id,
			Subject:   subject,
			Time:      s.now,
		})
		return true
	}
	return false
}

// EndAll stops every session in creation order.
func (s *Scheduler) EndAll() {
	for len(s.sessions) > 0 {
		s.End(s.sessions[0].ID())
	}
}

// Session looks up a running session by ID.
func (s *Scheduler) Session(id string) (Session, bool) {
	for _, rt := range s.sessions {
		if rt.ID() == id {
			return rt, true
		}
	}
	return nil, false
}

// Sessions returns a snapshot of every running session in creation order.
func (s *Scheduler) Sessions() []SessionState {
	out := make([]SessionState, 0, len(s.sessions))
	for _, rt := range s.sessions {
		out = append(out, rt.State())
	}
	return out
}

// Exposure returns the running exposure session of a subject.
func (s *Scheduler) Exposure(subject string, w domain.Weather) (*Exposure, bool) {
	e, ok := s.exposures[exposureKey{weather: w, subject: subject}]
	return e, ok
}

// HasExposure reports whether subject has a session for w.
func (s *Scheduler) HasExposure(subject string, w domain.Weather) bool {
	_, ok := s.exposures[exposureKey{weather: w, subject: subject}]
	return ok
}

// Severity returns a subject's current severity, or 0 without a session.
func (s *Scheduler) Severity(subject string, w domain.Weather) float64 {
	if e, ok := s.Exposure(subject, w); ok {
		return e.Severity()
	}
	return 0
}

// Blizzard returns the oldest running blizzard session.
func (s *Scheduler) Blizzard() (*Blizzard, bool) {
	for _, rt := range s.sessions {
		if b, ok := rt.(*Blizzard); ok {
			return b, true
		}
	}
	return nil, false
}

// Flare returns the oldest running solar-flare session.
func (s *Scheduler) Flare() (*Flare, bool) {
	for _, rt := range s.sessions {
		if f, ok := rt.(*Flare); ok {
			return f, true
		}
	}
	return nil, false
}

// Tick advances global time by dt and runs the regular tick of every session.
func (s *Scheduler) Tick(dt float64, in TickInput) {
	if s.reentrant() {
		return
	}
	dt = sanitizeDelta(dt)
	s.now += dt
	s.run(dt, in, sessionRuntime.tick)
}

// AdvanceTo runs a regular tick up to an externally agreed global time and
// returns the dt it applied. Times at or before the current one apply dt 0,
// so out-of-order deliveries never move time backwards.
func (s *Scheduler) AdvanceTo(globalTime float64, in TickInput) float64 {
	if s.reentrant() {
		return 0
	}
	dt := 0.0
	if globalTime > s.now && !math.IsInf(globalTime, 0) {
		dt = globalTime - s.now
		s.now = globalTime
	}
	s.run(dt, in, sessionRuntime.tick)
	return dt
}

// FixedTick runs the fixed-rate tick of every session. It integrates
// severity over dt but does not move global time.
func (s *Scheduler) FixedTick(dt float64, in TickInput) {
	s.run(sanitizeDelta(dt), in, sessionRuntime.fixedTick)
}

// ErrReentrantTick is logged when a handler ticks the scheduler it is subscribed to.
var ErrReentrantTick = errors.New("scheduler ticked from inside a tick")

func (s *Scheduler) run(dt float64, in TickInput, step func(sessionRuntime, *tickContext)) {
	if s.reentrant() {
		return
	}
	s.ticking = true
	defer func() { s.ticking = false }()

	tc := &tickContext{dt: dt, input: in, chill: s.chill}
	for _, rt := range s.sessions {
		step(rt, tc)
	}
	s.flush()
}

func (s *Scheduler) reentrant() bool {
	if s.ticking {
		s.logger.Error("tick ignored", "error", ErrReentrantTick)
	}
	return s.ticking
}

func (s *Scheduler) chill(subject string, delta float64) {
	if e, ok := s.exposures[exposureKey{weather: domain.WeatherCold, subject: subject}]; ok {
		e.boost(delta)
	}
}

// emit defers events fired mid-tick until every session has stepped, so
// handlers never observe a half-ticked scheduler. Handlers run while the tick
// is still in progress and so cannot tick the scheduler themselves.
func (s *Scheduler) emit(e domain.Event) {
	if s.ticking {
		s.pending = append(s.pending, e)
		return
	}
	s.dispatch(e)
}

// flush drains pending events, including any fired by handlers along the way.
func (s *Scheduler) flush() {
	for len(s.pending) > 0 {
		e := s.pending[0]
		s.pending = s.pending[1:]
		s.dispatch(e)
	}
	s.pending = nil
}

func (s *Scheduler) dispatch(e domain.Event) {
	s.logger.Debug("event fired", "kind", e.Kind, "weather", e.Weather, "session_id", e.SessionID, "subject", e.Subject, "time", e.Time)
	for _, h := range s.handlers {
		h(e)
	}
}

func sanitizeDelta(dt float64) float64 {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return 0
	}
	return dt
}
