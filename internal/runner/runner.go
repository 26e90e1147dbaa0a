package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-scheduler/internal/config"
	"github.com/couchcryptid/storm-data-scheduler/internal/domain"
	"github.com/couchcryptid/storm-data-scheduler/internal/observability"
	"github.com/couchcryptid/storm-data-scheduler/internal/scheduler"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

// SnapshotSource yields host subject snapshots. Errors wrapping
// domain.ErrMalformedSnapshot are skipped; any other error backs off.
type SnapshotSource interface {
	ReadSnapshot(ctx context.Context) (domain.SubjectSnapshot, error)
}

// EventPublisher writes fired events to the destination.
type EventPublisher interface {
	LoadBatch(ctx context.Context, events []domain.Event) error
}

// Status is the externally visible scheduler state, refreshed every regular tick.
type Status struct {
	Seed     int64                    `json:"seed"`
	Now      float64                  `json:"now"`
	Ticks    uint64                   `json:"ticks"`
	Sessions []scheduler.SessionState `json:"sessions"`
}

const (
	snapshotBuffer = 256
	publishBuffer  = 64
	drainTimeout   = 5 * time.Second
)

// Runner drives a scheduler from real tickers, feeds it host snapshots and
// forwards fired events to a publisher. All scheduler access happens on the
// goroutine executing Run.
type Runner struct {
	sched     *scheduler.Scheduler
	source    SnapshotSource
	publisher EventPublisher
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	profile       config.Profile
	exposures     []domain.Weather
	tickInterval  time.Duration
	fixedInterval time.Duration
	useSnapshots  bool
	dayLength     float64

	input      scheduler.TickInput
	globalTime float64
	haveTime   bool
	hostDay    bool
	ticks      uint64
	pending    []domain.Event

	status atomic.Pointer[Status]
	ready  atomic.Bool
}

// New creates a Runner and starts the configured world-wide sessions
// (blizzard, solar flare). Exposure sessions start per subject as snapshots
// arrive. A nil source leaves every subject unknown.
func New(cfg *config.Config, source SnapshotSource, publisher EventPublisher, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) (*Runner, error) {
	if publisher == nil {
		return nil, errors.New("runner: publisher is required")
	}
	r := &Runner{
		sched:         scheduler.New(cfg.SessionSeed, logger),
		source:        source,
		publisher:     publisher,
		clock:         clock,
		logger:        logger,
		metrics:       metrics,
		profile:       cfg.Profile,
		tickInterval:  cfg.TickInterval,
		fixedInterval: cfg.FixedTickInterval,
		useSnapshots:  cfg.TimeSource == config.TimeSourceSnapshot,
		dayLength:     cfg.DayLength.Seconds(),
		input:         scheduler.TickInput{Subjects: make(map[string]scheduler.SubjectState)},
	}
	r.sched.OnEvent(r.collect)

	for _, w := range cfg.Weathers {
		var err error
		switch w {
		case domain.WeatherBlizzard:
			_, err = r.sched.StartBlizzard(cfg.Profile.Blizzard)
		case domain.WeatherSolarFlare:
			_, err = r.sched.StartFlare(cfg.Profile.Flare)
		case domain.WeatherHeatwave, domain.WeatherCold:
			r.exposures = append(r.exposures, w)
		}
		if err != nil {
			return nil, fmt.Errorf("start %s: %w", w, err)
		}
	}
	r.refresh()
	return r, nil
}

// CheckReadiness returns nil once the runner has completed a regular tick,
// or an error describing why the service is not yet ready.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("scheduler has not ticked yet")
	}
	return nil
}

// Status returns the state published by the most recent regular tick.
func (r *Runner) Status() Status {
	return *r.status.Load()
}

// States returns the sessions published by the most recent regular tick.
func (r *Runner) States() []scheduler.SessionState {
	return r.Status().Sessions
}

// Run executes the tick loop until the context is cancelled. On shutdown every
// session is ended and the remaining events are drained to the publisher.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("scheduler started",
		"seed", r.sched.Seed(),
		"tick_interval", r.tickInterval,
		"fixed_tick_interval", r.fixedInterval,
		"snapshot_time", r.useSnapshots,
		"day_length", r.dayLength,
	)
	r.metrics.SchedulerRunning.Set(1)
	defer r.metrics.SchedulerRunning.Set(0)

	snapshots := make(chan domain.SubjectSnapshot, snapshotBuffer)
	if r.source != nil {
		go r.consume(ctx, snapshots)
	}

	pubCtx, cancelPub := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelPub()
	batches := make(chan []domain.Event, publishBuffer)
	published := make(chan struct{})
	go r.publishLoop(pubCtx, batches, published)

	regular := r.clock.NewTicker(r.tickInterval)
	defer regular.Stop()
	fixed := r.clock.NewTicker(r.fixedInterval)
	defer fixed.Stop()
	last := r.clock.Now()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("scheduler stopping", "reason", ctx.Err())
			r.sched.EndAll()
			r.refresh()
			r.enqueue(batches)
			close(batches)
			r.drain(published, cancelPub)
			return nil
		case snap := <-snapshots:
			r.apply(snap)
		case <-fixed.Chan():
			r.fixedTick()
		case now := <-regular.Chan():
			r.regularTick(now.Sub(last).Seconds())
			last = now
			r.enqueue(batches)
		}
	}
}

func (r *Runner) regularTick(dt float64) {
	start := r.clock.Now()
	switch {
	case !r.useSnapshots:
		r.deriveTimeOfDay(r.sched.Now() + dt)
		r.sched.Tick(dt, r.input)
	case r.haveTime:
		r.deriveTimeOfDay(r.globalTime)
		r.sched.AdvanceTo(r.globalTime, r.input)
	default:
		// No agreed time yet; nothing may advance.
		return
	}
	r.ticks++
	r.metrics.Ticks.WithLabelValues("regular").Inc()
	r.metrics.TickDuration.WithLabelValues("regular").Observe(r.clock.Since(start).Seconds())
	r.refresh()
	r.ready.Store(true)
}

// deriveTimeOfDay places t on the configured day cycle unless the host
// reports its own time of day.
func (r *Runner) deriveTimeOfDay(t float64) {
	if r.hostDay || r.dayLength <= 0 {
		return
	}
	_, frac := math.Modf(t / r.dayLength)
	r.input.TimeOfDay = frac
}

func (r *Runner) fixedTick() {
	start := r.clock.Now()
	r.sched.FixedTick(r.fixedInterval.Seconds(), r.input)
	r.metrics.Ticks.WithLabelValues("fixed").Inc()
	r.metrics.TickDuration.WithLabelValues("fixed").Observe(r.clock.Since(start).Seconds())
}

// apply folds a snapshot into the next tick input and starts exposure
// sessions for subjects seen for the first time.
func (r *Runner) apply(snap domain.SubjectSnapshot) {
	r.metrics.SnapshotsConsumed.Inc()
	r.input.Subjects[snap.Subject] = scheduler.SubjectState{
		InZone:  snap.InZone,
		Paused:  snap.Paused,
		Invalid: snap.Invalid,
	}
	// Time only moves forward: a snapshot older than the newest one seen
	// updates its subject but not the clock or the day cycle.
	if !r.haveTime || snap.GlobalTime >= r.globalTime {
		r.globalTime = snap.GlobalTime
		r.haveTime = true
		if snap.TimeOfDay != nil {
			r.input.TimeOfDay = *snap.TimeOfDay
			r.hostDay = true
		}
	}

	for _, w := range r.exposures {
		if r.sched.HasExposure(snap.Subject, w) {
			continue
		}
		if _, err := r.sched.StartExposure(snap.Subject, w, r.profile.Exposure(w)); err != nil {
			r.logger.Warn("start exposure failed", "error", err, "subject", snap.Subject, "weather", w)
		}
	}
}

func (r *Runner) collect(e domain.Event) {
	r.pending = append(r.pending, e)
	r.metrics.EventsFired.WithLabelValues(string(e.Weather), string(e.Kind)).Inc()
}

// enqueue hands pending events to the publish loop without blocking the tick.
// A full queue drops the batch.
func (r *Runner) enqueue(batches chan<- []domain.Event) {
	if len(r.pending) == 0 {
		return
	}
	batch := r.pending
	r.pending = nil
	select {
	case batches <- batch:
	default:
		r.logger.Warn("publish queue full, dropping events", "count", len(batch))
		r.metrics.PublishErrors.Inc()
	}
}

func (r *Runner) publishLoop(ctx context.Context, batches <-chan []domain.Event, done chan<- struct{}) {
	defer close(done)
	for batch := range batches {
		if err := r.publisher.LoadBatch(ctx, batch); err != nil {
			r.logger.Error("publish events failed", "error", err, "count", len(batch))
			r.metrics.PublishErrors.Inc()
			continue
		}
		r.metrics.EventsPublished.Add(float64(len(batch)))
	}
}

func (r *Runner) drain(published <-chan struct{}, cancel context.CancelFunc) {
	select {
	case <-published:
	case <-r.clock.After(drainTimeout):
		r.logger.Warn("publish drain timed out", "timeout", drainTimeout)
		cancel()
		<-published
	}
}

// refresh publishes the current scheduler state for concurrent readers.
func (r *Runner) refresh() {
	sessions := r.sched.Sessions()
	r.status.Store(&Status{
		Seed:     r.sched.Seed(),
		Now:      r.sched.Now(),
		Ticks:    r.ticks,
		Sessions: sessions,
	})

	r.metrics.ActiveSessions.Reset()
	r.metrics.Severity.Reset()
	r.metrics.FlareTier.Set(-1)
	for _, s := range sessions {
		r.metrics.ActiveSessions.WithLabelValues(string(s.Weather)).Inc()
		if s.Subject != "" {
			r.metrics.Severity.WithLabelValues(string(s.Weather), s.Subject).Set(s.Severity)
		}
		if s.FlareTier != nil {
			r.metrics.FlareTier.Set(float64(*s.FlareTier))
		}
	}
}

// consume reads snapshots until ctx is cancelled, backing off on source errors.
func (r *Runner) consume(ctx context.Context, out chan<- domain.SubjectSnapshot) {
	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		snap, err := r.source.ReadSnapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, domain.ErrMalformedSnapshot) {
				r.logger.Warn("malformed snapshot, skipping", "error", err)
				r.metrics.SnapshotErrors.Inc()
				continue
			}
			r.logger.Error("read snapshot failed", "error", err, "backoff", backoff)
			if !r.sleep(ctx, backoff) {
				return
			}
			backoff = retry.NextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = 200 * time.Millisecond

		select {
		case out <- snap:
		case <-ctx.Done():
			return
		}
	}
}

// sleep waits on the injected clock so tests can drive backoff with a fake clock.
func (r *Runner) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := r.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
