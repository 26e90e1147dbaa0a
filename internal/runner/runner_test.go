package runner_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/storm-data-scheduler/internal/config"
	"github.com/couchcryptid/storm-data-scheduler/internal/domain"
	"github.com/couchcryptid/storm-data-scheduler/internal/observability"
	"github.com/couchcryptid/storm-data-scheduler/internal/runner"
	"github.com/couchcryptid/storm-data-scheduler/internal/scheduler"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type sourceResult struct {
	snap domain.SubjectSnapshot
	err  error
}

type mockSource struct {
	ch chan sourceResult
}

func newMockSource() *mockSource {
	return &mockSource{ch: make(chan sourceResult, 16)}
}

func (m *mockSource) send(s domain.SubjectSnapshot) { m.ch <- sourceResult{snap: s} }

func (m *mockSource) fail(err error) { m.ch <- sourceResult{err: err} }

func (m *mockSource) ReadSnapshot(ctx context.Context) (domain.SubjectSnapshot, error) {
	select {
	case res := <-m.ch:
		return res.snap, res.err
	case <-ctx.Done():
		return domain.SubjectSnapshot{}, ctx.Err()
	}
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	calls  int
	err    error
}

func (m *mockPublisher) LoadBatch(_ context.Context, events []domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, events...)
	return nil
}

func (m *mockPublisher) count(kind domain.EventKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (m *mockPublisher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(weathers ...domain.Weather) *config.Config {
	return &config.Config{
		SessionSeed:       7,
		Weathers:          weathers,
		TickInterval:      50 * time.Millisecond,
		FixedTickInterval: 20 * time.Millisecond,
		TimeSource:        config.TimeSourceLocal,
		DayLength:         20 * time.Second,
		Profile:           config.DefaultProfile(),
	}
}

// start runs r in the background and returns a function that stops it and
// waits for Run to return.
func start(t *testing.T, r *runner.Runner, fc *clockwork.FakeClock) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()
	require.NoError(t, fc.BlockUntilContext(waitCtx, 2), "tickers not created")

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			select {
			case err := <-errCh:
				require.NoError(t, err)
			case <-time.After(2 * time.Second):
				t.Fatal("runner did not stop")
			}
		})
	}
	t.Cleanup(stop)
	return stop
}

// advanceUntil advances the fake clock one regular interval at a time until cond holds.
func advanceUntil(t *testing.T, fc *clockwork.FakeClock, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		fc.Advance(50 * time.Millisecond)
		return cond()
	}, 2*time.Second, time.Millisecond)
}

func sessionFor(states []scheduler.SessionState, subject string, w domain.Weather) (scheduler.SessionState, bool) {
	for _, s := range states {
		if s.Subject == subject && s.Weather == w {
			return s, true
		}
	}
	return scheduler.SessionState{}, false
}

// --- tests ---

func TestNew_RequiresPublisher(t *testing.T) {
	_, err := runner.New(testConfig(), nil, nil, clockwork.NewFakeClock(), discardLogger(), observability.NewMetricsForTesting())
	require.Error(t, err)
}

func TestNew_InvalidProfile(t *testing.T) {
	cfg := testConfig(domain.WeatherBlizzard)
	cfg.Profile.Blizzard.WaveInterval = domain.Range{Min: 5, Max: 1}

	_, err := runner.New(cfg, nil, &mockPublisher{}, clockwork.NewFakeClock(), discardLogger(), observability.NewMetricsForTesting())
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "start blizzard")
}

func TestRunner_NotReadyBeforeFirstTick(t *testing.T) {
	r, err := runner.New(testConfig(domain.WeatherBlizzard, domain.WeatherSolarFlare), nil, &mockPublisher{},
		clockwork.NewFakeClock(), discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)

	require.Error(t, r.CheckReadiness(context.Background()))
	status := r.Status()
	assert.Equal(t, int64(7), status.Seed)
	assert.Zero(t, status.Now)
	assert.Zero(t, status.Ticks)
	require.Len(t, status.Sessions, 2)
	assert.Equal(t, domain.WeatherBlizzard, status.Sessions[0].Weather)
	assert.Equal(t, domain.WeatherSolarFlare, status.Sessions[1].Weather)
}

func TestRunner_PublishesStartEvents(t *testing.T) {
	fc := clockwork.NewFakeClock()
	pub := &mockPublisher{}
	r, err := runner.New(testConfig(domain.WeatherBlizzard, domain.WeatherSolarFlare), nil, pub,
		fc, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	start(t, r, fc)

	advanceUntil(t, fc, func() bool {
		return pub.count(domain.EventSessionStarted) == 2 && pub.count(domain.EventFlareStarted) == 1
	})
	require.NoError(t, r.CheckReadiness(context.Background()))
	assert.Positive(t, r.Status().Now)
	assert.Positive(t, r.Status().Ticks)
}

func TestRunner_StartsExposurePerSubject(t *testing.T) {
	fc := clockwork.NewFakeClock()
	src := newMockSource()
	r, err := runner.New(testConfig(domain.WeatherCold, domain.WeatherHeatwave), src, &mockPublisher{},
		fc, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	assert.Empty(t, r.States())
	start(t, r, fc)

	src.send(domain.SubjectSnapshot{Subject: "p1", InZone: true})
	src.send(domain.SubjectSnapshot{Subject: "p1", InZone: true})

	advanceUntil(t, fc, func() bool {
		cold, ok := sessionFor(r.States(), "p1", domain.WeatherCold)
		return ok && cold.Severity > 0
	})
	states := r.States()
	assert.Len(t, states, 2)
	_, ok := sessionFor(states, "p1", domain.WeatherHeatwave)
	assert.True(t, ok)
}

func TestRunner_SkipsMalformedSnapshots(t *testing.T) {
	fc := clockwork.NewFakeClock()
	src := newMockSource()
	r, err := runner.New(testConfig(domain.WeatherCold), src, &mockPublisher{},
		fc, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	start(t, r, fc)

	src.fail(fmt.Errorf("%w: not json", domain.ErrMalformedSnapshot))
	src.send(domain.SubjectSnapshot{Subject: "p2"})

	advanceUntil(t, fc, func() bool {
		_, ok := sessionFor(r.States(), "p2", domain.WeatherCold)
		return ok
	})
}

func TestRunner_SnapshotTimeSource(t *testing.T) {
	fc := clockwork.NewFakeClock()
	src := newMockSource()
	cfg := testConfig(domain.WeatherBlizzard)
	cfg.TimeSource = config.TimeSourceSnapshot
	r, err := runner.New(cfg, src, &mockPublisher{}, fc, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	start(t, r, fc)

	for range 5 {
		fc.Advance(50 * time.Millisecond)
	}
	require.Error(t, r.CheckReadiness(context.Background()), "no agreed time yet")

	src.send(domain.SubjectSnapshot{Subject: "p1", GlobalTime: 30})
	advanceUntil(t, fc, func() bool { return r.Status().Now == 30 })
	require.NoError(t, r.CheckReadiness(context.Background()))

	// Older global times never move the scheduler backwards.
	src.send(domain.SubjectSnapshot{Subject: "p1", GlobalTime: 12})
	src.send(domain.SubjectSnapshot{Subject: "p1", GlobalTime: 31.5})
	advanceUntil(t, fc, func() bool { return r.Status().Now == 31.5 })
}

func TestRunner_LocalDayCycleDrivesFlareTrials(t *testing.T) {
	fc := clockwork.NewFakeClock()
	cfg := testConfig(domain.WeatherSolarFlare)
	strong := domain.FlareStrong
	cfg.Profile.Flare.Tier = &strong
	cfg.Profile.Flare.MalfunctionChance = 1
	r, err := runner.New(cfg, nil, &mockPublisher{}, fc, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	start(t, r, fc)

	// A 20s day with a 0.05 period gives one trial window per second.
	advanceUntil(t, fc, func() bool {
		states := r.States()
		return len(states) == 1 && states[0].Values["trials"] >= 3
	})
}

func TestRunner_ShutdownEndsSessions(t *testing.T) {
	fc := clockwork.NewFakeClock()
	pub := &mockPublisher{}
	r, err := runner.New(testConfig(domain.WeatherBlizzard, domain.WeatherSolarFlare), nil, pub,
		fc, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	stop := start(t, r, fc)

	advanceUntil(t, fc, func() bool { return r.CheckReadiness(context.Background()) == nil })
	stop()

	assert.Equal(t, 2, pub.count(domain.EventSessionEnded))
	assert.Empty(t, r.States())
}

func TestRunner_PublishErrorsDoNotStopTicking(t *testing.T) {
	fc := clockwork.NewFakeClock()
	pub := &mockPublisher{err: errors.New("broker down")}
	r, err := runner.New(testConfig(domain.WeatherBlizzard), nil, pub,
		fc, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	start(t, r, fc)

	advanceUntil(t, fc, func() bool { return pub.callCount() > 0 })
	ticks := r.Status().Ticks
	advanceUntil(t, fc, func() bool { return r.Status().Ticks > ticks })
	assert.Zero(t, pub.count(domain.EventSessionStarted))
}
