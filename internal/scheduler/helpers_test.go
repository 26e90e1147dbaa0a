package scheduler

import (
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/storm-data-scheduler/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder collects every event a scheduler fires.
type recorder struct {
	events []domain.Event
}

func (r *recorder) handle(e domain.Event) { r.events = append(r.events, e) }

func (r *recorder) kinds() []domain.EventKind {
	out := make([]domain.EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func (r *recorder) ofKind(kind domain.EventKind) []domain.Event {
	var out []domain.Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func newRecordedScheduler(t *testing.T, seed int64) (*Scheduler, *recorder) {
	t.Helper()
	s := New(seed, discardLogger())
	rec := &recorder{}
	s.OnEvent(rec.handle)
	return s, rec
}

func inZone(subjects ...string) TickInput {
	in := TickInput{Subjects: make(map[string]SubjectState, len(subjects))}
	for _, s := range subjects {
		in.Subjects[s] = SubjectState{InZone: true}
	}
	return in
}

func tickN(s *Scheduler, n int, dt float64, in TickInput) {
	for i := 0; i < n; i++ {
		s.Tick(dt, in)
	}
}

func fixedTickN(s *Scheduler, n int, dt float64, in TickInput) {
	for i := 0; i < n; i++ {
		s.FixedTick(dt, in)
	}
}
