package scheduler

import (
	"fmt"

	"github.com/couchcryptid/storm-data-scheduler/internal/domain"
	"github.com/google/uuid"
)

// sessionNamespace scopes the name-based session UUIDs.
var sessionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("storm-data-scheduler/session"))

// SubjectState is the host-supplied eligibility of one subject for the current tick.
type SubjectState struct {
	InZone  bool
	Paused  bool
	Invalid bool
}

// TickInput carries everything the host supplies per tick.
type TickInput struct {
	// TimeOfDay is the normalized day-cycle position in [0,1).
	TimeOfDay float64
	Subjects  map[string]SubjectState
}

// SessionState is a read-only view of a session for observers.
type SessionState struct {
	ID        string             `json:"id"`
	Weather   domain.Weather     `json:"weather"`
	Subject   string             `json:"subject,omitempty"`
	Phase     string             `json:"phase"`
	Severity  float64            `json:"severity"`
	FlareTier *domain.FlareTier  `json:"flare_tier,omitempty"`
	Values    map[string]float64 `json:"values,omitempty"`
}

// Session is one running weather or status effect.
type Session interface {
	ID() string
	Weather() domain.Weather
	State() SessionState
}

// sessionRuntime is what the scheduler drives. Regular ticks carry visuals
// (wind, waves, flares); fixed ticks carry physics-coupled severity.
type sessionRuntime interface {
	Session
	tick(tc *tickContext)
	fixedTick(tc *tickContext)
	stop()
}

// tickContext is rebuilt for every tick and shared by all sessions.
type tickContext struct {
	dt    float64
	input TickInput
	// chill adds cold severity to a subject's cold session, if one exists.
	chill func(subject string, delta float64)
}

// emitter builds events stamped with the owning session's identity.
type emitter struct {
	id      string
	weather domain.Weather
	subject string
	now     *float64
	emit    func(domain.Event)
}

func (e emitter) event(kind domain.EventKind, value float64, attrs map[string]float64) {
	e.emit(domain.Event{
		Kind:      kind,
		Weather:   e.weather,
		SessionID: e.id,
		Subject:   e.subject,
		Time:      *e.now,
		Value:     value,
		Attrs:     attrs,
	})
}

func sessionLabel(w domain.Weather, subject string, ordinal int) string {
	if subject == "" {
		return fmt.Sprintf("%s/%d", w, ordinal)
	}
	return fmt.Sprintf("%s/%s/%d", w, subject, ordinal)
}

func sessionID(seed int64, label string) string {
	return uuid.NewSHA1(sessionNamespace, []byte(fmt.Sprintf("%d/%s", seed, label))).String()
}
