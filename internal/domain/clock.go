package domain

import "github.com/jonboulle/clockwork"

// clock stamps outgoing events with wall-clock time so tests can freeze it via SetClock.
// Simulation time never comes from here.
var clock = clockwork.NewRealClock()

// SetClock swaps the wall-clock source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
