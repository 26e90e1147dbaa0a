// Package scheduler runs weather sessions on top of the domain primitives.
//
// A [Scheduler] owns every session of one game session:
//
//   - [Blizzard]: idle / wind changing / wave active. Two threshold timers race
//     while idle; whichever fires first runs its timed sequence and the other
//     waits. Driven by [Scheduler.Tick].
//   - [Exposure]: per-subject heat or cold severity with damage and audio cue
//     thresholds. Driven by [Scheduler.FixedTick].
//   - [Flare]: a tier drawn once at start plus periodic door-malfunction coin
//     tosses keyed to the time of day. Driven by [Scheduler.Tick].
//
// Events fired during a tick are delivered to [Handler]s after every session
// has stepped.
package scheduler
