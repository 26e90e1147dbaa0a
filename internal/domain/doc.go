// Package domain holds the deterministic building blocks of the weather
// scheduler: seeded random streams, threshold timers, severity accumulators,
// resumable sequences and the solar-flare tier table.
//
// # Determinism
//
// Every random draw comes from a [RandomSource] keyed by the session seed.
// Child streams are derived by label (see [RandomSource.Derive]), never by
// position, so two participants that build the same sessions in the same order
// compute identical timing without exchanging messages. Wall-clock time is used
// only to stamp events on their way out of the process.
//
// # Timers
//
// A [ThresholdTimer] fires at most once per Tick. When a large dt overshoots
// the target, the excess is dropped instead of carried into the next interval:
//
//	target=10, Tick(25) -> fires once, elapsed=0, target re-rolled
//
// # Severity
//
// A [SeverityAccumulator] integrates exposure into [0,1]:
//
//	in zone:  value += dt * gain * multiplier
//	outside:  value -= dt * decay
//
// Callers compare the value against their own thresholds (frostbite at 0.5,
// heatstroke cue at 0.85) and gate repeated effects behind their own timers.
//
// # Solar flare tiers
//
//	tier     screen  radio  breakthrough  shift  doors
//	weak     0.30    0.25   1.25          1000   no
//	mild     0.50    0.45   0.75          250    no
//	average  0.80    0.65   0.50          50     yes
//	strong   1.00    0.85   0.25          10     yes
//
// # Errors
//
// Only construction can fail, always with a [*ConfigurationError]. Zone
// membership, pauses and subject death are ordinary inputs.
package domain
