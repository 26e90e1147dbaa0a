package domain

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

// RandomSource is a deterministic pseudo-random stream keyed by a session seed.
// Two sources built from the same seed and label produce identical sequences,
// which lets independent participants agree on event timing without sharing
// call history.
type RandomSource struct {
	seed  int64
	label string
	rng   *rand.Rand
	draws int64
}

// NewRandomSource creates the root stream for a seed.
func NewRandomSource(seed int64) *RandomSource {
	return newRandomSource(seed, "root")
}

func newRandomSource(seed int64, label string) *RandomSource {
	// Non-cryptographic PRNG is intentional for deterministic simulation behavior.
	// #nosec G404
	rng := rand.New(rand.NewPCG(seedWord(seed, label+":a"), seedWord(seed, label+":b")))
	return &RandomSource{seed: seed, label: label, rng: rng}
}

// Derive returns an independent child stream keyed by the parent's seed and label.
// The child does not depend on how many values the parent has produced.
func (r *RandomSource) Derive(label string) *RandomSource {
	return newRandomSource(r.seed, r.label+"/"+label)
}

// Seed returns the session seed the stream was built from.
func (r *RandomSource) Seed() int64 { return r.seed }

// Draws returns how many values have been taken from the stream.
func (r *RandomSource) Draws() int64 { return r.draws }

// Next returns a float in [0,1).
func (r *RandomSource) Next() float64 {
	r.draws++
	return r.rng.Float64()
}

// NextInt returns an int in [lo,hi). It returns lo when hi <= lo.
func (r *RandomSource) NextInt(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	r.draws++
	return lo + r.rng.IntN(hi-lo)
}

// NextInRange returns a float in [lo,hi). It returns lo when hi <= lo.
func (r *RandomSource) NextInRange(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + r.Next()*(hi-lo)
}

func seedWord(seed int64, salt string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fmt.Sprintf("%d:%s", seed, salt)))
	return h.Sum64()
}
