// Package rng provides the seeded random source threaded through encampment
// generation. Every generator stage takes a *Source explicitly; nothing in the
// pipeline reads a process-wide random stream.
package rng

import (
	"encoding/binary"
	"math/rand/v2"

	"golang.org/x/crypto/blake2b"
)

// Source is a deterministic pseudo-random generator.
// Not safe for concurrent use: a single generation run owns its Source.
type Source struct {
	r    *rand.Rand
	seed uint64
}

// New creates a Source seeded with seed.
func New(seed uint64) *Source {
	return &Source{
		r:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seed: seed,
	}
}

// Derive produces a stable 64-bit seed from a textual world seed and a key
// (for example a site or event identifier).
func Derive(worldSeed, key string) uint64 {
	sum := blake2b.Sum256([]byte(worldSeed + "\x00" + key))
	return binary.LittleEndian.Uint64(sum[:8])
}

// Seed returns the seed the source was created with.
func (s *Source) Seed() uint64 {
	return s.seed
}

// Float64 returns a value in [0, 1).
func (s *Source) Float64() float64 {
	return s.r.Float64()
}

// IntN returns a value in [0, n). Returns 0 for n <= 0.
func (s *Source) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return s.r.IntN(n)
}

// RangeInclusive returns a value in [lo, hi]. Returns lo when hi < lo.
func (s *Source) RangeInclusive(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.r.IntN(hi-lo+1)
}

// FloatRange returns a value in [lo, hi).
func (s *Source) FloatRange(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + s.r.Float64()*(hi-lo)
}

// Chance returns true with probability p.
func (s *Source) Chance(p float64) bool {
	switch {
	case p <= 0:
		return false
	case p >= 1:
		return true
	}
	return s.r.Float64() < p
}

// Pick returns a uniformly chosen element.
func Pick[T any](s *Source, items []T) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	return items[s.IntN(len(items))], true
}

// WeightedPick returns an element chosen with probability proportional to
// weight. Elements with non-positive weight are never chosen.
func WeightedPick[T any](s *Source, items []T, weight func(T) float64) (T, bool) {
	var zero T

	var total float64
	for _, it := range items {
		if w := weight(it); w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return zero, false
	}

	roll := s.r.Float64() * total
	var last T
	found := false
	for _, it := range items {
		w := weight(it)
		if w <= 0 {
			continue
		}
		last, found = it, true
		if roll < w {
			return it, true
		}
		roll -= w
	}
	// float rounding can leave roll marginally above the last bucket
	return last, found
}
