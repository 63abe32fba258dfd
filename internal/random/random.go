// Package random wraps math/rand/v2 behind a mutex so that spawn
// scheduling, placement and lifecycle rolls can share one seedable
// source across goroutines.
package random

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source is a concurrency-safe pseudo-random source. The zero value is
// not usable; construct one with New or NewSeeded.
type Source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Source seeded from the current time.
func New() *Source {
	now := uint64(time.Now().UnixNano())
	return NewSeeded(now, now>>32)
}

// NewSeeded returns a deterministic Source, used by tests.
func NewSeeded(seed1, seed2 uint64) *Source {
	return &Source{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// IntN returns a uniform int in [0, n). n must be positive.
func (s *Source) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// Between returns a uniform int in [lo, hi] inclusive.
func (s *Source) Between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.IntN(hi-lo+1)
}

// Float64 returns a uniform float64 in [0, 1).
func (s *Source) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Roll reports whether a percentage chance hits. A chance of 0 or less
// never hits, 100 or more always hits.
func (s *Source) Roll(chance int) bool {
	if chance <= 0 {
		return false
	}
	if chance >= 100 {
		return true
	}
	return s.IntN(100) < chance
}
