// Package chance provides the injectable random source used by every puzzle.
// Puzzles never reach for a global generator: construction and spawning draw
// from a Source so a seeded run is reproducible in tests.
// This package is PURE and must NOT import any infrastructure packages.
package chance

import (
	"math/rand"
	"time"
)

// Source is the subset of *rand.Rand the puzzles need.
type Source interface {
	Intn(n int) int
	Float64() float64
}

// New returns a seeded source. A zero seed draws one from the wall clock.
func New(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Shuffle permutes s in place (Fisher-Yates).
func Shuffle[T any](src Source, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// Sample returns a uniformly chosen element of s. s must not be empty.
func Sample[T any](src Source, s []T) T {
	return s[src.Intn(len(s))]
}
