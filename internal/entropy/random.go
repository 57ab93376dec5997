// Package entropy provides the random sources used by the market simulation.
// Seeded sources make ticks replayable; crypto/rand backs the unseeded default.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	mathrand "math/rand"
	"sync"
)

// Source is the minimal random interface the simulation draws from.
type Source interface {
	Float64() float64 // [0, 1)
	Intn(n int) int   // [0, n)
}

// Seeded is a deterministic source. Safe for concurrent use.
type Seeded struct {
	mu sync.Mutex
	r  *mathrand.Rand
}

// NewSeeded returns a deterministic source for the given seed.
func NewSeeded(seed int64) *Seeded {
	return &Seeded{r: mathrand.New(mathrand.NewSource(seed))}
}

func (s *Seeded) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

func (s *Seeded) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}

// Crypto draws from crypto/rand.
type Crypto struct{}

func (Crypto) Float64() float64 { return cryptoRandFloat() }

func (Crypto) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	v := int(cryptoRandFloat() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}

// cryptoRandFloat generates a random float64 using crypto/rand.
func cryptoRandFloat() float64 {
	var buf [8]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		// This should never happen but return 0.5 as a safe default.
		return 0.5
	}
	// Use only 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

// OrDefault returns src, or a crypto source when src is nil.
func OrDefault(src Source) Source {
	if src == nil {
		return Crypto{}
	}
	return src
}

// Between samples uniformly from [lo, hi]. Swapped bounds are tolerated.
func Between(src Source, lo, hi float64) float64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi == lo {
		return lo
	}
	return lo + src.Float64()*(hi-lo)
}

// IntBetween samples an integer uniformly from [lo, hi] inclusive.
func IntBetween(src Source, lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + src.Intn(hi-lo+1)
}

// IntBetweenF rounds float bounds before sampling inclusively.
func IntBetweenF(src Source, lo, hi float64) int {
	return IntBetween(src, int(math.Round(lo)), int(math.Round(hi)))
}

// Chance reports true with probability p.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.Float64() < p
}

// Sign returns +1 or -1 with equal probability.
func Sign(src Source) int {
	if src.Intn(2) == 0 {
		return -1
	}
	return 1
}

// Shuffle permutes n elements in place through swap (Fisher-Yates).
func Shuffle(src Source, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		swap(i, j)
	}
}
