package dj

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"time"
)

// RandSource is the randomness a Sampler draws from.
// *rand.Rand satisfies it, so tests can pass rand.New(rand.NewSource(seed)).
type RandSource interface {
	Float64() float64
	Intn(n int) int
}

// NewRandSource returns a math/rand source seeded from crypto/rand,
// falling back to the clock if the system RNG is unavailable.
func NewRandSource() RandSource {
	var b [8]byte
	seed := time.Now().UnixNano()
	if _, err := crand.Read(b[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(b[:]))
	}
	return rand.New(rand.NewSource(seed))
}
