package dj

import (
	"errors"
	"math"
)

// ErrEmptyLibrary is returned when there is nothing to pick from.
var ErrEmptyLibrary = errors.New("station: library is empty")

// Sampler draws one index from a weight vector, with replacement.
type Sampler struct {
	rng RandSource
}

// NewSampler wraps a randomness source; nil means a freshly seeded one.
func NewSampler(rng RandSource) *Sampler {
	if rng == nil {
		rng = NewRandSource()
	}
	return &Sampler{rng: rng}
}

// Pick returns an index with probability proportional to its weight.
// Negative and NaN weights count as zero. When nothing carries weight the
// draw is uniform over all indices.
func (s *Sampler) Pick(weights []float64) (int, error) {
	if len(weights) == 0 {
		return 0, ErrEmptyLibrary
	}

	total := 0.0
	for _, w := range weights {
		total += usable(w)
	}

	if total <= 0 || math.IsInf(total, 0) {
		zeroWeightFallbacks.Inc()
		return s.rng.Intn(len(weights)), nil
	}

	target := s.rng.Float64() * total
	current := 0.0
	last := -1
	for i, w := range weights {
		w = usable(w)
		if w == 0 {
			continue
		}
		current += w
		last = i
		if current > target {
			return i, nil
		}
	}

	// Float rounding can leave target a hair above the running sum
	return last, nil
}

func usable(w float64) float64 {
	if math.IsNaN(w) || w < 0 {
		return 0
	}
	return w
}
