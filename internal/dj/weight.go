package dj

import (
	"math"

	"github.com/nerijus-areska/aimu/internal/models"
)

// Normalize maps a raw score onto the 1..5 scale, anchored at 3 for "no signal".
//
// The theoretical raw range is [-1, 4], so the two halves use different
// slopes (0.5 above zero, 2.0 below). Keep the kink at zero.
func Normalize(raw float64, ok bool) float64 {
	if !ok {
		raw = 0.0
	}
	if raw >= 0 {
		return 3.0 + 2.0*raw/4.0
	}
	return 3.0 + 2.0*raw
}

// Weight turns a normalized score into a sampling weight.
// weight(1)=0, weight(3)=3, weight(5)=15.
func Weight(normalized float64) float64 {
	return math.Pow(2.0, normalized-1.0) - 1.0
}

// Evaluation is the full scoring trail of one track.
type Evaluation struct {
	Raw        float64 `json:"raw"`
	HasSignal  bool    `json:"has_signal"`
	Normalized float64 `json:"normalized"`
	Weight     float64 `json:"weight"`
}

// Evaluate runs scorer and transform for one track history.
func Evaluate(history []models.Feedback, target Mood) Evaluation {
	raw, ok := Score(history, target)
	norm := Normalize(raw, ok)
	return Evaluation{
		Raw:        raw,
		HasSignal:  ok,
		Normalized: norm,
		Weight:     Weight(norm),
	}
}
