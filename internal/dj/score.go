package dj

import (
	"errors"
	"fmt"
	"math"

	"github.com/nerijus-areska/aimu/internal/models"
)

const (
	MoodMin = 1
	MoodMax = 5

	NeutralPleasure = 3
	NeutralArousal  = 3
)

var ErrInvalidMood = errors.New("mood out of range")

// Mood is a point on the pleasure/arousal plane, both axes 1..5.
type Mood struct {
	Pleasure int `json:"pleasure"`
	Arousal  int `json:"arousal"`
}

// NeutralMood is the session default.
func NeutralMood() Mood {
	return Mood{Pleasure: NeutralPleasure, Arousal: NeutralArousal}
}

func (m Mood) Validate() error {
	if m.Pleasure < MoodMin || m.Pleasure > MoodMax || m.Arousal < MoodMin || m.Arousal > MoodMax {
		return fmt.Errorf("%w: pleasure=%d arousal=%d", ErrInvalidMood, m.Pleasure, m.Arousal)
	}
	return nil
}

func (m Mood) String() string {
	return fmt.Sprintf("pleasure=%d arousal=%d", m.Pleasure, m.Arousal)
}

// Polarity maps a coarse rating to a signed magnitude.
// One dislike is a weak signal, a top rating a strong one.
func Polarity(rating int) (float64, bool) {
	switch rating {
	case 1:
		return -1, true
	case 2:
		return 1, true
	case 3:
		return 4, true
	}
	return 0, false
}

// Score returns the raw station score of one track for the target mood.
//
// history must be ordered newest first. The event nearest to the target wins;
// on equal distance the earlier entry (the more recent event) is kept.
// Events missing any field, or carrying an unknown rating, are skipped.
// The boolean is false when no event was usable.
func Score(history []models.Feedback, target Mood) (float64, bool) {
	var (
		best     float64
		found    bool
		bestDist = math.Inf(1)
	)

	for _, ev := range history {
		if ev.Pleasure == nil || ev.Arousal == nil || ev.Rating == nil {
			continue
		}
		polarity, ok := Polarity(*ev.Rating)
		if !ok {
			continue
		}

		dist := Distance(Mood{Pleasure: *ev.Pleasure, Arousal: *ev.Arousal}, target)
		if dist < bestDist {
			bestDist = dist
			best = Raw(polarity, dist)
			found = true
		}
	}

	return best, found
}

// Distance is the Euclidean distance between two moods.
func Distance(a, b Mood) float64 {
	return math.Hypot(float64(a.Pleasure-b.Pleasure), float64(a.Arousal-b.Arousal))
}

// Raw scales a polarity by mood proximity.
func Raw(polarity, distance float64) float64 {
	return polarity / (1.0 + distance)
}
