package dj

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nerijus-areska/aimu/internal/models"
)

// ErrEndOfList is returned by the sequential selector after the last track.
var ErrEndOfList = errors.New("end of track list")

// HistoryLoader supplies per-track feedback, newest first.
type HistoryLoader interface {
	FeedbackHistory(ctx context.Context, path string) ([]models.Feedback, error)
}

// Request is the input to one selection.
type Request struct {
	Tracks  []models.Track
	Current int // index of the track playing now, -1 if none
	Target  Mood
}

// Selection is the outcome of one selection.
// Evaluations is aligned with Request.Tracks and only set by scoring selectors.
type Selection struct {
	Index       int
	Evaluations []Evaluation
}

// Selector defines the common interface for any way of choosing the next track.
type Selector interface {
	Name() string
	PickTrack(ctx context.Context, req Request) (Selection, error)
}

// NewSelector is a factory that returns the requested algorithm.
func NewSelector(mode string, history HistoryLoader, sampler *Sampler) Selector {
	switch strings.ToLower(mode) {
	case "sequential":
		return SequentialSelector{}
	default:
		return NewMoodSelector(history, sampler)
	}
}

// MoodSelector scores the whole library against the target mood and samples.
type MoodSelector struct {
	history HistoryLoader
	sampler *Sampler

	// Debug, when set, receives the normalized score of every track per cycle.
	Debug *log.Logger
}

func NewMoodSelector(history HistoryLoader, sampler *Sampler) *MoodSelector {
	if sampler == nil {
		sampler = NewSampler(nil)
	}
	return &MoodSelector{history: history, sampler: sampler}
}

func (s *MoodSelector) Name() string { return "Station" }

// PickTrack runs one full cycle: every history is re-read, nothing is cached.
func (s *MoodSelector) PickTrack(ctx context.Context, req Request) (Selection, error) {
	if len(req.Tracks) == 0 {
		return Selection{}, ErrEmptyLibrary
	}

	start := time.Now()
	defer func() { selectionDuration.Observe(time.Since(start).Seconds()) }()

	evals := make([]Evaluation, len(req.Tracks))
	weights := make([]float64, len(req.Tracks))

	for i, track := range req.Tracks {
		history, err := s.history.FeedbackHistory(ctx, track.Path)
		if err != nil {
			return Selection{}, fmt.Errorf("feedback history for %s: %w", track.Path, err)
		}
		evals[i] = Evaluate(history, req.Target)
		weights[i] = evals[i].Weight
	}

	if s.Debug != nil {
		s.Debug.Printf("--- station pick  mood=%d  arousal=%d ---", req.Target.Pleasure, req.Target.Arousal)
		for i, track := range req.Tracks {
			s.Debug.Printf("  %.2f  %s", evals[i].Normalized, track.DisplayName())
		}
	}

	idx, err := s.sampler.Pick(weights)
	if err != nil {
		return Selection{}, err
	}

	picksTotal.WithLabelValues("station").Inc()
	return Selection{Index: idx, Evaluations: evals}, nil
}

// SequentialSelector plays the library in order and stops at the end.
type SequentialSelector struct{}

func (SequentialSelector) Name() string { return "Sequential" }

func (SequentialSelector) PickTrack(_ context.Context, req Request) (Selection, error) {
	if len(req.Tracks) == 0 {
		return Selection{}, ErrEmptyLibrary
	}
	next := req.Current + 1
	if next < 0 {
		next = 0
	}
	if next >= len(req.Tracks) {
		return Selection{}, ErrEndOfList
	}
	picksTotal.WithLabelValues("sequential").Inc()
	return Selection{Index: next}, nil
}
