package station

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/nerijus-areska/aimu/internal/dj"
	"github.com/nerijus-areska/aimu/internal/library"
	"github.com/nerijus-areska/aimu/internal/models"
)

var ErrNoSuchTrack = errors.New("no such track")

// Library is the store the controller reads tracks and feedback from.
type Library interface {
	AllTracks(ctx context.Context) ([]models.Track, error)
	FeedbackHistory(ctx context.Context, path string) ([]models.Feedback, error)
	AppendFeedback(ctx context.Context, path string, pleasure, arousal, rating int) (models.Feedback, error)
}

// Player is the playback collaborator. Position is a fraction in [0,1].
type Player interface {
	Play(ctx context.Context, track models.Track) error
	HasEnded() bool
	Position() float64
}

// MoodPrompt asks the listener for a session target. false means cancelled.
type MoodPrompt interface {
	RequestTargetMood(ctx context.Context, def dj.Mood) (dj.Mood, bool, error)
}

const (
	ModeIdle    = "idle"
	ModeStation = "station"
)

// Status is a snapshot for the presentation layer.
type Status struct {
	Mode        string                `json:"mode"`
	Active      bool                  `json:"active"`
	SessionID   string                `json:"session_id,omitempty"`
	Target      *dj.Mood              `json:"target"`
	Current     *library.LibraryEntry `json:"current"`
	Index       int                   `json:"index"`
	Position    float64               `json:"position"`
	Highlighted int                   `json:"highlighted"`
	Score       *float64              `json:"score"`
}

// Controller owns the station session: the library snapshot, the target mood,
// whether station mode is on, and the scores of the last selection cycle.
// All methods are safe for concurrent use; a selection cycle holds the lock
// for its whole duration.
type Controller struct {
	mu sync.Mutex

	lib        Library
	player     Player
	station    *dj.MoodSelector
	sequential dj.SequentialSelector

	entries     []library.LibraryEntry
	current     int
	highlighted int
	played      bool

	active    bool
	target    dj.Mood
	sessionID string

	// raw scores of the last successful station cycle, by path
	scores map[string]float64
}

func NewController(lib Library, player Player, sampler *dj.Sampler, target dj.Mood) *Controller {
	if err := target.Validate(); err != nil {
		target = dj.NeutralMood()
	}
	return &Controller{
		lib:         lib,
		player:      player,
		station:     dj.NewMoodSelector(lib, sampler),
		current:     -1,
		highlighted: -1,
		target:      target,
	}
}

// SetDebugLogger enables the per-cycle score report.
func (c *Controller) SetDebugLogger(l *log.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.station.Debug = l
}

// Load snapshots the library. The display view of each track comes from its
// newest feedback event.
func (c *Controller) Load(ctx context.Context) error {
	tracks, err := c.lib.AllTracks(ctx)
	if err != nil {
		return err
	}

	entries := make([]library.LibraryEntry, 0, len(tracks))
	for _, t := range tracks {
		history, err := c.lib.FeedbackHistory(ctx, t.Path)
		if err != nil {
			return err
		}
		var newest models.Feedback
		if len(history) > 0 {
			newest = history[0]
		}
		entries = append(entries, library.NewEntry(t, newest))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var playing string
	if c.current >= 0 {
		playing = c.entries[c.current].Track.Path
	}
	c.entries = entries
	c.current, c.highlighted = -1, -1
	for i, e := range entries {
		if e.Track.Path == playing {
			c.current, c.highlighted = i, i
			break
		}
	}

	log.Printf("📚 Library loaded: %d tracks", len(entries))
	return nil
}

// ToggleStation switches station mode. Turning it on asks prompt for the
// target mood and immediately plays a selected track; if that fails the
// controller stays idle and keeps its previous target.
// The prompt runs without the lock so readers are served while the listener
// answers.
func (c *Controller) ToggleStation(ctx context.Context, prompt MoodPrompt) error {
	c.mu.Lock()
	if c.active {
		c.active = false
		log.Printf("📻 Station off (session %s)", c.sessionID)
		c.mu.Unlock()
		return nil
	}
	if len(c.entries) == 0 {
		c.mu.Unlock()
		return nil
	}
	def := c.target
	c.mu.Unlock()

	mood, ok, err := prompt.RequestTargetMood(ctx, def)
	if err != nil {
		return fmt.Errorf("mood prompt: %w", err)
	}
	if ok {
		if err := mood.Validate(); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// someone else activated the station or emptied the library meanwhile
	if c.active || len(c.entries) == 0 {
		return nil
	}

	previous := c.target
	if ok {
		c.target = mood
	}

	if err := c.stationCycle(ctx); err != nil {
		c.target = previous
		return err
	}

	c.active = true
	c.sessionID = uuid.NewString()
	log.Printf("📻 Station on (session %s, %s)", c.sessionID, c.target)
	return nil
}

// Advance moves to the next track: a fresh selection cycle in station mode,
// the following list entry otherwise. The end of the list is a no-op.
func (c *Controller) Advance(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.advance(ctx)
}

// Tick is the poll entry point. It advances when the playing track ended and
// reports whether a new track started. A tick that arrives while another
// operation holds the controller is skipped.
func (c *Controller) Tick(ctx context.Context) (bool, error) {
	if !c.mu.TryLock() {
		return false, nil
	}
	defer c.mu.Unlock()

	if !c.played || !c.player.HasEnded() {
		return false, nil
	}

	before := c.current
	if err := c.advance(ctx); err != nil {
		// no retry on every tick; the next manual action resumes
		c.played = false
		return false, err
	}
	if c.current == before && !c.active {
		// End of the list in idle mode
		c.played = false
		return false, nil
	}
	return true, nil
}

func (c *Controller) advance(ctx context.Context) error {
	if c.active {
		return c.stationCycle(ctx)
	}

	sel, err := c.sequential.PickTrack(ctx, c.request())
	if errors.Is(err, dj.ErrEndOfList) || errors.Is(err, dj.ErrEmptyLibrary) {
		return nil
	}
	if err != nil {
		return err
	}
	return c.play(ctx, sel.Index)
}

// stationCycle scores the whole library, samples one track and plays it.
// The score cache is replaced only when all of that succeeded.
func (c *Controller) stationCycle(ctx context.Context) error {
	req := c.request()
	sel, err := c.station.PickTrack(ctx, req)
	if err != nil {
		return err
	}
	if err := c.play(ctx, sel.Index); err != nil {
		return err
	}

	scores := make(map[string]float64, len(sel.Evaluations))
	for i, ev := range sel.Evaluations {
		if ev.HasSignal {
			scores[req.Tracks[i].Path] = ev.Raw
		}
	}
	c.scores = scores
	return nil
}

func (c *Controller) request() dj.Request {
	tracks := make([]models.Track, len(c.entries))
	for i, e := range c.entries {
		tracks[i] = e.Track
	}
	return dj.Request{Tracks: tracks, Current: c.current, Target: c.target}
}

func (c *Controller) play(ctx context.Context, index int) error {
	track := c.entries[index].Track
	if err := c.player.Play(ctx, track); err != nil {
		return fmt.Errorf("play %s: %w", track.Path, err)
	}
	c.current = index
	c.highlighted = index
	c.played = true
	return nil
}

// Play starts the track at index, chosen by the listener.
func (c *Controller) Play(ctx context.Context, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.entries) {
		return fmt.Errorf("%w: index %d", ErrNoSuchTrack, index)
	}
	return c.play(ctx, index)
}

// Highlight moves the cursor without playing anything.
func (c *Controller) Highlight(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.entries) {
		return fmt.Errorf("%w: index %d", ErrNoSuchTrack, index)
	}
	c.highlighted = index
	return nil
}

// SelectionScore returns the raw score path received in the last station
// cycle. It is absent when station mode is off or the track had no usable
// feedback.
func (c *Controller) SelectionScore(path string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectionScore(path)
}

func (c *Controller) selectionScore(path string) (float64, bool) {
	if !c.active {
		return 0, false
	}
	s, ok := c.scores[path]
	return s, ok
}

// HighlightedScore is SelectionScore for the track under the cursor.
func (c *Controller) HighlightedScore() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.highlighted < 0 {
		return 0, false
	}
	return c.selectionScore(c.entries[c.highlighted].Track.Path)
}

// TargetMood returns the session target while station mode is on.
func (c *Controller) TargetMood() (dj.Mood, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target, c.active
}

func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		Mode:        ModeIdle,
		Active:      c.active,
		Index:       c.current,
		Highlighted: c.highlighted,
	}
	if c.active {
		st.Mode = ModeStation
		st.SessionID = c.sessionID
		target := c.target
		st.Target = &target
	}
	if c.current >= 0 {
		e := c.entries[c.current]
		st.Current = &e
		st.Position = c.player.Position()
	}
	if c.highlighted >= 0 {
		if s, ok := c.selectionScore(c.entries[c.highlighted].Track.Path); ok {
			st.Score = &s
		}
	}
	return st
}

// Entries returns a copy of the display view in library order.
func (c *Controller) Entries() []library.LibraryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]library.LibraryEntry(nil), c.entries...)
}

// Current returns the entry that is playing, if any.
func (c *Controller) Current() (library.LibraryEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current < 0 {
		return library.LibraryEntry{}, false
	}
	return c.entries[c.current], true
}

// FeedbackDefaults returns what a feedback prompt for path should preselect:
// the session target in station mode, the track's displayed mood otherwise.
func (c *Controller) FeedbackDefaults(path string) (dj.Mood, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(path)
	if i < 0 {
		return dj.Mood{}, 0, fmt.Errorf("%w: %s", ErrNoSuchTrack, path)
	}
	e := c.entries[i]

	mood := dj.NeutralMood()
	switch {
	case c.active:
		mood = c.target
	case e.Pleasure != nil && e.Arousal != nil:
		mood = dj.Mood{Pleasure: *e.Pleasure, Arousal: *e.Arousal}
	}

	rating := e.Rating
	if rating == 0 {
		rating = 2
	}
	rating = max(1, min(3, rating))
	return mood, rating, nil
}

// SubmitFeedback appends an event and refreshes the display entry of path.
// On a store error the entry is left untouched.
func (c *Controller) SubmitFeedback(ctx context.Context, path string, mood dj.Mood, rating int) (models.Feedback, error) {
	if err := mood.Validate(); err != nil {
		return models.Feedback{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(path)
	if i < 0 {
		return models.Feedback{}, fmt.Errorf("%w: %s", ErrNoSuchTrack, path)
	}

	ev, err := c.lib.AppendFeedback(ctx, path, mood.Pleasure, mood.Arousal, rating)
	if err != nil {
		return models.Feedback{}, err
	}
	c.entries[i] = library.NewEntry(c.entries[i].Track, ev)
	return ev, nil
}

// UpdateTrack replaces the snapshot of a track, e.g. after its note changed.
func (c *Controller) UpdateTrack(t models.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(t.Path); i >= 0 {
		c.entries[i].Track = t
	}
}

func (c *Controller) indexOf(path string) int {
	for i, e := range c.entries {
		if e.Track.Path == path {
			return i
		}
	}
	return -1
}
