package station

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/nerijus-areska/aimu/internal/dj"
	"github.com/nerijus-areska/aimu/internal/models"
)

// --- fakes ---

type fakeLibrary struct {
	tracks    []models.Track
	history   map[string][]models.Feedback
	nextID    uint
	histErr   error
	appendErr error
}

func (f *fakeLibrary) AllTracks(context.Context) ([]models.Track, error) {
	return f.tracks, nil
}

func (f *fakeLibrary) FeedbackHistory(_ context.Context, path string) ([]models.Feedback, error) {
	if f.histErr != nil {
		return nil, f.histErr
	}
	return f.history[path], nil
}

func (f *fakeLibrary) AppendFeedback(_ context.Context, path string, p, a, r int) (models.Feedback, error) {
	if f.appendErr != nil {
		return models.Feedback{}, f.appendErr
	}
	f.nextID++
	ev := models.Feedback{ID: 1000 + f.nextID, Path: path, Pleasure: models.IntPtr(p), Arousal: models.IntPtr(a), Rating: models.IntPtr(r)}
	f.history[path] = append([]models.Feedback{ev}, f.history[path]...)
	return ev, nil
}

type fakePlayer struct {
	played  []string
	ended   bool
	playErr error
}

func (p *fakePlayer) Play(_ context.Context, t models.Track) error {
	if p.playErr != nil {
		return p.playErr
	}
	p.played = append(p.played, t.Path)
	p.ended = false
	return nil
}

func (p *fakePlayer) HasEnded() bool    { return p.ended }
func (p *fakePlayer) Position() float64 { return 0.25 }

type countingPrompt struct {
	mood   *dj.Mood
	calls  int
	gotDef dj.Mood
}

func (p *countingPrompt) RequestTargetMood(ctx context.Context, def dj.Mood) (dj.Mood, bool, error) {
	p.calls++
	p.gotDef = def
	return StaticPrompt{Mood: p.mood}.RequestTargetMood(ctx, def)
}

// heldPrompt answers only once release receives a mood.
type heldPrompt struct {
	entered chan struct{}
	release chan dj.Mood
}

func (p heldPrompt) RequestTargetMood(ctx context.Context, _ dj.Mood) (dj.Mood, bool, error) {
	close(p.entered)
	select {
	case m := <-p.release:
		return m, true, nil
	case <-ctx.Done():
		return dj.Mood{}, false, ctx.Err()
	}
}

func fb(id uint, p, a, r int) models.Feedback {
	return models.Feedback{ID: id, Pleasure: models.IntPtr(p), Arousal: models.IntPtr(a), Rating: models.IntPtr(r)}
}

// newFixture builds a three-track library where, at the neutral target,
// only b.mp3 carries any weight: a and c were disliked at exactly (3,3).
func newFixture(t *testing.T) (*Controller, *fakeLibrary, *fakePlayer) {
	t.Helper()
	lib := &fakeLibrary{
		tracks: []models.Track{
			{Path: "a.mp3", Artist: "A", Title: "Alpha", Rating: 1},
			{Path: "b.mp3", Artist: "B", Title: "Beta", Rating: 1},
			{Path: "c.mp3", Artist: "C", Title: "Gamma", Rating: 3},
		},
		history: map[string][]models.Feedback{
			"a.mp3": {fb(1, 3, 3, 1)},
			"b.mp3": {fb(3, 3, 3, 3), fb(2, 1, 1, 1)},
			"c.mp3": {fb(4, 3, 3, 1)},
		},
	}
	player := &fakePlayer{}
	c := NewController(lib, player, dj.NewSampler(rand.New(rand.NewSource(1))), dj.NeutralMood())
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c, lib, player
}

func mood(p, a int) *dj.Mood { return &dj.Mood{Pleasure: p, Arousal: a} }

// --- tests ---

func TestToggleOnEmptyLibraryIsNoop(t *testing.T) {
	player := &fakePlayer{}
	c := NewController(&fakeLibrary{}, player, nil, dj.NeutralMood())
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	prompt := &countingPrompt{mood: mood(5, 5)}
	if err := c.ToggleStation(context.Background(), prompt); err != nil {
		t.Fatalf("toggle on empty library should not fail: %v", err)
	}
	if c.Active() {
		t.Error("controller must stay idle on an empty library")
	}
	if prompt.calls != 0 {
		t.Error("prompt should not be shown for an empty library")
	}
	if len(player.played) != 0 {
		t.Error("nothing should play")
	}
}

func TestToggleActivatesAndPlays(t *testing.T) {
	c, _, player := newFixture(t)
	prompt := &countingPrompt{mood: mood(3, 3)}

	if err := c.ToggleStation(context.Background(), prompt); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	if prompt.gotDef != dj.NeutralMood() {
		t.Errorf("prompt default = %v, want neutral", prompt.gotDef)
	}
	target, ok := c.TargetMood()
	if !ok || target != *mood(3, 3) {
		t.Errorf("TargetMood = (%v, %v)", target, ok)
	}
	if len(player.played) != 1 || player.played[0] != "b.mp3" {
		t.Errorf("expected b.mp3 to be played, got %v", player.played)
	}
	st := c.Status()
	if st.Mode != ModeStation || st.SessionID == "" || st.Current == nil || st.Current.Track.Path != "b.mp3" {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestToggleCancelKeepsTarget(t *testing.T) {
	c, _, _ := newFixture(t)

	if err := c.ToggleStation(context.Background(), &countingPrompt{}); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	target, ok := c.TargetMood()
	if !ok {
		t.Fatal("cancelling the prompt still activates the station")
	}
	if target != dj.NeutralMood() {
		t.Errorf("target changed on cancel: %v", target)
	}
}

func TestToggleOffRetainsTarget(t *testing.T) {
	c, _, player := newFixture(t)
	ctx := context.Background()

	if err := c.ToggleStation(ctx, &countingPrompt{mood: mood(2, 4)}); err != nil {
		t.Fatal(err)
	}
	if err := c.ToggleStation(ctx, &countingPrompt{mood: mood(5, 5)}); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.TargetMood(); ok {
		t.Error("TargetMood must report none while idle")
	}
	if len(player.played) != 1 {
		t.Errorf("deactivation must not select a track, played %v", player.played)
	}

	second := &countingPrompt{}
	if err := c.ToggleStation(ctx, second); err != nil {
		t.Fatal(err)
	}
	if second.gotDef != *mood(2, 4) {
		t.Errorf("reactivation prompt default = %v, want retained 2/4", second.gotDef)
	}
}

func TestActivationFailureStaysIdle(t *testing.T) {
	boom := errors.New("store unavailable")

	tests := []struct {
		name  string
		setup func(*fakeLibrary, *fakePlayer)
	}{
		{"Repository error", func(l *fakeLibrary, _ *fakePlayer) { l.histErr = boom }},
		{"Playback error", func(_ *fakeLibrary, p *fakePlayer) { p.playErr = boom }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, lib, player := newFixture(t)
			tt.setup(lib, player)

			err := c.ToggleStation(context.Background(), &countingPrompt{mood: mood(5, 1)})
			if !errors.Is(err, boom) {
				t.Fatalf("expected wrapped error, got %v", err)
			}
			if c.Active() {
				t.Error("controller flipped to active on a failed cycle")
			}
			lib.histErr, player.playErr = nil, nil

			second := &countingPrompt{}
			if err := c.ToggleStation(context.Background(), second); err != nil {
				t.Fatal(err)
			}
			if second.gotDef != dj.NeutralMood() {
				t.Errorf("target should be restored after failure, got %v", second.gotDef)
			}
		})
	}
}

func TestAdvanceIdleIsSequential(t *testing.T) {
	c, _, player := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := c.Advance(ctx); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}

	want := []string{"a.mp3", "b.mp3", "c.mp3"}
	if len(player.played) != len(want) {
		t.Fatalf("played %v, want %v (no wraparound)", player.played, want)
	}
	for i := range want {
		if player.played[i] != want[i] {
			t.Errorf("position %d: %s, want %s", i, player.played[i], want[i])
		}
	}
}

func TestAdvanceActiveRunsSelection(t *testing.T) {
	c, _, player := newFixture(t)
	ctx := context.Background()

	if err := c.ToggleStation(ctx, &countingPrompt{}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if err := c.Advance(ctx); err != nil {
			t.Fatal(err)
		}
	}
	for _, p := range player.played {
		if p != "b.mp3" {
			t.Fatalf("only b.mp3 has weight at the neutral target, played %v", player.played)
		}
	}
	if len(player.played) != 5 {
		t.Errorf("expected 5 plays (with replacement), got %d", len(player.played))
	}
}

func TestSelectionScoreCache(t *testing.T) {
	c, lib, _ := newFixture(t)
	lib.tracks = append(lib.tracks, models.Track{Path: "d.mp3", Artist: "D"})
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.SelectionScore("b.mp3"); ok {
		t.Error("no score before any station cycle")
	}

	if err := c.ToggleStation(context.Background(), &countingPrompt{}); err != nil {
		t.Fatal(err)
	}

	if s, ok := c.SelectionScore("b.mp3"); !ok || s != 4 {
		t.Errorf("b.mp3 score = (%v, %v), want (4, true)", s, ok)
	}
	if s, ok := c.SelectionScore("a.mp3"); !ok || s != -1 {
		t.Errorf("a.mp3 score = (%v, %v), want (-1, true)", s, ok)
	}
	if _, ok := c.SelectionScore("d.mp3"); ok {
		t.Error("track without feedback must report an absent score")
	}
	if err := c.Highlight(1); err != nil {
		t.Fatal(err)
	}
	if s, ok := c.HighlightedScore(); !ok || s != 4 {
		t.Errorf("highlighted score = (%v, %v), want (4, true)", s, ok)
	}

	if err := c.ToggleStation(context.Background(), &countingPrompt{}); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.SelectionScore("b.mp3"); ok {
		t.Error("scores are not reported while idle")
	}
}

func TestTick(t *testing.T) {
	c, _, player := newFixture(t)
	ctx := context.Background()

	if changed, _ := c.Tick(ctx); changed {
		t.Error("nothing played yet, tick must not advance")
	}

	if err := c.Play(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if changed, _ := c.Tick(ctx); changed {
		t.Error("track still playing, tick must not advance")
	}

	player.ended = true
	changed, err := c.Tick(ctx)
	if err != nil || !changed {
		t.Fatalf("ended track should advance: changed=%v err=%v", changed, err)
	}
	if player.played[len(player.played)-1] != "b.mp3" {
		t.Errorf("expected sequential advance to b.mp3, got %v", player.played)
	}

	// A tick arriving during another operation is dropped
	player.ended = true
	c.mu.Lock()
	changed, err = c.Tick(ctx)
	c.mu.Unlock()
	if changed || err != nil {
		t.Errorf("busy tick should be skipped, got changed=%v err=%v", changed, err)
	}
}

func TestTickStopsAtEndOfList(t *testing.T) {
	c, _, player := newFixture(t)
	ctx := context.Background()

	if err := c.Play(ctx, 2); err != nil {
		t.Fatal(err)
	}
	player.ended = true
	if changed, err := c.Tick(ctx); changed || err != nil {
		t.Errorf("end of list: changed=%v err=%v", changed, err)
	}
	if len(player.played) != 1 {
		t.Errorf("nothing should play after the last track, got %v", player.played)
	}
}

func TestPlayAndHighlightBounds(t *testing.T) {
	c, _, _ := newFixture(t)
	if err := c.Play(context.Background(), 7); !errors.Is(err, ErrNoSuchTrack) {
		t.Errorf("Play out of range: %v", err)
	}
	if err := c.Highlight(-2); !errors.Is(err, ErrNoSuchTrack) {
		t.Errorf("Highlight out of range: %v", err)
	}
	if err := c.Highlight(1); err != nil {
		t.Errorf("Highlight: %v", err)
	}
	if st := c.Status(); st.Highlighted != 1 || st.Current != nil {
		t.Errorf("highlight must not start playback: %+v", st)
	}
}

func TestFeedbackDefaults(t *testing.T) {
	c, lib, _ := newFixture(t)
	lib.tracks = append(lib.tracks, models.Track{Path: "d.mp3", Rating: 7})
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path       string
		wantMood   dj.Mood
		wantRating int
	}{
		{"b.mp3", dj.Mood{Pleasure: 3, Arousal: 3}, 3},
		{"a.mp3", dj.Mood{Pleasure: 3, Arousal: 3}, 1},
		{"d.mp3", dj.NeutralMood(), 3},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			m, r, err := c.FeedbackDefaults(tt.path)
			if err != nil {
				t.Fatal(err)
			}
			if m != tt.wantMood || r != tt.wantRating {
				t.Errorf("defaults = (%v, %d), want (%v, %d)", m, r, tt.wantMood, tt.wantRating)
			}
		})
	}

	if err := c.ToggleStation(context.Background(), &countingPrompt{mood: mood(5, 2)}); err != nil {
		t.Fatal(err)
	}
	if m, _, _ := c.FeedbackDefaults("a.mp3"); m != *mood(5, 2) {
		t.Errorf("station mode should preselect the session target, got %v", m)
	}

	if _, _, err := c.FeedbackDefaults("zzz.mp3"); !errors.Is(err, ErrNoSuchTrack) {
		t.Errorf("unknown path: %v", err)
	}
}

func TestSubmitFeedback(t *testing.T) {
	c, lib, _ := newFixture(t)
	ctx := context.Background()

	ev, err := c.SubmitFeedback(ctx, "c.mp3", dj.Mood{Pleasure: 4, Arousal: 2}, 2)
	if err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	if ev.ID == 0 {
		t.Error("event should carry its sequence id")
	}
	entry := c.Entries()[2]
	if *entry.Pleasure != 4 || *entry.Arousal != 2 || entry.Rating != 2 {
		t.Errorf("display entry not refreshed: %+v", entry)
	}

	lib.appendErr = errors.New("disk full")
	if _, err := c.SubmitFeedback(ctx, "c.mp3", dj.Mood{Pleasure: 1, Arousal: 1}, 1); err == nil {
		t.Fatal("expected store error")
	}
	entry = c.Entries()[2]
	if *entry.Pleasure != 4 || entry.Rating != 2 {
		t.Errorf("entry must be unchanged after a failed append: %+v", entry)
	}

	if _, err := c.SubmitFeedback(ctx, "c.mp3", dj.Mood{Pleasure: 9, Arousal: 1}, 1); !errors.Is(err, dj.ErrInvalidMood) {
		t.Errorf("invalid mood: %v", err)
	}
}

func TestStatusServedWhileMoodPromptIsOpen(t *testing.T) {
	c, _, player := newFixture(t)
	prompt := heldPrompt{entered: make(chan struct{}), release: make(chan dj.Mood)}

	done := make(chan error, 1)
	go func() { done <- c.ToggleStation(context.Background(), prompt) }()
	<-prompt.entered

	status := make(chan Status, 1)
	go func() { status <- c.Status() }()
	select {
	case st := <-status:
		if st.Active {
			t.Error("station must not be active before the prompt is answered")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Status blocked while the mood prompt was open")
	}
	if len(c.Entries()) != 3 {
		t.Error("Entries should be readable while prompting")
	}

	prompt.release <- dj.Mood{Pleasure: 3, Arousal: 3}
	if err := <-done; err != nil {
		t.Fatalf("ToggleStation: %v", err)
	}
	if m, on := c.TargetMood(); !on || m != dj.NeutralMood() {
		t.Errorf("TargetMood = (%v, %v)", m, on)
	}
	if len(player.played) != 1 || player.played[0] != "b.mp3" {
		t.Errorf("activation should play b.mp3, got %v", player.played)
	}
}

func TestToggleSkipsActivationWhenStationTurnedOnMeanwhile(t *testing.T) {
	c, _, player := newFixture(t)
	prompt := heldPrompt{entered: make(chan struct{}), release: make(chan dj.Mood)}

	done := make(chan error, 1)
	go func() { done <- c.ToggleStation(context.Background(), prompt) }()
	<-prompt.entered

	if err := c.ToggleStation(context.Background(), &countingPrompt{}); err != nil {
		t.Fatal(err)
	}
	prompt.release <- dj.Mood{Pleasure: 5, Arousal: 5}
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	if m, on := c.TargetMood(); !on || m != dj.NeutralMood() {
		t.Errorf("late answer must not replace the running session target, got (%v, %v)", m, on)
	}
	if len(player.played) != 1 {
		t.Errorf("only one activation should play, got %v", player.played)
	}
}

func TestTickInStationMode(t *testing.T) {
	c, lib, player := newFixture(t)
	ctx := context.Background()

	if err := c.ToggleStation(ctx, &countingPrompt{}); err != nil {
		t.Fatal(err)
	}
	if s, _ := c.SelectionScore("b.mp3"); s != 4 {
		t.Fatalf("b.mp3 score after activation = %v, want 4", s)
	}

	// a newer neutral rating ties on distance and wins on recency
	lib.history["b.mp3"] = append([]models.Feedback{fb(10, 3, 3, 2)}, lib.history["b.mp3"]...)

	player.ended = true
	changed, err := c.Tick(ctx)
	if err != nil || !changed {
		t.Fatalf("ended track in station mode: changed=%v err=%v", changed, err)
	}
	if len(player.played) != 2 || player.played[1] != "b.mp3" {
		t.Errorf("weighted pick should be b.mp3 again, got %v", player.played)
	}
	if s, ok := c.SelectionScore("b.mp3"); !ok || s != 1 {
		t.Errorf("score cache not refreshed: b.mp3 = (%v, %v), want (1, true)", s, ok)
	}
	if !c.Active() {
		t.Error("auto-advance must keep station mode on")
	}
}

func TestTickInStationModeHistoryError(t *testing.T) {
	c, lib, player := newFixture(t)
	ctx := context.Background()

	if err := c.ToggleStation(ctx, &countingPrompt{}); err != nil {
		t.Fatal(err)
	}

	lib.histErr = errors.New("disk gone")
	player.ended = true
	changed, err := c.Tick(ctx)
	if !errors.Is(err, lib.histErr) || changed {
		t.Fatalf("Tick = (%v, %v), want the history error", changed, err)
	}
	if !c.Active() {
		t.Error("a failed cycle must not leave station mode")
	}
	if s, ok := c.SelectionScore("b.mp3"); !ok || s != 4 {
		t.Errorf("failed cycle must keep the previous scores, b.mp3 = (%v, %v)", s, ok)
	}

	// the failure is reported once, not on every poll
	if changed, err := c.Tick(ctx); changed || err != nil {
		t.Errorf("repeat tick: changed=%v err=%v", changed, err)
	}
	if len(player.played) != 1 {
		t.Errorf("nothing new should play, got %v", player.played)
	}

	lib.histErr = nil
	if err := c.Advance(ctx); err != nil {
		t.Fatal(err)
	}
	player.ended = true
	if changed, err := c.Tick(ctx); !changed || err != nil {
		t.Errorf("manual advance should resume auto-advance: changed=%v err=%v", changed, err)
	}
}
