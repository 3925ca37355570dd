package radio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerijus-areska/aimu/internal/audio"
	"github.com/nerijus-areska/aimu/internal/station"
)

var keyActions = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "aimu_terminal_actions_total", Help: "Terminal actions handled"},
	[]string{"action"},
)

func RegisterMetrics() {
	prometheus.MustRegister(keyActions)
}

// Transport is the part of the player the terminal controls directly.
type Transport interface {
	TogglePause(ctx context.Context) (bool, error)
	Seek(ctx context.Context, delta time.Duration) error
	SetVolume(ctx context.Context, volume int) error
	Volume() int
	Paused() bool
	Stop()
}

// Engine is the terminal front end: one goroutine owns the poll ticker and
// the input lines and drives the controller from both.
type Engine struct {
	ctrl      *station.Controller
	transport Transport
	keys      station.Keybindings
	poll      time.Duration
	seek      time.Duration

	in    io.Reader
	out   io.Writer
	lines chan string
}

func New(ctrl *station.Controller, transport Transport, keys station.Keybindings, poll, seek time.Duration, in io.Reader, out io.Writer) *Engine {
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	if seek <= 0 {
		seek = 10 * time.Second
	}
	return &Engine{
		ctrl:      ctrl,
		transport: transport,
		keys:      keys,
		poll:      poll,
		seek:      seek,
		in:        in,
		out:       out,
		lines:     make(chan string),
	}
}

// Run blocks until quit, end of input or ctx cancellation.
func (e *Engine) Run(ctx context.Context) error {
	defer e.transport.Stop()

	go e.readLines()

	ticker := time.NewTicker(e.poll)
	defer ticker.Stop()

	fmt.Fprintf(e.out, "🎧 %d tracks. Press %s for help.\n", len(e.ctrl.Entries()), e.keys[station.ActionHelp])

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			changed, err := e.ctrl.Tick(ctx)
			if err != nil {
				log.Printf("❌ Auto-advance failed: %v", err)
			}
			if changed {
				e.printStatus()
			}

		case line, ok := <-e.lines:
			if !ok {
				return nil
			}
			if quit := e.Handle(ctx, line); quit {
				return nil
			}
		}
	}
}

func (e *Engine) readLines() {
	defer close(e.lines)
	sc := bufio.NewScanner(e.in)
	for sc.Scan() {
		e.lines <- sc.Text()
	}
}

// Handle runs one input line. It returns true when the listener quits.
// Besides the bound keys, "list" prints the library and a number plays that
// entry (1-based).
func (e *Engine) Handle(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "list" {
		e.printList()
		return false
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		if err := e.ctrl.Play(ctx, n-1); err != nil {
			fmt.Fprintf(e.out, "   %v\n", err)
			return false
		}
		e.printStatus()
		return false
	}

	action, ok := e.keys.Lookup(line)
	if !ok {
		if trimmed != "" {
			fmt.Fprintf(e.out, "   unknown key %q, %s for help\n", trimmed, e.keys[station.ActionHelp])
		}
		return false
	}
	keyActions.WithLabelValues(string(action)).Inc()

	var err error
	switch action {
	case station.ActionQuit:
		return true
	case station.ActionHelp:
		fmt.Fprint(e.out, e.keys.Help())
		fmt.Fprintln(e.out, "  list     show library\n  <n>      play entry n")
	case station.ActionPause:
		var paused bool
		if paused, err = e.transport.TogglePause(ctx); err == nil {
			fmt.Fprintln(e.out, map[bool]string{true: "⏸️ Paused", false: "▶️ Resumed"}[paused])
		}
	case station.ActionNext:
		if err = e.ctrl.Advance(ctx); err == nil {
			e.printStatus()
		}
	case station.ActionStation:
		err = e.toggleStation(ctx)
	case station.ActionFeedback:
		err = e.feedback(ctx)
	case station.ActionSeekBack:
		err = e.transport.Seek(ctx, -e.seek)
	case station.ActionSeekFwd:
		err = e.transport.Seek(ctx, e.seek)
	case station.ActionVolDown:
		err = e.stepVolume(ctx, -1)
	case station.ActionVolUp:
		err = e.stepVolume(ctx, 1)
	}

	if err != nil && !errors.Is(err, audio.ErrNothingLoaded) {
		fmt.Fprintf(e.out, "❌ %v\n", err)
	}
	return false
}

func (e *Engine) toggleStation(ctx context.Context) error {
	prompt := station.LinePrompt{Lines: e.lines, Out: e.out}
	if err := e.ctrl.ToggleStation(ctx, prompt); err != nil {
		return err
	}
	if m, on := e.ctrl.TargetMood(); on {
		fmt.Fprintf(e.out, "📻 Station ON  (%s)\n", m)
		e.printStatus()
	} else {
		fmt.Fprintln(e.out, "📻 Station OFF")
	}
	return nil
}

func (e *Engine) feedback(ctx context.Context) error {
	cur, ok := e.ctrl.Current()
	if !ok {
		fmt.Fprintln(e.out, "   nothing is playing")
		return nil
	}

	mood, rating, err := e.ctrl.FeedbackDefaults(cur.Track.Path)
	if err != nil {
		return err
	}
	prompt := station.LinePrompt{Lines: e.lines, Out: e.out}
	mood, rating, ok, err = prompt.RequestFeedback(ctx, cur.Name, mood, rating)
	if err != nil || !ok {
		return err
	}

	if _, err := e.ctrl.SubmitFeedback(ctx, cur.Track.Path, mood, rating); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "   saved: %s rating=%d\n", mood, rating)
	return nil
}

// stepVolume moves between the ten 10% steps.
func (e *Engine) stepVolume(ctx context.Context, dir int) error {
	step := (e.transport.Volume()+5)/10 + dir
	step = max(1, min(10, step))
	if err := e.transport.SetVolume(ctx, step*10); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "🔊 %d%%\n", step*10)
	return nil
}

func (e *Engine) printStatus() {
	st := e.ctrl.Status()
	if st.Current == nil {
		return
	}
	mode := "LIST"
	if st.Active {
		mode = fmt.Sprintf("STATION %d/%d", st.Target.Pleasure, st.Target.Arousal)
	}
	icon := "▶️"
	if e.transport.Paused() {
		icon = "⏸️"
	}
	line := fmt.Sprintf("%s [%s] %d. %s", icon, mode, st.Index+1, st.Current.Name)
	if st.Score != nil {
		line += fmt.Sprintf("  (score %+.2f)", *st.Score)
	}
	fmt.Fprintln(e.out, line)
}

func (e *Engine) printList() {
	for i, en := range e.ctrl.Entries() {
		mood := "   "
		if en.Pleasure != nil && en.Arousal != nil {
			mood = fmt.Sprintf("%d/%d", *en.Pleasure, *en.Arousal)
		}
		score := ""
		if s, ok := e.ctrl.SelectionScore(en.Track.Path); ok {
			score = fmt.Sprintf("  %+.2f", s)
		}
		fmt.Fprintf(e.out, "%4d. %s  %s  %s%s\n", i+1, strings.Repeat("★", en.Rating), mood, en.Name, score)
	}
}
