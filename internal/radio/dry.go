package radio

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/nerijus-areska/aimu/internal/audio"
	"github.com/nerijus-areska/aimu/internal/dj"
	"github.com/nerijus-areska/aimu/internal/models"
)

// Library is what the simulation reads. Nothing is written.
type Library interface {
	AllTracks(ctx context.Context) ([]models.Track, error)
	FeedbackHistory(ctx context.Context, path string) ([]models.Feedback, error)
}

// Simulate runs n station picks at target and prints what would play.
// The clock advances by each track's duration (4 minutes when unknown).
func Simulate(ctx context.Context, lib Library, sampler *dj.Sampler, target dj.Mood, n int, clock *audio.ManualClock, out io.Writer) error {
	if err := target.Validate(); err != nil {
		return err
	}
	tracks, err := lib.AllTracks(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n--- 🧪 DRY STATION SIMULATION (%s) ---\n", target)
	fmt.Fprintln(out, "Logic: full-library scoring + weighted draw (No playback, no DB writes)")
	fmt.Fprintln(out, "--------------------------------------------------------------------------------")

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "TIME\tARTIST\tTITLE\tRAW\tNORM\tWEIGHT")
	fmt.Fprintln(w, "----\t------\t-----\t---\t----\t------")

	selector := dj.NewSelector("station", lib, sampler)
	current := -1
	for i := 0; i < n; i++ {
		sel, err := selector.PickTrack(ctx, dj.Request{Tracks: tracks, Current: current, Target: target})
		if err != nil {
			fmt.Fprintf(w, "%s\tERROR\tSelection Failed: %v\t---\t---\t---\n", clock.Now().Format("15:04:05"), err)
			w.Flush()
			return err
		}

		t := tracks[sel.Index]
		ev := sel.Evaluations[sel.Index]
		raw := "-"
		if ev.HasSignal {
			raw = fmt.Sprintf("%+.3f", ev.Raw)
		}
		artist := t.Artist
		if artist == "" {
			artist = "Unknown Artist"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%.2f\n",
			clock.Now().Format("15:04:05"),
			truncate(artist, 20),
			truncate(titleOf(t), 25),
			raw,
			ev.Normalized,
			ev.Weight,
		)

		current = sel.Index
		d := t.DurationValue()
		if d == 0 {
			d = 4 * time.Minute
		}
		clock.Advance(d)
	}
	w.Flush()

	fmt.Fprintln(out, "\n✅ Simulation Complete.")
	return nil
}

func titleOf(t models.Track) string {
	if t.Title != "" {
		return t.Title
	}
	base := filepath.Base(t.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) > max {
		return string(r[:max-3]) + "..."
	}
	return s
}
