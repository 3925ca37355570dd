package station

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nerijus-areska/aimu/internal/dj"
)

// StaticPrompt answers with a fixed mood, or cancels when Mood is nil.
// Used by the HTTP API and the dry run.
type StaticPrompt struct {
	Mood *dj.Mood
}

func (p StaticPrompt) RequestTargetMood(_ context.Context, _ dj.Mood) (dj.Mood, bool, error) {
	if p.Mood == nil {
		return dj.Mood{}, false, nil
	}
	if err := p.Mood.Validate(); err != nil {
		return dj.Mood{}, false, err
	}
	return *p.Mood, true, nil
}

// LinePrompt asks on Out and reads answers from Lines.
// An empty line cancels, "=" accepts the shown defaults.
type LinePrompt struct {
	Lines <-chan string
	Out   io.Writer
}

func (p LinePrompt) RequestTargetMood(ctx context.Context, def dj.Mood) (dj.Mood, bool, error) {
	for {
		fmt.Fprintf(p.Out, "🎯 Target mood  <pleasure> <arousal>  [%d %d]: ", def.Pleasure, def.Arousal)
		line, ok, err := p.next(ctx)
		if err != nil || !ok {
			return dj.Mood{}, false, err
		}

		vals, err := parseFields(line, 2, []int{def.Pleasure, def.Arousal})
		if err != nil {
			fmt.Fprintf(p.Out, "   %v\n", err)
			continue
		}
		m := dj.Mood{Pleasure: vals[0], Arousal: vals[1]}
		if err := m.Validate(); err != nil {
			fmt.Fprintf(p.Out, "   %v\n", err)
			continue
		}
		return m, true, nil
	}
}

// RequestFeedback reads "<pleasure> <arousal> <rating>". Missing trailing
// fields keep their defaults.
func (p LinePrompt) RequestFeedback(ctx context.Context, name string, def dj.Mood, defRating int) (dj.Mood, int, bool, error) {
	for {
		fmt.Fprintf(p.Out, "📝 %s\n   <pleasure 1-5> <arousal 1-5> <rating 1-3>  [%d %d %d]: ",
			name, def.Pleasure, def.Arousal, defRating)
		line, ok, err := p.next(ctx)
		if err != nil || !ok {
			return dj.Mood{}, 0, false, err
		}

		vals, err := parseFields(line, 3, []int{def.Pleasure, def.Arousal, defRating})
		if err != nil {
			fmt.Fprintf(p.Out, "   %v\n", err)
			continue
		}
		m := dj.Mood{Pleasure: vals[0], Arousal: vals[1]}
		if err := m.Validate(); err != nil {
			fmt.Fprintf(p.Out, "   %v\n", err)
			continue
		}
		if vals[2] < 1 || vals[2] > 3 {
			fmt.Fprintf(p.Out, "   rating %d outside 1-3\n", vals[2])
			continue
		}
		return m, vals[2], true, nil
	}
}

// next returns false for an empty line or a closed input.
func (p LinePrompt) next(ctx context.Context) (string, bool, error) {
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case line, open := <-p.Lines:
		line = strings.TrimSpace(line)
		if !open || line == "" {
			return "", false, nil
		}
		return line, true, nil
	}
}

func parseFields(line string, n int, defaults []int) ([]int, error) {
	out := append([]int(nil), defaults...)
	if line == "=" {
		return out, nil
	}
	fields := strings.Fields(line)
	if len(fields) > n {
		return nil, fmt.Errorf("expected at most %d numbers, got %d", n, len(fields))
	}
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", f)
		}
		out[i] = v
	}
	return out, nil
}
