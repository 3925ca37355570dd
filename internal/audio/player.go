package audio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/nerijus-areska/aimu/internal/models"
)

var ErrNothingLoaded = errors.New("no track loaded")

// Process is a running playback process.
type Process interface {
	Wait() error
	Kill() error
}

// Launcher starts the external player with the given arguments.
type Launcher func(ctx context.Context, name string, args ...string) (Process, error)

// ExecLauncher runs the player binary in the background, detached from the
// terminal's stdin. The process outlives ctx; it is only checked before start.
func ExecLauncher(ctx context.Context, name string, args ...string) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmd := exec.Command(name, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return execProcess{cmd}, nil
}

type execProcess struct{ cmd *exec.Cmd }

func (p execProcess) Wait() error { return p.cmd.Wait() }
func (p execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	err := p.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// Player drives an external command-line player (ffplay by default).
// Pause, seek and volume changes restart the process at the tracked offset;
// the position is derived from the clock.
type Player struct {
	mu      sync.Mutex
	command string
	launch  Launcher
	clock   Clock

	track     models.Track
	loaded    bool
	proc      Process
	gen       int // bumped on every (re)start so stale exits are ignored
	exited    bool
	startedAt time.Time
	offset    time.Duration
	paused    bool
	volume    int // 0-100
}

func NewPlayer(command string, volume int, launch Launcher, clock Clock) *Player {
	if command == "" {
		command = "ffplay"
	}
	if launch == nil {
		launch = ExecLauncher
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &Player{
		command: command,
		launch:  launch,
		clock:   clock,
		volume:  clampVolume(volume),
	}
}

// Play starts track from the beginning, replacing whatever was playing.
func (p *Player) Play(ctx context.Context, track models.Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	p.track = track
	p.loaded = true
	p.offset = 0
	p.paused = false

	if err := p.startLocked(ctx); err != nil {
		p.loaded = false
		return err
	}
	playsTotal.Inc()
	log.Printf("▶️ Now Playing: %s", track.DisplayName())
	return nil
}

func (p *Player) startLocked(ctx context.Context) error {
	args := []string{
		"-nodisp", "-autoexit",
		"-loglevel", "quiet",
		"-volume", strconv.Itoa(p.volume),
	}
	if p.offset > 0 {
		args = append(args, "-ss", strconv.FormatFloat(p.offset.Seconds(), 'f', 1, 64))
	}
	args = append(args, p.track.Path)

	proc, err := p.launch(ctx, p.command, args...)
	if err != nil {
		playerErrors.Inc()
		return fmt.Errorf("start %s: %w", p.command, err)
	}

	p.gen++
	gen := p.gen
	p.proc = proc
	p.exited = false
	p.startedAt = p.clock.Now()

	go func() {
		proc.Wait()
		p.mu.Lock()
		if p.gen == gen {
			p.exited = true
		}
		p.mu.Unlock()
	}()
	return nil
}

func (p *Player) stopLocked() {
	if p.proc == nil {
		return
	}
	p.gen++
	if err := p.proc.Kill(); err != nil {
		log.Printf("⚠️ Failed to stop player: %v", err)
	}
	p.proc = nil
}

// elapsedLocked is the playback offset right now.
func (p *Player) elapsedLocked() time.Duration {
	if !p.loaded {
		return 0
	}
	e := p.offset
	if !p.paused && p.proc != nil {
		e += p.clock.Now().Sub(p.startedAt)
	}
	if d := p.track.DurationValue(); d > 0 && e > d {
		e = d
	}
	return e
}

// HasEnded reports whether the loaded track played through.
func (p *Player) HasEnded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded || p.paused {
		return false
	}
	if p.exited {
		return true
	}
	d := p.track.DurationValue()
	return d > 0 && p.elapsedLocked() >= d
}

// Position returns the playback position as a fraction of the duration,
// 0 when the duration is unknown.
func (p *Player) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := p.track.DurationValue()
	if !p.loaded || d <= 0 {
		return 0
	}
	return float64(p.elapsedLocked()) / float64(d)
}

func (p *Player) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.elapsedLocked()
}

// TogglePause stops the process and remembers the offset, or resumes from it.
// It returns true when the player is paused afterwards.
func (p *Player) TogglePause(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return false, ErrNothingLoaded
	}

	if p.paused {
		p.paused = false
		if err := p.startLocked(ctx); err != nil {
			p.paused = true
			return true, err
		}
		return false, nil
	}

	p.offset = p.elapsedLocked()
	p.stopLocked()
	p.paused = true
	return true, nil
}

// Seek moves the position by delta, clamped to the track.
func (p *Player) Seek(ctx context.Context, delta time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return ErrNothingLoaded
	}

	target := p.elapsedLocked() + delta
	if target < 0 {
		target = 0
	}
	if d := p.track.DurationValue(); d > 0 && target > d {
		target = d
	}

	p.stopLocked()
	p.offset = target
	if p.paused {
		return nil
	}
	return p.startLocked(ctx)
}

// SetVolume sets the volume (0-100) and applies it to the running track.
func (p *Player) SetVolume(ctx context.Context, volume int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	volume = clampVolume(volume)
	if volume == p.volume {
		return nil
	}
	p.volume = volume
	if !p.loaded || p.paused {
		return nil
	}

	p.offset = p.elapsedLocked()
	p.stopLocked()
	return p.startLocked(ctx)
}

func (p *Player) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Stop kills the running process and unloads the track.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.loaded = false
}

func clampVolume(v int) int {
	return max(0, min(100, v))
}
