package timer

import (
	"context"
	"os"
	"os/exec"
	"time"

	"sharptimer/internal/logger"
)

// Notifier is the visual notification sink. Implementations are external
// collaborators; the core only calls this on completion and settings events.
type Notifier interface {
	Notify(title, message, subtitle string)
}

// AudioPlayer plays one sound identifier for a bounded duration and reports
// success.
type AudioPlayer interface {
	Play(sound string, duration time.Duration) bool
}

// LogNotifier writes notifications to the structured log. It is the default
// sink when no desktop shell is attached.
type LogNotifier struct {
	Log *logger.Logger
}

func (n LogNotifier) Notify(title, message, subtitle string) {
	n.Log.Infow("notification", "title", title, "message", message, "subtitle", subtitle)
}

// CommandPlayer shells out to an external audio player (afplay-style) and
// kills it once the play duration elapses.
type CommandPlayer struct {
	Command string
	Log     *logger.Logger
}

func (p CommandPlayer) Play(sound string, duration time.Duration) bool {
	if _, err := os.Stat(sound); err != nil {
		p.Log.Warnw("sound file not found", "sound", sound)
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.Command, sound)
	if err := cmd.Start(); err != nil {
		p.Log.Warnw("failed to start audio player", "command", p.Command, "sound", sound, "err", err)
		return false
	}
	// Reaching the deadline kills the player; that still counts as a
	// successful bounded play.
	if err := cmd.Wait(); err != nil && ctx.Err() == nil {
		p.Log.Warnw("audio player failed", "sound", sound, "err", err)
		return false
	}
	return true
}

// PlayCompletionSound runs the configured sound chain: primary first, then
// each fallback, then the terminal bell. Returns true when any sound played.
func PlayCompletionSound(player AudioPlayer, cfg AudioConfig, log *logger.Logger) bool {
	if !cfg.Enabled || player == nil {
		return false
	}
	duration := time.Duration(cfg.DurationSeconds) * time.Second
	if duration <= 0 {
		duration = 5 * time.Second
	}

	if player.Play(cfg.PrimarySound, duration) {
		return true
	}
	for _, sound := range cfg.FallbackSounds {
		if player.Play(sound, duration) {
			return true
		}
	}
	log.Warnw("all completion sounds failed, falling back to bell")
	os.Stdout.WriteString("\a")
	return false
}
