package timer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"sharptimer/internal/logger"
)

// defaultBackupInterval is how often the periodic backup loop snapshots an
// active timer.
const defaultBackupInterval = 30 * time.Second

// Status is the read-model handed to the control surface.
type Status struct {
	Mode                 Mode    `json:"mode"`
	ModeName             string  `json:"mode_name"`
	Icon                 string  `json:"icon"`
	RemainingSeconds     int     `json:"remaining_seconds"`
	Display              string  `json:"display"`
	Progress             float64 `json:"progress"`
	IsRunning            bool    `json:"is_running"`
	IsPaused             bool    `json:"is_paused"`
	SessionID            string  `json:"session_id,omitempty"`
	TotalDurationSeconds int     `json:"total_duration_seconds"`
	ServerTime           string  `json:"server_time"`
}

// Controller composes the engine, persistence, transitions and system event
// monitoring into the application's timer. It restores state at launch,
// persists on every relevant transition, and runs the periodic backup loop.
type Controller struct {
	engine      *Engine
	states      *StateManager
	transitions *TransitionManager
	sysEvents   *SystemEventManager
	stats       *StatisticsManager
	notifier    Notifier
	audio       AudioPlayer
	log         *logger.Logger

	// session identity for the active countdown
	mu           sync.RWMutex
	currentMode  Mode
	sessionID    string
	sessionStart int64

	backupInterval time.Duration
	cancel         context.CancelFunc
	backupDone     chan struct{}
}

// NewController wires the timer core around the given persistence handle and
// collaborator sinks.
func NewController(states *StateManager, notifier Notifier, audio AudioPlayer, log *logger.Logger) *Controller {
	c := &Controller{
		states:         states,
		transitions:    NewTransitionManager(states, log),
		stats:          NewStatisticsManager(),
		notifier:       notifier,
		audio:          audio,
		log:            log,
		currentMode:    states.CurrentMode(),
		backupInterval: defaultBackupInterval,
	}
	c.engine = NewEngine(c.handleCompletion, log)
	c.sysEvents = NewSystemEventManager(states, c.engine, log)
	return c
}

// Launch restores any persisted countdown and starts the background loops.
// The loops stop when ctx is cancelled or Shutdown is called.
func (c *Controller) Launch(ctx context.Context) {
	c.restoreAtLaunch()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.mu.Lock()
	c.cancel = cancel
	c.backupDone = done
	c.mu.Unlock()

	go c.backupLoop(loopCtx, done)
	c.sysEvents.StartMonitoring(loopCtx)
}

// Shutdown persists a final snapshot and stops every background loop,
// joining each with a bounded wait.
func (c *Controller) Shutdown() {
	c.persistSnapshot()

	c.mu.Lock()
	cancel := c.cancel
	done := c.backupDone
	c.cancel = nil
	c.backupDone = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			c.log.Warnw("backup loop did not exit in time")
		}
	}
	c.sysEvents.StopMonitoring()
	c.engine.Stop()
	c.log.Infow("timer controller shut down")
}

// StartTimer starts a countdown for the current mode's configured duration.
func (c *Controller) StartTimer() error {
	return c.StartTimerMinutes(c.states.Duration(c.CurrentMode()))
}

// StartTimerMinutes starts a countdown of the given length for the current
// mode. Durations outside [1, 60] minutes are rejected.
func (c *Controller) StartTimerMinutes(minutes int) error {
	if minutes < MinDurationMinutes || minutes > MaxDurationMinutes {
		return fmt.Errorf("duration must be between %d and %d minutes, got %d",
			MinDurationMinutes, MaxDurationMinutes, minutes)
	}

	c.engine.Start(minutes)

	c.mu.Lock()
	c.sessionID = uuid.NewString()
	c.sessionStart = time.Now().Unix()
	c.mu.Unlock()

	c.persistSnapshot()
	c.log.Infow("timer started", "mode", c.CurrentMode(), "minutes", minutes)
	return nil
}

// PauseTimer pauses a running countdown.
func (c *Controller) PauseTimer() error {
	if !c.engine.IsRunning() {
		return fmt.Errorf("cannot pause: timer is not running")
	}
	c.engine.Pause()
	c.persistSnapshot()
	return nil
}

// ResumeTimer resumes a paused countdown.
func (c *Controller) ResumeTimer() error {
	if !c.engine.IsPaused() {
		return fmt.Errorf("cannot resume: timer is not paused")
	}
	c.engine.Resume()
	c.persistSnapshot()
	return nil
}

// StopTimer stops the countdown and returns to idle. Idempotent.
func (c *Controller) StopTimer() {
	c.engine.Stop()
	c.persistSnapshot()
}

// ResetTimer resets the countdown and clears the persisted snapshot; the
// session is logically destroyed.
func (c *Controller) ResetTimer() {
	c.engine.Reset()
	c.mu.Lock()
	c.sessionID = ""
	c.sessionStart = 0
	c.mu.Unlock()
	if !c.states.ClearTimerState() {
		c.log.Warnw("failed to clear persisted timer state")
	}
}

// SwitchMode stops any active countdown and selects a new mode.
func (c *Controller) SwitchMode(mode Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid mode %q, valid modes are: work, rest_eyes, long_rest", string(mode))
	}
	c.engine.Reset()

	c.mu.Lock()
	c.currentMode = mode
	c.sessionID = ""
	c.sessionStart = 0
	c.mu.Unlock()

	if !c.states.SetCurrentMode(mode) {
		return fmt.Errorf("failed to persist mode selection")
	}
	c.persistSnapshot()
	c.log.Infow("mode switched", "mode", mode)
	return nil
}

// CurrentMode returns the selected mode.
func (c *Controller) CurrentMode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentMode
}

// Snapshot returns the current read-model for the control surface.
func (c *Controller) Snapshot() Status {
	mode := c.CurrentMode()
	remaining := c.engine.RemainingSeconds()
	total := c.engine.TotalDurationSeconds()
	if total == 0 {
		// Idle: show the configured duration for the selected mode.
		total = c.states.Duration(mode) * 60
		remaining = total
	}

	c.mu.RLock()
	sessionID := c.sessionID
	c.mu.RUnlock()

	return Status{
		Mode:                 mode,
		ModeName:             mode.DisplayName(),
		Icon:                 mode.Icon(),
		RemainingSeconds:     remaining,
		Display:              FormatClock(remaining),
		Progress:             c.engine.Progress(),
		IsRunning:            c.engine.IsRunning(),
		IsPaused:             c.engine.IsPaused(),
		SessionID:            sessionID,
		TotalDurationSeconds: total,
		ServerTime:           time.Now().Format(time.RFC3339),
	}
}

// Engine exposes the underlying engine.
func (c *Controller) Engine() *Engine { return c.engine }

// States exposes the persistence handle.
func (c *Controller) States() *StateManager { return c.states }

// Transitions exposes the auto-switch manager.
func (c *Controller) Transitions() *TransitionManager { return c.transitions }

// SystemEvents exposes the sleep/wake manager.
func (c *Controller) SystemEvents() *SystemEventManager { return c.sysEvents }

// Stats exposes session statistics.
func (c *Controller) Stats() *StatisticsManager { return c.stats }

// backupLoop snapshots an active countdown to a backup file on a fixed
// interval. Idle timers produce no backups.
func (c *Controller) backupLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.backupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.engine.IsRunning() && !c.engine.IsPaused() {
				continue
			}
			if !c.states.CreateBackup(c.captureState()) {
				c.log.Warnw("periodic backup failed")
			}
		}
	}
}

// captureState builds a snapshot of the live countdown.
func (c *Controller) captureState() *State {
	c.mu.RLock()
	mode := c.currentMode
	sessionID := c.sessionID
	sessionStart := c.sessionStart
	c.mu.RUnlock()

	total := c.engine.TotalDurationSeconds()
	if total == 0 {
		total = c.states.Duration(mode) * 60
	}

	state := &State{
		Mode:                 mode,
		RemainingSeconds:     c.engine.RemainingSeconds(),
		IsRunning:            c.engine.IsRunning(),
		IsPaused:             c.engine.IsPaused(),
		SessionID:            sessionID,
		StartTimestamp:       sessionStart,
		TotalDurationSeconds: total,
	}
	state.fillIdentity()
	return state
}

// persistSnapshot saves the live countdown. A persistence failure is logged
// and never interrupts the countdown.
func (c *Controller) persistSnapshot() {
	if !c.states.SaveTimerState(c.captureState()) {
		c.log.Warnw("failed to persist timer snapshot")
	}
}

// restoreAtLaunch seeds the engine from the persisted snapshot, falling back
// to the most recent backup when the primary record is missing or invalid.
// A countdown that was running is restored paused; it is never auto-resumed.
func (c *Controller) restoreAtLaunch() {
	state, ok := c.states.LoadTimerState()
	if !ok {
		state, ok = c.states.RestoreFromBackup()
		if ok {
			c.log.Infow("restored timer state from backup", "mode", state.Mode)
		}
	}
	if !ok {
		c.log.Infow("no persisted timer state, starting idle", "mode", c.CurrentMode())
		return
	}

	c.mu.Lock()
	c.currentMode = state.Mode
	c.sessionID = state.SessionID
	c.sessionStart = state.StartTimestamp
	c.mu.Unlock()
	if !c.states.SetCurrentMode(state.Mode) {
		c.log.Warnw("failed to persist restored mode selection")
	}

	if state.RemainingSeconds > 0 && (state.IsRunning || state.IsPaused) {
		c.engine.StartWithSeconds(state.RemainingSeconds)
		c.engine.Pause()
		c.persistSnapshot()
		c.log.Infow("restored countdown, left paused for user to resume",
			"mode", state.Mode, "remaining", state.RemainingSeconds)
		return
	}

	c.log.Infow("persisted countdown already finished, starting idle", "mode", state.Mode)
}

// handleCompletion runs on the engine's goroutine when a countdown reaches
// zero: notify, record, persist, then hand off to the auto-switch path.
func (c *Controller) handleCompletion() {
	c.mu.RLock()
	completedMode := c.currentMode
	c.mu.RUnlock()

	total := c.engine.TotalDurationSeconds()
	c.stats.Record(completedMode, total)

	doc := c.states.LoadDocument()
	if doc.NotificationsEnabled && c.notifier != nil {
		minutes := total / 60
		c.notifier.Notify(
			fmt.Sprintf("%s Complete!", completedMode.DisplayName()),
			fmt.Sprintf("Your %d minute session is over.", minutes),
			"",
		)
	}
	if doc.SoundEnabled {
		// The sound chain can block for the full play duration; keep it
		// off the completion path.
		go PlayCompletionSound(c.audio, doc.Audio, c.log)
	}

	state := c.captureState()
	state.RemainingSeconds = 0
	state.IsRunning = false
	state.IsPaused = false
	if !c.states.SaveTimerState(state) {
		c.log.Warnw("failed to persist completed state")
	}
	c.states.CreateBackup(state)

	c.log.Infow("session complete", "mode", completedMode, "duration_seconds", total)

	if doc.AutoStartNext {
		c.autoSwitch(completedMode, state)
	}
}

// autoSwitch executes the configured transition for the completed mode and
// re-arms the countdown for the new mode.
func (c *Controller) autoSwitch(completedMode Mode, state *State) {
	result := c.transitions.ExecuteAutoSwitch(completedMode, state)
	if result == nil {
		c.log.Debugw("no enabled transition", "mode", completedMode)
		return
	}
	if !result.Success {
		c.log.Warnw("auto-switch failed", "mode", completedMode, "err", result.ErrorMessage)
		return
	}

	newMode := result.NewMode
	totalSeconds := c.states.Duration(newMode) * 60
	next := NewState(newMode, totalSeconds)

	c.mu.Lock()
	c.currentMode = newMode
	c.sessionID = next.SessionID
	c.sessionStart = next.StartTimestamp
	c.mu.Unlock()

	if state.IsRunning {
		next.IsRunning = true
		c.engine.StartWithSeconds(totalSeconds)
	} else {
		next.IsPaused = true
	}
	if !c.states.SaveTimerState(next) {
		c.log.Warnw("failed to persist auto-switched state")
	}

	c.log.Infow("auto-switched mode",
		"from", result.PreviousMode, "to", newMode,
		"target_running", state.IsRunning, "took_ms", result.TransitionTimeMS)
}
