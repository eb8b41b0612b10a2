package timer

import (
	"context"
	"sync"
	"time"

	"sharptimer/internal/logger"
)

// Sampling cadence and the wall-clock gap treated as a sleep/wake event.
const (
	defaultSampleInterval = 30 * time.Second
	defaultGapThreshold   = 60 * time.Second
)

// SystemEventManager detects system sleep/wake while a timer is active and
// reconciles the elapsed time against it. With no native suspend hook
// assumed available, detection falls back to periodic wall-clock sampling:
// a gap between consecutive samples beyond the threshold is treated as a
// sleep/wake event. Explicit OnSystemSleep / OnSystemWake hooks exist for
// environments that can deliver real signals.
type SystemEventManager struct {
	states *StateManager
	engine *Engine
	log    *logger.Logger

	mu         sync.Mutex
	monitoring bool
	lastSample time.Time
	cancel     context.CancelFunc
	done       chan struct{}

	sleepCallback func()
	wakeCallback  func()

	sampleInterval time.Duration
	gapThreshold   time.Duration
}

// NewSystemEventManager wires the manager to the persistence layer and the
// live engine. Monitoring does not start until StartMonitoring.
func NewSystemEventManager(states *StateManager, engine *Engine, log *logger.Logger) *SystemEventManager {
	return &SystemEventManager{
		states:         states,
		engine:         engine,
		log:            log,
		sampleInterval: defaultSampleInterval,
		gapThreshold:   defaultGapThreshold,
	}
}

// SetSleepCallback registers a hook invoked after a sleep event is handled.
func (sem *SystemEventManager) SetSleepCallback(fn func()) {
	sem.mu.Lock()
	defer sem.mu.Unlock()
	sem.sleepCallback = fn
}

// SetWakeCallback registers a hook invoked after wake compensation runs.
func (sem *SystemEventManager) SetWakeCallback(fn func()) {
	sem.mu.Lock()
	defer sem.mu.Unlock()
	sem.wakeCallback = fn
}

// StartMonitoring launches the sampling loop. Idempotent while monitoring.
func (sem *SystemEventManager) StartMonitoring(ctx context.Context) {
	sem.mu.Lock()
	defer sem.mu.Unlock()
	if sem.monitoring {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	sem.monitoring = true
	sem.lastSample = time.Now()
	sem.cancel = cancel
	sem.done = done

	go sem.monitorLoop(loopCtx, done)
	sem.log.Infow("system event monitoring started", "interval", sem.sampleInterval)
}

// StopMonitoring cancels the sampling loop and waits for it to exit, bounded
// to the sample interval.
func (sem *SystemEventManager) StopMonitoring() {
	sem.mu.Lock()
	if !sem.monitoring {
		sem.mu.Unlock()
		return
	}
	sem.monitoring = false
	cancel := sem.cancel
	done := sem.done
	sem.cancel = nil
	sem.done = nil
	sem.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			sem.log.Warnw("monitor loop did not exit in time")
		}
	}
	sem.log.Infow("system event monitoring stopped")
}

// IsMonitoring reports whether the sampling loop is active.
func (sem *SystemEventManager) IsMonitoring() bool {
	sem.mu.Lock()
	defer sem.mu.Unlock()
	return sem.monitoring
}

// monitorLoop samples wall-clock time and checks for gaps. A failure in one
// iteration is logged and the loop continues at the next interval; nothing
// terminates monitoring except cancellation.
func (sem *SystemEventManager) monitorLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(sem.sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sem.sample()
		}
	}
}

// sample runs one gap check, shielding the loop from panics.
func (sem *SystemEventManager) sample() {
	defer func() {
		if r := recover(); r != nil {
			sem.log.Errorw("monitor iteration failed", "panic", r)
		}
	}()

	now := time.Now()
	sem.mu.Lock()
	gap := now.Sub(sem.lastSample)
	sem.lastSample = now
	sem.mu.Unlock()

	if gap > sem.gapThreshold {
		sem.handlePotentialSleepWake(gap)
	}
}

// SimulateTimeGap feeds a synthetic wall-clock gap through the same path a
// detected sleep/wake event takes. Useful for testing and diagnostics.
func (sem *SystemEventManager) SimulateTimeGap(gap time.Duration) {
	sem.handlePotentialSleepWake(gap)
}

// handlePotentialSleepWake compensates the live timer for an observed gap.
func (sem *SystemEventManager) handlePotentialSleepWake(gap time.Duration) {
	sem.log.Infow("detected potential sleep/wake event", "gap", gap)

	state := sem.captureCurrentState()
	if state == nil {
		return
	}
	state.SurvivedSleep = true
	adjustForGap(state, gap)

	if !sem.states.SaveTimerState(state) {
		sem.log.Warnw("failed to persist state after sleep/wake adjustment")
	}
	sem.invokeWakeCallback()
}

// OnSystemSleep handles a real sleep signal: it saves a marked snapshot of
// the live timer before the system suspends.
func (sem *SystemEventManager) OnSystemSleep() {
	sem.log.Infow("system sleep detected")

	if state := sem.captureCurrentState(); state != nil {
		state.SurvivedSleep = true
		if !sem.states.SaveTimerState(state) {
			sem.log.Warnw("failed to persist state before sleep")
		}
	}

	sem.mu.Lock()
	cb := sem.sleepCallback
	sem.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// OnSystemWake handles a real wake signal: it reloads the marked snapshot,
// re-applies elapsed-time compensation, and restores the engine
// conservatively. A timer that was running before sleep is left paused for
// the user to resume explicitly, never silently auto-resumed.
func (sem *SystemEventManager) OnSystemWake() {
	sem.log.Infow("system wake detected")

	state, ok := sem.states.LoadTimerState()
	if ok && state.SurvivedSleep {
		adjustForGap(state, 0)
		sem.restoreEngineState(state)
		if !sem.states.SaveTimerState(state) {
			sem.log.Warnw("failed to persist state after wake")
		}
	}
	sem.invokeWakeCallback()
}

// captureCurrentState snapshots the live engine plus the persisted mode
// selection. Returns nil when there is no engine to observe.
func (sem *SystemEventManager) captureCurrentState() *State {
	if sem.engine == nil {
		return nil
	}
	doc := sem.states.LoadDocument()
	mode := doc.CurrentMode

	state := &State{
		Mode:                 mode,
		RemainingSeconds:     sem.engine.RemainingSeconds(),
		IsRunning:            sem.engine.IsRunning(),
		IsPaused:             sem.engine.IsPaused(),
		TotalDurationSeconds: doc.Duration(mode) * 60,
	}
	state.fillIdentity()
	return state
}

// restoreEngineState conservatively re-arms the engine from a compensated
// snapshot: a previously running timer comes back paused.
func (sem *SystemEventManager) restoreEngineState(state *State) {
	if sem.engine == nil {
		return
	}
	if state.IsRunning && !state.IsPaused && state.RemainingSeconds > 0 {
		sem.log.Infow("timer was running before sleep, leaving paused for user to resume",
			"remaining", state.RemainingSeconds)
		sem.engine.StartWithSeconds(state.RemainingSeconds)
		sem.engine.Pause()
		state.IsRunning = false
		state.IsPaused = true
	}
}

func (sem *SystemEventManager) invokeWakeCallback() {
	sem.mu.Lock()
	cb := sem.wakeCallback
	sem.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// adjustForGap subtracts an observed sleep gap from a snapshot that was
// running, clamping at zero. A timer that runs out during the gap is marked
// complete: not running and not paused.
func adjustForGap(state *State, gap time.Duration) {
	if state == nil || !state.IsRunning || state.IsPaused {
		return
	}
	state.RemainingSeconds -= int(gap.Seconds())
	if state.RemainingSeconds <= 0 {
		state.RemainingSeconds = 0
		state.IsRunning = false
		state.IsPaused = false
	}
	state.Touch()
}
