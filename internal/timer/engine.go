package timer

import (
	"context"
	"sync"
	"time"

	"sharptimer/internal/logger"
)

// Tick cadences and the bounded wait for the tick goroutine to exit.
const (
	defaultTickInterval  = time.Second
	defaultPausePoll     = 100 * time.Millisecond
	defaultStopJoinLimit = time.Second
)

// Engine owns exactly one active countdown and its run/pause state machine.
//
// The countdown runs on a dedicated goroutine that decrements the remaining
// seconds once per tick while running, and polls at a finer interval while
// paused so resume and stop stay responsive. The completion callback fires
// at most once per countdown, on the engine's own goroutine; callers must
// not assume it runs on any particular goroutine.
type Engine struct {
	// opMu serializes start/stop/reset so two tick loops can never run
	// concurrently. mu guards the countdown fields themselves.
	opMu sync.Mutex
	mu   sync.RWMutex

	duration  int // total duration in seconds
	remaining int
	running   bool
	paused    bool

	cancel context.CancelFunc
	done   chan struct{}

	onComplete func()
	log        *logger.Logger

	tickInterval  time.Duration
	pausePoll     time.Duration
	stopJoinLimit time.Duration
}

// NewEngine creates an idle engine. onComplete fires when a countdown
// reaches zero.
func NewEngine(onComplete func(), log *logger.Logger) *Engine {
	return &Engine{
		onComplete:    onComplete,
		log:           log,
		tickInterval:  defaultTickInterval,
		pausePoll:     defaultPausePoll,
		stopJoinLimit: defaultStopJoinLimit,
	}
}

// Start begins a countdown of the given duration in minutes. Non-positive
// durations are rejected as a no-op. Any in-flight countdown is fully
// stopped, including waiting for its goroutine to exit, before the new one
// begins.
func (e *Engine) Start(durationMinutes int) {
	e.StartWithSeconds(durationMinutes * 60)
}

// StartWithSeconds is Start with the duration given directly in seconds,
// used to resume with an exact remaining time across restarts.
func (e *Engine) StartWithSeconds(durationSeconds int) {
	if durationSeconds <= 0 {
		return
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()
	e.halt()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.mu.Lock()
	e.duration = durationSeconds
	e.remaining = durationSeconds
	e.running = true
	e.paused = false
	e.cancel = cancel
	e.done = done
	e.mu.Unlock()

	go e.run(ctx, done)
}

// Pause pauses a running countdown. A no-op in any other state.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running && !e.paused {
		e.paused = true
	}
}

// Resume resumes a paused countdown. A no-op in any other state.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running && e.paused {
		e.paused = false
	}
}

// Stop halts the countdown and returns the engine to idle with zero
// remaining. Idempotent. The tick goroutine has exited by the time Stop
// returns, within a bounded wait.
func (e *Engine) Stop() {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	e.halt()

	e.mu.Lock()
	e.remaining = 0
	e.mu.Unlock()
}

// Reset is Stop; both return the engine to idle with zero remaining.
func (e *Engine) Reset() {
	e.Stop()
}

// RemainingTime returns the remaining time as (minutes, seconds), clamped
// at zero. Safe to call from any goroutine in any state.
func (e *Engine) RemainingTime() (int, int) {
	return SplitMinutesSeconds(e.RemainingSeconds())
}

// RemainingSeconds returns the raw remaining seconds, clamped at zero.
func (e *Engine) RemainingSeconds() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.remaining < 0 {
		return 0
	}
	return e.remaining
}

// Progress returns completion progress in [0, 1]; zero when no duration is
// set.
func (e *Engine) Progress() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.duration == 0 {
		return 0
	}
	p := float64(e.duration-e.remaining) / float64(e.duration)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// TotalDurationSeconds returns the configured length of the current or most
// recent countdown.
func (e *Engine) TotalDurationSeconds() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.duration
}

// IsRunning reports whether a countdown is active and not paused.
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running && !e.paused
}

// IsPaused reports the paused flag, independent of running.
func (e *Engine) IsPaused() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.paused
}

// halt stops any in-flight countdown and waits for its goroutine to exit,
// bounded by stopJoinLimit. Caller holds opMu.
func (e *Engine) halt() {
	e.mu.Lock()
	e.running = false
	e.paused = false
	cancel := e.cancel
	done := e.done
	e.cancel = nil
	e.done = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(e.stopJoinLimit):
			e.log.Warnw("timer loop did not exit within join limit")
		}
	}
}

// run is the tick loop: wait one interval, then decrement. The full remaining
// value is observable for a whole tick after start. It exits when the
// countdown completes, is stopped, or its context is cancelled.
func (e *Engine) run(ctx context.Context, done chan struct{}) {
	for {
		e.mu.RLock()
		if ctx.Err() != nil || !e.running {
			e.mu.RUnlock()
			close(done)
			return
		}
		interval := e.tickInterval
		if e.paused {
			interval = e.pausePoll
		}
		e.mu.RUnlock()

		select {
		case <-ctx.Done():
			close(done)
			return
		case <-time.After(interval):
		}

		e.mu.Lock()
		if ctx.Err() != nil || !e.running {
			e.mu.Unlock()
			close(done)
			return
		}
		if e.paused {
			e.mu.Unlock()
			continue
		}
		e.remaining--
		completed := e.remaining <= 0
		if completed {
			// Completed: leave the state machine idle and detach this
			// goroutine before firing the callback, so the callback may
			// start a new countdown without waiting on us.
			e.remaining = 0
			e.running = false
			e.paused = false
			if e.done == done {
				e.cancel = nil
				e.done = nil
			}
		}
		cb := e.onComplete
		e.mu.Unlock()

		if completed {
			close(done)
			if cb != nil {
				cb()
			}
			return
		}
	}
}
