package timer

import (
	"fmt"
	"sync"
	"time"

	"sharptimer/internal/logger"
)

// TargetState is the run state a timer lands in after an auto-switch.
type TargetState string

const (
	TargetPaused  TargetState = "paused"
	TargetRunning TargetState = "running"
)

// Transition delay bounds in milliseconds.
const (
	MinTransitionDelayMS = 0
	MaxTransitionDelayMS = 5000

	defaultTransitionDelayMS = 100
)

// TransitionConfig is the persisted shape of one transition rule, stored in
// the settings document under the key "{from_mode}_to_{to_mode}".
type TransitionConfig struct {
	Enabled           bool        `json:"enabled"`
	TargetState       TargetState `json:"target_state"`
	TransitionDelayMS int         `json:"transition_delay_ms"`
}

// Transition is one auto-switch rule. Rules are keyed uniquely by source
// mode: at most one rule can fire for a completed mode.
type Transition struct {
	FromMode    Mode
	ToMode      Mode
	Enabled     bool
	TargetState TargetState
	DelayMS     int
}

// TransitionResult records the outcome of one auto-switch attempt. Failures
// are reported here, never as panics or errors crossing the timer-completion
// path.
type TransitionResult struct {
	Success          bool
	PreviousMode     Mode
	NewMode          Mode
	TransitionTimeMS int64
	ErrorMessage     string
}

// TransitionManager decides and executes the automatic mode change when a
// countdown completes. Configuration mutations persist to the settings
// document and take effect on the next completion.
type TransitionManager struct {
	mu          sync.RWMutex
	states      *StateManager
	transitions map[Mode]*Transition
	log         *logger.Logger
}

// NewTransitionManager builds a manager with the default rules, overlaid
// with whatever rule configuration the settings document carries.
func NewTransitionManager(states *StateManager, log *logger.Logger) *TransitionManager {
	tm := &TransitionManager{
		states:      states,
		transitions: defaultTransitions(),
		log:         log,
	}
	tm.loadPersisted()
	return tm
}

// The three terminal auto transitions; the set of sources is fixed.
func defaultTransitions() map[Mode]*Transition {
	return map[Mode]*Transition{
		ModeWork:     {FromMode: ModeWork, ToMode: ModeRestEyes, Enabled: true, TargetState: TargetPaused, DelayMS: defaultTransitionDelayMS},
		ModeRestEyes: {FromMode: ModeRestEyes, ToMode: ModeWork, Enabled: true, TargetState: TargetPaused, DelayMS: defaultTransitionDelayMS},
		ModeLongRest: {FromMode: ModeLongRest, ToMode: ModeWork, Enabled: true, TargetState: TargetPaused, DelayMS: defaultTransitionDelayMS},
	}
}

// transitionKey is the settings-document key for a rule.
func transitionKey(from, to Mode) string {
	return fmt.Sprintf("%s_to_%s", from, to)
}

// loadPersisted overlays persisted rule configuration onto the defaults.
func (tm *TransitionManager) loadPersisted() {
	doc := tm.states.LoadDocument()
	if doc.ModeTransitions == nil {
		return
	}
	for _, t := range tm.transitions {
		cfg, ok := doc.ModeTransitions[transitionKey(t.FromMode, t.ToMode)]
		if !ok {
			continue
		}
		t.Enabled = cfg.Enabled
		if cfg.TargetState == TargetPaused || cfg.TargetState == TargetRunning {
			t.TargetState = cfg.TargetState
		}
		if cfg.TransitionDelayMS >= MinTransitionDelayMS && cfg.TransitionDelayMS <= MaxTransitionDelayMS {
			t.DelayMS = cfg.TransitionDelayMS
		}
	}
}

// ExecuteAutoSwitch applies the rule for the completed mode to the given
// snapshot. Returns nil when no enabled rule exists, leaving the snapshot
// untouched. The configured delay blocks the calling goroutine, so this must
// run off the interactive path.
func (tm *TransitionManager) ExecuteAutoSwitch(completedMode Mode, state *State) *TransitionResult {
	started := time.Now()

	tm.mu.RLock()
	rule, ok := tm.transitions[completedMode]
	var t Transition
	if ok {
		t = *rule
	}
	tm.mu.RUnlock()

	if !ok || !t.Enabled {
		return nil
	}

	fail := func(msg string) *TransitionResult {
		return &TransitionResult{
			Success:          false,
			PreviousMode:     completedMode,
			NewMode:          completedMode,
			TransitionTimeMS: time.Since(started).Milliseconds(),
			ErrorMessage:     msg,
		}
	}

	if state == nil {
		return fail("no timer state to switch")
	}
	if !t.ToMode.Valid() {
		return fail(fmt.Sprintf("transition target mode %q is not valid", string(t.ToMode)))
	}
	if t.TargetState != TargetPaused && t.TargetState != TargetRunning {
		return fail(fmt.Sprintf("transition target state %q is not valid", string(t.TargetState)))
	}

	// Deliberate pacing delay; bounded by MaxTransitionDelayMS and not
	// cancellable once begun.
	if t.DelayMS > 0 {
		time.Sleep(time.Duration(t.DelayMS) * time.Millisecond)
	}

	state.Mode = t.ToMode
	state.IsPaused = t.TargetState == TargetPaused
	state.IsRunning = t.TargetState == TargetRunning
	state.Touch()

	if !tm.states.SetCurrentMode(t.ToMode) {
		tm.log.Warnw("failed to persist mode selection after auto-switch", "mode", t.ToMode)
	}

	return &TransitionResult{
		Success:          true,
		PreviousMode:     completedMode,
		NewMode:          t.ToMode,
		TransitionTimeMS: time.Since(started).Milliseconds(),
	}
}

// NextMode returns the mode an enabled rule would switch to from the given
// mode.
func (tm *TransitionManager) NextMode(from Mode) (Mode, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	if t, ok := tm.transitions[from]; ok && t.Enabled {
		return t.ToMode, true
	}
	return "", false
}

// Config returns a copy of the rule for a source mode.
func (tm *TransitionManager) Config(from Mode) (Transition, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	if t, ok := tm.transitions[from]; ok {
		return *t, true
	}
	return Transition{}, false
}

// All returns a copy of every rule keyed by "{from}_to_{to}".
func (tm *TransitionManager) All() map[string]Transition {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	out := make(map[string]Transition, len(tm.transitions))
	for _, t := range tm.transitions {
		out[transitionKey(t.FromMode, t.ToMode)] = *t
	}
	return out
}

// SetEnabled enables or disables the rule for a source mode.
func (tm *TransitionManager) SetEnabled(from Mode, enabled bool) bool {
	return tm.update(from, func(t *Transition) bool {
		t.Enabled = enabled
		return true
	})
}

// SetDelay sets the pacing delay for a source mode's rule. Values outside
// [0, 5000] ms are rejected.
func (tm *TransitionManager) SetDelay(from Mode, delayMS int) bool {
	if delayMS < MinTransitionDelayMS || delayMS > MaxTransitionDelayMS {
		return false
	}
	return tm.update(from, func(t *Transition) bool {
		t.DelayMS = delayMS
		return true
	})
}

// SetTargetState sets the post-switch run state for a source mode's rule.
func (tm *TransitionManager) SetTargetState(from Mode, target TargetState) bool {
	if target != TargetPaused && target != TargetRunning {
		return false
	}
	return tm.update(from, func(t *Transition) bool {
		t.TargetState = target
		return true
	})
}

// ResetDefaults restores and persists the default rules.
func (tm *TransitionManager) ResetDefaults() {
	tm.mu.Lock()
	tm.transitions = defaultTransitions()
	tm.mu.Unlock()

	tm.mu.RLock()
	defer tm.mu.RUnlock()
	for _, t := range tm.transitions {
		tm.persist(*t)
	}
}

// update mutates the rule for a source mode and persists the result.
func (tm *TransitionManager) update(from Mode, fn func(*Transition) bool) bool {
	tm.mu.Lock()
	t, ok := tm.transitions[from]
	if !ok || !fn(t) {
		tm.mu.Unlock()
		return false
	}
	snapshot := *t
	tm.mu.Unlock()

	tm.persist(snapshot)
	return true
}

// persist writes one rule into the settings document.
func (tm *TransitionManager) persist(t Transition) {
	key := transitionKey(t.FromMode, t.ToMode)
	ok := tm.states.UpdateDocument(func(doc *Document) {
		if doc.ModeTransitions == nil {
			doc.ModeTransitions = make(map[string]TransitionConfig)
		}
		doc.ModeTransitions[key] = TransitionConfig{
			Enabled:           t.Enabled,
			TargetState:       t.TargetState,
			TransitionDelayMS: t.DelayMS,
		}
	})
	if !ok {
		tm.log.Warnw("failed to persist transition config", "key", key)
	}
}
