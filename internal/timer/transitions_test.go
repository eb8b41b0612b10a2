package timer

import (
	"testing"
	"time"

	"sharptimer/internal/logger"
)

func newTestTransitionManager(t *testing.T) *TransitionManager {
	t.Helper()
	return NewTransitionManager(newTestStateManager(t), logger.NewNop())
}

func TestDefaultTransitions(t *testing.T) {
	tm := newTestTransitionManager(t)

	cases := []struct {
		from Mode
		to   Mode
	}{
		{ModeWork, ModeRestEyes},
		{ModeRestEyes, ModeWork},
		{ModeLongRest, ModeWork},
	}
	for _, tc := range cases {
		cfg, ok := tm.Config(tc.from)
		if !ok {
			t.Fatalf("Expected a rule for %s", tc.from)
		}
		if cfg.ToMode != tc.to {
			t.Errorf("Expected %s to switch to %s, got %s", tc.from, tc.to, cfg.ToMode)
		}
		if !cfg.Enabled {
			t.Errorf("Expected default rule for %s to be enabled", tc.from)
		}
		if cfg.TargetState != TargetPaused {
			t.Errorf("Expected default target state paused for %s, got %s", tc.from, cfg.TargetState)
		}
		if cfg.DelayMS != defaultTransitionDelayMS {
			t.Errorf("Expected default delay %d for %s, got %d", defaultTransitionDelayMS, tc.from, cfg.DelayMS)
		}
	}
}

func TestExecuteAutoSwitch(t *testing.T) {
	tm := newTestTransitionManager(t)

	state := NewState(ModeWork, 1500)
	state.RemainingSeconds = 0

	started := time.Now()
	result := tm.ExecuteAutoSwitch(ModeWork, state)
	elapsed := time.Since(started)

	if result == nil {
		t.Fatal("Expected a result for an enabled rule")
	}
	if !result.Success {
		t.Fatalf("Expected auto-switch to succeed, got error %q", result.ErrorMessage)
	}
	if result.PreviousMode != ModeWork || result.NewMode != ModeRestEyes {
		t.Errorf("Expected work to switch to rest_eyes, got %s to %s", result.PreviousMode, result.NewMode)
	}

	if state.Mode != ModeRestEyes {
		t.Errorf("Expected state mode to be rest_eyes, got %s", state.Mode)
	}
	if !state.IsPaused || state.IsRunning {
		t.Error("Expected switched state to land paused")
	}

	// The default pacing delay must have been honored.
	if elapsed < defaultTransitionDelayMS*time.Millisecond {
		t.Errorf("Expected at least the %dms pacing delay, took %v", defaultTransitionDelayMS, elapsed)
	}
	if result.TransitionTimeMS < defaultTransitionDelayMS {
		t.Errorf("Expected reported transition time to include the delay, got %dms", result.TransitionTimeMS)
	}
}

func TestExecuteAutoSwitchDisabled(t *testing.T) {
	tm := newTestTransitionManager(t)

	if !tm.SetEnabled(ModeWork, false) {
		t.Fatal("Expected disabling the rule to succeed")
	}

	state := NewState(ModeWork, 1500)
	before := *state

	if result := tm.ExecuteAutoSwitch(ModeWork, state); result != nil {
		t.Errorf("Expected nil result for a disabled rule, got %+v", result)
	}
	if *state != before {
		t.Error("Expected a disabled rule to leave the state untouched")
	}
}

func TestExecuteAutoSwitchNilState(t *testing.T) {
	tm := newTestTransitionManager(t)

	result := tm.ExecuteAutoSwitch(ModeWork, nil)
	if result == nil {
		t.Fatal("Expected a failure result for a nil state")
	}
	if result.Success {
		t.Error("Expected failure for a nil state")
	}
	if result.NewMode != ModeWork {
		t.Errorf("Expected failed switch to stay on the completed mode, got %s", result.NewMode)
	}
}

func TestExecuteAutoSwitchUnknownMode(t *testing.T) {
	tm := newTestTransitionManager(t)

	if result := tm.ExecuteAutoSwitch(Mode("nap"), NewState(ModeWork, 1500)); result != nil {
		t.Errorf("Expected nil result for an unknown source mode, got %+v", result)
	}
}

func TestExecuteAutoSwitchTargetRunning(t *testing.T) {
	tm := newTestTransitionManager(t)

	if !tm.SetTargetState(ModeWork, TargetRunning) {
		t.Fatal("Expected target state update to succeed")
	}
	if !tm.SetDelay(ModeWork, 0) {
		t.Fatal("Expected delay update to succeed")
	}

	state := NewState(ModeWork, 1500)
	result := tm.ExecuteAutoSwitch(ModeWork, state)
	if result == nil || !result.Success {
		t.Fatal("Expected auto-switch to succeed")
	}
	if !state.IsRunning || state.IsPaused {
		t.Error("Expected switched state to land running")
	}
}

func TestSetDelayBounds(t *testing.T) {
	tm := newTestTransitionManager(t)

	if tm.SetDelay(ModeWork, -1) {
		t.Error("Expected negative delay to be rejected")
	}
	if tm.SetDelay(ModeWork, MaxTransitionDelayMS+1) {
		t.Error("Expected delay above the maximum to be rejected")
	}
	if !tm.SetDelay(ModeWork, MinTransitionDelayMS) {
		t.Error("Expected minimum delay to be accepted")
	}
	if !tm.SetDelay(ModeWork, MaxTransitionDelayMS) {
		t.Error("Expected maximum delay to be accepted")
	}
}

func TestSetTargetStateRejectsUnknown(t *testing.T) {
	tm := newTestTransitionManager(t)

	if tm.SetTargetState(ModeWork, TargetState("stopped")) {
		t.Error("Expected unknown target state to be rejected")
	}
}

func TestTransitionConfigPersists(t *testing.T) {
	states := newTestStateManager(t)
	tm := NewTransitionManager(states, logger.NewNop())

	if !tm.SetEnabled(ModeWork, false) {
		t.Fatal("Expected disable to succeed")
	}
	if !tm.SetDelay(ModeRestEyes, 250) {
		t.Fatal("Expected delay update to succeed")
	}

	// A fresh manager over the same document must see the saved config.
	reloaded := NewTransitionManager(states, logger.NewNop())

	cfg, ok := reloaded.Config(ModeWork)
	if !ok || cfg.Enabled {
		t.Error("Expected the disabled rule to survive reload")
	}
	cfg, ok = reloaded.Config(ModeRestEyes)
	if !ok || cfg.DelayMS != 250 {
		t.Errorf("Expected delay 250 to survive reload, got %d", cfg.DelayMS)
	}
}

func TestNextMode(t *testing.T) {
	tm := newTestTransitionManager(t)

	next, ok := tm.NextMode(ModeWork)
	if !ok || next != ModeRestEyes {
		t.Errorf("Expected next mode rest_eyes, got %s (ok=%v)", next, ok)
	}

	tm.SetEnabled(ModeWork, false)
	if _, ok := tm.NextMode(ModeWork); ok {
		t.Error("Expected no next mode for a disabled rule")
	}
}

func TestResetDefaults(t *testing.T) {
	tm := newTestTransitionManager(t)

	tm.SetEnabled(ModeWork, false)
	tm.SetDelay(ModeWork, 4000)

	tm.ResetDefaults()

	cfg, ok := tm.Config(ModeWork)
	if !ok {
		t.Fatal("Expected a rule for work after reset")
	}
	if !cfg.Enabled || cfg.DelayMS != defaultTransitionDelayMS {
		t.Errorf("Expected defaults restored, got enabled=%v delay=%d", cfg.Enabled, cfg.DelayMS)
	}
}

func TestAllTransitionKeys(t *testing.T) {
	tm := newTestTransitionManager(t)

	all := tm.All()
	for _, key := range []string{"work_to_rest_eyes", "rest_eyes_to_work", "long_rest_to_work"} {
		if _, ok := all[key]; !ok {
			t.Errorf("Expected rule key %q to be present", key)
		}
	}
	if len(all) != 3 {
		t.Errorf("Expected exactly 3 rules, got %d", len(all))
	}
}
