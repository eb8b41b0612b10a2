package timer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"sharptimer/internal/logger"
)

func newTestStateManager(t *testing.T) *StateManager {
	t.Helper()
	m, err := NewStateManager(t.TempDir(), logger.NewNop())
	if err != nil {
		t.Fatalf("Expected no error creating state manager, got %v", err)
	}
	return m
}

func TestLoadDocumentDefaultsWhenMissing(t *testing.T) {
	m := newTestStateManager(t)

	doc := m.LoadDocument()

	if doc.Duration(ModeWork) != DefaultWorkMinutes {
		t.Errorf("Expected default work duration %d, got %d", DefaultWorkMinutes, doc.Duration(ModeWork))
	}
	if doc.Duration(ModeRestEyes) != DefaultRestEyesMinutes {
		t.Errorf("Expected default rest eyes duration %d, got %d", DefaultRestEyesMinutes, doc.Duration(ModeRestEyes))
	}
	if doc.Duration(ModeLongRest) != DefaultLongRestMinutes {
		t.Errorf("Expected default long rest duration %d, got %d", DefaultLongRestMinutes, doc.Duration(ModeLongRest))
	}
	if doc.CurrentMode != ModeWork {
		t.Errorf("Expected default mode to be work, got %s", doc.CurrentMode)
	}
	if doc.TimerState != nil {
		t.Error("Expected no timer state in a fresh document")
	}
}

func TestSaveAndLoadTimerState(t *testing.T) {
	m := newTestStateManager(t)

	state := NewState(ModeWork, 1500)
	state.RemainingSeconds = 720
	state.IsPaused = true

	if !m.SaveTimerState(state) {
		t.Fatal("Expected save to succeed")
	}

	loaded, ok := m.LoadTimerState()
	if !ok {
		t.Fatal("Expected to load the saved state")
	}
	if loaded.Mode != ModeWork {
		t.Errorf("Expected mode work, got %s", loaded.Mode)
	}
	if loaded.RemainingSeconds != 720 {
		t.Errorf("Expected remaining 720, got %d", loaded.RemainingSeconds)
	}
	if !loaded.IsPaused {
		t.Error("Expected loaded state to be paused")
	}
	if loaded.SessionID != state.SessionID {
		t.Errorf("Expected session id to survive the round trip, got %s", loaded.SessionID)
	}
}

func TestLoadTimerStateRejectsInvalidSnapshot(t *testing.T) {
	m := newTestStateManager(t)

	state := NewState(ModeWork, 1500)
	state.RemainingSeconds = 9000
	if !m.SaveTimerState(state) {
		t.Fatal("Expected save to succeed")
	}

	if _, ok := m.LoadTimerState(); ok {
		t.Error("Expected invalid snapshot to load as absent")
	}
}

func TestLoadDocumentCorruptFile(t *testing.T) {
	dir := t.TempDir()
	m, err := NewStateManager(dir, logger.NewNop())
	if err != nil {
		t.Fatalf("Expected no error creating state manager, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, settingsFileName), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("Expected no error writing corrupt file, got %v", err)
	}

	doc := m.LoadDocument()
	if doc.Duration(ModeWork) != DefaultWorkMinutes {
		t.Error("Expected corrupt settings to fall back to defaults")
	}

	if _, ok := m.LoadTimerState(); ok {
		t.Error("Expected no timer state from corrupt settings")
	}
}

func TestClearTimerState(t *testing.T) {
	m := newTestStateManager(t)

	if !m.SaveTimerState(NewState(ModeWork, 1500)) {
		t.Fatal("Expected save to succeed")
	}
	if !m.ClearTimerState() {
		t.Fatal("Expected clear to succeed")
	}

	if _, ok := m.LoadTimerState(); ok {
		t.Error("Expected no timer state after clear")
	}

	// Clearing settings must not clear mode or durations.
	if m.CurrentMode() != ModeWork {
		t.Errorf("Expected mode to survive clear, got %s", m.CurrentMode())
	}
}

func TestSaveTimerStateNil(t *testing.T) {
	m := newTestStateManager(t)

	if m.SaveTimerState(nil) {
		t.Error("Expected saving nil state to fail")
	}
}

func TestSetCurrentMode(t *testing.T) {
	m := newTestStateManager(t)

	if !m.SetCurrentMode(ModeLongRest) {
		t.Fatal("Expected mode update to succeed")
	}
	if m.CurrentMode() != ModeLongRest {
		t.Errorf("Expected long_rest, got %s", m.CurrentMode())
	}

	if m.SetCurrentMode(Mode("nap")) {
		t.Error("Expected invalid mode to be rejected")
	}
	if m.CurrentMode() != ModeLongRest {
		t.Error("Expected rejected update to leave the mode untouched")
	}
}

func TestSetDurations(t *testing.T) {
	m := newTestStateManager(t)

	err := m.SetDurations(map[Mode]int{
		ModeWork:     45,
		ModeRestEyes: 10,
	})
	if err != nil {
		t.Fatalf("Expected no error setting durations, got %v", err)
	}
	if m.Duration(ModeWork) != 45 {
		t.Errorf("Expected work duration 45, got %d", m.Duration(ModeWork))
	}
	if m.Duration(ModeRestEyes) != 10 {
		t.Errorf("Expected rest eyes duration 10, got %d", m.Duration(ModeRestEyes))
	}
	if m.Duration(ModeLongRest) != DefaultLongRestMinutes {
		t.Errorf("Expected unset long rest to keep default, got %d", m.Duration(ModeLongRest))
	}
}

func TestSetDurationsRejectsWholeBatch(t *testing.T) {
	m := newTestStateManager(t)

	err := m.SetDurations(map[Mode]int{
		ModeWork:     30,
		ModeRestEyes: 90,
	})
	if err == nil {
		t.Fatal("Expected out-of-range duration to reject the batch")
	}

	// The valid half of the batch must not have been applied.
	if m.Duration(ModeWork) != DefaultWorkMinutes {
		t.Errorf("Expected work duration to stay at default, got %d", m.Duration(ModeWork))
	}
}

func TestSaveWritesMetadata(t *testing.T) {
	dir := t.TempDir()
	m, err := NewStateManager(dir, logger.NewNop())
	if err != nil {
		t.Fatalf("Expected no error creating state manager, got %v", err)
	}

	if !m.SaveTimerState(NewState(ModeWork, 1500)) {
		t.Fatal("Expected save to succeed")
	}

	data, err := os.ReadFile(filepath.Join(dir, settingsFileName))
	if err != nil {
		t.Fatalf("Expected settings file on disk, got %v", err)
	}

	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		t.Fatalf("Expected valid JSON on disk, got %v", err)
	}
	if doc.Metadata == nil {
		t.Fatal("Expected metadata to be written")
	}
	if doc.Metadata.AppVersion != AppVersion {
		t.Errorf("Expected app version %s, got %s", AppVersion, doc.Metadata.AppVersion)
	}
	if doc.Metadata.LastSaved <= 0 {
		t.Error("Expected last saved timestamp to be set")
	}
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	m, err := NewStateManager(dir, logger.NewNop())
	if err != nil {
		t.Fatalf("Expected no error creating state manager, got %v", err)
	}

	if !m.SaveTimerState(NewState(ModeWork, 1500)) {
		t.Fatal("Expected save to succeed")
	}

	if _, err := os.Stat(filepath.Join(dir, settingsFileName+".tmp")); !os.IsNotExist(err) {
		t.Error("Expected no temp file to remain after save")
	}
}

func TestConcurrentDocumentUpdates(t *testing.T) {
	m := newTestStateManager(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			state := NewState(ModeWork, 1500)
			state.RemainingSeconds = n
			m.SaveTimerState(state)
			m.LoadTimerState()
			m.CurrentMode()
		}(i + 1)
	}
	wg.Wait()

	// Whatever write won, the document must still be coherent.
	if _, ok := m.LoadTimerState(); !ok {
		t.Error("Expected a valid timer state after concurrent saves")
	}
}
