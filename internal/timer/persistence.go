package timer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sharptimer/internal/logger"
)

const (
	settingsFileName = "settings.json"
	backupDirName    = "backups"
)

// StateManager owns the persisted settings document and the timer snapshot
// embedded inside it. Every write goes through a temp-file-then-rename so a
// crash mid-write can never corrupt the previous valid document. A failed
// persistence call is reported through its return value and never interrupts
// the running countdown.
type StateManager struct {
	mu           sync.Mutex
	settingsPath string
	backupDir    string
	log          *logger.Logger
}

// NewStateManager creates the data directory layout and returns a manager
// rooted at dataDir.
func NewStateManager(dataDir string, log *logger.Logger) (*StateManager, error) {
	backupDir := filepath.Join(dataDir, backupDirName)
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &StateManager{
		settingsPath: filepath.Join(dataDir, settingsFileName),
		backupDir:    backupDir,
		log:          log,
	}, nil
}

// LoadDocument returns the persisted settings document. A missing or corrupt
// file is not an error: defaults are returned and the condition is logged.
func (m *StateManager) LoadDocument() *Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadDocumentLocked()
}

// UpdateDocument applies fn to the current document and writes the result
// atomically. The whole read-modify-write runs under the manager lock, so
// concurrent updates never interleave.
func (m *StateManager) UpdateDocument(fn func(*Document)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc := m.loadDocumentLocked()
	fn(doc)
	return m.saveDocumentLocked(doc)
}

// SaveTimerState embeds the snapshot in the settings document and persists it.
func (m *StateManager) SaveTimerState(state *State) bool {
	if state == nil {
		return false
	}
	return m.UpdateDocument(func(doc *Document) {
		doc.TimerState = state.Clone()
	})
}

// LoadTimerState returns the embedded snapshot, or (nil, false) when it is
// missing or fails validation. Callers fall back to defaults on false.
func (m *StateManager) LoadTimerState() (*State, bool) {
	doc := m.LoadDocument()
	if doc.TimerState == nil {
		return nil, false
	}
	state := doc.TimerState.Clone()
	state.fillIdentity()
	if !state.Validate() {
		m.log.Warnw("invalid timer state found, using defaults",
			"mode", state.Mode, "remaining", state.RemainingSeconds)
		return nil, false
	}
	return state, true
}

// ClearTimerState removes the embedded snapshot from the document.
func (m *StateManager) ClearTimerState() bool {
	return m.UpdateDocument(func(doc *Document) {
		doc.TimerState = nil
	})
}

// CurrentMode returns the persisted mode selection.
func (m *StateManager) CurrentMode() Mode {
	return m.LoadDocument().CurrentMode
}

// SetCurrentMode persists the mode selection side-channel.
func (m *StateManager) SetCurrentMode(mode Mode) bool {
	if !mode.Valid() {
		return false
	}
	return m.UpdateDocument(func(doc *Document) {
		doc.CurrentMode = mode
	})
}

// Duration returns the configured minutes for a mode.
func (m *StateManager) Duration(mode Mode) int {
	return m.LoadDocument().Duration(mode)
}

// SetDurations applies a batch of per-mode minutes. All values are validated
// before any is applied; an out-of-range value rejects the whole batch.
func (m *StateManager) SetDurations(minutes map[Mode]int) error {
	for mode, v := range minutes {
		if !mode.Valid() {
			return fmt.Errorf("invalid mode %q", string(mode))
		}
		if v < MinDurationMinutes || v > MaxDurationMinutes {
			return fmt.Errorf("%s duration must be between %d and %d minutes, got %d",
				mode.DisplayName(), MinDurationMinutes, MaxDurationMinutes, v)
		}
	}
	if ok := m.UpdateDocument(func(doc *Document) {
		for mode, v := range minutes {
			doc.SetDuration(mode, v)
		}
	}); !ok {
		return errors.New("failed to persist durations")
	}
	return nil
}

// loadDocumentLocked reads and sanitizes the document. Caller holds mu.
func (m *StateManager) loadDocumentLocked() *Document {
	data, err := os.ReadFile(m.settingsPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			m.log.Warnw("could not read settings, using defaults", "path", m.settingsPath, "err", err)
		}
		return DefaultDocument()
	}

	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		m.log.Warnw("corrupt settings document, using defaults", "path", m.settingsPath, "err", err)
		return DefaultDocument()
	}
	doc.sanitize()
	return doc
}

// saveDocumentLocked writes the document via temp file + atomic rename.
// Caller holds mu.
func (m *StateManager) saveDocumentLocked(doc *Document) bool {
	doc.Metadata = &Metadata{
		AppVersion:  AppVersion,
		LastSaved:   time.Now().Unix(),
		BackupCount: m.countBackups(),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		m.log.Errorw("failed to encode settings document", "err", err)
		return false
	}

	tmpPath := m.settingsPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		m.log.Errorw("failed to write settings document", "path", tmpPath, "err", err)
		return false
	}
	if err := os.Rename(tmpPath, m.settingsPath); err != nil {
		m.log.Errorw("failed to replace settings document", "path", m.settingsPath, "err", err)
		_ = os.Remove(tmpPath)
		return false
	}
	return true
}
