package timer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	backupFilePrefix = "timer_state_backup_"
	backupFileSuffix = ".json"

	// maxBackups is how many rolling backups are retained; older ones are
	// pruned oldest-first.
	maxBackups = 5
)

// backupRecord is the on-disk shape of one backup file.
type backupRecord struct {
	TimerState      *State `json:"timer_state"`
	BackupTimestamp int64  `json:"backup_timestamp"`
	AppVersion      string `json:"app_version"`
}

// CreateBackup writes a new timestamped backup of the snapshot and prunes old
// ones. The snapshot is written as given, without validation; validation
// happens on the read side.
func (m *StateManager) CreateBackup(state *State) bool {
	if state == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// Nanosecond timestamps keep filenames unique and sortable even for
	// backups created within the same second.
	ts := time.Now().UnixNano()
	record := backupRecord{
		TimerState:      state.Clone(),
		BackupTimestamp: ts,
		AppVersion:      AppVersion,
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		m.log.Errorw("failed to encode backup", "err", err)
		return false
	}

	name := backupFilePrefix + formatBackupTimestamp(ts) + backupFileSuffix
	path := filepath.Join(m.backupDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		m.log.Errorw("failed to write backup", "path", path, "err", err)
		return false
	}

	m.pruneBackupsLocked()
	return true
}

// RestoreFromBackup reads the most recent backup and returns its snapshot,
// or (nil, false) when no valid backup exists.
func (m *StateManager) RestoreFromBackup() (*State, bool) {
	m.mu.Lock()
	names := m.backupNamesLocked()
	m.mu.Unlock()

	if len(names) == 0 {
		return nil, false
	}
	state := m.readBackupState(names[len(names)-1])
	if state == nil {
		return nil, false
	}
	return state, true
}

// StateHistory returns up to limit snapshots from the most recent backups,
// oldest first. Unreadable or corrupt backup files are skipped silently so a
// single bad file never aborts history retrieval.
func (m *StateManager) StateHistory(limit int) []*State {
	if limit <= 0 {
		limit = 10
	}
	m.mu.Lock()
	names := m.backupNamesLocked()
	m.mu.Unlock()

	if len(names) > limit {
		names = names[len(names)-limit:]
	}
	states := make([]*State, 0, len(names))
	for _, name := range names {
		if state := m.readBackupState(name); state != nil {
			states = append(states, state)
		}
	}
	return states
}

// readBackupState decodes and validates one backup file, returning nil on any
// failure.
func (m *StateManager) readBackupState(name string) *State {
	data, err := os.ReadFile(filepath.Join(m.backupDir, name))
	if err != nil {
		return nil
	}
	record := backupRecord{}
	if err := json.Unmarshal(data, &record); err != nil {
		return nil
	}
	if record.TimerState == nil {
		return nil
	}
	state := record.TimerState
	state.fillIdentity()
	if !state.Validate() {
		return nil
	}
	return state
}

// backupNamesLocked lists backup filenames sorted oldest to newest. The
// embedded timestamps are fixed width, so lexicographic order is time order.
func (m *StateManager) backupNamesLocked() []string {
	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, backupFilePrefix) || !strings.HasSuffix(name, backupFileSuffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// pruneBackupsLocked deletes the oldest backups beyond the retention limit.
func (m *StateManager) pruneBackupsLocked() {
	names := m.backupNamesLocked()
	if len(names) <= maxBackups {
		return
	}
	for _, name := range names[:len(names)-maxBackups] {
		if err := os.Remove(filepath.Join(m.backupDir, name)); err != nil {
			m.log.Warnw("failed to prune old backup", "name", name, "err", err)
		}
	}
}

// countBackups returns the number of backup files on disk.
func (m *StateManager) countBackups() int {
	return len(m.backupNamesLocked())
}

// formatBackupTimestamp renders a nanosecond timestamp at fixed width so
// filename order matches creation order.
func formatBackupTimestamp(ts int64) string {
	return fmt.Sprintf("%019d", ts)
}
