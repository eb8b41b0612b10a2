package timer

import (
	"sync"
	"time"
)

// SessionRecord is one completed session.
type SessionRecord struct {
	Mode            Mode      `json:"mode"`
	DurationSeconds int       `json:"duration_seconds"`
	CompletedAt     time.Time `json:"completed_at"`
}

// StatisticsManager tracks completed sessions for the lifetime of the
// process. Counts and accumulated time are kept per mode alongside a
// bounded-free history of records.
type StatisticsManager struct {
	mu sync.RWMutex

	counts  map[Mode]int
	seconds map[Mode]int
	history []SessionRecord
}

// NewStatisticsManager creates an empty statistics manager.
func NewStatisticsManager() *StatisticsManager {
	return &StatisticsManager{
		counts:  make(map[Mode]int),
		seconds: make(map[Mode]int),
	}
}

// Record registers a completed session.
func (sm *StatisticsManager) Record(mode Mode, durationSeconds int) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.counts[mode]++
	sm.seconds[mode] += durationSeconds
	sm.history = append(sm.history, SessionRecord{
		Mode:            mode,
		DurationSeconds: durationSeconds,
		CompletedAt:     time.Now(),
	})
}

// Counts returns completed session counts per mode.
func (sm *StatisticsManager) Counts() map[Mode]int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make(map[Mode]int, len(sm.counts))
	for m, c := range sm.counts {
		out[m] = c
	}
	return out
}

// TotalSeconds returns accumulated session time per mode.
func (sm *StatisticsManager) TotalSeconds() map[Mode]int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make(map[Mode]int, len(sm.seconds))
	for m, s := range sm.seconds {
		out[m] = s
	}
	return out
}

// Recent returns the most recent count session records, newest last.
func (sm *StatisticsManager) Recent(count int) []SessionRecord {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if count <= 0 || count > len(sm.history) {
		count = len(sm.history)
	}
	out := make([]SessionRecord, count)
	copy(out, sm.history[len(sm.history)-count:])
	return out
}

// Reset clears all statistics.
func (sm *StatisticsManager) Reset() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.counts = make(map[Mode]int)
	sm.seconds = make(map[Mode]int)
	sm.history = nil
}
