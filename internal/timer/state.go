package timer

import (
	"time"

	"github.com/google/uuid"
)

// State is the canonical snapshot of one countdown session. It is what gets
// embedded in the settings document and copied into backup files.
type State struct {
	Mode                  Mode   `json:"mode"`
	RemainingSeconds      int    `json:"remaining_seconds"`
	IsRunning             bool   `json:"is_running"`
	IsPaused              bool   `json:"is_paused"`
	SessionID             string `json:"session_id"`
	StartTimestamp        int64  `json:"start_timestamp"`
	LastUpdateTimestamp   int64  `json:"last_update_timestamp"`
	TotalDurationSeconds  int    `json:"total_duration_seconds"`
	SurvivedSleep         bool   `json:"survived_sleep"`
	UnexpectedTermination bool   `json:"unexpected_termination"`
}

// NewState creates a fresh snapshot for a mode that is about to start:
// the full duration is still remaining and a new session identity is minted.
func NewState(mode Mode, totalDurationSeconds int) *State {
	now := time.Now().Unix()
	return &State{
		Mode:                 mode,
		RemainingSeconds:     totalDurationSeconds,
		SessionID:            uuid.NewString(),
		StartTimestamp:       now,
		LastUpdateTimestamp:  now,
		TotalDurationSeconds: totalDurationSeconds,
	}
}

// Validate checks every invariant a snapshot must satisfy before it may be
// trusted. Persistence treats anything that fails this as absent.
func (s *State) Validate() bool {
	if s == nil {
		return false
	}
	return s.Mode.Valid() &&
		s.RemainingSeconds >= 0 &&
		s.TotalDurationSeconds > 0 &&
		s.RemainingSeconds <= s.TotalDurationSeconds &&
		!(s.IsRunning && s.IsPaused) &&
		s.SessionID != "" &&
		s.StartTimestamp > 0
}

// Touch refreshes the last-update timestamp.
func (s *State) Touch() {
	s.LastUpdateTimestamp = time.Now().Unix()
}

// fillIdentity backfills a missing session id or start timestamp on a
// snapshot decoded from storage, so old records remain loadable.
func (s *State) fillIdentity() {
	if s.SessionID == "" {
		s.SessionID = uuid.NewString()
	}
	if s.StartTimestamp == 0 {
		s.StartTimestamp = time.Now().Unix()
	}
	s.Touch()
}

// Clone returns an independent copy of the snapshot.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
