package timer

import (
	"fmt"
	"strconv"
	"strings"
)

// AppVersion is the version tag written into persisted documents and backups.
const AppVersion = "1.1.0"

// AudioConfig configures the completion sound.
type AudioConfig struct {
	Enabled         bool     `json:"enabled"`
	DurationSeconds int      `json:"duration_seconds"`
	PrimarySound    string   `json:"primary_sound"`
	FallbackSounds  []string `json:"fallback_sounds"`
	Volume          float64  `json:"volume"`
}

// Metadata describes the persisted document itself.
type Metadata struct {
	AppVersion  string `json:"app_version"`
	LastSaved   int64  `json:"last_saved"`
	BackupCount int    `json:"backup_count"`
}

// Document is the full persisted settings record. The live timer snapshot is
// embedded under timer_state; everything else is user configuration.
type Document struct {
	WorkDuration         int                         `json:"work_duration"`
	RestEyesDuration     int                         `json:"rest_eyes_duration"`
	LongRestDuration     int                         `json:"long_rest_duration"`
	CurrentMode          Mode                        `json:"current_mode"`
	NotificationsEnabled bool                        `json:"notifications_enabled"`
	SoundEnabled         bool                        `json:"sound_enabled"`
	AutoStartNext        bool                        `json:"auto_start_next"`
	Audio                AudioConfig                 `json:"audio"`
	ModeTransitions      map[string]TransitionConfig `json:"mode_transitions,omitempty"`
	TimerState           *State                      `json:"timer_state,omitempty"`
	Metadata             *Metadata                   `json:"metadata,omitempty"`
}

// DefaultDocument returns the settings used when nothing valid is on disk.
func DefaultDocument() *Document {
	return &Document{
		WorkDuration:         DefaultWorkMinutes,
		RestEyesDuration:     DefaultRestEyesMinutes,
		LongRestDuration:     DefaultLongRestMinutes,
		CurrentMode:          ModeWork,
		NotificationsEnabled: true,
		SoundEnabled:         true,
		AutoStartNext:        false,
		Audio: AudioConfig{
			Enabled:         true,
			DurationSeconds: 5,
			PrimarySound:    "sounds/alarm-327234.mp3",
			FallbackSounds: []string{
				"/System/Library/Sounds/Glass.aiff",
				"/System/Library/Sounds/Ping.aiff",
				"/System/Library/Sounds/Purr.aiff",
			},
			Volume: 1.0,
		},
	}
}

// Duration returns the configured minutes for a mode, falling back to the
// built-in default when the stored value is out of range.
func (d *Document) Duration(mode Mode) int {
	var minutes int
	switch mode {
	case ModeWork:
		minutes = d.WorkDuration
	case ModeRestEyes:
		minutes = d.RestEyesDuration
	case ModeLongRest:
		minutes = d.LongRestDuration
	}
	if minutes < MinDurationMinutes || minutes > MaxDurationMinutes {
		return mode.DefaultMinutes()
	}
	return minutes
}

// SetDuration updates the configured minutes for a mode. Out-of-range values
// are rejected and the document is left unchanged.
func (d *Document) SetDuration(mode Mode, minutes int) bool {
	if minutes < MinDurationMinutes || minutes > MaxDurationMinutes || !mode.Valid() {
		return false
	}
	switch mode {
	case ModeWork:
		d.WorkDuration = minutes
	case ModeRestEyes:
		d.RestEyesDuration = minutes
	case ModeLongRest:
		d.LongRestDuration = minutes
	}
	return true
}

// sanitize repairs a decoded document so that later reads always see usable
// values, whatever was on disk.
func (d *Document) sanitize() {
	defaults := DefaultDocument()
	if !d.CurrentMode.Valid() {
		d.CurrentMode = defaults.CurrentMode
	}
	if d.WorkDuration < MinDurationMinutes || d.WorkDuration > MaxDurationMinutes {
		d.WorkDuration = defaults.WorkDuration
	}
	if d.RestEyesDuration < MinDurationMinutes || d.RestEyesDuration > MaxDurationMinutes {
		d.RestEyesDuration = defaults.RestEyesDuration
	}
	if d.LongRestDuration < MinDurationMinutes || d.LongRestDuration > MaxDurationMinutes {
		d.LongRestDuration = defaults.LongRestDuration
	}
	if d.Audio.DurationSeconds <= 0 {
		d.Audio = defaults.Audio
	}
	if d.Audio.Volume < 0 || d.Audio.Volume > 1 {
		d.Audio.Volume = defaults.Audio.Volume
	}
}

// ParseDurationsText parses the free-form settings dialog text into per-mode
// minutes. Expected shape, one assignment per line:
//
//	Work: 25
//	Rest Eyes: 5
//	Long Rest: 15
//
// Lines that name no known mode are ignored; a named mode with a bad value is
// an error that says which field failed and what the valid range is.
func ParseDurationsText(text string) (map[Mode]int, error) {
	values := make(map[Mode]int)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, ":") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		raw := strings.TrimSpace(parts[1])

		var mode Mode
		switch {
		case strings.Contains(key, "rest") && strings.Contains(key, "eyes"):
			mode = ModeRestEyes
		case strings.Contains(key, "long"):
			mode = ModeLongRest
		case strings.Contains(key, "work"):
			mode = ModeWork
		default:
			continue
		}

		minutes, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%s duration %q is not a whole number of minutes", mode.DisplayName(), raw)
		}
		if minutes < MinDurationMinutes || minutes > MaxDurationMinutes {
			return nil, fmt.Errorf("%s duration must be between %d and %d minutes, got %d",
				mode.DisplayName(), MinDurationMinutes, MaxDurationMinutes, minutes)
		}
		values[mode] = minutes
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no durations found, expected lines like %q", "Work: 25")
	}
	return values, nil
}
