package timer

import "fmt"

// Mode identifies which kind of session a countdown belongs to.
type Mode string

const (
	ModeWork     Mode = "work"
	ModeRestEyes Mode = "rest_eyes"
	ModeLongRest Mode = "long_rest"
)

// Default durations in minutes for each mode.
const (
	DefaultWorkMinutes     = 25
	DefaultRestEyesMinutes = 5
	DefaultLongRestMinutes = 15
)

// Duration bounds accepted from user input, in minutes.
const (
	MinDurationMinutes = 1
	MaxDurationMinutes = 60
)

var modeNames = map[Mode]string{
	ModeWork:     "Work",
	ModeRestEyes: "Rest Your Eyes",
	ModeLongRest: "Long Rest",
}

var modeIcons = map[Mode]string{
	ModeWork:     "💼",
	ModeRestEyes: "👁️",
	ModeLongRest: "🌟",
}

// Modes lists every mode in presentation order. The set is closed.
func Modes() []Mode {
	return []Mode{ModeWork, ModeRestEyes, ModeLongRest}
}

// ParseMode converts a raw string into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("invalid mode %q, valid modes are: work, rest_eyes, long_rest", s)
	}
	return m, nil
}

// Valid reports whether m belongs to the closed mode set.
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// DisplayName returns the human-readable name used in notification copy.
func (m Mode) DisplayName() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "Session"
}

// Icon returns the glyph shown next to the countdown for this mode.
func (m Mode) Icon() string {
	if icon, ok := modeIcons[m]; ok {
		return icon
	}
	return "⏱️"
}

// DefaultMinutes returns the built-in duration for m in minutes.
func (m Mode) DefaultMinutes() int {
	switch m {
	case ModeWork:
		return DefaultWorkMinutes
	case ModeRestEyes:
		return DefaultRestEyesMinutes
	case ModeLongRest:
		return DefaultLongRestMinutes
	default:
		return DefaultWorkMinutes
	}
}
