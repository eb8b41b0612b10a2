package logger

import "testing"

func TestGetReturnsSameInstance(t *testing.T) {
	first := Get(InfoLevel)
	second := Get(DebugLevel)

	if first == nil {
		t.Fatal("Expected a logger instance")
	}
	if first != second {
		t.Error("Expected Get to return the same instance")
	}
}

func TestNewLevels(t *testing.T) {
	for _, level := range []string{DebugLevel, InfoLevel, WarnLevel, ErrorLevel, "unknown"} {
		log := New(level)
		if log == nil {
			t.Fatalf("Expected a logger for level %q", level)
		}
		log.Debugw("debug message", "level", level)
		log.Infow("info message", "level", level)
	}
}

func TestNewNopDiscards(t *testing.T) {
	log := NewNop()
	log.Infow("discarded", "key", "value")
	log.Errorw("also discarded")
}
