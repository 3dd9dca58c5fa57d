package logging

import "testing"

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus", ""} {
		t.Run("level_"+level, func(t *testing.T) {
			logger := New(level)
			if logger == nil || logger.Logger == nil {
				t.Fatalf("New(%q) returned nil logger", level)
			}
		})
	}
}

func TestWithReturnsWrappedLogger(t *testing.T) {
	logger := Default().With("component", "test")
	if logger == nil || logger.Logger == nil {
		t.Fatal("With returned nil logger")
	}
}
