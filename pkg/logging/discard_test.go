package logging

import "testing"

func TestDiscardLogger_FatalPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected Fatalf to panic")
		}
	}()
	NewDiscardLogger().Fatalf("boom %d", 1)
}

func TestDiscardLogger_NonFatalIsSilent(t *testing.T) {
	log := NewDiscardLogger()
	log.Info("should not panic")
	log.Warnf("nor this %s", "one")
	log.Debug("nor this")
}
