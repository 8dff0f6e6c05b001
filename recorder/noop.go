package recorder

import "github.com/rony4d/go-lpvault/vault"

// NoopRecorder discards all events. Used when no database path is
// configured and in tests that don't assert on persistence.
type NoopRecorder struct{}

// RecordEvent implements Recorder.
func (NoopRecorder) RecordEvent(vault.Event) error { return nil }

// Close implements Recorder.
func (NoopRecorder) Close() error { return nil }
