// Package recorder persists committed vault events for later analysis
// (dashboards, reconciliation against on-chain logs). Recording is best
// effort: a failed insert is logged and never aborts the vault operation
// that produced the event.
package recorder

import (
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-lpvault/vault"
)

// Recorder persists vault events.
type Recorder interface {
	RecordEvent(ev vault.Event) error
	Close() error
}

// Sink adapts a Recorder to vault.EventSink. Emit never propagates the
// recorder's error; the ledger has already committed by the time an event
// is delivered.
type Sink struct {
	rec Recorder
	log *logrus.Entry
}

// NewSink wraps rec for use as the vault's event sink.
func NewSink(rec Recorder, log *logrus.Logger) *Sink {
	return &Sink{
		rec: rec,
		log: log.WithField("component", "recorder"),
	}
}

// Emit implements vault.EventSink.
func (s *Sink) Emit(ev vault.Event) {
	if err := s.rec.RecordEvent(ev); err != nil {
		s.log.WithError(err).Warn("record event")
	}
}
