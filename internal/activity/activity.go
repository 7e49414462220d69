// Package activity records intake events as structured log entries.
package activity

import (
	"github.com/sirupsen/logrus"
)

// Event is one recorded intake action.
type Event struct {
	Action    string
	DraftID   string
	ClaimID   string
	UserID    string
	RequestID string
	Status    string
	Detail    string
}

// Logger writes intake events with structured fields so the sequence of a
// form session (opened, edited, suggested, submitted, uploaded) can be
// reconstructed from the log stream.
type Logger struct {
	log *logrus.Logger
}

func NewLogger() *Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{})
	log.SetLevel(logrus.InfoLevel)
	return &Logger{log: log}
}

// Record writes a single event. Empty fields are omitted.
func (l *Logger) Record(e Event) {
	fields := logrus.Fields{"action": e.Action}
	if e.DraftID != "" {
		fields["draft_id"] = e.DraftID
	}
	if e.ClaimID != "" {
		fields["claim_id"] = e.ClaimID
	}
	if e.UserID != "" {
		fields["user_id"] = e.UserID
	}
	if e.RequestID != "" {
		fields["request_id"] = e.RequestID
	}
	if e.Status != "" {
		fields["status"] = e.Status
	}
	if e.Detail != "" {
		fields["detail"] = e.Detail
	}

	entry := l.log.WithFields(fields)
	if e.Status == "error" {
		entry.Warn("intake event")
		return
	}
	entry.Info("intake event")
}
