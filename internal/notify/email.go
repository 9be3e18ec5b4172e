// Package notify provides the outbound email collaborator surface.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Message is the minimal payload contract for an outbound email.
type Message struct {
	To       string         `json:"to"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data,omitempty"`
}

// Template names used by the orchestrator.
const (
	TemplateInvitation   = "interview_invitation"
	TemplateReminder     = "interview_reminder"
	TemplateConfirmation = "interview_confirmation"
)

// Queuer hands a message to the delivery pipeline. Fire-and-forget: callers
// catch and log failures, never propagate them as fatal errors, and record
// the delivery outcome to metrics themselves so implementations stay dumb.
type Queuer interface {
	QueueEmail(ctx context.Context, msg Message) error
}

// LogQueuer records queued emails to the log without delivering anything.
// Used in development and tests.
type LogQueuer struct {
	logger *zap.Logger
}

// NewLogQueuer creates a log-only email queuer.
func NewLogQueuer(logger *zap.Logger) *LogQueuer {
	return &LogQueuer{logger: logger}
}

// QueueEmail implements Queuer.
func (q *LogQueuer) QueueEmail(_ context.Context, msg Message) error {
	q.logger.Info("email queued",
		zap.String("to", msg.To),
		zap.String("template", msg.Template))
	return nil
}
