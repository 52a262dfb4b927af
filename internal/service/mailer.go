package service

import (
	"context"

	"go.uber.org/zap"
)

// LogMailer records outbound email instead of delivering it. The real
// delivery provider is owned by the surrounding application; this keeps the
// dispatch pipeline observable in environments without one.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer constructs the mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message.
func (m *LogMailer) Send(ctx context.Context, msg OutboundEmail) error {
	m.logger.Sugar().Infow("outbound email",
		"idempotency_key", msg.IdempotencyKey,
		"recipient", msg.Recipient,
		"kind", msg.Kind,
		"session_id", msg.SessionID,
		"deadline", msg.Deadline)
	return nil
}
