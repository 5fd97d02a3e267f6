package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/registration-demo/registration/internal/jobs"
	"github.com/registration-demo/registration/internal/mail"
)

const (
	// QueueMail carries activation mail.
	QueueMail = "mail"
	// TaskTypeSendEmail is the task type for sending activation mail.
	TaskTypeSendEmail = "mail:send"
)

// NewSendEmailTask constructs an Asynq task carrying msg.
func NewSendEmailTask(msg mail.Message) (*asynq.Task, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewSendEmailHandler delivers TaskTypeSendEmail tasks through sender.
// Malformed payloads are dropped without retry.
func NewSendEmailHandler(sender mail.Sender, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskTypeSendEmail)
		var msg mail.Message
		if err := json.Unmarshal(t.Payload(), &msg); err != nil || msg.To == "" {
			logger.Warn("drop malformed mail task", slog.Any("error", err))
			return tracker.End(fmt.Errorf("decode mail payload: %w", asynq.SkipRetry))
		}
		if err := sender.Send(ctx, msg); err != nil {
			logger.Error("deliver mail task", slog.String("to", msg.To), slog.Any("error", err))
			return tracker.End(err)
		}
		logger.Info("mail task delivered", slog.String("to", msg.To))
		return tracker.End(nil)
	}
}
