package mail

import (
	"context"
	"log/slog"

	"github.com/registration-demo/registration/internal/platform/db"
)

// Recorder counts delivery attempts by result.
type Recorder interface {
	ObserveMail(result string)
}

// Notifier schedules activation mail once the surrounding transaction has
// committed. Delivery errors are logged and dropped.
type Notifier struct {
	sender   Sender
	from     string
	logger   *slog.Logger
	recorder Recorder
}

// NewNotifier builds a Notifier. An empty from falls back to DefaultFrom.
func NewNotifier(sender Sender, from string, logger *slog.Logger, recorder Recorder) *Notifier {
	if from == "" {
		from = DefaultFrom
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{sender: sender, from: from, logger: logger, recorder: recorder}
}

// Send queues body for recipient.
func (n *Notifier) Send(ctx context.Context, recipient, body string) {
	msg := Message{To: recipient, From: n.from, Body: body}
	db.AfterCommit(ctx, func(ctx context.Context) {
		n.deliver(ctx, msg)
	})
}

func (n *Notifier) deliver(ctx context.Context, msg Message) {
	if err := n.sender.Send(ctx, msg); err != nil {
		n.logger.Error("send activation mail", slog.String("to", msg.To), slog.Any("error", err))
		n.observe("error")
		return
	}
	n.logger.Info("activation mail sent", slog.String("to", msg.To))
	n.observe("sent")
}

func (n *Notifier) observe(result string) {
	if n.recorder != nil {
		n.recorder.ObserveMail(result)
	}
}
