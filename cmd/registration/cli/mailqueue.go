package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hibiken/asynq"

	"github.com/registration-demo/registration/jobs"
)

// QueueInspector is the part of *asynq.Inspector used by the mail queue CLI.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	RunAllArchivedTasks(queue string) (int, error)
	Close() error
}

// MailQueueCLI wraps manual management helpers for the mail queue.
type MailQueueCLI struct {
	inspector QueueInspector
}

// NewMailQueueCLI initialises the CLI helpers using the provided Redis address.
func NewMailQueueCLI(redisAddr string) *MailQueueCLI {
	return &MailQueueCLI{inspector: asynq.NewInspector(asynq.RedisClientOpt{Addr: redisAddr})}
}

// NewMailQueueCLIWithInspector builds the CLI around an existing inspector.
func NewMailQueueCLIWithInspector(inspector QueueInspector) *MailQueueCLI {
	return &MailQueueCLI{inspector: inspector}
}

// Close releases underlying resources.
func (c *MailQueueCLI) Close() error {
	if c == nil || c.inspector == nil {
		return nil
	}
	return c.inspector.Close()
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
	Requeued  int    `json:"requeued,omitempty"`
}

// MailQueueOptions defines available flags for the mail-queue command.
type MailQueueOptions struct {
	JSONOutput      bool
	RequeueArchived bool
	Stdout          io.Writer
	Stderr          io.Writer
}

// InspectQueue reports the mail queue counters.
func (c *MailQueueCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("mail queue cli: inspector not configured")
	}
	stats := QueueStats{Queue: jobs.QueueMail}
	info, err := c.inspector.GetQueueInfo(jobs.QueueMail)
	if err != nil {
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return stats, nil
		}
		return QueueStats{}, err
	}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

// Command runs the mail-queue workflow and returns the process exit code.
func (c *MailQueueCLI) Command(ctx context.Context, opts MailQueueOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	requeued := 0
	if opts.RequeueArchived {
		n, err := c.inspector.RunAllArchivedTasks(jobs.QueueMail)
		if err != nil && !errors.Is(err, asynq.ErrQueueNotFound) {
			_, _ = fmt.Fprintf(opts.Stderr, "mail-queue: requeue archived: %v\n", err)
			return 1
		}
		requeued = n
	}
	stats, err := c.InspectQueue(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "mail-queue: %v\n", err)
		return 1
	}
	stats.Requeued = requeued
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(stats); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "mail-queue: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	_, _ = fmt.Fprintf(opts.Stdout, "queue %s: pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
		stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	if opts.RequeueArchived {
		_, _ = fmt.Fprintf(opts.Stdout, "requeued %d archived task(s)\n", requeued)
	}
	return 0
}
