package jobs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/registration-demo/registration/internal/jobs"
	"github.com/registration-demo/registration/internal/mail"
	"github.com/registration-demo/registration/jobs"
)

func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue metrics
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestSendEmailHandlerDelivers(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	var got mail.Message
	handler := jobs.NewSendEmailHandler(mail.SenderFunc(func(_ context.Context, msg mail.Message) error {
		got = msg
		return nil
	}), metrics, nil)

	msg := mail.Message{To: "alice@example.com", From: mail.DefaultFrom, Body: "code 1234"}
	task, err := jobs.NewSendEmailTask(msg)
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskTypeSendEmail, task.Type())

	require.NoError(t, handler.ProcessTask(context.Background(), task))
	assert.Equal(t, msg, got)
	assert.Equal(t, 1.0, counterValue(t, registry, "registration_jobs_total", map[string]string{"job": jobs.TaskTypeSendEmail, "status": "success"}))
}

func TestSendEmailHandlerSkipsMalformedPayload(t *testing.T) {
	registry := prometheus.NewRegistry()
	called := false
	handler := jobs.NewSendEmailHandler(mail.SenderFunc(func(context.Context, mail.Message) error {
		called = true
		return nil
	}), jobmetrics.NewMetrics(registry), nil)

	err := handler.ProcessTask(context.Background(), asynq.NewTask(jobs.TaskTypeSendEmail, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	assert.False(t, called)
	assert.Equal(t, 1.0, counterValue(t, registry, "registration_jobs_total", map[string]string{"job": jobs.TaskTypeSendEmail, "status": "skipped"}))
	assert.Zero(t, counterValue(t, registry, "registration_jobs_failures_total", map[string]string{"job": jobs.TaskTypeSendEmail}))
}

func TestSendEmailHandlerReportsSenderFailure(t *testing.T) {
	registry := prometheus.NewRegistry()
	boom := errors.New("mail service unavailable")
	handler := jobs.NewSendEmailHandler(mail.SenderFunc(func(context.Context, mail.Message) error {
		return boom
	}), jobmetrics.NewMetrics(registry), nil)

	task, err := jobs.NewSendEmailTask(mail.Message{To: "alice@example.com", Body: "code"})
	require.NoError(t, err)

	require.ErrorIs(t, handler.ProcessTask(context.Background(), task), boom)
	assert.Equal(t, 1.0, counterValue(t, registry, "registration_jobs_failures_total", map[string]string{"job": jobs.TaskTypeSendEmail}))
}
