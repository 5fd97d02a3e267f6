package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registration-demo/registration/internal/mail"
	"github.com/registration-demo/registration/jobs"
	_ "github.com/registration-demo/registration/testing"
)

func TestQueueSenderEnqueuesOnMailQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	sender := jobs.NewQueueSender(asynq.RedisClientOpt{Addr: mr.Addr()}, 0)
	t.Cleanup(func() { _ = sender.Close() })

	for _, to := range []string{"alice@example.com", "bob@example.com"} {
		require.NoError(t, sender.Send(context.Background(), mail.Message{To: to, From: mail.DefaultFrom, Body: "code"}))
	}

	pending, err := mr.List("asynq:{mail}:pending")
	require.NoError(t, err)
	assert.Len(t, pending, 2)
	assert.NotEqual(t, pending[0], pending[1])
}

func TestQueueSenderSurfacesRedisErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	sender := jobs.NewQueueSender(asynq.RedisClientOpt{Addr: mr.Addr()}, 0)
	t.Cleanup(func() { _ = sender.Close() })
	mr.Close()

	err := sender.Send(context.Background(), mail.Message{To: "alice@example.com"})
	assert.Error(t, err)
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := jobs.NewWorker(jobs.WorkerConfig{RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"}})
	assert.Error(t, err)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func getHealth(t *testing.T, inspector jobs.QueueInspector) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	router.Route("/jobs", jobs.NewHandler(inspector, nil).MountRoutes)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	return rec
}

func TestJobsHealth(t *testing.T) {
	rec := getHealth(t, stubInspector{info: &asynq.QueueInfo{Queue: jobs.QueueMail, Pending: 3, Retry: 1}})
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "mail", body["queue"])
	assert.EqualValues(t, 3, body["pending"])
	assert.EqualValues(t, 1, body["retry"])

	rec = getHealth(t, stubInspector{err: asynq.ErrQueueNotFound})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = getHealth(t, stubInspector{err: errors.New("redis down")})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
