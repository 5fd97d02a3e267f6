package mail_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registration-demo/registration/internal/mail"
)

func TestHTTPSenderPostsMessage(t *testing.T) {
	var got mail.Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/mail", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender, err := mail.NewHTTPSender(srv.URL+"/", time.Second)
	require.NoError(t, err)

	msg := mail.Message{To: "alice@example.com", From: mail.DefaultFrom, Body: "code 1234"}
	require.NoError(t, sender.Send(context.Background(), msg))
	assert.Equal(t, msg, got)
}

func TestHTTPSenderRejectsNonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sender, err := mail.NewHTTPSender(srv.URL, time.Second)
	require.NoError(t, err)

	err = sender.Send(context.Background(), mail.Message{To: "alice@example.com"})
	require.ErrorIs(t, err, mail.ErrInvalidResponse)
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPSenderTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	sender, err := mail.NewHTTPSender(srv.URL, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Error(t, sender.Send(context.Background(), mail.Message{To: "alice@example.com"}))
}

func TestNewHTTPSenderRequiresURL(t *testing.T) {
	_, err := mail.NewHTTPSender("  ", time.Second)
	assert.Error(t, err)
}
