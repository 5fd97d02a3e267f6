package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	sendPath           = "/api/mail"
	defaultSendTimeout = 5 * time.Second
)

// HTTPSender posts messages to the mail service.
type HTTPSender struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPSender constructs a sender targeting baseURL.
func NewHTTPSender(baseURL string, timeout time.Duration) (*HTTPSender, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("mail: service url required")
	}
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &HTTPSender{
		endpoint:   baseURL + sendPath,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Send delivers msg in one attempt.
func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("mail: encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("mail: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mail: post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}
	return nil
}
