package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSender_Send(t *testing.T) {
	var received webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewSender(Config{URL: srv.URL, IconURL: "https://example.com/icon.png"})

	err := sender.Send(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, "hello", received.Text)
	assert.Equal(t, "RespondNow", received.Username, "default username applies")
	assert.Equal(t, "https://example.com/icon.png", received.IconURL)
}

func TestSender_Send_EmptyURL(t *testing.T) {
	sender := NewSender(Config{})

	err := sender.Send(context.Background(), "hello")

	var perm *PermanentError
	assert.ErrorAs(t, err, &perm)
}

func TestSender_Send_StatusCodes(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"bad request", http.StatusBadRequest, false},
		{"unauthorized", http.StatusUnauthorized, false},
		{"forbidden", http.StatusForbidden, false},
		{"not found", http.StatusNotFound, false},
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"bad gateway", http.StatusBadGateway, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			sender := NewSender(Config{URL: srv.URL})
			err := sender.Send(context.Background(), "hello")
			require.Error(t, err)

			if tt.retryable {
				var retry *RetryableError
				require.ErrorAs(t, err, &retry)
				assert.Equal(t, tt.status, retry.Code)
			} else {
				var perm *PermanentError
				require.ErrorAs(t, err, &perm)
				assert.Equal(t, tt.status, perm.Code)
			}
		})
	}
}

func TestSender_Send_TransportErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	srv.Close() // force connection refused

	sender := NewSender(Config{URL: srv.URL})
	err := sender.Send(context.Background(), "hello")

	var retry *RetryableError
	assert.ErrorAs(t, err, &retry)
}

func TestSender_Send_RateLimiterHonorsContext(t *testing.T) {
	sender := NewSender(Config{URL: "http://example.invalid/hook", RatePerSecond: 0.001})

	// First send consumes the only token.
	_ = sender.Send(context.Background(), "first")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sender.Send(ctx, "second")
	require.Error(t, err)
	var retry *RetryableError
	assert.False(t, errors.As(err, &retry), "context errors are not classified")
}

func TestMaskWebhookURL(t *testing.T) {
	long := "https://chat.example.com/hooks/abcdefghijklmnopqrstuvwxyz0123456789"
	masked := maskWebhookURL(long)
	assert.Contains(t, masked, "...")
	assert.NotEqual(t, long, masked)

	short := "https://x.test/h"
	assert.Equal(t, short, maskWebhookURL(short))
}
