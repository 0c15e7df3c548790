package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliprelay/relay-server-go/internal/model"
	"github.com/cliprelay/relay-server-go/internal/sse"
)

type fakeEventSource struct {
	mu           sync.Mutex
	client       *sse.Client
	unsubscribed bool
}

func (f *fakeEventSource) Subscribe(accountID string) *sse.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.client = &sse.Client{
		AccountID: accountID,
		Events:    make(chan sse.Event, 1),
		Done:      make(chan struct{}),
	}
	return f.client
}

func (f *fakeEventSource) Unsubscribe(client *sse.Client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = true
}

func (f *fakeEventSource) current() *sse.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.client
}

func TestEventsHandler_ServeHTTP(t *testing.T) {
	t.Run("returns 401 without identity", func(t *testing.T) {
		handler := NewEventsHandler(&fakeEventSource{})

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("streams notifications until the client leaves", func(t *testing.T) {
		events := &fakeEventSource{}
		handler := NewEventsHandler(events)

		req := newRequest(http.MethodGet, "/api/events", nil, &ownerIdentity)
		ctx, cancel := context.WithCancel(req.Context())
		defer cancel()
		req = req.WithContext(ctx)
		rec := newStreamRecorder()

		done := make(chan struct{})
		go func() {
			handler.ServeHTTP(rec, req)
			close(done)
		}()

		require.Eventually(t, func() bool {
			return strings.Contains(rec.String(), "event: connected")
		}, time.Second, 5*time.Millisecond)

		event, err := sse.NewEvent(model.Notification{
			Kind:          model.NotificationPublishCompleted,
			AssetID:       "asset-1",
			RemoteAssetID: "yt-1",
		})
		require.NoError(t, err)
		events.current().Events <- event

		require.Eventually(t, func() bool {
			return strings.Contains(rec.String(), "event: publish_completed")
		}, time.Second, 5*time.Millisecond)

		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("stream did not stop after client disconnect")
		}

		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.String(), `"remoteAssetId":"yt-1"`)
		assert.True(t, events.unsubscribed)
	})

	t.Run("stops when the broker closes the client", func(t *testing.T) {
		events := &fakeEventSource{}
		handler := NewEventsHandler(events)
		rec := newStreamRecorder()

		done := make(chan struct{})
		go func() {
			handler.ServeHTTP(rec, newRequest(http.MethodGet, "/api/events", nil, &ownerIdentity))
			close(done)
		}()

		require.Eventually(t, func() bool { return events.current() != nil }, time.Second, 5*time.Millisecond)
		close(events.current().Done)

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("stream did not stop after broker close")
		}
	})

	t.Run("sends heartbeats", func(t *testing.T) {
		events := &fakeEventSource{}
		handler := NewEventsHandler(events)
		handler.heartbeat = 10 * time.Millisecond

		req := newRequest(http.MethodGet, "/api/events", nil, &ownerIdentity)
		ctx, cancel := context.WithCancel(req.Context())
		req = req.WithContext(ctx)
		rec := newStreamRecorder()

		done := make(chan struct{})
		go func() {
			handler.ServeHTTP(rec, req)
			close(done)
		}()

		require.Eventually(t, func() bool {
			return strings.Contains(rec.String(), ": ping")
		}, time.Second, 5*time.Millisecond)
		cancel()
		<-done
	})
}

func TestEventsHandler_sendEvent(t *testing.T) {
	handler := &EventsHandler{}
	rec := httptest.NewRecorder()

	err := handler.sendEvent(rec, rec, "connected", map[string]any{"accountId": "acc-1"})

	require.NoError(t, err)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "event: connected\n"))
	assert.True(t, strings.HasSuffix(body, "\n\n"))

	dataLine := strings.TrimSuffix(strings.SplitN(body, "data: ", 2)[1], "\n\n")
	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(dataLine), &parsed))
	assert.Equal(t, "acc-1", parsed["accountId"])
}
