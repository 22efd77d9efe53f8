package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"service-dashboard/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTransition(t *testing.T) {
	tests := []struct {
		name     string
		status   models.Status
		contains []string
	}{
		{
			name:     "up",
			status:   models.Status{Name: "Plex", URL: "https://plex.example", Up: true, StatusCode: 200},
			contains: []string{"✅", "<b>Plex</b> is back up", "HTTP 200"},
		},
		{
			name:     "down with error",
			status:   models.Status{Name: "Grafana", URL: "https://grafana.example", Error: "connection refused"},
			contains: []string{"❌", "<b>Grafana</b> is down", "<i>connection refused</i>"},
		},
		{
			name:     "down with status only",
			status:   models.Status{Name: "Wiki", URL: "https://wiki.example", StatusCode: 503},
			contains: []string{"<i>HTTP 503</i>"},
		},
		{
			name:     "escapes markup",
			status:   models.Status{Name: "A<B>", URL: "https://x.example/?a=1&b=2", Up: true, StatusCode: 200},
			contains: []string{"<b>A&lt;B&gt;</b>", "a=1&amp;b=2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := FormatTransition(tt.status)
			for _, want := range tt.contains {
				assert.Contains(t, msg, want)
			}
		})
	}
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Notify(context.Background(), "ignored"))
}

// fakeTelegram answers getMe and records sendMessage calls
type fakeTelegram struct {
	mu   sync.Mutex
	sent []map[string]string
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"id": 1, "is_bot": true, "first_name": "Dashboard", "username": "dashboard_bot"},
		})
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_ = r.ParseForm()
		f.mu.Lock()
		f.sent = append(f.sent, map[string]string{
			"chat_id":    r.Form.Get("chat_id"),
			"text":       r.Form.Get("text"),
			"parse_mode": r.Form.Get("parse_mode"),
		})
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"message_id": 7, "date": 0, "chat": map[string]any{"id": 42, "type": "private"}},
		})
	default:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": 404, "description": "Not Found"})
	}
}

func TestTelegramNotifier(t *testing.T) {
	fake := &fakeTelegram{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	n, err := NewTelegramNotifierWithEndpoint("123:abc", 42, srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)

	require.NoError(t, n.Notify(context.Background(), "<b>Plex</b> is down"))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.sent, 1)
	assert.Equal(t, "42", fake.sent[0]["chat_id"])
	assert.Equal(t, "<b>Plex</b> is down", fake.sent[0]["text"])
	assert.Equal(t, "HTML", fake.sent[0]["parse_mode"])
}

func TestTelegramNotifier_CancelledContext(t *testing.T) {
	fake := &fakeTelegram{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	n, err := NewTelegramNotifierWithEndpoint("123:abc", 42, srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Notify(ctx, "hello"), context.Canceled)
	assert.Empty(t, fake.sent)
}

func TestNewTelegramNotifier_Validation(t *testing.T) {
	_, err := NewTelegramNotifierWithEndpoint("", 42, "http://unused/bot%s/%s", http.DefaultClient)
	assert.ErrorContains(t, err, "token is required")

	_, err = NewTelegramNotifierWithEndpoint("123:abc", 0, "http://unused/bot%s/%s", http.DefaultClient)
	assert.ErrorContains(t, err, "chat id is required")
}
