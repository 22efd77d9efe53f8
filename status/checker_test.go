package status

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"service-dashboard/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServiceServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusFound)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCheck(t *testing.T) {
	srv := newServiceServer(t)
	checker := NewChecker(time.Second, 2)
	fixed := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	checker.now = func() time.Time { return fixed }

	tests := []struct {
		name     string
		path     string
		wantUp   bool
		wantCode int
	}{
		{"ok", "/ok", true, http.StatusOK},
		{"no content", "/empty", true, http.StatusNoContent},
		{"redirect", "/moved", true, http.StatusOK},
		{"server error", "/broken", false, http.StatusInternalServerError},
		{"not found", "/missing", false, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := models.Service{Name: tt.name, URL: srv.URL + tt.path, Category: "Test"}
			st := checker.Check(context.Background(), svc)

			assert.Equal(t, tt.wantUp, st.Up)
			assert.Equal(t, tt.wantCode, st.StatusCode)
			assert.Equal(t, svc.URL, st.URL)
			assert.Equal(t, "Test", st.Category)
			assert.Equal(t, fixed, st.CheckedAt)
			if !tt.wantUp {
				assert.NotEmpty(t, st.Error)
			}
		})
	}
}

func TestCheck_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	st := NewChecker(time.Second, 1).Check(context.Background(), models.Service{Name: "gone", URL: url})
	assert.False(t, st.Up)
	assert.Zero(t, st.StatusCode)
	assert.NotEmpty(t, st.Error)
}

func TestCheck_InvalidURL(t *testing.T) {
	st := NewChecker(time.Second, 1).Check(context.Background(), models.Service{Name: "blank"})
	assert.False(t, st.Up)
	assert.NotEmpty(t, st.Error)
}

func TestCheckAll_PreservesOrder(t *testing.T) {
	srv := newServiceServer(t)
	services := []models.Service{
		{Name: "a", URL: srv.URL + "/ok"},
		{Name: "b", URL: srv.URL + "/broken"},
		{Name: "c", URL: srv.URL + "/moved"},
		{Name: "d", URL: srv.URL + "/missing"},
	}

	statuses := NewChecker(time.Second, 3).CheckAll(context.Background(), services)
	require.Len(t, statuses, 4)

	var names []string
	var up []bool
	for _, st := range statuses {
		names = append(names, st.Name)
		up = append(up, st.Up)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, names)
	assert.Equal(t, []bool{true, false, true, false}, up)
}
