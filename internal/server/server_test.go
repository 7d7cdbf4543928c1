package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agbru/raysplit/internal/logging"
	"github.com/agbru/raysplit/internal/metrics"
)

func newTestServer(t *testing.T, m *metrics.Render) *Server {
	t.Helper()
	s, err := New("127.0.0.1:0", m, logging.NewLogger(io.Discard, "server"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.ln.Close() })
	return s
}

func TestHandleMetrics(t *testing.T) {
	t.Parallel()
	m := metrics.NewRender()
	m.BlockDispatched("dynamic")
	s := newTestServer(t, m)

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodGet, http.StatusOK},
		{http.MethodHead, http.StatusOK},
		{http.MethodPost, http.StatusMethodNotAllowed},
		{http.MethodPut, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.method, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			s.handleMetrics(rec, httptest.NewRequest(tt.method, "/metrics", http.NoBody))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.method == http.MethodGet && !strings.Contains(rec.Body.String(), "raysplit_blocks_dispatched_total") {
				t.Error("response lacks the render metrics")
			}
		})
	}
}

func TestHandleMetricsDisabled(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.handleMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestSecurityMiddleware(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		cfg        SecurityConfig
		method     string
		origin     string
		wantOrigin string
		wantNext   bool
	}{
		{"no origin", DefaultSecurityConfig(), http.MethodGet, "", "", true},
		{"wildcard", DefaultSecurityConfig(), http.MethodGet, "http://grafana.local", "*", true},
		{"specific allowed", SecurityConfig{EnableCORS: true, AllowedOrigins: []string{"http://a"}}, http.MethodGet, "http://a", "http://a", true},
		{"specific denied", SecurityConfig{EnableCORS: true, AllowedOrigins: []string{"http://a"}}, http.MethodGet, "http://b", "", true},
		{"cors disabled", SecurityConfig{}, http.MethodGet, "http://a", "", true},
		{"preflight", DefaultSecurityConfig(), http.MethodOptions, "http://a", "*", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			called := false
			h := SecurityMiddleware(tt.cfg, func(w http.ResponseWriter, r *http.Request) { called = true })
			req := httptest.NewRequest(tt.method, "/metrics", http.NoBody)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			h(rec, req)

			if called != tt.wantNext {
				t.Errorf("next called = %v, want %v", called, tt.wantNext)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
				t.Errorf("X-Content-Type-Options = %q", got)
			}
		})
	}
}

func TestStartAndShutdown(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, metrics.NewRender())
	ctx, cancel := context.WithCancel(context.Background())
	done := s.Start(ctx)

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	if err != nil {
		cancel()
		t.Fatalf("GET /healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok\n" {
		t.Errorf("healthz = %d %q", resp.StatusCode, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
