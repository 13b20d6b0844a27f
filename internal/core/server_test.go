package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"carewatch/internal/config"
)

func TestNewServer(t *testing.T) {
	srv, err := NewServer(&config.Config{}, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if srv.Validator == nil || srv.Router() == nil || srv.Handler() == nil {
		t.Error("server should be fully initialised")
	}

	if _, err := NewServer(nil, testLogger()); err == nil {
		t.Error("nil config should fail")
	}
	if _, err := NewServer(&config.Config{}, nil); err == nil {
		t.Error("nil logger should fail")
	}
}

func TestServer_ShutdownRunsClosersNewestFirst(t *testing.T) {
	srv, _ := NewServer(&config.Config{}, testLogger())

	var order []string
	srv.OnShutdown(func() { order = append(order, "pool") })
	srv.OnShutdown(func() { order = append(order, "http") })

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if len(order) != 2 || order[0] != "http" || order[1] != "pool" {
		t.Errorf("order = %v", order)
	}

	// A second shutdown is a no-op.
	_ = srv.Shutdown(context.Background())
	if len(order) != 2 {
		t.Errorf("closers ran twice: %v", order)
	}
}

func TestServer_HandlerServesRouter(t *testing.T) {
	srv, _ := NewServer(&config.Config{}, testLogger())
	srv.Router().Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
}
