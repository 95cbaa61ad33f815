package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestDaemon(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/api", Timeout: 5 * time.Second})
}

func TestStartBackend(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/backend/start", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"endpoint":{"host":"127.0.0.1","port":8095}}`))
	})
	c := newTestDaemon(t, mux)

	ep, err := c.StartBackend(context.Background())
	if err != nil {
		t.Fatalf("StartBackend: %v", err)
	}
	if ep.Host != "127.0.0.1" || ep.Port != 8095 {
		t.Fatalf("endpoint = %+v", ep)
	}
}

func TestStartBackendAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/backend/start", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"backend is already running"}`))
	})
	c := newTestDaemon(t, mux)

	_, err := c.StartBackend(context.Background())
	if err == nil {
		t.Fatal("StartBackend succeeded on conflict")
	}
	if got := err.Error(); got != "API error: backend is already running" {
		t.Fatalf("err = %q", got)
	}
}

func TestStopBackendWaitParam(t *testing.T) {
	var gotWait string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/backend/stop", func(w http.ResponseWriter, r *http.Request) {
		gotWait = r.URL.Query().Get("wait")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	c := newTestDaemon(t, mux)

	if err := c.StopBackend(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("StopBackend: %v", err)
	}
	if gotWait != "5s" {
		t.Fatalf("wait param = %q, want 5s", gotWait)
	}

	if err := c.StopBackend(context.Background(), 0); err != nil {
		t.Fatalf("StopBackend no-wait: %v", err)
	}
	if gotWait != "0" {
		t.Fatalf("wait param = %q, want 0", gotWait)
	}
}

func TestStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/backend/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"state":"running","endpoint":{"host":"127.0.0.1","port":8095},"pid":4242,"restarts":1}`))
	})
	c := newTestDaemon(t, mux)

	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.State != "running" || st.PID != 4242 || st.Restarts != 1 {
		t.Fatalf("status = %+v", st)
	}
	if st.Endpoint == nil || st.Endpoint.Port != 8095 {
		t.Fatalf("endpoint = %+v", st.Endpoint)
	}
}

func TestSystemInfo(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/system", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"os":"linux","arch":"amd64","num_cpu":8,"go_version":"go1.24.0","hostname":"desk","pid":99}`))
	})
	c := newTestDaemon(t, mux)

	info, err := c.SystemInfo(context.Background())
	if err != nil {
		t.Fatalf("SystemInfo: %v", err)
	}
	if info.OS != "linux" || info.NumCPU != 8 {
		t.Fatalf("info = %+v", info)
	}
}

func TestIsReachable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	c := newTestDaemon(t, mux)
	if !c.IsReachable(context.Background()) {
		t.Fatal("daemon should be reachable")
	}

	down := New(Config{BaseURL: "http://127.0.0.1:1/api", Timeout: time.Second})
	if down.IsReachable(context.Background()) {
		t.Fatal("closed port should be unreachable")
	}
}
