package client

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(url, key string) *Client {
	c := New(url, key)
	c.backoff = time.Millisecond
	return c
}

// TestWorkouts verifies the list is decoded in order.
func TestWorkouts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/v1/workouts" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`[{"id":"1","kind":"running"},{"id":"2","kind":"cycling"}]`))
	}))
	defer srv.Close()

	ws, err := newTestClient(srv.URL, "").Workouts()
	if err != nil {
		t.Fatal(err)
	}
	if len(ws) != 2 || ws[0].ID != "1" || ws[1].ID != "2" {
		t.Errorf("workouts = %+v", ws)
	}
}

// TestSyncSendsKey verifies the API key header and the saved count.
func TestSyncSendsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"saved":3}`))
	}))
	defer srv.Close()

	n, err := newTestClient(srv.URL, "k").Sync()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("saved = %d, want 3", n)
	}
}

// TestRetryOnServerError verifies 5xx responses are retried.
func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"saved":1}`))
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL, "").Sync(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

// TestNoRetryOnClientError verifies 4xx responses fail immediately.
func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL, "").Sync(); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

// TestGiveUp verifies the client stops after three attempts.
func TestGiveUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL, "").Workouts(); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}
