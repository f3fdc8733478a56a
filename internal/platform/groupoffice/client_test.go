package groupoffice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/leo-oli/social-care-omaha/internal/platform/errs"
)

func newTestServer(t *testing.T, noteHandler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth.php", func(w http.ResponseWriter, r *http.Request) {
		var req authRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Username != "svc" || req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(authResponse{AccessToken: "tok-1"})
	})
	mux.HandleFunc("/api/jmap.php", noteHandler)
	return httptest.NewServer(mux)
}

func TestCreateNote(t *testing.T) {
	var gotAuth string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"methodResponses":[["Note/set",{"created":{"note":{"id":"42"}}},"0"]]}`))
	})
	defer srv.Close()

	c := NewClient(srv.URL, "svc", "secret", 1, zerolog.Nop())
	id, err := c.CreateNote(context.Background(), "Care Plan: Jane Doe", "body")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if id != "42" {
		t.Errorf("note id = %q, want 42", id)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q, want Bearer tok-1", gotAuth)
	}
}

func TestCreateNote_Rejected(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"methodResponses":[["Note/set",{"notCreated":{"note":{"type":"forbidden","description":"no access to notebook"}}},"0"]]}`))
	})
	defer srv.Close()

	c := NewClient(srv.URL, "svc", "secret", 1, zerolog.Nop())
	_, err := c.CreateNote(context.Background(), "t", "b")
	if !errs.IsKind(err, errs.KindGateway) {
		t.Errorf("expected gateway error, got %v", err)
	}
}

func TestUpdateNote(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"methodResponses":[["Note/set",{"updated":{"42":null}},"0"]]}`))
	})
	defer srv.Close()

	c := NewClient(srv.URL, "svc", "secret", 1, zerolog.Nop())
	if err := c.UpdateNote(context.Background(), "42", "t", "b"); err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
}

func TestUpdateNote_NotFound(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"methodResponses":[["Note/set",{"notUpdated":{"42":{"type":"notFound","description":"note does not exist"}}},"0"]]}`))
	})
	defer srv.Close()

	c := NewClient(srv.URL, "svc", "secret", 1, zerolog.Nop())
	err := c.UpdateNote(context.Background(), "42", "t", "b")
	if !errs.IsKind(err, errs.KindGateway) {
		t.Errorf("expected gateway error, got %v", err)
	}
}

func TestAuthFailure(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	defer srv.Close()

	c := NewClient(srv.URL, "svc", "wrong", 1, zerolog.Nop())
	_, err := c.CreateNote(context.Background(), "t", "b")
	if !errs.IsKind(err, errs.KindGateway) {
		t.Errorf("expected gateway error for bad credentials, got %v", err)
	}
}

// Exports may sync in parallel, and the first of them finds an
// unauthenticated client. Every call must carry the bearer token and the
// login exchange must happen exactly once, with no writes to shared client
// state from request goroutines.
func TestCreateNote_ConcurrentFirstUse(t *testing.T) {
	var authCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth.php", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&authCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(authResponse{AccessToken: "tok-1"})
	})
	mux.HandleFunc("/api/jmap.php", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"methodResponses":[["Note/set",{"created":{"note":{"id":"42"}}},"0"]]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, "svc", "secret", 1, zerolog.Nop())

	const workers = 16
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.CreateNote(context.Background(), "Care Plan: Jane Doe", "body")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			t.Errorf("CreateNote: %v", err)
		}
	}
	if n := atomic.LoadInt32(&authCalls); n != 1 {
		t.Errorf("auth round trips = %d, want 1", n)
	}
}

func TestUnconfigured(t *testing.T) {
	c := NewClient("", "", "", 1, zerolog.Nop())
	if c.Configured() {
		t.Error("client with empty base URL reports configured")
	}
	if _, err := c.CreateNote(context.Background(), "t", "b"); !errs.IsKind(err, errs.KindGateway) {
		t.Errorf("expected gateway error, got %v", err)
	}
}
