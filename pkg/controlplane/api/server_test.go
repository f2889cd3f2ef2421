package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marmos91/aund/internal/fileserver"
)

// fakeFileServer satisfies FileServer for router tests.
type fakeFileServer struct {
	healthErr error
	sessions  []fileserver.SessionInfo
}

func (f *fakeFileServer) Healthcheck(ctx context.Context) error { return f.healthErr }

func (f *fakeFileServer) Sessions() []fileserver.SessionInfo { return f.sessions }

func (f *fakeFileServer) Logoff(id string) error { return fileserver.ErrSessionNotFound }

func (f *fakeFileServer) Disc() (fileserver.DiscInfo, error) {
	return fileserver.DiscInfo{Name: "TestDisc", Root: "/srv/econet"}, nil
}

func testConfig(port int) APIConfig {
	return APIConfig{
		Enabled:      true,
		Address:      "127.0.0.1",
		Port:         port,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  10 * time.Second,
	}
}

func TestAPIServer_Lifecycle(t *testing.T) {
	cfg := testConfig(18080)

	server, err := NewServer(cfg, &fakeFileServer{})
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(ctx)
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Port))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got '%s'", contentType)
	}

	cancel()

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Expected nil on graceful shutdown, got: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not shutdown in time")
	}
}

func TestAPIServer_Port(t *testing.T) {
	server, err := NewServer(testConfig(9999), nil)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	if server.Port() != 9999 {
		t.Errorf("Expected port 9999, got %d", server.Port())
	}
}

func TestAPIServer_DefaultConfig(t *testing.T) {
	server, err := NewServer(APIConfig{Enabled: true}, nil)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	if server.Port() != 8080 {
		t.Errorf("Expected default port 8080, got %d", server.Port())
	}
	if server.server.Addr != "127.0.0.1:8080" {
		t.Errorf("Expected loopback listen address, got %q", server.server.Addr)
	}
}

func TestAPIServer_StopIsIdempotent(t *testing.T) {
	server, err := NewServer(testConfig(18083), nil)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	ctx := context.Background()
	if err := server.Stop(ctx); err != nil {
		t.Errorf("First Stop failed: %v", err)
	}
	if err := server.Stop(ctx); err != nil {
		t.Errorf("Second Stop failed: %v", err)
	}
}

func TestRouter_NoFileServer(t *testing.T) {
	router := NewRouter(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected readiness %d without a file server, got %d", http.StatusServiceUnavailable, w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/sessions", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected sessions route to be absent, got %d", w.Code)
	}
}

func TestRouter_Sessions(t *testing.T) {
	fs := &fakeFileServer{sessions: []fileserver.SessionInfo{{ID: "x", User: "alice"}}}
	router := NewRouter(fs)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/sessions", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var body struct {
		Data []fileserver.SessionInfo `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0].User != "alice" {
		t.Errorf("Unexpected sessions: %+v", body.Data)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/v1/sessions/7a2b0000-0000-4000-8000-000000000000", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d for unknown session, got %d", http.StatusNotFound, w.Code)
	}
}

func TestRouter_ReadinessHealthy(t *testing.T) {
	router := NewRouter(&fakeFileServer{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health/ready", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestRouter_RootRedirectsToHealth(t *testing.T) {
	router := NewRouter(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusTemporaryRedirect {
		t.Errorf("Expected status %d, got %d", http.StatusTemporaryRedirect, w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/health" {
		t.Errorf("Expected redirect to /health, got %q", loc)
	}
}
