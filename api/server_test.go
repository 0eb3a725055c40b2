package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/moyoez/docconvert-go/api/controllers"
	"github.com/moyoez/docconvert-go/api/notifyhub"
	"github.com/moyoez/docconvert-go/session"
	"github.com/moyoez/docconvert-go/share"
	"github.com/moyoez/docconvert-go/transfer"
	"github.com/moyoez/docconvert-go/types"
)

// conversionServer answers like the remote OCR service: progress for "abc"
// appears after one 404 and completes on the third poll.
type conversionServer struct {
	polls    atomic.Int32
	mu       sync.Mutex
	cleanups []string
}

func (cs *conversionServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil || len(r.MultipartForm.File["files"]) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"No files uploaded"}`))
			return
		}
		_, _ = w.Write([]byte(`{"session_id":"abc","mode":"pdf","lang":"ben"}`))
	})
	mux.HandleFunc("GET /process/{id}/{mode}/{lang}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"processing_started"}`))
	})
	mux.HandleFunc("GET /progress/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch cs.polls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Session not found"}`))
		case 2:
			_, _ = w.Write([]byte(`{"current":1,"total":2,"progress":50}`))
		default:
			_, _ = w.Write([]byte(`{"current":2,"total":2,"progress":100}`))
		}
	})
	mux.HandleFunc("DELETE /cleanup/{id}", func(w http.ResponseWriter, r *http.Request) {
		cs.mu.Lock()
		cs.cleanups = append(cs.cleanups, r.PathValue("id"))
		cs.mu.Unlock()
		_, _ = w.Write([]byte(`{"status":"cleaned"}`))
	})
	return mux
}

func (cs *conversionServer) cleanupCalls() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]string(nil), cs.cleanups...)
}

type stack struct {
	remote  *conversionServer
	orch    *session.Orchestrator
	guard   *session.LifecycleGuard
	hub     *notifyhub.Hub
	local   *httptest.Server
	history *share.History
}

func newStack(t *testing.T) *stack {
	t.Helper()
	cs := &conversionServer{}
	remote := httptest.NewServer(cs.handler())
	t.Cleanup(remote.Close)

	client, err := transfer.NewClient(remote.URL)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	orch := session.NewOrchestrator(client, session.Options{PollInterval: 5 * time.Millisecond})
	guard := session.NewLifecycleGuard(orch, client, time.Second)
	orch.AddActiveListener(guard)
	history := share.NewHistory(time.Minute)
	hub := notifyhub.New()
	orch.AddObserver(history)
	orch.AddObserver(hub)

	srv := NewServer(0, Deps{
		Orchestrator: orch,
		Guard:        guard,
		History:      history,
		Hub:          hub,
		DefaultMode:  types.ModePDF,
	})
	local := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		local.Close()
		orch.Close()
		guard.Wait()
	})
	return &stack{remote: cs, orch: orch, guard: guard, hub: hub, local: local, history: history}
}

func (s *stack) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, s.local.URL+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *stack) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.local.URL, "http") + "/api/self/v1/notify-ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for s.hub.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("websocket client was never registered")
		}
		time.Sleep(time.Millisecond)
	}
	return conn
}

func pdfFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestSubmitStreamsEventsUntilCompleted drives a full session over the local API
func TestSubmitStreamsEventsUntilCompleted(t *testing.T) {
	s := newStack(t)
	conn := s.dial(t)

	resp := s.do(t, http.MethodPost, "/api/self/v1/submit", controllers.SubmitRequest{Files: []string{pdfFile(t)}})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("Expected status code 202, got %d", resp.StatusCode)
	}

	var statuses []types.Status
	var last types.Snapshot
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for last.Status != types.StatusCompleted {
		var ev types.SessionEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("ReadJSON failed after %v: %v", statuses, err)
		}
		if ev.Event == "status" {
			statuses = append(statuses, ev.Snapshot.Status)
		}
		last = ev.Snapshot
	}

	want := []types.Status{types.StatusCreated, types.StatusUploaded, types.StatusProcessing, types.StatusCompleted}
	if len(statuses) != len(want) {
		t.Fatalf("Expected statuses %v, got %v", want, statuses)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("Expected statuses %v, got %v", want, statuses)
		}
	}
	if !strings.HasSuffix(last.DownloadURL, "/download/abc") || last.Percent != 100 {
		t.Errorf("Unexpected final snapshot %+v", last)
	}
	if got := s.remote.cleanupCalls(); len(got) != 0 {
		t.Errorf("Expected completion to keep the artifact, got cleanups %v", got)
	}

	if resp := s.do(t, http.MethodGet, "/api/self/v1/download-qr", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("Expected a QR code once completed, got %d", resp.StatusCode)
	}
	if got := s.history.List(); len(got) != 1 || got[0].SessionID != "abc" {
		t.Errorf("Expected the session in history, got %+v", got)
	}
}

// TestAbandonCleansUpOnce tests the DELETE route against the guard
func TestAbandonCleansUpOnce(t *testing.T) {
	s := newStack(t)

	resp := s.do(t, http.MethodPost, "/api/self/v1/submit", controllers.SubmitRequest{Files: []string{pdfFile(t)}})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("Expected status code 202, got %d", resp.StatusCode)
	}
	deadline := time.Now().Add(5 * time.Second)
	for s.orch.ActiveSessionID() == "" {
		if time.Now().After(deadline) {
			t.Fatal("upload was never acknowledged")
		}
		time.Sleep(time.Millisecond)
	}

	resp = s.do(t, http.MethodDelete, "/api/self/v1/session", nil)
	var body struct {
		Released bool `json:"released"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if !body.Released {
		t.Error("Expected a cleanup to be dispatched")
	}
	s.guard.Wait()

	if got := s.remote.cleanupCalls(); len(got) != 1 || got[0] != "abc" {
		t.Errorf("Expected exactly one cleanup for abc, got %v", got)
	}
	if resp := s.do(t, http.MethodGet, "/api/self/v1/status", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected no active session after abandon, got %d", resp.StatusCode)
	}
}

// TestRejectsRemoteClients tests the loopback restriction
func TestRejectsRemoteClients(t *testing.T) {
	s := NewServer(0, Deps{
		Orchestrator: session.NewOrchestrator(nil, session.Options{}),
		History:      share.NewHistory(time.Minute),
	})
	req := httptest.NewRequest(http.MethodGet, "/api/self/v1/status", nil)
	req.RemoteAddr = "192.168.1.20:40000"
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status code 403, got %d", w.Code)
	}
}

// TestNotifyRouteNeedsHub tests that the websocket route is optional
func TestNotifyRouteNeedsHub(t *testing.T) {
	s := NewServer(0, Deps{
		Orchestrator: session.NewOrchestrator(nil, session.Options{}),
		History:      share.NewHistory(time.Minute),
	})
	req := httptest.NewRequest(http.MethodGet, "/api/self/v1/notify-ws", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status code 404, got %d", w.Code)
	}
}
