package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/moyoez/docconvert-go/transfer"
	"github.com/moyoez/docconvert-go/types"
)

type pollStep struct {
	snap *types.ProgressSnapshot
	err  error
}

func progressStep(current, total int) pollStep {
	return pollStep{snap: &types.ProgressSnapshot{Current: current, Total: total}}
}

func notFoundStep(id string) pollStep {
	return pollStep{err: &transfer.NotFoundError{SessionID: id}}
}

func repeat(step pollStep, n int) []pollStep {
	steps := make([]pollStep, n)
	for i := range steps {
		steps[i] = step
	}
	return steps
}

// fakeTransport scripts the server. Poll steps are consumed per session id;
// the last step repeats once the script is exhausted.
type fakeTransport struct {
	mu         sync.Mutex
	sessionIDs []string
	uploadErr  error
	startErr   error
	steps      map[string][]pollStep
	pollHook   func(ctx context.Context, sessionId string, n int)

	uploads  int
	starts   []string
	polls    map[string]int
	cleanups []string
}

func newFakeTransport(sessionIDs ...string) *fakeTransport {
	return &fakeTransport{
		sessionIDs: sessionIDs,
		steps:      make(map[string][]pollStep),
		polls:      make(map[string]int),
	}
}

func (f *fakeTransport) script(sessionId string, steps ...pollStep) *fakeTransport {
	f.steps[sessionId] = steps
	return f
}

func (f *fakeTransport) Upload(ctx context.Context, sel types.FileSelection) (*types.UploadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.uploads
	f.uploads++
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	if n >= len(f.sessionIDs) {
		return nil, fmt.Errorf("unexpected upload #%d", n+1)
	}
	return &types.UploadResponse{SessionID: f.sessionIDs[n], Mode: string(sel.Mode), Lang: sel.Language}, nil
}

func (f *fakeTransport) StartProcessing(ctx context.Context, sessionId string, mode types.Mode, lang string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, sessionId)
	return f.startErr
}

func (f *fakeTransport) PollProgress(ctx context.Context, sessionId string) (*types.ProgressSnapshot, error) {
	f.mu.Lock()
	n := f.polls[sessionId]
	f.polls[sessionId] = n + 1
	steps := f.steps[sessionId]
	hook := f.pollHook
	f.mu.Unlock()

	if hook != nil {
		hook(ctx, sessionId, n)
	}
	if len(steps) == 0 {
		return nil, &transfer.NotFoundError{SessionID: sessionId}
	}
	step := steps[min(n, len(steps)-1)]
	if step.snap != nil {
		snap := *step.snap
		return &snap, step.err
	}
	return nil, step.err
}

func (f *fakeTransport) Cleanup(ctx context.Context, sessionId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanups = append(f.cleanups, sessionId)
	return nil
}

func (f *fakeTransport) DownloadURL(sessionId string) string {
	return "/download/" + sessionId
}

func (f *fakeTransport) pollCount(sessionId string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls[sessionId]
}

func (f *fakeTransport) cleanupCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cleanups...)
}

func (f *fakeTransport) counts() (uploads, starts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads, len(f.starts)
}

type recordedEvent struct {
	kind string
	snap types.Snapshot
}

// recorder is an Observer that keeps every callback in order.
type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) add(kind string, snap types.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{kind: kind, snap: snap})
}

func (r *recorder) OnStatusChange(snap types.Snapshot) { r.add("status", snap) }
func (r *recorder) OnProgress(snap types.Snapshot)     { r.add("progress", snap) }
func (r *recorder) OnError(snap types.Snapshot)        { r.add("error", snap) }

func (r *recorder) all() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent(nil), r.events...)
}

func (r *recorder) statuses() []types.Status {
	var out []types.Status
	for _, ev := range r.all() {
		if ev.kind == "status" {
			out = append(out, ev.snap.Status)
		}
	}
	return out
}

func (r *recorder) progress() []types.Progress {
	var out []types.Progress
	for _, ev := range r.all() {
		if ev.kind == "progress" {
			out = append(out, ev.snap.Progress)
		}
	}
	return out
}

func pdfSelection(names ...string) types.FileSelection {
	sel := types.FileSelection{Mode: types.ModePDF, Language: "eng"}
	for _, n := range names {
		sel.Files = append(sel.Files, types.FileEntry{Name: n, Path: n, Size: 10})
	}
	return sel
}

func fastOptions() Options {
	return Options{PollInterval: time.Millisecond, MaxNotFoundAttempts: DefaultMaxNotFoundAttempts}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitTerminal(t *testing.T, o *Orchestrator) types.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	snap, err := o.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	return snap
}
