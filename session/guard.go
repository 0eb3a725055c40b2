package session

import (
	"context"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/moyoez/docconvert-go/tool"
)

const (
	DefaultCleanupTimeout = 5 * time.Second
	releasedTTL           = time.Hour
)

// ActiveSessionSource exposes the server id of the active session.
type ActiveSessionSource interface {
	ActiveSessionID() string
}

// Cleaner deletes a session's resources on the server.
type Cleaner interface {
	Cleanup(ctx context.Context, sessionId string) error
}

// LifecycleGuard releases server sessions the client walks away from: the active
// one on Abandon, and superseded ones as soon as the orchestrator reports them.
// Every session id is cleaned up at most once.
type LifecycleGuard struct {
	source  ActiveSessionSource
	cleaner Cleaner
	timeout time.Duration

	mu       sync.Mutex
	released *ttlworker.Cache[string, bool]
	wg       sync.WaitGroup
}

func NewLifecycleGuard(source ActiveSessionSource, cleaner Cleaner, timeout time.Duration) *LifecycleGuard {
	if timeout <= 0 {
		timeout = DefaultCleanupTimeout
	}
	return &LifecycleGuard{
		source:   source,
		cleaner:  cleaner,
		timeout:  timeout,
		released: ttlworker.NewCache[string, bool](releasedTTL),
	}
}

// Abandon issues the cleanup for the active session, if any, and returns once
// the request finished or timed out. Cancelling ctx does not cut the request
// short. The result is only logged.
func (g *LifecycleGuard) Abandon(ctx context.Context) bool {
	sessionId := g.source.ActiveSessionID()
	if sessionId == "" {
		tool.DefaultLogger.Debugf("[Guard] Abandon with no active session")
		return false
	}
	return g.release(ctx, sessionId)
}

// ActiveSessionChanged implements ActiveSessionListener. A previous id that is
// no longer active is released in the background.
func (g *LifecycleGuard) ActiveSessionChanged(previous, current string) {
	if previous == "" || previous == current {
		return
	}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.release(context.Background(), previous)
	}()
}

// Wait blocks until background releases have finished.
func (g *LifecycleGuard) Wait() {
	g.wg.Wait()
}

// Released reports whether a cleanup was already dispatched for sessionId.
func (g *LifecycleGuard) Released(sessionId string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.released.Get(sessionId)
}

func (g *LifecycleGuard) release(ctx context.Context, sessionId string) bool {
	g.mu.Lock()
	if g.released.Get(sessionId) {
		g.mu.Unlock()
		return false
	}
	g.released.Set(sessionId, true)
	g.mu.Unlock()

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	defer cancel()

	tool.DefaultLogger.Infof("[Guard] Releasing session %s", sessionId)
	if err := g.cleaner.Cleanup(cctx, sessionId); err != nil {
		tool.DefaultLogger.Warnf("[Guard] Cleanup of session %s failed (ignored): %v", sessionId, err)
	}
	return true
}
