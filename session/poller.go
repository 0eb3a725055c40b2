package session

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/moyoez/docconvert-go/tool"
	"github.com/moyoez/docconvert-go/transfer"
	"github.com/moyoez/docconvert-go/types"
)

const (
	DefaultPollInterval        = time.Second
	DefaultMaxNotFoundAttempts = 30
)

// ProgressSource is the single poll primitive the Poller drives.
type ProgressSource interface {
	PollProgress(ctx context.Context, sessionId string) (*types.ProgressSnapshot, error)
}

type EventKind int

const (
	EventProgress EventKind = iota
	EventCompleted
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	}
	return "unknown"
}

// PollEvent is one item of the completion-or-failure stream.
type PollEvent struct {
	Kind     EventKind
	Progress types.Progress
	Err      error
}

// PollerOptions tunes the poll loop. Zero values use the defaults.
type PollerOptions struct {
	Interval            time.Duration
	MaxNotFoundAttempts int
}

// Poller polls one session serially until it completes, fails or is disposed.
type Poller struct {
	source      ProgressSource
	sessionID   string
	interval    time.Duration
	maxNotFound int

	mu               sync.Mutex
	notFoundAttempts int
	lastCurrent      int
	polls            int
	disposed         bool
	cancel           context.CancelFunc
}

func NewPoller(source ProgressSource, sessionID string, opts PollerOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.MaxNotFoundAttempts <= 0 {
		opts.MaxNotFoundAttempts = DefaultMaxNotFoundAttempts
	}
	return &Poller{
		source:      source,
		sessionID:   sessionID,
		interval:    opts.Interval,
		maxNotFound: opts.MaxNotFoundAttempts,
	}
}

// Run blocks until a terminal event was emitted, ctx ends or Dispose is called.
// After disposal no further event reaches emit, including one whose request
// was already in flight.
func (p *Poller) Run(ctx context.Context, emit func(PollEvent)) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.cancel = cancel
	p.mu.Unlock()

	timer := time.NewTimer(p.interval)
	timer.Stop()
	defer timer.Stop()

	for {
		ev, done := p.step(ctx)
		if ctx.Err() != nil || p.Disposed() {
			return
		}
		if ev != nil {
			emit(*ev)
		}
		if done {
			return
		}

		timer.Reset(p.interval)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// Dispose invalidates the poller and cancels an in-flight request.
func (p *Poller) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disposed = true
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Poller) Disposed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disposed
}

// NotFoundAttempts is the number of tolerated "not yet available" answers so far.
func (p *Poller) NotFoundAttempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.notFoundAttempts
}

// Polls is the number of requests issued.
func (p *Poller) Polls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls
}

func (p *Poller) step(ctx context.Context) (*PollEvent, bool) {
	snap, err := p.source.PollProgress(ctx, p.sessionID)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls++

	if err != nil {
		if ctx.Err() != nil {
			return nil, true
		}
		if transfer.IsNotFound(err) {
			return p.notYetAvailableLocked()
		}
		return &PollEvent{Kind: EventFailed, Err: err}, true
	}
	if snap.Error != "" {
		return &PollEvent{Kind: EventFailed, Err: &ServerReportedError{Message: snap.Error}}, true
	}
	// {current:0,total:0} is what the server answers before its progress record is written.
	if snap.Total <= 0 {
		return p.notYetAvailableLocked()
	}
	if snap.Current < p.lastCurrent {
		tool.DefaultLogger.Debugf("[Progress] Discarding stale progress %d/%d for session %s (seen %d)", snap.Current, snap.Total, p.sessionID, p.lastCurrent)
		return nil, false
	}
	p.lastCurrent = snap.Current

	progress := types.Progress{Current: min(snap.Current, snap.Total), Total: snap.Total}
	if derived := progress.Percent(); snap.ServerPercent != 0 && math.Abs(derived-snap.ServerPercent) > 0.1 {
		tool.DefaultLogger.Debugf("[Progress] Server percent %.1f differs from derived %.1f for session %s", snap.ServerPercent, derived, p.sessionID)
	}
	if snap.Current >= snap.Total {
		return &PollEvent{Kind: EventCompleted, Progress: progress}, true
	}
	return &PollEvent{Kind: EventProgress, Progress: progress}, false
}

func (p *Poller) notYetAvailableLocked() (*PollEvent, bool) {
	p.notFoundAttempts++
	if p.notFoundAttempts >= p.maxNotFound {
		tool.DefaultLogger.Warnf("[Progress] Session %s still has no progress after %d attempts", p.sessionID, p.notFoundAttempts)
		return &PollEvent{Kind: EventFailed, Err: &TimeoutError{SessionID: p.sessionID, Attempts: p.notFoundAttempts}}, true
	}
	tool.DefaultLogger.Debugf("[Progress] Progress for session %s not available yet (%d/%d)", p.sessionID, p.notFoundAttempts, p.maxNotFound)
	return nil, false
}
