package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/moyoez/docconvert-go/tool"
	"github.com/moyoez/docconvert-go/types"
)

// Transport is the set of server calls a session needs.
type Transport interface {
	ProgressSource
	Upload(ctx context.Context, sel types.FileSelection) (*types.UploadResponse, error)
	StartProcessing(ctx context.Context, sessionId string, mode types.Mode, lang string) error
	DownloadURL(sessionId string) string
}

// Options configures an Orchestrator. Zero values use the defaults.
type Options struct {
	PollInterval        time.Duration
	MaxNotFoundAttempts int
	DefaultLanguage     string
	MaxUploadBytes      int64 // 0 disables the size check
}

const DefaultLanguage = "ben"

type session struct {
	localID   string
	id        string
	sel       types.FileSelection
	status    types.Status
	progress  types.Progress
	errMsg    string
	updatedAt time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	poller  *Poller
	retired bool
	done    chan struct{}
}

func (s *session) finish() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// Orchestrator drives one active session through upload, start, poll and
// completion. Submitting again retires the previous session.
type Orchestrator struct {
	transport Transport
	opts      Options

	// emitMu serialises mutate-and-notify so a retired session can never
	// deliver a callback after its successor's first one. Lock order: emitMu, mu.
	emitMu    sync.Mutex
	mu        sync.Mutex
	active    *session
	observers []Observer
	listeners []ActiveSessionListener
	wg        sync.WaitGroup
}

func NewOrchestrator(transport Transport, opts Options) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxNotFoundAttempts <= 0 {
		opts.MaxNotFoundAttempts = DefaultMaxNotFoundAttempts
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = DefaultLanguage
	}
	return &Orchestrator{
		transport: transport,
		opts:      opts,
	}
}

func (o *Orchestrator) AddObserver(obs Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, obs)
}

func (o *Orchestrator) AddActiveListener(l ActiveSessionListener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, l)
}

// ActiveSessionID returns the server id of the active session, or "" when
// there is none or the upload has not been acknowledged yet.
func (o *Orchestrator) ActiveSessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil {
		return ""
	}
	return o.active.id
}

// Snapshot returns the state of the active session.
func (o *Orchestrator) Snapshot() (types.Snapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil {
		return types.Snapshot{}, false
	}
	return o.snapshotLocked(o.active), true
}

// Submit validates sel, retires any active session and starts the new one in
// the background. The returned snapshot is the CREATED state.
func (o *Orchestrator) Submit(sel types.FileSelection) (types.Snapshot, error) {
	if err := o.validate(sel); err != nil {
		return types.Snapshot{}, err
	}
	sel.Files = append([]types.FileEntry(nil), sel.Files...)
	if sel.Language == "" {
		sel.Language = o.opts.DefaultLanguage
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		localID:   tool.GenerateLocalSessionID(),
		sel:       sel,
		status:    types.StatusCreated,
		updatedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	o.emitMu.Lock()
	o.mu.Lock()
	previousID := o.retireLocked()
	o.active = s
	snap := o.snapshotLocked(s)
	observers := append([]Observer(nil), o.observers...)
	o.mu.Unlock()
	for _, obs := range observers {
		obs.OnStatusChange(snap)
	}
	o.emitMu.Unlock()

	tool.DefaultLogger.Infof("[Session] Submitted %s: %d file(s), mode=%s, lang=%s", s.localID, len(sel.Files), sel.Mode, sel.Language)
	if previousID != "" {
		o.notifyActive(previousID, "")
	}

	o.wg.Add(1)
	go o.run(s)
	return snap, nil
}

// Close retires the active session and waits for its goroutine to stop.
// Listeners see the session go away, so a LifecycleGuard releases it.
func (o *Orchestrator) Close() {
	o.emitMu.Lock()
	o.mu.Lock()
	previousID := o.retireLocked()
	o.active = nil
	o.mu.Unlock()
	o.emitMu.Unlock()

	if previousID != "" {
		o.notifyActive(previousID, "")
	}
	o.wg.Wait()
}

// Wait blocks until the session active at call time reaches a terminal state
// or is retired, and returns its last snapshot.
func (o *Orchestrator) Wait(ctx context.Context) (types.Snapshot, error) {
	o.mu.Lock()
	s := o.active
	o.mu.Unlock()
	if s == nil {
		return types.Snapshot{}, fmt.Errorf("no active session")
	}

	select {
	case <-ctx.Done():
		return types.Snapshot{}, ctx.Err()
	case <-s.done:
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	snap := o.snapshotLocked(s)
	if s.retired && !snap.Status.Terminal() {
		return snap, fmt.Errorf("session %s was superseded", s.localID)
	}
	return snap, nil
}

func (o *Orchestrator) validate(sel types.FileSelection) error {
	if _, ok := types.ParseMode(string(sel.Mode)); !ok {
		return &ValidationError{Message: fmt.Sprintf("unknown conversion mode %q", sel.Mode)}
	}
	if len(sel.Files) == 0 {
		return &ValidationError{Message: fmt.Sprintf("Please select at least one %s file", sel.Mode.Label())}
	}
	for _, f := range sel.Files {
		if !sel.Mode.AllowsFile(f.Name) {
			return &ValidationError{Message: fmt.Sprintf("%s is not a supported %s file", f.Name, sel.Mode.Label())}
		}
	}
	if o.opts.MaxUploadBytes > 0 && sel.TotalSize() > o.opts.MaxUploadBytes {
		return &ValidationError{Message: fmt.Sprintf("selection is %d bytes, limit is %d", sel.TotalSize(), o.opts.MaxUploadBytes)}
	}
	return nil
}

// retireLocked invalidates the active session and returns its server id.
func (o *Orchestrator) retireLocked() string {
	prev := o.active
	if prev == nil {
		return ""
	}
	prev.retired = true
	prev.cancel()
	if prev.poller != nil {
		prev.poller.Dispose()
	}
	prev.finish()
	tool.DefaultLogger.Debugf("[Session] Retired %s (session=%q, status=%s)", prev.localID, prev.id, prev.status)
	return prev.id
}

func (o *Orchestrator) run(s *session) {
	defer o.wg.Done()

	resp, err := o.transport.Upload(s.ctx, s.sel)
	if err != nil {
		o.fail(s, err)
		return
	}
	mode := s.sel.Mode
	if m, ok := types.ParseMode(resp.Mode); ok {
		mode = m
	}
	lang := resp.Lang
	if lang == "" {
		lang = s.sel.Language
	}

	if !o.apply(s, kindStatus, func() bool {
		s.id = resp.SessionID
		s.status = types.StatusUploaded
		return true
	}) {
		// Retired while the upload was in flight: the server now holds an
		// orphaned session that only listeners can release.
		o.notifyActive(resp.SessionID, "")
		return
	}
	o.notifyActive("", resp.SessionID)

	if err := o.transport.StartProcessing(s.ctx, s.id, mode, lang); err != nil {
		o.fail(s, err)
		return
	}

	poller := NewPoller(o.transport, s.id, PollerOptions{
		Interval:            o.opts.PollInterval,
		MaxNotFoundAttempts: o.opts.MaxNotFoundAttempts,
	})
	if !o.apply(s, kindStatus, func() bool {
		s.status = types.StatusProcessing
		s.poller = poller
		return true
	}) {
		poller.Dispose()
		return
	}

	poller.Run(s.ctx, func(ev PollEvent) {
		o.handlePollEvent(s, ev)
	})
}

func (o *Orchestrator) handlePollEvent(s *session, ev PollEvent) {
	switch ev.Kind {
	case EventProgress:
		o.apply(s, kindProgress, func() bool {
			if ev.Progress == s.progress || ev.Progress.Current < s.progress.Current {
				return false
			}
			s.progress = ev.Progress
			return true
		})
	case EventCompleted:
		if o.apply(s, kindStatus, func() bool {
			if ev.Progress.Current >= s.progress.Current {
				s.progress = ev.Progress
			}
			s.status = types.StatusCompleted
			return true
		}) {
			tool.DefaultLogger.Infof("[Session] Session %s completed (%d/%d)", s.id, ev.Progress.Current, ev.Progress.Total)
		}
	case EventFailed:
		o.fail(s, ev.Err)
	}
}

func (o *Orchestrator) fail(s *session, err error) {
	msg := ErrorMessage(err)
	if o.apply(s, kindError, func() bool {
		s.status = types.StatusFailed
		s.errMsg = msg
		return true
	}) {
		tool.DefaultLogger.Errorf("[Session] Session %s failed: %s", s.localID, msg)
	}
}

type changeKind int

const (
	kindStatus changeKind = iota
	kindProgress
	kindError
)

// apply mutates s and notifies observers, but only while s is still the
// active, non-terminal session. It reports whether the change was applied.
func (o *Orchestrator) apply(s *session, kind changeKind, mutate func() bool) bool {
	o.emitMu.Lock()
	defer o.emitMu.Unlock()

	o.mu.Lock()
	if o.active != s || s.retired || s.status.Terminal() {
		o.mu.Unlock()
		return false
	}
	if !mutate() {
		o.mu.Unlock()
		return false
	}
	s.updatedAt = time.Now()
	if s.status.Terminal() {
		s.finish()
	}
	snap := o.snapshotLocked(s)
	observers := append([]Observer(nil), o.observers...)
	o.mu.Unlock()

	for _, obs := range observers {
		switch kind {
		case kindStatus:
			obs.OnStatusChange(snap)
		case kindProgress:
			obs.OnProgress(snap)
		case kindError:
			obs.OnStatusChange(snap)
			obs.OnError(snap)
		}
	}
	return true
}

func (o *Orchestrator) notifyActive(previous, current string) {
	o.mu.Lock()
	listeners := append([]ActiveSessionListener(nil), o.listeners...)
	o.mu.Unlock()
	for _, l := range listeners {
		l.ActiveSessionChanged(previous, current)
	}
}

func (o *Orchestrator) snapshotLocked(s *session) types.Snapshot {
	snap := types.Snapshot{
		LocalID:      s.localID,
		SessionID:    s.id,
		Mode:         s.sel.Mode,
		Language:     s.sel.Language,
		Status:       s.status,
		Progress:     s.progress,
		Percent:      s.progress.Percent(),
		ErrorMessage: s.errMsg,
		FileCount:    len(s.sel.Files),
		UpdatedAt:    s.updatedAt,
	}
	if s.status == types.StatusCompleted && s.id != "" {
		snap.DownloadURL = o.transport.DownloadURL(s.id)
	}
	return snap
}
