package share

import (
	"sort"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/moyoez/docconvert-go/tool"
	"github.com/moyoez/docconvert-go/types"
)

const (
	DefaultHistoryTTL = 600 * time.Second
)

// History remembers finished sessions for a while so a UI that reconnects can
// still offer the download link. It is fed as a session observer.
type History struct {
	mu      sync.RWMutex
	entries *ttlworker.Cache[string, types.Snapshot]
	keys    map[string]struct{}
}

func NewHistory(ttl time.Duration) *History {
	if ttl <= 0 {
		ttl = DefaultHistoryTTL
	}
	return &History{
		entries: ttlworker.NewCache[string, types.Snapshot](ttl),
		keys:    make(map[string]struct{}),
	}
}

// Record stores a terminal snapshot under its local id.
func (h *History) Record(snap types.Snapshot) {
	if !snap.Status.Terminal() {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries.Set(snap.LocalID, snap)
	h.keys[snap.LocalID] = struct{}{}
	tool.DefaultLogger.Debugf("Recorded session %s (%s) in history", snap.LocalID, snap.Status)
}

// Get returns the stored snapshot, if it has not expired.
func (h *History) Get(localID string) (types.Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	snap := h.entries.Get(localID)
	return snap, snap.LocalID != ""
}

// List returns unexpired snapshots, newest first.
func (h *History) List() []types.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := make([]types.Snapshot, 0, len(h.keys))
	for k := range h.keys {
		snap := h.entries.Get(k)
		if snap.LocalID == "" {
			delete(h.keys, k)
			continue
		}
		list = append(list, snap)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
	return list
}

func (h *History) OnStatusChange(snap types.Snapshot) { h.Record(snap) }
func (h *History) OnProgress(types.Snapshot)          {}
func (h *History) OnError(types.Snapshot)             {}
