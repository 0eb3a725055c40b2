package session

import "github.com/moyoez/docconvert-go/types"

// Observer receives every state change of the active session. Callbacks run
// synchronously on the orchestrator's goroutine and must not call Submit or
// Close; Snapshot and ActiveSessionID are safe.
type Observer interface {
	OnStatusChange(snap types.Snapshot)
	OnProgress(snap types.Snapshot)
	OnError(snap types.Snapshot)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	StatusChange func(types.Snapshot)
	Progress     func(types.Snapshot)
	Error        func(types.Snapshot)
}

func (f ObserverFuncs) OnStatusChange(snap types.Snapshot) {
	if f.StatusChange != nil {
		f.StatusChange(snap)
	}
}

func (f ObserverFuncs) OnProgress(snap types.Snapshot) {
	if f.Progress != nil {
		f.Progress(snap)
	}
}

func (f ObserverFuncs) OnError(snap types.Snapshot) {
	if f.Error != nil {
		f.Error(snap)
	}
}

// ActiveSessionListener is told whenever the server id of the active session
// changes. An empty string means no active session or no id assigned yet.
type ActiveSessionListener interface {
	ActiveSessionChanged(previous, current string)
}
