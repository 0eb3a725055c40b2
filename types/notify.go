package types

const (
	NotifyTypeSessionCompleted = "session_completed"
	NotifyTypeSessionFailed    = "session_failed"
	NotifyTypeSessionState     = "session_state"
)

// Notification represents a notification message structure
type Notification struct {
	Type    string         `json:"type,omitempty"`    // Notification type, e.g. "session_completed"
	Title   string         `json:"title,omitempty"`   // Notification title
	Message string         `json:"message,omitempty"` // Notification message/content
	Data    map[string]any `json:"data,omitempty"`    // Additional data fields
}

// SessionEvent is what the websocket hub pushes for every orchestrator callback.
type SessionEvent struct {
	Event    string   `json:"event"` // status | progress | error
	Snapshot Snapshot `json:"snapshot"`
}
