package types

// UploadResponse is the body returned by POST /upload.
type UploadResponse struct {
	SessionID string `json:"session_id"`
	Mode      string `json:"mode"`
	Lang      string `json:"lang"`
}

// ProgressSnapshot is the body returned by GET /progress/{sessionId}.
type ProgressSnapshot struct {
	Current       int     `json:"current"`
	Total         int     `json:"total"`
	ServerPercent float64 `json:"progress"`
	Error         string  `json:"error,omitempty"`
}

// ErrorBody is the {error} payload the server attaches to failures.
type ErrorBody struct {
	Error string `json:"error"`
}
