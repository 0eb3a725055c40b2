package transfer

import (
	"errors"
	"fmt"
)

// TransportError is any non-2xx answer from the conversion server, or a
// failure to reach it at all (StatusCode 0).
type TransportError struct {
	StatusCode int
	Message    string
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// NotFoundError is a 404 from the progress endpoint: the progress record
// for the session does not exist yet.
type NotFoundError struct {
	SessionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("progress for session %s not found", e.SessionID)
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
