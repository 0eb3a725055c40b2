package session

import (
	"errors"
	"fmt"

	"github.com/moyoez/docconvert-go/transfer"
)

// ValidationError rejects a selection before any network call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// TimeoutError ends polling once the grace window for missing progress is used up.
type TimeoutError struct {
	SessionID string
	Attempts  int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("progress not available: gave up after %d attempts", e.Attempts)
}

// ServerReportedError is a successful progress response whose payload carries an error.
type ServerReportedError struct {
	Message string
}

func (e *ServerReportedError) Error() string {
	return e.Message
}

// ErrorMessage is the text observers see for err.
func ErrorMessage(err error) string {
	var te *transfer.TransportError
	if errors.As(err, &te) {
		return te.Message
	}
	return err.Error()
}
