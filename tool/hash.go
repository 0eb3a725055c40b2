package tool

import (
	"github.com/google/uuid"
)

func GenerateRandomUUID() string {
	return uuid.New().String()
}

// GenerateLocalSessionID returns the handle used for a session before the
// server has assigned its own id.
func GenerateLocalSessionID() string {
	return "local-" + uuid.New().String()[:8]
}
