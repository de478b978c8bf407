package pkg

import "github.com/google/uuid"

// GenerateNewSessionID - a random id for a device session cookie.
func GenerateNewSessionID() string {
	return uuid.NewString()
}
