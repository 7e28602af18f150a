package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// newToken returns 16 lowercase hex characters from a cryptographic source.
// Used for the presenter cookie and for message correlation ids.
func newToken() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
