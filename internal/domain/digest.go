package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// DigestHexLen is the length of a hex-encoded 32-byte content digest.
const DigestHexLen = 64

// ParseDigest validates a hex digest and returns it lowercased.
// Exactly 64 hex characters are accepted; nothing is padded or truncated.
func ParseDigest(s string) (string, error) {
	if len(s) != DigestHexLen {
		return "", fmt.Errorf("%w: digest must be %d hex characters, got %d", ErrValidation, DigestHexLen, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("%w: digest is not hexadecimal", ErrValidation)
	}
	return strings.ToLower(s), nil
}
