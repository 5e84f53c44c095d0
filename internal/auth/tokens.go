package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// GenerateOpaqueToken returns a 256-bit random bearer credential rendered as
// a fixed-length hex string. Collisions are treated as negligible; no
// uniqueness check is performed.
func GenerateOpaqueToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

var codeMax = big.NewInt(1000000)

// GenerateNumericCode returns a 6-digit decimal code for flows where the user
// types the credential instead of following a link. It draws from the same
// cryptographically secure source as opaque tokens.
func GenerateNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeMax)
	if err != nil {
		return "", fmt.Errorf("failed to generate random code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
