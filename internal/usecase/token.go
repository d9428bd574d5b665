package usecase

import (
	"crypto/rand"
	"encoding/hex"
)

// Opaque token sizes in random bytes; hex encoding doubles them on the wire.
// Reset and verification tokens are 40 characters, refresh tokens 128.
const (
	ResetTokenBytes   = 20
	RefreshTokenBytes = 64
)

// OpaqueToken returns n bytes of cryptographically secure randomness encoded
// as hex. Collisions are not expected in practice; the store's unique
// constraints are the safety net.
func OpaqueToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
