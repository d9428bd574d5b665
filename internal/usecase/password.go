package usecase

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters. 128 derived bytes encode to a 256-character hex digest,
// so every stored hash has the same length regardless of the plaintext.
const (
	hashIterations = 100000
	hashKeyLength  = 128
)

// NewSalt returns a fresh random per-user salt. A new salt is generated every
// time a password is set.
func NewSalt() string { return uuid.NewString() }

// HashPassword derives the hex-encoded PBKDF2-SHA256 digest of plain under
// salt. Pure function: persisting salt and digest together is the caller's
// job.
func HashPassword(plain, salt string) string {
	key := pbkdf2.Key([]byte(plain), []byte(salt), hashIterations, hashKeyLength, sha256.New)
	return hex.EncodeToString(key)
}

// TestPassword reports whether plain hashes to storedHex under salt. The
// comparison is constant time.
func TestPassword(plain, salt, storedHex string) bool {
	derived := HashPassword(plain, salt)
	return subtle.ConstantTimeCompare([]byte(derived), []byte(storedHex)) == 1
}
