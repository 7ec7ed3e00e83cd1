package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// NewSalt generates a fresh random 16-byte KDF salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, PBKDF2SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey derives a 256-bit AES key from a password via
// PBKDF2-HMAC-SHA-256. The salt and iteration count are stored alongside the
// wrapped key so unwrapping never depends on out-of-band parameters.
// The caller must Wipe the returned key after use.
func DeriveKey(password string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, AESKeySize, sha256.New)
}
