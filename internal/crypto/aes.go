package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

// NewContentKey generates a fresh random AES-256 content key.
func NewContentKey() ([]byte, error) {
	key := make([]byte, AESKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate content key: %w", err)
	}
	return key, nil
}

// NewIV generates a fresh random 12-byte AES-GCM IV.
func NewIV() ([]byte, error) {
	iv := make([]byte, AESNonceSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}
	return iv, nil
}

// EncryptAESGCM encrypts plaintext under AES-256-GCM with the given key and IV.
// The returned ciphertext includes the 16-byte authentication tag.
func EncryptAESGCM(key, iv, plaintext []byte) ([]byte, error) {
	aesGCM, err := newGCM(key, iv)
	if err != nil {
		return nil, err
	}
	return aesGCM.Seal(nil, iv, plaintext, nil), nil
}

// DecryptAESGCM decrypts AES-256-GCM ciphertext (with trailing tag).
// Tag verification failure surfaces as ErrDecryptionFailed; no partial
// plaintext is ever returned.
func DecryptAESGCM(key, iv, ciphertext []byte) ([]byte, error) {
	aesGCM, err := newGCM(key, iv)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesGCM.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func newGCM(key, iv []byte) (cipher.AEAD, error) {
	if len(key) != AESKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), AESKeySize)
	}
	if len(iv) != AESNonceSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonceSize, len(iv), AESNonceSize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Wipe zeroes a sensitive buffer. Content keys and derived password keys are
// wiped as soon as they leave scope.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
