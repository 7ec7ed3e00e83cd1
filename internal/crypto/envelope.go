package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
)

// EncryptForRecipients performs hybrid multi-recipient encryption.
//
// The encryption process:
//  1. Generate a fresh random AES-256 content key and 12-byte IV
//  2. AES-256-GCM encrypt the UTF-8 plaintext under (content key, IV)
//  3. RSA-OAEP-SHA-256 wrap the raw content key once per recipient
//
// The recipient set must be non-empty. The sender must include itself as a
// recipient to be able to re-read its own sent message: there is no cleartext
// sent-items cache, every envelope is only recoverable via a wrapped key.
// The content key is wiped before returning.
func EncryptForRecipients(plaintext string, recipients map[string]*rsa.PublicKey) (*Envelope, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	contentKey, err := NewContentKey()
	if err != nil {
		return nil, err
	}
	defer Wipe(contentKey)

	iv, err := NewIV()
	if err != nil {
		return nil, err
	}

	ciphertext, err := EncryptAESGCM(contentKey, iv, []byte(plaintext))
	if err != nil {
		return nil, err
	}

	keys := make(map[string]string, len(recipients))
	for id, pub := range recipients {
		wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, contentKey, nil)
		if err != nil {
			return nil, fmt.Errorf("wrap content key for %q: %w", id, err)
		}
		keys[id] = ToBase64(wrapped)
	}

	return &Envelope{
		Ciphertext: ToBase64(ciphertext),
		IV:         ToBase64(iv),
		Keys:       keys,
	}, nil
}

// DecryptEnvelope decrypts an envelope for the recipient identified by selfID.
//
// The wrapped key is resolved from the recipient map, or taken directly when
// the envelope uses the legacy single-key format. A multi-recipient envelope
// that does not name selfID fails closed with ErrRecipientNotFound rather
// than guessing an arbitrary entry.
//
// Wrong key and tampered data are indistinguishable; both surface as
// ErrDecryptionFailed. Each envelope decrypts independently: a failure here
// never affects any other message.
func DecryptEnvelope(env *Envelope, priv *rsa.PrivateKey, selfID string) (string, error) {
	wrappedB64, err := env.wrappedKeyFor(selfID)
	if err != nil {
		return "", err
	}

	wrapped, err := DecodeBase64(wrappedB64)
	if err != nil {
		return "", fmt.Errorf("%w: decode wrapped key: %v", ErrInvalidEnvelope, err)
	}

	contentKey, err := rsa.DecryptOAEP(sha256.New(), nil, priv, wrapped, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	defer Wipe(contentKey)

	iv, err := DecodeBase64(env.IV)
	if err != nil {
		return "", fmt.Errorf("%w: decode iv: %v", ErrInvalidEnvelope, err)
	}

	ciphertext, err := DecodeBase64(env.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: decode ciphertext: %v", ErrInvalidEnvelope, err)
	}

	plaintext, err := DecryptAESGCM(contentKey, iv, ciphertext)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}

// wrappedKeyFor resolves which wrapped-key value belongs to selfID.
func (e *Envelope) wrappedKeyFor(selfID string) (string, error) {
	if e.Keys != nil {
		if v, ok := e.Keys[selfID]; ok {
			return v, nil
		}
		return "", ErrRecipientNotFound
	}
	if e.LegacyKey != "" {
		// Envelope predates multi-recipient support: a single wrapped key
		// with no recipient map, used regardless of identifier.
		return e.LegacyKey, nil
	}
	return "", fmt.Errorf("%w: no wrapped key", ErrInvalidEnvelope)
}
