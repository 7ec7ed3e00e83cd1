// Package vault protects the account private key at rest. The key is wrapped
// under a password-derived AES key and persisted as one record per owner; the
// password itself is never stored.
package vault

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/notescsbsbmsce/secrate-chat/internal/crypto"
)

var (
	// ErrNotFound is returned when no record exists for an owner. This is
	// the normal state for a user who never completed signup on this device,
	// not a failure.
	ErrNotFound = errors.New("no vault record for owner")

	// ErrUnlockFailed is returned when the record cannot be decrypted.
	// Wrong password and corrupted or tampered record are indistinguishable:
	// GCM tag verification is binary.
	ErrUnlockFailed = errors.New("vault unlock failed")

	// ErrWriteFailed is returned when persisting a wrapped key fails.
	ErrWriteFailed = errors.New("vault write failed")
)

// WriteError wraps an underlying storage failure during WrapAndStore.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("vault write failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *WriteError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *WriteError) Is(target error) bool {
	return target == ErrWriteFailed
}

// Record is the wrapped-private-key record persisted per owner. The KDF
// parameters travel with the ciphertext so unwrapping never depends on
// out-of-band knowledge, and the iteration count can change for new records
// without breaking old ones.
type Record struct {
	OwnerID    string `json:"ownerId"`
	Ciphertext []byte `json:"ciphertext"`
	Salt       []byte `json:"salt"`
	IV         []byte `json:"iv"`
	Iterations int    `json:"kdfIterations"`
}

// Store is the persistent key vault: durable storage keyed by owner
// identifier, one record per owner. Get returns ErrNotFound when no record
// exists. Implementations must treat Put and Get as atomic per owner;
// callers serialize writes per owner (expected once, at signup).
type Store interface {
	Put(ctx context.Context, rec *Record) error
	Get(ctx context.Context, ownerID string) (*Record, error)
	Delete(ctx context.Context, ownerID string) error
}

// Vault wraps and unwraps private keys over a Store.
type Vault struct {
	store Store
}

// New creates a Vault backed by the given store.
func New(store Store) *Vault {
	return &Vault{store: store}
}

// WrapAndStore derives an AES-256 key from the password via
// PBKDF2-HMAC-SHA-256 with a fresh salt, encrypts the private key's PKCS8
// serialization under AES-256-GCM with a fresh IV, and persists the record.
// Any prior record for the owner is overwritten. Storage failure surfaces as
// a WriteError and is not retried here.
func (v *Vault) WrapAndStore(ctx context.Context, ownerID string, priv *rsa.PrivateKey, password string) error {
	salt, err := crypto.NewSalt()
	if err != nil {
		return err
	}
	iv, err := crypto.NewIV()
	if err != nil {
		return err
	}

	kek := crypto.DeriveKey(password, salt, crypto.PBKDF2Iterations)
	defer crypto.Wipe(kek)

	plaintext, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return err
	}
	defer crypto.Wipe(plaintext)

	ciphertext, err := crypto.EncryptAESGCM(kek, iv, plaintext)
	if err != nil {
		return err
	}

	rec := &Record{
		OwnerID:    ownerID,
		Ciphertext: ciphertext,
		Salt:       salt,
		IV:         iv,
		Iterations: crypto.PBKDF2Iterations,
	}

	if err := v.store.Put(ctx, rec); err != nil {
		return &WriteError{Err: err}
	}
	return nil
}

// Unwrap reads the owner's record, re-derives the key with the stored salt
// and iteration count, and decrypts the private key. A missing record
// returns ErrNotFound; an authentication failure returns ErrUnlockFailed.
func (v *Vault) Unwrap(ctx context.Context, ownerID, password string) (*rsa.PrivateKey, error) {
	rec, err := v.store.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	iterations := rec.Iterations
	if iterations == 0 {
		// Records written before the iteration count was persisted.
		iterations = crypto.PBKDF2Iterations
	}

	kek := crypto.DeriveKey(password, rec.Salt, iterations)
	defer crypto.Wipe(kek)

	plaintext, err := crypto.DecryptAESGCM(kek, rec.IV, rec.Ciphertext)
	if err != nil {
		return nil, ErrUnlockFailed
	}
	defer crypto.Wipe(plaintext)

	priv, err := crypto.ParsePrivateKey(plaintext)
	if err != nil {
		return nil, ErrUnlockFailed
	}
	return priv, nil
}

// Reset deletes the owner's record. Used only for account or device reset.
func (v *Vault) Reset(ctx context.Context, ownerID string) error {
	return v.store.Delete(ctx, ownerID)
}
