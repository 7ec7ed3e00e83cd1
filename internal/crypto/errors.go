package crypto

import "errors"

var (
	// ErrMalformedKey is returned when a public key encoding cannot be parsed
	// or does not describe an RSA key.
	ErrMalformedKey = errors.New("malformed public key")

	// ErrDecryptionFailed is returned when envelope decryption fails, covering
	// both a wrong private key and tampered ciphertext.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrNoRecipients is returned when encryption is requested with an empty
	// recipient set.
	ErrNoRecipients = errors.New("recipient set is empty")

	// ErrRecipientNotFound is returned when the caller's identifier is absent
	// from a multi-recipient envelope.
	ErrRecipientNotFound = errors.New("recipient not present in envelope")

	// ErrInvalidKeySize is returned when the AES key size is invalid.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidNonceSize is returned when the IV size is invalid.
	ErrInvalidNonceSize = errors.New("invalid nonce size")

	// ErrInvalidEnvelope is returned when the envelope structure is invalid.
	// This includes malformed base64, missing fields, or bad encoding.
	ErrInvalidEnvelope = errors.New("invalid envelope")
)
