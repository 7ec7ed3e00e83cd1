package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
)

// randReader is the random source used for key generation.
// It defaults to crypto/rand but can be overridden for testing.
var randReader io.Reader = rand.Reader

// GenerateKeyPair creates a new RSA-2048 keypair for envelope encryption.
// The public exponent is 65537. Failure is fatal and non-retryable: it only
// occurs when the underlying entropy source or algorithm fails.
func GenerateKeyPair() (*rsa.PrivateKey, error) {
	priv, err := rsa.GenerateKey(randReader, RSAKeyBits)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return priv, nil
}

// ExportPublicKey serializes a public key as base64 of its SPKI-DER encoding.
// This is the transport format published to the key directory.
func ExportPublicKey(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	return ToBase64(der), nil
}

// ImportPublicKey parses a base64 SPKI-DER public key as produced by
// ExportPublicKey. Keys obtained this way are only ever used for encryption.
func ImportPublicKey(encoded string) (*rsa.PublicKey, error) {
	der, err := FromBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}

	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrMalformedKey)
	}
	return rsaPub, nil
}

// MarshalPrivateKey serializes a private key to PKCS8 DER. This is the
// plaintext form the vault encrypts; it must never be persisted as-is.
func MarshalPrivateKey(priv *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	return der, nil
}

// ParsePrivateKey parses a PKCS8 DER private key as produced by
// MarshalPrivateKey.
func ParsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("parse private key: not an RSA key")
	}
	return rsaKey, nil
}
