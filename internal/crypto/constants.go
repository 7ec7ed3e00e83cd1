package crypto

const (
	// RSAKeyBits is the modulus size for generated keypairs.
	RSAKeyBits = 2048

	// AESKeySize is the size of an AES-256 content key in bytes.
	AESKeySize = 32
	// AESNonceSize is the size of an AES-GCM IV in bytes.
	AESNonceSize = 12
	// AESTagSize is the size of an AES-GCM authentication tag in bytes.
	AESTagSize = 16

	// PBKDF2Iterations is the iteration count for password key derivation.
	// Persisted per vault record so the count can be raised later without
	// breaking records derived under the old value.
	PBKDF2Iterations = 100000
	// PBKDF2SaltSize is the salt size for password key derivation in bytes.
	PBKDF2SaltSize = 16
)

// AlgsCiphersuite is the canonical string representation of the algorithm suite.
var AlgsCiphersuite = "RSA-OAEP-2048-SHA-256:AES-256-GCM:PBKDF2-HMAC-SHA-256"
