// Package crypto implements the end-to-end encryption core: RSA-OAEP
// keypair handling, hybrid multi-recipient envelope encryption with
// AES-256-GCM, password key derivation, and the envelope wire codec.
package crypto
