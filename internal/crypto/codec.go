package crypto

import (
	"encoding/json"
	"fmt"
)

// Envelope is the decoded transport record for one encrypted message:
// symmetric-encrypted content plus one asymmetric-wrapped copy of the
// content key per recipient.
//
// Exactly one of Keys and LegacyKey is set. Keys is the multi-recipient map
// produced by current clients; LegacyKey carries the single bare wrapped-key
// value produced before multi-recipient support existed.
type Envelope struct {
	// Ciphertext is the base64 AES-GCM ciphertext, tag included.
	Ciphertext string
	// IV is the base64 12-byte IV for the content ciphertext.
	IV string
	// Keys maps recipient identifier to base64 wrapped content key.
	Keys map[string]string
	// LegacyKey is the bare base64 wrapped key of a legacy envelope.
	LegacyKey string
}

// EncodeKeyField serializes the wrapped-key collection for the wire.
// New envelopes always emit the JSON-object form, with every intended reader
// (including the sender) as a key.
func (e *Envelope) EncodeKeyField() (string, error) {
	if e.Keys == nil {
		// Only reachable for envelopes round-tripped from legacy input.
		return e.LegacyKey, nil
	}
	data, err := json.Marshal(e.Keys)
	if err != nil {
		return "", fmt.Errorf("encode key field: %w", err)
	}
	return string(data), nil
}

// DecodeEnvelope reconstructs an Envelope from its wire fields.
//
// The encryptedKey field is either a JSON object mapping recipient ids to
// wrapped keys, or a bare base64 string from the legacy single-recipient
// format. A structured parse is attempted first; on failure the raw value is
// treated as the legacy bare key. Well-formed legacy input never errors.
func DecodeEnvelope(ciphertext, encryptedKey, iv string) *Envelope {
	env := &Envelope{
		Ciphertext: ciphertext,
		IV:         iv,
	}

	var keys map[string]string
	if err := json.Unmarshal([]byte(encryptedKey), &keys); err == nil && keys != nil {
		env.Keys = keys
		return env
	}

	env.LegacyKey = encryptedKey
	return env
}
