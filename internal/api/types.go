package api

import "time"

// RecordPayload is the wire form of one stored message record. The envelope
// fields (ciphertext, encryptedKey, iv) are opaque to the server.
type RecordPayload struct {
	ID         string `json:"id,omitempty"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	// Ciphertext is base64 AES-GCM ciphertext including the tag.
	Ciphertext string `json:"ciphertext"`
	// EncryptedKey is either a JSON object mapping recipient ids to base64
	// wrapped keys, or a bare base64 string for legacy records.
	EncryptedKey string    `json:"encryptedKey"`
	IV           string    `json:"iv"`
	SentAt       time.Time `json:"sentAt,omitempty"`
}

// KeyEntry represents a published public key in the directory.
type KeyEntry struct {
	UserID string `json:"userId"`
	// PublicKey is the base64 SPKI-DER encoding of an RSA public key.
	PublicKey string `json:"publicKey"`
}

// SyncStatus represents the /api/users/{id}/sync response, used by the
// polling strategy to detect changes without fetching records.
type SyncStatus struct {
	RecordCount int    `json:"recordCount"`
	RecordsHash string `json:"recordsHash"`
}

// ChangeEvent represents a message-record change pushed over the event
// stream. Type is "insert" for new records and "update" for edits.
type ChangeEvent struct {
	Type     string `json:"type"`
	UserID   string `json:"userId"`
	RecordID string `json:"recordId"`
}

// Change event types.
const (
	ChangeInsert = "insert"
	ChangeUpdate = "update"
)
