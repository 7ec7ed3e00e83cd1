package secratechat

import "time"

// Record is the wire form of one stored message: an opaque encrypted
// envelope plus routing metadata. The server never sees plaintext.
type Record struct {
	ID         string `json:"id,omitempty"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	// Ciphertext is base64 AES-GCM ciphertext, tag included.
	Ciphertext string `json:"ciphertext"`
	// EncryptedKey is either a JSON object mapping recipient ids to base64
	// wrapped content keys, or a bare base64 string for legacy records.
	EncryptedKey string    `json:"encryptedKey"`
	IV           string    `json:"iv"`
	SentAt       time.Time `json:"sentAt,omitempty"`
}

// Message is a decrypted record. When a record cannot be decrypted, Err is
// set and Text is empty; one bad record never hides the rest of the
// conversation.
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Text       string
	SentAt     time.Time
	Err        error
}

// RecordEventType identifies the kind of change behind a RecordEvent.
type RecordEventType string

const (
	// RecordInserted signals a newly stored record.
	RecordInserted RecordEventType = "insert"
	// RecordUpdated signals an edit to an existing record.
	RecordUpdated RecordEventType = "update"
)

// RecordEvent is a change notification from a message store subscription.
// It carries identifiers only; the record itself is fetched on demand.
type RecordEvent struct {
	Type     RecordEventType
	UserID   string
	RecordID string
}
