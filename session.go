package secratechat

import (
	"context"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/notescsbsbmsce/secrate-chat/internal/crypto"
)

// Session is an unlocked account on this device. It holds the user's
// private key in memory; the key never leaves the process in the clear.
// Sessions are created by Client.Register and Client.Unlock and become
// unusable when the client is closed.
type Session struct {
	client *Client
	userID string
	priv   *rsa.PrivateKey
}

// UserID returns the user this session belongs to.
func (s *Session) UserID() string {
	return s.userID
}

// Send encrypts text for the given recipients and appends one record per
// recipient to the message store. The sender is always included in the
// envelope's recipient set so its own sent messages stay readable. Returns
// the assigned record IDs in recipient order.
func (s *Session) Send(ctx context.Context, text string, recipientIDs ...string) ([]string, error) {
	if err := s.client.checkClosed(); err != nil {
		return nil, err
	}
	if len(recipientIDs) == 0 {
		return nil, ErrNoRecipients
	}

	recipients, err := s.resolveRecipients(ctx, recipientIDs)
	if err != nil {
		return nil, err
	}

	env, err := crypto.EncryptForRecipients(text, recipients)
	if err != nil {
		return nil, err
	}

	keyField, err := env.EncodeKeyField()
	if err != nil {
		return nil, err
	}

	sentAt := time.Now().UTC()
	ids := make([]string, 0, len(recipientIDs))
	for _, rid := range recipientIDs {
		rec := &Record{
			SenderID:     s.userID,
			ReceiverID:   rid,
			Ciphertext:   env.Ciphertext,
			EncryptedKey: keyField,
			IV:           env.IV,
			SentAt:       sentAt,
		}
		id, err := s.client.store.Append(ctx, rec)
		if err != nil {
			return ids, fmt.Errorf("append record for %q: %w", rid, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// resolveRecipients fetches and parses the public key of every recipient,
// adding the sender's own key. Duplicate IDs collapse into one entry.
func (s *Session) resolveRecipients(ctx context.Context, recipientIDs []string) (map[string]*rsa.PublicKey, error) {
	recipients := make(map[string]*rsa.PublicKey, len(recipientIDs)+1)
	recipients[s.userID] = &s.priv.PublicKey

	for _, rid := range recipientIDs {
		if _, ok := recipients[rid]; ok {
			continue
		}
		encoded, err := s.client.directory.PublicKey(ctx, rid)
		if err != nil {
			return nil, fmt.Errorf("resolve key for %q: %w", rid, err)
		}
		pub, err := crypto.ImportPublicKey(encoded)
		if err != nil {
			return nil, fmt.Errorf("key for %q: %w", rid, err)
		}
		recipients[rid] = pub
	}

	return recipients, nil
}

// Messages returns the user's full message history, decrypted. Records that
// cannot be decrypted are returned with Err set rather than aborting the
// batch; every message decrypts independently.
func (s *Session) Messages(ctx context.Context) ([]*Message, error) {
	if err := s.client.checkClosed(); err != nil {
		return nil, err
	}

	records, err := s.client.store.List(ctx, s.userID)
	if err != nil {
		return nil, err
	}

	msgs := make([]*Message, 0, len(records))
	for _, rec := range records {
		msgs = append(msgs, s.decryptRecord(rec))
	}
	return msgs, nil
}

// decryptRecord converts one record to a Message. Decryption failure is
// captured in the message's Err field, never returned.
func (s *Session) decryptRecord(rec *Record) *Message {
	msg := &Message{
		ID:         rec.ID,
		SenderID:   rec.SenderID,
		ReceiverID: rec.ReceiverID,
		SentAt:     rec.SentAt,
	}

	env := crypto.DecodeEnvelope(rec.Ciphertext, rec.EncryptedKey, rec.IV)
	text, err := crypto.DecryptEnvelope(env, s.priv, s.userID)
	if err != nil {
		msg.Err = err
		return msg
	}
	msg.Text = text
	return msg
}

// Watch returns a channel that receives decrypted messages as they arrive.
// The channel is not closed when the context is cancelled; use a select
// on ctx.Done() to detect cancellation.
//
// Example:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
//	defer cancel()
//
//	ch := session.Watch(ctx)
//	for {
//	    select {
//	    case <-ctx.Done():
//	        return
//	    case msg := <-ch:
//	        fmt.Printf("%s: %s\n", msg.SenderID, msg.Text)
//	    }
//	}
func (s *Session) Watch(ctx context.Context) <-chan *Message {
	ch := make(chan *Message, 16)

	unsub := s.client.subs.subscribe(s.userID, func(msg *Message) {
		// Spawn goroutine to guarantee delivery without blocking event source
		go func(m *Message) { ch <- m }(msg)
	})

	// Cleanup goroutine: unsubscribe when context is cancelled.
	// We intentionally do not close(ch) to avoid a race where an
	// in-flight callback tries to send after close.
	go func() {
		<-ctx.Done()
		unsub()
	}()

	return ch
}

// WatchFunc calls fn for each arriving message until the context is
// cancelled. This is a convenience wrapper around Watch.
func (s *Session) WatchFunc(ctx context.Context, fn func(*Message)) {
	msgs := s.Watch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-msgs:
			if msg != nil {
				fn(msg)
			}
		}
	}
}
