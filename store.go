package secratechat

import (
	"context"
	"strconv"
	"sync"

	"github.com/notescsbsbmsce/secrate-chat/internal/api"
	"github.com/notescsbsbmsce/secrate-chat/internal/delivery"
)

// MessageStore is the append-only message record store. Records are opaque
// envelopes; implementations never need to understand their contents.
type MessageStore interface {
	// Append stores one record and returns its assigned ID.
	Append(ctx context.Context, rec *Record) (string, error)

	// List returns all records where the user is sender or receiver, in
	// store order.
	List(ctx context.Context, userID string) ([]*Record, error)

	// Get retrieves a single record, or ErrRecordNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// Subscribe registers fn for record changes affecting the user and
	// returns an unsubscribe function. Delivery is asynchronous and
	// at-least-once; subscribers dedupe by record ID if they must.
	Subscribe(ctx context.Context, userID string, fn func(RecordEvent)) (func(), error)
}

// apiMessageStore is the HTTP-backed MessageStore used by default. Change
// notifications come from a delivery strategy (SSE, polling, or auto) that
// is started lazily on the first subscription.
type apiMessageStore struct {
	api      *api.Client
	strategy delivery.Strategy

	mu      sync.Mutex
	started bool
	nextID  uint64
	subs    map[string]map[string]func(RecordEvent) // userID -> subID -> fn
}

func newAPIMessageStore(apiClient *api.Client, strategy delivery.Strategy) *apiMessageStore {
	return &apiMessageStore{
		api:      apiClient,
		strategy: strategy,
		subs:     make(map[string]map[string]func(RecordEvent)),
	}
}

func recordFromPayload(p *api.RecordPayload) *Record {
	return &Record{
		ID:           p.ID,
		SenderID:     p.SenderID,
		ReceiverID:   p.ReceiverID,
		Ciphertext:   p.Ciphertext,
		EncryptedKey: p.EncryptedKey,
		IV:           p.IV,
		SentAt:       p.SentAt,
	}
}

func payloadFromRecord(r *Record) *api.RecordPayload {
	return &api.RecordPayload{
		ID:           r.ID,
		SenderID:     r.SenderID,
		ReceiverID:   r.ReceiverID,
		Ciphertext:   r.Ciphertext,
		EncryptedKey: r.EncryptedKey,
		IV:           r.IV,
		SentAt:       r.SentAt,
	}
}

func (s *apiMessageStore) Append(ctx context.Context, rec *Record) (string, error) {
	id, err := s.api.AppendRecord(ctx, payloadFromRecord(rec))
	if err != nil {
		return "", wrapError(err)
	}
	return id, nil
}

func (s *apiMessageStore) List(ctx context.Context, userID string) ([]*Record, error) {
	payloads, err := s.api.ListRecords(ctx, userID)
	if err != nil {
		return nil, wrapError(err)
	}
	records := make([]*Record, 0, len(payloads))
	for i := range payloads {
		records = append(records, recordFromPayload(&payloads[i]))
	}
	return records, nil
}

func (s *apiMessageStore) Get(ctx context.Context, id string) (*Record, error) {
	payload, err := s.api.GetRecord(ctx, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return recordFromPayload(payload), nil
}

// Subscribe registers fn for changes affecting userID. The delivery strategy
// starts on the first subscription; later subscriptions extend the watched
// user set.
func (s *apiMessageStore) Subscribe(ctx context.Context, userID string, fn func(RecordEvent)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		if err := s.strategy.Start(ctx, []string{userID}, s.handleEvent); err != nil {
			return nil, err
		}
		s.started = true
	} else if len(s.subs[userID]) == 0 {
		if err := s.strategy.AddUser(userID); err != nil {
			return nil, err
		}
	}

	s.nextID++
	subID := strconv.FormatUint(s.nextID, 10)
	if s.subs[userID] == nil {
		s.subs[userID] = make(map[string]func(RecordEvent))
	}
	s.subs[userID][subID] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if userSubs, ok := s.subs[userID]; ok {
			delete(userSubs, subID)
			if len(userSubs) == 0 {
				delete(s.subs, userID)
				s.strategy.RemoveUser(userID)
			}
		}
	}, nil
}

// handleEvent fans one strategy event out to the user's subscribers.
func (s *apiMessageStore) handleEvent(ctx context.Context, ev *api.ChangeEvent) error {
	if ev == nil {
		return nil
	}

	s.mu.Lock()
	userSubs := s.subs[ev.UserID]
	fns := make([]func(RecordEvent), 0, len(userSubs))
	for _, fn := range userSubs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	event := RecordEvent{
		Type:     RecordEventType(ev.Type),
		UserID:   ev.UserID,
		RecordID: ev.RecordID,
	}
	for _, fn := range fns {
		fn(event)
	}
	return nil
}

// onReconnect registers a callback fired after the event stream reconnects,
// used to catch records that arrived during the gap.
func (s *apiMessageStore) onReconnect(fn func(ctx context.Context)) {
	s.strategy.OnReconnect(fn)
}

// Close stops the delivery strategy.
func (s *apiMessageStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false
	return s.strategy.Stop()
}
