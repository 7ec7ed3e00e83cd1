package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/notescsbsbmsce/secrate-chat/internal/api"
)

// recordServer fakes the sync and list endpoints with a mutable record set.
type recordServer struct {
	mu      sync.Mutex
	records []api.RecordPayload
}

func (s *recordServer) add(rec api.RecordPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

func (s *recordServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		json.NewEncoder(w).Encode(api.SyncStatus{
			RecordCount: len(s.records),
			RecordsHash: fmt.Sprintf("h%d", len(s.records)),
		})
	})
	mux.HandleFunc("/api/messages", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		json.NewEncoder(w).Encode(s.records)
	})
	return mux
}

func newPollingFixture(t *testing.T) (*recordServer, Config) {
	t.Helper()
	backend := &recordServer{}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	apiClient, err := api.New("test-key", api.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	return backend, Config{
		APIClient:              apiClient,
		PollingInitialInterval: 10 * time.Millisecond,
		PollingMaxBackoff:      50 * time.Millisecond,
	}
}

func TestPollingStrategy_DetectsNewRecords(t *testing.T) {
	t.Parallel()
	backend, cfg := newPollingFixture(t)

	events := make(chan *api.ChangeEvent, 8)
	strategy := NewPollingStrategy(cfg)
	defer strategy.Stop()

	err := strategy.Start(context.Background(), []string{"alice"}, func(ctx context.Context, ev *api.ChangeEvent) error {
		events <- ev
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	backend.add(api.RecordPayload{ID: "rec-1", SenderID: "bob", ReceiverID: "alice"})

	select {
	case ev := <-events:
		if ev.RecordID != "rec-1" || ev.UserID != "alice" {
			t.Errorf("event = %+v", ev)
		}
		if ev.Type != api.ChangeInsert {
			t.Errorf("event type = %q, want insert", ev.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestPollingStrategy_NoDuplicateEvents(t *testing.T) {
	t.Parallel()
	backend, cfg := newPollingFixture(t)
	backend.add(api.RecordPayload{ID: "rec-1"})

	events := make(chan *api.ChangeEvent, 8)
	strategy := NewPollingStrategy(cfg)
	defer strategy.Stop()

	if err := strategy.Start(context.Background(), []string{"alice"}, func(ctx context.Context, ev *api.ChangeEvent) error {
		events <- ev
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first event")
	}

	// Several more poll cycles must not re-announce the same record.
	select {
	case ev := <-events:
		t.Fatalf("duplicate event: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPollingStrategy_RemoveUser(t *testing.T) {
	t.Parallel()
	backend, cfg := newPollingFixture(t)

	events := make(chan *api.ChangeEvent, 8)
	strategy := NewPollingStrategy(cfg)
	defer strategy.Stop()

	if err := strategy.Start(context.Background(), []string{"alice"}, func(ctx context.Context, ev *api.ChangeEvent) error {
		events <- ev
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := strategy.RemoveUser("alice"); err != nil {
		t.Fatal(err)
	}

	backend.add(api.RecordPayload{ID: "rec-1"})

	select {
	case ev := <-events:
		t.Fatalf("event after RemoveUser: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPollingStrategy_StopIsIdempotent(t *testing.T) {
	t.Parallel()
	_, cfg := newPollingFixture(t)
	strategy := NewPollingStrategy(cfg)

	if err := strategy.Start(context.Background(), nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := strategy.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := strategy.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestPollingStrategy_Name(t *testing.T) {
	t.Parallel()
	if got := NewPollingStrategy(Config{}).Name(); got != "polling" {
		t.Errorf("Name() = %q", got)
	}
}
