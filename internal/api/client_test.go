package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	// Keep retries fast in tests.
	c.retry.BaseDelay = time.Millisecond
	return c, srv
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	if _, err := New(""); err == nil {
		t.Error("expected error for empty API key")
	}
	if _, err := New("key"); err == nil {
		t.Error("expected error for missing base URL")
	}
}

func TestClient_AuthHeader(t *testing.T) {
	t.Parallel()
	var gotAuth string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))

	if err := c.CheckKey(context.Background()); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer test-key")
	}
}

func TestClient_RetriesOn5xx(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))

	if err := c.CheckKey(context.Background()); err != nil {
		t.Fatalf("CheckKey() error = %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("request count = %d, want 3", got)
	}
}

func TestClient_NoRetryOn4xx(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "bad key"})
	}))

	err := c.CheckKey(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("request count = %d, want 1", got)
	}
}

func TestGetPublicKey(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/keys/alice" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(KeyEntry{UserID: "alice", PublicKey: "cHVibGlj"})
	}))

	entry, err := c.GetPublicKey(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetPublicKey() error = %v", err)
	}
	if entry.PublicKey != "cHVibGlj" {
		t.Errorf("PublicKey = %q", entry.PublicKey)
	}
}

func TestGetPublicKey_NotFound(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "no such key"})
	}))

	_, err := c.GetPublicKey(context.Background(), "ghost")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("error = %v, want ErrKeyNotFound", err)
	}
}

func TestAppendRecord(t *testing.T) {
	t.Parallel()
	var got RecordPayload
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/messages" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Error(err)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "rec-1"})
	}))

	id, err := c.AppendRecord(context.Background(), &RecordPayload{
		SenderID:     "alice",
		ReceiverID:   "bob",
		Ciphertext:   "Y3Q=",
		EncryptedKey: `{"alice":"a2V5","bob":"a2V5"}`,
		IV:           "aXY=",
	})
	if err != nil {
		t.Fatalf("AppendRecord() error = %v", err)
	}
	if id != "rec-1" {
		t.Errorf("id = %q, want rec-1", id)
	}
	if got.SenderID != "alice" || got.ReceiverID != "bob" {
		t.Errorf("payload = %+v", got)
	}
}

func TestListRecords(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("user") != "alice" {
			t.Errorf("user = %q", r.URL.Query().Get("user"))
		}
		json.NewEncoder(w).Encode([]RecordPayload{
			{ID: "1", SenderID: "alice"},
			{ID: "2", SenderID: "bob"},
		})
	}))

	recs, err := c.ListRecords(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ListRecords() error = %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("record count = %d, want 2", len(recs))
	}
}

func TestAPIError_ResourceMatching(t *testing.T) {
	t.Parallel()
	recordErr := &APIError{StatusCode: 404, ResourceType: ResourceRecord}
	if !errors.Is(recordErr, ErrRecordNotFound) {
		t.Error("record 404 does not match ErrRecordNotFound")
	}
	if errors.Is(recordErr, ErrKeyNotFound) {
		t.Error("record 404 matches ErrKeyNotFound")
	}

	bareErr := &APIError{StatusCode: 404}
	if !errors.Is(bareErr, ErrKeyNotFound) || !errors.Is(bareErr, ErrRecordNotFound) {
		t.Error("untyped 404 should match both sentinels")
	}
}
