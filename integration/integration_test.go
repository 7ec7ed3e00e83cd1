//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	secratechat "github.com/notescsbsbmsce/secrate-chat"
)

var (
	apiKey  string
	baseURL string
)

func TestMain(m *testing.M) {
	// Load .env file if it exists (won't error if missing)
	if err := godotenv.Load("../.env"); err != nil {
		os.Stderr.WriteString("Note: .env file not found at project root\n")
	}

	apiKey = os.Getenv("SECRATECHAT_API_KEY")
	baseURL = os.Getenv("SECRATECHAT_URL")

	if apiKey == "" {
		os.Stderr.WriteString("Skipping integration tests: SECRATECHAT_API_KEY not set\n")
		os.Exit(0)
	}

	if baseURL == "" {
		os.Stderr.WriteString("Skipping integration tests: SECRATECHAT_URL not set\n")
		os.Exit(0)
	}

	os.Stderr.WriteString("Running integration tests...\n")
	os.Stderr.WriteString("API URL: " + baseURL + "\n")

	os.Exit(m.Run())
}

func newClient(t *testing.T) *secratechat.Client {
	t.Helper()

	opts := []secratechat.Option{
		secratechat.WithBaseURL(baseURL),
		secratechat.WithTimeout(30 * time.Second),
		secratechat.WithVaultDir(t.TempDir()),
	}

	client, err := secratechat.New(apiKey, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	t.Cleanup(func() {
		client.Close()
	})

	return client
}

// uniqueUser avoids collisions between test runs against a shared backend.
func uniqueUser(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func TestIntegration_RegisterAndUnlock(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()
	userID := uniqueUser("it-alice")

	session, err := client.Register(ctx, userID, "hunter2")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if session.UserID() != userID {
		t.Errorf("UserID() = %q, want %q", session.UserID(), userID)
	}

	// Same password unlocks
	if _, err := client.Unlock(ctx, userID, "hunter2"); err != nil {
		t.Errorf("Unlock() error = %v", err)
	}

	// Wrong password fails without revealing more
	if _, err := client.Unlock(ctx, userID, "wrong"); !errors.Is(err, secratechat.ErrUnlockFailed) {
		t.Errorf("Unlock(wrong) error = %v, want ErrUnlockFailed", err)
	}
}

func TestIntegration_UnlockUnknownUser(t *testing.T) {
	client := newClient(t)

	_, err := client.Unlock(context.Background(), uniqueUser("it-nobody"), "hunter2")
	if !errors.Is(err, secratechat.ErrNotFound) {
		t.Errorf("Unlock() error = %v, want ErrNotFound", err)
	}
}

func TestIntegration_SendAndReceive(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	aliceID := uniqueUser("it-alice")
	bobID := uniqueUser("it-bob")

	alice, err := client.Register(ctx, aliceID, "alice-pass")
	if err != nil {
		t.Fatalf("Register(alice) error = %v", err)
	}
	bob, err := client.Register(ctx, bobID, "bob-pass")
	if err != nil {
		t.Fatalf("Register(bob) error = %v", err)
	}

	ids, err := alice.Send(ctx, "integration hello", bobID)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("Send() returned %d ids, want 1", len(ids))
	}

	// Receiver decrypts
	msgs, err := bob.Messages(ctx)
	if err != nil {
		t.Fatalf("Messages(bob) error = %v", err)
	}
	if !containsText(msgs, "integration hello") {
		t.Error("bob did not receive the message")
	}

	// Sender re-reads its own copy
	msgs, err = alice.Messages(ctx)
	if err != nil {
		t.Fatalf("Messages(alice) error = %v", err)
	}
	if !containsText(msgs, "integration hello") {
		t.Error("alice cannot read her own sent message")
	}
}

func TestIntegration_Watch(t *testing.T) {
	client := newClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	aliceID := uniqueUser("it-alice")
	bobID := uniqueUser("it-bob")

	alice, err := client.Register(ctx, aliceID, "alice-pass")
	if err != nil {
		t.Fatalf("Register(alice) error = %v", err)
	}
	bob, err := client.Register(ctx, bobID, "bob-pass")
	if err != nil {
		t.Fatalf("Register(bob) error = %v", err)
	}

	ch := bob.Watch(ctx)

	if _, err := alice.Send(ctx, "watch me", bobID); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			t.Fatal("timed out waiting for watched message")
		case msg := <-ch:
			if msg.Err != nil {
				t.Fatalf("watched message error = %v", msg.Err)
			}
			if msg.Text == "watch me" {
				return
			}
		}
	}
}

func containsText(msgs []*secratechat.Message, text string) bool {
	for _, m := range msgs {
		if m.Err == nil && m.Text == text {
			return true
		}
	}
	return false
}
