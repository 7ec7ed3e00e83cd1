package delivery

import (
	"context"
	"time"

	"github.com/notescsbsbmsce/secrate-chat/internal/api"
)

// EventHandler is invoked for each message-change event. The handler
// receives the connection context and the event carrying the affected user
// and record IDs. Returning an error signals processing failure (errors are
// currently not propagated).
type EventHandler func(ctx context.Context, event *api.ChangeEvent) error

// Strategy defines the interface for message delivery mechanisms.
// Implementations include PollingStrategy, SSEStrategy, and AutoStrategy.
//
// The typical lifecycle is:
//  1. Create a strategy with NewXxxStrategy(cfg)
//  2. Call Start(ctx, userIDs, handler) to begin receiving events
//  3. Optionally call AddUser/RemoveUser to modify the watched set
//  4. Call Stop() when done to release resources
//
// All implementations are safe for concurrent use.
type Strategy interface {
	// Start begins listening for message changes affecting the given users.
	// Start returns immediately; event delivery is asynchronous.
	Start(ctx context.Context, userIDs []string, handler EventHandler) error

	// Stop gracefully shuts down the strategy and releases resources.
	// Stop is idempotent and safe to call multiple times.
	Stop() error

	// AddUser adds a user to watch. Polling picks the user up on the next
	// cycle; SSE picks it up on the next reconnection.
	AddUser(userID string) error

	// RemoveUser stops watching a user after the current cycle completes.
	RemoveUser(userID string) error

	// Name returns the strategy name for logging and debugging.
	// Examples: "polling", "sse", "auto:sse", "auto:polling"
	Name() string

	// OnReconnect sets a callback invoked after each successful
	// connection/reconnection. For SSE this fires when the event stream
	// connects; polling has no persistent connection, so it is a no-op.
	// Used to sync records that arrived during a reconnection window.
	OnReconnect(fn func(ctx context.Context))
}

// Config holds configuration shared by all delivery strategies.
type Config struct {
	// APIClient is used for sync checks, record listing, and the event stream.
	APIClient *api.Client

	// PollingInitialInterval is the starting interval between polls.
	PollingInitialInterval time.Duration

	// PollingMaxBackoff is the maximum interval between polls.
	PollingMaxBackoff time.Duration

	// PollingBackoffMultiplier is the factor by which the interval
	// increases after each poll with no changes.
	PollingBackoffMultiplier float64

	// PollingJitterFactor is the maximum random jitter added to poll
	// intervals, as a fraction of the interval.
	PollingJitterFactor float64

	// SSEConnectionTimeout is the maximum time to wait for an SSE
	// connection before falling back to polling in auto mode.
	SSEConnectionTimeout time.Duration
}

// Default polling configuration values.
const (
	DefaultPollingInitialInterval   = 2 * time.Second
	DefaultPollingMaxBackoff        = 30 * time.Second
	DefaultPollingBackoffMultiplier = 1.5
	DefaultPollingJitterFactor      = 0.3
	DefaultSSEConnectionTimeout     = 5 * time.Second
)

func (c Config) pollingInitialInterval() time.Duration {
	if c.PollingInitialInterval > 0 {
		return c.PollingInitialInterval
	}
	return DefaultPollingInitialInterval
}

func (c Config) pollingMaxBackoff() time.Duration {
	if c.PollingMaxBackoff > 0 {
		return c.PollingMaxBackoff
	}
	return DefaultPollingMaxBackoff
}

func (c Config) pollingBackoffMultiplier() float64 {
	if c.PollingBackoffMultiplier > 0 {
		return c.PollingBackoffMultiplier
	}
	return DefaultPollingBackoffMultiplier
}

func (c Config) pollingJitterFactor() float64 {
	if c.PollingJitterFactor > 0 {
		return c.PollingJitterFactor
	}
	return DefaultPollingJitterFactor
}

func (c Config) sseConnectionTimeout() time.Duration {
	if c.SSEConnectionTimeout > 0 {
		return c.SSEConnectionTimeout
	}
	return DefaultSSEConnectionTimeout
}
