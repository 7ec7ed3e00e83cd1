package delivery

import (
	"context"
	"time"
)

// AutoStrategy tries SSE first and falls back to polling when the stream
// does not connect in time.
type AutoStrategy struct {
	cfg         Config
	current     Strategy
	onReconnect func(ctx context.Context)
}

// NewAutoStrategy creates a new auto strategy.
func NewAutoStrategy(cfg Config) *AutoStrategy {
	return &AutoStrategy{cfg: cfg}
}

// Name returns the strategy name.
func (a *AutoStrategy) Name() string {
	if a.current != nil {
		return "auto:" + a.current.Name()
	}
	return "auto"
}

// OnReconnect sets the callback passed to the selected strategy.
func (a *AutoStrategy) OnReconnect(fn func(ctx context.Context)) {
	a.onReconnect = fn
	if a.current != nil {
		a.current.OnReconnect(fn)
	}
}

// Start begins listening, trying SSE first then falling back to polling.
func (a *AutoStrategy) Start(ctx context.Context, userIDs []string, handler EventHandler) error {
	sse := NewSSEStrategy(a.cfg)
	if a.onReconnect != nil {
		sse.OnReconnect(a.onReconnect)
	}
	if err := sse.Start(ctx, userIDs, handler); err != nil {
		return a.startPolling(ctx, userIDs, handler)
	}

	select {
	case <-sse.Connected():
		a.current = sse
		return nil
	case <-time.After(a.cfg.sseConnectionTimeout()):
		sse.Stop()
		return a.startPolling(ctx, userIDs, handler)
	case <-ctx.Done():
		sse.Stop()
		return ctx.Err()
	}
}

func (a *AutoStrategy) startPolling(ctx context.Context, userIDs []string, handler EventHandler) error {
	polling := NewPollingStrategy(a.cfg)
	if err := polling.Start(ctx, userIDs, handler); err != nil {
		return err
	}
	a.current = polling
	return nil
}

// Stop gracefully shuts down the selected strategy.
func (a *AutoStrategy) Stop() error {
	if a.current != nil {
		return a.current.Stop()
	}
	return nil
}

// AddUser adds a user to watch.
func (a *AutoStrategy) AddUser(userID string) error {
	if a.current != nil {
		return a.current.AddUser(userID)
	}
	return nil
}

// RemoveUser stops watching a user.
func (a *AutoStrategy) RemoveUser(userID string) error {
	if a.current != nil {
		return a.current.RemoveUser(userID)
	}
	return nil
}
