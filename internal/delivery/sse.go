package delivery

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/notescsbsbmsce/secrate-chat/internal/api"
)

const (
	SSEReconnectInterval    = 5 * time.Second
	SSEMaxReconnectAttempts = 10
)

// SSEStrategy surfaces message changes over a Server-Sent Events stream.
type SSEStrategy struct {
	apiClient     *api.Client
	userIDs       map[string]struct{}
	handler       EventHandler
	onReconnect   func(ctx context.Context)
	cancel        context.CancelFunc
	mu            sync.RWMutex
	reconnectWait time.Duration
	attempts      int
	started       bool
	connected     chan struct{} // closed when the first connection is established
	connectedOnce sync.Once
	lastError     error
}

// NewSSEStrategy creates a new SSE strategy.
func NewSSEStrategy(cfg Config) *SSEStrategy {
	return &SSEStrategy{
		apiClient:     cfg.APIClient,
		userIDs:       make(map[string]struct{}),
		reconnectWait: SSEReconnectInterval,
		connected:     make(chan struct{}),
	}
}

// Name returns the strategy name.
func (s *SSEStrategy) Name() string {
	return "sse"
}

// Connected returns a channel that's closed when the SSE connection is
// established.
func (s *SSEStrategy) Connected() <-chan struct{} {
	return s.connected
}

// LastError returns the last connection error, if any.
func (s *SSEStrategy) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// OnReconnect sets the callback invoked after each successful connection.
func (s *SSEStrategy) OnReconnect(fn func(ctx context.Context)) {
	s.mu.Lock()
	s.onReconnect = fn
	s.mu.Unlock()
}

// Start begins listening for message changes affecting the given users.
func (s *SSEStrategy) Start(ctx context.Context, userIDs []string, handler EventHandler) error {
	s.mu.Lock()
	for _, id := range userIDs {
		s.userIDs[id] = struct{}{}
	}
	s.handler = handler
	s.started = true
	s.mu.Unlock()

	ctx, s.cancel = context.WithCancel(ctx)
	go s.connectLoop(ctx)
	return nil
}

// Stop gracefully shuts down the strategy.
func (s *SSEStrategy) Stop() error {
	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// AddUser adds a user to watch. Picked up on the next reconnection.
func (s *SSEStrategy) AddUser(userID string) error {
	s.mu.Lock()
	s.userIDs[userID] = struct{}{}
	s.mu.Unlock()
	return nil
}

// RemoveUser stops watching a user.
func (s *SSEStrategy) RemoveUser(userID string) error {
	s.mu.Lock()
	delete(s.userIDs, userID)
	s.mu.Unlock()
	return nil
}

func (s *SSEStrategy) connectLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := s.connect(ctx)
		if err == nil {
			// Clean disconnect
			return
		}

		s.attempts++
		if s.attempts >= SSEMaxReconnectAttempts {
			return
		}

		wait := s.reconnectWait * time.Duration(1<<(s.attempts-1))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (s *SSEStrategy) connect(ctx context.Context) error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.userIDs))
	for id := range s.userIDs {
		ids = append(ids, id)
	}
	onReconnect := s.onReconnect
	s.mu.RUnlock()

	if len(ids) == 0 {
		return nil
	}

	if s.apiClient == nil {
		err := fmt.Errorf("SSE strategy: API client is nil")
		s.mu.Lock()
		s.lastError = err
		s.mu.Unlock()
		return err
	}

	resp, err := s.apiClient.OpenEventStream(ctx, ids)
	if err != nil {
		s.mu.Lock()
		s.lastError = err
		s.mu.Unlock()
		return err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		err := fmt.Errorf("SSE connection failed: status %d", resp.StatusCode)
		s.mu.Lock()
		s.lastError = err
		s.mu.Unlock()
		return err
	}
	defer resp.Body.Close()

	// Reset attempts on successful connection
	s.attempts = 0

	s.connectedOnce.Do(func() {
		close(s.connected)
	})

	if onReconnect != nil {
		onReconnect(ctx)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "data: ") {
			data := strings.TrimPrefix(line, "data: ")

			var event api.ChangeEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				continue // Skip malformed events
			}

			s.mu.RLock()
			handler := s.handler
			s.mu.RUnlock()

			if handler != nil {
				handler(ctx, &event)
			}
		}
	}

	return scanner.Err()
}
