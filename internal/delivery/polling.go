package delivery

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/notescsbsbmsce/secrate-chat/internal/api"
)

// PollingStrategy surfaces message changes by polling the sync endpoint per
// user and diffing record IDs when the hash moves.
type PollingStrategy struct {
	cfg       Config
	apiClient *api.Client
	users     map[string]*polledUser
	handler   EventHandler
	cancel    context.CancelFunc
	mu        sync.RWMutex
	started   bool
}

type polledUser struct {
	userID      string
	lastHash    string
	seenRecords map[string]struct{}
	interval    time.Duration
}

// NewPollingStrategy creates a new polling strategy.
func NewPollingStrategy(cfg Config) *PollingStrategy {
	return &PollingStrategy{
		cfg:       cfg,
		apiClient: cfg.APIClient,
		users:     make(map[string]*polledUser),
	}
}

// Name returns the strategy name.
func (p *PollingStrategy) Name() string {
	return "polling"
}

// OnReconnect is a no-op: polling has no persistent connection.
func (p *PollingStrategy) OnReconnect(fn func(ctx context.Context)) {}

// Start begins polling for message changes affecting the given users.
func (p *PollingStrategy) Start(ctx context.Context, userIDs []string, handler EventHandler) error {
	p.mu.Lock()
	p.handler = handler
	for _, id := range userIDs {
		p.users[id] = p.newPolledUser(id)
	}
	p.started = true
	p.mu.Unlock()

	ctx, p.cancel = context.WithCancel(ctx)
	go p.pollLoop(ctx)
	return nil
}

func (p *PollingStrategy) newPolledUser(userID string) *polledUser {
	return &polledUser{
		userID:      userID,
		seenRecords: make(map[string]struct{}),
		interval:    p.cfg.pollingInitialInterval(),
	}
}

// Stop gracefully shuts down the strategy.
func (p *PollingStrategy) Stop() error {
	p.mu.Lock()
	p.started = false
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	return nil
}

// AddUser adds a user to watch.
func (p *PollingStrategy) AddUser(userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[userID] = p.newPolledUser(userID)
	return nil
}

// RemoveUser stops watching a user.
func (p *PollingStrategy) RemoveUser(userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.users, userID)
	return nil
}

func (p *PollingStrategy) pollLoop(ctx context.Context) {
	// Adaptive polling with per-user backoff.
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		minWait := p.pollAll(ctx)
		if minWait == 0 {
			minWait = p.cfg.pollingInitialInterval()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(minWait):
		}
	}
}

func (p *PollingStrategy) pollAll(ctx context.Context) time.Duration {
	p.mu.RLock()
	users := make([]*polledUser, 0, len(p.users))
	for _, u := range p.users {
		users = append(users, u)
	}
	p.mu.RUnlock()

	if len(users) == 0 {
		return p.cfg.pollingInitialInterval()
	}

	for _, u := range users {
		p.pollUser(ctx, u)
	}

	var minWait time.Duration
	for _, u := range users {
		wait := p.waitDuration(u)
		if minWait == 0 || wait < minWait {
			minWait = wait
		}
	}
	return minWait
}

func (p *PollingStrategy) pollUser(ctx context.Context, u *polledUser) {
	if p.apiClient == nil {
		return
	}

	status, err := p.apiClient.GetSyncStatus(ctx, u.userID)
	if err != nil {
		return
	}

	if status.RecordsHash == u.lastHash {
		// No changes: back off.
		next := time.Duration(float64(u.interval) * p.cfg.pollingBackoffMultiplier())
		if next > p.cfg.pollingMaxBackoff() {
			next = p.cfg.pollingMaxBackoff()
		}
		u.interval = next
		return
	}

	u.lastHash = status.RecordsHash
	u.interval = p.cfg.pollingInitialInterval()

	records, err := p.apiClient.ListRecords(ctx, u.userID)
	if err != nil {
		return
	}

	p.mu.RLock()
	handler := p.handler
	p.mu.RUnlock()

	for _, rec := range records {
		if _, seen := u.seenRecords[rec.ID]; !seen {
			u.seenRecords[rec.ID] = struct{}{}

			if handler != nil {
				handler(ctx, &api.ChangeEvent{
					Type:     api.ChangeInsert,
					UserID:   u.userID,
					RecordID: rec.ID,
				})
			}
		}
	}
}

func (p *PollingStrategy) waitDuration(u *polledUser) time.Duration {
	// Jitter prevents a thundering herd across clients.
	jitter := time.Duration(rand.Float64() * p.cfg.pollingJitterFactor() * float64(u.interval))
	return u.interval + jitter
}
