package secratechat

import (
	"context"
	"crypto/rsa"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/notescsbsbmsce/secrate-chat/internal/api"
	"github.com/notescsbsbmsce/secrate-chat/internal/crypto"
	"github.com/notescsbsbmsce/secrate-chat/internal/delivery"
	"github.com/notescsbsbmsce/secrate-chat/internal/vault"
)

// eventTimeout bounds fetching and decrypting one record after a change
// notification.
const eventTimeout = 30 * time.Second

// Client is the main Secrate Chat client. It manages unlocked sessions,
// the key vault, and background message delivery.
type Client struct {
	apiClient *api.Client // nil when directory and store are both custom
	directory Directory
	store     MessageStore
	vlt       *vault.Vault

	sessions map[string]*Session            // keyed by user ID
	unsubs   map[string]func()              // store unsubscribe per user
	seen     map[string]map[string]struct{} // delivered record IDs per user
	mu       sync.RWMutex
	closed   bool

	// Subscription manager for decrypted message notifications
	subs *subscriptionManager

	watchCtx    context.Context
	watchCancel context.CancelFunc

	// Error callback for background sync failures
	onSyncError func(error)
}

// buildAPIClient creates and configures an API client from the given config.
func buildAPIClient(apiKey string, cfg *clientConfig) (*api.Client, error) {
	apiOpts := []api.Option{
		api.WithBaseURL(cfg.baseURL),
	}
	if cfg.timeout > 0 {
		apiOpts = append(apiOpts, api.WithTimeout(cfg.timeout))
	}
	if cfg.retries > 0 {
		apiOpts = append(apiOpts, api.WithRetries(cfg.retries))
	}
	if len(cfg.retryOn) > 0 {
		apiOpts = append(apiOpts, api.WithRetryOn(cfg.retryOn))
	}

	apiClient, err := api.New(apiKey, apiOpts...)
	if err != nil {
		return nil, err
	}

	if cfg.httpClient != nil {
		apiClient.SetHTTPClient(cfg.httpClient)
	}

	return apiClient, nil
}

// createDeliveryStrategy creates a delivery strategy based on the config.
func createDeliveryStrategy(cfg *clientConfig, apiClient *api.Client) delivery.Strategy {
	deliveryCfg := delivery.Config{
		APIClient:                apiClient,
		PollingInitialInterval:   cfg.pollingInitialInterval,
		PollingMaxBackoff:        cfg.pollingMaxBackoff,
		PollingBackoffMultiplier: cfg.pollingBackoffMultiplier,
		PollingJitterFactor:      cfg.pollingJitterFactor,
		SSEConnectionTimeout:     cfg.sseConnectionTimeout,
	}
	switch cfg.deliveryStrategy {
	case StrategyPolling:
		return delivery.NewPollingStrategy(deliveryCfg)
	case StrategySSE:
		return delivery.NewSSEStrategy(deliveryCfg)
	default:
		return delivery.NewAutoStrategy(deliveryCfg)
	}
}

// defaultVaultDir returns the per-user directory for the file-backed vault.
func defaultVaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve vault directory: %w", err)
	}
	return filepath.Join(base, "secrate-chat", "vault"), nil
}

// buildVault creates the key vault from the given config.
func buildVault(cfg *clientConfig) (*vault.Vault, error) {
	if cfg.vaultStore != nil {
		return vault.New(&vaultStoreAdapter{store: cfg.vaultStore}), nil
	}

	dir := cfg.vaultDir
	if dir == "" {
		var err error
		if dir, err = defaultVaultDir(); err != nil {
			return nil, err
		}
	}

	store, err := vault.NewFileStore(dir)
	if err != nil {
		return nil, err
	}
	return vault.New(store), nil
}

// New creates a new Secrate Chat client with the given API key.
//
// When both WithDirectory and WithMessageStore are provided, the client
// never talks to the HTTP backend and the API key is unused.
func New(apiKey string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		baseURL:          defaultBaseURL,
		deliveryStrategy: StrategyAuto,
		timeout:          defaultTimeout,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	var apiClient *api.Client
	if cfg.directory == nil || cfg.store == nil {
		if apiKey == "" {
			return nil, ErrMissingAPIKey
		}

		var err error
		apiClient, err = buildAPIClient(apiKey, cfg)
		if err != nil {
			return nil, err
		}

		// Validate API key
		ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout)
		defer cancel()

		if err := apiClient.CheckKey(ctx); err != nil {
			return nil, wrapError(err)
		}
	}

	directory := cfg.directory
	if directory == nil {
		directory = &apiDirectory{api: apiClient}
	}

	store := cfg.store
	if store == nil {
		strategy := createDeliveryStrategy(cfg, apiClient)
		store = newAPIMessageStore(apiClient, strategy)
	}

	vlt, err := buildVault(cfg)
	if err != nil {
		return nil, err
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())

	c := &Client{
		apiClient:   apiClient,
		directory:   directory,
		store:       store,
		vlt:         vlt,
		sessions:    make(map[string]*Session),
		unsubs:      make(map[string]func()),
		seen:        make(map[string]map[string]struct{}),
		subs:        newSubscriptionManager(),
		watchCtx:    watchCtx,
		watchCancel: watchCancel,
		onSyncError: cfg.onSyncError,
	}

	// Catch records that arrived while the event stream was down.
	if s, ok := store.(*apiMessageStore); ok {
		s.onReconnect(c.syncAllSessions)
	}

	return c, nil
}

// checkClosed returns ErrClientClosed if the client has been closed.
func (c *Client) checkClosed() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	return nil
}

// Register creates the account's key material on this device: it generates
// a fresh RSA keypair, publishes the public key to the directory, and locks
// the private key in the vault under the password. Any previous vault record
// for the user is overwritten.
func (c *Client) Register(ctx context.Context, userID, password string) (*Session, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	priv, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	pubB64, err := crypto.ExportPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}

	if err := c.directory.PublishKey(ctx, userID, pubB64); err != nil {
		return nil, fmt.Errorf("publish key: %w", err)
	}

	if err := c.vlt.WrapAndStore(ctx, userID, priv, password); err != nil {
		return nil, err
	}

	return c.registerSession(userID, priv)
}

// Unlock opens a session for a user who previously registered on this
// device. A missing vault record returns ErrNotFound; a wrong password
// returns ErrUnlockFailed.
func (c *Client) Unlock(ctx context.Context, userID, password string) (*Session, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	priv, err := c.vlt.Unwrap(ctx, userID, password)
	if err != nil {
		return nil, err
	}

	return c.registerSession(userID, priv)
}

// registerSession adds a session to the client and subscribes it to message
// changes. An existing session for the same user is replaced.
func (c *Client) registerSession(userID string, priv *rsa.PrivateKey) (*Session, error) {
	session := &Session{client: c, userID: userID, priv: priv}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClientClosed
	}
	prevUnsub := c.unsubs[userID]
	c.sessions[userID] = session
	if c.seen[userID] == nil {
		c.seen[userID] = make(map[string]struct{})
	}
	c.mu.Unlock()

	if prevUnsub != nil {
		prevUnsub()
	}

	unsub, err := c.store.Subscribe(c.watchCtx, userID, func(ev RecordEvent) {
		c.handleRecordEvent(ev)
	})
	if err != nil {
		c.mu.Lock()
		if c.sessions[userID] == session {
			delete(c.sessions, userID)
		}
		c.mu.Unlock()
		return nil, fmt.Errorf("subscribe to message changes: %w", err)
	}

	c.mu.Lock()
	c.unsubs[userID] = unsub
	c.mu.Unlock()

	return session, nil
}

// Session returns the unlocked session for a user, if any.
func (c *Client) Session(userID string) (*Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[userID]
	return s, ok
}

// Sessions returns all unlocked sessions.
func (c *Client) Sessions() []*Session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		result = append(result, s)
	}
	return result
}

// CheckKey validates the API key. A no-op for interface-driven clients.
func (c *Client) CheckKey(ctx context.Context) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	if c.apiClient == nil {
		return nil
	}
	return wrapError(c.apiClient.CheckKey(ctx))
}

// handleRecordEvent processes one change notification: fetch, decrypt,
// notify. Inserts are deduplicated by record ID so reconnection syncs do
// not re-deliver.
func (c *Client) handleRecordEvent(ev RecordEvent) {
	c.mu.RLock()
	session := c.sessions[ev.UserID]
	c.mu.RUnlock()

	if session == nil {
		return
	}

	if ev.Type == RecordInserted && !c.markSeen(ev.UserID, ev.RecordID) {
		return
	}

	ctx, cancel := context.WithTimeout(c.watchCtx, eventTimeout)
	defer cancel()

	rec, err := c.store.Get(ctx, ev.RecordID)
	if err != nil {
		// The record was never delivered; forget it so a redelivered
		// event or a reconnection sync can try again.
		if ev.Type == RecordInserted {
			c.unmarkSeen(ev.UserID, ev.RecordID)
		}
		c.reportSyncError(err)
		return
	}

	c.subs.notify(ev.UserID, session.decryptRecord(rec))
}

// markSeen records a delivered record ID. It returns false when the record
// was already delivered.
func (c *Client) markSeen(userID, recordID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := c.seen[userID]
	if seen == nil {
		seen = make(map[string]struct{})
		c.seen[userID] = seen
	}
	if _, ok := seen[recordID]; ok {
		return false
	}
	seen[recordID] = struct{}{}
	return true
}

// unmarkSeen removes a record ID claimed by markSeen whose delivery failed.
func (c *Client) unmarkSeen(userID, recordID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seen := c.seen[userID]; seen != nil {
		delete(seen, recordID)
	}
}

// syncAllSessions lists records for every session and notifies watchers of
// any not yet delivered. Called after the event stream reconnects to catch
// records that arrived during the gap.
func (c *Client) syncAllSessions(ctx context.Context) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return
	}
	sessions := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.mu.RUnlock()

	for _, session := range sessions {
		records, err := c.store.List(ctx, session.userID)
		if err != nil {
			c.reportSyncError(err)
			continue
		}
		for _, rec := range records {
			if !c.markSeen(session.userID, rec.ID) {
				continue
			}
			c.subs.notify(session.userID, session.decryptRecord(rec))
		}
	}
}

func (c *Client) reportSyncError(err error) {
	if c.onSyncError != nil {
		c.onSyncError(err)
	}
}

// Close closes the client and releases resources. Unlocked sessions become
// unusable; the vault is untouched.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	unsubs := c.unsubs
	c.unsubs = make(map[string]func())
	c.sessions = make(map[string]*Session)
	c.seen = make(map[string]map[string]struct{})
	c.mu.Unlock()

	if c.watchCancel != nil {
		c.watchCancel()
	}

	for _, unsub := range unsubs {
		unsub()
	}

	if s, ok := c.store.(*apiMessageStore); ok {
		if err := s.Close(); err != nil {
			return err
		}
	}

	c.subs.clear()

	return nil
}
