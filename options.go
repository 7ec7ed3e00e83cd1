package secratechat

import (
	"net/http"
	"time"
)

// DeliveryStrategy specifies how the client receives new messages.
type DeliveryStrategy string

const (
	// StrategyAuto tries SSE first, falls back to polling.
	StrategyAuto DeliveryStrategy = "auto"
	// StrategySSE uses Server-Sent Events for real-time push notifications.
	StrategySSE DeliveryStrategy = "sse"
	// StrategyPolling uses periodic API calls with exponential backoff.
	StrategyPolling DeliveryStrategy = "polling"
)

const (
	defaultBaseURL = "https://api.secrate.chat"
	defaultTimeout = 30 * time.Second
)

// clientConfig holds configuration for the client.
type clientConfig struct {
	baseURL          string
	httpClient       *http.Client
	deliveryStrategy DeliveryStrategy
	timeout          time.Duration
	retries          int
	retryOn          []int

	// Polling configuration
	pollingInitialInterval   time.Duration
	pollingMaxBackoff        time.Duration
	pollingBackoffMultiplier float64
	pollingJitterFactor      float64
	sseConnectionTimeout     time.Duration

	// Capability overrides. When both directory and store are set the
	// client never talks to the HTTP backend.
	directory  Directory
	store      MessageStore
	vaultStore VaultStore
	vaultDir   string

	onSyncError func(error)
}

// Option configures the client.
type Option func(*clientConfig)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithDeliveryStrategy sets the delivery strategy.
func WithDeliveryStrategy(strategy DeliveryStrategy) Option {
	return func(c *clientConfig) {
		c.deliveryStrategy = strategy
	}
}

// WithTimeout sets the default timeout for API calls.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithRetries sets the number of retries for API calls.
func WithRetries(count int) Option {
	return func(c *clientConfig) {
		c.retries = count
	}
}

// WithRetryOn sets the HTTP status codes that trigger a retry.
// Default: [408, 429, 500, 502, 503, 504]
func WithRetryOn(statusCodes []int) Option {
	return func(c *clientConfig) {
		c.retryOn = statusCodes
	}
}

// WithPollingInitialInterval sets the initial polling interval.
// This is the interval used while messages are actively arriving.
// Default: 2 seconds
func WithPollingInitialInterval(interval time.Duration) Option {
	return func(c *clientConfig) {
		c.pollingInitialInterval = interval
	}
}

// WithPollingMaxBackoff sets the maximum polling backoff interval.
// When no new messages arrive, the polling interval increases up to this maximum.
// Default: 30 seconds
func WithPollingMaxBackoff(maxBackoff time.Duration) Option {
	return func(c *clientConfig) {
		c.pollingMaxBackoff = maxBackoff
	}
}

// WithPollingBackoffMultiplier sets the backoff multiplier for polling.
// After each poll with no changes, the interval is multiplied by this factor.
// Default: 1.5
func WithPollingBackoffMultiplier(multiplier float64) Option {
	return func(c *clientConfig) {
		c.pollingBackoffMultiplier = multiplier
	}
}

// WithPollingJitterFactor sets the jitter factor for polling intervals.
// Random jitter up to this fraction of the interval is added to prevent
// synchronized polling across multiple clients.
// Default: 0.3 (30%)
func WithPollingJitterFactor(factor float64) Option {
	return func(c *clientConfig) {
		c.pollingJitterFactor = factor
	}
}

// WithSSEConnectionTimeout sets the timeout for SSE connection establishment.
// When using StrategyAuto, if the SSE connection is not established within
// this timeout, the client falls back to polling.
// Default: 5 seconds
func WithSSEConnectionTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.sseConnectionTimeout = timeout
	}
}

// WithDirectory replaces the HTTP-backed public-key directory.
func WithDirectory(d Directory) Option {
	return func(c *clientConfig) {
		c.directory = d
	}
}

// WithMessageStore replaces the HTTP-backed message store.
func WithMessageStore(s MessageStore) Option {
	return func(c *clientConfig) {
		c.store = s
	}
}

// WithVaultStore replaces the file-backed key vault storage.
func WithVaultStore(s VaultStore) Option {
	return func(c *clientConfig) {
		c.vaultStore = s
	}
}

// WithVaultDir sets the directory for the default file-backed key vault.
// Ignored when WithVaultStore is used.
func WithVaultDir(dir string) Option {
	return func(c *clientConfig) {
		c.vaultDir = dir
	}
}

// WithSyncErrorHandler sets a callback for background sync failures.
// Without it, background errors are dropped.
func WithSyncErrorHandler(fn func(error)) Option {
	return func(c *clientConfig) {
		c.onSyncError = fn
	}
}
