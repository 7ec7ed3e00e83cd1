package secratechat

import (
	"errors"
	"fmt"

	"github.com/notescsbsbmsce/secrate-chat/internal/api"
	"github.com/notescsbsbmsce/secrate-chat/internal/crypto"
	"github.com/notescsbsbmsce/secrate-chat/internal/vault"
)

// Sentinel errors for errors.Is() checks.
var (
	// ErrMissingAPIKey is returned when no API key is provided.
	ErrMissingAPIKey = errors.New("API key is required")

	// ErrClientClosed is returned when operations are attempted on a closed client.
	ErrClientClosed = errors.New("client has been closed")

	// ErrSSEConnection is returned when the SSE event stream fails.
	ErrSSEConnection = errors.New("SSE connection error")

	// ErrUnauthorized is returned when the API key is invalid or expired.
	ErrUnauthorized = api.ErrUnauthorized

	// ErrKeyNotFound is returned when a user has no published public key.
	ErrKeyNotFound = api.ErrKeyNotFound

	// ErrRecordNotFound is returned when a message record does not exist.
	ErrRecordNotFound = api.ErrRecordNotFound

	// ErrRateLimited is returned when the API rate limit is exceeded.
	ErrRateLimited = api.ErrRateLimited

	// ErrMalformedKey is returned when a public key encoding cannot be
	// parsed or does not describe an RSA key.
	ErrMalformedKey = crypto.ErrMalformedKey

	// ErrDecryptFailed is returned when a message cannot be decrypted.
	// Wrong key and tampered data are indistinguishable.
	ErrDecryptFailed = crypto.ErrDecryptionFailed

	// ErrNoRecipients is returned when sending to an empty recipient set.
	ErrNoRecipients = crypto.ErrNoRecipients

	// ErrRecipientNotFound is returned when the caller is not among an
	// envelope's recipients.
	ErrRecipientNotFound = crypto.ErrRecipientNotFound

	// ErrNotFound is returned when no vault record exists for a user on
	// this device. This is the normal state before Register completes.
	ErrNotFound = vault.ErrNotFound

	// ErrUnlockFailed is returned when the vault record cannot be
	// decrypted: wrong password or a corrupted record.
	ErrUnlockFailed = vault.ErrUnlockFailed

	// ErrVaultWrite is returned when persisting the wrapped private key fails.
	ErrVaultWrite = vault.ErrWriteFailed
)

// SecrateChatError is implemented by all SDK error types.
type SecrateChatError interface {
	error
	SecrateChatError() // marker method
}

// APIError represents an HTTP error from the Secrate Chat API.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string // if returned by server

	resource api.ResourceType
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		if e.Message != "" {
			return fmt.Sprintf("API error %d: %s (request_id: %s)", e.StatusCode, e.Message, e.RequestID)
		}
		return fmt.Sprintf("API error %d (request_id: %s)", e.StatusCode, e.RequestID)
	}
	if e.Message != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

// SecrateChatError implements the SecrateChatError interface.
func (e *APIError) SecrateChatError() {}

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case 401:
		return target == ErrUnauthorized
	case 404:
		switch e.resource {
		case api.ResourceKey:
			return target == ErrKeyNotFound
		case api.ResourceRecord:
			return target == ErrRecordNotFound
		default:
			return target == ErrKeyNotFound || target == ErrRecordNotFound
		}
	case 429:
		return target == ErrRateLimited
	}
	return false
}

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err     error
	URL     string
	Attempt int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// SecrateChatError implements the SecrateChatError interface.
func (e *NetworkError) SecrateChatError() {}

// SSEError represents an event stream failure.
type SSEError struct {
	Err      error
	Attempts int
}

func (e *SSEError) Error() string {
	return fmt.Sprintf("SSE connection failed after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap returns the underlying error.
func (e *SSEError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *SSEError) Is(target error) bool {
	return target == ErrSSEConnection
}

// SecrateChatError implements the SecrateChatError interface.
func (e *SSEError) SecrateChatError() {}

// wrapError converts internal transport errors to public error types so
// errors.Is() and errors.As() work against the package's exported taxonomy.
// Crypto and vault sentinels pass through untouched; the public names above
// alias them directly.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
			RequestID:  apiErr.RequestID,
			resource:   apiErr.ResourceType,
		}
	}

	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return &NetworkError{
			Err:     netErr.Err,
			URL:     netErr.URL,
			Attempt: netErr.Attempt,
		}
	}

	return err
}
