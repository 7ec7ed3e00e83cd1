package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// CheckKey validates the API key.
func (c *Client) CheckKey(ctx context.Context) error {
	var result struct {
		OK bool `json:"ok"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/check-key", nil, &result); err != nil {
		return err
	}
	if !result.OK {
		return ErrUnauthorized
	}
	return nil
}

// PublishKey publishes a user's public key to the directory, replacing any
// previous entry for that user.
func (c *Client) PublishKey(ctx context.Context, userID, publicKey string) error {
	path := fmt.Sprintf("/api/keys/%s", url.PathEscape(userID))
	body := KeyEntry{UserID: userID, PublicKey: publicKey}
	return WithResourceType(c.do(ctx, http.MethodPut, path, body, nil), ResourceKey)
}

// GetPublicKey resolves a user's published public key.
func (c *Client) GetPublicKey(ctx context.Context, userID string) (*KeyEntry, error) {
	path := fmt.Sprintf("/api/keys/%s", url.PathEscape(userID))
	var result KeyEntry
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, WithResourceType(err, ResourceKey)
	}
	return &result, nil
}

// AppendRecord appends one message record and returns its assigned ID.
func (c *Client) AppendRecord(ctx context.Context, rec *RecordPayload) (string, error) {
	var result struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/messages", rec, &result); err != nil {
		return "", WithResourceType(err, ResourceRecord)
	}
	return result.ID, nil
}

// ListRecords lists all message records where the user is sender or receiver,
// in store order.
func (c *Client) ListRecords(ctx context.Context, userID string) ([]RecordPayload, error) {
	path := fmt.Sprintf("/api/messages?user=%s", url.QueryEscape(userID))
	var result []RecordPayload
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, WithResourceType(err, ResourceRecord)
	}
	return result, nil
}

// GetRecord retrieves a specific message record.
func (c *Client) GetRecord(ctx context.Context, recordID string) (*RecordPayload, error) {
	path := fmt.Sprintf("/api/messages/%s", url.PathEscape(recordID))
	var result RecordPayload
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, WithResourceType(err, ResourceRecord)
	}
	return &result, nil
}

// GetSyncStatus returns the record count and hash for a user, used by the
// polling strategy to detect changes cheaply.
func (c *Client) GetSyncStatus(ctx context.Context, userID string) (*SyncStatus, error) {
	path := fmt.Sprintf("/api/users/%s/sync", url.PathEscape(userID))
	var result SyncStatus
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// OpenEventStream opens an SSE connection for message-change events
// affecting the given users. The caller owns the response body.
func (c *Client) OpenEventStream(ctx context.Context, userIDs []string) (*http.Response, error) {
	path := fmt.Sprintf("/api/events?users=%s", url.QueryEscape(strings.Join(userIDs, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	return c.httpClient.Do(req)
}
