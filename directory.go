package secratechat

import (
	"context"

	"github.com/notescsbsbmsce/secrate-chat/internal/api"
)

// Directory is the public-key directory: it resolves user identifiers to
// published public keys. Keys returned here are used only to encrypt; the
// transport provides no authenticity guarantee beyond the server's word.
type Directory interface {
	// PublicKey returns the base64 SPKI-DER public key published for the
	// user, or ErrKeyNotFound when none exists.
	PublicKey(ctx context.Context, userID string) (string, error)

	// PublishKey publishes the user's public key, replacing any previous
	// entry.
	PublishKey(ctx context.Context, userID, publicKey string) error
}

// apiDirectory is the HTTP-backed Directory used by default.
type apiDirectory struct {
	api *api.Client
}

func (d *apiDirectory) PublicKey(ctx context.Context, userID string) (string, error) {
	entry, err := d.api.GetPublicKey(ctx, userID)
	if err != nil {
		return "", wrapError(err)
	}
	return entry.PublicKey, nil
}

func (d *apiDirectory) PublishKey(ctx context.Context, userID, publicKey string) error {
	return wrapError(d.api.PublishKey(ctx, userID, publicKey))
}
