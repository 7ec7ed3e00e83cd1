package secratechat

import (
	"context"

	"github.com/notescsbsbmsce/secrate-chat/internal/vault"
)

// VaultRecord is the wrapped-private-key record persisted per user. The KDF
// parameters travel with the ciphertext so unlocking never depends on
// out-of-band knowledge.
type VaultRecord struct {
	OwnerID    string `json:"ownerId"`
	Ciphertext []byte `json:"ciphertext"`
	Salt       []byte `json:"salt"`
	IV         []byte `json:"iv"`
	Iterations int    `json:"kdfIterations"`
}

// VaultStore is durable storage for wrapped private keys, one record per
// owner. Get returns ErrNotFound when no record exists. The default store
// keeps one JSON file per owner under the vault directory.
type VaultStore interface {
	Put(ctx context.Context, rec *VaultRecord) error
	Get(ctx context.Context, ownerID string) (*VaultRecord, error)
	Delete(ctx context.Context, ownerID string) error
}

// vaultStoreAdapter bridges a public VaultStore to the internal vault.
type vaultStoreAdapter struct {
	store VaultStore
}

func (a *vaultStoreAdapter) Put(ctx context.Context, rec *vault.Record) error {
	return a.store.Put(ctx, &VaultRecord{
		OwnerID:    rec.OwnerID,
		Ciphertext: rec.Ciphertext,
		Salt:       rec.Salt,
		IV:         rec.IV,
		Iterations: rec.Iterations,
	})
}

func (a *vaultStoreAdapter) Get(ctx context.Context, ownerID string) (*vault.Record, error) {
	rec, err := a.store.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &vault.Record{
		OwnerID:    rec.OwnerID,
		Ciphertext: rec.Ciphertext,
		Salt:       rec.Salt,
		IV:         rec.IV,
		Iterations: rec.Iterations,
	}, nil
}

func (a *vaultStoreAdapter) Delete(ctx context.Context, ownerID string) error {
	return a.store.Delete(ctx, ownerID)
}
