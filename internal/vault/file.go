package vault

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore persists one JSON record file per owner under a directory.
// Files are written with 0600 permissions via a temp-file rename, so a
// concurrent reader never observes a partial record.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create vault directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// path maps an owner ID to a file name. Owner IDs are arbitrary strings, so
// they are encoded rather than used directly.
func (s *FileStore) path(ownerID string) string {
	name := base64.RawURLEncoding.EncodeToString([]byte(ownerID))
	return filepath.Join(s.dir, name+".json")
}

// Put writes the record, overwriting any prior record for the owner.
func (s *FileStore) Put(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal vault record: %w", err)
	}

	target := s.path(rec.OwnerID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write vault record: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write vault record: %w", err)
	}
	return nil
}

// Get reads the record for the owner, or ErrNotFound if none exists.
func (s *FileStore) Get(ctx context.Context, ownerID string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(ownerID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read vault record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse vault record: %w", err)
	}
	return &rec, nil
}

// Delete removes the record for the owner. Deleting a missing record is not
// an error.
func (s *FileStore) Delete(ctx context.Context, ownerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(s.path(ownerID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete vault record: %w", err)
	}
	return nil
}
