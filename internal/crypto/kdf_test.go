package crypto

import (
	"bytes"
	"testing"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	t.Parallel()
	salt, err := NewSalt()
	if err != nil {
		t.Fatal(err)
	}

	key1 := DeriveKey("correct horse", salt, 1000)
	key2 := DeriveKey("correct horse", salt, 1000)

	if !bytes.Equal(key1, key2) {
		t.Error("same password and salt produced different keys")
	}
	if len(key1) != AESKeySize {
		t.Errorf("derived key length = %d, want %d", len(key1), AESKeySize)
	}
}

func TestDeriveKey_DifferentInputs(t *testing.T) {
	t.Parallel()
	salt, _ := NewSalt()
	base := DeriveKey("password", salt, 1000)

	t.Run("different password", func(t *testing.T) {
		key := DeriveKey("Password", salt, 1000)
		if bytes.Equal(key, base) {
			t.Error("different password produced same key")
		}
	})

	t.Run("different salt", func(t *testing.T) {
		other, _ := NewSalt()
		key := DeriveKey("password", other, 1000)
		if bytes.Equal(key, base) {
			t.Error("different salt produced same key")
		}
	})

	t.Run("different iterations", func(t *testing.T) {
		key := DeriveKey("password", salt, 1001)
		if bytes.Equal(key, base) {
			t.Error("different iteration count produced same key")
		}
	})
}

func TestNewSalt_Size(t *testing.T) {
	t.Parallel()
	salt, err := NewSalt()
	if err != nil {
		t.Fatal(err)
	}
	if len(salt) != PBKDF2SaltSize {
		t.Errorf("salt length = %d, want %d", len(salt), PBKDF2SaltSize)
	}
}
