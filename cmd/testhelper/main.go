// Command testhelper exercises the envelope and vault primitives over JSON
// stdin/stdout so other SDK implementations can verify wire compatibility
// against this one without a server.
package main

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/notescsbsbmsce/secrate-chat/internal/crypto"
	"github.com/notescsbsbmsce/secrate-chat/internal/vault"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, in io.Reader, out io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: testhelper <gen-keypair|encrypt|decrypt|vault-wrap|vault-unlock>")
	}

	switch args[0] {
	case "gen-keypair":
		return genKeyPair(out)
	case "encrypt":
		return encrypt(in, out)
	case "decrypt":
		return decrypt(in, out)
	case "vault-wrap":
		return vaultWrap(in, out)
	case "vault-unlock":
		return vaultUnlock(in, out)
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

type keyPairOutput struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"` // base64 PKCS8, test fixtures only
}

func genKeyPair(out io.Writer) error {
	priv, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}

	pub, err := crypto.ExportPublicKey(&priv.PublicKey)
	if err != nil {
		return err
	}

	der, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return err
	}
	defer crypto.Wipe(der)

	return json.NewEncoder(out).Encode(keyPairOutput{
		PublicKey:  pub,
		PrivateKey: crypto.ToBase64(der),
	})
}

type encryptInput struct {
	Plaintext  string            `json:"plaintext"`
	Recipients map[string]string `json:"recipients"` // id -> base64 SPKI
}

type envelopeOutput struct {
	Ciphertext   string `json:"ciphertext"`
	EncryptedKey string `json:"encryptedKey"`
	IV           string `json:"iv"`
}

func encrypt(in io.Reader, out io.Writer) error {
	var input encryptInput
	if err := json.NewDecoder(in).Decode(&input); err != nil {
		return fmt.Errorf("parse input: %w", err)
	}

	resolved, err := importRecipients(input.Recipients)
	if err != nil {
		return err
	}

	env, err := crypto.EncryptForRecipients(input.Plaintext, resolved)
	if err != nil {
		return err
	}

	keyField, err := env.EncodeKeyField()
	if err != nil {
		return err
	}

	return json.NewEncoder(out).Encode(envelopeOutput{
		Ciphertext:   env.Ciphertext,
		EncryptedKey: keyField,
		IV:           env.IV,
	})
}

type decryptInput struct {
	Ciphertext   string `json:"ciphertext"`
	EncryptedKey string `json:"encryptedKey"`
	IV           string `json:"iv"`
	PrivateKey   string `json:"privateKey"` // base64 PKCS8
	SelfID       string `json:"selfId"`
}

func decrypt(in io.Reader, out io.Writer) error {
	var input decryptInput
	if err := json.NewDecoder(in).Decode(&input); err != nil {
		return fmt.Errorf("parse input: %w", err)
	}

	priv, err := parsePrivateKey(input.PrivateKey)
	if err != nil {
		return err
	}

	env := crypto.DecodeEnvelope(input.Ciphertext, input.EncryptedKey, input.IV)
	plaintext, err := crypto.DecryptEnvelope(env, priv, input.SelfID)
	if err != nil {
		return err
	}

	return json.NewEncoder(out).Encode(map[string]string{"plaintext": plaintext})
}

type vaultWrapInput struct {
	OwnerID    string `json:"ownerId"`
	PrivateKey string `json:"privateKey"` // base64 PKCS8
	Password   string `json:"password"`
}

func vaultWrap(in io.Reader, out io.Writer) error {
	var input vaultWrapInput
	if err := json.NewDecoder(in).Decode(&input); err != nil {
		return fmt.Errorf("parse input: %w", err)
	}

	priv, err := parsePrivateKey(input.PrivateKey)
	if err != nil {
		return err
	}

	store := vault.NewMemoryStore()
	v := vault.New(store)

	ctx := context.Background()
	if err := v.WrapAndStore(ctx, input.OwnerID, priv, input.Password); err != nil {
		return err
	}

	rec, err := store.Get(ctx, input.OwnerID)
	if err != nil {
		return err
	}
	return json.NewEncoder(out).Encode(rec)
}

type vaultUnlockInput struct {
	Record   vault.Record `json:"record"`
	Password string       `json:"password"`
}

func vaultUnlock(in io.Reader, out io.Writer) error {
	var input vaultUnlockInput
	if err := json.NewDecoder(in).Decode(&input); err != nil {
		return fmt.Errorf("parse input: %w", err)
	}

	store := vault.NewMemoryStore()
	ctx := context.Background()
	if err := store.Put(ctx, &input.Record); err != nil {
		return err
	}

	priv, err := vault.New(store).Unwrap(ctx, input.Record.OwnerID, input.Password)
	if err != nil {
		return err
	}

	der, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return err
	}
	defer crypto.Wipe(der)

	return json.NewEncoder(out).Encode(map[string]string{
		"privateKey": crypto.ToBase64(der),
	})
}

func importRecipients(encoded map[string]string) (map[string]*rsa.PublicKey, error) {
	recipients := make(map[string]*rsa.PublicKey, len(encoded))
	for id, pub := range encoded {
		key, err := crypto.ImportPublicKey(pub)
		if err != nil {
			return nil, fmt.Errorf("key for %q: %w", id, err)
		}
		recipients[id] = key
	}
	return recipients, nil
}

func parsePrivateKey(encoded string) (*rsa.PrivateKey, error) {
	der, err := crypto.FromBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	defer crypto.Wipe(der)
	return crypto.ParsePrivateKey(der)
}
