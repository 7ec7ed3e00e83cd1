package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args []string, input string) string {
	t.Helper()
	var out bytes.Buffer
	if err := run(args, strings.NewReader(input), &out); err != nil {
		t.Fatalf("run(%v) error = %v", args, err)
	}
	return out.String()
}

func TestRun_EncryptDecryptRoundTrip(t *testing.T) {
	var alice, bob keyPairOutput
	if err := json.Unmarshal([]byte(runCommand(t, []string{"gen-keypair"}, "")), &alice); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(runCommand(t, []string{"gen-keypair"}, "")), &bob); err != nil {
		t.Fatal(err)
	}

	encIn, _ := json.Marshal(encryptInput{
		Plaintext: "wire compatibility probe",
		Recipients: map[string]string{
			"alice": alice.PublicKey,
			"bob":   bob.PublicKey,
		},
	})

	var env envelopeOutput
	if err := json.Unmarshal([]byte(runCommand(t, []string{"encrypt"}, string(encIn))), &env); err != nil {
		t.Fatal(err)
	}

	// Both recipients decrypt the same envelope.
	for name, kp := range map[string]keyPairOutput{"alice": alice, "bob": bob} {
		decIn, _ := json.Marshal(decryptInput{
			Ciphertext:   env.Ciphertext,
			EncryptedKey: env.EncryptedKey,
			IV:           env.IV,
			PrivateKey:   kp.PrivateKey,
			SelfID:       name,
		})

		var result map[string]string
		if err := json.Unmarshal([]byte(runCommand(t, []string{"decrypt"}, string(decIn))), &result); err != nil {
			t.Fatal(err)
		}
		if result["plaintext"] != "wire compatibility probe" {
			t.Errorf("plaintext for %s = %q", name, result["plaintext"])
		}
	}
}

func TestRun_VaultRoundTrip(t *testing.T) {
	var kp keyPairOutput
	if err := json.Unmarshal([]byte(runCommand(t, []string{"gen-keypair"}, "")), &kp); err != nil {
		t.Fatal(err)
	}

	wrapIn, _ := json.Marshal(vaultWrapInput{
		OwnerID:    "alice",
		PrivateKey: kp.PrivateKey,
		Password:   "hunter2",
	})
	recordJSON := runCommand(t, []string{"vault-wrap"}, string(wrapIn))

	unlockIn := `{"record":` + strings.TrimSpace(recordJSON) + `,"password":"hunter2"}`
	var result map[string]string
	if err := json.Unmarshal([]byte(runCommand(t, []string{"vault-unlock"}, unlockIn)), &result); err != nil {
		t.Fatal(err)
	}

	if result["privateKey"] != kp.PrivateKey {
		t.Error("unlocked private key does not match original")
	}
}

func TestRun_VaultWrongPassword(t *testing.T) {
	var kp keyPairOutput
	if err := json.Unmarshal([]byte(runCommand(t, []string{"gen-keypair"}, "")), &kp); err != nil {
		t.Fatal(err)
	}

	wrapIn, _ := json.Marshal(vaultWrapInput{
		OwnerID:    "alice",
		PrivateKey: kp.PrivateKey,
		Password:   "hunter2",
	})
	recordJSON := runCommand(t, []string{"vault-wrap"}, string(wrapIn))

	unlockIn := `{"record":` + strings.TrimSpace(recordJSON) + `,"password":"wrong"}`
	var out bytes.Buffer
	if err := run([]string{"vault-unlock"}, strings.NewReader(unlockIn), &out); err == nil {
		t.Fatal("vault-unlock with wrong password succeeded")
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"bogus"}, strings.NewReader(""), &out); err == nil {
		t.Fatal("unknown command succeeded")
	}
}
