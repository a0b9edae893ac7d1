package security

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestEncryptionService_RoundTrip(t *testing.T) {
	t.Parallel()

	svc, err := NewEncryptionService("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("NewEncryptionService returned error: %v", err)
	}

	secret := "sk-live-very-secret-token"
	ct, err := svc.Encrypt(secret)
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}
	if ct == secret || strings.Contains(ct, secret) {
		t.Fatalf("ciphertext leaks plaintext: %q", ct)
	}

	pt, err := svc.Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt returned error: %v", err)
	}
	if pt != secret {
		t.Fatalf("round trip mismatch: got %q", pt)
	}
}

func TestEncryptionService_NoncesDiffer(t *testing.T) {
	t.Parallel()

	svc, _ := NewEncryptionService("0123456789abcdef")
	a, _ := svc.Encrypt("same input")
	b, _ := svc.Encrypt("same input")
	if a == b {
		t.Fatalf("two encryptions of the same plaintext must differ")
	}
}

func TestEncryptionService_TamperDetected(t *testing.T) {
	t.Parallel()

	svc, _ := NewEncryptionService("0123456789abcdef0123456789abcdef")
	ct, _ := svc.Encrypt("payload")

	raw, _ := base64.StdEncoding.DecodeString(ct)
	raw[len(raw)-1] ^= 0x01
	if _, err := svc.Decrypt(base64.StdEncoding.EncodeToString(raw)); err == nil {
		t.Fatalf("tampered ciphertext must not decrypt")
	}

	if _, err := svc.Decrypt("not base64!!"); err == nil {
		t.Fatalf("invalid encoding must not decrypt")
	}
	if _, err := svc.Decrypt(base64.StdEncoding.EncodeToString([]byte("xy"))); err == nil {
		t.Fatalf("truncated ciphertext must not decrypt")
	}
}

func TestNewEncryptionService_RejectsBadKeyLength(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"", "short", "0123456789abcdef0"} {
		if _, err := NewEncryptionService(key); err == nil {
			t.Errorf("key of length %d accepted", len(key))
		}
	}
}
