package pii

import (
	"strings"
	"testing"
)

func TestRotatingEncryptor_RoundTrip(t *testing.T) {
	r, err := NewRotatingEncryptor(testKey(1), 1)
	if err != nil {
		t.Fatalf("NewRotatingEncryptor: %v", err)
	}

	ciphertext, err := r.Encrypt("Jane Doe")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !strings.HasPrefix(ciphertext, "v1:") {
		t.Errorf("ciphertext %q does not carry the v1 prefix", ciphertext)
	}

	plaintext, err := r.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if plaintext != "Jane Doe" {
		t.Errorf("round trip: got %q", plaintext)
	}
}

func TestRotatingEncryptor_PreviousKey(t *testing.T) {
	old, _ := NewRotatingEncryptor(testKey(1), 1)
	ciphertext, err := old.Encrypt("123456789")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	rotated, _ := NewRotatingEncryptor(testKey(2), 2)
	if _, err := rotated.Decrypt(ciphertext); err == nil {
		t.Fatal("expected failure before the previous key is registered")
	}

	if err := rotated.AddPreviousKey(testKey(1), 1); err != nil {
		t.Fatalf("AddPreviousKey: %v", err)
	}
	plaintext, err := rotated.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt with previous key: %v", err)
	}
	if plaintext != "123456789" {
		t.Errorf("got %q", plaintext)
	}
}

func TestRotatingEncryptor_ReEncrypt(t *testing.T) {
	r, _ := NewRotatingEncryptor(testKey(2), 2)
	if err := r.AddPreviousKey(testKey(1), 1); err != nil {
		t.Fatalf("AddPreviousKey: %v", err)
	}

	old, _ := NewRotatingEncryptor(testKey(1), 1)
	stale, _ := old.Encrypt("secret")

	if !r.NeedsReEncryption(stale) {
		t.Error("v1 ciphertext should need re-encryption under v2")
	}

	fresh, err := r.ReEncrypt(stale)
	if err != nil {
		t.Fatalf("ReEncrypt: %v", err)
	}
	if r.NeedsReEncryption(fresh) {
		t.Error("re-encrypted ciphertext still flagged as stale")
	}
	plaintext, err := r.Decrypt(fresh)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if plaintext != "secret" {
		t.Errorf("got %q", plaintext)
	}
}

func TestRotatingEncryptor_LegacyCiphertext(t *testing.T) {
	plain, _ := NewEncryptor(testKey(1))
	legacy, _ := plain.Encrypt("legacy value")

	r, _ := NewRotatingEncryptor(testKey(1), 1)
	if !r.NeedsReEncryption(legacy) {
		t.Error("unversioned ciphertext should need re-encryption")
	}
	got, err := r.Decrypt(legacy)
	if err != nil {
		t.Fatalf("Decrypt legacy: %v", err)
	}
	if got != "legacy value" {
		t.Errorf("got %q", got)
	}
}

func TestBlindIndexer(t *testing.T) {
	idx := NewBlindIndexer(testKey(1))

	a := idx.Index("123456789")
	b := idx.Index("123456789")
	if a != b {
		t.Error("blind index is not deterministic")
	}
	if len(a) != 64 {
		t.Errorf("index length = %d, want 64 hex chars", len(a))
	}
	if idx.Index("987654321") == a {
		t.Error("distinct values produced the same index")
	}

	other := NewBlindIndexer(testKey(2))
	if other.Index("123456789") == a {
		t.Error("distinct keys produced the same index")
	}
}
