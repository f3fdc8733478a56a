package pii

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// BlindIndexer produces a deterministic keyed digest of a field value.
// Unlike Encrypt, the same input always yields the same output, which lets
// the database enforce uniqueness on a column without storing plaintext.
type BlindIndexer struct {
	key []byte
}

// NewBlindIndexer creates a BlindIndexer with the given HMAC key. The key
// should differ from the encryption key only in purpose; reusing the AES
// key material is acceptable since HMAC-SHA256 and AES-GCM do not interact.
func NewBlindIndexer(key []byte) *BlindIndexer {
	return &BlindIndexer{key: key}
}

// Index returns the hex-encoded HMAC-SHA256 of the value.
func (b *BlindIndexer) Index(value string) string {
	mac := hmac.New(sha256.New, b.key)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}
