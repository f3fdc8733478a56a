package pii

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// RotatingEncryptor writes with the newest key and reads with whichever key
// a ciphertext names. Ciphertexts carry a "v<N>:" prefix; values written
// before rotation existed have no prefix and fall back to the current key.
type RotatingEncryptor struct {
	mu         sync.RWMutex
	current    *Encryptor
	currentVer int
	retired    map[int]*Encryptor
}

// NewRotatingEncryptor wraps the current key under the given version number.
func NewRotatingEncryptor(key []byte, version int) (*RotatingEncryptor, error) {
	enc, err := NewEncryptor(key)
	if err != nil {
		return nil, fmt.Errorf("pii rotation: current key: %w", err)
	}
	return &RotatingEncryptor{
		current:    enc,
		currentVer: version,
		retired:    map[int]*Encryptor{},
	}, nil
}

// AddPreviousKey registers a retired key so ciphertexts written under it
// stay readable.
func (r *RotatingEncryptor) AddPreviousKey(key []byte, version int) error {
	enc, err := NewEncryptor(key)
	if err != nil {
		return fmt.Errorf("pii rotation: key v%d: %w", version, err)
	}
	r.mu.Lock()
	r.retired[version] = enc
	r.mu.Unlock()
	return nil
}

// Encrypt seals the value under the current key and stamps its version.
func (r *RotatingEncryptor) Encrypt(plaintext string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sealed, err := r.current.Encrypt(plaintext)
	if err != nil {
		return "", err
	}
	return "v" + strconv.Itoa(r.currentVer) + ":" + sealed, nil
}

// Decrypt picks the key a ciphertext was written under. Unprefixed
// ciphertexts predate rotation and go to the current key.
func (r *RotatingEncryptor) Decrypt(ciphertext string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	version, sealed, ok := splitVersion(ciphertext)
	if !ok {
		return r.current.Decrypt(ciphertext)
	}
	if version == r.currentVer {
		return r.current.Decrypt(sealed)
	}
	enc, known := r.retired[version]
	if !known {
		return "", fmt.Errorf("pii rotation: no key for version %d", version)
	}
	return enc.Decrypt(sealed)
}

// NeedsReEncryption reports whether a ciphertext was written under anything
// but the current key.
func (r *RotatingEncryptor) NeedsReEncryption(ciphertext string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	version, _, ok := splitVersion(ciphertext)
	return !ok || version != r.currentVer
}

// ReEncrypt rewrites a stale ciphertext under the current key.
func (r *RotatingEncryptor) ReEncrypt(ciphertext string) (string, error) {
	plaintext, err := r.Decrypt(ciphertext)
	if err != nil {
		return "", fmt.Errorf("pii rotation: re-encrypt: %w", err)
	}
	return r.Encrypt(plaintext)
}

func splitVersion(s string) (version int, sealed string, ok bool) {
	rest, found := strings.CutPrefix(s, "v")
	if !found {
		return 0, "", false
	}
	head, tail, found := strings.Cut(rest, ":")
	if !found {
		return 0, "", false
	}
	version, err := strconv.Atoi(head)
	if err != nil {
		return 0, "", false
	}
	return version, tail, true
}
