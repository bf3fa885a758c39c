// Package crypto derives per-conversation symmetric keys and performs
// authenticated encryption for strict_e2e conversations (§4.3.4),
// grounded on golang.org/x/crypto's hkdf and nacl/secretbox, the same
// family of primitives the teacher's user-service already depends on
// golang.org/x/crypto for.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/novafabric/backbone/internal/domain"
)

// MasterKey is held in memory for the lifetime of the process; it is never
// persisted.
type MasterKey [32]byte

// ErrDecryptFailed is returned when authentication fails, e.g. under a
// tampered ciphertext or a stale key version after rotation.
var ErrDecryptFailed = errors.New("message authentication failed")

// DeriveConversationKey is a deterministic function of (master key,
// conversation id, key version): HKDF with the conversation id (and its
// current KeyVersion, so RotateKey invalidates any cached derivation) as
// info.
func DeriveConversationKey(master MasterKey, conversationID domain.ConversationID, keyVersion int32) ([32]byte, error) {
	info := append([]byte(conversationID.String()), byte(keyVersion))
	kdf := hkdf.New(sha256.New, master[:], nil, info)

	var key [32]byte
	if _, err := io.ReadFull(kdf, key[:]); err != nil {
		return key, err
	}
	return key, nil
}

// Seal encrypts plaintext under key using a fresh random 24-byte nonce
// (XSalsa20-Poly1305 via nacl/secretbox), returning ciphertext and nonce
// separately for persistence, per §4.3.2 step 3.
func Seal(key [32]byte, plaintext []byte) (ciphertext, nonce []byte, err error) {
	var n [24]byte
	if _, err := rand.Read(n[:]); err != nil {
		return nil, nil, err
	}
	sealed := secretbox.Seal(nil, plaintext, &n, &key)
	return sealed, n[:], nil
}

// Open decrypts ciphertext with the given nonce and key, returning
// ErrDecryptFailed on any authentication failure (never exposing the
// underlying library error, consistent with the error-handling taxonomy).
func Open(key [32]byte, ciphertext, nonce []byte) ([]byte, error) {
	if len(nonce) != 24 {
		return nil, ErrDecryptFailed
	}
	var n [24]byte
	copy(n[:], nonce)

	plaintext, ok := secretbox.Open(nil, ciphertext, &n, &key)
	if !ok {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}
