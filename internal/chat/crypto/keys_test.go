package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novafabric/backbone/internal/domain"
)

func TestDeriveConversationKey_Deterministic(t *testing.T) {
	var master MasterKey
	for i := range master {
		master[i] = byte(i)
	}
	convID := domain.NewConversationID()

	k1, err := DeriveConversationKey(master, convID, 1)
	require.NoError(t, err)
	k2, err := DeriveConversationKey(master, convID, 1)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestDeriveConversationKey_RotationChangesKey(t *testing.T) {
	var master MasterKey
	for i := range master {
		master[i] = byte(i)
	}
	convID := domain.NewConversationID()

	k1, err := DeriveConversationKey(master, convID, 1)
	require.NoError(t, err)
	k2, err := DeriveConversationKey(master, convID, 2)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2, "bumping key version must invalidate prior derivations")
}

func TestDeriveConversationKey_DifferentConversationsDiffer(t *testing.T) {
	var master MasterKey
	for i := range master {
		master[i] = byte(i)
	}

	k1, err := DeriveConversationKey(master, domain.NewConversationID(), 1)
	require.NoError(t, err)
	k2, err := DeriveConversationKey(master, domain.NewConversationID(), 1)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

func TestSealOpen_RoundTrip(t *testing.T) {
	var key [32]byte
	for i := range key {
		key[i] = byte(i * 3)
	}
	plaintext := []byte("hello, strict_e2e conversation")

	ciphertext, nonce, err := Seal(key, plaintext)
	require.NoError(t, err)
	assert.Len(t, nonce, 24)

	decrypted, err := Open(key, ciphertext, nonce)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestSeal_ProducesFreshNoncePerCall(t *testing.T) {
	var key [32]byte
	_, nonce1, err := Seal(key, []byte("a"))
	require.NoError(t, err)
	_, nonce2, err := Seal(key, []byte("a"))
	require.NoError(t, err)
	assert.NotEqual(t, nonce1, nonce2)
}

func TestOpen_RejectsTamperedCiphertext(t *testing.T) {
	var key [32]byte
	ciphertext, nonce, err := Seal(key, []byte("original message"))
	require.NoError(t, err)

	tampered := append([]byte(nil), ciphertext...)
	tampered[0] ^= 0xFF

	_, err = Open(key, tampered, nonce)
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestOpen_RejectsWrongKey(t *testing.T) {
	var key [32]byte
	var wrongKey [32]byte
	wrongKey[0] = 1

	ciphertext, nonce, err := Seal(key, []byte("secret"))
	require.NoError(t, err)

	_, err = Open(wrongKey, ciphertext, nonce)
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestOpen_RejectsMalformedNonce(t *testing.T) {
	var key [32]byte
	_, err := Open(key, []byte("whatever"), []byte("too-short"))
	assert.ErrorIs(t, err, ErrDecryptFailed)
}
