package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novafabric/backbone/internal/apperr"
)

func TestCursor_OffsetRoundTrip(t *testing.T) {
	encoded := EncodeOffsetCursor(42)
	decoded, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, int64(42), decoded.Offset)
	assert.False(t, decoded.HasKeyset)
}

func TestCursor_KeysetRoundTrip(t *testing.T) {
	encoded := EncodeKeysetCursor("abc-123", 1700000000)
	decoded, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.True(t, decoded.HasKeyset)
	assert.Equal(t, "abc-123", decoded.ID)
	assert.Equal(t, int64(1700000000), decoded.Timestamp)
}

func TestCursor_EmptyStringIsZeroValue(t *testing.T) {
	decoded, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Equal(t, Cursor{}, decoded)
}

func TestCursor_MalformedBase64Rejected(t *testing.T) {
	_, err := DecodeCursor("not-valid-base64!!!")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCursor_MalformedKeysetRejected(t *testing.T) {
	// base64 of "0|" -- a keyset whose id is empty
	encoded := EncodeKeysetCursor("", 0)
	_, err := DecodeCursor(encoded)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestClampLimit_BoundsToRange(t *testing.T) {
	assert.Equal(t, 1, ClampLimit(0))
	assert.Equal(t, 1, ClampLimit(-5))
	assert.Equal(t, 100, ClampLimit(500))
	assert.Equal(t, 50, ClampLimit(50))
}
