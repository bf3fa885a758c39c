package repository

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/novafabric/backbone/internal/apperr"
)

// Cursor is the opaque pagination token documented in §6.2: a base64 of
// either an integer offset or a (timestamp, id) keyset tuple.
type Cursor struct {
	Offset    int64
	Timestamp int64
	ID        string
	HasKeyset bool
}

// EncodeOffsetCursor produces an opaque cursor for a plain integer offset.
func EncodeOffsetCursor(offset int64) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.FormatInt(offset, 10)))
}

// EncodeKeysetCursor produces an opaque cursor for a (id, timestamp) tuple,
// matching the teacher's "{updated_at}|{id}" pagination format.
func EncodeKeysetCursor(id string, timestampUnix int64) string {
	raw := fmt.Sprintf("%d|%s", timestampUnix, id)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor is the inverse of the Encode* functions. Malformed input
// yields a validation error without panicking, per §8's round-trip law.
func DecodeCursor(encoded string) (Cursor, error) {
	if encoded == "" {
		return Cursor{}, nil
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Cursor{}, apperr.Validation("INVALID_CURSOR", "cursor is not valid base64")
	}

	s := string(raw)
	if !strings.Contains(s, "|") {
		offset, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Cursor{}, apperr.Validation("INVALID_CURSOR", "cursor is not a valid offset")
		}
		return Cursor{Offset: offset}, nil
	}

	parts := strings.SplitN(s, "|", 2)
	ts, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || parts[1] == "" {
		return Cursor{}, apperr.Validation("INVALID_CURSOR", "cursor keyset is malformed")
	}

	return Cursor{Timestamp: ts, ID: parts[1], HasKeyset: true}, nil
}

// ClampLimit bounds a client-supplied limit to [1,100], per §6.2.
func ClampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > 100 {
		return 100
	}
	return limit
}
