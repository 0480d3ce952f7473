// Package pagination encodes keyset cursors for newest-first listings ordered by
// (created_at, id).
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidCursor = errors.New("invalid cursor")

const separator = "|"

// Encode returns an opaque, URL-safe cursor pointing just past the given row.
func Encode(createdAt time.Time, id uuid.UUID) string {
	raw := strconv.FormatInt(createdAt.UTC().UnixNano(), 10) + separator + id.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func Decode(cursor string) (time.Time, uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	nanosPart, idPart, ok := strings.Cut(string(raw), separator)
	if !ok {
		return time.Time{}, uuid.Nil, fmt.Errorf("%w: missing separator", ErrInvalidCursor)
	}
	nanos, err := strconv.ParseInt(nanosPart, 10, 64)
	if err != nil || nanos < 0 {
		return time.Time{}, uuid.Nil, fmt.Errorf("%w: bad timestamp", ErrInvalidCursor)
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return time.Unix(0, nanos).UTC(), id, nil
}
