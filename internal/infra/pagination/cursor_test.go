package pagination_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/Potenup-community/backend-sub002/internal/infra/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 3, 4, 5, 6, 7, 891, time.FixedZone("KST", 9*3600))
	id := uuid.New()

	gotTime, gotID, err := pagination.Decode(pagination.Encode(createdAt, id))
	require.NoError(t, err)
	assert.True(t, createdAt.Equal(gotTime))
	assert.Equal(t, time.UTC, gotTime.Location())
	assert.Equal(t, id, gotID)
}

func TestDecodeRejectsMalformedCursors(t *testing.T) {
	enc := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

	cases := map[string]string{
		"not base64":    "%%%",
		"no separator":  enc("12345"),
		"bad timestamp": enc("abc|" + uuid.NewString()),
		"negative":      enc("-1|" + uuid.NewString()),
		"bad id":        enc("12345|not-a-uuid"),
	}
	for name, cursor := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := pagination.Decode(cursor)
			assert.ErrorIs(t, err, pagination.ErrInvalidCursor)
		})
	}
}
