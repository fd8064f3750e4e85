package wallet

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_RoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	entryID := uuid.New()

	token := EncodeCursor(createdAt, entryID)
	ts, id, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.True(t, ts.Equal(createdAt))
	assert.Equal(t, entryID, id)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	cases := []string{
		"not base64 !!!",
		base64.URLEncoding.EncodeToString([]byte("no-separator")),
		base64.URLEncoding.EncodeToString([]byte("not-a-time:" + uuid.New().String())),
		base64.URLEncoding.EncodeToString([]byte(time.Now().UTC().Format(time.RFC3339Nano) + ":not-a-uuid")),
	}
	for _, c := range cases {
		_, _, err := DecodeCursor(c)
		assert.Error(t, err, "cursor %q", c)
	}
}
