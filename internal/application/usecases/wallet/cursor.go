package wallet

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	domainerrors "github.com/agentpay/walletd/internal/domain/errors"
)

// Listing cursors are keyset tokens: base64("<RFC3339Nano>:<entry_id>") of
// the last item on the page. Opaque to clients.

// EncodeCursor builds the token for the next page.
func EncodeCursor(createdAt time.Time, entryID uuid.UUID) string {
	raw := fmt.Sprintf("%s:%s", createdAt.UTC().Format(time.RFC3339Nano), entryID)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a client-supplied token.
func DecodeCursor(cursor string) (time.Time, uuid.UUID, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, uuid.Nil, domainerrors.Validation("invalid cursor")
	}
	// The timestamp itself contains colons; the id is the last segment.
	idx := strings.LastIndex(string(raw), ":")
	if idx < 0 {
		return time.Time{}, uuid.Nil, domainerrors.Validation("invalid cursor")
	}
	ts, err := time.Parse(time.RFC3339Nano, string(raw[:idx]))
	if err != nil {
		return time.Time{}, uuid.Nil, domainerrors.Validation("invalid cursor")
	}
	id, err := uuid.Parse(string(raw[idx+1:]))
	if err != nil {
		return time.Time{}, uuid.Nil, domainerrors.Validation("invalid cursor")
	}
	return ts, id, nil
}
