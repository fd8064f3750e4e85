package entities

import (
	"time"

	"github.com/google/uuid"
)

// AuditRecord is one authenticated request as seen at the HTTP boundary.
// The request body is stored only as a SHA-256 digest.
type AuditRecord struct {
	ID             uuid.UUID
	APIKeyID       *uuid.UUID
	Route          string
	Method         string
	IP             string
	UserAgent      string
	RequestHash    string
	ResponseStatus int
	CreatedAt      time.Time
}
