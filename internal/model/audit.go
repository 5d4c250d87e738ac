package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditEntry is write-once; nothing in the codebase updates or deletes one.
type AuditEntry struct {
	ID         uuid.UUID
	AdminID    *uuid.UUID
	Action     string
	TargetID   *string
	TargetType *string
	Details    json.RawMessage
	IPAddress  string
	CreatedAt  time.Time
}

// ContentEntry is editable site text, consumed read-only here for email
// templating.
type ContentEntry struct {
	ID        uuid.UUID
	Key       string
	Value     string
	Section   string
	UpdatedAt time.Time
}
