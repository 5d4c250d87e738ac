// Package audit records administrative actions. Recording is best effort:
// a failed insert is logged and swallowed so the action it describes still
// completes.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"saazebharat/internal/model"

	"github.com/google/uuid"
)

type Store interface {
	CreateAuditEntry(ctx context.Context, entry model.AuditEntry) error
}

type Recorder struct {
	store  Store
	logger *slog.Logger
}

func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Record writes one audit entry. details may be any JSON-encodable value or
// nil.
func (r *Recorder) Record(ctx context.Context, adminID *uuid.UUID, action string, targetID, targetType, ipAddress string, details any) {
	entry := model.AuditEntry{
		ID:        uuid.New(),
		AdminID:   adminID,
		Action:    action,
		IPAddress: ipAddress,
		CreatedAt: time.Now(),
	}
	if targetID != "" {
		entry.TargetID = &targetID
	}
	if targetType != "" {
		entry.TargetType = &targetType
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			r.logger.Warn("audit details not encodable", "action", action, "error", err)
		} else {
			entry.Details = raw
		}
	}

	if err := r.store.CreateAuditEntry(ctx, entry); err != nil {
		r.logger.Warn("audit entry not recorded", "action", action, "error", err)
	}
}
