// Package content exposes the editable site text used when composing emails.
// Every lookup has a built-in fallback so mail still goes out when the table
// is empty.
package content

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"saazebharat/internal/audit"
	"saazebharat/internal/database"
	"saazebharat/internal/model"

	"github.com/google/uuid"
)

type Store interface {
	GetContentByKey(ctx context.Context, key string) (model.ContentEntry, error)
	ListContentBySection(ctx context.Context, section string) ([]model.ContentEntry, error)
	UpsertContent(ctx context.Context, entry model.ContentEntry) error
}

var _ Store = (*database.Database)(nil)

// Keys for the email templates an admin can edit.
const (
	KeyOTPSubject      = "email.otp.subject"
	KeyOTPBody         = "email.otp.body"
	KeyApprovalSubject = "email.approval.subject"
	KeyApprovalBody    = "email.approval.body"
	KeyRejectSubject   = "email.reject.subject"
	KeyRejectBody      = "email.reject.body"
)

var fallbacks = map[string]string{
	KeyOTPSubject:      "Verify your Saaz-e-Bharat registration",
	KeyOTPBody:         "Dear {name},<br><br>Your verification code is <b>{otp}</b>. It expires in 30 minutes.<br><br>Saaz-e-Bharat Team",
	KeyApprovalSubject: "Your Saaz-e-Bharat registration is approved",
	KeyApprovalBody:    "Dear {name},<br><br>Your registration as {category} has been approved. Your entry pass is attached below.<br><br>Ticket ID: <b>{qrId}</b><br><br>Saaz-e-Bharat Team",
	KeyRejectSubject:   "Update on your Saaz-e-Bharat registration",
	KeyRejectBody:      "Dear {name},<br><br>We regret to inform you that your registration as {category} was not approved.<br><br>Reason: {reason}<br><br>Saaz-e-Bharat Team",
}

type Service struct {
	store  Store
	audit  *audit.Recorder
	logger *slog.Logger
}

func NewService(store Store, recorder *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{store: store, audit: recorder, logger: logger}
}

// Text returns the stored value for key, or its fallback when the entry is
// missing or the lookup fails.
func (s *Service) Text(ctx context.Context, key string) string {
	entry, err := s.store.GetContentByKey(ctx, key)
	if err != nil {
		if fallback, ok := fallbacks[key]; ok {
			return fallback
		}
		s.logger.Warn("content entry missing with no fallback", "key", key)
		return ""
	}
	return entry.Value
}

// Section returns all entries grouped under a section name.
func (s *Service) Section(ctx context.Context, section string) ([]model.ContentEntry, error) {
	return s.store.ListContentBySection(ctx, section)
}

// Update is one edit in an admin content batch.
type Update struct {
	Key     string
	Value   string
	Section string
}

// Apply upserts a batch of edits and writes a single audit entry for the lot.
func (s *Service) Apply(ctx context.Context, actorID uuid.UUID, updates []Update, ip string) error {
	now := time.Now()
	for _, update := range updates {
		entry := model.ContentEntry{
			ID:        uuid.New(),
			Key:       update.Key,
			Value:     update.Value,
			Section:   update.Section,
			UpdatedAt: now,
		}
		if err := s.store.UpsertContent(ctx, entry); err != nil {
			return err
		}
	}
	s.audit.Record(ctx, &actorID, "content_updated", "", "content", ip,
		map[string]any{"count": len(updates)})
	return nil
}

// Render substitutes {placeholder} tokens in a template.
func Render(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for placeholder, value := range values {
		pairs = append(pairs, "{"+placeholder+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
