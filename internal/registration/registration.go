// Package registration implements the participant lifecycle: intake with
// email verification, admin review, ticket issuance and gate check-in.
package registration

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"saazebharat/internal/audit"
	"saazebharat/internal/config"
	"saazebharat/internal/content"
	"saazebharat/internal/database"
	"saazebharat/internal/mailer"
	"saazebharat/internal/model"
	"saazebharat/internal/otp"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrEmailTaken   = errors.New("email already registered and verified")
	ErrNoExportRows = errors.New("no registrations match the export filters")
)

// Store is the persistence surface the manager needs. *database.Database
// satisfies it; tests substitute an in-memory implementation.
type Store interface {
	CreateRegistration(ctx context.Context, reg model.Registration) error
	GetRegistrationByID(ctx context.Context, id uuid.UUID) (model.Registration, error)
	GetRegistrationByEmail(ctx context.Context, email string) (model.Registration, error)
	GetRegistrationByQRID(ctx context.Context, qrID string) (model.Registration, error)
	UpdateSubmission(ctx context.Context, reg model.Registration) error
	MarkVerified(ctx context.Context, id uuid.UUID, code string, now time.Time, next model.Status) (bool, error)
	TransitionToApproved(ctx context.Context, id uuid.UUID, qrID string, forced bool) (model.Registration, error)
	TransitionToRejected(ctx context.Context, id uuid.UUID, reason string) (model.Registration, error)
	RejectIfPendingReview(ctx context.Context, id uuid.UUID, reason string) (model.Registration, error)
	DeleteRegistration(ctx context.Context, id uuid.UUID) error
	MarkCheckedIn(ctx context.Context, qrID string, at time.Time) (model.Registration, error)
	ListRegistrations(ctx context.Context, params database.ListRegistrationsParams) ([]model.Registration, int64, error)
	CountVerified(ctx context.Context) (int64, error)
	CountVerifiedSince(ctx context.Context, since time.Time) (int64, error)
	CategoryCounts(ctx context.Context) ([]database.CategoryCount, error)
	DailyTrend(ctx context.Context, since time.Time) ([]database.TrendPoint, error)
	ExportRegistrations(ctx context.Context, params database.ExportParams) ([]model.Registration, error)
}

var _ Store = (*database.Database)(nil)

type Manager struct {
	store     Store
	mailer    mailer.Sender
	content   *content.Service
	audit     *audit.Recorder
	cache     *redis.Client
	cfg       config.RegistrationConfig
	ticketKey []byte
	logger    *slog.Logger
}

// NewManager wires the lifecycle manager. cache may be nil, in which case
// analytics are computed on every call.
func NewManager(store Store, sender mailer.Sender, contentSvc *content.Service,
	recorder *audit.Recorder, cache *redis.Client, cfg config.RegistrationConfig,
	ticketKey string, logger *slog.Logger) *Manager {
	return &Manager{
		store:     store,
		mailer:    sender,
		content:   contentSvc,
		audit:     recorder,
		cache:     cache,
		cfg:       cfg,
		ticketKey: []byte(ticketKey),
		logger:    logger,
	}
}

type SubmitInput struct {
	Category     model.Category
	Email        string
	Phone        string
	FullName     string
	Organization string
	Details      model.Details
	DocumentKey  *string
}

// Submit creates a registration and emails its verification code. A repeat
// submission for an unverified email overwrites the earlier one and issues a
// fresh code; a verified email is permanently taken.
func (m *Manager) Submit(ctx context.Context, input SubmitInput) (model.Registration, error) {
	if !input.Category.Valid() {
		return model.Registration{}, model.ErrUnknownCategory
	}
	if input.Details != nil && input.Details.DetailsCategory() != input.Category {
		return model.Registration{}, model.ErrUnknownCategory
	}

	// Email addresses are case-normalized; uniqueness ignores case.
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	code, expires, err := otp.Issue(m.cfg.OTPTTL)
	if err != nil {
		return model.Registration{}, err
	}

	existing, err := m.store.GetRegistrationByEmail(ctx, input.Email)
	switch {
	case err == nil:
		if existing.IsEmailVerified {
			return model.Registration{}, ErrEmailTaken
		}
		existing.Category = input.Category
		existing.Phone = input.Phone
		existing.FullName = input.FullName
		existing.Organization = input.Organization
		existing.Details = input.Details
		existing.VerificationOTP = &code
		existing.OTPExpires = &expires
		if input.DocumentKey != nil {
			existing.DocumentKey = input.DocumentKey
		}
		if err := m.store.UpdateSubmission(ctx, existing); err != nil {
			if errors.Is(err, database.ErrNotEligible) {
				// Verified between the read and the update.
				return model.Registration{}, ErrEmailTaken
			}
			return model.Registration{}, err
		}
		m.sendOTPEmail(ctx, existing, code)
		return existing, nil

	case errors.Is(err, database.ErrRegistrationNotFound):
		now := time.Now()
		reg := model.Registration{
			ID:              uuid.New(),
			Category:        input.Category,
			Email:           input.Email,
			Phone:           input.Phone,
			FullName:        input.FullName,
			Organization:    input.Organization,
			Status:          model.StatusPendingVerification,
			VerificationOTP: &code,
			OTPExpires:      &expires,
			DocumentKey:     input.DocumentKey,
			Details:         input.Details,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := m.store.CreateRegistration(ctx, reg); err != nil {
			if errors.Is(err, database.ErrDuplicateEmail) {
				return model.Registration{}, ErrEmailTaken
			}
			return model.Registration{}, err
		}
		m.sendOTPEmail(ctx, reg, code)
		return reg, nil

	default:
		return model.Registration{}, err
	}
}

// ConfirmOTP verifies the emailed code and moves the registration to review.
// Under the auto approval policy the registration is approved and ticketed in
// the same call.
func (m *Manager) ConfirmOTP(ctx context.Context, id uuid.UUID, code string) (model.Registration, error) {
	reg, err := m.store.GetRegistrationByID(ctx, id)
	if err != nil {
		return model.Registration{}, err
	}

	now := time.Now()
	if err := otp.Check(&reg, code, now); err != nil {
		return model.Registration{}, err
	}

	ok, err := m.store.MarkVerified(ctx, id, code, now, model.StatusPendingReview)
	if err != nil {
		return model.Registration{}, err
	}
	if !ok {
		// Lost a race; reclassify against the current record.
		reg, err = m.store.GetRegistrationByID(ctx, id)
		if err != nil {
			return model.Registration{}, err
		}
		if checkErr := otp.Check(&reg, code, now); checkErr != nil {
			return model.Registration{}, checkErr
		}
		return model.Registration{}, otp.ErrInvalidCode
	}

	reg, err = m.store.GetRegistrationByID(ctx, id)
	if err != nil {
		return model.Registration{}, err
	}

	if m.cfg.ApprovalPolicy == config.ApprovalPolicyAuto {
		approved, err := m.approve(ctx, nil, id, false, "")
		if err != nil {
			m.logger.Warn("auto approval failed", "registration_id", id, "error", err)
			return reg, nil
		}
		return approved, nil
	}
	return reg, nil
}

func (m *Manager) sendOTPEmail(ctx context.Context, reg model.Registration, code string) {
	subject := m.content.Text(ctx, content.KeyOTPSubject)
	body := content.Render(m.content.Text(ctx, content.KeyOTPBody), map[string]string{
		"name":     reg.DisplayName(),
		"category": string(reg.Category),
		"otp":      code,
	})
	if err := m.mailer.Send(reg.Email, subject, body); err != nil {
		m.logger.Warn("verification email not sent", "registration_id", reg.ID, "error", err)
	}
}
