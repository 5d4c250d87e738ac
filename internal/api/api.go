// Package api exposes the HTTP surface: public registration intake plus the
// authenticated admin console endpoints.
package api

import (
	"context"
	"errors"
	"log/slog"

	"saazebharat/internal/admin"
	"saazebharat/internal/content"
	"saazebharat/internal/database"
	"saazebharat/internal/model"
	"saazebharat/internal/otp"
	"saazebharat/internal/registration"
	"saazebharat/internal/storage"
	"saazebharat/internal/token"
	"saazebharat/internal/validator"

	"github.com/gofiber/fiber/v2"
)

// AuditLog is the read side of the audit trail.
type AuditLog interface {
	ListAuditEntries(ctx context.Context, limit int, offset int) ([]model.AuditEntry, int64, error)
}

// Pinger reports backing-store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	registrations *registration.Manager
	admins        *admin.Authenticator
	tokens        *token.Service
	documents     storage.Store
	content       *content.Service
	auditLog      AuditLog
	pinger        Pinger
	validator     *validator.Validator
	logger        *slog.Logger
}

func NewHandler(registrations *registration.Manager, admins *admin.Authenticator,
	tokens *token.Service, documents storage.Store, contentSvc *content.Service,
	auditLog AuditLog, pinger Pinger, logger *slog.Logger) *Handler {
	return &Handler{
		registrations: registrations,
		admins:        admins,
		tokens:        tokens,
		documents:     documents,
		content:       contentSvc,
		auditLog:      auditLog,
		pinger:        pinger,
		validator:     validator.New(),
		logger:        logger,
	}
}

// fail translates domain errors into HTTP responses. Unknown errors become an
// opaque 500 with the detail logged server-side only.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, database.ErrRegistrationNotFound),
		errors.Is(err, database.ErrAdminNotFound),
		errors.Is(err, registration.ErrNoExportRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})

	case errors.Is(err, registration.ErrEmailTaken),
		errors.Is(err, database.ErrDuplicateAdminEmail):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})

	case errors.Is(err, otp.ErrAlreadyVerified),
		errors.Is(err, otp.ErrInvalidCode),
		errors.Is(err, otp.ErrExpired),
		errors.Is(err, database.ErrNotEligible),
		errors.Is(err, database.ErrAlreadyCheckedIn),
		errors.Is(err, model.ErrUnknownCategory),
		errors.Is(err, admin.ErrSelfDeletion),
		errors.Is(err, admin.ErrLastSuperAdmin):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})

	case errors.Is(err, admin.ErrInvalidCredentials),
		errors.Is(err, admin.ErrInvalidTOTP),
		errors.Is(err, token.ErrInvalidToken):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": err.Error()})

	default:
		h.logger.Error("request failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "internal server error"})
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": message})
}
