package api

import (
	"strings"

	"saazebharat/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	localAdminID   = "admin_id"
	localAdminRole = "admin_role"
)

// RequireAuth validates the bearer token and confirms its subject still
// exists before letting the request through.
func (h *Handler) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "missing bearer token"})
		}

		adminID, role, err := h.tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid or expired token"})
		}

		// A deleted admin's outstanding tokens stop working here.
		if _, err := h.admins.Get(c.Context(), adminID); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid or expired token"})
		}

		c.Locals(localAdminID, adminID)
		c.Locals(localAdminRole, role)
		return c.Next()
	}
}

// RequireRole gates an endpoint to specific roles. Must run after RequireAuth.
func RequireRole(roles ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(localAdminRole).(model.Role)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "missing bearer token"})
		}
		for _, allowed := range roles {
			if role == allowed {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "insufficient permissions"})
	}
}

func actorID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(localAdminID).(uuid.UUID)
	return id
}
