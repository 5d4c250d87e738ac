package api

import (
	"log/slog"
	"time"

	"saazebharat/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func requestLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Info("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"ip", c.IP(),
			"duration", time.Since(start))
		return err
	}
}

// RegisterRoutes mounts the full HTTP surface on app.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestLogger(h.logger))

	app.Get("/health", h.Health)

	// The public intake endpoints are rate limited per IP.
	publicLimiter := limiter.New(limiter.Config{
		Max:        20,
		Expiration: 15 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "too many requests, try again later",
			})
		},
	})

	api := app.Group("/api")

	registrations := api.Group("/registrations")
	registrations.Post("/", publicLimiter, h.SubmitRegistration)
	registrations.Post("/verify-otp", publicLimiter, h.VerifyRegistrationOTP)

	auth := h.RequireAuth()
	anyAdmin := RequireRole(model.RoleAdmin, model.RoleSuperAdmin)
	superOnly := RequireRole(model.RoleSuperAdmin)

	registrations.Get("/", auth, anyAdmin, h.ListRegistrations)
	registrations.Get("/analytics", auth, anyAdmin, h.RegistrationAnalytics)
	registrations.Get("/export", auth, anyAdmin, h.ExportRegistrations)
	registrations.Post("/check-in", auth, anyAdmin, h.CheckInRegistration)
	registrations.Post("/batch-approve", auth, anyAdmin, h.BatchApproveRegistrations)
	registrations.Post("/batch-reject", auth, anyAdmin, h.BatchRejectRegistrations)
	registrations.Post("/:id/approve", auth, anyAdmin, h.ApproveRegistration)
	registrations.Post("/:id/reject", auth, anyAdmin, h.RejectRegistration)
	registrations.Delete("/:id", auth, superOnly, h.DeleteRegistration)

	admins := api.Group("/admins")
	admins.Post("/login", publicLimiter, h.AdminLogin)
	admins.Post("/verify-otp", publicLimiter, h.AdminVerifyTOTP)
	admins.Post("/", auth, superOnly, h.CreateAdmin)
	admins.Get("/", auth, superOnly, h.ListAdmins)
	admins.Delete("/:id", auth, superOnly, h.DeleteAdmin)

	contentGroup := api.Group("/content")
	contentGroup.Get("/:section", h.GetContentSection)
	contentGroup.Put("/", auth, anyAdmin, h.UpdateContent)

	api.Get("/audit", auth, anyAdmin, h.ListAuditEntries)
}
