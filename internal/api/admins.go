package api

import (
	"saazebharat/internal/admin"
	"saazebharat/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AdminLogin is step one of the two-factor login. A first-time login returns
// the TOTP enrollment material; later logins just ask for a code.
func (h *Handler) AdminLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, "validation failed: "+err.Error())
	}

	result, err := h.admins.Login(c.Context(), req.Email, req.Password, c.IP())
	if err != nil {
		return h.fail(c, err)
	}

	resp := fiber.Map{
		"message": "password accepted, authenticator code required",
		"userId":  result.AdminID.String(),
	}
	if result.Enrollment != nil {
		resp["message"] = "two-factor enrollment required"
		resp["enrollment"] = result.Enrollment
	}
	return c.JSON(resp)
}

type verifyTOTPRequest struct {
	UserID string `json:"userId" validate:"required,uuid4"`
	Token  string `json:"token" validate:"required,len=6,numeric"`
}

// AdminVerifyTOTP is step two: a valid authenticator code yields the session
// token.
func (h *Handler) AdminVerifyTOTP(c *fiber.Ctx) error {
	var req verifyTOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, "validation failed: "+err.Error())
	}

	adminID, err := uuid.Parse(req.UserID)
	if err != nil {
		return badRequest(c, "invalid user id")
	}

	session, err := h.admins.VerifyTOTP(c.Context(), adminID, req.Token, c.IP())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "login successful",
		"token":   session.Token,
		"admin":   toAdminResponse(session.Admin),
	})
}

type createAdminRequest struct {
	Username string `json:"username" validate:"required,min=3,max=60"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=10,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=admin super_admin"`
}

func (h *Handler) CreateAdmin(c *fiber.Ctx) error {
	var req createAdminRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, "validation failed: "+err.Error())
	}

	account, err := h.admins.Create(c.Context(), actorID(c), admin.CreateInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     model.Role(req.Role),
	}, c.IP())
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "admin created",
		"admin":   toAdminResponse(account),
	})
}

func (h *Handler) ListAdmins(c *fiber.Ctx) error {
	accounts, err := h.admins.List(c.Context())
	if err != nil {
		return h.fail(c, err)
	}

	out := make([]adminResponse, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, toAdminResponse(account))
	}
	return c.JSON(fiber.Map{"data": out})
}

func (h *Handler) DeleteAdmin(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid admin id")
	}

	if err := h.admins.Delete(c.Context(), actorID(c), id, c.IP()); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "admin deleted"})
}

func (h *Handler) ListAuditEntries(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	entries, total, err := h.auditLog.ListAuditEntries(c.Context(), limit, (page-1)*limit)
	if err != nil {
		return h.fail(c, err)
	}

	out := make([]auditResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toAuditResponse(entry))
	}
	return c.JSON(fiber.Map{
		"data":  out,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (h *Handler) Health(c *fiber.Ctx) error {
	if err := h.pinger.Ping(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
