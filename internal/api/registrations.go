package api

import (
	"encoding/json"
	"time"

	"saazebharat/internal/model"
	"saazebharat/internal/registration"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type submitRequest struct {
	Category     string          `json:"category" validate:"required"`
	Email        string          `json:"email" validate:"required,email"`
	Phone        string          `json:"phone" validate:"required,phone"`
	FullName     string          `json:"fullName" validate:"required,min=2,max=120"`
	Organization string          `json:"organization" validate:"max=200"`
	Details      json.RawMessage `json:"details"`
}

// SubmitRegistration accepts a new registration as JSON or multipart form
// data. A multipart request may attach an identity document.
func (h *Handler) SubmitRegistration(c *fiber.Ctx) error {
	var req submitRequest
	isMultipart := false
	if form, err := c.MultipartForm(); err == nil && form != nil {
		isMultipart = true
		req = submitRequest{
			Category:     c.FormValue("category"),
			Email:        c.FormValue("email"),
			Phone:        c.FormValue("phone"),
			FullName:     c.FormValue("fullName"),
			Organization: c.FormValue("organization"),
			Details:      json.RawMessage(c.FormValue("details")),
		}
	} else if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, "validation failed: "+err.Error())
	}

	category := model.Category(req.Category)
	details, err := model.DecodeDetails(category, req.Details)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.validator.Validate(details); err != nil {
		return badRequest(c, "validation failed: "+err.Error())
	}

	input := registration.SubmitInput{
		Category:     category,
		Email:        req.Email,
		Phone:        req.Phone,
		FullName:     req.FullName,
		Organization: req.Organization,
		Details:      details,
	}

	// The document is stored up front under its own key; a failed upload
	// never blocks the registration itself.
	if isMultipart {
		if header, err := c.FormFile("document"); err == nil && header != nil {
			file, err := header.Open()
			if err == nil {
				key, storeErr := h.documents.Put(c.Context(), uuid.New(), header.Filename,
					file, header.Header.Get(fiber.HeaderContentType))
				file.Close()
				if storeErr != nil {
					h.logger.Warn("document upload failed", "email", req.Email, "error", storeErr)
				} else {
					input.DocumentKey = &key
				}
			}
		}
	}

	reg, err := h.registrations.Submit(c.Context(), input)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":        "registration received, verification code sent",
		"registrationId": reg.ID.String(),
	})
}

type verifyOTPRequest struct {
	RegistrationID string `json:"registrationId" validate:"required,uuid4"`
	OTP            string `json:"otp" validate:"required,len=6,numeric"`
}

func (h *Handler) VerifyRegistrationOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, "validation failed: "+err.Error())
	}

	id, err := uuid.Parse(req.RegistrationID)
	if err != nil {
		return badRequest(c, "invalid registration id")
	}

	reg, err := h.registrations.ConfirmOTP(c.Context(), id, req.OTP)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message":      "email verified",
		"registration": toRegistrationResponse(reg),
	})
}

func (h *Handler) ListRegistrations(c *fiber.Ctx) error {
	page, err := h.registrations.List(c.Context(), registration.ListInput{
		Category:      c.Query("category"),
		Status:        c.Query("status"),
		AttendanceDay: c.Query("attendanceDay"),
		Search:        c.Query("search"),
		Page:          c.QueryInt("page", 1),
		Limit:         c.QueryInt("limit", 10),
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"data": toRegistrationResponses(page.Registrations),
		"pagination": fiber.Map{
			"total":      page.Total,
			"page":       page.Page,
			"limit":      page.Limit,
			"totalPages": page.TotalPages,
		},
	})
}

func (h *Handler) RegistrationAnalytics(c *fiber.Ctx) error {
	analytics, err := h.registrations.GetAnalytics(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(analytics)
}

func (h *Handler) ExportRegistrations(c *fiber.Ctx) error {
	input := registration.ExportInput{
		Category: c.Query("category"),
		From:     c.QueryInt("from"),
		To:       c.QueryInt("to"),
	}
	if raw := c.Query("startDate"); raw != "" {
		start, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return badRequest(c, "startDate must be YYYY-MM-DD")
		}
		input.StartDate = &start
	}
	if raw := c.Query("endDate"); raw != "" {
		end, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return badRequest(c, "endDate must be YYYY-MM-DD")
		}
		// Inclusive through the end of the day.
		end = end.Add(24*time.Hour - time.Nanosecond)
		input.EndDate = &end
	}

	out, err := h.registrations.ExportCSV(c.Context(), input)
	if err != nil {
		return h.fail(c, err)
	}

	filename := "registrations_" + time.Now().Format("20060102") + ".csv"
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(out)
}

type approveRequest struct {
	Force bool `json:"force"`
}

func (h *Handler) ApproveRegistration(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid registration id")
	}

	var req approveRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "malformed request body")
		}
	}

	reg, err := h.registrations.Approve(c.Context(), actorID(c), id, req.Force, c.IP())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message":      "registration approved",
		"registration": toRegistrationResponse(reg),
	})
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"omitempty,min=3,max=500"`
}

// RejectRegistration declines a registration. The reason is optional; the
// manager substitutes a default when it is absent.
func (h *Handler) RejectRegistration(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid registration id")
	}

	var req rejectRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "malformed request body")
		}
	}
	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, "validation failed: "+err.Error())
	}

	reg, err := h.registrations.Reject(c.Context(), actorID(c), id, req.Reason, c.IP())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message":      "registration rejected",
		"registration": toRegistrationResponse(reg),
	})
}

type batchApproveRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=200,dive,uuid4"`
}

func (h *Handler) BatchApproveRegistrations(c *fiber.Ctx) error {
	var req batchApproveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, "validation failed: "+err.Error())
	}

	ids, err := parseUUIDs(req.IDs)
	if err != nil {
		return badRequest(c, "invalid registration id in batch")
	}

	result := h.registrations.BatchApprove(c.Context(), actorID(c), ids, c.IP())
	return c.JSON(fiber.Map{
		"message":  "batch approval complete",
		"approved": len(result.Succeeded),
		"skipped":  len(result.Skipped),
		"result":   result,
	})
}

type batchRejectRequest struct {
	IDs    []string `json:"ids" validate:"required,min=1,max=200,dive,uuid4"`
	Reason string   `json:"reason" validate:"omitempty,min=3,max=500"`
}

func (h *Handler) BatchRejectRegistrations(c *fiber.Ctx) error {
	var req batchRejectRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, "validation failed: "+err.Error())
	}

	ids, err := parseUUIDs(req.IDs)
	if err != nil {
		return badRequest(c, "invalid registration id in batch")
	}

	result := h.registrations.BatchReject(c.Context(), actorID(c), ids, req.Reason, c.IP())
	return c.JSON(fiber.Map{
		"message":  "batch rejection complete",
		"rejected": len(result.Succeeded),
		"skipped":  len(result.Skipped),
		"result":   result,
	})
}

func (h *Handler) DeleteRegistration(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid registration id")
	}

	if err := h.registrations.Remove(c.Context(), actorID(c), id, c.IP()); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "registration deleted"})
}

type checkInRequest struct {
	QRID string `json:"qrId" validate:"required,startswith=SEB-"`
}

func (h *Handler) CheckInRegistration(c *fiber.Ctx) error {
	var req checkInRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, "validation failed: "+err.Error())
	}

	reg, err := h.registrations.CheckIn(c.Context(), actorID(c), req.QRID, c.IP())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message":      "checked in",
		"registration": toRegistrationResponse(reg),
	})
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
