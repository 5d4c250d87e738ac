package api

import (
	"saazebharat/internal/content"

	"github.com/gofiber/fiber/v2"
)

// GetContentSection serves the editable site text for one section. Public:
// the frontend renders landing-page copy from it.
func (h *Handler) GetContentSection(c *fiber.Ctx) error {
	entries, err := h.content.Section(c.Context(), c.Params("section"))
	if err != nil {
		return h.fail(c, err)
	}

	out := make([]contentResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toContentResponse(entry))
	}
	return c.JSON(fiber.Map{"data": out})
}

type contentEntryRequest struct {
	Key     string `json:"key" validate:"required,min=1,max=200"`
	Value   string `json:"value" validate:"required"`
	Section string `json:"section" validate:"required,min=1,max=100"`
}

type updateContentRequest struct {
	Entries []contentEntryRequest `json:"entries" validate:"required,min=1,max=100,dive"`
}

func (h *Handler) UpdateContent(c *fiber.Ctx) error {
	var req updateContentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, "validation failed: "+err.Error())
	}

	updates := make([]content.Update, 0, len(req.Entries))
	for _, entry := range req.Entries {
		updates = append(updates, content.Update{
			Key:     entry.Key,
			Value:   entry.Value,
			Section: entry.Section,
		})
	}

	if err := h.content.Apply(c.Context(), actorID(c), updates, c.IP()); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "content updated"})
}
