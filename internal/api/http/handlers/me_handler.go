package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/campus-nfc/card-service/internal/api/dto"
	"github.com/campus-nfc/card-service/internal/service"
)

// MeHandler serves the caller's own profile and card.
type MeHandler struct {
	cards *service.CardService
}

// NewMeHandler constructs handler.
func NewMeHandler(cards *service.CardService) *MeHandler {
	return &MeHandler{cards: cards}
}

// Profile handles GET /me. Pending users use it to render the waiting view.
func (h *MeHandler) Profile(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserResponse(p.User))
}

// Card handles GET /me/card.
func (h *MeHandler) Card(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	view, err := h.cards.Card(p.User)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewCardResponse(view))
}

// Photo handles GET /me/photo.
func (h *MeHandler) Photo(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	rc, contentType, err := h.cards.Photo(c.UserContext(), p.User)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "private, max-age=300")
	return c.SendStream(rc)
}
