package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/campus-nfc/card-service/internal/api/dto"
	"github.com/campus-nfc/card-service/internal/auth"
	"github.com/campus-nfc/card-service/internal/service"
	apperrors "github.com/campus-nfc/card-service/pkg/util/errorutil"
)

// HistoryHandler exposes the account audit trail.
type HistoryHandler struct {
	history *service.HistoryService
}

// NewHistoryHandler constructs handler.
func NewHistoryHandler(history *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// List handles GET /admin/users/:id/history.
func (h *HistoryHandler) List(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewNotFound("user", map[string]any{"id": id})
	}
	limit := c.QueryInt("limit", 100)
	if limit <= 0 || limit > 500 {
		return apperrors.NewValidationError("limit must be between 1 and 500", map[string]any{"field": "limit"})
	}
	entries, err := h.history.ListForUser(c.UserContext(), auth.ActorFromContext(c), id, limit)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewHistoryList(entries))
}
