package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/campus-nfc/card-service/internal/api/dto"
	"github.com/campus-nfc/card-service/internal/auth"
	"github.com/campus-nfc/card-service/internal/domain"
	"github.com/campus-nfc/card-service/internal/service"
	apperrors "github.com/campus-nfc/card-service/pkg/util/errorutil"
)

// applyBulkTransition is shared by the staff and admin transition routes;
// scope differences live in the workflow.
func applyBulkTransition(c *fiber.Ctx, approvals *service.ApprovalService) error {
	var req dto.BulkTransitionRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	transition := domain.Transition(strings.ToLower(strings.TrimSpace(req.Transition)))

	result, err := approvals.ApplyBulkTransition(c.UserContext(), auth.ActorFromContext(c), req.UserIDs, transition)
	if err != nil {
		if errors.Is(err, apperrors.ErrBackendUnavailable) && result.Requested > 0 {
			return withResult(err, dto.NewBulkResultResponse(result))
		}
		return err
	}
	return data(c, http.StatusOK, dto.NewBulkResultResponse(result))
}

// withResult attaches the per-user outcome to a batch-level error.
func withResult(err error, result dto.BulkResultResponse) error {
	de := apperrors.ToDomainError(err)
	return &apperrors.DomainError{
		Code:       de.Code,
		Message:    de.Message,
		HTTPStatus: de.HTTPStatus,
		Details:    map[string]any{"result": result},
		Err:        de.Err,
	}
}
