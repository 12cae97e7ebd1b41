package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/campus-nfc/card-service/internal/api/dto"
	"github.com/campus-nfc/card-service/internal/auth"
	"github.com/campus-nfc/card-service/internal/service"
)

// StaffHandler exposes the department-scoped staff endpoints.
type StaffHandler struct {
	staff     *service.StaffService
	approvals *service.ApprovalService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(staffService *service.StaffService, approvals *service.ApprovalService) *StaffHandler {
	return &StaffHandler{staff: staffService, approvals: approvals}
}

// ListStudents handles GET /staff/students.
func (h *StaffHandler) ListStudents(c *fiber.Ctx) error {
	state, err := dto.ParseState(c.Query("state"))
	if err != nil {
		return err
	}
	page, err := dto.ParsePage(c.Query("page"), c.Query("page_size"))
	if err != nil {
		return err
	}

	users, total, err := h.staff.ListStudents(c.UserContext(), auth.ActorFromContext(c), service.StudentListFilters{
		State:  state,
		Search: strings.TrimSpace(c.Query("q")),
		Limit:  page.Size,
		Offset: page.Offset(),
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserListResponse(users, total, page))
}

// ApplyTransition handles POST /staff/students/transitions.
func (h *StaffHandler) ApplyTransition(c *fiber.Ctx) error {
	return applyBulkTransition(c, h.approvals)
}
