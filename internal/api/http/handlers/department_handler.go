package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/campus-nfc/card-service/internal/api/dto"
	"github.com/campus-nfc/card-service/internal/domain"
	"github.com/campus-nfc/card-service/internal/service"
)

// DepartmentHandler serves the public department picker.
type DepartmentHandler struct {
	admin *service.AdminService
}

// NewDepartmentHandler constructs handler.
func NewDepartmentHandler(admin *service.AdminService) *DepartmentHandler {
	return &DepartmentHandler{admin: admin}
}

// List handles GET /departments.
func (h *DepartmentHandler) List(c *fiber.Ctx) error {
	depts, err := h.admin.ListDepartments(c.UserContext(), domain.Actor{}, false)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewDepartmentList(depts))
}
