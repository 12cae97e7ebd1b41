package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/campus-nfc/card-service/internal/api/dto"
	"github.com/campus-nfc/card-service/internal/auth"
	"github.com/campus-nfc/card-service/internal/domain"
	"github.com/campus-nfc/card-service/internal/service"
)

// AdminHandler exposes account and catalog management.
type AdminHandler struct {
	admin     *service.AdminService
	approvals *service.ApprovalService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(admin *service.AdminService, approvals *service.ApprovalService) *AdminHandler {
	return &AdminHandler{admin: admin, approvals: approvals}
}

// ListUsers handles GET /admin/users. The approvals screen passes state=pending.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	role, err := dto.ParseRole(c.Query("role"))
	if err != nil {
		return err
	}
	state, err := dto.ParseState(c.Query("state"))
	if err != nil {
		return err
	}
	page, err := dto.ParsePage(c.Query("page"), c.Query("page_size"))
	if err != nil {
		return err
	}
	filter := domain.UserFilter{
		Role:   role,
		State:  state,
		Search: strings.TrimSpace(c.Query("q")),
		Limit:  page.Size,
		Offset: page.Offset(),
	}
	if dept := strings.TrimSpace(c.Query("department")); dept != "" {
		filter.Department = &dept
	}

	users, total, err := h.admin.ListUsers(c.UserContext(), auth.ActorFromContext(c), filter)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserListResponse(users, total, page))
}

// GetUser handles GET /admin/users/:id.
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.admin.GetUser(c.UserContext(), auth.ActorFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserResponse(user))
}

// CreateUser handles POST /admin/users.
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	user, err := h.admin.CreateUser(c.UserContext(), auth.ActorFromContext(c), service.CreateUserInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		CardNumber:  req.CardNumber,
		Department:  req.Department,
		Role:        domain.Role(req.Role),
		Password:    req.Password,
		ImageBase64: req.ImageBase64,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewUserResponse(user))
}

// ApplyTransition handles POST /admin/users/transitions.
func (h *AdminHandler) ApplyTransition(c *fiber.Ctx) error {
	return applyBulkTransition(c, h.approvals)
}

// AssignNFC handles PUT /admin/users/:id/nfc.
func (h *AdminHandler) AssignNFC(c *fiber.Ctx) error {
	var req dto.AssignNFCRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	user, err := h.admin.AssignNFC(c.UserContext(), auth.ActorFromContext(c), c.Params("id"), req.NFCID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserResponse(user))
}

// SetApprovalPermission handles PUT /admin/staff/:id/approval-permission.
func (h *AdminHandler) SetApprovalPermission(c *fiber.Ctx) error {
	var req dto.ApprovalPermissionRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	user, err := h.admin.SetStaffApprovalPermission(c.UserContext(), auth.ActorFromContext(c), c.Params("id"), *req.Allowed)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserResponse(user))
}

// CreateDepartment handles POST /admin/departments.
func (h *AdminHandler) CreateDepartment(c *fiber.Ctx) error {
	var req dto.DepartmentRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	dept, err := h.admin.CreateDepartment(c.UserContext(), auth.ActorFromContext(c), req.Name, req.Description)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewDepartmentResponse(dept))
}

// ListDepartments handles GET /admin/departments.
func (h *AdminHandler) ListDepartments(c *fiber.Ctx) error {
	depts, err := h.admin.ListDepartments(c.UserContext(), auth.ActorFromContext(c), c.QueryBool("include_inactive", true))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewDepartmentList(depts))
}

// GetDepartment handles GET /admin/departments/:id.
func (h *AdminHandler) GetDepartment(c *fiber.Ctx) error {
	dept, err := h.admin.GetDepartment(c.UserContext(), auth.ActorFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewDepartmentResponse(dept))
}

// UpdateDepartment handles PUT /admin/departments/:id.
func (h *AdminHandler) UpdateDepartment(c *fiber.Ctx) error {
	var req dto.DepartmentUpdateRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	dept, err := h.admin.UpdateDepartment(c.UserContext(), auth.ActorFromContext(c), c.Params("id"), service.DepartmentPatch{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewDepartmentResponse(dept))
}
