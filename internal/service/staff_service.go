package service

import (
	"context"
	"strings"

	"github.com/campus-nfc/card-service/internal/domain"
	apperrors "github.com/campus-nfc/card-service/pkg/util/errorutil"
)

// StaffService serves the department-scoped views used by staff members.
type StaffService struct {
	directory UserDirectory
}

// NewStaffService constructs the service.
func NewStaffService(directory UserDirectory) *StaffService {
	return &StaffService{directory: directory}
}

// StudentListFilters narrow the staff student listing.
type StudentListFilters struct {
	State  *domain.AccountState
	Search string
	Limit  int
	Offset int
}

func requireStaff(actor domain.Actor) error {
	if !actor.IsAuthenticated() {
		return apperrors.NewUnauthorized("authentication required")
	}
	if actor.Role != domain.RoleStaff || !actor.Usable {
		return apperrors.NewForbidden("staff role required")
	}
	return nil
}

// ListStudents returns students of the caller's own department.
func (s *StaffService) ListStudents(ctx context.Context, actor domain.Actor, filters StudentListFilters) ([]domain.User, int, error) {
	if err := requireStaff(actor); err != nil {
		return nil, 0, err
	}
	department := strings.TrimSpace(actor.Department)
	if department == "" {
		return []domain.User{}, 0, nil
	}
	role := domain.RoleStudent
	return s.directory.ListUsers(ctx, domain.UserFilter{
		Role:       &role,
		Department: &department,
		State:      filters.State,
		Search:     filters.Search,
		Limit:      filters.Limit,
		Offset:     filters.Offset,
	})
}
