package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-nfc/card-service/internal/auth"
	"github.com/campus-nfc/card-service/internal/config"
	"github.com/campus-nfc/card-service/internal/domain"
	"github.com/campus-nfc/card-service/internal/events"
	"github.com/campus-nfc/card-service/internal/repository"
	"github.com/campus-nfc/card-service/internal/storage"
	apperrors "github.com/campus-nfc/card-service/pkg/util/errorutil"
)

// AdminService manages accounts and the department catalog.
type AdminService struct {
	directory    UserDirectory
	users        repository.UserRepository
	departments  repository.DepartmentRepository
	photos       storage.ObjectStorage
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	bcryptCost   int
	minPassword  int
	maxPhotoSize int
}

// AdminDependencies encapsulates collaborators for account management.
type AdminDependencies struct {
	Directory      UserDirectory
	UserRepo       repository.UserRepository
	DepartmentRepo repository.DepartmentRepository
	Photos         storage.ObjectStorage
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewAdminService constructs the service.
func NewAdminService(cfg config.Config, deps AdminDependencies) *AdminService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		directory:    deps.Directory,
		users:        deps.UserRepo,
		departments:  deps.DepartmentRepo,
		photos:       deps.Photos,
		dispatcher:   deps.Dispatcher,
		logger:       logger,
		bcryptCost:   cfg.Auth.BcryptCost,
		minPassword:  cfg.Auth.MinPasswordLength,
		maxPhotoSize: cfg.Storage.MaxPhotoBytes,
	}
}

func requireAdmin(actor domain.Actor) error {
	if !actor.IsAuthenticated() {
		return apperrors.NewUnauthorized("authentication required")
	}
	if actor.Role != domain.RoleAdmin || !actor.Usable {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// ListUsers returns one page of the directory.
func (s *AdminService) ListUsers(ctx context.Context, actor domain.Actor, filter domain.UserFilter) ([]domain.User, int, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	return s.directory.ListUsers(ctx, filter)
}

// GetUser fetches a single user.
func (s *AdminService) GetUser(ctx context.Context, actor domain.Actor, id string) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.directory.GetUser(ctx, id)
}

// CreateUserInput is the add-user form.
type CreateUserInput struct {
	FirstName   string
	LastName    string
	Email       string
	CardNumber  string
	Department  string
	Role        domain.Role
	Password    string
	ImageBase64 string
}

// CreateUser adds a student or staff account that is usable immediately.
func (s *AdminService) CreateUser(ctx context.Context, actor domain.Actor, in CreateUserInput) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if in.Role != domain.RoleStudent && in.Role != domain.RoleStaff {
		return nil, apperrors.NewValidationError("role must be student or staff", map[string]any{"field": "role"})
	}
	if len(in.Password) < s.minPassword {
		return nil, apperrors.NewValidationError("password is too short", map[string]any{"field": "password", "min": s.minPassword})
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	cardNumber := strings.TrimSpace(in.CardNumber)
	department, err := resolveDepartment(ctx, s.departments, in.Department)
	if err != nil {
		return nil, err
	}
	if err := ensureUnused(ctx, s.users, email, cardNumber); err != nil {
		return nil, err
	}

	var imageKey *string
	if strings.TrimSpace(in.ImageBase64) != "" {
		photo, err := DecodePhoto(in.ImageBase64, s.maxPhotoSize)
		if err != nil {
			return nil, err
		}
		if key, err := storePhoto(ctx, s.photos, photo); err != nil {
			return nil, err
		} else if key != "" {
			imageKey = &key
		}
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		PasswordHash: hash,
		CardNumber:   cardNumber,
		ImageKey:     imageKey,
		Role:         in.Role,
		Department:   department,
		State:        domain.StateActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if imageKey != nil {
			_ = s.photos.Delete(ctx, *imageKey)
		}
		return nil, mapUserError(err)
	}

	s.publish(ctx, events.NewEvent(events.EventUserCreated, user.ID,
		events.Actor{UserID: actor.ID, Role: actor.Role},
		events.UserRegisteredPayload{
			Recipient:  events.RecipientOf(user),
			Role:       user.Role,
			Department: user.Department,
			CardNumber: user.CardNumber,
		}))
	s.logger.Info("user created by admin",
		zap.String("user_id", user.ID),
		zap.String("actor_id", actor.ID),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}

// AssignNFC binds a reader tag to an approved user.
func (s *AdminService) AssignNFC(ctx context.Context, actor domain.Actor, userID, nfcID string) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	nfcID = strings.TrimSpace(nfcID)
	if nfcID == "" {
		return nil, apperrors.NewValidationError("nfc id is required", map[string]any{"field": "nfc_id"})
	}

	user, err := s.directory.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsApproved() {
		return nil, apperrors.NewInvalidTransition("nfc can only be assigned to approved users", map[string]any{"state": user.State})
	}
	if user.NFCID != nil && *user.NFCID == nfcID {
		return user, nil
	}

	updated, err := s.directory.UpdateUser(ctx, userID, domain.UserPatch{NFCID: &nfcID})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewEvent(events.EventNFCAssigned, updated.ID,
		events.Actor{UserID: actor.ID, Role: actor.Role},
		events.NFCAssignedPayload{Recipient: events.RecipientOf(updated), NFCID: nfcID}))
	return updated, nil
}

// SetStaffApprovalPermission toggles whether a staff member may approve or
// reject students.
func (s *AdminService) SetStaffApprovalPermission(ctx context.Context, actor domain.Actor, staffID string, allowed bool) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	user, err := s.directory.GetUser(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleStaff {
		return nil, apperrors.NewValidationError("approval permission applies to staff only", map[string]any{"role": user.Role})
	}
	if user.CanApproveStudents == allowed {
		return user, nil
	}
	updated, err := s.directory.UpdateUser(ctx, staffID, domain.UserPatch{CanApproveStudents: &allowed})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewEvent(events.EventPermissionChanged, updated.ID,
		events.Actor{UserID: actor.ID, Role: actor.Role},
		events.PermissionChangedPayload{Allowed: allowed}))
	s.logger.Info("staff approval permission changed",
		zap.String("staff_id", staffID),
		zap.String("actor_id", actor.ID),
		zap.Bool("allowed", allowed),
	)
	return updated, nil
}

// CreateDepartment creates a new department.
func (s *AdminService) CreateDepartment(ctx context.Context, actor domain.Actor, name, description string) (*domain.Department, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	dept := &domain.Department{
		Name:        name,
		Description: strings.TrimSpace(description),
		IsActive:    true,
	}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, mapUserError(err)
	}
	return dept, nil
}

// ListDepartments returns the catalog. Inactive entries are admin-only.
func (s *AdminService) ListDepartments(ctx context.Context, actor domain.Actor, includeInactive bool) ([]domain.Department, error) {
	if includeInactive {
		if err := requireAdmin(actor); err != nil {
			return nil, err
		}
	}
	depts, err := s.departments.List(ctx, includeInactive)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return depts, nil
}

// GetDepartment fetches a department by id.
func (s *AdminService) GetDepartment(ctx context.Context, actor domain.Actor, id string) (*domain.Department, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFound("department", map[string]any{"id": id})
	}
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewNotFound("department", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}

// DepartmentPatch carries a partial department update.
type DepartmentPatch struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// UpdateDepartment applies patch to the department.
func (s *AdminService) UpdateDepartment(ctx context.Context, actor domain.Actor, id string, patch DepartmentPatch) (*domain.Department, error) {
	dept, err := s.GetDepartment(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name cannot be empty", map[string]any{"field": "name"})
		}
		dept.Name = name
	}
	if patch.Description != nil {
		dept.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.IsActive != nil {
		dept.IsActive = *patch.IsActive
	}
	if err := s.departments.Update(ctx, dept); err != nil {
		return nil, mapUserError(err)
	}
	return dept, nil
}

func (s *AdminService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("event", string(event.Type)), zap.String("user_id", event.UserID), zap.Error(err))
	}
}
