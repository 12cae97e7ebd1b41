package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-nfc/card-service/internal/domain"
	"github.com/campus-nfc/card-service/internal/repository"
	"github.com/campus-nfc/card-service/internal/storage"
	apperrors "github.com/campus-nfc/card-service/pkg/util/errorutil"
)

// UserDirectory is the gateway to the user store used by the approval
// workflow and the admin/staff services.
type UserDirectory interface {
	ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, int, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// DirectoryService implements UserDirectory over Postgres. Deleting a user
// also removes the stored profile photo.
type DirectoryService struct {
	users  repository.UserRepository
	photos storage.ObjectStorage
	logger *zap.Logger
}

// NewDirectoryService builds the gateway. photos may be nil.
func NewDirectoryService(users repository.UserRepository, photos storage.ObjectStorage, logger *zap.Logger) *DirectoryService {
	return &DirectoryService{users: users, photos: photos, logger: logger}
}

// ListUsers returns one page of users plus the total match count.
func (d *DirectoryService) ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, int, error) {
	users, err := d.users.List(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	total, err := d.users.Count(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return users, total, nil
}

// GetUser fetches one user. Identifiers that are not UUIDs cannot exist and
// report NOT_FOUND without a query.
func (d *DirectoryService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
	}
	user, err := d.users.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// UpdateUser applies a partial update with a single statement.
func (d *DirectoryService) UpdateUser(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
	}
	if patch.State != nil && !patch.State.Valid() {
		return nil, apperrors.NewValidationError("state is not storable", map[string]any{"state": *patch.State})
	}
	user, err := d.users.Update(ctx, id, patch)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, mapUserError(err)
	}
	return user, nil
}

// DeleteUser removes the user record and, best effort, its photo.
func (d *DirectoryService) DeleteUser(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewNotFound("user", map[string]any{"id": id})
	}
	deleted, err := d.users.Delete(ctx, id)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	d.deletePhoto(ctx, deleted)
	return nil
}

// Ping checks that the store is reachable.
func (d *DirectoryService) Ping(ctx context.Context) error {
	if err := d.users.Ping(ctx); err != nil {
		return apperrors.NewBackendUnavailable(err)
	}
	return nil
}

func (d *DirectoryService) deletePhoto(ctx context.Context, user *domain.User) {
	if d.photos == nil || user == nil || user.ImageKey == nil || *user.ImageKey == "" {
		return
	}
	if err := d.photos.Delete(ctx, *user.ImageKey); err != nil && !errors.Is(err, storage.ErrDisabled) {
		d.logger.Warn("delete profile photo",
			zap.String("user_id", user.ID),
			zap.String("key", *user.ImageKey),
			zap.Error(err),
		)
	}
}
