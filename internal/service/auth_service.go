package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-nfc/card-service/internal/auth"
	"github.com/campus-nfc/card-service/internal/config"
	"github.com/campus-nfc/card-service/internal/domain"
	"github.com/campus-nfc/card-service/internal/events"
	"github.com/campus-nfc/card-service/internal/observability"
	"github.com/campus-nfc/card-service/internal/ratelimit"
	"github.com/campus-nfc/card-service/internal/repository"
	"github.com/campus-nfc/card-service/internal/storage"
	apperrors "github.com/campus-nfc/card-service/pkg/util/errorutil"
)

const invalidCredentials = "invalid card number or password"

// AuthService coordinates registration, login and password flows.
type AuthService struct {
	users        repository.UserRepository
	departments  repository.DepartmentRepository
	resets       repository.PasswordResetRepository
	revocations  auth.RevocationStore
	limiter      *ratelimit.Limiter
	photos       storage.ObjectStorage
	dispatcher   events.Dispatcher
	metrics      *observability.Metrics
	logger       *zap.Logger
	tokenMgr     *auth.TokenManager
	bcryptCost   int
	resetTTL     time.Duration
	minPassword  int
	maxPhotoSize int
	now          func() time.Time
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	DepartmentRepo    repository.DepartmentRepository
	PasswordResetRepo repository.PasswordResetRepository
	Revocations       auth.RevocationStore
	LoginLimiter      *ratelimit.Limiter
	Photos            storage.ObjectStorage
	Dispatcher        events.Dispatcher
	Metrics           *observability.Metrics
	Logger            *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:        deps.UserRepo,
		departments:  deps.DepartmentRepo,
		resets:       deps.PasswordResetRepo,
		revocations:  deps.Revocations,
		limiter:      deps.LoginLimiter,
		photos:       deps.Photos,
		dispatcher:   deps.Dispatcher,
		metrics:      deps.Metrics,
		logger:       logger,
		tokenMgr:     auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost:   cfg.Auth.BcryptCost,
		resetTTL:     time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
		minPassword:  cfg.Auth.MinPasswordLength,
		maxPhotoSize: cfg.Storage.MaxPhotoBytes,
		now:          time.Now,
	}
}

// Session is an authenticated user plus the bearer token issued for it.
type Session struct {
	User        *domain.User
	AccessToken string
	Token       domain.Token
}

// RegisterInput is the self-service signup form.
type RegisterInput struct {
	FirstName       string
	LastName        string
	Email           string
	CardNumber      string
	Department      string
	Role            domain.Role
	Password        string
	ConfirmPassword string
	ImageBase64     string
}

// Register creates a pending student or staff account and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.CardNumber = strings.TrimSpace(in.CardNumber)
	in.Department = strings.TrimSpace(in.Department)

	if in.Role != domain.RoleStudent && in.Role != domain.RoleStaff {
		return nil, apperrors.NewValidationError("role must be student or staff", map[string]any{"field": "role"})
	}
	if err := s.checkPassword(in.Password, in.ConfirmPassword); err != nil {
		return nil, err
	}
	department, err := resolveDepartment(ctx, s.departments, in.Department)
	if err != nil {
		return nil, err
	}
	if err := ensureUnused(ctx, s.users, in.Email, in.CardNumber); err != nil {
		return nil, err
	}

	var imageKey *string
	if strings.TrimSpace(in.ImageBase64) != "" {
		photo, err := DecodePhoto(in.ImageBase64, s.maxPhotoSize)
		if err != nil {
			return nil, err
		}
		key, err := storePhoto(ctx, s.photos, photo)
		if err != nil {
			return nil, err
		}
		if key != "" {
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
		Email:        in.Email,
		PasswordHash: hash,
		CardNumber:   in.CardNumber,
		ImageKey:     imageKey,
		Role:         in.Role,
		Department:   department,
		State:        domain.StatePending,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if imageKey != nil {
			_ = s.photos.Delete(ctx, *imageKey)
		}
		return nil, mapUserError(err)
	}

	s.publish(ctx, events.NewEvent(events.EventUserRegistered, user.ID,
		events.Actor{UserID: user.ID, Role: user.Role},
		events.UserRegisteredPayload{
			Recipient:  events.RecipientOf(user),
			Role:       user.Role,
			Department: user.Department,
			CardNumber: user.CardNumber,
		}))
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))

	return s.issue(user)
}

// Login authenticates by card number. Pending and approved users may sign in;
// routes that need a usable account check the state themselves.
func (s *AuthService) Login(ctx context.Context, cardNumber, password, clientIP string) (*Session, error) {
	cardNumber = strings.TrimSpace(cardNumber)
	cardKey := "card:" + cardNumber

	if err := s.checkLoginRate(ctx, cardKey, "ip:"+clientIP); err != nil {
		return nil, err
	}

	user, err := s.users.GetByCardNumber(ctx, cardNumber)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewUnauthorized(invalidCredentials)
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized(invalidCredentials)
	}

	if err := s.limiter.Reset(ctx, cardKey); err != nil {
		s.logger.Warn("reset login limiter", zap.Error(err))
	}
	return s.issue(user)
}

func (s *AuthService) checkLoginRate(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		decision, err := s.limiter.Allow(ctx, key)
		if err != nil {
			s.logger.Warn("login rate limiter unavailable", zap.Error(err))
			continue
		}
		if !decision.Allowed {
			s.metrics.RecordLoginRateLimited()
			retry := int(decision.RetryAfter.Round(time.Second) / time.Second)
			if retry < 1 {
				retry = 1
			}
			return apperrors.NewRateLimited("too many login attempts, try again later", retry)
		}
	}
	return nil
}

// Logout revokes the presented token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, token domain.Token) error {
	if s.revocations == nil || token.ID == "" {
		return nil
	}
	if err := s.revocations.Revoke(ctx, token.ID, token.ExpiresAt); err != nil {
		return apperrors.NewInternalError(fmt.Errorf("revoke token: %w", err))
	}
	return nil
}

// RequestPasswordReset issues a reset token for the card holder and queues
// the reset email. Unknown card numbers succeed silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, cardNumber string) error {
	user, err := s.users.GetByCardNumber(ctx, strings.TrimSpace(cardNumber))
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil
		}
		return apperrors.MapError(err)
	}

	token := &domain.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return apperrors.MapError(err)
	}

	s.publish(ctx, events.NewEvent(events.EventPasswordResetRequested, user.ID,
		events.Actor{UserID: user.ID, Role: user.Role},
		events.PasswordResetRequestedPayload{
			Recipient: events.RecipientOf(user),
			Token:     token.Token,
			ExpiresAt: token.ExpiresAt,
		}))
	return nil
}

// ConfirmPasswordReset redeems a reset token and sets the new password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	if err := s.checkPassword(newPassword, newPassword); err != nil {
		return err
	}

	invalid := apperrors.NewValidationError("reset token is invalid or expired", map[string]any{"field": "token"})
	token, err := s.resets.GetByToken(ctx, strings.TrimSpace(tokenStr))
	if err != nil {
		if apperrors.IsNoRows(err) {
			return invalid
		}
		return apperrors.MapError(err)
	}
	if !token.Redeemable(s.now()) {
		return invalid
	}
	// The token is only spent once the new hash is stored.
	if err := s.setPassword(ctx, token.UserID, newPassword); err != nil {
		return err
	}
	if err := s.resets.MarkUsed(ctx, token.ID); err != nil {
		s.logger.Error("mark reset token used", zap.String("token_id", token.ID), zap.String("user_id", token.UserID), zap.Error(err))
	}
	return nil
}

// ChangePassword verifies the current password before replacing it.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return apperrors.NewUnauthorized("authentication required")
		}
		return apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewValidationError("current password is incorrect", map[string]any{"field": "current_password"})
	}
	if err := s.checkPassword(newPassword, newPassword); err != nil {
		return err
	}
	return s.setPassword(ctx, user.ID, newPassword)
}

func (s *AuthService) setPassword(ctx context.Context, userID, password string) error {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user, err := s.users.Update(ctx, userID, domain.UserPatch{PasswordHash: &hash})
	if err != nil {
		if apperrors.IsNoRows(err) {
			return apperrors.NewNotFound("user", map[string]any{"id": userID})
		}
		return apperrors.MapError(err)
	}
	s.publish(ctx, events.NewEvent(events.EventPasswordChanged, user.ID,
		events.Actor{UserID: user.ID, Role: user.Role},
		events.PasswordChangedPayload{Recipient: events.RecipientOf(user)}))
	return nil
}

func (s *AuthService) checkPassword(password, confirm string) error {
	if len(password) < s.minPassword {
		return apperrors.NewValidationError(
			fmt.Sprintf("password must be at least %d characters", s.minPassword),
			map[string]any{"field": "password"},
		)
	}
	if password != confirm {
		return apperrors.NewValidationError("passwords do not match", map[string]any{"field": "confirm_password"})
	}
	return nil
}

func (s *AuthService) issue(user *domain.User) (*Session, error) {
	signed, token, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{User: user, AccessToken: signed, Token: token}, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("publish event", zap.String("event", string(event.Type)), zap.String("user_id", event.UserID), zap.Error(err))
	}
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
