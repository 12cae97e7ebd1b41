package service

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-nfc/card-service/internal/auth"
	"github.com/campus-nfc/card-service/internal/config"
	"github.com/campus-nfc/card-service/internal/domain"
	"github.com/campus-nfc/card-service/internal/events"
	"github.com/campus-nfc/card-service/internal/ratelimit"
	apperrors "github.com/campus-nfc/card-service/pkg/util/errorutil"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type authFixture struct {
	svc         *AuthService
	users       *mockUserRepo
	departments *mockDepartmentRepo
	resets      *mockResetRepo
	revocations *memoryRevocations
	photos      *memoryStorage
	dispatcher  *recordingDispatcher
}

func testConfig() config.Config {
	return config.Config{
		App: config.AppConfig{Name: "Campus Card"},
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   60,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              bcrypt.MinCost,
			MinPasswordLength:       6,
		},
		Storage: config.StorageConfig{MaxPhotoBytes: 1 << 20},
	}
}

func newAuthFixture(t *testing.T, limiter *ratelimit.Limiter) *authFixture {
	t.Helper()
	f := &authFixture{
		users:       &mockUserRepo{},
		departments: &mockDepartmentRepo{},
		resets:      &mockResetRepo{},
		revocations: &memoryRevocations{},
		photos:      newMemoryStorage(),
		dispatcher:  &recordingDispatcher{},
	}
	f.svc = NewAuthService(testConfig(), AuthDependencies{
		UserRepo:          f.users,
		DepartmentRepo:    f.departments,
		PasswordResetRepo: f.resets,
		Revocations:       f.revocations,
		LoginLimiter:      limiter,
		Photos:            f.photos,
		Dispatcher:        f.dispatcher,
		Logger:            zap.NewNop(),
	})
	return f
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func validRegistration() RegisterInput {
	return RegisterInput{
		FirstName:       "Ana",
		LastName:        "Lima",
		Email:           " Ana@Campus.test ",
		CardNumber:      "C-1001",
		Department:      "computer science",
		Role:            domain.RoleStudent,
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}
}

func TestRegisterCreatesPendingUser(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.users.On("GetByCardNumber", mock.Anything, "C-1001").Return(nil, pgx.ErrNoRows)
	f.users.On("GetByEmail", mock.Anything, "ana@campus.test").Return(nil, pgx.ErrNoRows)
	f.departments.On("List", mock.Anything, false).Return([]domain.Department{{Name: "Computer Science", IsActive: true}}, nil)
	f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.State == domain.StatePending && u.Department == "Computer Science" &&
			u.Email == "ana@campus.test" && u.ImageKey != nil && u.PasswordHash != "secret1"
	})).Return(nil)

	in := validRegistration()
	in.ImageBase64 = "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader)

	session, err := f.svc.Register(context.Background(), in)
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.Equal(t, domain.RoleStudent, session.Token.Role)

	claims, err := f.svc.TokenManager().ParseToken(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.Subject)

	require.Len(t, f.photos.objects, 1)
	require.Len(t, f.dispatcher.events, 1)
	assert.Equal(t, events.EventUserRegistered, f.dispatcher.events[0].Type)
	f.users.AssertExpectations(t)
}

func TestRegisterValidation(t *testing.T) {
	cases := map[string]func(*RegisterInput){
		"admin role":     func(in *RegisterInput) { in.Role = domain.RoleAdmin },
		"short password": func(in *RegisterInput) { in.Password, in.ConfirmPassword = "abc", "abc" },
		"mismatch":       func(in *RegisterInput) { in.ConfirmPassword = "other12" },
		"no department":  func(in *RegisterInput) { in.Department = "  " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newAuthFixture(t, nil)
			in := validRegistration()
			mutate(&in)
			_, err := f.svc.Register(context.Background(), in)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestRegisterRejectsUnknownDepartment(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.departments.On("List", mock.Anything, false).Return([]domain.Department{{Name: "Physics", IsActive: true}}, nil)

	_, err := f.svc.Register(context.Background(), validRegistration())
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRegisterDuplicateCardNumber(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.departments.On("List", mock.Anything, false).Return(nil, nil)
	f.users.On("GetByCardNumber", mock.Anything, "C-1001").Return(&domain.User{ID: "other"}, nil)

	_, err := f.svc.Register(context.Background(), validRegistration())
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, "card number already registered", apperrors.ToDomainError(err).Message)
}

func TestRegisterRaceMapsUniqueViolation(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.departments.On("List", mock.Anything, false).Return(nil, nil)
	f.users.On("GetByCardNumber", mock.Anything, "C-1001").Return(nil, pgx.ErrNoRows)
	f.users.On("GetByEmail", mock.Anything, "ana@campus.test").Return(nil, pgx.ErrNoRows)
	f.users.On("Create", mock.Anything, mock.Anything).
		Return(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_lower_key"})

	_, err := f.svc.Register(context.Background(), validRegistration())
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, "email already registered", apperrors.ToDomainError(err).Message)
	assert.Empty(t, f.dispatcher.events)
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t, nil)
	user := &domain.User{ID: "u-1", Role: domain.RoleStudent, State: domain.StatePending, PasswordHash: hashed(t, "secret1")}
	f.users.On("GetByCardNumber", mock.Anything, "C-1001").Return(user, nil)
	f.users.On("GetByCardNumber", mock.Anything, "C-404").Return(nil, pgx.ErrNoRows)

	session, err := f.svc.Login(context.Background(), " C-1001 ", "secret1", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", session.Token.UserID)

	_, err = f.svc.Login(context.Background(), "C-1001", "wrong", "10.0.0.1")
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Equal(t, "invalid card number or password", apperrors.ToDomainError(err).Message)

	_, err = f.svc.Login(context.Background(), "C-404", "secret1", "10.0.0.1")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestLoginRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newAuthFixture(t, ratelimit.New(client, "login:", 2, time.Minute))
	f.users.On("GetByCardNumber", mock.Anything, "C-1001").
		Return(&domain.User{ID: "u-1", PasswordHash: hashed(t, "secret1")}, nil)

	for i := 0; i < 2; i++ {
		_, err := f.svc.Login(context.Background(), "C-1001", "wrong", "10.0.0.1")
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	}
	_, err := f.svc.Login(context.Background(), "C-1001", "secret1", "10.0.0.1")
	require.ErrorIs(t, err, apperrors.ErrRateLimited)
	assert.Greater(t, apperrors.ToDomainError(err).Details["retry_after_seconds"], 0)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newAuthFixture(t, nil)
	token := domain.Token{ID: "jti-1", ExpiresAt: time.Now().Add(time.Hour)}

	require.NoError(t, f.svc.Logout(context.Background(), token))
	revoked, err := f.revocations.IsRevoked(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRequestPasswordReset(t *testing.T) {
	f := newAuthFixture(t, nil)
	user := &domain.User{ID: "u-1", Email: "ana@campus.test", FirstName: "Ana"}
	f.users.On("GetByCardNumber", mock.Anything, "C-404").Return(nil, pgx.ErrNoRows)
	f.users.On("GetByCardNumber", mock.Anything, "C-1001").Return(user, nil)
	f.resets.On("Create", mock.Anything, mock.MatchedBy(func(tok *domain.PasswordResetToken) bool {
		return tok.UserID == "u-1" && tok.Token != "" && tok.ExpiresAt.After(time.Now())
	})).Return(nil).Once()

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "C-404"))
	assert.Empty(t, f.dispatcher.events)

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "C-1001"))
	require.Len(t, f.dispatcher.events, 1)
	payload, ok := f.dispatcher.events[0].Payload.(events.PasswordResetRequestedPayload)
	require.True(t, ok)
	assert.Equal(t, "ana@campus.test", payload.Recipient.Email)
	assert.NotEmpty(t, payload.Token)
	f.resets.AssertExpectations(t)
}

func TestConfirmPasswordReset(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.resets.On("GetByToken", mock.Anything, "expired").
		Return(&domain.PasswordResetToken{ID: "r-1", UserID: "u-1", ExpiresAt: time.Now().Add(-time.Minute)}, nil)
	f.resets.On("GetByToken", mock.Anything, "missing").Return(nil, pgx.ErrNoRows)
	f.resets.On("GetByToken", mock.Anything, "good").
		Return(&domain.PasswordResetToken{ID: "r-2", UserID: "u-1", ExpiresAt: time.Now().Add(time.Minute)}, nil)
	f.resets.On("MarkUsed", mock.Anything, "r-2").Return(nil).Once()
	f.users.On("Update", mock.Anything, "u-1", mock.MatchedBy(func(p domain.UserPatch) bool {
		return p.PasswordHash != nil && auth.ComparePassword(*p.PasswordHash, "newpass1") == nil
	})).Return(&domain.User{ID: "u-1", Email: "ana@campus.test"}, nil).Once()

	assert.ErrorIs(t, f.svc.ConfirmPasswordReset(context.Background(), "expired", "newpass1"), apperrors.ErrValidation)
	assert.ErrorIs(t, f.svc.ConfirmPasswordReset(context.Background(), "missing", "newpass1"), apperrors.ErrValidation)
	assert.ErrorIs(t, f.svc.ConfirmPasswordReset(context.Background(), "good", "abc"), apperrors.ErrValidation)

	require.NoError(t, f.svc.ConfirmPasswordReset(context.Background(), "good", "newpass1"))
	require.Len(t, f.dispatcher.events, 1)
	assert.Equal(t, events.EventPasswordChanged, f.dispatcher.events[0].Type)
	f.resets.AssertExpectations(t)
	f.users.AssertExpectations(t)
}

func TestConfirmPasswordResetKeepsTokenWhenUpdateFails(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.resets.On("GetByToken", mock.Anything, "good").
		Return(&domain.PasswordResetToken{ID: "r-3", UserID: "u-1", ExpiresAt: time.Now().Add(time.Minute)}, nil)
	f.users.On("Update", mock.Anything, "u-1", mock.Anything).Return(nil, errors.New("connection reset")).Once()

	err := f.svc.ConfirmPasswordReset(context.Background(), "good", "newpass1")
	require.Error(t, err)
	f.resets.AssertNotCalled(t, "MarkUsed", mock.Anything, mock.Anything)
	assert.Empty(t, f.dispatcher.events)
}

func TestChangePassword(t *testing.T) {
	f := newAuthFixture(t, nil)
	user := &domain.User{ID: "u-1", PasswordHash: hashed(t, "secret1")}
	f.users.On("GetByID", mock.Anything, "u-1").Return(user, nil)
	f.users.On("Update", mock.Anything, "u-1", mock.Anything).Return(user, nil).Once()

	err := f.svc.ChangePassword(context.Background(), "u-1", "wrong", "newpass1")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	require.NoError(t, f.svc.ChangePassword(context.Background(), "u-1", "secret1", "newpass1"))
	f.users.AssertExpectations(t)
}

func TestDecodePhoto(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(pngHeader)

	p, err := DecodePhoto(encoded, 0)
	require.NoError(t, err)
	assert.Equal(t, "image/png", p.ContentType)

	_, err = DecodePhoto(encoded, 4)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = DecodePhoto("!!not-base64!!", 0)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = DecodePhoto(base64.StdEncoding.EncodeToString([]byte("plain text body")), 0)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
