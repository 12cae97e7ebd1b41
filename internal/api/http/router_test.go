package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-nfc/card-service/internal/api/http/handlers"
	"github.com/campus-nfc/card-service/internal/auth"
	"github.com/campus-nfc/card-service/internal/config"
	"github.com/campus-nfc/card-service/internal/domain"
	"github.com/campus-nfc/card-service/internal/events"
	"github.com/campus-nfc/card-service/internal/observability"
	"github.com/campus-nfc/card-service/internal/service"
	"github.com/campus-nfc/card-service/internal/storage"
)

const (
	adminID     = "a0000000-0000-0000-0000-000000000001"
	staffID     = "b0000000-0000-0000-0000-000000000002"
	csPendingID = "c0000000-0000-0000-0000-000000000003"
	eePendingID = "d0000000-0000-0000-0000-000000000004"
	brokenID    = "e0000000-0000-0000-0000-000000000005"
)

var errConnReset = errors.New("connection reset by peer")

// userStore is an in-memory UserRepository.
type userStore struct {
	mu      sync.Mutex
	users   map[string]domain.User
	broken  map[string]bool
	pingErr error
}

func newUserStore(users ...domain.User) *userStore {
	s := &userStore{users: map[string]domain.User{}, broken: map[string]bool{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *userStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = *user
	return nil
}

func (s *userStore) Update(_ context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if patch.State != nil {
		u.State = *patch.State
	}
	if patch.NFCID != nil {
		u.NFCID = patch.NFCID
	}
	if patch.CanApproveStudents != nil {
		u.CanApproveStudents = *patch.CanApproveStudents
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	s.users[id] = u
	return &u, nil
}

func (s *userStore) Delete(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	delete(s.users, id)
	return &u, nil
}

func (s *userStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken[id] {
		return nil, errConnReset
	}
	u, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (s *userStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return s.find(func(u domain.User) bool { return u.Email == email })
}

func (s *userStore) GetByCardNumber(_ context.Context, cardNumber string) (*domain.User, error) {
	return s.find(func(u domain.User) bool { return u.CardNumber == cardNumber })
}

func (s *userStore) find(match func(domain.User) bool) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *userStore) List(_ context.Context, filter domain.UserFilter) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.User
	for _, u := range s.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Department != nil && !domain.SameDepartment(u.Department, *filter.Department) {
			continue
		}
		if filter.State != nil && u.State != *filter.State {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *userStore) Count(ctx context.Context, filter domain.UserFilter) (int, error) {
	users, err := s.List(ctx, filter)
	return len(users), err
}

func (s *userStore) Ping(context.Context) error { return s.pingErr }

type departmentStore struct{}

func (departmentStore) Create(context.Context, *domain.Department) error { return nil }
func (departmentStore) Update(context.Context, *domain.Department) error { return nil }
// GetByID rejects malformed ids the way the uuid column does.
func (departmentStore) GetByID(_ context.Context, id string) (*domain.Department, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, &pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"}
	}
	return nil, pgx.ErrNoRows
}
func (departmentStore) List(context.Context, bool) ([]domain.Department, error) {
	return []domain.Department{{ID: "dep-1", Name: "CS", IsActive: true}}, nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type testServer struct {
	app    *fiber.App
	users  *userStore
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T, readiness map[string]handlers.Pinger) *testServer {
	t.Helper()

	users := newUserStore(
		domain.User{ID: adminID, FirstName: "Ada", Email: "admin@campus.test", CardNumber: "A-1", Role: domain.RoleAdmin, State: domain.StateActive},
		domain.User{ID: staffID, FirstName: "Sam", Email: "staff@campus.test", CardNumber: "S-1", Role: domain.RoleStaff, Department: "CS", State: domain.StateActive, CanApproveStudents: true},
		domain.User{ID: csPendingID, FirstName: "Ana", Email: "ana@campus.test", CardNumber: "C-1", Role: domain.RoleStudent, Department: "CS", State: domain.StatePending},
		domain.User{ID: eePendingID, FirstName: "Eli", Email: "eli@campus.test", CardNumber: "E-1", Role: domain.RoleStudent, Department: "EE", State: domain.StatePending},
	)

	cfg := config.Config{
		Auth:     config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: 4, MinPasswordLength: 6},
		Approval: config.ApprovalConfig{MaxParallel: 4},
		Storage:  config.StorageConfig{MaxPhotoBytes: 1 << 20},
	}
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	photos := storage.Disabled{}
	directory := service.NewDirectoryService(users, photos, logger)

	authService := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:       users,
		DepartmentRepo: departmentStore{},
		Photos:         photos,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
	})
	approvals := service.NewApprovalService(service.ApprovalDependencies{
		Directory:   directory,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
		MaxParallel: cfg.Approval.MaxParallel,
	})
	admin := service.NewAdminService(cfg, service.AdminDependencies{
		Directory:      directory,
		UserRepo:       users,
		DepartmentRepo: departmentStore{},
		Photos:         photos,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("card-service", "test", readiness),
		Auth:           handlers.NewAuthHandler(authService),
		Me:             handlers.NewMeHandler(service.NewCardService(photos, logger)),
		Staff:          handlers.NewStaffHandler(service.NewStaffService(directory), approvals),
		Admin:          handlers.NewAdminHandler(admin, approvals),
		Departments:    handlers.NewDepartmentHandler(admin),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), users, nil),
		Metrics:        metrics.Handler(),
	})
	return &testServer{app: app, users: users, tokens: authService.TokenManager()}
}

func (s *testServer) do(t *testing.T, method, path, userID, body string) (*nethttp.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		u, err := s.users.GetByID(context.Background(), userID)
		require.NoError(t, err)
		token, _, err := s.tokens.GenerateToken(u.ID, u.Role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload map[string]any
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &payload))
	}
	return resp, payload
}

func errorCode(payload map[string]any) string {
	errObj, _ := payload["error"].(map[string]any)
	code, _ := errObj["code"].(string)
	return code
}

func TestHealthProbes(t *testing.T) {
	srv := newTestServer(t, map[string]handlers.Pinger{"postgres": pinger{}, "redis": pinger{err: errConnReset}})

	resp, payload := srv.do(t, fiber.MethodGet, "/health/live", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "alive", payload["status"])

	resp, payload = srv.do(t, fiber.MethodGet, "/health/ready", "", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "BACKEND_UNAVAILABLE", errorCode(payload))
	details := payload["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "ok", details["postgres"])
	assert.Equal(t, errConnReset.Error(), details["redis"])
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, payload := srv.do(t, fiber.MethodGet, "/nope", "", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(payload))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, payload := srv.do(t, fiber.MethodGet, "/admin/users", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(payload))
}

func TestRoleGroups(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, payload := srv.do(t, fiber.MethodGet, "/staff/students", adminID, "")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(payload))

	resp, _ = srv.do(t, fiber.MethodGet, "/admin/users", staffID, "")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, payload = srv.do(t, fiber.MethodGet, "/staff/students", staffID, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	list := payload["data"].(map[string]any)
	assert.EqualValues(t, 1, list["total"])
}

func TestPendingUserSeesProfileButNoCard(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, payload := srv.do(t, fiber.MethodGet, "/me", csPendingID, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	me := payload["data"].(map[string]any)
	assert.Equal(t, "pending", me["state"])
	assert.Equal(t, false, me["is_approved"])

	resp, payload = srv.do(t, fiber.MethodGet, "/me/card", csPendingID, "")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(payload))
}

func TestLoginValidationDetails(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, payload := srv.do(t, fiber.MethodPost, "/auth/login", "", `{"card_number":""}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(payload))
	details := payload["error"].(map[string]any)["details"].(map[string]any)
	assert.Contains(t, details, "password")
}

func TestStaffBulkApproveRespectsDepartment(t *testing.T) {
	srv := newTestServer(t, nil)
	body := `{"user_ids":["` + csPendingID + `","` + eePendingID + `"],"transition":"Approve"}`

	resp, payload := srv.do(t, fiber.MethodPost, "/staff/students/transitions", staffID, body)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	result := payload["data"].(map[string]any)
	assert.Equal(t, "approve", result["transition"])
	assert.EqualValues(t, 2, result["requested"])
	assert.EqualValues(t, 1, result["succeeded"])
	assert.EqualValues(t, 1, result["failed"])
	assert.Equal(t, "1 succeeded, 1 failed", result["message"])
	failure := result["failures"].([]any)[0].(map[string]any)
	assert.Equal(t, eePendingID, failure["user_id"])
	assert.Equal(t, "OUT_OF_SCOPE", failure["reason"])

	approved, _ := srv.users.GetByID(context.Background(), csPendingID)
	assert.Equal(t, domain.StateApproved, approved.State)
	untouched, _ := srv.users.GetByID(context.Background(), eePendingID)
	assert.Equal(t, domain.StatePending, untouched.State)
}

func TestBulkTransitionEmptySelection(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, payload := srv.do(t, fiber.MethodPost, "/admin/users/transitions", adminID, `{"user_ids":[" ",""],"transition":"reject"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "NO_SELECTION", errorCode(payload))
}

func TestBulkTransitionUnknownTransition(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, payload := srv.do(t, fiber.MethodPost, "/admin/users/transitions", adminID, `{"user_ids":["`+csPendingID+`"],"transition":"promote"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(payload))
}

func TestBulkTransitionAllBackendFailures(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.users.users[brokenID] = domain.User{ID: brokenID, Role: domain.RoleStudent, State: domain.StatePending}
	srv.users.broken[brokenID] = true

	resp, payload := srv.do(t, fiber.MethodPost, "/admin/users/transitions", adminID, `{"user_ids":["`+brokenID+`"],"transition":"approve"}`)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "BACKEND_UNAVAILABLE", errorCode(payload))

	details := payload["error"].(map[string]any)["details"].(map[string]any)
	result := details["result"].(map[string]any)
	assert.EqualValues(t, 1, result["failed"])
	failure := result["failures"].([]any)[0].(map[string]any)
	assert.Equal(t, "BACKEND_ERROR", failure["reason"])
}

func TestBulkTransitionDirectoryDown(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.users.pingErr = errConnReset

	resp, payload := srv.do(t, fiber.MethodPost, "/admin/users/transitions", adminID, `{"user_ids":["`+csPendingID+`"],"transition":"approve"}`)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "BACKEND_UNAVAILABLE", errorCode(payload))

	pending, _ := srv.users.GetByID(context.Background(), csPendingID)
	assert.Equal(t, domain.StatePending, pending.State)
}

func TestAdminDepartmentLookupMalformedID(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, payload := srv.do(t, fiber.MethodGet, "/admin/departments/not-a-uuid", adminID, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(payload))

	resp, payload = srv.do(t, fiber.MethodPut, "/admin/departments/not-a-uuid", adminID, `{"name":"Physics"}`)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(payload))

	resp, payload = srv.do(t, fiber.MethodGet, "/admin/departments/"+uuid.NewString(), adminID, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(payload))
}

func TestPublicDepartmentsAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, payload := srv.do(t, fiber.MethodGet, "/departments", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, payload["data"], 1)

	resp, _ = srv.do(t, fiber.MethodGet, "/metrics", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
