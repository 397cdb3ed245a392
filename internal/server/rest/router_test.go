package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/webtoz/internal/logging"
	"github.com/dmitrijs2005/webtoz/internal/server/auth"
	"github.com/dmitrijs2005/webtoz/internal/server/models"
	"github.com/dmitrijs2005/webtoz/internal/server/repositories/users"
	"github.com/dmitrijs2005/webtoz/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- helpers ---

type testEnv struct {
	handler http.Handler
	repo    *users.MemoryRepository
	auth    *services.AuthService
	tokens  *auth.TokenService
}

type nopNotifier struct{ token string }

func (n *nopNotifier) NotifyPasswordReset(_ context.Context, _ *models.User, token string) error {
	n.token = token
	return nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := users.NewMemoryRepository()
	tokens := auth.NewTokenService([]byte("test-secret"), time.Hour)
	as := services.NewAuthService(repo, tokens, auth.NewBcryptHasher(bcrypt.MinCost), &nopNotifier{}, logging.Nop(), 10*time.Minute)
	us := services.NewUserService(repo, logging.Nop())

	h := NewRouter(RouterOptions{
		Auth:        as,
		Users:       us,
		Store:       repo,
		Logger:      logging.Nop(),
		CORSOrigin:  "http://localhost:3000",
		Environment: "test",
	})
	return &testEnv{handler: h, repo: repo, auth: as, tokens: tokens}
}

type testResponse struct {
	Code    int
	Header  http.Header
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) testResponse {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	out := testResponse{Code: rec.Code, Header: rec.Header()}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type sessionPayload struct {
	User  map[string]any `json:"user"`
	Token string         `json:"token"`
}

func decodeData[T any](t *testing.T, r testResponse) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(r.Data, &v))
	return v
}

func (e *testEnv) registerUser(t *testing.T, name, email string) sessionPayload {
	t.Helper()
	res := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "Abc123",
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Error)
	return decodeData[sessionPayload](t, res)
}

func (e *testEnv) adminToken(t *testing.T) (string, string) {
	t.Helper()
	_, err := e.auth.EnsureAdmin(context.Background(), "Admin User", "admin@x.com", "Admin123")
	require.NoError(t, err)
	res := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "admin@x.com", "password": "Admin123"})
	require.Equal(t, http.StatusOK, res.Code)
	s := decodeData[sessionPayload](t, res)
	return s.Token, s.User["id"].(string)
}

// --- auth endpoints ---

func TestRegisterThenMe(t *testing.T) {
	env := newTestEnv(t)

	s := env.registerUser(t, "Ann", "ann@x.com")
	require.NotEmpty(t, s.Token)
	assert.NotContains(t, s.User, "password")
	assert.NotContains(t, s.User, "passwordHash")

	res := env.do(t, http.MethodGet, "/api/auth/me", s.Token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.True(t, res.Success)

	me := decodeData[struct {
		User map[string]any `json:"user"`
	}](t, res)
	assert.Equal(t, "user", me.User["role"])
	assert.Equal(t, false, me.User["isEmailVerified"])
	assert.Equal(t, "ann@x.com", me.User["email"])
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "A", "email": "not-an-email", "password": "abcdef",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.False(t, res.Success)
	assert.Equal(t,
		"Name must be between 2 and 50 characters, Please provide a valid email, "+
			"Password must contain at least one lowercase letter, one uppercase letter, and one number",
		res.Error)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "Ann", "ann@x.com")

	res := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ann Two", "email": "ANN@x.com", "password": "Abc123",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "User already exists with this email", res.Error)
}

func TestRegister_BadBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Invalid request body"}`, rec.Body.String())
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	reg := env.registerUser(t, "Ann", "ann@x.com")

	res := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@x.com", "password": "Abc123"})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "Login successful", res.Message)

	s := decodeData[sessionPayload](t, res)
	id, err := env.tokens.Verify(s.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User["id"], id.UserID)
	assert.Equal(t, models.RoleUser, id.Role)

	res = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@x.com", "password": "Wrong1"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "Invalid credentials", res.Error)
}

func TestDeactivatedUser(t *testing.T) {
	env := newTestEnv(t)
	reg := env.registerUser(t, "Ann", "ann@x.com")

	u, err := env.repo.GetByEmail(context.Background(), "ann@x.com")
	require.NoError(t, err)
	inactive := false
	_, err = env.repo.Update(context.Background(), u.ID, users.Changes{IsActive: &inactive})
	require.NoError(t, err)

	res := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@x.com", "password": "Abc123"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "Account is deactivated", res.Error)

	res = env.do(t, http.MethodGet, "/api/auth/me", reg.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "User account is deactivated", res.Error)
}

func TestAuthenticate_Failures(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "Not authorized to access this route", res.Error)

	res = env.do(t, http.MethodGet, "/api/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "Not authorized to access this route", res.Error)

	expired := auth.NewTokenService([]byte("test-secret"), time.Hour,
		auth.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }))
	reg := env.registerUser(t, "Ann", "ann@x.com")
	stale, err := expired.Issue(reg.User["id"].(string), "ann@x.com", models.RoleUser)
	require.NoError(t, err)
	res = env.do(t, http.MethodGet, "/api/auth/me", stale, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	ghost, err := env.tokens.Issue("6e2f8a3c-0000-4000-8000-000000000000", "ghost@x.com", models.RoleUser)
	require.NoError(t, err)
	res = env.do(t, http.MethodGet, "/api/auth/me", ghost, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "No user found with this token", res.Error)
}

func TestLogout_TokenStaysValid(t *testing.T) {
	env := newTestEnv(t)
	reg := env.registerUser(t, "Ann", "ann@x.com")

	res := env.do(t, http.MethodPost, "/api/auth/logout", reg.Token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "Logout successful", res.Message)

	res = env.do(t, http.MethodGet, "/api/auth/me", reg.Token, nil)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	reg := env.registerUser(t, "Ann", "ann@x.com")

	res := env.do(t, http.MethodPut, "/api/auth/profile", reg.Token, map[string]any{
		"name": "Annie", "avatar": "https://cdn.example.com/a.png", "role": "admin",
	})
	require.Equal(t, http.StatusOK, res.Code, res.Error)

	u, err := env.repo.GetByEmail(context.Background(), "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Annie", u.Name)
	assert.Equal(t, models.RoleUser, u.Role)

	res = env.do(t, http.MethodPut, "/api/auth/profile", reg.Token, map[string]any{"avatar": "not a url"})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Avatar must be a valid URL", res.Error)

	res = env.do(t, http.MethodPut, "/api/auth/profile", reg.Token, map[string]any{"avatar": ""})
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	reg := env.registerUser(t, "Ann", "ann@x.com")

	res := env.do(t, http.MethodPut, "/api/auth/change-password", reg.Token, map[string]string{
		"currentPassword": "Nope12", "newPassword": "Xyz789",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Current password is incorrect", res.Error)

	res = env.do(t, http.MethodPut, "/api/auth/change-password", reg.Token, map[string]string{
		"currentPassword": "Abc123", "newPassword": "Xyz789",
	})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "Password changed successfully", res.Message)

	res = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@x.com", "password": "Xyz789"})
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestForgotAndResetPassword(t *testing.T) {
	repo := users.NewMemoryRepository()
	tokens := auth.NewTokenService([]byte("test-secret"), time.Hour)
	notifier := &nopNotifier{}
	as := services.NewAuthService(repo, tokens, auth.NewBcryptHasher(bcrypt.MinCost), notifier, logging.Nop(), 10*time.Minute)
	env := &testEnv{
		handler: NewRouter(RouterOptions{Auth: as, Users: services.NewUserService(repo, logging.Nop()), Store: repo, Logger: logging.Nop()}),
		repo:    repo,
		auth:    as,
		tokens:  tokens,
	}
	env.registerUser(t, "Ann", "ann@x.com")

	unknown := env.do(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "ghost@x.com"})
	known := env.do(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "ann@x.com"})
	require.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, unknown.Code, known.Code)
	assert.Equal(t, unknown.Message, known.Message)
	require.NotEmpty(t, notifier.token)

	res := env.do(t, http.MethodPut, "/api/auth/reset-password/"+notifier.token, "", map[string]string{"password": "New123"})
	require.Equal(t, http.StatusOK, res.Code, res.Error)
	assert.NotEmpty(t, decodeData[sessionPayload](t, res).Token)

	res = env.do(t, http.MethodPut, "/api/auth/reset-password/"+notifier.token, "", map[string]string{"password": "New123"})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Invalid or expired reset token", res.Error)
}

func TestAvatarRoute_DisabledWithoutBucket(t *testing.T) {
	env := newTestEnv(t)
	reg := env.registerUser(t, "Ann", "ann@x.com")

	res := env.do(t, http.MethodPost, "/api/auth/avatar", reg.Token, map[string]string{"contentType": "image/png"})
	assert.Equal(t, http.StatusNotFound, res.Code)
}

// --- users endpoints ---

func TestUsers_RoleGate(t *testing.T) {
	env := newTestEnv(t)
	reg := env.registerUser(t, "Ann", "ann@x.com")
	adminTok, _ := env.adminToken(t)

	for _, path := range []string{"/api/users", "/api/users/stats"} {
		res := env.do(t, http.MethodGet, path, reg.Token, nil)
		assert.Equal(t, http.StatusForbidden, res.Code, path)
		assert.Equal(t, "User role 'user' is not authorized to access this route", res.Error)

		res = env.do(t, http.MethodGet, path, adminTok, nil)
		assert.Equal(t, http.StatusOK, res.Code, path)
	}

	res := env.do(t, http.MethodDelete, "/api/users/"+reg.User["id"].(string), reg.Token, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestUsers_List(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "Ann", "ann@x.com")
	env.registerUser(t, "Bob", "bob@x.com")
	adminTok, _ := env.adminToken(t)

	res := env.do(t, http.MethodGet, "/api/users?limit=2&page=1", adminTok, nil)
	require.Equal(t, http.StatusOK, res.Code)

	data := decodeData[struct {
		Users      []map[string]any `json:"users"`
		Pagination struct {
			Page, Limit, Pages int
			Total              int64
		} `json:"pagination"`
	}](t, res)
	assert.Len(t, data.Users, 2)
	assert.Equal(t, 1, data.Pagination.Page)
	assert.Equal(t, 2, data.Pagination.Limit)
	assert.EqualValues(t, 3, data.Pagination.Total)
	assert.Equal(t, 2, data.Pagination.Pages)

	res = env.do(t, http.MethodGet, "/api/users?role=admin", adminTok, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, string(res.Data), `"total":1`)

	res = env.do(t, http.MethodGet, "/api/users?search=bob", adminTok, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, string(res.Data), "bob@x.com")
	assert.NotContains(t, string(res.Data), "ann@x.com")

	res = env.do(t, http.MethodGet, "/api/users?role=root", adminTok, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = env.do(t, http.MethodGet, "/api/users?isActive=false", adminTok, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, string(res.Data), `"total":0`)

	res = env.do(t, http.MethodGet, "/api/users?isActive=maybe", adminTok, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "isActive must be true or false", res.Error)
}

func TestUsers_GetSelfOrAdmin(t *testing.T) {
	env := newTestEnv(t)
	ann := env.registerUser(t, "Ann", "ann@x.com")
	bob := env.registerUser(t, "Bob", "bob@x.com")
	adminTok, _ := env.adminToken(t)

	res := env.do(t, http.MethodGet, "/api/users/"+ann.User["id"].(string), ann.Token, nil)
	assert.Equal(t, http.StatusOK, res.Code)

	res = env.do(t, http.MethodGet, "/api/users/"+bob.User["id"].(string), ann.Token, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, "Not authorized to access this profile", res.Error)

	res = env.do(t, http.MethodGet, "/api/users/"+bob.User["id"].(string), adminTok, nil)
	assert.Equal(t, http.StatusOK, res.Code)

	res = env.do(t, http.MethodGet, "/api/users/not-an-id", adminTok, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Invalid user ID", res.Error)

	res = env.do(t, http.MethodGet, "/api/users/6e2f8a3c-0000-4000-8000-000000000000", adminTok, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "User not found", res.Error)
}

func TestUsers_SelfCannotPromote(t *testing.T) {
	env := newTestEnv(t)
	ann := env.registerUser(t, "Ann", "ann@x.com")
	id := ann.User["id"].(string)

	res := env.do(t, http.MethodPut, "/api/users/"+id, ann.Token, map[string]any{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, "Not authorized to update role or active status", res.Error)

	u, err := env.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)

	res = env.do(t, http.MethodPut, "/api/users/"+id, ann.Token, map[string]any{"email": "new@x.com"})
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, "Not authorized to change email", res.Error)

	res = env.do(t, http.MethodPut, "/api/users/"+id, ann.Token, map[string]any{"name": "Annie", "email": "ann@x.com"})
	assert.Equal(t, http.StatusOK, res.Code)

	res = env.do(t, http.MethodPut, "/api/users/"+id, ann.Token, map[string]any{"name": "Annie"})
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "User updated successfully", res.Message)
}

func TestUsers_AdminUpdate(t *testing.T) {
	env := newTestEnv(t)
	ann := env.registerUser(t, "Ann", "ann@x.com")
	adminTok, _ := env.adminToken(t)
	id := ann.User["id"].(string)

	res := env.do(t, http.MethodPut, "/api/users/"+id, adminTok, map[string]any{"role": "admin", "isActive": false})
	require.Equal(t, http.StatusOK, res.Code, res.Error)

	u, err := env.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.False(t, u.IsActive)

	res = env.do(t, http.MethodPut, "/api/users/"+id, adminTok, map[string]any{"role": "root"})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Role must be either user or admin", res.Error)

	res = env.do(t, http.MethodPut, "/api/users/"+id, adminTok, map[string]any{"email": "admin@x.com"})
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestUsers_AdminCannotDeleteSelf(t *testing.T) {
	env := newTestEnv(t)
	adminTok, adminID := env.adminToken(t)
	ann := env.registerUser(t, "Ann", "ann@x.com")

	res := env.do(t, http.MethodDelete, "/api/users/"+adminID, adminTok, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Cannot delete your own account", res.Error)
	_, err := env.repo.GetByID(context.Background(), adminID)
	require.NoError(t, err)

	res = env.do(t, http.MethodDelete, "/api/users/"+ann.User["id"].(string), adminTok, nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "User deleted successfully", res.Message)

	// the deleted user's token no longer resolves
	res = env.do(t, http.MethodGet, "/api/auth/me", ann.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestUsers_Stats(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "Ann", "ann@x.com")
	adminTok, _ := env.adminToken(t)

	res := env.do(t, http.MethodGet, "/api/users/stats", adminTok, nil)
	require.Equal(t, http.StatusOK, res.Code)

	stats := decodeData[models.UserStats](t, res)
	assert.EqualValues(t, 2, stats.TotalUsers)
	assert.EqualValues(t, 1, stats.AdminUsers)
	assert.EqualValues(t, 1, stats.RegularUsers)
	assert.EqualValues(t, 1, stats.ActiveInLastWeek)
}

// --- misc ---

func TestHealthAndRoot(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"connected"`)

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"goroutines"`)

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"user"`)

	reg := env.registerUser(t, "Ann", "ann@x.com")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+reg.Token)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), reg.User["id"].(string))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNotFoundAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "Not found - /api/nope", res.Error)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "webtoz_http_requests_total")
}
