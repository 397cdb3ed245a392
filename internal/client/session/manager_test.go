package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/webtoz/internal/client/api"
	"github.com/dmitrijs2005/webtoz/internal/client/models"
	"github.com/dmitrijs2005/webtoz/internal/logging"
)

// fakeAPI records the token it holds and answers from canned values.
type fakeAPI struct {
	mu             sync.Mutex
	token          string
	onUnauthorized func()

	session   *models.Session
	me        *models.User
	err       error
	logoutErr error
	logouts   int
}

func (f *fakeAPI) SetToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

func (f *fakeAPI) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeAPI) SetUnauthorizedHandler(fn func()) { f.onUnauthorized = fn }

func (f *fakeAPI) Register(context.Context, api.RegisterRequest) (*models.Session, error) {
	return f.session, f.err
}

func (f *fakeAPI) Login(context.Context, string, string) (*models.Session, error) {
	return f.session, f.err
}

func (f *fakeAPI) ResetPassword(context.Context, string, string) (*models.Session, error) {
	return f.session, f.err
}

func (f *fakeAPI) Logout(context.Context) (string, error) {
	f.logouts++
	return "Logout successful", f.logoutErr
}

func (f *fakeAPI) Me(context.Context) (*models.User, error) {
	return f.me, f.err
}

func newManager(t *testing.T, f *fakeAPI) (*Manager, *SQLiteStore) {
	t.Helper()
	store := openTestStore(t)
	return NewManager(f, store, logging.Nop()), store
}

func TestInit_NoStoredSession(t *testing.T) {
	m, _ := newManager(t, &fakeAPI{})

	require.NoError(t, m.Init(context.Background()))
	assert.Equal(t, Unauthenticated, m.State())
	assert.Nil(t, m.User())
}

func TestInit_ValidStoredToken(t *testing.T) {
	f := &fakeAPI{me: &models.User{ID: "u1", Name: "Fresh"}}
	m, store := newManager(t, f)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "tok", &models.User{ID: "u1", Name: "Stale"}))

	require.NoError(t, m.Init(ctx))

	assert.Equal(t, Authenticated, m.State())
	assert.Equal(t, "Fresh", m.User().Name)
	assert.Equal(t, "tok", f.Token())

	_, u, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Fresh", u.Name)
}

func TestInit_RejectedTokenClearsStore(t *testing.T) {
	f := &fakeAPI{err: &api.Error{StatusCode: http.StatusUnauthorized}}
	m, store := newManager(t, f)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "old", &models.User{ID: "u1"}))

	expired := false
	m.OnExpired(func() { expired = true })

	require.NoError(t, m.Init(ctx))

	assert.Equal(t, Unauthenticated, m.State())
	assert.Empty(t, f.Token())
	assert.False(t, expired)
	_, _, err := store.Load(ctx)
	assert.True(t, IsEmpty(err))
}

func TestLogin_EstablishesAndPersists(t *testing.T) {
	f := &fakeAPI{session: &models.Session{Token: "tok", User: models.User{ID: "u1", Role: models.RoleAdmin}}}
	m, store := newManager(t, f)
	ctx := context.Background()

	u, err := m.Login(ctx, "a@b.c", "Secret1")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
	assert.Equal(t, Authenticated, m.State())
	assert.Equal(t, "tok", f.Token())

	token, _, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
}

func TestLogin_FailureKeepsUnauthenticated(t *testing.T) {
	f := &fakeAPI{err: &api.Error{StatusCode: http.StatusUnauthorized, Message: "Invalid credentials"}}
	m, _ := newManager(t, f)

	_, err := m.Login(context.Background(), "a@b.c", "bad")
	require.Error(t, err)
	assert.Equal(t, Unauthenticated, m.State())
}

func TestRegisterAndReset_Establish(t *testing.T) {
	f := &fakeAPI{session: &models.Session{Token: "t1", User: models.User{ID: "u1"}}}
	m, _ := newManager(t, f)
	ctx := context.Background()

	_, err := m.Register(ctx, api.RegisterRequest{Name: "Jane", Email: "j@x.io", Password: "Secret1"})
	require.NoError(t, err)
	assert.Equal(t, Authenticated, m.State())

	f.session = &models.Session{Token: "t2", User: models.User{ID: "u1"}}
	_, err = m.ResetPassword(ctx, "reset", "Secret2")
	require.NoError(t, err)
	assert.Equal(t, "t2", f.Token())
}

func TestLogout_ClearsEvenWhenServerFails(t *testing.T) {
	f := &fakeAPI{
		session:   &models.Session{Token: "tok", User: models.User{ID: "u1"}},
		logoutErr: errors.New("down"),
	}
	m, store := newManager(t, f)
	ctx := context.Background()

	_, err := m.Login(ctx, "a@b.c", "Secret1")
	require.NoError(t, err)

	require.NoError(t, m.Logout(ctx))
	assert.Equal(t, 1, f.logouts)
	assert.Equal(t, Unauthenticated, m.State())
	assert.Empty(t, f.Token())
	_, _, err = store.Load(ctx)
	assert.True(t, IsEmpty(err))
}

func TestLogout_WhenUnauthenticatedSkipsServer(t *testing.T) {
	f := &fakeAPI{}
	m, _ := newManager(t, f)

	require.NoError(t, m.Logout(context.Background()))
	assert.Zero(t, f.logouts)
}

func TestUpdateUser(t *testing.T) {
	f := &fakeAPI{session: &models.Session{Token: "tok", User: models.User{ID: "u1", Name: "Old"}}}
	m, store := newManager(t, f)
	ctx := context.Background()

	require.NoError(t, m.UpdateUser(ctx, &models.User{ID: "u1", Name: "Ignored"}))
	assert.Nil(t, m.User())

	_, err := m.Login(ctx, "a@b.c", "Secret1")
	require.NoError(t, err)
	require.NoError(t, m.UpdateUser(ctx, &models.User{ID: "u1", Name: "New"}))
	assert.Equal(t, "New", m.User().Name)

	_, u, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "New", u.Name)
}

func TestUnauthorized_DropsAuthenticatedSession(t *testing.T) {
	f := &fakeAPI{session: &models.Session{Token: "tok", User: models.User{ID: "u1"}}}
	m, store := newManager(t, f)
	ctx := context.Background()

	expired := 0
	m.OnExpired(func() { expired++ })

	f.onUnauthorized()
	assert.Zero(t, expired, "nothing to drop before login")

	_, err := m.Login(ctx, "a@b.c", "Secret1")
	require.NoError(t, err)

	f.onUnauthorized()
	assert.Equal(t, 1, expired)
	assert.Equal(t, Unauthenticated, m.State())
	assert.Empty(t, f.Token())
	_, _, err = store.Load(ctx)
	assert.True(t, IsEmpty(err))
}

func TestManager_WithHTTPClient_ExpiresOn401(t *testing.T) {
	var mu sync.Mutex
	valid := true

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		mu.Lock()
		ok := valid
		mu.Unlock()

		switch {
		case r.URL.Path == "/api/auth/login":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]any{"token": "tok", "user": map[string]any{"id": "u1"}},
			})
		case ok && r.Header.Get("Authorization") == "Bearer tok":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]any{"user": map[string]any{"id": "u1"}},
			})
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "Not authorized to access this route"})
		}
	}))
	defer srv.Close()

	client := api.New(srv.URL+"/api", time.Second)
	m := NewManager(client, openTestStore(t), logging.Nop())
	ctx := context.Background()

	expired := make(chan struct{}, 1)
	m.OnExpired(func() { expired <- struct{}{} })

	_, err := m.Login(ctx, "a@b.c", "Secret1")
	require.NoError(t, err)

	_, err = client.Me(ctx)
	require.NoError(t, err)

	mu.Lock()
	valid = false
	mu.Unlock()

	_, err = client.Me(ctx)
	require.Error(t, err)

	select {
	case <-expired:
	default:
		t.Fatal("expected session to expire")
	}
	assert.Equal(t, Unauthenticated, m.State())
	assert.Empty(t, client.Token())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unauthenticated", Unauthenticated.String())
	assert.Equal(t, "initializing", Initializing.String())
	assert.Equal(t, "authenticated", Authenticated.String())
	assert.Equal(t, "unknown", State(42).String())
}
