// Package session manages the CLI's authenticated session: which token is
// presented to the API, which user it belongs to, and what happens when the
// server stops accepting it.
//
// A Manager moves between three states:
//
//	Unauthenticated --login/register/reset--> Authenticated
//	Initializing    --stored token accepted--> Authenticated
//	Initializing    --no token, or rejected--> Unauthenticated
//	Authenticated   --logout or any 401------> Unauthenticated
package session

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/webtoz/internal/client/api"
	"github.com/dmitrijs2005/webtoz/internal/client/models"
	"github.com/dmitrijs2005/webtoz/internal/logging"
)

// API is the part of the API client the manager drives.
type API interface {
	SetToken(token string)
	SetUnauthorizedHandler(fn func())
	Register(ctx context.Context, r api.RegisterRequest) (*models.Session, error)
	Login(ctx context.Context, email, password string) (*models.Session, error)
	ResetPassword(ctx context.Context, token, password string) (*models.Session, error)
	Logout(ctx context.Context) (string, error)
	Me(ctx context.Context) (*models.User, error)
}

type Manager struct {
	api    API
	store  Store
	logger logging.Logger

	mu        sync.RWMutex
	state     State
	user      *models.User
	onExpired func()
}

// NewManager wires the manager into client's 401 handling. Call Init before
// use.
func NewManager(client API, store Store, logger logging.Logger) *Manager {
	m := &Manager{
		api:    client,
		store:  store,
		logger: logger.With("module", "session"),
		state:  Unauthenticated,
	}
	client.SetUnauthorizedHandler(m.handleUnauthorized)
	return m
}

// OnExpired registers fn to run when an authenticated session is dropped
// because the server answered 401.
func (m *Manager) OnExpired(fn func()) {
	m.mu.Lock()
	m.onExpired = fn
	m.mu.Unlock()
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// User returns a copy of the current user snapshot, or nil.
func (m *Manager) User() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// Init restores a stored session, re-validating its token with the server.
// Any failure to validate leaves the manager Unauthenticated with local
// state cleared; only store errors are returned.
func (m *Manager) Init(ctx context.Context) error {
	m.setState(Initializing, nil)

	token, _, err := m.store.Load(ctx)
	if err != nil {
		m.setState(Unauthenticated, nil)
		if IsEmpty(err) {
			return nil
		}
		return err
	}

	m.api.SetToken(token)
	user, err := m.api.Me(ctx)
	if err != nil {
		m.logger.Info(ctx, "stored session rejected", "reason", api.Describe(err))
		m.api.SetToken("")
		m.setState(Unauthenticated, nil)
		return m.store.Clear(ctx)
	}

	if err := m.store.SaveUser(ctx, user); err != nil {
		m.logger.Warn(ctx, "failed to refresh stored user", "error", err)
	}
	m.setState(Authenticated, user)
	return nil
}

func (m *Manager) Login(ctx context.Context, email, password string) (*models.User, error) {
	s, err := m.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return m.establish(ctx, s)
}

func (m *Manager) Register(ctx context.Context, r api.RegisterRequest) (*models.User, error) {
	s, err := m.api.Register(ctx, r)
	if err != nil {
		return nil, err
	}
	return m.establish(ctx, s)
}

// ResetPassword completes a password reset; the server answers with a fresh
// session, which becomes the current one.
func (m *Manager) ResetPassword(ctx context.Context, token, password string) (*models.User, error) {
	s, err := m.api.ResetPassword(ctx, token, password)
	if err != nil {
		return nil, err
	}
	return m.establish(ctx, s)
}

// Logout tells the server (best effort) and then always clears local state.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	wasAuthenticated := m.state == Authenticated
	m.state = Unauthenticated
	m.user = nil
	m.mu.Unlock()

	if wasAuthenticated {
		if _, err := m.api.Logout(ctx); err != nil {
			m.logger.Warn(ctx, "server logout failed", "reason", api.Describe(err))
		}
	}

	m.api.SetToken("")
	return m.store.Clear(ctx)
}

// UpdateUser replaces the cached snapshot after a profile change.
func (m *Manager) UpdateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	if m.state != Authenticated {
		m.mu.Unlock()
		return nil
	}
	cp := *u
	m.user = &cp
	m.mu.Unlock()

	return m.store.SaveUser(ctx, u)
}

func (m *Manager) Close() error {
	return m.store.Close()
}

func (m *Manager) establish(ctx context.Context, s *models.Session) (*models.User, error) {
	if err := m.store.Save(ctx, s.Token, &s.User); err != nil {
		return nil, err
	}
	m.api.SetToken(s.Token)
	m.setState(Authenticated, &s.User)
	return m.User(), nil
}

func (m *Manager) setState(s State, u *models.User) {
	m.mu.Lock()
	m.state = s
	m.user = u
	m.mu.Unlock()
}

// handleUnauthorized runs on every 401. Only an authenticated session is
// torn down; a failed login attempt has nothing to clear.
func (m *Manager) handleUnauthorized() {
	m.mu.Lock()
	if m.state != Authenticated {
		m.mu.Unlock()
		return
	}
	m.state = Unauthenticated
	m.user = nil
	fn := m.onExpired
	m.mu.Unlock()

	m.api.SetToken("")
	ctx := context.Background()
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error(ctx, "failed to clear expired session", "error", err)
	}

	if fn != nil {
		fn()
	}
}
