package users

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/webtoz/internal/common"
	"github.com/dmitrijs2005/webtoz/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps users in a map. It is used by the "memory" store
// driver for local runs and by handler tests.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]*models.User
	now  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*models.User), now: time.Now}
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.Email = NormalizeEmail(user.Email)
	if r.emailTakenLocked(user.Email, "") {
		return nil, common.ErrEmailTaken
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := r.now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	r.byID[user.ID] = cloneUser(user)
	return user, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrInvalidID
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneUser(u), nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == NormalizeEmail(email) })
}

func (r *MemoryRepository) GetByResetToken(_ context.Context, tokenHash string) (*models.User, error) {
	if tokenHash == "" {
		return nil, common.ErrorNotFound
	}
	return r.find(func(u *models.User) bool { return u.PasswordResetToken == tokenHash })
}

func (r *MemoryRepository) find(match func(*models.User) bool) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) Update(_ context.Context, id string, c Changes) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if c.Role != nil && !c.Role.Valid() {
		return nil, fmt.Errorf("update user %s: invalid role", id)
	}
	user := cloneUser(stored)

	if c.Email != nil {
		email := NormalizeEmail(*c.Email)
		if r.emailTakenLocked(email, id) {
			return nil, common.ErrEmailTaken
		}
		user.Email = email
	}
	if c.Name != nil {
		user.Name = *c.Name
	}
	if c.PasswordHash != nil {
		user.PasswordHash = *c.PasswordHash
	}
	if c.Role != nil {
		user.Role = *c.Role
	}
	if c.Avatar != nil {
		user.Avatar = *c.Avatar
	}
	if c.IsActive != nil {
		user.IsActive = *c.IsActive
	}
	if c.LastLogin != nil {
		t := *c.LastLogin
		user.LastLogin = &t
	}
	if c.PasswordReset != nil {
		user.PasswordResetToken = c.PasswordReset.TokenHash
		user.PasswordResetExpires = nil
		if c.PasswordReset.Expires != nil {
			t := *c.PasswordReset.Expires
			user.PasswordResetExpires = &t
		}
	}
	user.UpdatedAt = r.now().UTC()

	r.byID[id] = user
	return cloneUser(user), nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MemoryRepository) List(_ context.Context, f Filter, p Page) ([]*models.User, error) {
	matched := r.matching(f)

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	if p.Offset >= len(matched) {
		return []*models.User{}, nil
	}
	end := len(matched)
	if p.Limit > 0 && p.Offset+p.Limit < end {
		end = p.Offset + p.Limit
	}
	return matched[p.Offset:end], nil
}

func (r *MemoryRepository) Count(_ context.Context, f Filter) (int64, error) {
	return int64(len(r.matching(f))), nil
}

func (r *MemoryRepository) Ping(context.Context) error { return nil }

func (r *MemoryRepository) matching(f Filter) []*models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]*models.User, 0, len(r.byID))
	for _, u := range r.byID {
		if search != "" && !strings.Contains(strings.ToLower(u.Name), search) && !strings.Contains(u.Email, search) {
			continue
		}
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			continue
		}
		if f.IsEmailVerified != nil && u.IsEmailVerified != *f.IsEmailVerified {
			continue
		}
		if f.CreatedSince != nil && u.CreatedAt.Before(*f.CreatedSince) {
			continue
		}
		if f.LastLoginSince != nil && (u.LastLogin == nil || u.LastLogin.Before(*f.LastLoginSince)) {
			continue
		}
		out = append(out, cloneUser(u))
	}
	return out
}

func (r *MemoryRepository) emailTakenLocked(email, exceptID string) bool {
	for id, u := range r.byID {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	if u.PasswordResetExpires != nil {
		t := *u.PasswordResetExpires
		c.PasswordResetExpires = &t
	}
	return &c
}
