package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/webtoz/internal/common"
	"github.com/dmitrijs2005/webtoz/internal/logging"
	"github.com/dmitrijs2005/webtoz/internal/server/models"
	"github.com/dmitrijs2005/webtoz/internal/server/repositories/users"
	"github.com/dmitrijs2005/webtoz/internal/timex"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100

	recentWindow = 30 * timex.Day
	activeWindow = 7 * timex.Day
)

// UserService implements account administration. Every method takes the
// already authenticated caller as actor.
type UserService struct {
	users  users.Repository
	logger logging.Logger
	now    func() time.Time
}

func NewUserService(repo users.Repository, logger logging.Logger) *UserService {
	return &UserService{users: repo, logger: logger.With("module", "user_service"), now: time.Now}
}

// ListQuery is a page request. Zero or out of range Page and Limit are
// replaced by the defaults.
type ListQuery struct {
	Page     int
	Limit    int
	Search   string
	Role     *models.Role
	IsActive *bool
}

type UserPage struct {
	Users []*models.User
	Page  int
	Limit int
	Total int64
	Pages int
}

func (q ListQuery) normalized() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	return q
}

func (s *UserService) List(ctx context.Context, q ListQuery) (*UserPage, error) {
	q = q.normalized()
	filter := users.Filter{Search: q.Search, Role: q.Role, IsActive: q.IsActive}

	total, err := s.users.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	list, err := s.users.List(ctx, filter, users.Page{Offset: (q.Page - 1) * q.Limit, Limit: q.Limit})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	pages := int((total + int64(q.Limit) - 1) / int64(q.Limit))
	return &UserPage{Users: list, Page: q.Page, Limit: q.Limit, Total: total, Pages: pages}, nil
}

// Get returns the account with id if actor is that account or an admin.
func (s *UserService) Get(ctx context.Context, actor *models.User, id string) (*models.User, error) {
	if actor.ID != id && !actor.IsAdmin() {
		return nil, common.WithMessage(common.ErrForbidden, MsgForbiddenProfile)
	}
	return s.load(ctx, id)
}

// UserPatch holds the fields of an update request. Nil means unchanged.
type UserPatch struct {
	Name     *string
	Email    *string
	Role     *models.Role
	IsActive *bool
	Avatar   *string
}

// Update applies patch to the account with id. A non-admin may touch only
// the name and avatar of its own account; resubmitting its current email is
// allowed and changes nothing.
func (s *UserService) Update(ctx context.Context, actor *models.User, id string, patch UserPatch) (*models.User, error) {
	if !actor.IsAdmin() {
		switch {
		case actor.ID != id:
			return nil, common.WithMessage(common.ErrForbidden, MsgForbiddenUpdate)
		case patch.Role != nil || patch.IsActive != nil:
			return nil, common.WithMessage(common.ErrForbidden, MsgForbiddenRoleChange)
		}
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Email != nil && !actor.IsAdmin() {
		if users.NormalizeEmail(*patch.Email) != user.Email {
			return nil, common.WithMessage(common.ErrForbidden, MsgForbiddenEmail)
		}
		patch.Email = nil
	}

	updated, err := s.users.Update(ctx, user.ID, users.Changes{
		Name:     patch.Name,
		Email:    patch.Email,
		Role:     patch.Role,
		IsActive: patch.IsActive,
		Avatar:   patch.Avatar,
	})
	if err != nil {
		if errors.Is(err, common.ErrEmailTaken) {
			return nil, common.WithMessage(common.ErrEmailTaken, MsgEmailTaken)
		}
		return nil, s.lookupError(err, "update user")
	}

	s.logger.Info(ctx, "user updated", "user_id", updated.ID, "actor_id", actor.ID)
	return updated, nil
}

// Delete removes the account with id. Admins cannot remove themselves.
func (s *UserService) Delete(ctx context.Context, actor *models.User, id string) error {
	if actor.ID == id {
		return common.WithMessage(common.ErrSelfDelete, MsgCannotDeleteSelf)
	}
	if !actor.IsAdmin() {
		return common.WithMessage(common.ErrForbidden, MsgForbiddenProfile)
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return s.lookupError(err, "delete user")
	}

	s.logger.Info(ctx, "user deleted", "user_id", id, "actor_id", actor.ID)
	return nil
}

func (s *UserService) Stats(ctx context.Context) (*models.UserStats, error) {
	now := s.now().UTC()
	recentSince := now.Add(-recentWindow)
	activeSince := now.Add(-activeWindow)
	yes := true
	admin := models.RoleAdmin

	var stats models.UserStats
	counts := []struct {
		filter users.Filter
		dst    *int64
	}{
		{users.Filter{}, &stats.TotalUsers},
		{users.Filter{IsActive: &yes}, &stats.ActiveUsers},
		{users.Filter{Role: &admin}, &stats.AdminUsers},
		{users.Filter{IsEmailVerified: &yes}, &stats.VerifiedUsers},
		{users.Filter{CreatedSince: &recentSince}, &stats.RecentUsers},
		{users.Filter{LastLoginSince: &activeSince}, &stats.ActiveInLastWeek},
	}

	for _, c := range counts {
		n, err := s.users.Count(ctx, c.filter)
		if err != nil {
			return nil, fmt.Errorf("user stats: %w", err)
		}
		*c.dst = n
	}

	stats.InactiveUsers = stats.TotalUsers - stats.ActiveUsers
	stats.RegularUsers = stats.TotalUsers - stats.AdminUsers
	stats.UnverifiedUsers = stats.TotalUsers - stats.VerifiedUsers
	return &stats, nil
}

func (s *UserService) load(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err, "get user")
	}
	return user, nil
}

func (s *UserService) lookupError(err error, op string) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return common.WithMessage(common.ErrorNotFound, MsgUserNotFound)
	case errors.Is(err, common.ErrInvalidID):
		return common.WithMessage(common.ErrInvalidID, MsgInvalidUserID)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
