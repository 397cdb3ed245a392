package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/webtoz/internal/common"
	"github.com/dmitrijs2005/webtoz/internal/logging"
	"github.com/dmitrijs2005/webtoz/internal/server/models"
	"github.com/dmitrijs2005/webtoz/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, repo users.Repository, name string, role models.Role) *models.User {
	t.Helper()
	u, err := repo.Create(context.Background(), &models.User{
		Name:         name,
		Email:        name + "@x.com",
		PasswordHash: "hash",
		Role:         role,
		IsActive:     true,
	})
	require.NoError(t, err)
	return u
}

// afterGetRepo runs afterGet once a record has been read, which is where a
// concurrent writer can slip in before the service writes.
type afterGetRepo struct {
	users.Repository
	afterGet func()
}

func (r *afterGetRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, err := r.Repository.GetByID(ctx, id)
	if err == nil && r.afterGet != nil {
		r.afterGet()
	}
	return u, err
}

func newUserFixture(t *testing.T) (*UserService, *users.MemoryRepository, *models.User, *models.User) {
	t.Helper()
	repo := users.NewMemoryRepository()
	admin := seedUser(t, repo, "admin", models.RoleAdmin)
	ann := seedUser(t, repo, "ann", models.RoleUser)
	return NewUserService(repo, logging.Nop()), repo, admin, ann
}

func TestUserService_List_Pagination(t *testing.T) {
	svc, repo, _, _ := newUserFixture(t)
	for i := 0; i < 23; i++ {
		seedUser(t, repo, fmt.Sprintf("user%02d", i), models.RoleUser)
	}

	page, err := svc.List(context.Background(), ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultPageLimit, page.Limit)
	assert.EqualValues(t, 25, page.Total)
	assert.Equal(t, 3, page.Pages)
	assert.Len(t, page.Users, 10)

	page, err = svc.List(context.Background(), ListQuery{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Users, 5)

	page, err = svc.List(context.Background(), ListQuery{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, MaxPageLimit, page.Limit)
	assert.Equal(t, 1, page.Pages)
}

func TestUserService_List_Filters(t *testing.T) {
	svc, _, _, _ := newUserFixture(t)
	admin := models.RoleAdmin

	page, err := svc.List(context.Background(), ListQuery{Role: &admin})
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "admin", page.Users[0].Name)

	page, err = svc.List(context.Background(), ListQuery{Search: "AN"})
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "ann", page.Users[0].Name)
}

func TestUserService_Get(t *testing.T) {
	svc, repo, admin, ann := newUserFixture(t)
	bob := seedUser(t, repo, "bob", models.RoleUser)
	ctx := context.Background()

	u, err := svc.Get(ctx, ann, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, ann.ID, u.ID)

	_, err = svc.Get(ctx, admin, bob.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, ann, bob.ID)
	requireMessage(t, err, common.ErrForbidden, MsgForbiddenProfile)

	_, err = svc.Get(ctx, admin, "6e2f8a3c-0000-4000-8000-000000000000")
	requireMessage(t, err, common.ErrorNotFound, MsgUserNotFound)

	_, err = svc.Get(ctx, admin, "not-a-uuid")
	requireMessage(t, err, common.ErrInvalidID, MsgInvalidUserID)
}

func TestUserService_Update_SelfLimits(t *testing.T) {
	svc, repo, admin, ann := newUserFixture(t)
	ctx := context.Background()

	role := models.RoleAdmin
	_, err := svc.Update(ctx, ann, ann.ID, UserPatch{Role: &role})
	requireMessage(t, err, common.ErrForbidden, MsgForbiddenRoleChange)

	active := false
	_, err = svc.Update(ctx, ann, ann.ID, UserPatch{IsActive: &active})
	requireMessage(t, err, common.ErrForbidden, MsgForbiddenRoleChange)

	email := "new@x.com"
	_, err = svc.Update(ctx, ann, ann.ID, UserPatch{Email: &email})
	requireMessage(t, err, common.ErrForbidden, MsgForbiddenEmail)

	name := "Annie"
	_, err = svc.Update(ctx, ann, admin.ID, UserPatch{Name: &name})
	requireMessage(t, err, common.ErrForbidden, MsgForbiddenUpdate)

	stored, err := repo.GetByID(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, stored.Role)
	assert.True(t, stored.IsActive)

	u, err := svc.Update(ctx, ann, ann.ID, UserPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Annie", u.Name)
}

func TestUserService_Update_SelfSameEmail(t *testing.T) {
	svc, repo, _, ann := newUserFixture(t)
	ctx := context.Background()

	name, email := "Annie", " ANN@x.com"
	u, err := svc.Update(ctx, ann, ann.ID, UserPatch{Name: &name, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "Annie", u.Name)
	assert.Equal(t, "ann@x.com", u.Email)

	other := "ann.other@x.com"
	_, err = svc.Update(ctx, ann, ann.ID, UserPatch{Name: &name, Email: &other})
	requireMessage(t, err, common.ErrForbidden, MsgForbiddenEmail)

	stored, err := repo.GetByID(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", stored.Email)
}

func TestUserService_Update_KeepsConcurrentAdminChange(t *testing.T) {
	_, mem, admin, ann := newUserFixture(t)
	ctx := context.Background()
	repo := &afterGetRepo{Repository: mem}
	svc := NewUserService(repo, logging.Nop())

	// promoted first so that a demotion landing mid-update is observable
	setRole(t, mem, ann.ID, models.RoleAdmin)
	repo.afterGet = func() {
		setActive(t, mem, ann.ID, false)
		setRole(t, mem, ann.ID, models.RoleUser)
	}

	self, err := mem.GetByID(ctx, ann.ID)
	require.NoError(t, err)
	name := "Annie"
	u, err := svc.Update(ctx, self, ann.ID, UserPatch{Name: &name})
	require.NoError(t, err)
	assert.False(t, u.IsActive)
	assert.Equal(t, models.RoleUser, u.Role)

	stored, err := mem.GetByID(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, "Annie", stored.Name)
	assert.False(t, stored.IsActive)
	assert.Equal(t, models.RoleUser, stored.Role)

	// an admin edit of another field leaves the deactivation alone
	repo.afterGet = nil
	renamed := "Ann B"
	u, err = svc.Update(ctx, admin, ann.ID, UserPatch{Name: &renamed})
	require.NoError(t, err)
	assert.False(t, u.IsActive)
}

func TestUserService_Update_Admin(t *testing.T) {
	svc, _, admin, ann := newUserFixture(t)
	ctx := context.Background()

	role := models.RoleAdmin
	active := false
	email := "ANN2@x.com"
	u, err := svc.Update(ctx, admin, ann.ID, UserPatch{Role: &role, IsActive: &active, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.False(t, u.IsActive)
	assert.Equal(t, "ann2@x.com", u.Email)

	taken := "admin@x.com"
	_, err = svc.Update(ctx, admin, ann.ID, UserPatch{Email: &taken})
	requireMessage(t, err, common.ErrEmailTaken, MsgEmailTaken)
}

func TestUserService_Delete(t *testing.T) {
	svc, repo, admin, ann := newUserFixture(t)
	ctx := context.Background()

	err := svc.Delete(ctx, admin, admin.ID)
	requireMessage(t, err, common.ErrSelfDelete, MsgCannotDeleteSelf)
	_, err = repo.GetByID(ctx, admin.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, admin, ann.ID))
	_, err = repo.GetByID(ctx, ann.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	err = svc.Delete(ctx, admin, ann.ID)
	requireMessage(t, err, common.ErrorNotFound, MsgUserNotFound)
}

func TestUserService_Stats(t *testing.T) {
	repo := users.NewMemoryRepository()
	svc := NewUserService(repo, logging.Nop())
	ctx := context.Background()

	now := time.Now().UTC()
	svc.now = func() time.Time { return now }
	stale := now.Add(-10 * 24 * time.Hour)

	for _, u := range []*models.User{
		{Name: "admin", Email: "admin@x.com", Role: models.RoleAdmin, IsActive: true},
		{Name: "ann", Email: "ann@x.com", Role: models.RoleUser, IsActive: true, IsEmailVerified: true, LastLogin: &now},
		{Name: "old", Email: "old@x.com", Role: models.RoleUser, CreatedAt: now.Add(-40 * 24 * time.Hour), LastLogin: &stale},
	} {
		_, err := repo.Create(ctx, u)
		require.NoError(t, err)
	}

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.UserStats{
		TotalUsers:       3,
		ActiveUsers:      2,
		InactiveUsers:    1,
		AdminUsers:       1,
		RegularUsers:     2,
		VerifiedUsers:    1,
		UnverifiedUsers:  2,
		RecentUsers:      2,
		ActiveInLastWeek: 1,
	}, *stats)
}
