// Package users is the credential store: persistence of user accounts with
// PostgreSQL, MongoDB and in-memory backends behind one interface.
package users

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/webtoz/internal/server/models"
)

// Repository persists user records. Implementations never hash passwords;
// they store models.User.PasswordHash as given.
//
// Lookups return common.ErrorNotFound for missing records and
// common.ErrInvalidID for ids the backend cannot parse. Create and Update
// return common.ErrEmailTaken when the email would collide.
//
// Update writes only the fields set in Changes and returns the record as
// stored afterwards. Callers never write back a whole record they read
// earlier, so a concurrent change to another field (an admin deactivating
// or demoting the account) is never reverted.
type Repository interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByResetToken(ctx context.Context, tokenHash string) (*models.User, error)
	Update(ctx context.Context, id string, c Changes) (*models.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f Filter, p Page) ([]*models.User, error)
	Count(ctx context.Context, f Filter) (int64, error)
	Ping(ctx context.Context) error
}

// Changes is a partial update. Nil fields keep their stored value.
type Changes struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *models.Role
	Avatar       *string
	IsActive     *bool
	LastLogin    *time.Time
	// PasswordReset replaces the reset token digest and expiry. A zero
	// PasswordReset clears both.
	PasswordReset *PasswordReset
}

type PasswordReset struct {
	TokenHash string
	Expires   *time.Time
}

// Filter narrows List and Count. Nil fields do not constrain.
type Filter struct {
	// Search matches name or email, case-insensitively, as a substring.
	Search          string
	Role            *models.Role
	IsActive        *bool
	IsEmailVerified *bool
	CreatedSince    *time.Time
	LastLoginSince  *time.Time
}

// Page selects a window of a creation-time descending listing.
type Page struct {
	Offset int
	Limit  int
}

// NormalizeEmail is applied to every email before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
