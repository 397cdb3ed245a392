// Package services contains server-side business logic: account
// registration and login, session token checks, self-service profile
// changes, administration of other accounts, and avatar upload URLs.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/webtoz/internal/common"
	"github.com/dmitrijs2005/webtoz/internal/logging"
	"github.com/dmitrijs2005/webtoz/internal/server/auth"
	"github.com/dmitrijs2005/webtoz/internal/server/models"
	"github.com/dmitrijs2005/webtoz/internal/server/repositories/users"
)

// Caller-facing messages shared with the transport layers.
const (
	MsgNotAuthorized       = "Not authorized to access this route"
	MsgNoUserForToken      = "No user found with this token"
	MsgUserDeactivated     = "User account is deactivated"
	MsgInvalidCredentials  = "Invalid credentials"
	MsgAccountDeactivated  = "Account is deactivated"
	MsgEmailTaken          = "User already exists with this email"
	MsgWrongPassword       = "Current password is incorrect"
	MsgInvalidResetToken   = "Invalid or expired reset token"
	MsgUserNotFound        = "User not found"
	MsgInvalidUserID       = "Invalid user ID"
	MsgCannotDeleteSelf    = "Cannot delete your own account"
	MsgForbiddenProfile    = "Not authorized to access this profile"
	MsgForbiddenUpdate     = "Not authorized to update this profile"
	MsgForbiddenRoleChange = "Not authorized to update role or active status"
	MsgForbiddenEmail      = "Not authorized to change email"
)

// Session is the result of a successful login: the account and a token for it.
type Session struct {
	User  *models.User
	Token string
}

// ResetNotifier delivers a raw password reset token to the account owner.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, u *models.User, token string) error
}

// AuthService implements the self-service account operations and the
// token-to-user resolution used by every authenticated request.
type AuthService struct {
	users    users.Repository
	tokens   *auth.TokenService
	hasher   models.PasswordHasher
	notifier ResetNotifier
	logger   logging.Logger
	resetTTL time.Duration
	now      func() time.Time
}

func NewAuthService(repo users.Repository, tokens *auth.TokenService, hasher models.PasswordHasher,
	notifier ResetNotifier, logger logging.Logger, resetTTL time.Duration) *AuthService {
	return &AuthService{
		users:    repo,
		tokens:   tokens,
		hasher:   hasher,
		notifier: notifier,
		logger:   logger.With("module", "auth_service"),
		resetTTL: resetTTL,
		now:      time.Now,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates an active account with the user role and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := users.NormalizeEmail(in.Email)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, common.WithMessage(common.ErrEmailTaken, MsgEmailTaken)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("register: %w", err)
	}

	verification, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	user := &models.User{
		Name:                   in.Name,
		Email:                  email,
		Role:                   models.RoleUser,
		IsActive:               true,
		EmailVerificationToken: verification,
	}
	if err := user.SetPassword(s.hasher, in.Password); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrEmailTaken) {
			return nil, common.WithMessage(common.ErrEmailTaken, MsgEmailTaken)
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", created.ID)
	return s.issue(created)
}

// Login checks credentials. The active flag is checked before the password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "login failed", "reason", "unknown_email")
			return nil, common.WithMessage(common.ErrInvalidCredentials, MsgInvalidCredentials)
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if !user.IsActive {
		s.logger.Warn(ctx, "login failed", "reason", "deactivated", "user_id", user.ID)
		return nil, common.WithMessage(common.ErrAccountDeactivated, MsgAccountDeactivated)
	}

	if !user.ComparePassword(s.hasher, password) {
		s.logger.Warn(ctx, "login failed", "reason", "wrong_password", "user_id", user.ID)
		return nil, common.WithMessage(common.ErrInvalidCredentials, MsgInvalidCredentials)
	}

	// The token is issued from the record as stored after the write, so a
	// role or active change made while the password was being checked wins.
	now := s.now().UTC()
	user, err = s.users.Update(ctx, user.ID, users.Changes{LastLogin: &now})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if !user.IsActive {
		s.logger.Warn(ctx, "login failed", "reason", "deactivated", "user_id", user.ID)
		return nil, common.WithMessage(common.ErrAccountDeactivated, MsgAccountDeactivated)
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return s.issue(user)
}

// Authenticate resolves a bearer token to an active account. The account is
// re-read on every call, so deactivation takes effect on tokens already issued.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	identity, err := s.tokens.Verify(token)
	if err != nil {
		return nil, common.WithMessage(common.ErrInvalidToken, MsgNotAuthorized)
	}

	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrInvalidID) {
			return nil, common.WithMessage(common.ErrorUnauthorized, MsgNoUserForToken)
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if !user.IsActive {
		return nil, common.WithMessage(common.ErrAccountDeactivated, MsgUserDeactivated)
	}
	return user, nil
}

// Logout only records the event. Tokens are stateless and stay valid until
// they expire; the client is expected to discard its copy.
func (s *AuthService) Logout(ctx context.Context, u *models.User) {
	s.logger.Info(ctx, "user logged out", "user_id", u.ID)
}

// ProfileInput lists the fields an account may change on itself.
type ProfileInput struct {
	Name   *string
	Avatar *string
}

func (s *AuthService) UpdateProfile(ctx context.Context, u *models.User, in ProfileInput) (*models.User, error) {
	updated, err := s.users.Update(ctx, u.ID, users.Changes{Name: in.Name, Avatar: in.Avatar})
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return updated, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, u *models.User, current, next string) error {
	if !u.ComparePassword(s.hasher, current) {
		return common.WithMessage(common.ErrWrongPassword, MsgWrongPassword)
	}
	hash, err := s.passwordHash(next)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	_, err = s.users.Update(ctx, u.ID, users.Changes{PasswordHash: &hash, PasswordReset: &users.PasswordReset{}})
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	s.logger.Info(ctx, "password changed", "user_id", u.ID)
	return nil
}

// ForgotPassword starts a reset for an existing active account. It reports
// success either way so callers cannot probe which emails are registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return fmt.Errorf("forgot password: %w", err)
	}
	if !user.IsActive {
		return nil
	}

	raw, err := common.MakeRandHexString(32)
	if err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	expires := s.now().UTC().Add(s.resetTTL)
	reset := &users.PasswordReset{TokenHash: hashResetToken(raw), Expires: &expires}
	if _, err := s.users.Update(ctx, user.ID, users.Changes{PasswordReset: reset}); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	if err := s.notifier.NotifyPasswordReset(ctx, user, raw); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	return nil
}

// ResetPassword consumes a reset token and signs the account in.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) (*Session, error) {
	user, err := s.users.GetByResetToken(ctx, hashResetToken(token))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.WithMessage(common.ErrResetTokenInvalid, MsgInvalidResetToken)
		}
		return nil, fmt.Errorf("reset password: %w", err)
	}
	if user.PasswordResetExpires == nil || !s.now().Before(*user.PasswordResetExpires) {
		return nil, common.WithMessage(common.ErrResetTokenInvalid, MsgInvalidResetToken)
	}
	if !user.IsActive {
		return nil, common.WithMessage(common.ErrAccountDeactivated, MsgAccountDeactivated)
	}

	hash, err := s.passwordHash(password)
	if err != nil {
		return nil, fmt.Errorf("reset password: %w", err)
	}
	user, err = s.users.Update(ctx, user.ID, users.Changes{PasswordHash: &hash, PasswordReset: &users.PasswordReset{}})
	if err != nil {
		return nil, fmt.Errorf("reset password: %w", err)
	}
	if !user.IsActive {
		return nil, common.WithMessage(common.ErrAccountDeactivated, MsgAccountDeactivated)
	}

	s.logger.Info(ctx, "password reset", "user_id", user.ID)
	return s.issue(user)
}

// EnsureAdmin creates an admin account with the given credentials unless an
// account with that email already exists. It reports whether it created one.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, common.ErrorNotFound) {
		return false, fmt.Errorf("ensure admin: %w", err)
	}

	admin := &models.User{
		Name:            name,
		Email:           email,
		Role:            models.RoleAdmin,
		IsActive:        true,
		IsEmailVerified: true,
	}
	if err := admin.SetPassword(s.hasher, password); err != nil {
		return false, fmt.Errorf("ensure admin: %w", err)
	}
	if _, err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, common.ErrEmailTaken) {
			return false, nil
		}
		return false, fmt.Errorf("ensure admin: %w", err)
	}

	s.logger.Info(ctx, "admin account created", "user_id", admin.ID)
	return true, nil
}

// passwordHash hashes plain through User.SetPassword, the single hashing
// path, without touching any stored record.
func (s *AuthService) passwordHash(plain string) (string, error) {
	var scratch models.User
	if err := scratch.SetPassword(s.hasher, plain); err != nil {
		return "", err
	}
	return scratch.PasswordHash, nil
}

func (s *AuthService) issue(u *models.User) (*Session, error) {
	token, err := s.tokens.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{User: u, Token: token}, nil
}

// Only the digest of a reset token is stored.
func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// LogNotifier "delivers" reset tokens to the log. The raw token is written
// only when exposeToken is set, which the server does in development.
type LogNotifier struct {
	logger      logging.Logger
	exposeToken bool
}

func NewLogNotifier(logger logging.Logger, exposeToken bool) *LogNotifier {
	return &LogNotifier{logger: logger.With("module", "reset_notifier"), exposeToken: exposeToken}
}

func (n *LogNotifier) NotifyPasswordReset(ctx context.Context, u *models.User, token string) error {
	if n.exposeToken {
		n.logger.Info(ctx, "password reset requested", "user_id", u.ID, "reset_token", token)
		return nil
	}
	n.logger.Info(ctx, "password reset requested", "user_id", u.ID)
	return nil
}
