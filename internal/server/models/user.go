package models

import "time"

// PasswordHasher is the one-way function used by SetPassword.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) bool
}

// User is an account record as held by the credential store.
//
// PasswordHash and the token fields never leave the server: they are
// excluded from JSON and the REST layer renders users through its own view.
type User struct {
	ID                     string
	Name                   string
	Email                  string
	PasswordHash           string `json:"-"`
	Role                   Role
	Avatar                 string
	IsEmailVerified        bool
	EmailVerificationToken string     `json:"-"`
	PasswordResetToken     string     `json:"-"`
	PasswordResetExpires   *time.Time `json:"-"`
	IsActive               bool
	LastLogin              *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// SetPassword hashes plain and stores the result. It is the only way a
// password gets onto a User; repositories persist PasswordHash as is.
func (u *User) SetPassword(h PasswordHasher, plain string) error {
	hash, err := h.Hash(plain)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

// ComparePassword reports whether candidate matches the stored hash.
func (u *User) ComparePassword(h PasswordHasher, candidate string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return h.Compare(u.PasswordHash, candidate)
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
