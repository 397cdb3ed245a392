// Package models defines the values the CLI receives from the API and keeps
// in its session.
package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the public view of an account as returned by the API.
type User struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Role            string     `json:"role"`
	Avatar          string     `json:"avatar,omitempty"`
	IsActive        bool       `json:"isActive"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	LastLogin       *time.Time `json:"lastLogin,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// String renders the user as an aligned block for the terminal.
func (u *User) String() string {
	var b strings.Builder
	row := func(k, v string) { fmt.Fprintf(&b, "%-10s %s\n", k+":", v) }

	row("ID", u.ID)
	row("Name", u.Name)
	row("Email", u.Email)
	row("Role", u.Role)
	row("Active", yesNo(u.IsActive))
	row("Verified", yesNo(u.IsEmailVerified))
	if u.Avatar != "" {
		row("Avatar", u.Avatar)
	}
	if u.LastLogin != nil {
		row("Last login", u.LastLogin.Local().Format(time.DateTime))
	}
	row("Created", u.CreatedAt.Local().Format(time.DateTime))

	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// Session is what a successful register, login or password reset returns.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

type UserList struct {
	Users      []User     `json:"users"`
	Pagination Pagination `json:"pagination"`
}

type Stats struct {
	TotalUsers       int64 `json:"totalUsers"`
	ActiveUsers      int64 `json:"activeUsers"`
	InactiveUsers    int64 `json:"inactiveUsers"`
	AdminUsers       int64 `json:"adminUsers"`
	RegularUsers     int64 `json:"regularUsers"`
	VerifiedUsers    int64 `json:"verifiedUsers"`
	UnverifiedUsers  int64 `json:"unverifiedUsers"`
	RecentUsers      int64 `json:"recentUsers"`
	ActiveInLastWeek int64 `json:"activeInLastWeek"`
}

// AvatarUpload is a presigned PUT target for a new avatar image.
type AvatarUpload struct {
	UploadURL string    `json:"uploadUrl"`
	Key       string    `json:"key"`
	PublicURL string    `json:"publicUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}
