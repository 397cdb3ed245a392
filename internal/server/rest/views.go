package rest

import (
	"time"

	"github.com/dmitrijs2005/webtoz/internal/server/models"
)

// userView is the only outward representation of an account. Password
// hashes and token digests have no field here.
type userView struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Email           string      `json:"email"`
	Role            models.Role `json:"role"`
	Avatar          string      `json:"avatar,omitempty"`
	IsActive        bool        `json:"isActive"`
	IsEmailVerified bool        `json:"isEmailVerified"`
	LastLogin       *time.Time  `json:"lastLogin,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

func toUserView(u *models.User) userView {
	return userView{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		Avatar:          u.Avatar,
		IsActive:        u.IsActive,
		IsEmailVerified: u.IsEmailVerified,
		LastLogin:       u.LastLogin,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func toUserViews(list []*models.User) []userView {
	out := make([]userView, 0, len(list))
	for _, u := range list {
		out = append(out, toUserView(u))
	}
	return out
}

type userData struct {
	User userView `json:"user"`
}

type sessionData struct {
	User  userView `json:"user"`
	Token string   `json:"token"`
}

type pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

type userListData struct {
	Users      []userView `json:"users"`
	Pagination pagination `json:"pagination"`
}
