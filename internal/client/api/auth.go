package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/webtoz/internal/client/models"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdate changes only the fields that are set.
type ProfileUpdate struct {
	Name   *string `json:"name,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

type userEnvelope struct {
	User models.User `json:"user"`
}

func (c *Client) Register(ctx context.Context, r RegisterRequest) (*models.Session, error) {
	var s models.Session
	if _, err := c.do(ctx, http.MethodPost, "/auth/register", nil, r, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.Session, error) {
	var s models.Session
	in := map[string]string{"email": email, "password": password}
	if _, err := c.do(ctx, http.MethodPost, "/auth/login", nil, in, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Logout(ctx context.Context) (string, error) {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

// Me returns the account the current token belongs to.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out userEnvelope
	if _, err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) UpdateProfile(ctx context.Context, p ProfileUpdate) (*models.User, error) {
	var out userEnvelope
	if _, err := c.do(ctx, http.MethodPut, "/auth/profile", nil, p, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) (string, error) {
	in := map[string]string{"currentPassword": current, "newPassword": next}
	return c.do(ctx, http.MethodPut, "/auth/change-password", nil, in, nil)
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	return c.do(ctx, http.MethodPost, "/auth/forgot-password", nil, map[string]string{"email": email}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, token, password string) (*models.Session, error) {
	var s models.Session
	path := "/auth/reset-password/" + url.PathEscape(token)
	if _, err := c.do(ctx, http.MethodPut, path, nil, map[string]string{"password": password}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// AvatarUpload asks the server for a presigned URL to PUT a new avatar to.
func (c *Client) AvatarUpload(ctx context.Context, contentType string) (*models.AvatarUpload, error) {
	var out models.AvatarUpload
	in := map[string]string{"contentType": contentType}
	if _, err := c.do(ctx, http.MethodPost, "/auth/avatar", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
