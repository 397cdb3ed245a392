package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/webtoz/internal/client/models"
)

// ListParams filters GET /users. Zero values are left out of the query.
type ListParams struct {
	Page     int
	Limit    int
	Search   string
	Role     string
	IsActive *bool
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.Role != "" {
		v.Set("role", p.Role)
	}
	if p.IsActive != nil {
		v.Set("isActive", strconv.FormatBool(*p.IsActive))
	}
	return v
}

// UserUpdate changes only the fields that are set.
type UserUpdate struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

func (c *Client) ListUsers(ctx context.Context, p ListParams) (*models.UserList, error) {
	var out models.UserList
	if _, err := c.do(ctx, http.MethodGet, "/users", p.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var out userEnvelope
	if _, err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, u UserUpdate) (*models.User, error) {
	var out userEnvelope
	if _, err := c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(id), nil, u, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) (string, error) {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) Stats(ctx context.Context) (*models.Stats, error) {
	var out models.Stats
	if _, err := c.do(ctx, http.MethodGet, "/users/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
