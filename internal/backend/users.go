package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
)

// ListUsers — GET /api/users?search=.
func (c *Client) ListUsers(ctx context.Context, search string) ([]model.User, error) {
	var q url.Values
	if search != "" {
		q = url.Values{"search": {search}}
	}
	var out []model.User
	if err := c.do(ctx, http.MethodGet, "/api/users", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetUser — GET /api/users/{id}.
func (c *Client) GetUser(ctx context.Context, id string) (*model.User, error) {
	var out model.User
	if err := c.do(ctx, http.MethodGet, "/api/users/"+escape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SuspendUser — POST /api/users/{id}/suspend.
func (c *Client) SuspendUser(ctx context.Context, id string, req model.SuspendRequest) error {
	return c.do(ctx, http.MethodPost, "/api/users/"+escape(id)+"/suspend", nil, req, nil)
}

// UnsuspendUser — POST /api/users/{id}/unsuspend.
func (c *Client) UnsuspendUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/users/"+escape(id)+"/unsuspend", nil, nil, nil)
}

// ChangeUserEmail — PUT /api/users/{id}/email.
func (c *Client) ChangeUserEmail(ctx context.Context, id, email string) error {
	return c.do(ctx, http.MethodPut, "/api/users/"+escape(id)+"/email", nil, model.EmailChangeRequest{Email: email}, nil)
}

// ResetUserPassword — PUT /api/users/{id}/password.
func (c *Client) ResetUserPassword(ctx context.Context, id, password string) error {
	return c.do(ctx, http.MethodPut, "/api/users/"+escape(id)+"/password", nil, model.PasswordResetRequest{Password: password}, nil)
}

// ChangeUserRole — PUT /api/users/{id}/role.
func (c *Client) ChangeUserRole(ctx context.Context, id, role string) error {
	return c.do(ctx, http.MethodPut, "/api/users/"+escape(id)+"/role", nil, model.RoleChangeRequest{Role: role}, nil)
}

// DeleteUser — DELETE /api/users/{id} (окончательное удаление).
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/users/"+escape(id), nil, nil, nil)
}
