package backend

import (
	"context"
	"net/http"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
)

// ListTenantTemplates — GET /api/email-templates.
func (c *Client) ListTenantTemplates(ctx context.Context) ([]model.EmailTemplate, error) {
	var out []model.EmailTemplate
	if err := c.do(ctx, http.MethodGet, "/api/email-templates", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTenantTemplate — GET /api/email-templates/{key}.
func (c *Client) GetTenantTemplate(ctx context.Context, key string) (*model.EmailTemplate, error) {
	var out model.EmailTemplate
	if err := c.do(ctx, http.MethodGet, "/api/email-templates/"+escape(key), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CustomizeTenantTemplate — PUT /api/email-templates/{key}.
func (c *Client) CustomizeTenantTemplate(ctx context.Context, key string, upd model.EmailTemplateUpdate) (*model.EmailTemplate, error) {
	var out model.EmailTemplate
	if err := c.do(ctx, http.MethodPut, "/api/email-templates/"+escape(key), nil, upd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResetTenantTemplate — DELETE /api/email-templates/{key}: сброс к системному шаблону.
func (c *Client) ResetTenantTemplate(ctx context.Context, key string) error {
	return c.do(ctx, http.MethodDelete, "/api/email-templates/"+escape(key), nil, nil, nil)
}

// ListSystemTemplates — GET /api/settings/email-templates.
func (c *Client) ListSystemTemplates(ctx context.Context) ([]model.EmailTemplate, error) {
	var out []model.EmailTemplate
	if err := c.do(ctx, http.MethodGet, "/api/settings/email-templates", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateSystemTemplate — PUT /api/settings/email-templates/{key}.
func (c *Client) UpdateSystemTemplate(ctx context.Context, key string, upd model.EmailTemplateUpdate) (*model.EmailTemplate, error) {
	var out model.EmailTemplate
	if err := c.do(ctx, http.MethodPut, "/api/settings/email-templates/"+escape(key), nil, upd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
