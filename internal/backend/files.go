package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
)

// ListFiles — GET /api/files/{company}?department=&path=.
func (c *Client) ListFiles(ctx context.Context, company, department, folder string) ([]model.FileEntry, error) {
	q := url.Values{}
	if department != "" {
		q.Set("department", department)
	}
	if folder != "" {
		q.Set("path", folder)
	}
	var out []model.FileEntry
	if err := c.do(ctx, http.MethodGet, "/api/files/"+escape(company), q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListActivity — GET /api/files/{company}/{file}/activity.
func (c *Client) ListActivity(ctx context.Context, company, fileID string) ([]model.Activity, error) {
	var out []model.Activity
	path := "/api/files/" + escape(company) + "/" + escape(fileID) + "/activity"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListDepartments — GET /api/departments.
func (c *Client) ListDepartments(ctx context.Context) ([]model.Department, error) {
	var out []model.Department
	if err := c.do(ctx, http.MethodGet, "/api/departments", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
