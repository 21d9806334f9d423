package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
)

// ListFileRequests — GET /api/file-requests?visibility=.
// Пустой режим — без фильтра.
func (c *Client) ListFileRequests(ctx context.Context, visibility model.VisibilityMode) ([]model.FileRequest, error) {
	var q url.Values
	if visibility != model.VisibilityAll {
		q = url.Values{"visibility": {string(visibility)}}
	}
	var out []model.FileRequest
	if err := c.do(ctx, http.MethodGet, "/api/file-requests", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateFileRequest — POST /api/file-requests.
func (c *Client) CreateFileRequest(ctx context.Context, req model.FileRequestCreate) (*model.FileRequest, error) {
	var out model.FileRequest
	if err := c.do(ctx, http.MethodPost, "/api/file-requests", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFileRequest — GET /api/file-requests/{id}.
func (c *Client) GetFileRequest(ctx context.Context, id string) (*model.FileRequest, error) {
	var out model.FileRequest
	if err := c.do(ctx, http.MethodGet, "/api/file-requests/"+escape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeFileRequest — DELETE /api/file-requests/{id} (мягкий отзыв).
func (c *Client) RevokeFileRequest(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/file-requests/"+escape(id), nil, nil, nil)
}

// DeleteFileRequest — DELETE /api/file-requests/{id}/permanent (окончательное удаление).
func (c *Client) DeleteFileRequest(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/file-requests/"+escape(id)+"/permanent", nil, nil, nil)
}

// ListUploads — GET /api/file-requests/{id}/uploads.
func (c *Client) ListUploads(ctx context.Context, id string) ([]model.Upload, error) {
	var out []model.Upload
	if err := c.do(ctx, http.MethodGet, "/api/file-requests/"+escape(id)+"/uploads", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
