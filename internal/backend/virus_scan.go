package backend

import (
	"context"
	"net/http"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
)

const virusScanPrefix = "/api/admin/virus-scan"

// GetScanSettings — GET /api/admin/virus-scan/settings.
func (c *Client) GetScanSettings(ctx context.Context) (*model.TenantScanSettings, error) {
	var out model.TenantScanSettings
	if err := c.do(ctx, http.MethodGet, virusScanPrefix+"/settings", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateScanSettings — PUT /api/admin/virus-scan/settings.
func (c *Client) UpdateScanSettings(ctx context.Context, s model.TenantScanSettings) (*model.TenantScanSettings, error) {
	var out model.TenantScanSettings
	if err := c.do(ctx, http.MethodPut, virusScanPrefix+"/settings", nil, s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetScanMetrics — GET /api/admin/virus-scan/metrics.
func (c *Client) GetScanMetrics(ctx context.Context) (*model.ScanMetrics, error) {
	var out model.ScanMetrics
	if err := c.do(ctx, http.MethodGet, virusScanPrefix+"/metrics", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListScanHistory — GET /api/admin/virus-scan/history?offset=&limit=.
func (c *Client) ListScanHistory(ctx context.Context, offset, limit int) (*model.Page[model.ScanResult], error) {
	var out model.Page[model.ScanResult]
	if err := c.do(ctx, http.MethodGet, virusScanPrefix+"/history", pageQuery(offset, limit), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListQuarantine — GET /api/admin/virus-scan/quarantine?offset=&limit=.
func (c *Client) ListQuarantine(ctx context.Context, offset, limit int) (*model.Page[model.QuarantinedFile], error) {
	var out model.Page[model.QuarantinedFile]
	if err := c.do(ctx, http.MethodGet, virusScanPrefix+"/quarantine", pageQuery(offset, limit), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteQuarantined — DELETE /api/admin/virus-scan/quarantine/{id}.
func (c *Client) DeleteQuarantined(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, virusScanPrefix+"/quarantine/"+escape(id), nil, nil, nil)
}
