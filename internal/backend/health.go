package backend

import (
	"context"
	"fmt"
	"net/http"
)

// HealthPath — публичный endpoint проверки backend, используется также topologymetrics.
const HealthPath = "/health"

// Ping проверяет доступность backend (GET /health, без авторизации).
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+HealthPath, nil)
	if err != nil {
		return fmt.Errorf("создание запроса health: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("запрос health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend health вернул статус %d", resp.StatusCode)
	}
	return nil
}

// CheckReady — проверка готовности для /health/ready: "ok" или "fail".
func (c *Client) CheckReady(ctx context.Context) (status, message string) {
	if err := c.Ping(ctx); err != nil {
		return "fail", err.Error()
	}
	return "ok", "backend API доступен"
}
