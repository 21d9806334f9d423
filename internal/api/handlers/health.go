// health.go — пробы и метрики Admin Module.
// /health/live — процесс жив, /health/ready — PostgreSQL, Keycloak и
// backend API доступны, /metrics — Prometheus.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/docvault/admin-module/internal/config"
)

const serviceName = "admin-module"

// readinessTimeout — общий бюджет проверки зависимостей.
const readinessTimeout = 5 * time.Second

// ReadinessChecker — проверка готовности зависимости.
type ReadinessChecker interface {
	// CheckReady возвращает статус ("ok", "degraded", "fail") и сообщение.
	CheckReady(ctx context.Context) (status string, message string)
}

// HealthHandler — обработчик проб и метрик.
type HealthHandler struct {
	checkers    map[string]ReadinessChecker
	promHandler http.Handler
}

// NewHealthHandler создаёт обработчик проб.
// nil-проверка даёт "fail" для своей зависимости.
func NewHealthHandler(pgChecker, kcChecker, backendChecker ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		checkers: map[string]ReadinessChecker{
			"postgresql": pgChecker,
			"keycloak":   kcChecker,
			"backend":    backendChecker,
		},
		promHandler: promhttp.Handler(),
	}
}

type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthLiveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
}

type healthReadyResponse struct {
	healthLiveResponse
	Checks map[string]healthCheckResult `json:"checks"`
}

// HealthLive — liveness probe.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthLiveResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	})
}

// HealthReady — readiness probe. Зависимости проверяются параллельно.
// 200 для ok/degraded, 503 для fail.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	results := make([]healthCheckResult, len(names))

	var g errgroup.Group
	for i, name := range names {
		checker := h.checkers[name]
		g.Go(func() error {
			if checker == nil {
				results[i] = healthCheckResult{Status: "fail", Message: "не инициализирован"}
				return nil
			}
			status, msg := checker.CheckReady(ctx)
			results[i] = healthCheckResult{Status: status, Message: msg}
			return nil
		})
	}
	_ = g.Wait()

	resp := healthReadyResponse{
		healthLiveResponse: healthLiveResponse{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   config.Version,
			Service:   serviceName,
		},
		Checks: make(map[string]healthCheckResult, len(names)),
	}
	statuses := make([]string, 0, len(names))
	for i, name := range names {
		resp.Checks[name] = results[i]
		statuses = append(statuses, results[i].Status)
	}
	resp.Status = overallStatus(statuses...)

	code := http.StatusOK
	if resp.Status == "fail" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// GetMetrics — Prometheus метрики.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}

// overallStatus: fail, если есть хоть один fail; degraded, если есть
// degraded; иначе ok.
func overallStatus(statuses ...string) string {
	hasDegraded := false
	for _, s := range statuses {
		if s == "fail" {
			return "fail"
		}
		if s == "degraded" {
			hasDegraded = true
		}
	}
	if hasDegraded {
		return "degraded"
	}
	return "ok"
}
