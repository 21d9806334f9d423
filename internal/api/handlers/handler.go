// handler.go — JSON API Admin Module (/api/v1).
// Небольшой набор endpoints для скриптов и интеграций: текущий
// пользователь, журнал действий администраторов, предпросмотр шаблона.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bigkaa/docvault/admin-module/internal/service"
)

// APIHandler — обработчик JSON API.
type APIHandler struct {
	health    *HealthHandler
	templates *service.TemplateService
	audit     *service.AuditService
	logger    *slog.Logger
}

// NewAPIHandler создаёт обработчик JSON API.
func NewAPIHandler(
	health *HealthHandler,
	templates *service.TemplateService,
	audit *service.AuditService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:    health,
		templates: templates,
		audit:     audit,
		logger:    logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// paginationParams читает limit/offset из query.
// limit: по умолчанию 50, в пределах 1..500; offset >= 0.
func paginationParams(r *http.Request) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = min(max(v, 1), 500)
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
