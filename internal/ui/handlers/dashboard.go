package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
	"github.com/bigkaa/docvault/admin-module/internal/domain/rbac"
	"github.com/bigkaa/docvault/admin-module/internal/ui/pages"
)

// ScanMetricsSource — метрики антивируса для главной страницы.
type ScanMetricsSource interface {
	Metrics(ctx context.Context) (*model.ScanMetrics, error)
}

// DashboardHandler — обработчик главной страницы.
type DashboardHandler struct {
	metrics ScanMetricsSource
	logger  *slog.Logger
}

// NewDashboardHandler создаёт новый DashboardHandler.
// metrics может быть nil: блок состояния антивируса не показывается.
func NewDashboardHandler(metrics ScanMetricsSource, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		metrics: metrics,
		logger:  logger.With(slog.String("component", "ui.dashboard")),
	}
}

// HandleDashboard обрабатывает GET /admin/ — разделы, доступные роли.
// Администратор дополнительно видит состояние антивируса.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	data := pages.DashboardData{Layout: layout(session, "title.dashboard", "dashboard")}
	if h.metrics != nil && rbac.CanManageSettings(session.Role) {
		m, err := h.metrics.Metrics(r.Context())
		if err != nil {
			h.logger.Warn("Метрики антивируса недоступны", slog.String("error", err.Error()))
		} else {
			data.Metrics = m
		}
	}

	renderPage(w, r, h.logger, http.StatusOK, pages.Dashboard(data))
}
