// settings.go — глобальные настройки арендатора для каждой страницы UI.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
	"github.com/bigkaa/docvault/admin-module/internal/domain/rbac"
	"github.com/bigkaa/docvault/admin-module/internal/service"
	"github.com/bigkaa/docvault/admin-module/internal/ui/components"
	"github.com/bigkaa/docvault/admin-module/internal/ui/pages"
)

// SettingsLoader — источник глобальных настроек с форматированием дат.
type SettingsLoader interface {
	service.Formatter
	Ensure(ctx context.Context) (model.GlobalSettings, error)
}

// Settings загружает настройки (с кэшем по TTL) и кладёт их в контекст
// для шаблонов. Ошибка загрузки не прерывает запрос: страница
// отображается с последним снимком или значениями по умолчанию.
// В режиме обслуживания пользователи ниже admin видят только сообщение.
func Settings(loader SettingsLoader, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "ui_settings_middleware"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gs, err := loader.Ensure(r.Context())
			if err != nil {
				logger.Warn("Глобальные настройки недоступны",
					slog.String("error", err.Error()),
				)
			}
			ctx := components.WithSettings(r.Context(), gs, loader)

			if gs.MaintenanceMode {
				if session := SessionFromContext(ctx); session != nil && !rbac.AtLeast(session.Role, rbac.RoleAdmin) {
					w.Header().Set("Content-Type", "text/html; charset=utf-8")
					w.WriteHeader(http.StatusServiceUnavailable)
					if err := pages.Maintenance(gs.MaintenanceMessage).Render(ctx, w); err != nil {
						logger.Error("Ошибка рендеринга страницы обслуживания",
							slog.String("error", err.Error()),
						)
					}
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
