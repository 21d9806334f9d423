// Пакет handlers — HTTP-обработчики Admin UI.
// render.go — общий рендеринг страниц, HTMX-фрагментов и уведомлений.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/bigkaa/docvault/admin-module/internal/service"
	"github.com/bigkaa/docvault/admin-module/internal/ui/auth"
	"github.com/bigkaa/docvault/admin-module/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/docvault/admin-module/internal/ui/middleware"
	"github.com/bigkaa/docvault/admin-module/internal/ui/pages"
	"github.com/bigkaa/docvault/admin-module/internal/ui/pages/partials"
)

// Варианты уведомлений.
const (
	alertSuccess = "success"
	alertError   = "error"
	alertInfo    = "info"
)

// requireSession возвращает сессию или отправляет на вход.
func requireSession(w http.ResponseWriter, r *http.Request) *auth.SessionData {
	session := uimiddleware.SessionFromContext(r.Context())
	if session == nil {
		if uimiddleware.IsHTMX(r) {
			w.Header().Set("HX-Redirect", "/admin/login")
			w.WriteHeader(http.StatusUnauthorized)
			return nil
		}
		http.Redirect(w, r, "/admin/login", http.StatusFound)
	}
	return session
}

// layout — данные шапки страницы для текущего пользователя.
func layout(session *auth.SessionData, title, active string) pages.Layout {
	return pages.Layout{
		Title:    title,
		Active:   active,
		Username: session.DisplayName(),
		Role:     session.Role,
	}
}

// renderPage отрисовывает полную страницу.
func renderPage(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := c.Render(r.Context(), w); err != nil {
		logger.Error("Ошибка рендеринга страницы",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		if status == http.StatusOK {
			http.Error(w, "Ошибка рендеринга страницы", http.StatusInternalServerError)
		}
	}
}

// renderFragment отрисовывает фрагмент для HTMX-ответа.
func renderFragment(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := c.Render(r.Context(), w); err != nil {
		logger.Error("Ошибка рендеринга фрагмента",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}

// renderAlert отрисовывает уведомление. Ответ с кодом не 2xx скрипт
// страницы выводит в ближайший блок уведомлений.
func renderAlert(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, variant, msg string) {
	renderFragment(w, r, logger, status, partials.Alert(variant, msg))
}

// renderError переводит ошибку сервиса в код ответа и уведомление.
// Истёкшая сессия отправляет страницу на повторный вход.
func renderError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, msg := errorStatus(r, err)
	switch status {
	case http.StatusUnauthorized:
		if uimiddleware.IsHTMX(r) {
			w.Header().Set("HX-Redirect", "/admin/login")
		}
	case http.StatusBadGateway, http.StatusInternalServerError:
		logger.Error("Ошибка обработки запроса",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	default:
		logger.Debug("Запрос отклонён",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	renderAlert(w, r, logger, status, alertError, msg)
}

// errorStatus — HTTP-код и текст уведомления для ошибки сервиса.
// Ошибки валидации показываются с текстом причины.
func errorStatus(r *http.Request, err error) (int, string) {
	ctx := r.Context()
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, i18n.T(ctx, "alert.session_expired")
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, i18n.T(ctx, "alert.forbidden")
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, i18n.T(ctx, "alert.not_found")
	case errors.Is(err, service.ErrBackendUnavailable):
		return http.StatusBadGateway, i18n.T(ctx, "alert.backend_unavailable")
	default:
		return http.StatusInternalServerError, i18n.T(ctx, "alert.error")
	}
}

// pageError — текст ошибки для блока на полной странице.
func pageError(r *http.Request, err error) string {
	_, msg := errorStatus(r, err)
	return msg
}
