// users.go — пользователи: список с поиском и модальное окно управления
// (блокировка, email, пароль, роль, окончательное удаление).
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
	"github.com/bigkaa/docvault/admin-module/internal/domain/rbac"
	"github.com/bigkaa/docvault/admin-module/internal/service"
	"github.com/bigkaa/docvault/admin-module/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/docvault/admin-module/internal/ui/middleware"
	"github.com/bigkaa/docvault/admin-module/internal/ui/pages"
	"github.com/bigkaa/docvault/admin-module/internal/ui/pages/partials"
)

// UsersHandler — обработчики управления пользователями (admin).
type UsersHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewUsersHandler создаёт новый UsersHandler.
func NewUsersHandler(users *service.UserService, logger *slog.Logger) *UsersHandler {
	return &UsersHandler{
		users:  users,
		logger: logger.With(slog.String("component", "ui.users")),
	}
}

// HandleList обрабатывает GET /admin/users?q=.
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	search := r.URL.Query().Get("q")
	data := pages.UsersData{
		Layout: layout(session, "title.users", "users"),
		Search: search,
	}

	users, err := h.users.List(r.Context(), search)
	if err != nil {
		h.logger.Warn("Ошибка получения пользователей", slog.String("error", err.Error()))
		data.Error = pageError(r, err)
	}
	data.Users = users

	renderPage(w, r, h.logger, http.StatusOK, pages.Users(data))
}

// HandleModal обрабатывает GET /admin/users/{id} — окно управления.
func (h *UsersHandler) HandleModal(w http.ResponseWriter, r *http.Request) {
	h.renderModal(w, r, chi.URLParam(r, "id"), "")
}

// HandleSuspend обрабатывает POST /admin/users/{id}/suspend.
// Временная блокировка без даты окончания отклоняется до запроса к backend.
func (h *UsersHandler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "alert.user_suspended", func(ctx context.Context, id string) error {
		until, err := parseEndOfDay(ctx, r.PostFormValue("until_date"))
		if err != nil {
			return fmt.Errorf("%w: %v", service.ErrValidation, err)
		}
		return h.users.Suspend(ctx, id, service.SuspendInput{
			Type:      model.SuspensionType(r.PostFormValue("suspension_type")),
			UntilDate: until,
			Reason:    r.PostFormValue("reason"),
		})
	})
}

// HandleUnsuspend обрабатывает POST /admin/users/{id}/unsuspend.
func (h *UsersHandler) HandleUnsuspend(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "alert.user_unsuspended", h.users.Unsuspend)
}

// HandleEmail обрабатывает POST /admin/users/{id}/email.
func (h *UsersHandler) HandleEmail(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "alert.email_changed", func(ctx context.Context, id string) error {
		return h.users.ChangeEmail(ctx, id, r.PostFormValue("email"), r.PostFormValue("email_confirm"))
	})
}

// HandlePassword обрабатывает POST /admin/users/{id}/password.
func (h *UsersHandler) HandlePassword(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "alert.password_reset", func(ctx context.Context, id string) error {
		return h.users.ResetPassword(ctx, id, r.PostFormValue("password"), r.PostFormValue("password_confirm"))
	})
}

// HandleRole обрабатывает POST /admin/users/{id}/role.
func (h *UsersHandler) HandleRole(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "alert.role_changed", func(ctx context.Context, id string) error {
		return h.users.ChangeRole(ctx, id, r.PostFormValue("role"))
	})
}

// HandleDeleteCheck обрабатывает POST /admin/users/{id}/delete-check.
// Возвращает кнопку удаления, активную только при совпадении введённого
// текста с email пользователя.
func (h *UsersHandler) HandleDeleteCheck(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	u, err := h.users.Get(r.Context(), id)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	enabled := service.CanDeletePermanently(u, r.PostFormValue("confirm"))
	renderFragment(w, r, h.logger, http.StatusOK, partials.DeleteUserButton(id, enabled))
}

// HandleDelete обрабатывает POST /admin/users/{id}/delete.
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := h.users.Get(ctx, chi.URLParam(r, "id"))
	if err == nil {
		err = h.users.DeletePermanently(ctx, u, r.PostFormValue("confirm"))
	}
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	renderFragment(w, r, h.logger, http.StatusOK, partials.UserDeleted(u.Email))
}

// act выполняет действие над пользователем и перерисовывает окно
// с сообщением об успехе. Ошибка выводится в блок уведомлений окна.
func (h *UsersHandler) act(w http.ResponseWriter, r *http.Request, noticeKey string, action func(ctx context.Context, id string) error) {
	if err := r.ParseForm(); err != nil {
		renderAlert(w, r, h.logger, http.StatusBadRequest, alertError, "Ошибка разбора формы: "+err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	if err := action(r.Context(), id); err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	h.logger.Info("Действие над пользователем выполнено",
		slog.String("user_id", id),
		slog.String("action", noticeKey),
	)
	h.renderModal(w, r, id, i18n.T(r.Context(), noticeKey))
}

func (h *UsersHandler) renderModal(w http.ResponseWriter, r *http.Request, id, notice string) {
	u, err := h.users.Get(r.Context(), id)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	session := uimiddleware.SessionFromContext(r.Context())
	renderFragment(w, r, h.logger, http.StatusOK, partials.UserModal(partials.UserModalData{
		User:   *u,
		Self:   session != nil && session.Subject == u.ID,
		Roles:  rbac.Roles(),
		Notice: notice,
	}))
}
