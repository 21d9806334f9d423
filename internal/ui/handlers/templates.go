// templates.go — шаблоны писем: список, редактор с предпросмотром, сброс.
// Шаблоны арендатора (manager+) и системные шаблоны (admin) используют
// одни и те же страницы, отличается только базовый путь.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
	"github.com/bigkaa/docvault/admin-module/internal/service"
	uimiddleware "github.com/bigkaa/docvault/admin-module/internal/ui/middleware"
	"github.com/bigkaa/docvault/admin-module/internal/ui/pages"
	"github.com/bigkaa/docvault/admin-module/internal/ui/pages/partials"
)

// Базовые пути редактора.
const (
	tenantTemplatesPath = "/admin/email-templates"
	systemTemplatesPath = "/admin/settings/email-templates"
)

// TemplatesHandler — обработчики шаблонов писем.
type TemplatesHandler struct {
	templates *service.TemplateService
	logger    *slog.Logger
}

// NewTemplatesHandler создаёт новый TemplatesHandler.
func NewTemplatesHandler(templates *service.TemplateService, logger *slog.Logger) *TemplatesHandler {
	return &TemplatesHandler{
		templates: templates,
		logger:    logger.With(slog.String("component", "ui.templates")),
	}
}

// HandleTenantList обрабатывает GET /admin/email-templates.
func (h *TemplatesHandler) HandleTenantList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

// HandleSystemList обрабатывает GET /admin/settings/email-templates.
func (h *TemplatesHandler) HandleSystemList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *TemplatesHandler) list(w http.ResponseWriter, r *http.Request, system bool) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	data := pages.TemplateListData{
		Layout: layout(session, listTitle(system), listActive(system)),
		System: system,
	}

	var err error
	if system {
		data.Templates, err = h.templates.ListSystem(r.Context())
	} else {
		data.Templates, err = h.templates.List(r.Context())
	}
	if err != nil {
		h.logger.Warn("Ошибка получения шаблонов", slog.String("error", err.Error()))
		data.Error = pageError(r, err)
	}

	renderPage(w, r, h.logger, http.StatusOK, pages.EmailTemplates(data))
}

// HandleTenantEditor обрабатывает GET /admin/email-templates/{key}.
func (h *TemplatesHandler) HandleTenantEditor(w http.ResponseWriter, r *http.Request) {
	h.editor(w, r, false)
}

// HandleSystemEditor обрабатывает GET /admin/settings/email-templates/{key}.
func (h *TemplatesHandler) HandleSystemEditor(w http.ResponseWriter, r *http.Request) {
	h.editor(w, r, true)
}

func (h *TemplatesHandler) editor(w http.ResponseWriter, r *http.Request, system bool) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	tpl, err := h.get(r.Context(), chi.URLParam(r, "key"), system)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Warn("Ошибка получения шаблона", slog.String("error", err.Error()))
		data := pages.TemplateListData{
			Layout: layout(session, listTitle(system), listActive(system)),
			System: system,
			Error:  pageError(r, err),
		}
		renderPage(w, r, h.logger, http.StatusOK, pages.EmailTemplates(data))
		return
	}

	h.renderEditor(w, r, http.StatusOK, *tpl, system, "")
}

// HandleTenantSave обрабатывает POST /admin/email-templates/{key}.
func (h *TemplatesHandler) HandleTenantSave(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, false)
}

// HandleSystemSave обрабатывает POST /admin/settings/email-templates/{key}.
func (h *TemplatesHandler) HandleSystemSave(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, true)
}

// save сохраняет тему и текст. После успеха возвращает к списку, при
// ошибке редактор показывается снова с введёнными значениями.
func (h *TemplatesHandler) save(w http.ResponseWriter, r *http.Request, system bool) {
	session := requireSession(w, r)
	if session == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Ошибка разбора формы", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	key := chi.URLParam(r, "key")
	subject, body := r.PostFormValue("subject"), r.PostFormValue("body")

	var err error
	if system {
		_, err = h.templates.UpdateSystem(ctx, key, subject, body)
	} else {
		_, err = h.templates.Customize(ctx, key, subject, body)
	}
	if err == nil {
		h.logger.Info("Шаблон письма сохранён",
			slog.String("key", key),
			slog.Bool("system", system),
			slog.String("updated_by", session.Username),
		)
		http.Redirect(w, r, basePath(system), http.StatusSeeOther)
		return
	}

	status, msg := errorStatus(r, err)
	tpl, getErr := h.get(ctx, key, system)
	if getErr != nil {
		renderError(w, r, h.logger, err)
		return
	}
	tpl.Subject, tpl.Body = subject, body
	h.renderEditor(w, r, status, *tpl, system, msg)
}

// HandleReset обрабатывает POST /admin/email-templates/{key}/reset.
// Из списка (HTMX) возвращает обновлённую строку, из редактора —
// redirect к списку.
func (h *TemplatesHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	ctx := r.Context()
	key := chi.URLParam(r, "key")
	tpl, err := h.templates.Get(ctx, key)
	if err == nil {
		err = h.templates.Reset(ctx, tpl)
	}
	if err != nil {
		if !uimiddleware.IsHTMX(r) && tpl != nil {
			_, msg := errorStatus(r, err)
			h.renderEditor(w, r, http.StatusOK, *tpl, false, msg)
			return
		}
		renderError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Шаблон письма сброшен",
		slog.String("key", key),
		slog.String("updated_by", session.Username),
	)

	if !uimiddleware.IsHTMX(r) {
		http.Redirect(w, r, tenantTemplatesPath, http.StatusSeeOther)
		return
	}
	fresh, err := h.templates.Get(ctx, key)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	renderFragment(w, r, h.logger, http.StatusOK, partials.TemplateRow(*fresh, false))
}

// HandlePreview обрабатывает POST /admin/email-templates/preview.
// Подставляет данные предпросмотра в тему и текст из формы редактора.
func (h *TemplatesHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderAlert(w, r, h.logger, http.StatusBadRequest, alertError, err.Error())
		return
	}
	p := h.templates.Preview(r.Context(),
		r.PostFormValue("subject"),
		r.PostFormValue("body"),
		r.PostForm["variables"],
	)
	renderFragment(w, r, h.logger, http.StatusOK, partials.TemplatePreview(partials.NewPreviewData(p)))
}

func (h *TemplatesHandler) renderEditor(w http.ResponseWriter, r *http.Request, status int, tpl model.EmailTemplate, system bool, errMsg string) {
	session := uimiddleware.SessionFromContext(r.Context())
	active := listActive(system)
	data := pages.TemplateEditorData{
		Layout:   layout(session, "title.template_editor", active),
		Template: tpl,
		Preview:  partials.NewPreviewData(h.templates.Preview(r.Context(), tpl.Subject, tpl.Body, tpl.Variables)),
		System:   system,
		Error:    errMsg,
	}
	renderPage(w, r, h.logger, status, pages.EmailTemplateEditor(data))
}

func (h *TemplatesHandler) get(ctx context.Context, key string, system bool) (*model.EmailTemplate, error) {
	if system {
		return h.templates.GetSystem(ctx, key)
	}
	return h.templates.Get(ctx, key)
}

func basePath(system bool) string {
	if system {
		return systemTemplatesPath
	}
	return tenantTemplatesPath
}

func listTitle(system bool) string {
	if system {
		return "title.system_templates"
	}
	return "title.email_templates"
}

func listActive(system bool) string {
	if system {
		return "system_templates"
	}
	return "email_templates"
}
