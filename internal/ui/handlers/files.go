// files.go — файлы компании: обзор по отделам и папкам, журнал активности
// файла в модальном окне, выгрузка журнала в CSV или XLSX.
package handlers

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/docvault/admin-module/internal/service"
	"github.com/bigkaa/docvault/admin-module/internal/ui/i18n"
	"github.com/bigkaa/docvault/admin-module/internal/ui/pages"
	"github.com/bigkaa/docvault/admin-module/internal/ui/pages/partials"
)

// FilesHandler — обработчики обзора файлов.
type FilesHandler struct {
	files  *service.FileService
	logger *slog.Logger
}

// NewFilesHandler создаёт новый FilesHandler.
func NewFilesHandler(files *service.FileService, logger *slog.Logger) *FilesHandler {
	return &FilesHandler{
		files:  files,
		logger: logger.With(slog.String("component", "ui.files")),
	}
}

// HandleList обрабатывает GET /admin/files?department=&folder=.
// Файлы берутся из дерева компании текущего пользователя.
func (h *FilesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	ctx := r.Context()
	q := r.URL.Query()
	data := pages.FilesData{
		Layout:     layout(session, "title.files", "files"),
		Company:    session.Company,
		Department: q.Get("department"),
		Folder:     q.Get("folder"),
	}

	departments, err := h.files.Departments(ctx)
	if err != nil {
		h.logger.Warn("Список отделов недоступен", slog.String("error", err.Error()))
	}
	data.Departments = departments

	data.Files, err = h.files.List(ctx, session.Company, data.Department, data.Folder)
	if err != nil {
		h.logger.Warn("Ошибка получения файлов",
			slog.String("company", session.Company),
			slog.String("error", err.Error()),
		)
		data.Error = pageError(r, err)
	}

	renderPage(w, r, h.logger, http.StatusOK, pages.Files(data))
}

// HandleActivity обрабатывает GET /admin/files/{id}/activity?name= —
// модальное окно журнала действий с файлом.
func (h *FilesHandler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	fileID := chi.URLParam(r, "id")
	acts, err := h.files.Activity(r.Context(), session.Company, fileID)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	renderFragment(w, r, h.logger, http.StatusOK, partials.FileActivity(partials.ActivityData{
		Company:    session.Company,
		FileID:     fileID,
		FileName:   r.URL.Query().Get("name"),
		Activities: acts,
	}))
}

// HandleExport обрабатывает GET /admin/files/{id}/activity/export?format=&name=.
// Пустой журнал не формирует файл: вместо вложения возвращается уведомление.
func (h *FilesHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	q := r.URL.Query()
	format, err := service.ParseExportFormat(q.Get("format"))
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	exp, err := h.files.ExportActivity(r.Context(), session.Company, chi.URLParam(r, "id"), q.Get("name"), format)
	if errors.Is(err, service.ErrNothingToExport) {
		renderAlert(w, r, h.logger, http.StatusOK, alertInfo, i18n.T(r.Context(), "alert.export_empty"))
		return
	}
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", exp.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": exp.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(exp.Data)))
	if _, err := w.Write(exp.Data); err != nil {
		h.logger.Warn("Ошибка отправки выгрузки", slog.String("error", err.Error()))
	}
}
