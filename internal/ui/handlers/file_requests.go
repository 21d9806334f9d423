// file_requests.go — запросы файлов: список с фильтром видимости, создание,
// окно подробностей, отзыв и удаление.
package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
	"github.com/bigkaa/docvault/admin-module/internal/service"
	"github.com/bigkaa/docvault/admin-module/internal/ui/pages"
	"github.com/bigkaa/docvault/admin-module/internal/ui/pages/partials"
)

// FileRequestsHandler — обработчики страницы запросов файлов.
type FileRequestsHandler struct {
	requests *service.FileRequestService
	logger   *slog.Logger
}

// NewFileRequestsHandler создаёт новый FileRequestsHandler.
func NewFileRequestsHandler(requests *service.FileRequestService, logger *slog.Logger) *FileRequestsHandler {
	return &FileRequestsHandler{
		requests: requests,
		logger:   logger.With(slog.String("component", "ui.file_requests")),
	}
}

// HandleList обрабатывает GET /admin/file-requests?visibility=.
func (h *FileRequestsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	visibility := r.URL.Query().Get("visibility")
	data := pages.FileRequestsData{
		Layout:     layout(session, "title.file_requests", "file_requests"),
		Visibility: visibility,
	}

	rows, err := h.rows(r, visibility)
	if err != nil {
		h.logger.Warn("Ошибка получения запросов файлов", slog.String("error", err.Error()))
		data.Error = pageError(r, err)
	}
	data.Rows = rows

	renderPage(w, r, h.logger, http.StatusOK, pages.FileRequests(data))
}

// HandleCreate обрабатывает POST /admin/file-requests.
// Возвращает фрагмент со ссылкой созданного запроса.
func (h *FileRequestsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderAlert(w, r, h.logger, http.StatusBadRequest, alertError, "Ошибка разбора формы: "+err.Error())
		return
	}

	ctx := r.Context()
	req := model.FileRequestCreate{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		Destination: r.PostFormValue("destination"),
		Visibility:  model.VisibilityMode(r.PostFormValue("visibility")),
	}

	var err error
	if req.ExpiresAt, err = parseEndOfDay(ctx, r.PostFormValue("expires_at")); err != nil {
		renderError(w, r, h.logger, fmt.Errorf("%w: %v", service.ErrValidation, err))
		return
	}
	if req.MaxUploads, err = parseOptionalInt(r.PostFormValue("max_uploads")); err != nil {
		renderError(w, r, h.logger, fmt.Errorf("%w: %v", service.ErrValidation, err))
		return
	}

	created, err := h.requests.Create(ctx, req)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Запрос файлов создан",
		slog.String("id", created.ID),
		slog.String("name", created.Name),
	)
	renderFragment(w, r, h.logger, http.StatusOK, partials.FileRequestCreated(*created))
}

// HandleDetails обрабатывает GET /admin/file-requests/{id} — модальное окно.
func (h *FileRequestsHandler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.requests.Details(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	renderFragment(w, r, h.logger, http.StatusOK, partials.FileRequestDetails(partials.FileRequestDetailsData{
		Request: *details.Request,
		Status:  h.requests.EffectiveStatus(details.Request),
		Uploads: details.Uploads,
	}))
}

// HandleRevoke обрабатывает POST /admin/file-requests/{id}/revoke.
func (h *FileRequestsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.requests.Revoke(r.Context(), id); err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	h.logger.Info("Запрос файлов отозван", slog.String("id", id))
	h.renderTable(w, r)
}

// HandleDelete обрабатывает DELETE /admin/file-requests/{id}.
// Активный запрос удалить нельзя, его сначала нужно отозвать.
func (h *FileRequestsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.requests.Delete(r.Context(), id); err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	h.logger.Info("Запрос файлов удалён", slog.String("id", id))
	h.renderTable(w, r)
}

// renderTable — обновлённая таблица после изменения запроса.
func (h *FileRequestsHandler) renderTable(w http.ResponseWriter, r *http.Request) {
	rows, err := h.rows(r, "")
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	renderFragment(w, r, h.logger, http.StatusOK, partials.FileRequestsTable(rows))
}

func (h *FileRequestsHandler) rows(r *http.Request, visibility string) ([]partials.FileRequestRow, error) {
	list, err := h.requests.List(r.Context(), visibility)
	if err != nil {
		return nil, err
	}
	rows := make([]partials.FileRequestRow, 0, len(list))
	for i := range list {
		rows = append(rows, partials.FileRequestRow{
			Request: list[i],
			Status:  h.requests.EffectiveStatus(&list[i]),
		})
	}
	return rows, nil
}
