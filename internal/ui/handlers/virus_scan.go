// virus_scan.go — антивирус: настройки арендатора, метрики сканера (SSE),
// вкладки истории проверок и карантина с догрузкой страниц.
// Состояние списков хранится на сервере по идентификатору сессии UI.
package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
	"github.com/bigkaa/docvault/admin-module/internal/service"
	"github.com/bigkaa/docvault/admin-module/internal/ui/auth"
	"github.com/bigkaa/docvault/admin-module/internal/ui/i18n"
	"github.com/bigkaa/docvault/admin-module/internal/ui/pages"
	"github.com/bigkaa/docvault/admin-module/internal/ui/pages/partials"
)

// VirusScanHandler — обработчики страницы антивируса (admin).
type VirusScanHandler struct {
	scans *service.VirusScanService
	// sseInterval — период отправки метрик по SSE
	sseInterval time.Duration
	logger      *slog.Logger
}

// NewVirusScanHandler создаёт новый VirusScanHandler.
func NewVirusScanHandler(scans *service.VirusScanService, sseInterval time.Duration, logger *slog.Logger) *VirusScanHandler {
	return &VirusScanHandler{
		scans:       scans,
		sseInterval: sseInterval,
		logger:      logger.With(slog.String("component", "ui.virus_scan")),
	}
}

// HandlePage обрабатывает GET /admin/settings/virus-scan?tab=.
// Открытие страницы сбрасывает список выбранной вкладки.
func (h *VirusScanHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	ctx := r.Context()
	data := pages.VirusScanData{Layout: layout(session, "title.virus_scan", "virus_scan")}

	st, err := h.scans.Settings(ctx)
	if err != nil {
		h.logger.Warn("Настройки антивируса недоступны", slog.String("error", err.Error()))
		data.Error = pageError(r, err)
	} else {
		data.Settings = *st
	}

	if m, err := h.scans.Metrics(ctx); err != nil {
		h.logger.Warn("Метрики антивируса недоступны", slog.String("error", err.Error()))
	} else {
		data.Metrics = m
	}

	tab, err := service.ParseScanTab(r.URL.Query().Get("tab"))
	if err != nil {
		tab = service.TabHistory
	}
	data.List, _ = h.openList(r, session, tab)

	renderPage(w, r, h.logger, http.StatusOK, pages.VirusScan(data))
}

// HandleUpdateSettings обрабатывает POST /admin/settings/virus-scan.
func (h *VirusScanHandler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderAlert(w, r, h.logger, http.StatusBadRequest, alertError, "Ошибка разбора формы: "+err.Error())
		return
	}

	st := model.TenantScanSettings{
		Enabled:      checkbox(r.PostFormValue("enabled")),
		ScanOnUpload: checkbox(r.PostFormValue("scan_on_upload")),
		Action:       model.ScanAction(r.PostFormValue("action_on_detection")),
	}
	var err error
	if st.MaxFileSizeMB, err = formInt(r, "max_file_size_mb"); err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	if st.ScanTimeoutSeconds, err = formInt(r, "scan_timeout_seconds"); err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	if _, err := h.scans.UpdateSettings(r.Context(), st); err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	h.logger.Info("Настройки антивируса обновлены",
		slog.Bool("enabled", st.Enabled),
		slog.String("action", string(st.Action)),
	)
	renderAlert(w, r, h.logger, http.StatusOK, alertSuccess, i18n.T(r.Context(), "alert.saved"))
}

// HandleList обрабатывает GET /admin/settings/virus-scan/list?tab= —
// переключение вкладки, список загружается заново с первой страницы.
func (h *VirusScanHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}
	tab, err := service.ParseScanTab(r.URL.Query().Get("tab"))
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	data, err := h.openList(r, session, tab)
	if errors.Is(err, service.ErrUnauthorized) {
		renderError(w, r, h.logger, err)
		return
	}
	renderFragment(w, r, h.logger, http.StatusOK, partials.ScanList(data))
}

// HandleMore обрабатывает GET /admin/settings/virus-scan/list/more?tab= —
// следующая страница со смещением, равным числу загруженных записей.
func (h *VirusScanHandler) HandleMore(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}
	tab, err := service.ParseScanTab(r.URL.Query().Get("tab"))
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	ctx := r.Context()
	data := partials.ScanListData{Tab: string(tab)}
	switch tab {
	case service.TabQuarantine:
		data.Quarantine, err = h.scans.MoreQuarantine(ctx, session.SessionID)
	default:
		data.History, err = h.scans.MoreHistory(ctx, session.SessionID)
	}
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			renderError(w, r, h.logger, err)
			return
		}
		h.logger.Warn("Ошибка догрузки списка",
			slog.String("tab", string(tab)),
			slog.String("error", err.Error()),
		)
		data.Error = pageError(r, err)
	}
	renderFragment(w, r, h.logger, http.StatusOK, partials.ScanList(data))
}

// HandleDeleteQuarantined обрабатывает DELETE /admin/settings/virus-scan/quarantine/{id}.
// При ошибке список остаётся прежним, ошибка выводится над ним.
func (h *VirusScanHandler) HandleDeleteQuarantined(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	id := chi.URLParam(r, "id")
	snap, err := h.scans.DeleteQuarantined(r.Context(), session.SessionID, id)
	data := partials.ScanListData{Tab: string(service.TabQuarantine), Quarantine: snap}
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			renderError(w, r, h.logger, err)
			return
		}
		data.Error = pageError(r, err)
	} else {
		h.logger.Info("Файл удалён из карантина", slog.String("id", id))
	}
	renderFragment(w, r, h.logger, http.StatusOK, partials.ScanList(data))
}

// HandleEvents обрабатывает GET /admin/settings/virus-scan/events — SSE.
// Периодически отправляет событие metrics с HTML блока состояния сканера.
// Формат: event: metrics\ndata: <html>\n\n
func (h *VirusScanHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// ResponseController находит http.Flusher через Unwrap() обёрток middleware.
	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		http.Error(w, "SSE не поддерживается", http.StatusInternalServerError)
		return
	}
	// Поток живёт дольше WriteTimeout сервера.
	_ = rc.SetWriteDeadline(time.Time{})

	h.logger.Debug("SSE клиент подключён", slog.String("username", session.Username))

	ticker := time.NewTicker(h.sseInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("SSE клиент отключён", slog.String("username", session.Username))
			return
		case <-ticker.C:
			if err := h.sendMetrics(w, r, rc); err != nil {
				h.logger.Debug("SSE запись прервана", slog.String("error", err.Error()))
				return
			}
		}
	}
}

// sendMetrics отправляет одно событие metrics. Недоступный сканер
// отображается блоком «состояние недоступно».
func (h *VirusScanHandler) sendMetrics(w http.ResponseWriter, r *http.Request, rc *http.ResponseController) error {
	ctx := r.Context()
	m, err := h.scans.Metrics(ctx)
	if err != nil {
		h.logger.Warn("Ошибка получения метрик для SSE", slog.String("error", err.Error()))
		m = nil
	}

	var buf bytes.Buffer
	if err := partials.ScanMetrics(m).Render(ctx, &buf); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, sseEvent("metrics", buf.String())); err != nil {
		return err
	}
	return rc.Flush()
}

// openList сбрасывает и загружает первую страницу вкладки.
func (h *VirusScanHandler) openList(r *http.Request, session *auth.SessionData, tab service.ScanTab) (partials.ScanListData, error) {
	ctx := r.Context()
	data := partials.ScanListData{Tab: string(tab)}

	var err error
	switch tab {
	case service.TabQuarantine:
		data.Quarantine, err = h.scans.OpenQuarantine(ctx, session.SessionID)
	default:
		data.History, err = h.scans.OpenHistory(ctx, session.SessionID)
	}
	if err != nil {
		h.logger.Warn("Ошибка загрузки списка",
			slog.String("tab", string(tab)),
			slog.String("error", err.Error()),
		)
		data.Error = pageError(r, err)
	}
	return data, err
}

// sseEvent форматирует событие SSE; каждая строка данных — отдельное поле data.
func sseEvent(name, payload string) string {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(name)
	b.WriteByte('\n')
	for _, line := range strings.Split(payload, "\n") {
		b.WriteString("data: ")
		b.WriteString(strings.TrimRight(line, "\r"))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}
