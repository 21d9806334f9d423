// settings.go — глобальные настройки (admin): брендинг, общие параметры
// с данными предпросмотра писем и журналом действий, тексты страниц.
package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
	"github.com/bigkaa/docvault/admin-module/internal/emailtpl"
	"github.com/bigkaa/docvault/admin-module/internal/service"
	"github.com/bigkaa/docvault/admin-module/internal/ui/components"
	"github.com/bigkaa/docvault/admin-module/internal/ui/i18n"
	"github.com/bigkaa/docvault/admin-module/internal/ui/pages"
	"github.com/bigkaa/docvault/admin-module/internal/ui/pages/partials"
)

// auditPageSize — записей журнала на странице общих настроек.
const auditPageSize = 20

// samplePrefix — префикс полей формы данных предпросмотра.
const samplePrefix = "sample."

// timezones — часовые пояса, предлагаемые в форме.
var timezones = []string{
	"UTC",
	"Europe/London",
	"Europe/Berlin",
	"Europe/Paris",
	"Europe/Moscow",
	"Asia/Dubai",
	"Asia/Yekaterinburg",
	"Asia/Novosibirsk",
	"Asia/Shanghai",
	"Asia/Tokyo",
	"Australia/Sydney",
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
	"America/Sao_Paulo",
}

// SettingsHandler — обработчики страниц глобальных настроек.
type SettingsHandler struct {
	global *service.GlobalSettingsService
	ui     *service.UISettingsService
	audit  *service.AuditService
	logger *slog.Logger
}

// NewSettingsHandler создаёт новый SettingsHandler.
func NewSettingsHandler(
	global *service.GlobalSettingsService,
	ui *service.UISettingsService,
	audit *service.AuditService,
	logger *slog.Logger,
) *SettingsHandler {
	return &SettingsHandler{
		global: global,
		ui:     ui,
		audit:  audit,
		logger: logger.With(slog.String("component", "ui.settings")),
	}
}

// --- Брендинг ---

// HandleBranding обрабатывает GET /admin/settings/branding.
func (h *SettingsHandler) HandleBranding(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}
	renderPage(w, r, h.logger, http.StatusOK, pages.Branding(pages.BrandingData{
		Layout:   layout(session, "title.branding", "branding"),
		Settings: components.SettingsFromContext(r.Context()),
	}))
}

// HandleBrandingUpdate обрабатывает POST /admin/settings/branding.
func (h *SettingsHandler) HandleBrandingUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderAlert(w, r, h.logger, http.StatusBadRequest, alertError, "Ошибка разбора формы: "+err.Error())
		return
	}
	name := strings.TrimSpace(r.PostFormValue("company_name"))
	color := strings.TrimSpace(r.PostFormValue("primary_color"))
	patch := model.GlobalSettingsPatch{CompanyName: &name}
	if color != "" {
		patch.PrimaryColor = &color
	}
	h.update(w, r, patch)
}

// HandleAssetUpload обрабатывает POST /admin/settings/branding/{kind}
// (kind: logo, favicon) — multipart-поле file.
func (h *SettingsHandler) HandleAssetUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxAssetSize+64<<10)
	if err := r.ParseMultipartForm(service.MaxAssetSize); err != nil {
		renderError(w, r, h.logger, fmt.Errorf("%w: файл больше %d МиБ или форма повреждена", service.ErrValidation, service.MaxAssetSize>>20))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		renderError(w, r, h.logger, fmt.Errorf("%w: файл не выбран", service.ErrValidation))
		return
	}
	defer file.Close()

	kind := chi.URLParam(r, "kind")
	_, err = h.global.UploadAsset(r.Context(), kind, header.Filename,
		header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Изображение брендинга загружено",
		slog.String("kind", kind),
		slog.String("filename", header.Filename),
		slog.Int64("size", header.Size),
	)
	renderAlert(w, r, h.logger, http.StatusOK, alertSuccess, i18n.T(r.Context(), "alert.asset_uploaded"))
}

// --- Общие ---

// HandleGeneral обрабатывает GET /admin/settings/general.
func (h *SettingsHandler) HandleGeneral(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	ctx := r.Context()
	gs := components.SettingsFromContext(ctx)
	data := pages.GeneralData{
		Layout:         layout(session, "title.general", "general"),
		Settings:       gs,
		DateFormats:    []string{model.DateFormatDMYSlash, model.DateFormatMDYSlash, model.DateFormatISO, model.DateFormatDMYDot},
		TimeFormats:    []string{model.TimeFormat24h, model.TimeFormat12h},
		Timezones:      timezoneOptions(gs.Timezone),
		AuditRetention: formatRetention(h.ui.AuditRetention(ctx)),
		Samples:        sampleVars(h.ui.SampleData(ctx)),
	}

	audit, err := h.auditPage(r, 0)
	if err != nil {
		h.logger.Warn("Журнал действий недоступен", slog.String("error", err.Error()))
	}
	data.Audit = audit

	renderPage(w, r, h.logger, http.StatusOK, pages.General(data))
}

// HandleGeneralUpdate обрабатывает POST /admin/settings/general.
func (h *SettingsHandler) HandleGeneralUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderAlert(w, r, h.logger, http.StatusBadRequest, alertError, "Ошибка разбора формы: "+err.Error())
		return
	}

	dateFormat := r.PostFormValue("date_format")
	timeFormat := r.PostFormValue("time_format")
	tz := r.PostFormValue("timezone")
	maintenance := checkbox(r.PostFormValue("maintenance_mode"))
	message := strings.TrimSpace(r.PostFormValue("maintenance_message"))
	timeout, err := formInt(r, "session_timeout_minutes")
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	h.update(w, r, model.GlobalSettingsPatch{
		DateFormat:            &dateFormat,
		TimeFormat:            &timeFormat,
		Timezone:              &tz,
		SessionTimeoutMinutes: &timeout,
		MaintenanceMode:       &maintenance,
		MaintenanceMessage:    &message,
	})
}

// HandleSampleData обрабатывает POST /admin/settings/general/sample-data.
// Сохраняются только значения, отличные от значений по умолчанию;
// пустое поле возвращает значение по умолчанию.
func (h *SettingsHandler) HandleSampleData(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		renderAlert(w, r, h.logger, http.StatusBadRequest, alertError, "Ошибка разбора формы: "+err.Error())
		return
	}

	values := sampleOverrides(r, emailtpl.DefaultSampleData())
	if err := h.ui.SetSampleData(r.Context(), values, session.Username); err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	renderAlert(w, r, h.logger, http.StatusOK, alertSuccess, i18n.T(r.Context(), "alert.saved"))
}

// HandleAuditRetention обрабатывает POST /admin/settings/general/audit-retention.
func (h *SettingsHandler) HandleAuditRetention(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}
	if err := h.ui.SetAuditRetention(r.Context(), r.PostFormValue("retention"), session.Username); err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	renderAlert(w, r, h.logger, http.StatusOK, alertSuccess, i18n.T(r.Context(), "alert.saved"))
}

// HandleAudit обрабатывает GET /admin/settings/general/audit?offset= —
// страница журнала действий.
func (h *SettingsHandler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	data, err := h.auditPage(r, offset)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	renderFragment(w, r, h.logger, http.StatusOK, partials.AuditTable(data))
}

// --- Страницы ---

// HandlePages обрабатывает GET /admin/settings/pages.
func (h *SettingsHandler) HandlePages(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}
	renderPage(w, r, h.logger, http.StatusOK, pages.PagesSettings(pages.PagesSettingsData{
		Layout:   layout(session, "title.pages", "pages"),
		Settings: components.SettingsFromContext(r.Context()),
	}))
}

// HandlePagesUpdate обрабатывает POST /admin/settings/pages.
func (h *SettingsHandler) HandlePagesUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderAlert(w, r, h.logger, http.StatusBadRequest, alertError, "Ошибка разбора формы: "+err.Error())
		return
	}
	help := r.PostFormValue("help_content")
	terms := r.PostFormValue("terms_content")
	h.update(w, r, model.GlobalSettingsPatch{HelpContent: &help, TermsContent: &terms})
}

// update сохраняет частичное обновление глобальных настроек.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request, patch model.GlobalSettingsPatch) {
	if _, err := h.global.Update(r.Context(), patch); err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	h.logger.Info("Глобальные настройки обновлены", slog.String("path", r.URL.Path))
	renderAlert(w, r, h.logger, http.StatusOK, alertSuccess, i18n.T(r.Context(), "alert.saved"))
}

func (h *SettingsHandler) auditPage(r *http.Request, offset int) (partials.AuditData, error) {
	data := partials.AuditData{Offset: offset, Limit: auditPageSize}
	entries, total, err := h.audit.List(r.Context(), "", auditPageSize, offset)
	if err != nil {
		return data, err
	}
	data.Entries = entries
	data.Total = total
	data.HasMore = offset+len(entries) < total
	return data, nil
}

// sampleOverrides собирает переопределения из формы: поля sample.<имя>
// и пара new_name/new_value. Значения по умолчанию не сохраняются.
func sampleOverrides(r *http.Request, defaults map[string]string) map[string]string {
	values := make(map[string]string)
	for field, vals := range r.PostForm {
		name, ok := strings.CutPrefix(field, samplePrefix)
		if !ok || len(vals) == 0 {
			continue
		}
		v := strings.TrimSpace(vals[0])
		if def, isDefault := defaults[name]; isDefault && v == def {
			continue
		}
		values[name] = v
	}
	if name := strings.TrimSpace(r.PostFormValue("new_name")); name != "" {
		values[name] = strings.TrimSpace(r.PostFormValue("new_value"))
	}
	return values
}

// sampleVars — переменные предпросмотра по имени.
func sampleVars(data map[string]string) []pages.SampleVar {
	vars := make([]pages.SampleVar, 0, len(data))
	for name, value := range data {
		vars = append(vars, pages.SampleVar{Name: name, Value: value})
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
	return vars
}

// timezoneOptions добавляет текущий пояс, если его нет в списке.
func timezoneOptions(current string) []string {
	if current == "" || slices.Contains(timezones, current) {
		return timezones
	}
	return append([]string{current}, timezones...)
}

// formatRetention — срок хранения в днях, если он кратен суткам.
func formatRetention(d time.Duration) string {
	const day = 24 * time.Hour
	if d > 0 && d%day == 0 {
		return strconv.Itoa(int(d/day)) + "d"
	}
	return d.String()
}

// PublicHandler — публичные страницы справки и условий использования.
// Доступны без входа: берётся последний загруженный снимок настроек,
// запрос к backend без токена не выполняется.
type PublicHandler struct {
	settings *service.GlobalSettingsService
	logger   *slog.Logger
}

// NewPublicHandler создаёт новый PublicHandler.
func NewPublicHandler(settings *service.GlobalSettingsService, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{
		settings: settings,
		logger:   logger.With(slog.String("component", "ui.public")),
	}
}

// HandleHelp обрабатывает GET /help.
func (h *PublicHandler) HandleHelp(w http.ResponseWriter, r *http.Request) {
	gs := h.settings.Current()
	h.render(w, r, gs, pages.Help(gs.HelpContent))
}

// HandleTerms обрабатывает GET /terms.
func (h *PublicHandler) HandleTerms(w http.ResponseWriter, r *http.Request) {
	gs := h.settings.Current()
	h.render(w, r, gs, pages.Terms(gs.TermsContent))
}

func (h *PublicHandler) render(w http.ResponseWriter, r *http.Request, gs model.GlobalSettings, c templ.Component) {
	r = r.WithContext(components.WithSettings(r.Context(), gs, h.settings))
	renderPage(w, r, h.logger, http.StatusOK, c)
}
