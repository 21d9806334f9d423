package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	apimw "github.com/bigkaa/docvault/admin-module/internal/api/middleware"
	"github.com/bigkaa/docvault/admin-module/internal/backend"
	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
	"github.com/bigkaa/docvault/admin-module/internal/service"
	"github.com/bigkaa/docvault/admin-module/internal/ui/auth"
	uimiddleware "github.com/bigkaa/docvault/admin-module/internal/ui/middleware"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeBackend — mock backend API, запоминает выполненные запросы.
type fakeBackend struct {
	mux *http.ServeMux

	mu    sync.Mutex
	calls []string
}

func newFakeBackend(t *testing.T) (*fakeBackend, *backend.Client) {
	t.Helper()
	fb := &fakeBackend{mux: http.NewServeMux()}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		call := r.Method + " " + r.URL.Path
		if r.URL.RawQuery != "" {
			call += "?" + r.URL.RawQuery
		}
		fb.calls = append(fb.calls, call)
		fb.mu.Unlock()
		fb.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := backend.New(srv.URL, "", 5*time.Second, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return fb, client
}

func (fb *fakeBackend) handle(pattern string, v any) {
	fb.mux.HandleFunc(pattern, func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(w, v)
	})
}

// count — число запросов, путь которых начинается с prefix ("METHOD /path").
func (fb *fakeBackend) count(prefix string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	n := 0
	for _, c := range fb.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (fb *fakeBackend) recorded() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]string(nil), fb.calls...)
}

func writeTestJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func testSession() *auth.SessionData {
	return &auth.SessionData{
		SessionID:   "sid-1",
		AccessToken: "token",
		Subject:     "admin-1",
		Username:    "admin",
		Email:       "admin@example.com",
		Company:     "acme",
		Role:        "admin",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
	}
}

// serve выполняет запрос через chi-маршрут с сессией в контексте.
func serve(method, pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(uimiddleware.WithSession(r.Context(), testSession())))
		})
	})
	router.Method(method, pattern, h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// htmxForm — HTMX-запрос с телом формы.
func htmxForm(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	return req
}

type staticSamples map[string]string

func (s staticSamples) SampleData(context.Context) map[string]string { return s }

// --- Шаблоны писем ---

func TestTemplates_ResetOnlyForCustomized(t *testing.T) {
	fb, client := newFakeBackend(t)
	fb.handle("GET /api/email-templates", []model.EmailTemplate{
		{Key: "welcome", Name: "Welcome", Subject: "Hi", IsCustomized: true},
		{Key: "password_reset", Name: "Password reset", Subject: "Reset", IsCustomized: false},
	})

	svc := service.NewTemplateService(client, staticSamples{}, nil, testLogger())
	h := NewTemplatesHandler(svc, testLogger())

	rec := serve(http.MethodGet, "/admin/email-templates", h.HandleTenantList,
		httptest.NewRequest(http.MethodGet, "/admin/email-templates", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус: ожидался 200, получен %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `hx-post="/admin/email-templates/welcome/reset"`) {
		t.Error("у переопределённого шаблона должна быть кнопка сброса")
	}
	if strings.Contains(body, `/admin/email-templates/password_reset/reset`) {
		t.Error("у шаблона по умолчанию не должно быть кнопки сброса")
	}
}

func TestTemplates_ResetReturnsRow(t *testing.T) {
	fb, client := newFakeBackend(t)
	var mu sync.Mutex
	customized := true
	fb.mux.HandleFunc("GET /api/email-templates/welcome", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		writeTestJSON(w, model.EmailTemplate{Key: "welcome", Name: "Welcome", Subject: "Hi", IsCustomized: customized})
	})
	fb.mux.HandleFunc("DELETE /api/email-templates/welcome", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		customized = false
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	svc := service.NewTemplateService(client, staticSamples{}, nil, testLogger())
	h := NewTemplatesHandler(svc, testLogger())

	rec := serve(http.MethodPost, "/admin/email-templates/{key}/reset", h.HandleReset,
		htmxForm(http.MethodPost, "/admin/email-templates/welcome/reset", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус: ожидался 200, получен %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `id="template-welcome"`) {
		t.Error("ожидалась строка таблицы шаблона")
	}
	if strings.Contains(body, "/reset") {
		t.Error("после сброса кнопка сброса не отображается")
	}
	if fb.count("DELETE /api/email-templates/welcome") != 1 {
		t.Errorf("ожидался один DELETE, запросы: %v", fb.recorded())
	}
}

func TestTemplates_ResetDefaultTemplateRejected(t *testing.T) {
	fb, client := newFakeBackend(t)
	fb.handle("GET /api/email-templates/welcome", model.EmailTemplate{Key: "welcome", IsCustomized: false})

	svc := service.NewTemplateService(client, staticSamples{}, nil, testLogger())
	h := NewTemplatesHandler(svc, testLogger())

	rec := serve(http.MethodPost, "/admin/email-templates/{key}/reset", h.HandleReset,
		htmxForm(http.MethodPost, "/admin/email-templates/welcome/reset", nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("статус: ожидался 422, получен %d", rec.Code)
	}
	if fb.count("DELETE ") != 0 {
		t.Error("сброс шаблона по умолчанию не должен вызывать backend")
	}
}

func TestTemplates_Preview(t *testing.T) {
	_, client := newFakeBackend(t)
	svc := service.NewTemplateService(client, staticSamples{"user_name": "Alice"}, nil, testLogger())
	h := NewTemplatesHandler(svc, testLogger())

	form := url.Values{
		"subject":   {"Hello {{user_name}}"},
		"body":      {"Code {{unknown_var}}"},
		"variables": {"user_name"},
	}
	rec := serve(http.MethodPost, "/admin/email-templates/preview", h.HandlePreview,
		htmxForm(http.MethodPost, "/admin/email-templates/preview", form))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус: ожидался 200, получен %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Hello Alice") {
		t.Error("известная переменная должна быть подставлена")
	}
	if !strings.Contains(body, "{{unknown_var}}") {
		t.Error("неизвестная переменная должна остаться без изменений")
	}
	if !strings.Contains(body, "<code>unknown_var</code>") {
		t.Error("неизвестная переменная должна попасть в предупреждение")
	}
}

// --- Пользователи ---

func TestUsers_TimedSuspensionWithoutDate(t *testing.T) {
	fb, client := newFakeBackend(t)
	h := NewUsersHandler(service.NewUserService(client, nil, testLogger()), testLogger())

	form := url.Values{"suspension_type": {"timed"}, "until_date": {""}}
	rec := serve(http.MethodPost, "/admin/users/{id}/suspend", h.HandleSuspend,
		htmxForm(http.MethodPost, "/admin/users/u1/suspend", form))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("статус: ожидался 422, получен %d", rec.Code)
	}
	if calls := fb.recorded(); len(calls) != 0 {
		t.Errorf("запросов к backend быть не должно: %v", calls)
	}
}

func TestUsers_SuspendSelfRejected(t *testing.T) {
	fb, client := newFakeBackend(t)
	h := NewUsersHandler(service.NewUserService(client, nil, testLogger()), testLogger())

	form := url.Values{"suspension_type": {"indefinite"}}
	rec := serve(http.MethodPost, "/admin/users/{id}/suspend", h.HandleSuspend,
		htmxForm(http.MethodPost, "/admin/users/admin-1/suspend", form))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("статус: ожидался 422, получен %d", rec.Code)
	}
	if fb.count("POST ") != 0 {
		t.Error("блокировка собственной учётной записи не должна уходить в backend")
	}
}

func TestUsers_SuspendRerendersModal(t *testing.T) {
	fb, client := newFakeBackend(t)
	fb.handle("GET /api/users/u1", model.User{ID: "u1", Email: "bob@example.com", Role: "user", Status: model.UserSuspended})
	fb.mux.HandleFunc("POST /api/users/u1/suspend", func(w http.ResponseWriter, r *http.Request) {
		var req model.SuspendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UntilDate == nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	h := NewUsersHandler(service.NewUserService(client, nil, testLogger()), testLogger())

	until := time.Now().AddDate(0, 0, 7).Format(time.DateOnly)
	form := url.Values{"suspension_type": {"timed"}, "until_date": {until}, "reason": {"отпуск"}}
	rec := serve(http.MethodPost, "/admin/users/{id}/suspend", h.HandleSuspend,
		htmxForm(http.MethodPost, "/admin/users/u1/suspend", form))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус: ожидался 200, получен %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "alert.user_suspended") {
		t.Error("окно должно содержать сообщение об успехе")
	}
	if fb.count("POST /api/users/u1/suspend") != 1 {
		t.Errorf("ожидался один запрос блокировки: %v", fb.recorded())
	}
}

func TestUsers_DeleteCheck(t *testing.T) {
	fb, client := newFakeBackend(t)
	fb.handle("GET /api/users/u1", model.User{ID: "u1", Email: "bob@example.com", Role: "user"})
	h := NewUsersHandler(service.NewUserService(client, nil, testLogger()), testLogger())

	tests := []struct {
		name     string
		confirm  string
		disabled bool
	}{
		{name: "пусто", confirm: "", disabled: true},
		{name: "другой текст", confirm: "bob@example", disabled: true},
		{name: "другой регистр", confirm: "BOB@example.com", disabled: true},
		{name: "совпадает", confirm: "bob@example.com", disabled: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(http.MethodPost, "/admin/users/{id}/delete-check", h.HandleDeleteCheck,
				htmxForm(http.MethodPost, "/admin/users/u1/delete-check", url.Values{"confirm": {tt.confirm}}))
			if rec.Code != http.StatusOK {
				t.Fatalf("статус: ожидался 200, получен %d", rec.Code)
			}
			if got := strings.Contains(rec.Body.String(), " disabled"); got != tt.disabled {
				t.Errorf("disabled = %v, ожидалось %v", got, tt.disabled)
			}
		})
	}
}

func TestUsers_DeleteRequiresExactEmail(t *testing.T) {
	fb, client := newFakeBackend(t)
	fb.handle("GET /api/users/u1", model.User{ID: "u1", Email: "bob@example.com", Role: "user"})
	fb.mux.HandleFunc("DELETE /api/users/u1", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := NewUsersHandler(service.NewUserService(client, nil, testLogger()), testLogger())

	rec := serve(http.MethodPost, "/admin/users/{id}/delete", h.HandleDelete,
		htmxForm(http.MethodPost, "/admin/users/u1/delete", url.Values{"confirm": {"bob"}}))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("статус: ожидался 422, получен %d", rec.Code)
	}
	if fb.count("DELETE ") != 0 {
		t.Fatal("удаление без подтверждения не должно уходить в backend")
	}

	rec = serve(http.MethodPost, "/admin/users/{id}/delete", h.HandleDelete,
		htmxForm(http.MethodPost, "/admin/users/u1/delete", url.Values{"confirm": {"bob@example.com"}}))
	if rec.Code != http.StatusOK {
		t.Fatalf("статус: ожидался 200, получен %d: %s", rec.Code, rec.Body.String())
	}
	if fb.count("DELETE /api/users/u1") != 1 {
		t.Errorf("ожидался один DELETE: %v", fb.recorded())
	}
}

// --- Файлы ---

type isoFormatter struct{}

func (isoFormatter) FormatDate(t time.Time) string     { return t.Format(time.DateOnly) }
func (isoFormatter) FormatTime(t time.Time) string     { return t.Format(time.TimeOnly) }
func (isoFormatter) FormatDateTime(t time.Time) string { return t.Format(time.DateTime) }

func TestFiles_ExportEmptyShowsNotice(t *testing.T) {
	fb, client := newFakeBackend(t)
	fb.handle("GET /api/files/acme/f1/activity", []model.Activity{})
	h := NewFilesHandler(service.NewFileService(client, isoFormatter{}, time.Minute, testLogger()), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/admin/files/f1/activity/export?format=csv&name=report.pdf", nil)
	req.Header.Set("HX-Request", "true")
	rec := serve(http.MethodGet, "/admin/files/{id}/activity/export", h.HandleExport, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("статус: ожидался 200, получен %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != "" {
		t.Errorf("пустой журнал не должен скачиваться, Content-Disposition = %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "alert-info") {
		t.Error("ожидалось информационное уведомление")
	}
}

func TestFiles_ExportCSV(t *testing.T) {
	fb, client := newFakeBackend(t)
	fb.handle("GET /api/files/acme/f1/activity", []model.Activity{
		{ID: "a1", Action: "download", UserName: "Bob", CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
	})
	h := NewFilesHandler(service.NewFileService(client, isoFormatter{}, time.Minute, testLogger()), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/admin/files/f1/activity/export?name=report.pdf", nil)
	rec := serve(http.MethodGet, "/admin/files/{id}/activity/export", h.HandleExport, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("статус: ожидался 200, получен %d: %s", rec.Code, rec.Body.String())
	}
	cd := rec.Header().Get("Content-Disposition")
	if !strings.HasPrefix(cd, "attachment") || !strings.Contains(cd, ".csv") {
		t.Errorf("Content-Disposition = %q, ожидалось вложение .csv", cd)
	}
	if !strings.Contains(rec.Body.String(), "Bob") {
		t.Error("выгрузка должна содержать строку журнала")
	}
}

func TestFiles_ExportCyrillicFilename(t *testing.T) {
	fb, client := newFakeBackend(t)
	fb.handle("GET /api/files/acme/f1/activity", []model.Activity{
		{ID: "a1", Action: "download", UserName: "Bob", CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
	})
	h := NewFilesHandler(service.NewFileService(client, isoFormatter{}, time.Minute, testLogger()), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/admin/files/f1/activity/export?format=xlsx&name="+url.QueryEscape("Отчёт за март.pdf"), nil)
	rec := serve(http.MethodGet, "/admin/files/{id}/activity/export", h.HandleExport, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("статус: ожидался 200, получен %d: %s", rec.Code, rec.Body.String())
	}
	disposition, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	if err != nil {
		t.Fatalf("разбор Content-Disposition: %v", err)
	}
	if disposition != "attachment" || params["filename"] != "Отчёт_за_март-activity.xlsx" {
		t.Errorf("Content-Disposition: %s %v", disposition, params)
	}
}

func TestFiles_ExportUnknownFormat(t *testing.T) {
	fb, client := newFakeBackend(t)
	h := NewFilesHandler(service.NewFileService(client, isoFormatter{}, time.Minute, testLogger()), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/admin/files/f1/activity/export?format=pdf", nil)
	req.Header.Set("HX-Request", "true")
	rec := serve(http.MethodGet, "/admin/files/{id}/activity/export", h.HandleExport, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("статус: ожидался 422, получен %d", rec.Code)
	}
	if len(fb.recorded()) != 0 {
		t.Error("неизвестный формат не должен запрашивать журнал")
	}
}

// --- Запросы файлов ---

func TestFileRequests_Create(t *testing.T) {
	fb, client := newFakeBackend(t)
	fb.mux.HandleFunc("POST /api/file-requests", func(w http.ResponseWriter, r *http.Request) {
		var req model.FileRequestCreate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		writeTestJSON(w, model.FileRequest{
			ID:          "fr1",
			Name:        req.Name,
			Destination: req.Destination,
			Status:      "active",
			ShareLink:   "https://docvault.example.com/r/fr1",
			CreatedAt:   time.Now(),
			MaxUploads:  req.MaxUploads,
		})
	})
	h := NewFileRequestsHandler(service.NewFileRequestService(client, nil, testLogger()), testLogger())

	form := url.Values{"name": {"Отчёты"}, "destination": {"/acme/finance"}, "max_uploads": {"5"}}
	rec := serve(http.MethodPost, "/admin/file-requests", h.HandleCreate,
		htmxForm(http.MethodPost, "/admin/file-requests", form))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус: ожидался 200, получен %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "https://docvault.example.com/r/fr1") {
		t.Error("ответ должен содержать ссылку для загрузки")
	}
}

func TestFileRequests_CreateInvalidMaxUploads(t *testing.T) {
	fb, client := newFakeBackend(t)
	h := NewFileRequestsHandler(service.NewFileRequestService(client, nil, testLogger()), testLogger())

	form := url.Values{"name": {"Отчёты"}, "destination": {"/acme"}, "max_uploads": {"много"}}
	rec := serve(http.MethodPost, "/admin/file-requests", h.HandleCreate,
		htmxForm(http.MethodPost, "/admin/file-requests", form))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("статус: ожидался 422, получен %d", rec.Code)
	}
	if len(fb.recorded()) != 0 {
		t.Error("некорректная форма не должна уходить в backend")
	}
}

// --- Антивирус ---

func TestVirusScan_LoadMore(t *testing.T) {
	fb, client := newFakeBackend(t)
	all := []model.ScanResult{
		{ID: "s1", FileName: "a.pdf", Status: "clean"},
		{ID: "s2", FileName: "b.pdf", Status: "clean"},
		{ID: "s3", FileName: "c.pdf", Status: "infected"},
	}
	fb.mux.HandleFunc("GET /api/admin/virus-scan/history", func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		end := min(offset+2, len(all))
		writeTestJSON(w, model.Page[model.ScanResult]{Items: all[offset:end], Total: len(all)})
	})

	svc := service.NewVirusScanService(client, nil, 2, time.Minute, testLogger())
	h := NewVirusScanHandler(svc, time.Second, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/admin/settings/virus-scan/list?tab=history", nil)
	req.Header.Set("HX-Request", "true")
	rec := serve(http.MethodGet, "/admin/settings/virus-scan/list", h.HandleList, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("статус: ожидался 200, получен %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `id="load-more"`) {
		t.Fatal("после первой страницы должна быть кнопка догрузки")
	}

	more := func() string {
		req := httptest.NewRequest(http.MethodGet, "/admin/settings/virus-scan/list/more?tab=history", nil)
		req.Header.Set("HX-Request", "true")
		return serve(http.MethodGet, "/admin/settings/virus-scan/list/more", h.HandleMore, req).Body.String()
	}

	body := more()
	if !strings.Contains(body, "c.pdf") || !strings.Contains(body, "a.pdf") {
		t.Error("после догрузки список должен содержать все записи")
	}
	if strings.Contains(body, `id="load-more"`) {
		t.Error("все записи загружены, кнопки догрузки быть не должно")
	}

	more()
	if n := fb.count("GET /api/admin/virus-scan/history"); n != 2 {
		t.Errorf("ожидалось 2 запроса истории, получено %d: %v", n, fb.recorded())
	}
	if fb.count("GET /api/admin/virus-scan/history?limit=2&offset=2") != 1 {
		t.Errorf("догрузка должна запрашивать offset=2: %v", fb.recorded())
	}
}

func TestSSEEvent(t *testing.T) {
	got := sseEvent("metrics", "<div>\n<span>ok</span>\r\n</div>")
	want := "event: metrics\ndata: <div>\ndata: <span>ok</span>\ndata: </div>\n\n"
	if got != want {
		t.Errorf("sseEvent:\nполучено %q\nожидалось %q", got, want)
	}
}

// --- Настройки ---

func TestSampleOverrides(t *testing.T) {
	defaults := map[string]string{"user_name": "John Doe", "company_name": "Acme Corp"}
	form := url.Values{
		"sample.user_name":    {"John Doe"},
		"sample.company_name": {"Globex"},
		"sample.login_url":    {""},
		"new_name":            {"promo_code"},
		"new_value":           {" SPRING "},
		"other":               {"x"},
	}
	req := htmxForm(http.MethodPost, "/admin/settings/general/sample-data", form)
	if err := req.ParseForm(); err != nil {
		t.Fatal(err)
	}

	got := sampleOverrides(req, defaults)
	want := map[string]string{"company_name": "Globex", "login_url": "", "promo_code": "SPRING"}
	if len(got) != len(want) {
		t.Fatalf("получено %v, ожидалось %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, ожидалось %q", k, got[k], v)
		}
	}
}

func TestFormatRetention(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{in: 90 * 24 * time.Hour, want: "90d"},
		{in: 36 * time.Hour, want: "36h0m0s"},
	}
	for _, tt := range tests {
		if got := formatRetention(tt.in); got != tt.want {
			t.Errorf("formatRetention(%s) = %q, ожидалось %q", tt.in, got, tt.want)
		}
	}
}

func TestTimezoneOptions(t *testing.T) {
	if got := timezoneOptions("UTC"); len(got) != len(timezones) {
		t.Errorf("известный пояс не должен добавляться: %d", len(got))
	}
	got := timezoneOptions("Pacific/Auckland")
	if got[0] != "Pacific/Auckland" || len(got) != len(timezones)+1 {
		t.Errorf("текущий пояс должен быть первым в списке: %v", got[:2])
	}
}

// --- Формы ---

func TestParseEndOfDay(t *testing.T) {
	got, err := parseEndOfDay(context.Background(), "2026-05-10")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 5, 10, 23, 59, 59, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("получено %s, ожидалось %s", got, want)
	}

	if got, err := parseEndOfDay(context.Background(), " "); err != nil || got != nil {
		t.Errorf("пустая дата: ожидалось nil, получено %v, %v", got, err)
	}
	if _, err := parseEndOfDay(context.Background(), "10.05.2026"); err == nil {
		t.Error("ожидалась ошибка формата")
	}
}

// --- Сессия и язык ---

func TestRequireSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	if s := requireSession(rec, req); s != nil {
		t.Fatal("сессии в контексте нет")
	}
	if rec.Code != http.StatusUnauthorized || rec.Header().Get("HX-Redirect") != "/admin/login" {
		t.Errorf("HTMX: ожидался 401 с HX-Redirect, получено %d %q", rec.Code, rec.Header().Get("HX-Redirect"))
	}

	rec = httptest.NewRecorder()
	requireSession(rec, httptest.NewRequest(http.MethodGet, "/admin/users", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/admin/login" {
		t.Errorf("ожидался redirect на вход, получено %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestBackTarget(t *testing.T) {
	tests := []struct {
		name    string
		referer string
		want    string
	}{
		{name: "без referer", referer: "", want: "/admin/"},
		{name: "страница UI", referer: "http://example.com/admin/users?q=bob", want: "/admin/users?q=bob"},
		{name: "справка", referer: "http://example.com/help", want: "/help"},
		{name: "чужой хост", referer: "http://evil.com/admin/users", want: "/admin/"},
		{name: "посторонний путь", referer: "http://example.com/metrics", want: "/admin/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "http://example.com/admin/set-language", nil)
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			if got := backTarget(req); got != tt.want {
				t.Errorf("backTarget = %q, ожидалось %q", got, tt.want)
			}
		})
	}
}

func TestHandleSetLanguage(t *testing.T) {
	req := htmxForm(http.MethodPost, "http://example.com/admin/set-language", url.Values{"lang": {"ru"}})
	req.Header.Del("HX-Request")
	rec := httptest.NewRecorder()
	HandleSetLanguage(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("статус: ожидался 303, получен %d", rec.Code)
	}
	var lang string
	for _, c := range rec.Result().Cookies() {
		if c.Name == "lang" {
			lang = c.Value
		}
	}
	if lang != "ru" {
		t.Errorf("cookie lang = %q, ожидалось ru", lang)
	}
}

// --- Вход ---

type fakeOIDC struct {
	exchanged string
}

func (f *fakeOIDC) AuthorizeURL(redirectURI, state, challenge string) string {
	return "https://kc.example.com/auth?state=" + state
}

func (f *fakeOIDC) ExchangeCode(_ context.Context, code, _, verifier string) (*auth.TokenResponse, error) {
	f.exchanged = code + ":" + verifier
	return &auth.TokenResponse{AccessToken: "at", RefreshToken: "rt", IDToken: "id", ExpiresIn: 300}, nil
}

func (f *fakeOIDC) LogoutURL(idTokenHint, redirect string) string {
	return "https://kc.example.com/logout?redirect=" + url.QueryEscape(redirect)
}

type fakeVerifier struct{}

func (fakeVerifier) Verify(_ context.Context, token string) (*apimw.AuthClaims, error) {
	return &apimw.AuthClaims{Subject: "u-42", PreferredUsername: "bob", Email: "bob@example.com", Company: "acme", Role: "manager"}, nil
}

type forgetRecorder struct{ forgotten []string }

func (f *forgetRecorder) ForgetSession(sid string) { f.forgotten = append(f.forgotten, sid) }

func TestAuthCallback(t *testing.T) {
	sm, err := auth.NewSessionManager("test-secret", false, 0)
	if err != nil {
		t.Fatal(err)
	}
	oidc := &fakeOIDC{}
	h := NewAuthHandler(oidc, fakeVerifier{}, sm, nil, nil, false, testLogger())

	stateJSON, _ := json.Marshal(stateData{State: "st-1", CodeVerifier: "ver-1"})
	cookie := &http.Cookie{Name: stateCookieName, Value: base64.URLEncoding.EncodeToString(stateJSON)}

	t.Run("state не совпадает", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/callback?code=c1&state=other", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		h.HandleCallback(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("статус: ожидался 400, получен %d", rec.Code)
		}
		if oidc.exchanged != "" {
			t.Error("при несовпадении state обмен кода не выполняется")
		}
	})

	t.Run("успешный вход", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/callback?code=c1&state=st-1", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		h.HandleCallback(rec, req)

		if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/admin/" {
			t.Fatalf("ожидался redirect на /admin/, получено %d %q", rec.Code, rec.Header().Get("Location"))
		}
		if oidc.exchanged != "c1:ver-1" {
			t.Errorf("обмен кода: %q", oidc.exchanged)
		}

		next := httptest.NewRequest(http.MethodGet, "/admin/", nil)
		for _, c := range rec.Result().Cookies() {
			next.AddCookie(c)
		}
		session, err := sm.GetSessionFromRequest(next)
		if err != nil || session == nil {
			t.Fatalf("сессия не установлена: %v", err)
		}
		if session.Subject != "u-42" || session.Role != "manager" || session.Company != "acme" || session.SessionID == "" {
			t.Errorf("неожиданная сессия: %+v", session)
		}
	})
}

func TestAuthLogoutForgetsSession(t *testing.T) {
	sm, err := auth.NewSessionManager("test-secret", false, 0)
	if err != nil {
		t.Fatal(err)
	}
	forget := &forgetRecorder{}
	h := NewAuthHandler(&fakeOIDC{}, fakeVerifier{}, sm, forget, nil, false, testLogger())

	setRec := httptest.NewRecorder()
	if err := sm.SetSessionCookie(setRec, testSession()); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/admin/logout", nil)
	req.Header.Set("HX-Request", "true")
	for _, c := range setRec.Result().Cookies() {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.HandleLogout(rec, req)

	if rec.Code != http.StatusNoContent || !strings.HasPrefix(rec.Header().Get("HX-Redirect"), "https://kc.example.com/logout") {
		t.Errorf("HTMX logout: получено %d %q", rec.Code, rec.Header().Get("HX-Redirect"))
	}
	if len(forget.forgotten) != 1 || forget.forgotten[0] != "sid-1" {
		t.Errorf("состояние сессии не освобождено: %v", forget.forgotten)
	}
}

func TestLogoutKeepsPublicPagesContent(t *testing.T) {
	fb, client := newFakeBackend(t)
	gs := model.DefaultGlobalSettings()
	gs.CompanyName = "Acme"
	gs.HelpContent = "Acme help center"
	fb.handle("GET /api/global-settings", gs)

	settings := service.NewGlobalSettingsService(client, nil, time.Minute, testLogger())
	ctx := backend.WithToken(context.Background(), "token")
	if _, err := settings.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	sm, err := auth.NewSessionManager("test-secret", false, 0)
	if err != nil {
		t.Fatal(err)
	}
	authH := NewAuthHandler(&fakeOIDC{}, fakeVerifier{}, sm, nil, settings, false, testLogger())
	public := NewPublicHandler(settings, testLogger())

	helpBody := func() string {
		rec := httptest.NewRecorder()
		public.HandleHelp(rec, httptest.NewRequest(http.MethodGet, "/help", nil))
		return rec.Body.String()
	}

	// выход без сессии
	authH.HandleLogout(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/logout", nil))
	if !strings.Contains(helpBody(), "Acme help center") {
		t.Fatal("после анонимного logout справка потеряла содержимое")
	}

	// выход с сессией помечает настройки устаревшими, но не стирает их
	setRec := httptest.NewRecorder()
	if err := sm.SetSessionCookie(setRec, testSession()); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/admin/logout", nil)
	for _, c := range setRec.Result().Cookies() {
		req.AddCookie(c)
	}
	authH.HandleLogout(httptest.NewRecorder(), req)
	if body := helpBody(); !strings.Contains(body, "Acme help center") {
		t.Error("после logout пользователя справка потеряла содержимое")
	}
	if n := fb.count("GET /api/global-settings"); n != 1 {
		t.Errorf("публичная страница не должна обращаться к backend, запросов %d", n)
	}
}
