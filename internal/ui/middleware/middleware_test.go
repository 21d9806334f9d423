package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/docvault/admin-module/internal/backend"
	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
	"github.com/bigkaa/docvault/admin-module/internal/service"
	"github.com/bigkaa/docvault/admin-module/internal/ui/auth"
	"github.com/bigkaa/docvault/admin-module/internal/ui/components"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) RefreshTokens(_ context.Context, refreshToken string) (*auth.TokenResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &auth.TokenResponse{AccessToken: "new-access", RefreshToken: refreshToken + "-2", ExpiresIn: 300}, nil
}

// requestWithSession — запрос с cookie зашифрованной сессии.
func requestWithSession(t *testing.T, sm *auth.SessionManager, session *auth.SessionData) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := sm.SetSessionCookie(rec, session); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

// captureSession — конечный обработчик, запоминающий контекст запроса.
func captureSession(got **auth.SessionData, token *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = SessionFromContext(r.Context())
		if token != nil {
			*token, _ = backend.TokenFromContext(r.Context())
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestUIAuth_NoSession(t *testing.T) {
	sm, err := auth.NewSessionManager("secret", false, 0)
	if err != nil {
		t.Fatal(err)
	}
	ua := NewUIAuth(sm, &fakeRefresher{}, testLogger())
	var got *auth.SessionData
	h := ua.Middleware()(captureSession(&got, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/admin/login" {
		t.Errorf("ожидался redirect на вход, получено %d %q", rec.Code, rec.Header().Get("Location"))
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("HX-Request", "true")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized || rec.Header().Get("HX-Redirect") != "/admin/login" {
		t.Errorf("HTMX: ожидался 401 с HX-Redirect, получено %d", rec.Code)
	}
	if got != nil {
		t.Error("обработчик не должен вызываться без сессии")
	}
}

func TestUIAuth_ValidSession(t *testing.T) {
	sm, err := auth.NewSessionManager("secret", false, 0)
	if err != nil {
		t.Fatal(err)
	}
	refresher := &fakeRefresher{}
	ua := NewUIAuth(sm, refresher, testLogger())

	var got *auth.SessionData
	var token string
	h := ua.Middleware()(captureSession(&got, &token))

	req := requestWithSession(t, sm, &auth.SessionData{
		SessionID:   "sid-1",
		AccessToken: "access",
		Subject:     "u1",
		Username:    "bob",
		Role:        "manager",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("статус: ожидался 200, получен %d", rec.Code)
	}
	if got == nil || got.Username != "bob" {
		t.Fatalf("сессия не передана в контекст: %+v", got)
	}
	if token != "access" {
		t.Errorf("токен backend = %q, ожидался access", token)
	}
	if refresher.calls != 0 {
		t.Error("действующий токен не обновляется")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("cookie не должна перезаписываться без изменений")
	}
}

func TestUIAuth_RefreshExpired(t *testing.T) {
	sm, err := auth.NewSessionManager("secret", false, 0)
	if err != nil {
		t.Fatal(err)
	}
	refresher := &fakeRefresher{}
	ua := NewUIAuth(sm, refresher, testLogger())

	var got *auth.SessionData
	h := ua.Middleware()(captureSession(&got, nil))

	req := requestWithSession(t, sm, &auth.SessionData{
		SessionID:    "sid-1",
		AccessToken:  "old",
		RefreshToken: "rt",
		Username:     "bob",
		Role:         "user",
		ExpiresAt:    time.Now().Add(-time.Minute).Unix(),
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if refresher.calls != 1 {
		t.Fatalf("ожидалось одно обновление, получено %d", refresher.calls)
	}
	if got == nil || got.AccessToken != "new-access" || got.RefreshToken != "rt-2" || got.SessionID != "sid-1" {
		t.Errorf("неожиданная сессия после обновления: %+v", got)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("обновлённая сессия должна быть сохранена в cookie")
	}
}

func TestUIAuth_RefreshFails(t *testing.T) {
	sm, err := auth.NewSessionManager("secret", false, 0)
	if err != nil {
		t.Fatal(err)
	}
	ua := NewUIAuth(sm, &fakeRefresher{err: errors.New("invalid_grant")}, testLogger())

	var got *auth.SessionData
	h := ua.Middleware()(captureSession(&got, nil))

	req := requestWithSession(t, sm, &auth.SessionData{
		SessionID:    "sid-1",
		RefreshToken: "rt",
		ExpiresAt:    time.Now().Add(-time.Minute).Unix(),
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/admin/login" {
		t.Errorf("ожидался redirect на вход, получено %d", rec.Code)
	}
	if got != nil {
		t.Error("обработчик не должен вызываться")
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		htmx     bool
		wantCode int
	}{
		{name: "admin проходит", role: "admin", wantCode: http.StatusOK},
		{name: "manager на главную", role: "manager", wantCode: http.StatusFound},
		{name: "manager через HTMX", role: "manager", htmx: true, wantCode: http.StatusForbidden},
		{name: "неизвестная роль", role: "guest", wantCode: http.StatusFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			if tt.htmx {
				req.Header.Set("HX-Request", "true")
			}
			req = req.WithContext(WithSession(req.Context(), &auth.SessionData{Subject: "u1", Role: tt.role}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("статус: ожидался %d, получен %d", tt.wantCode, rec.Code)
			}
		})
	}
}

func TestWithSession_SetsActor(t *testing.T) {
	ctx := WithSession(context.Background(), &auth.SessionData{Subject: "u1", Username: "bob", Role: "admin"})
	actor := service.ActorFromContext(ctx)
	if actor.ID != "u1" || actor.Name != "bob" || actor.Role != "admin" {
		t.Errorf("неожиданный пользователь журнала: %+v", actor)
	}
}

type stubLoader struct {
	gs  model.GlobalSettings
	err error
}

func (s stubLoader) Ensure(context.Context) (model.GlobalSettings, error) { return s.gs, s.err }
func (stubLoader) FormatDate(t time.Time) string                        { return t.Format(time.DateOnly) }
func (stubLoader) FormatTime(t time.Time) string                        { return t.Format(time.TimeOnly) }
func (stubLoader) FormatDateTime(t time.Time) string                    { return t.Format(time.DateTime) }

func TestSettings_PutsSnapshotInContext(t *testing.T) {
	gs := model.DefaultGlobalSettings()
	gs.CompanyName = "Globex"

	var seen string
	h := Settings(stubLoader{gs: gs}, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = components.SettingsFromContext(r.Context()).CompanyName
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/", nil))

	if seen != "Globex" {
		t.Errorf("CompanyName = %q, ожидалось Globex", seen)
	}
}

func TestSettings_LoaderErrorDoesNotBlock(t *testing.T) {
	called := false
	loader := stubLoader{gs: model.DefaultGlobalSettings(), err: errors.New("backend недоступен")}
	h := Settings(loader, testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/", nil))

	if !called {
		t.Error("ошибка загрузки настроек не должна прерывать запрос")
	}
}

func TestSettings_Maintenance(t *testing.T) {
	gs := model.DefaultGlobalSettings()
	gs.MaintenanceMode = true
	gs.MaintenanceMessage = "Плановые работы до 18:00"

	tests := []struct {
		name       string
		role       string
		wantCode   int
		wantCalled bool
	}{
		{name: "manager видит сообщение", role: "manager", wantCode: http.StatusServiceUnavailable},
		{name: "admin работает", role: "admin", wantCode: http.StatusOK, wantCalled: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := Settings(stubLoader{gs: gs}, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
			req = req.WithContext(WithSession(req.Context(), &auth.SessionData{Subject: "u1", Role: tt.role}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode || called != tt.wantCalled {
				t.Fatalf("получено %d (обработчик вызван: %v)", rec.Code, called)
			}
			if !tt.wantCalled && !strings.Contains(rec.Body.String(), "Плановые работы до 18:00") {
				t.Error("страница обслуживания должна содержать сообщение")
			}
		})
	}
}
