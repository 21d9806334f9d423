package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/docvault/admin-module/internal/api/middleware"
	"github.com/bigkaa/docvault/admin-module/internal/repository"
	"github.com/bigkaa/docvault/admin-module/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type staticChecker struct{ status string }

func (c staticChecker) CheckReady(context.Context) (string, string) { return c.status, "" }

type memAuditRepo struct {
	entries []repository.AuditEntry
	filter  repository.AuditFilter
}

func (m *memAuditRepo) Insert(_ context.Context, e *repository.AuditEntry) error {
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memAuditRepo) List(_ context.Context, f repository.AuditFilter) ([]repository.AuditEntry, int, error) {
	m.filter = f
	end := min(f.Offset+f.Limit, len(m.entries))
	if f.Offset >= end {
		return nil, len(m.entries), nil
	}
	return m.entries[f.Offset:end], len(m.entries), nil
}

func (m *memAuditRepo) DeleteOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }

type staticSamples map[string]string

func (s staticSamples) SampleData(context.Context) map[string]string { return s }

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name     string
		checkers [3]ReadinessChecker
		want     int
		status   string
	}{
		{"все ok", [3]ReadinessChecker{staticChecker{"ok"}, staticChecker{"ok"}, staticChecker{"ok"}}, http.StatusOK, "ok"},
		{"degraded", [3]ReadinessChecker{staticChecker{"ok"}, staticChecker{"degraded"}, staticChecker{"ok"}}, http.StatusOK, "degraded"},
		{"backend fail", [3]ReadinessChecker{staticChecker{"ok"}, staticChecker{"ok"}, staticChecker{"fail"}}, http.StatusServiceUnavailable, "fail"},
		{"нет проверки", [3]ReadinessChecker{nil, staticChecker{"ok"}, staticChecker{"ok"}}, http.StatusServiceUnavailable, "fail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checkers[0], tt.checkers[1], tt.checkers[2])
			rec := httptest.NewRecorder()
			h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if rec.Code != tt.want {
				t.Errorf("статус %d, ожидался %d", rec.Code, tt.want)
			}
			var resp healthReadyResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Status != tt.status || len(resp.Checks) != 3 {
				t.Errorf("ответ: %+v", resp)
			}
		})
	}
}

func TestHealthLive(t *testing.T) {
	h := NewHealthHandler(nil, nil, nil)
	rec := httptest.NewRecorder()
	h.HealthLive(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"service":"admin-module"`) {
		t.Errorf("ответ %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetCurrentUser(t *testing.T) {
	h := NewAPIHandler(NewHealthHandler(nil, nil, nil), nil, nil, testLogger())

	rec := httptest.NewRecorder()
	h.GetCurrentUser(rec, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("без claims ожидался 401, получен %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.ContextKeyClaims, &middleware.AuthClaims{
		Subject: "u1", PreferredUsername: "mpetrova", Role: "manager",
	}))
	rec = httptest.NewRecorder()
	h.GetCurrentUser(rec, req)

	var resp currentUserResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != "u1" || resp.Role != "manager" {
		t.Errorf("ответ: %+v", resp)
	}
	for _, p := range resp.Permissions {
		if p == "users.manage" {
			t.Error("менеджеру не положено управление пользователями")
		}
	}
	if len(resp.Permissions) != 3 {
		t.Errorf("права менеджера: %v", resp.Permissions)
	}
}

func TestListAudit(t *testing.T) {
	repo := &memAuditRepo{}
	for _, id := range []string{"a", "b", "c"} {
		repo.entries = append(repo.entries, repository.AuditEntry{ID: id, Action: service.AuditUserSuspend, Success: true})
	}
	h := NewAPIHandler(nil, nil, service.NewAuditService(repo, testLogger()), testLogger())

	rec := httptest.NewRecorder()
	h.ListAudit(rec, httptest.NewRequest(http.MethodGet, "/api/v1/audit?target_type=user&limit=2&offset=0", nil))

	var resp auditListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Items) != 2 || resp.Total != 3 || !resp.HasMore {
		t.Errorf("ответ: %+v", resp)
	}
	if repo.filter.TargetType != "user" {
		t.Errorf("фильтр не передан: %+v", repo.filter)
	}
}

func TestPaginationParams(t *testing.T) {
	tests := []struct {
		query      string
		limit, off int
	}{
		{"", 50, 0},
		{"limit=0&offset=-5", 1, 0},
		{"limit=9999&offset=20", 500, 20},
		{"limit=abc", 50, 0},
	}
	for _, tt := range tests {
		l, o := paginationParams(httptest.NewRequest(http.MethodGet, "/api/v1/audit?"+tt.query, nil))
		if l != tt.limit || o != tt.off {
			t.Errorf("%q: limit=%d offset=%d", tt.query, l, o)
		}
	}
}

func TestPreviewTemplate(t *testing.T) {
	samples := staticSamples{"user_name": "John Doe"}
	templates := service.NewTemplateService(nil, samples, nil, testLogger())
	h := NewAPIHandler(nil, templates, nil, testLogger())

	body := `{"subject":"Привет, {{user_name}}","body":"Ссылка: {{request_link}}","variables":["user_name"]}`
	rec := httptest.NewRecorder()
	h.PreviewTemplate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/email-templates/preview", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус %d: %s", rec.Code, rec.Body.String())
	}
	var resp previewResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Subject != "Привет, John Doe" {
		t.Errorf("Subject = %q", resp.Subject)
	}
	if resp.Body != "Ссылка: {{request_link}}" {
		t.Errorf("неизвестный плейсхолдер должен остаться как есть: %q", resp.Body)
	}
	if len(resp.Undeclared) != 1 || resp.Undeclared[0] != "request_link" {
		t.Errorf("Undeclared = %v", resp.Undeclared)
	}

	rec = httptest.NewRecorder()
	h.PreviewTemplate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/email-templates/preview", strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("для битого JSON ожидался 400, получен %d", rec.Code)
	}
}
