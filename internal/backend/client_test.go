package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupMockBackend создаёт mock HTTP-сервер backend и клиент к нему.
func setupMockBackend(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(server.URL+"/", "", 5*time.Second, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return client, server
}

// authCtx — контекст с тестовым токеном.
func authCtx() context.Context {
	return WithToken(context.Background(), "test-token")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestClient_NoTokenNoRequest(t *testing.T) {
	var calls atomic.Int32
	client, _ := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := client.ListTenantTemplates(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("ожидалась ErrUnauthorized, получено %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("запрос без токена не должен уходить в сеть, вызовов: %d", calls.Load())
	}
}

func TestClient_BearerAndJSON(t *testing.T) {
	client, _ := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, ожидается Bearer test-token", got)
		}
		if r.URL.Path != "/api/email-templates/welcome" || r.Method != http.MethodPut {
			t.Errorf("неожиданный запрос %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var upd model.EmailTemplateUpdate
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			t.Fatalf("декодирование тела: %v", err)
		}
		writeJSON(w, model.EmailTemplate{Key: "welcome", Subject: upd.Subject, Body: upd.Body, IsCustomized: true})
	})

	tpl, err := client.CustomizeTenantTemplate(authCtx(), "welcome", model.EmailTemplateUpdate{Subject: "Привет", Body: "Текст"})
	if err != nil {
		t.Fatalf("CustomizeTenantTemplate: %v", err)
	}
	if !tpl.IsCustomized || tpl.Subject != "Привет" {
		t.Errorf("неожиданный шаблон: %+v", tpl)
	}
}

func TestClient_HTTPErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		target error
	}{
		{"401", http.StatusUnauthorized, ErrUnauthorized},
		{"403", http.StatusForbidden, ErrForbidden},
		{"404", http.StatusNotFound, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, `{"error":"отказ"}`)
			})

			_, err := client.GetUser(authCtx(), "u1")
			if !errors.Is(err, tt.target) {
				t.Fatalf("ожидалась %v, получено %v", tt.target, err)
			}
			var httpErr *HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("ожидался *HTTPError, получено %T", err)
			}
			if httpErr.StatusCode != tt.status || httpErr.Message() != "отказ" {
				t.Errorf("HTTPError = %+v, Message() = %q", httpErr, httpErr.Message())
			}
		})
	}
}

func TestHTTPError_Message(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"error":"плоская"}`, "плоская"},
		{`{"message":"сообщение"}`, "сообщение"},
		{`{"error":{"code":"X","message":"вложенная"}}`, "вложенная"},
		{"  текст  ", "текст"},
	}
	for _, tt := range tests {
		e := &HTTPError{StatusCode: 500, Body: tt.body}
		if got := e.Message(); got != tt.want {
			t.Errorf("Message(%q) = %q, ожидается %q", tt.body, got, tt.want)
		}
	}
	if errors.Is(&HTTPError{StatusCode: 500}, ErrNotFound) {
		t.Error("500 не должен сопоставляться с ErrNotFound")
	}
}

func TestClient_ListFileRequests_Visibility(t *testing.T) {
	var gotQuery string
	client, _ := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		writeJSON(w, []model.FileRequest{{ID: "fr1", Status: model.FileRequestActive}})
	})

	list, err := client.ListFileRequests(authCtx(), model.VisibilityDepartment)
	if err != nil {
		t.Fatalf("ListFileRequests: %v", err)
	}
	if gotQuery != "visibility=department" {
		t.Errorf("query = %q, ожидается visibility=department", gotQuery)
	}
	if len(list) != 1 || list[0].ID != "fr1" {
		t.Errorf("неожиданный список: %+v", list)
	}

	if _, err := client.ListFileRequests(authCtx(), model.VisibilityAll); err != nil {
		t.Fatal(err)
	}
	if gotQuery != "" {
		t.Errorf("без фильтра query должен быть пустым, получено %q", gotQuery)
	}
}

func TestClient_PermanentDeletePath(t *testing.T) {
	var got string
	client, _ := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Method + " " + r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.DeleteFileRequest(authCtx(), "fr 1"); err != nil {
		t.Fatal(err)
	}
	if got != "DELETE /api/file-requests/fr 1/permanent" {
		t.Errorf("запрос = %q", got)
	}
	if err := client.RevokeFileRequest(authCtx(), "fr2"); err != nil {
		t.Fatal(err)
	}
	if got != "DELETE /api/file-requests/fr2" {
		t.Errorf("запрос = %q", got)
	}
}

func TestClient_ListQuarantine_Page(t *testing.T) {
	client, _ := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/admin/virus-scan/quarantine" {
			t.Errorf("путь = %q", r.URL.Path)
		}
		if r.URL.Query().Get("offset") != "10" || r.URL.Query().Get("limit") != "10" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		writeJSON(w, model.Page[model.QuarantinedFile]{
			Items: []model.QuarantinedFile{{ID: "q11"}},
			Total: 11,
		})
	})

	page, err := client.ListQuarantine(authCtx(), 10, 10)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 11 || len(page.Items) != 1 {
		t.Errorf("страница = %+v", page)
	}
}

func TestClient_UploadAsset(t *testing.T) {
	client, _ := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/global-settings/logo" || r.Method != http.MethodPost {
			t.Errorf("неожиданный запрос %s %s", r.Method, r.URL.Path)
		}
		file, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if hdr.Filename != "logo.png" || string(data) != "PNGDATA" {
			t.Errorf("файл = %q (%q)", hdr.Filename, data)
		}
		writeJSON(w, model.GlobalSettings{LogoURL: "/assets/logo.png"})
	})

	s, err := client.UploadAsset(authCtx(), AssetLogo, "logo.png", "image/png", strings.NewReader("PNGDATA"))
	if err != nil {
		t.Fatal(err)
	}
	if s.LogoURL != "/assets/logo.png" {
		t.Errorf("LogoURL = %q", s.LogoURL)
	}

	if _, err := client.UploadAsset(authCtx(), "banner", "b.png", "image/png", strings.NewReader("x")); err == nil {
		t.Error("ожидалась ошибка для неизвестного вида изображения")
	}
}

func TestClient_Ping(t *testing.T) {
	client, _ := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("health не должен передавать Authorization")
		}
		if r.URL.Path != HealthPath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if status, msg := client.CheckReady(context.Background()); status != "ok" {
		t.Errorf("CheckReady() = %q, %q", status, msg)
	}
}

func TestClient_CheckReadyFail(t *testing.T) {
	client, _ := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	if status, _ := client.CheckReady(context.Background()); status != "fail" {
		t.Errorf("CheckReady() = %q, ожидали fail", status)
	}
}
