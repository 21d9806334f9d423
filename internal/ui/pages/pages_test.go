package pages

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
	"github.com/bigkaa/docvault/admin-module/internal/ui/components"
	"github.com/bigkaa/docvault/admin-module/internal/ui/i18n"
)

type isoFormatter struct{}

func (isoFormatter) FormatDate(t time.Time) string     { return t.Format(time.DateOnly) }
func (isoFormatter) FormatTime(t time.Time) string     { return t.Format(time.TimeOnly) }
func (isoFormatter) FormatDateTime(t time.Time) string { return t.Format(time.DateTime) }

func renderWith(t *testing.T, gs model.GlobalSettings, c templ.Component) string {
	t.Helper()
	ctx := components.WithSettings(i18n.WithLang(context.Background(), "ru"), gs, isoFormatter{})
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		t.Fatalf("рендеринг: %v", err)
	}
	return b.String()
}

func TestDashboard_Layout(t *testing.T) {
	gs := model.DefaultGlobalSettings()
	gs.CompanyName = "Acme & Co"
	gs.PrimaryColor = "#112233"

	html := renderWith(t, gs, Dashboard(DashboardData{
		Layout: Layout{Title: "title.dashboard", Active: "dashboard", Username: "Алиса", Role: "admin"},
	}))

	for _, want := range []string{
		"<!doctype html>",
		`<html lang="ru">`,
		`<script src="/static/js/htmx.min.js" defer></script>`,
		`<script src="/static/js/app.js" defer></script>`,
		"--primary: #112233",
		"Acme &amp; Co",
		`<a href="/admin/" class="active">`,
		`href="/admin/settings/branding"`,
		`<div id="alerts"></div>`,
		`<div id="modal"></div>`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("нет %q на странице", want)
		}
	}
	if strings.Index(html, "htmx.min.js") > strings.Index(html, "app.js") {
		t.Error("htmx должен подключаться раньше app.js")
	}
}

func TestDashboard_NavigationByRole(t *testing.T) {
	html := renderWith(t, model.DefaultGlobalSettings(), Dashboard(DashboardData{
		Layout: Layout{Title: "title.dashboard", Active: "dashboard", Role: "user"},
	}))
	if strings.Contains(html, "/admin/settings/") {
		t.Error("пользователь не должен видеть разделы настроек")
	}
	if strings.Contains(html, "/admin/users") {
		t.Error("пользователь не должен видеть управление пользователями")
	}
}

func TestLayout_MaintenanceBanner(t *testing.T) {
	gs := model.DefaultGlobalSettings()
	gs.MaintenanceMode = true
	html := renderWith(t, gs, Users(UsersData{Layout: Layout{Title: "title.users", Active: "users", Role: "admin"}}))
	if !strings.Contains(html, "banner-warning") {
		t.Error("в режиме обслуживания администратор видит предупреждение")
	}
}

func TestHelp_Paragraphs(t *testing.T) {
	gs := model.DefaultGlobalSettings()
	html := renderWith(t, gs, Help("Первый абзац\n\n<b>второй</b>"))
	if !strings.Contains(html, "<p>Первый абзац</p>") {
		t.Errorf("нет первого абзаца: %s", html)
	}
	if !strings.Contains(html, "<p>&lt;b&gt;второй&lt;/b&gt;</p>") {
		t.Error("текст страницы должен экранироваться")
	}
	if strings.Contains(html, "app.js") {
		t.Error("публичной странице скрипты администратора не нужны")
	}

	if html := renderWith(t, gs, Terms("")); !strings.Contains(html, "pages.empty") {
		t.Error("пустая страница должна показывать заглушку")
	}
}

func TestMaintenance(t *testing.T) {
	html := renderWith(t, model.DefaultGlobalSettings(), Maintenance("Вернёмся в 18:00"))
	if !strings.Contains(html, "Вернёмся в 18:00") {
		t.Error("нет сообщения обслуживания")
	}
	if !strings.Contains(html, `action="/admin/logout"`) {
		t.Error("нет кнопки выхода")
	}
}

func TestGeneral_SelectsCurrentValues(t *testing.T) {
	gs := model.DefaultGlobalSettings()
	gs.Timezone = "Europe/Moscow"
	html := renderWith(t, gs, General(GeneralData{
		Layout:      Layout{Title: "title.general", Active: "general", Role: "admin"},
		Settings:    gs,
		DateFormats: []string{"DD/MM/YYYY", "YYYY-MM-DD"},
		TimeFormats: []string{"24h", "12h"},
		Timezones:   []string{"UTC", "Europe/Moscow"},
		Samples:     []SampleVar{{Name: "company", Value: "Acme"}},
	}))
	for _, want := range []string{
		`<option value="Europe/Moscow" selected>`,
		`<option value="UTC">`,
		`name="sample.company" value="Acme"`,
		`id="audit-table"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("нет %q", want)
		}
	}
}

func TestFiles_FolderLinks(t *testing.T) {
	html := renderWith(t, model.DefaultGlobalSettings(), Files(FilesData{
		Layout:     Layout{Title: "title.files", Active: "files", Role: "manager"},
		Department: "d1",
		Files: []model.FileEntry{
			{ID: "1", Name: "Договоры", Path: "/Shared/Договоры", IsFolder: true},
			{ID: "2", Name: "a b.pdf", Size: 2048},
		},
	}))
	if !strings.Contains(html, "/admin/files?department=d1&amp;folder=%2FShared%2F") {
		t.Error("ссылка на папку должна сохранять отдел")
	}
	if !strings.Contains(html, `hx-get="/admin/files/2/activity?name=a+b.pdf"`) {
		t.Error("нет запроса журнала активности файла")
	}
	if !strings.Contains(html, "2.0 KiB") {
		t.Error("нет размера файла")
	}
}

func TestEmailTemplateEditor(t *testing.T) {
	html := renderWith(t, model.DefaultGlobalSettings(), EmailTemplateEditor(TemplateEditorData{
		Layout:   Layout{Title: "title.email_templates", Active: "email_templates", Role: "admin"},
		Template: model.EmailTemplate{Key: "welcome", Name: "Welcome", Subject: "Hi", Body: "Hello {{name}}", Variables: []string{"name"}, IsCustomized: true},
	}))
	for _, want := range []string{
		`action="/admin/email-templates/welcome"`,
		`action="/admin/email-templates/welcome/reset"`,
		"<code>{{name}}</code>",
		`hx-trigger="input changed delay:250ms"`,
		`<div id="template-preview">`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("нет %q", want)
		}
	}
}
