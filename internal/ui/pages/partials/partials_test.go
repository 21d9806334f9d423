package partials

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
	"github.com/bigkaa/docvault/admin-module/internal/service"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	if err := c.Render(context.Background(), &b); err != nil {
		t.Fatalf("рендеринг: %v", err)
	}
	return b.String()
}

func TestAlert_EscapesMessage(t *testing.T) {
	html := render(t, Alert("error", `<script>alert(1)</script>`))
	if strings.Contains(html, "<script>") {
		t.Errorf("текст уведомления не экранирован: %s", html)
	}
	if !strings.Contains(html, `class="alert alert-error"`) {
		t.Errorf("нет класса варианта: %s", html)
	}
}

func TestDeleteUserButton(t *testing.T) {
	if html := render(t, DeleteUserButton("u1", false)); !strings.Contains(html, " disabled") {
		t.Errorf("кнопка должна быть неактивна: %s", html)
	}
	if html := render(t, DeleteUserButton("u1", true)); strings.Contains(html, " disabled") {
		t.Errorf("кнопка должна быть активна: %s", html)
	}
}

func TestScanList_LoadMoreDropsRepeatedClicks(t *testing.T) {
	data := ScanListData{
		Tab: string(service.TabHistory),
		History: service.ListSnapshot[model.ScanResult]{
			Items:   []model.ScanResult{{ID: "s1", FileName: "a.pdf", Status: "clean"}},
			Total:   3,
			Loaded:  true,
			HasMore: true,
		},
	}
	html := render(t, ScanList(data))
	for _, want := range []string{
		`id="load-more"`,
		`hx-get="/admin/settings/virus-scan/list/more?tab=history"`,
		`hx-sync="this:drop"`,
		`hx-disabled-elt="this"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("нет %s в кнопке догрузки", want)
		}
	}

	data.History.HasMore = false
	if html := render(t, ScanList(data)); strings.Contains(html, `id="load-more"`) {
		t.Error("без HasMore кнопки догрузки быть не должно")
	}
}

func TestScanList_QuarantineLoading(t *testing.T) {
	html := render(t, ScanList(ScanListData{Tab: string(service.TabQuarantine)}))
	if !strings.Contains(html, "common.loading") {
		t.Errorf("незагруженный карантин должен показывать загрузку: %s", html)
	}
}

func TestUserModal_SelectsCurrentRole(t *testing.T) {
	html := render(t, UserModal(UserModalData{
		User:  model.User{ID: "u1", Email: "bob@example.com", Role: "manager"},
		Roles: []string{"user", "manager", "admin"},
	}))
	if !strings.Contains(html, `<option value="manager" selected>`) {
		t.Errorf("текущая роль не выбрана: %s", html)
	}
	if strings.Contains(html, `<option value="user" selected>`) {
		t.Error("выбрана чужая роль")
	}
	if !strings.Contains(html, `hx-trigger="input changed delay:250ms"`) {
		t.Error("проверка подтверждения удаления должна идти с задержкой")
	}
}

func TestUserModal_Self(t *testing.T) {
	html := render(t, UserModal(UserModalData{
		User: model.User{ID: "u1", Email: "me@example.com", Role: "admin"},
		Self: true,
	}))
	if strings.Contains(html, "/admin/users/u1/delete") {
		t.Error("для своей учётной записи действий быть не должно")
	}
}

func TestFileActivity_ExportLinks(t *testing.T) {
	html := render(t, FileActivity(ActivityData{
		FileID:     "f 1",
		FileName:   "Отчёт & план.pdf",
		Activities: []model.Activity{{ID: "a1", Action: "download", UserName: "Bob", CreatedAt: time.Now()}},
	}))
	want := "/admin/files/f%201/activity/export?format=xlsx&amp;name=%D0%9E%D1%82%D1%87%D1%91%D1%82+%26+%D0%BF%D0%BB%D0%B0%D0%BD.pdf"
	if !strings.Contains(html, want) {
		t.Errorf("ссылка выгрузки закодирована неверно:\n%s", html)
	}
}

func TestFileRequestsTable_Actions(t *testing.T) {
	limit := 5
	rows := []FileRequestRow{
		{Request: model.FileRequest{ID: "r1", Name: "Договоры", UploadCount: 2, MaxUploads: &limit}, Status: model.FileRequestActive},
		{Request: model.FileRequest{ID: "r2", Name: "Старый"}, Status: model.FileRequestExpired},
	}
	html := render(t, FileRequestsTable(rows))
	if !strings.Contains(html, `hx-post="/admin/file-requests/r1/revoke"`) {
		t.Error("активный запрос должен отзываться")
	}
	if !strings.Contains(html, `hx-delete="/admin/file-requests/r2"`) {
		t.Error("истёкший запрос должен удаляться")
	}
	if !strings.Contains(html, "2 / 5") {
		t.Error("нет счётчика загрузок с лимитом")
	}
}

func TestAuditTable_Paging(t *testing.T) {
	html := render(t, AuditTable(AuditData{Total: 60, Offset: 25, Limit: 25, HasMore: true}))
	for _, want := range []string{
		`hx-get="/admin/settings/general/audit?offset=0"`,
		`hx-get="/admin/settings/general/audit?offset=50"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("нет ссылки %s", want)
		}
	}
}

func TestTemplatePreview_Undeclared(t *testing.T) {
	html := render(t, TemplatePreview(PreviewData{
		Subject:    "Hi <b>",
		Body:       "Line one\n\nLine two",
		Undeclared: []string{"x", "y"},
	}))
	if !strings.Contains(html, "<code>x</code>") || !strings.Contains(html, "<code>y</code>") {
		t.Errorf("нет необъявленных переменных: %s", html)
	}
	if !strings.Contains(html, "Hi &lt;b&gt;") {
		t.Error("тема не экранирована")
	}
	if strings.Count(html, "<p>") != 2 {
		t.Errorf("ожидалось два абзаца: %s", html)
	}
}
