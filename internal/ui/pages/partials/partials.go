// Пакет partials — фрагменты страниц для ответов на HTMX-запросы.
// Компоненты описаны в *.templ, здесь — их входные данные.
package partials

import (
	"net/url"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
	"github.com/bigkaa/docvault/admin-module/internal/repository"
	"github.com/bigkaa/docvault/admin-module/internal/service"
)

// PreviewData — результат подстановки данных предпросмотра.
type PreviewData struct {
	Subject    string
	Body       string
	Undeclared []string
}

// NewPreviewData конвертирует предпросмотр сервиса.
func NewPreviewData(p service.Preview) PreviewData {
	return PreviewData{Subject: p.Subject, Body: p.Body, Undeclared: p.Undeclared}
}

// FileRequestRow — строка таблицы запросов с отображаемым статусом.
type FileRequestRow struct {
	Request model.FileRequest
	Status  model.FileRequestStatus
}

// FileRequestDetailsData — окно подробностей запроса.
type FileRequestDetailsData struct {
	Request model.FileRequest
	Status  model.FileRequestStatus
	Uploads []model.Upload
}

// ActivityData — окно журнала активности файла.
type ActivityData struct {
	Company    string
	FileID     string
	FileName   string
	Activities []model.Activity
}

// UserModalData — окно управления пользователем.
type UserModalData struct {
	User model.User
	// Self — окно открыто для собственной учётной записи
	Self  bool
	Roles []string
	// Notice — сообщение об успешно выполненном действии
	Notice string
}

// ScanListData — содержимое вкладки антивируса.
type ScanListData struct {
	Tab        string
	History    service.ListSnapshot[model.ScanResult]
	Quarantine service.ListSnapshot[model.QuarantinedFile]
	Error      string
}

// AuditData — страница журнала действий.
type AuditData struct {
	Entries []repository.AuditEntry
	Total   int
	Offset  int
	Limit   int
	HasMore bool
}

// exportURL — ссылка выгрузки журнала активности в указанном формате.
func exportURL(data ActivityData, format string) string {
	q := url.Values{"format": {format}, "name": {data.FileName}}
	return "/admin/files/" + url.PathEscape(data.FileID) + "/activity/export?" + q.Encode()
}
