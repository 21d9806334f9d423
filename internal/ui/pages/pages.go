// Пакет pages — страницы Admin UI на templ.
// Компоненты описаны в *.templ, здесь — данные страниц.
package pages

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.977 generate

import (
	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
	"github.com/bigkaa/docvault/admin-module/internal/ui/pages/partials"
)

// Layout — общие данные шапки и навигации.
type Layout struct {
	// Title — ключ перевода заголовка страницы
	Title string
	// Active — раздел навигации, подсвечиваемый в меню
	Active   string
	Username string
	Role     string
}

// DashboardData — главная страница.
type DashboardData struct {
	Layout
	// Metrics — состояние антивируса (только для admin, nil если недоступно)
	Metrics *model.ScanMetrics
}

// TemplateListData — список шаблонов писем.
type TemplateListData struct {
	Layout
	Templates []model.EmailTemplate
	// System — системные шаблоны по умолчанию вместо шаблонов арендатора
	System bool
	Error  string
}

// TemplateEditorData — редактор шаблона.
type TemplateEditorData struct {
	Layout
	Template model.EmailTemplate
	Preview  partials.PreviewData
	System   bool
	Error    string
}

// FileRequestsData — страница запросов файлов.
type FileRequestsData struct {
	Layout
	Rows       []partials.FileRequestRow
	Visibility string
	Error      string
}

// FilesData — страница файлов компании.
type FilesData struct {
	Layout
	Company     string
	Department  string
	Folder      string
	Departments []model.Department
	Files       []model.FileEntry
	Error       string
}

// UsersData — страница пользователей.
type UsersData struct {
	Layout
	Users  []model.User
	Search string
	Error  string
}

// VirusScanData — страница настроек антивируса.
type VirusScanData struct {
	Layout
	Settings model.TenantScanSettings
	Metrics  *model.ScanMetrics
	List     partials.ScanListData
	Error    string
}

// BrandingData — страница брендинга.
type BrandingData struct {
	Layout
	Settings model.GlobalSettings
}

// SampleVar — переменная данных предпросмотра.
type SampleVar struct {
	Name  string
	Value string
}

// GeneralData — общие настройки.
type GeneralData struct {
	Layout
	Settings       model.GlobalSettings
	DateFormats    []string
	TimeFormats    []string
	Timezones      []string
	AuditRetention string
	Samples        []SampleVar
	Audit          partials.AuditData
}

// PagesSettingsData — редактирование страниц справки и условий.
type PagesSettingsData struct {
	Layout
	Settings model.GlobalSettings
}
