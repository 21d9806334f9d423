package model

// Форматы даты, поддерживаемые форматированием.
const (
	DateFormatDMYSlash = "DD/MM/YYYY"
	DateFormatMDYSlash = "MM/DD/YYYY"
	DateFormatISO      = "YYYY-MM-DD"
	DateFormatDMYDot   = "DD.MM.YYYY"
)

// Форматы времени.
const (
	TimeFormat24h = "24h"
	TimeFormat12h = "12h"
)

// GlobalSettings — единый объект глобальных настроек арендатора.
type GlobalSettings struct {
	// --- Брендинг ---

	CompanyName string `json:"company_name"`
	// PrimaryColor — основной цвет интерфейса (#RRGGBB)
	PrimaryColor string `json:"primary_color,omitempty"`
	LogoURL      string `json:"logo_url,omitempty"`
	FaviconURL   string `json:"favicon_url,omitempty"`

	// --- Общие ---

	DateFormat string `json:"date_format"`
	TimeFormat string `json:"time_format"`
	// Timezone — имя зоны IANA (Europe/Moscow)
	Timezone              string `json:"timezone"`
	MaintenanceMode       bool   `json:"maintenance_mode"`
	MaintenanceMessage    string `json:"maintenance_message,omitempty"`
	SessionTimeoutMinutes int    `json:"session_timeout_minutes"`

	// --- Страницы ---

	HelpContent  string `json:"help_content,omitempty"`
	TermsContent string `json:"terms_content,omitempty"`
}

// DefaultGlobalSettings — значения до первой успешной загрузки.
func DefaultGlobalSettings() GlobalSettings {
	return GlobalSettings{
		CompanyName:           "DocVault",
		DateFormat:            DateFormatDMYSlash,
		TimeFormat:            TimeFormat24h,
		Timezone:              "UTC",
		SessionTimeoutMinutes: 60,
	}
}

// GlobalSettingsPatch — частичное обновление (PUT /api/global-settings).
// nil-поля не изменяются.
type GlobalSettingsPatch struct {
	CompanyName           *string `json:"company_name,omitempty" validate:"omitempty,min=1,max=100"`
	PrimaryColor          *string `json:"primary_color,omitempty" validate:"omitempty,rgbcolor"`
	DateFormat            *string `json:"date_format,omitempty" validate:"omitempty,oneof=DD/MM/YYYY MM/DD/YYYY YYYY-MM-DD DD.MM.YYYY"`
	TimeFormat            *string `json:"time_format,omitempty" validate:"omitempty,oneof=24h 12h"`
	Timezone              *string `json:"timezone,omitempty"`
	MaintenanceMode       *bool   `json:"maintenance_mode,omitempty"`
	MaintenanceMessage    *string `json:"maintenance_message,omitempty" validate:"omitempty,max=500"`
	SessionTimeoutMinutes *int    `json:"session_timeout_minutes,omitempty" validate:"omitempty,min=5,max=1440"`
	HelpContent           *string `json:"help_content,omitempty" validate:"omitempty,max=50000"`
	TermsContent          *string `json:"terms_content,omitempty" validate:"omitempty,max=50000"`
}

// Apply применяет частичное обновление к копии настроек.
func (p GlobalSettingsPatch) Apply(s GlobalSettings) GlobalSettings {
	if p.CompanyName != nil {
		s.CompanyName = *p.CompanyName
	}
	if p.PrimaryColor != nil {
		s.PrimaryColor = *p.PrimaryColor
	}
	if p.DateFormat != nil {
		s.DateFormat = *p.DateFormat
	}
	if p.TimeFormat != nil {
		s.TimeFormat = *p.TimeFormat
	}
	if p.Timezone != nil {
		s.Timezone = *p.Timezone
	}
	if p.MaintenanceMode != nil {
		s.MaintenanceMode = *p.MaintenanceMode
	}
	if p.MaintenanceMessage != nil {
		s.MaintenanceMessage = *p.MaintenanceMessage
	}
	if p.SessionTimeoutMinutes != nil {
		s.SessionTimeoutMinutes = *p.SessionTimeoutMinutes
	}
	if p.HelpContent != nil {
		s.HelpContent = *p.HelpContent
	}
	if p.TermsContent != nil {
		s.TermsContent = *p.TermsContent
	}
	return s
}
