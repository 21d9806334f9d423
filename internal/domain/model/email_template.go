// Пакет model — доменные модели Admin Module.
// DTO повторяют JSON-контракт backend API, клиентских инвариантов
// сверх формы данных у них нет.
package model

import "time"

// EmailTemplate — шаблон письма арендатора (или системный шаблон по умолчанию).
type EmailTemplate struct {
	// Key — машинное имя шаблона (file_request_created, password_reset, ...)
	Key string `json:"key"`
	// Name — человекочитаемое название
	Name string `json:"name"`
	// Description — назначение шаблона (опционально)
	Description string `json:"description,omitempty"`
	// Subject — тема письма с плейсхолдерами {{var}}
	Subject string `json:"subject"`
	// Body — тело письма с плейсхолдерами {{var}}
	Body string `json:"body"`
	// Variables — имена переменных, доступных в шаблоне
	Variables []string `json:"variables"`
	// IsCustomized — true, если арендатор переопределил системный шаблон
	IsCustomized bool `json:"is_customized"`
	// GlobalSubject — тема системного шаблона (fallback), если есть
	GlobalSubject *string `json:"global_subject,omitempty"`
	// GlobalBody — тело системного шаблона (fallback), если есть
	GlobalBody *string `json:"global_body,omitempty"`
	// UpdatedAt — время последнего изменения
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// CanReset сообщает, можно ли сбросить шаблон к системному.
// Сброс имеет смысл только для переопределённого шаблона.
func (t *EmailTemplate) CanReset() bool {
	return t != nil && t.IsCustomized
}

// EmailTemplateUpdate — тело PUT-запроса изменения шаблона.
type EmailTemplateUpdate struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
