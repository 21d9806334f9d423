// templates.go — шаблоны писем арендатора и системные шаблоны.
package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
	"github.com/bigkaa/docvault/admin-module/internal/emailtpl"
)

// Ограничения на размер шаблона.
const (
	maxSubjectLen = 500
	maxBodyLen    = 100_000
)

// TemplateBackend — операции backend для шаблонов писем.
type TemplateBackend interface {
	ListTenantTemplates(ctx context.Context) ([]model.EmailTemplate, error)
	GetTenantTemplate(ctx context.Context, key string) (*model.EmailTemplate, error)
	CustomizeTenantTemplate(ctx context.Context, key string, upd model.EmailTemplateUpdate) (*model.EmailTemplate, error)
	ResetTenantTemplate(ctx context.Context, key string) error
	ListSystemTemplates(ctx context.Context) ([]model.EmailTemplate, error)
	UpdateSystemTemplate(ctx context.Context, key string, upd model.EmailTemplateUpdate) (*model.EmailTemplate, error)
}

// SampleDataSource — источник данных предпросмотра.
type SampleDataSource interface {
	SampleData(ctx context.Context) map[string]string
}

// Preview — результат подстановки данных в шаблон.
type Preview struct {
	Subject string
	Body    string
	// Undeclared — плейсхолдеры, которых нет в списке переменных шаблона
	Undeclared []string
}

// TemplateService — редактирование и предпросмотр шаблонов писем.
type TemplateService struct {
	backend TemplateBackend
	samples SampleDataSource
	audit   *AuditService
	logger  *slog.Logger
}

// NewTemplateService создаёт сервис шаблонов.
func NewTemplateService(b TemplateBackend, samples SampleDataSource, audit *AuditService, logger *slog.Logger) *TemplateService {
	return &TemplateService{
		backend: b,
		samples: samples,
		audit:   audit,
		logger:  logger.With(slog.String("service", "templates")),
	}
}

// List возвращает шаблоны арендатора, отсортированные по названию.
func (s *TemplateService) List(ctx context.Context) ([]model.EmailTemplate, error) {
	list, err := s.backend.ListTenantTemplates(ctx)
	if err != nil {
		return nil, mapBackendError("список шаблонов", err)
	}
	sortTemplates(list)
	return list, nil
}

// Get возвращает шаблон арендатора по ключу.
func (s *TemplateService) Get(ctx context.Context, key string) (*model.EmailTemplate, error) {
	if strings.TrimSpace(key) == "" {
		return nil, validationf("пустой ключ шаблона")
	}
	tpl, err := s.backend.GetTenantTemplate(ctx, key)
	if err != nil {
		return nil, mapBackendError("получение шаблона", err)
	}
	return tpl, nil
}

// Customize сохраняет переопределение шаблона арендатора.
func (s *TemplateService) Customize(ctx context.Context, key, subject, body string) (*model.EmailTemplate, error) {
	upd, err := templateUpdate(subject, body)
	if err != nil {
		return nil, err
	}

	tpl, err := s.backend.CustomizeTenantTemplate(ctx, key, upd)
	s.audit.Record(ctx, AuditTemplateCustomize, TargetEmailTemplate, key, "", err)
	if err != nil {
		return nil, mapBackendError("сохранение шаблона", err)
	}
	return tpl, nil
}

// Reset сбрасывает переопределённый шаблон к системному.
// Для непереопределённого шаблона запрос не отправляется.
func (s *TemplateService) Reset(ctx context.Context, tpl *model.EmailTemplate) error {
	if !tpl.CanReset() {
		return validationf("шаблон не переопределён, сбрасывать нечего")
	}

	err := s.backend.ResetTenantTemplate(ctx, tpl.Key)
	s.audit.Record(ctx, AuditTemplateReset, TargetEmailTemplate, tpl.Key, "", err)
	if err != nil {
		s.logger.Error("Ошибка сброса шаблона",
			slog.String("key", tpl.Key),
			slog.String("error", err.Error()),
		)
		return mapBackendError("сброс шаблона", err)
	}
	return nil
}

// ListSystem возвращает системные шаблоны.
func (s *TemplateService) ListSystem(ctx context.Context) ([]model.EmailTemplate, error) {
	list, err := s.backend.ListSystemTemplates(ctx)
	if err != nil {
		return nil, mapBackendError("список системных шаблонов", err)
	}
	sortTemplates(list)
	return list, nil
}

// GetSystem возвращает системный шаблон по ключу.
// Отдельного endpoint у backend нет, шаблон ищется в списке.
func (s *TemplateService) GetSystem(ctx context.Context, key string) (*model.EmailTemplate, error) {
	list, err := s.ListSystem(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Key == key {
			return &list[i], nil
		}
	}
	return nil, ErrNotFound
}

// UpdateSystem сохраняет системный шаблон.
func (s *TemplateService) UpdateSystem(ctx context.Context, key, subject, body string) (*model.EmailTemplate, error) {
	upd, err := templateUpdate(subject, body)
	if err != nil {
		return nil, err
	}

	tpl, err := s.backend.UpdateSystemTemplate(ctx, key, upd)
	s.audit.Record(ctx, AuditSystemTemplateEdit, TargetSystemTemplate, key, "", err)
	if err != nil {
		return nil, mapBackendError("сохранение системного шаблона", err)
	}
	return tpl, nil
}

// Preview подставляет данные предпросмотра в тему и тело.
// declared — переменные шаблона, для остальных плейсхолдеров выдаётся предупреждение.
func (s *TemplateService) Preview(ctx context.Context, subject, body string, declared []string) Preview {
	data := s.samples.SampleData(ctx)
	return Preview{
		Subject:    emailtpl.Render(subject, data),
		Body:       emailtpl.Render(body, data),
		Undeclared: emailtpl.Undeclared(declared, subject, body),
	}
}

func templateUpdate(subject, body string) (model.EmailTemplateUpdate, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return model.EmailTemplateUpdate{}, validationf("тема письма обязательна")
	}
	if strings.TrimSpace(body) == "" {
		return model.EmailTemplateUpdate{}, validationf("текст письма обязателен")
	}
	if len(subject) > maxSubjectLen {
		return model.EmailTemplateUpdate{}, validationf("тема длиннее %d символов", maxSubjectLen)
	}
	if len(body) > maxBodyLen {
		return model.EmailTemplateUpdate{}, validationf("текст длиннее %d символов", maxBodyLen)
	}
	return model.EmailTemplateUpdate{Subject: subject, Body: body}, nil
}

func sortTemplates(list []model.EmailTemplate) {
	sort.SliceStable(list, func(i, j int) bool {
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})
}
