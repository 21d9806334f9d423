// ui_settings.go — сервис управления настройками Admin UI.
// Хранит данные предпросмотра шаблонов писем и срок хранения журнала,
// валидирует ключи и значения.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/docvault/admin-module/internal/emailtpl"
	"github.com/bigkaa/docvault/admin-module/internal/repository"
)

const (
	// sampleKeyPrefix — префикс ключей с переопределёнными данными предпросмотра.
	sampleKeyPrefix = "preview.sample."
	// auditRetentionKey — срок хранения журнала действий (например, 90d).
	auditRetentionKey = "audit.retention_period"
	// defaultAuditRetention — срок хранения по умолчанию.
	defaultAuditRetention = 90 * 24 * time.Hour
	// maxSampleValueLen — ограничение длины значения предпросмотра.
	maxSampleValueLen = 500
)

// sampleVarRe — допустимое имя переменной предпросмотра.
var sampleVarRe = regexp.MustCompile(`^[A-Za-z0-9_.]{1,64}$`)

// TxRunner выполняет функцию в транзакции (repository.TxRunner).
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// UISettingsService — сервис для работы с настройками UI.
type UISettingsService struct {
	repo   repository.UISettingsRepository
	tx     TxRunner
	audit  *AuditService
	logger *slog.Logger
}

// NewUISettingsService создаёт сервис настроек UI.
// tx может быть nil — тогда групповые изменения выполняются без транзакции.
func NewUISettingsService(
	repo repository.UISettingsRepository,
	tx TxRunner,
	audit *AuditService,
	logger *slog.Logger,
) *UISettingsService {
	return &UISettingsService{
		repo:   repo,
		tx:     tx,
		audit:  audit,
		logger: logger.With(slog.String("service", "ui_settings")),
	}
}

// SampleData возвращает данные предпросмотра: значения по умолчанию
// с наложенными переопределениями администратора.
// Ошибка БД не мешает предпросмотру — используются значения по умолчанию.
func (s *UISettingsService) SampleData(ctx context.Context) map[string]string {
	defaults := emailtpl.DefaultSampleData()
	settings, err := s.repo.ListByPrefix(ctx, sampleKeyPrefix)
	if err != nil {
		s.logger.Warn("Не удалось загрузить данные предпросмотра",
			slog.String("error", err.Error()),
		)
		return defaults
	}

	overrides := make(map[string]string, len(settings))
	for _, st := range settings {
		overrides[strings.TrimPrefix(st.Key, sampleKeyPrefix)] = st.Value
	}
	return emailtpl.Merge(defaults, overrides)
}

// SetSampleData заменяет набор переопределений предпросмотра целиком.
// Пустое значение удаляет переопределение.
func (s *UISettingsService) SetSampleData(ctx context.Context, values map[string]string, updatedBy string) error {
	for name, value := range values {
		if !sampleVarRe.MatchString(name) {
			return validationf("недопустимое имя переменной %q", name)
		}
		if len(value) > maxSampleValueLen {
			return validationf("значение %q длиннее %d символов", name, maxSampleValueLen)
		}
	}

	kept := make(map[string]string, len(values))
	for name, value := range values {
		if value != "" {
			kept[name] = value
		}
	}

	var err error
	if s.tx != nil {
		err = s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
			return repository.NewUISettingsRepository(tx).ReplacePrefix(ctx, sampleKeyPrefix, kept, updatedBy)
		})
	} else {
		err = s.repo.ReplacePrefix(ctx, sampleKeyPrefix, kept, updatedBy)
	}
	s.audit.Record(ctx, AuditPreviewDataUpdate, TargetSettings, "preview", fmt.Sprintf("переопределений: %d", len(kept)), err)
	if err != nil {
		return fmt.Errorf("ошибка сохранения данных предпросмотра: %w", err)
	}

	s.logger.Info("Данные предпросмотра обновлены",
		slog.Int("count", len(kept)),
		slog.String("updated_by", updatedBy),
	)
	return nil
}

// AuditRetention возвращает срок хранения журнала действий.
func (s *UISettingsService) AuditRetention(ctx context.Context) time.Duration {
	setting, err := s.repo.Get(ctx, auditRetentionKey)
	if err != nil {
		return defaultAuditRetention
	}
	d, err := parseDurationExtended(setting.Value)
	if err != nil || d <= 0 {
		return defaultAuditRetention
	}
	return d
}

// SetAuditRetention сохраняет срок хранения журнала (формат 90d, 720h).
func (s *UISettingsService) SetAuditRetention(ctx context.Context, value, updatedBy string) error {
	d, err := parseDurationExtended(strings.TrimSpace(value))
	if err != nil || d < 24*time.Hour {
		return validationf("%s — некорректный период %q, минимум 1d", auditRetentionKey, value)
	}
	err = s.repo.Set(ctx, auditRetentionKey, strings.TrimSpace(value), updatedBy)
	s.audit.Record(ctx, AuditRetentionUpdate, TargetSettings, auditRetentionKey, strings.TrimSpace(value), err)
	if err != nil {
		return fmt.Errorf("ошибка сохранения настройки %q: %w", auditRetentionKey, err)
	}
	s.logger.Info("Настройка обновлена",
		slog.String("key", auditRetentionKey),
		slog.String("updated_by", updatedBy),
	)
	return nil
}

// parseDurationExtended расширяет time.ParseDuration, добавляя поддержку суффикса "d" (дни).
func parseDurationExtended(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		numStr := strings.TrimSuffix(s, "d")
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("некорректное число дней: %s", numStr)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
