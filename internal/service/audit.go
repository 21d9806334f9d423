// audit.go — журнал действий администраторов.
// Запись в журнал не влияет на результат операции: ошибка БД только логируется.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/docvault/admin-module/internal/repository"
)

// Коды действий журнала.
const (
	AuditTemplateCustomize   = "template.customize"
	AuditTemplateReset       = "template.reset"
	AuditSystemTemplateEdit  = "system_template.update"
	AuditFileRequestCreate   = "file_request.create"
	AuditFileRequestRevoke   = "file_request.revoke"
	AuditFileRequestDelete   = "file_request.delete"
	AuditUserSuspend         = "user.suspend"
	AuditUserUnsuspend       = "user.unsuspend"
	AuditUserEmail           = "user.email"
	AuditUserPassword        = "user.password"
	AuditUserRole            = "user.role"
	AuditUserDelete          = "user.delete"
	AuditQuarantineDelete    = "quarantine.delete"
	AuditScanSettingsUpdate  = "virus_scan.settings"
	AuditGlobalSettingsEdit  = "global_settings.update"
	AuditBrandingAssetUpload = "global_settings.asset"
	AuditPreviewDataUpdate   = "preview.sample_data"
	AuditRetentionUpdate     = "audit.retention"
)

// Типы объектов журнала.
const (
	TargetEmailTemplate  = "email_template"
	TargetFileRequest    = "file_request"
	TargetUser           = "user"
	TargetQuarantine     = "quarantine"
	TargetSettings       = "settings"
	TargetSystemTemplate = "system_template"
)

// AuditService — запись и чтение журнала действий.
type AuditService struct {
	repo   repository.AuditLogRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewAuditService создаёт сервис журнала.
// repo может быть nil — тогда действия только логируются.
func NewAuditService(repo repository.AuditLogRepository, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:   repo,
		logger: logger.With(slog.String("service", "audit")),
		now:    time.Now,
	}
}

// Record фиксирует действие текущего пользователя. opErr — результат операции.
func (s *AuditService) Record(ctx context.Context, action, targetType, targetID, details string, opErr error) {
	if s == nil {
		return
	}
	actor := ActorFromContext(ctx)
	entry := &repository.AuditEntry{
		ID:         uuid.New().String(),
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
		Success:    opErr == nil,
	}

	s.logger.Info("Действие администратора",
		slog.String("actor", actor.Name),
		slog.String("action", action),
		slog.String("target_type", targetType),
		slog.String("target_id", targetID),
		slog.Bool("success", entry.Success),
	)

	if s.repo == nil {
		return
	}
	// Запрос пользователя мог уже завершиться, запись журнала не должна теряться
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.repo.Insert(writeCtx, entry); err != nil {
		s.logger.Error("Ошибка записи в журнал действий",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
}

// List возвращает страницу журнала.
func (s *AuditService) List(ctx context.Context, targetType string, limit, offset int) ([]repository.AuditEntry, int, error) {
	if s.repo == nil {
		return nil, 0, nil
	}
	entries, total, err := s.repo.List(ctx, repository.AuditFilter{
		TargetType: targetType,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка чтения журнала: %w", err)
	}
	return entries, total, nil
}

// Prune удаляет записи старше retention.
func (s *AuditService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if s.repo == nil || retention <= 0 {
		return 0, nil
	}
	n, err := s.repo.DeleteOlderThan(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки журнала: %w", err)
	}
	if n > 0 {
		s.logger.Info("Журнал действий очищен", slog.Int64("deleted", n))
	}
	return n, nil
}

// RunRetention периодически очищает журнал до отмены ctx.
// Срок хранения читается из настроек UI на каждой итерации.
func (s *AuditService) RunRetention(ctx context.Context, interval time.Duration, retention func(context.Context) time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Prune(ctx, retention(ctx)); err != nil {
				s.logger.Warn("Очистка журнала не выполнена", slog.String("error", err.Error()))
			}
		}
	}
}
