package repository

import (
	"context"
	"fmt"
	"time"
)

// AuditEntry — запись журнала действий администратора.
type AuditEntry struct {
	// ID — UUID записи
	ID string
	// ActorID — subject пользователя, выполнившего действие
	ActorID string
	// ActorName — имя пользователя для отображения
	ActorName string
	// Action — код действия (template.reset, user.suspend, ...)
	Action string
	// TargetType — тип объекта (email_template, file_request, user, ...)
	TargetType string
	// TargetID — идентификатор объекта
	TargetID string
	// Details — произвольное описание
	Details string
	// Success — завершилось ли действие успешно
	Success bool
	// CreatedAt — время записи
	CreatedAt time.Time
}

// AuditFilter — параметры выборки журнала.
type AuditFilter struct {
	// TargetType — фильтр по типу объекта (пустой — без фильтра)
	TargetType string
	Limit      int
	Offset     int
}

// AuditLogRepository — интерфейс для таблицы audit_log.
type AuditLogRepository interface {
	// Insert добавляет запись. При дубликате ID — ErrConflict.
	Insert(ctx context.Context, e *AuditEntry) error
	// List возвращает записи от новых к старым и общее число по фильтру.
	List(ctx context.Context, f AuditFilter) ([]AuditEntry, int, error)
	// DeleteOlderThan удаляет записи старше before, возвращает число удалённых.
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// auditLogRepo — реализация AuditLogRepository.
type auditLogRepo struct {
	db DBTX
}

// NewAuditLogRepository создаёт репозиторий журнала действий.
func NewAuditLogRepository(db DBTX) AuditLogRepository {
	return &auditLogRepo{db: db}
}

// Insert добавляет запись и заполняет CreatedAt.
func (r *auditLogRepo) Insert(ctx context.Context, e *AuditEntry) error {
	query := `
		INSERT INTO audit_log (id, actor_id, actor_name, action, target_type, target_id, details, success)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		e.ID, e.ActorID, e.ActorName, e.Action, e.TargetType, e.TargetID, e.Details, e.Success,
	).Scan(&e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка записи audit_log: %w", err)
	}
	return nil
}

// List возвращает страницу записей журнала.
func (r *auditLogRepo) List(ctx context.Context, f AuditFilter) ([]AuditEntry, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM audit_log WHERE ($1::text = '' OR target_type = $1)`
	if err := r.db.QueryRow(ctx, countQuery, f.TargetType).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта audit_log: %w", err)
	}

	query := `
		SELECT id, actor_id, actor_name, action, target_type, target_id, details, success, created_at
		FROM audit_log
		WHERE ($1::text = '' OR target_type = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, f.TargetType, limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения audit_log: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(
			&e.ID, &e.ActorID, &e.ActorName, &e.Action, &e.TargetType,
			&e.TargetID, &e.Details, &e.Success, &e.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования audit_log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// DeleteOlderThan удаляет устаревшие записи.
func (r *auditLogRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM audit_log WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки audit_log: %w", err)
	}
	return tag.RowsAffected(), nil
}
