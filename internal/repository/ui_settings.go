package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// UISetting — строка таблицы ui_settings: данные предпросмотра писем
// (preview.sample.*) и параметры журнала (audit.*).
type UISetting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
	// UpdatedBy — username администратора
	UpdatedBy string
}

// UISettingsRepository — настройки Admin UI, хранящиеся в локальной БД.
type UISettingsRepository interface {
	// Get возвращает настройку по ключу. Если не найдена — ErrNotFound.
	Get(ctx context.Context, key string) (*UISetting, error)
	// Set создаёт или обновляет настройку.
	Set(ctx context.Context, key, value, updatedBy string) error
	// ListByPrefix возвращает настройки группы, отсортированные по ключу.
	ListByPrefix(ctx context.Context, prefix string) ([]UISetting, error)
	// ReplacePrefix заменяет группу настроек набором values (ключ без
	// префикса → значение). Ключи группы, которых нет в наборе, удаляются.
	ReplacePrefix(ctx context.Context, prefix string, values map[string]string, updatedBy string) error
}

type uiSettingsRepo struct {
	db DBTX
}

// NewUISettingsRepository создаёт репозиторий настроек UI.
// db — пул или транзакция.
func NewUISettingsRepository(db DBTX) UISettingsRepository {
	return &uiSettingsRepo{db: db}
}

const upsertUISettingSQL = `
	INSERT INTO ui_settings (key, value, updated_by)
	VALUES ($1, $2, $3)
	ON CONFLICT (key) DO UPDATE
	SET value = EXCLUDED.value,
		updated_by = EXCLUDED.updated_by,
		updated_at = NOW()`

func (r *uiSettingsRepo) Get(ctx context.Context, key string) (*UISetting, error) {
	rows, err := r.db.Query(ctx, `
		SELECT key, value, updated_at, updated_by
		FROM ui_settings
		WHERE key = $1`, key)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения ui_settings[%s]: %w", key, err)
	}
	s, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[UISetting])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения ui_settings[%s]: %w", key, err)
	}
	return &s, nil
}

func (r *uiSettingsRepo) Set(ctx context.Context, key, value, updatedBy string) error {
	if _, err := r.db.Exec(ctx, upsertUISettingSQL, key, value, updatedBy); err != nil {
		return fmt.Errorf("ошибка сохранения ui_settings[%s]: %w", key, err)
	}
	return nil
}

// ListByPrefix выбирает ключи группы, например prefix="preview.sample.".
// Символы шаблона LIKE в префиксе экранируются.
func (r *uiSettingsRepo) ListByPrefix(ctx context.Context, prefix string) ([]UISetting, error) {
	rows, err := r.db.Query(ctx, `
		SELECT key, value, updated_at, updated_by
		FROM ui_settings
		WHERE key LIKE $1 ESCAPE '\'
		ORDER BY key`, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("ошибка получения ui_settings по префиксу %q: %w", prefix, err)
	}
	settings, err := pgx.CollectRows(rows, pgx.RowToStructByPos[UISetting])
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ui_settings по префиксу %q: %w", prefix, err)
	}
	return settings, nil
}

// ReplacePrefix выполняет удаление и upsert одним пакетом запросов.
// Атомарность обеспечивает вызывающий код, передавая транзакцию.
func (r *uiSettingsRepo) ReplacePrefix(ctx context.Context, prefix string, values map[string]string, updatedBy string) error {
	keep := make([]string, 0, len(values))
	for name := range values {
		keep = append(keep, prefix+name)
	}

	if _, err := r.db.Exec(ctx, `
		DELETE FROM ui_settings
		WHERE key LIKE $1 ESCAPE '\' AND NOT (key = ANY($2))`,
		likePrefix(prefix), keep,
	); err != nil {
		return fmt.Errorf("ошибка очистки ui_settings по префиксу %q: %w", prefix, err)
	}
	if len(values) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for name, value := range values {
		batch.Queue(upsertUISettingSQL, prefix+name, value, updatedBy)
	}
	if err := r.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("ошибка сохранения ui_settings по префиксу %q: %w", prefix, err)
	}
	return nil
}

// batchSender — пул и транзакция pgx умеют отправлять пакет запросов.
type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func (r *uiSettingsRepo) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	if bs, ok := r.db.(batchSender); ok {
		return bs.SendBatch(ctx, batch).Close()
	}
	for _, q := range batch.QueuedQueries {
		if _, err := r.db.Exec(ctx, q.SQL, q.Arguments...); err != nil {
			return err
		}
	}
	return nil
}

// likePrefix — шаблон LIKE для ключей, начинающихся на prefix.
func likePrefix(prefix string) string {
	escaped := make([]rune, 0, len(prefix)+1)
	for _, c := range prefix {
		if c == '%' || c == '_' || c == '\\' {
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, c)
	}
	return string(escaped) + "%"
}
