package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/docvault/admin-module/internal/config"
	"github.com/bigkaa/docvault/admin-module/internal/database"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает pgxpool.Pool и функцию очистки.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("docvault_test"),
		postgres.WithUsername("docvault"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	// Настраиваем env для config.Load()
	t.Setenv("DA_DB_HOST", host)
	t.Setenv("DA_DB_PORT", port.Port())
	t.Setenv("DA_DB_NAME", "docvault_test")
	t.Setenv("DA_DB_USER", "docvault")
	t.Setenv("DA_DB_PASSWORD", "test-password")
	t.Setenv("DA_DB_SSL_MODE", "disable")
	t.Setenv("DA_BACKEND_URL", "http://localhost:3000")
	t.Setenv("DA_KEYCLOAK_URL", "http://localhost:8080")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Применяем миграции
	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	// Подключаемся
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

// --- Тесты UISettingsRepository ---

func TestUISettingsCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewUISettingsRepository(pool)

	// Get несуществующей настройки
	if _, err := repo.Get(ctx, "preview.sample.user_name"); err != ErrNotFound {
		t.Fatalf("Get() ожидали ErrNotFound, получили %v", err)
	}

	// Set + Get
	if err := repo.Set(ctx, "preview.sample.user_name", "Иван Петров", "admin"); err != nil {
		t.Fatalf("Set() ошибка: %v", err)
	}
	s, err := repo.Get(ctx, "preview.sample.user_name")
	if err != nil {
		t.Fatalf("Get() ошибка: %v", err)
	}
	if s.Value != "Иван Петров" || s.UpdatedBy != "admin" {
		t.Errorf("Get() = %+v", s)
	}

	// Upsert
	if err := repo.Set(ctx, "preview.sample.user_name", "Анна", "manager"); err != nil {
		t.Fatalf("Set() повторно ошибка: %v", err)
	}
	s, _ = repo.Get(ctx, "preview.sample.user_name")
	if s.Value != "Анна" || s.UpdatedBy != "manager" {
		t.Errorf("после upsert Get() = %+v", s)
	}

	// ListByPrefix
	if err := repo.Set(ctx, "preview.sample.company_name", "Acme", "admin"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Set(ctx, "audit.retention_days", "30", "admin"); err != nil {
		t.Fatal(err)
	}
	list, err := repo.ListByPrefix(ctx, "preview.sample.")
	if err != nil {
		t.Fatalf("ListByPrefix() ошибка: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("ListByPrefix() вернул %d записей, ожидали 2", len(list))
	}

	// ReplacePrefix: удаляет отсутствующие ключи группы, не трогая другие группы
	err = repo.ReplacePrefix(ctx, "preview.sample.", map[string]string{
		"company_name": "Globex",
		"promo_code":   "SPRING",
	}, "admin")
	if err != nil {
		t.Fatalf("ReplacePrefix() ошибка: %v", err)
	}
	list, err = repo.ListByPrefix(ctx, "preview.sample.")
	if err != nil {
		t.Fatalf("ListByPrefix() ошибка: %v", err)
	}
	if len(list) != 2 || list[0].Key != "preview.sample.company_name" || list[0].Value != "Globex" ||
		list[1].Key != "preview.sample.promo_code" {
		t.Errorf("после ReplacePrefix() = %+v", list)
	}
	if _, err := repo.Get(ctx, "preview.sample.user_name"); err != ErrNotFound {
		t.Errorf("ключ вне набора должен быть удалён, получили %v", err)
	}
	if _, err := repo.Get(ctx, "audit.retention_days"); err != nil {
		t.Errorf("настройка другой группы удалена: %v", err)
	}

	// Пустой набор очищает группу
	if err := repo.ReplacePrefix(ctx, "preview.sample.", nil, "admin"); err != nil {
		t.Fatalf("ReplacePrefix(nil) ошибка: %v", err)
	}
	if list, _ := repo.ListByPrefix(ctx, "preview.sample."); len(list) != 0 {
		t.Errorf("группа не очищена: %+v", list)
	}
}

func TestLikePrefix(t *testing.T) {
	if got := likePrefix("a_b%"); got != `a\_b\%%` {
		t.Errorf("likePrefix = %q", got)
	}
}

func TestUISettingsInTx(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	runner := NewTxRunner(pool)

	// Ошибка внутри транзакции — изменения откатываются
	errBoom := errors.New("boom")
	err := runner.RunInTx(ctx, func(tx pgx.Tx) error {
		if err := NewUISettingsRepository(tx).Set(ctx, "preview.sample.file_name", "a.pdf", "admin"); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("RunInTx() ожидали errBoom, получили %v", err)
	}
	if _, err := NewUISettingsRepository(pool).Get(ctx, "preview.sample.file_name"); err != ErrNotFound {
		t.Errorf("после отката ожидали ErrNotFound, получили %v", err)
	}
}

// --- Тесты AuditLogRepository ---

func TestAuditLog(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewAuditLogRepository(pool)

	entries := []*AuditEntry{
		{ID: uuid.New().String(), ActorID: "u1", ActorName: "admin", Action: "template.reset",
			TargetType: "email_template", TargetID: "welcome", Success: true},
		{ID: uuid.New().String(), ActorID: "u1", ActorName: "admin", Action: "user.suspend",
			TargetType: "user", TargetID: "u2", Details: "timed", Success: true},
		{ID: uuid.New().String(), ActorID: "u1", ActorName: "admin", Action: "user.delete",
			TargetType: "user", TargetID: "u3", Success: false},
	}
	for _, e := range entries {
		if err := repo.Insert(ctx, e); err != nil {
			t.Fatalf("Insert() ошибка: %v", err)
		}
		if e.CreatedAt.IsZero() {
			t.Error("CreatedAt не установлен")
		}
	}

	// Дубликат ID
	if err := repo.Insert(ctx, entries[0]); err != ErrConflict {
		t.Errorf("Insert() дубликата ожидали ErrConflict, получили %v", err)
	}

	all, total, err := repo.List(ctx, AuditFilter{})
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Errorf("List() total=%d len=%d, ожидали 3", total, len(all))
	}

	users, total, err := repo.List(ctx, AuditFilter{TargetType: "user", Limit: 1})
	if err != nil {
		t.Fatalf("List(user) ошибка: %v", err)
	}
	if total != 2 || len(users) != 1 {
		t.Errorf("List(user, limit=1) total=%d len=%d, ожидали 2 и 1", total, len(users))
	}

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan() ошибка: %v", err)
	}
	if deleted != 3 {
		t.Errorf("DeleteOlderThan() удалил %d, ожидали 3", deleted)
	}
}
