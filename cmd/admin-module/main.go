// Точка входа Admin Module — административный интерфейс DocVault.
// Загружает конфигурацию, применяет миграции локальной БД (журнал действий,
// настройки UI), создаёт клиент backend API и сервисный слой, Admin UI
// с входом через Keycloak (PKCE), JSON API с JWT middleware,
// запускает фоновые задачи (очистка журнала, topologymetrics)
// и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/docvault/admin-module/internal/api/handlers"
	"github.com/bigkaa/docvault/admin-module/internal/api/middleware"
	"github.com/bigkaa/docvault/admin-module/internal/backend"
	"github.com/bigkaa/docvault/admin-module/internal/config"
	"github.com/bigkaa/docvault/admin-module/internal/database"
	"github.com/bigkaa/docvault/admin-module/internal/repository"
	"github.com/bigkaa/docvault/admin-module/internal/server"
	"github.com/bigkaa/docvault/admin-module/internal/service"
	"github.com/bigkaa/docvault/admin-module/internal/ui/auth"
	uihandlers "github.com/bigkaa/docvault/admin-module/internal/ui/handlers"
	"github.com/bigkaa/docvault/admin-module/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/docvault/admin-module/internal/ui/middleware"
)

// auditPruneInterval — период очистки журнала действий.
const auditPruneInterval = time.Hour

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Admin Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("backend_url", cfg.BackendURL),
	)

	// Предупреждения о дефолтных значениях topologymetrics
	if os.Getenv("DA_DEPHEALTH_GROUP") == "" {
		logger.Warn("DA_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. HTTP-клиент с кастомным CA для Keycloak.
	// Backend и Keycloak публикуются через один gateway и один CA.
	var httpClientCA *http.Client
	if cfg.BackendCACertPath != "" {
		httpClientCA, err = buildHTTPClientWithCA(cfg.BackendCACertPath)
		if err != nil {
			logger.Error("Ошибка загрузки CA-сертификата",
				slog.String("path", cfg.BackendCACertPath),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		logger.Info("CA-сертификат загружен", slog.String("path", cfg.BackendCACertPath))
	}

	// 6. Клиент backend API (bearer-токен пользователя берётся из контекста)
	backendClient, err := backend.New(cfg.BackendURL, cfg.BackendCACertPath, cfg.BackendTimeout, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента backend", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 7. Repositories
	auditRepo := repository.NewAuditLogRepository(pool)
	uiSettingsRepo := repository.NewUISettingsRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	// 8. Services
	auditSvc := service.NewAuditService(auditRepo, logger)
	uiSettingsSvc := service.NewUISettingsService(uiSettingsRepo, txRunner, auditSvc, logger)
	globalSettingsSvc := service.NewGlobalSettingsService(backendClient, auditSvc, cfg.SettingsTTL, logger)
	templatesSvc := service.NewTemplateService(backendClient, uiSettingsSvc, auditSvc, logger)
	fileRequestsSvc := service.NewFileRequestService(backendClient, auditSvc, logger)
	filesSvc := service.NewFileService(backendClient, globalSettingsSvc, cfg.DepartmentsCacheTTL, logger)
	usersSvc := service.NewUserService(backendClient, auditSvc, logger)
	virusScanSvc := service.NewVirusScanService(backendClient, auditSvc, cfg.ScanPageSize, cfg.ViewStateTTL, logger)

	// 9. Readiness checkers (PostgreSQL, Keycloak, backend)
	pgChecker := database.NewReadinessChecker(pool)
	kcChecker, err := middleware.NewKeycloakReadinessChecker(cfg.JWTJWKSURL, cfg.BackendCACertPath, 5*time.Second)
	if err != nil {
		logger.Error("Ошибка создания Keycloak readiness checker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	healthHandler := handlers.NewHealthHandler(pgChecker, kcChecker, backendClient)

	// 10. JSON API handler
	apiHandler := handlers.NewAPIHandler(healthHandler, templatesSvc, auditSvc, logger)

	// 11. JWT — проверка bearer-токенов API и id/access token при входе в UI
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.BackendCACertPath,
		cfg.JWTIssuer,
		cfg.RoleAdminGroups,
		cfg.RoleManagerGroups,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 12. Фоновые задачи
	go auditSvc.RunRetention(ctx, auditPruneInterval, uiSettingsSvc.AuditRetention)

	// 12.1 topologymetrics — мониторинг зависимостей (PostgreSQL, backend, Keycloak)
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DependencyTargets{
		ServiceID:       "admin-module",
		Group:           cfg.DephealthGroup,
		DB:              pgDB,
		PostgresURL:     cfg.DatabaseURL(),
		BackendURL:      cfg.BackendURL,
		KeycloakJWKSURL: cfg.JWTJWKSURL,
		Interval:        cfg.DephealthCheckInterval,
		SkipTLSVerify:   cfg.BackendCACertPath != "",
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", startErr.Error()),
		)
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 13. i18n — каталоги переводов UI
	bundle := i18n.Init(logger)
	if err := i18n.LoadFromEmbedFS(bundle, logger); err != nil {
		logger.Error("Ошибка загрузки переводов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 14. Admin UI
	// Secure cookie: true если браузер ходит в Keycloak по https
	secureCookie := strings.HasPrefix(cfg.KeycloakBrowserURL, "https")

	// Session Manager — шифрование/дешифрование UI-сессий (AES-256-GCM)
	sessionMgr, err := auth.NewSessionManager(cfg.UISessionSecret, secureCookie, 0)
	if err != nil {
		logger.Error("Ошибка создания Session Manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.UISessionSecret == "" {
		logger.Warn("DA_UI_SESSION_SECRET не задан, UI-сессии не сохраняются между рестартами")
	}

	// OIDC-клиент для авторизации через Keycloak (PKCE)
	oidcClient := auth.NewOIDCClient(auth.OIDCConfig{
		KeycloakURL:        cfg.KeycloakURL,
		BrowserKeycloakURL: cfg.KeycloakBrowserURL,
		Realm:              cfg.KeycloakRealm,
		ClientID:           cfg.UIOIDCClientID,
		HTTPClient:         httpClientCA,
	})

	uiComponents := &server.UIComponents{
		AuthHandler: uihandlers.NewAuthHandler(
			oidcClient, jwtAuth, sessionMgr,
			virusScanSvc, globalSettingsSvc,
			secureCookie,
			logger,
		),
		AuthMiddleware:      uimiddleware.NewUIAuth(sessionMgr, oidcClient, logger),
		Settings:            globalSettingsSvc,
		DashboardHandler:    uihandlers.NewDashboardHandler(virusScanSvc, logger),
		TemplatesHandler:    uihandlers.NewTemplatesHandler(templatesSvc, logger),
		FileRequestsHandler: uihandlers.NewFileRequestsHandler(fileRequestsSvc, logger),
		FilesHandler:        uihandlers.NewFilesHandler(filesSvc, logger),
		UsersHandler:        uihandlers.NewUsersHandler(usersSvc, logger),
		VirusScanHandler:    uihandlers.NewVirusScanHandler(virusScanSvc, cfg.SSEInterval, logger),
		SettingsHandler:     uihandlers.NewSettingsHandler(globalSettingsSvc, uiSettingsSvc, auditSvc, logger),
		PublicHandler:       uihandlers.NewPublicHandler(globalSettingsSvc, logger),
	}

	logger.Info("Admin UI инициализирован",
		slog.String("oidc_client_id", cfg.UIOIDCClientID),
		slog.Bool("secure_cookie", secureCookie),
	)

	// 15. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth, uiComponents)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 16. Graceful shutdown фоновых задач
	logger.Info("Останавливаем фоновые задачи...")
	cancel()
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Admin Module остановлен")
}

// buildHTTPClientWithCA создаёт HTTP-клиент с кастомным CA-сертификатом.
func buildHTTPClientWithCA(caCertPath string) (*http.Client, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, err
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				RootCAs:    caCertPool,
				MinVersion: tls.VersionTLS12,
			},
		},
	}, nil
}
