// Пакет config — загрузка и валидация конфигурации DocVault Admin Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Admin Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- Backend REST API ---

	// Базовый URL backend API (например, https://docvault.kryukov.lan)
	BackendURL string
	// Таймаут HTTP-запросов к backend
	BackendTimeout time.Duration
	// Путь к CA-сертификату для TLS-соединений с backend (опционально)
	BackendCACertPath string

	// --- PostgreSQL (локальное хранилище модуля) ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Keycloak / OIDC ---

	// URL Keycloak для server-to-server запросов
	KeycloakURL string
	// Внешний URL Keycloak для browser redirects (по умолчанию = KeycloakURL)
	KeycloakBrowserURL string
	// Имя realm в Keycloak
	KeycloakRealm string
	// Client ID публичного OIDC-клиента Admin UI
	UIOIDCClientID string
	// Ключ шифрования UI-сессий (пустой — случайный при старте)
	UISessionSecret string

	// --- JWT ---

	// Issuer JWT (авто-вычисляется из KeycloakURL, если не задан)
	JWTIssuer string
	// URL JWKS endpoint (авто-вычисляется из KeycloakURL, если не задан)
	JWTJWKSURL string
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Допустимое отклонение часов при проверке JWT
	JWTLeeway time.Duration

	// --- Маппинг групп → ролей ---

	// Группы Keycloak, дающие роль admin
	RoleAdminGroups []string
	// Группы Keycloak, дающие роль manager
	RoleManagerGroups []string

	// --- Кэши и представления ---

	// Время жизни кэша глобальных настроек
	SettingsTTL time.Duration
	// Время жизни кэша списка отделов
	DepartmentsCacheTTL time.Duration
	// Время жизни состояния списков на странице антивируса
	ViewStateTTL time.Duration
	// Размер страницы истории сканирований и карантина
	ScanPageSize int
	// Интервал отправки SSE-обновлений метрик сканера
	SSEInterval time.Duration

	// --- topologymetrics ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
//
//nolint:funlen,gocyclo // линейная последовательность чтения переменных
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// DA_PORT — порт HTTP-сервера (по умолчанию 8010)
	cfg.Port, err = getEnvInt("DA_PORT", 8010)
	if err != nil {
		return nil, fmt.Errorf("DA_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("DA_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("DA_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("DA_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("DA_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("DA_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- Backend ---

	cfg.BackendURL, err = getEnvRequired("DA_BACKEND_URL")
	if err != nil {
		return nil, err
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	if u, parseErr := url.Parse(cfg.BackendURL); parseErr != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("DA_BACKEND_URL: ожидается http:// или https:// URL, получено %q", cfg.BackendURL)
	}

	cfg.BackendTimeout, err = getEnvDuration("DA_BACKEND_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DA_BACKEND_TIMEOUT: %w", err)
	}

	cfg.BackendCACertPath = getEnvDefault("DA_BACKEND_CA_CERT_PATH", "")

	// --- PostgreSQL ---

	cfg.DBHost, err = getEnvRequired("DA_DB_HOST")
	if err != nil {
		return nil, err
	}

	cfg.DBPort, err = getEnvInt("DA_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("DA_DB_PORT: %w", err)
	}

	cfg.DBName, err = getEnvRequired("DA_DB_NAME")
	if err != nil {
		return nil, err
	}

	cfg.DBUser, err = getEnvRequired("DA_DB_USER")
	if err != nil {
		return nil, err
	}

	cfg.DBPassword, err = getEnvRequired("DA_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	cfg.DBSSLMode = getEnvDefault("DA_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("DA_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Keycloak ---

	cfg.KeycloakURL, err = getEnvRequired("DA_KEYCLOAK_URL")
	if err != nil {
		return nil, err
	}
	cfg.KeycloakURL = strings.TrimRight(cfg.KeycloakURL, "/")
	cfg.KeycloakBrowserURL = strings.TrimRight(getEnvDefault("DA_KEYCLOAK_BROWSER_URL", cfg.KeycloakURL), "/")
	cfg.KeycloakRealm = getEnvDefault("DA_KEYCLOAK_REALM", "docvault")
	cfg.UIOIDCClientID = getEnvDefault("DA_UI_OIDC_CLIENT_ID", "docvault-admin-ui")
	cfg.UISessionSecret = getEnvDefault("DA_UI_SESSION_SECRET", "")

	// --- JWT ---

	cfg.JWTIssuer = getEnvDefault("DA_JWT_ISSUER",
		fmt.Sprintf("%s/realms/%s", cfg.KeycloakURL, cfg.KeycloakRealm))
	cfg.JWTJWKSURL = getEnvDefault("DA_JWT_JWKS_URL",
		fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", cfg.KeycloakURL, cfg.KeycloakRealm))

	cfg.JWKSRefreshInterval, err = getEnvDuration("DA_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("DA_JWKS_REFRESH_INTERVAL: %w", err)
	}

	cfg.JWTLeeway, err = getEnvDuration("DA_JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DA_JWT_LEEWAY: %w", err)
	}

	// --- Роли ---

	cfg.RoleAdminGroups = parseCSV(getEnvDefault("DA_ROLE_ADMIN_GROUPS", "docvault-admins"))
	cfg.RoleManagerGroups = parseCSV(getEnvDefault("DA_ROLE_MANAGER_GROUPS", "docvault-managers"))

	// --- Кэши и представления ---

	cfg.SettingsTTL, err = getEnvDuration("DA_SETTINGS_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("DA_SETTINGS_TTL: %w", err)
	}

	cfg.DepartmentsCacheTTL, err = getEnvDuration("DA_DEPARTMENTS_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("DA_DEPARTMENTS_CACHE_TTL: %w", err)
	}

	cfg.ViewStateTTL, err = getEnvDuration("DA_VIEW_STATE_TTL", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("DA_VIEW_STATE_TTL: %w", err)
	}

	// DA_SCAN_PAGE_SIZE — размер страницы списков антивируса (по умолчанию 10)
	cfg.ScanPageSize, err = getEnvInt("DA_SCAN_PAGE_SIZE", 10)
	if err != nil {
		return nil, fmt.Errorf("DA_SCAN_PAGE_SIZE: %w", err)
	}
	if cfg.ScanPageSize < 1 || cfg.ScanPageSize > 500 {
		return nil, fmt.Errorf("DA_SCAN_PAGE_SIZE: значение %d вне допустимого диапазона 1-500", cfg.ScanPageSize)
	}

	cfg.SSEInterval, err = getEnvDuration("DA_SSE_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DA_SSE_INTERVAL: %w", err)
	}
	if cfg.SSEInterval < time.Second {
		return nil, fmt.Errorf("DA_SSE_INTERVAL: значение %s меньше 1s", cfg.SSEInterval)
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("DA_DEPHEALTH_GROUP", "docvault")
	cfg.DephealthCheckInterval, err = getEnvDuration("DA_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DA_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("DA_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DA_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL для лейблов topologymetrics (без пароля).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s@%s:%d/%s", c.DBUser, c.DBHost, c.DBPort, c.DBName)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
