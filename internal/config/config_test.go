package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

// setEnvs устанавливает переменные окружения на время теста.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

// minimalEnvs возвращает минимальный набор обязательных переменных.
func minimalEnvs() map[string]string {
	return map[string]string{
		"DA_BACKEND_URL":  "https://docvault.kryukov.lan",
		"DA_DB_HOST":      "localhost",
		"DA_DB_NAME":      "docvault_admin",
		"DA_DB_USER":      "docvault",
		"DA_DB_PASSWORD":  "secret",
		"DA_KEYCLOAK_URL": "https://keycloak.kryukov.lan",
	}
}

// resetEnvs очищает обязательные переменные перед подстановкой нового набора.
func resetEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k := range minimalEnvs() {
		os.Unsetenv(k)
	}
	setEnvs(t, envs)
}

func TestLoad_MinimalConfig(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.Port != 8010 {
		t.Errorf("Port = %d, ожидается 8010", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидается Info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидается json", cfg.LogFormat)
	}
	if cfg.BackendTimeout != 30*time.Second {
		t.Errorf("BackendTimeout = %v, ожидается 30s", cfg.BackendTimeout)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, ожидается 5432", cfg.DBPort)
	}
	if cfg.KeycloakRealm != "docvault" {
		t.Errorf("KeycloakRealm = %q, ожидается docvault", cfg.KeycloakRealm)
	}
	if cfg.KeycloakBrowserURL != cfg.KeycloakURL {
		t.Errorf("KeycloakBrowserURL = %q, ожидается совпадение с KeycloakURL", cfg.KeycloakBrowserURL)
	}
	if cfg.UIOIDCClientID != "docvault-admin-ui" {
		t.Errorf("UIOIDCClientID = %q, ожидается docvault-admin-ui", cfg.UIOIDCClientID)
	}
	if cfg.ScanPageSize != 10 {
		t.Errorf("ScanPageSize = %d, ожидается 10", cfg.ScanPageSize)
	}
	if cfg.SettingsTTL != 5*time.Minute {
		t.Errorf("SettingsTTL = %v, ожидается 5m", cfg.SettingsTTL)
	}
	if cfg.SSEInterval != 15*time.Second {
		t.Errorf("SSEInterval = %v, ожидается 15s", cfg.SSEInterval)
	}
	if len(cfg.RoleAdminGroups) != 1 || cfg.RoleAdminGroups[0] != "docvault-admins" {
		t.Errorf("RoleAdminGroups = %v, ожидается [docvault-admins]", cfg.RoleAdminGroups)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, ожидается 5s", cfg.ShutdownTimeout)
	}
}

func TestLoad_JWTAutoDerive(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	expectedIssuer := "https://keycloak.kryukov.lan/realms/docvault"
	if cfg.JWTIssuer != expectedIssuer {
		t.Errorf("JWTIssuer = %q, ожидается %q", cfg.JWTIssuer, expectedIssuer)
	}

	expectedJWKS := "https://keycloak.kryukov.lan/realms/docvault/protocol/openid-connect/certs"
	if cfg.JWTJWKSURL != expectedJWKS {
		t.Errorf("JWTJWKSURL = %q, ожидается %q", cfg.JWTJWKSURL, expectedJWKS)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	envs := minimalEnvs()
	envs["DA_PORT"] = "9090"
	envs["DA_LOG_LEVEL"] = "debug"
	envs["DA_LOG_FORMAT"] = "text"
	envs["DA_BACKEND_URL"] = "http://backend:3000/"
	envs["DA_BACKEND_TIMEOUT"] = "5s"
	envs["DA_ROLE_ADMIN_GROUPS"] = "admins, super-admins"
	envs["DA_ROLE_MANAGER_GROUPS"] = "managers"
	envs["DA_SCAN_PAGE_SIZE"] = "25"
	envs["DA_VIEW_STATE_TTL"] = "1h"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, ожидается 9090", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, ожидается Debug", cfg.LogLevel)
	}
	if cfg.BackendURL != "http://backend:3000" {
		t.Errorf("BackendURL = %q, ожидается без trailing slash", cfg.BackendURL)
	}
	if cfg.BackendTimeout != 5*time.Second {
		t.Errorf("BackendTimeout = %v, ожидается 5s", cfg.BackendTimeout)
	}
	if len(cfg.RoleAdminGroups) != 2 || cfg.RoleAdminGroups[1] != "super-admins" {
		t.Errorf("RoleAdminGroups = %v, ожидается [admins super-admins]", cfg.RoleAdminGroups)
	}
	if len(cfg.RoleManagerGroups) != 1 || cfg.RoleManagerGroups[0] != "managers" {
		t.Errorf("RoleManagerGroups = %v, ожидается [managers]", cfg.RoleManagerGroups)
	}
	if cfg.ScanPageSize != 25 {
		t.Errorf("ScanPageSize = %d, ожидается 25", cfg.ScanPageSize)
	}
	if cfg.ViewStateTTL != time.Hour {
		t.Errorf("ViewStateTTL = %v, ожидается 1h", cfg.ViewStateTTL)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	for missing := range minimalEnvs() {
		t.Run(missing, func(t *testing.T) {
			envs := minimalEnvs()
			delete(envs, missing)
			resetEnvs(t, envs)

			_, err := Load()
			if err == nil {
				t.Errorf("Load() не вернул ошибку при отсутствии %s", missing)
			}
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"порт не число", "DA_PORT", "abc"},
		{"порт вне диапазона", "DA_PORT", "70000"},
		{"уровень логов", "DA_LOG_LEVEL", "verbose"},
		{"формат логов", "DA_LOG_FORMAT", "xml"},
		{"ssl mode", "DA_DB_SSL_MODE", "prefer"},
		{"backend без схемы", "DA_BACKEND_URL", "backend:3000"},
		{"длительность", "DA_SETTINGS_TTL", "abc"},
		{"страница 0", "DA_SCAN_PAGE_SIZE", "0"},
		{"страница слишком большая", "DA_SCAN_PAGE_SIZE", "501"},
		{"sse слишком часто", "DA_SSE_INTERVAL", "100ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envs := minimalEnvs()
			envs[tt.key] = tt.value
			resetEnvs(t, envs)

			_, err := Load()
			if err == nil {
				t.Errorf("Load() не вернул ошибку при %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_KeycloakURLTrailingSlash(t *testing.T) {
	envs := minimalEnvs()
	envs["DA_KEYCLOAK_URL"] = "https://keycloak.kryukov.lan/"
	resetEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if cfg.KeycloakURL != "https://keycloak.kryukov.lan" {
		t.Errorf("KeycloakURL = %q, ожидается без trailing slash", cfg.KeycloakURL)
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{
		DBHost:     "db.example.com",
		DBPort:     5432,
		DBName:     "docvault_admin",
		DBUser:     "user",
		DBPassword: "pass",
		DBSSLMode:  "disable",
	}
	expected := "host=db.example.com port=5432 dbname=docvault_admin user=user password=pass sslmode=disable"
	if dsn := cfg.DatabaseDSN(); dsn != expected {
		t.Errorf("DatabaseDSN() = %q, ожидается %q", dsn, expected)
	}
	if u := cfg.DatabaseURL(); u != "postgres://user@db.example.com:5432/docvault_admin" {
		t.Errorf("DatabaseURL() = %q", u)
	}
}

func TestParseCSV(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"", nil},
		{"admins", []string{"admins"}},
		{"admins,,managers,", []string{"admins", "managers"}},
		{" admins , managers ", []string{"admins", "managers"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseCSV(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("parseCSV(%q) = %v, ожидается %v", tt.input, result, tt.expected)
			}
			for i, v := range result {
				if v != tt.expected[i] {
					t.Errorf("parseCSV(%q)[%d] = %q, ожидается %q", tt.input, i, v, tt.expected[i])
				}
			}
		})
	}
}
