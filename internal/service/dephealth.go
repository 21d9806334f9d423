// Мониторинг зависимостей Admin UI через topologymetrics: PostgreSQL
// (пул соединений), REST API DocVault и JWKS Keycloak. Метрики
// app_dependency_* публикуются на /metrics.
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck"
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bigkaa/docvault/admin-module/internal/backend"
)

// DependencyTargets — что и как часто проверять.
type DependencyTargets struct {
	ServiceID string
	Group     string
	// DB — *sql.DB поверх pgxpool (stdlib.OpenDBFromPool).
	DB *sql.DB
	// PostgresURL идёт только в лейблы метрик, пароля в нём нет.
	PostgresURL     string
	BackendURL      string
	KeycloakJWKSURL string
	Interval        time.Duration
	// SkipTLSVerify — backend и Keycloak подписаны внутренним CA,
	// которого нет у HTTP-проверки.
	SkipTLSVerify bool
	// Registerer — nil означает глобальный реестр Prometheus.
	Registerer prometheus.Registerer
}

// DephealthService — периодические проверки зависимостей.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

func NewDephealthService(t DependencyTargets, logger *slog.Logger) (*DephealthService, error) {
	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		// pgcheck напрямую: contrib/sqldb тянет драйвер MySQL.
		dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(t.DB)),
			dephealth.FromURL(t.PostgresURL),
			dephealth.CheckInterval(t.Interval),
			dephealth.Critical(true),
		),
		dephealth.HTTP("docvault-backend",
			dephealth.FromURL(t.BackendURL),
			dephealth.WithHTTPHealthPath(backend.HealthPath),
			dephealth.WithHTTPTLSSkipVerify(t.SkipTLSVerify),
			dephealth.CheckInterval(t.Interval),
			dephealth.Critical(true),
		),
		// /health Keycloak есть только на management-порту, проверяем сам JWKS.
		dephealth.HTTP("keycloak-jwks",
			dephealth.FromURL(t.KeycloakJWKSURL),
			dephealth.WithHTTPHealthPath(healthPath(t.KeycloakJWKSURL, "/health")),
			dephealth.WithHTTPTLSSkipVerify(t.SkipTLSVerify),
			dephealth.CheckInterval(t.Interval),
			dephealth.Critical(true),
		),
	}
	if t.Registerer != nil {
		opts = append(opts, dephealth.WithRegisterer(t.Registerer))
	}

	dh, err := dephealth.New(t.ServiceID, t.Group, opts...)
	if err != nil {
		return nil, err
	}
	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Проверки зависимостей запущены")
	return ds.dh.Start(ctx)
}

func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Проверки зависимостей остановлены")
}

// Health — состояние по имени зависимости, true означает ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}

func healthPath(rawURL, def string) string {
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Path != "" {
		return parsed.Path
	}
	return def
}
