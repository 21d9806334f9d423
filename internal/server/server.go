// Пакет server — HTTP-сервер Admin Module с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/docvault/admin-module/internal/api/handlers"
	"github.com/bigkaa/docvault/admin-module/internal/api/middleware"
	"github.com/bigkaa/docvault/admin-module/internal/config"
	"github.com/bigkaa/docvault/admin-module/internal/domain/rbac"
	uihandlers "github.com/bigkaa/docvault/admin-module/internal/ui/handlers"
	"github.com/bigkaa/docvault/admin-module/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/docvault/admin-module/internal/ui/middleware"
	"github.com/bigkaa/docvault/admin-module/internal/ui/static"
)

// UIComponents — обработчики и middleware Admin UI.
type UIComponents struct {
	AuthHandler    *uihandlers.AuthHandler
	AuthMiddleware *uimiddleware.UIAuth
	// Settings — источник глобальных настроек для каждой страницы
	Settings uimiddleware.SettingsLoader

	DashboardHandler    *uihandlers.DashboardHandler
	TemplatesHandler    *uihandlers.TemplatesHandler
	FileRequestsHandler *uihandlers.FileRequestsHandler
	FilesHandler        *uihandlers.FilesHandler
	UsersHandler        *uihandlers.UsersHandler
	VirusScanHandler    *uihandlers.VirusScanHandler
	SettingsHandler     *uihandlers.SettingsHandler
	PublicHandler       *uihandlers.PublicHandler
}

// Server — HTTP-сервер Admin Module.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// jwtAuth — JWT middleware для /api/v1 (nil — JSON API не регистрируется).
// ui — компоненты Admin UI (nil — только API и health).
func New(cfg *config.Config, logger *slog.Logger, api *handlers.APIHandler, jwtAuth *middleware.JWTAuth, ui *UIComponents) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(logger, api, jwtAuth, ui),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает маршруты: health и metrics, JSON API, Admin UI.
func NewRouter(logger *slog.Logger, api *handlers.APIHandler, jwtAuth *middleware.JWTAuth, ui *UIComponents) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Health и metrics проверяются Kubernetes напрямую, без API Gateway.
	router.Get("/health/live", api.HealthLive)
	router.Get("/health/ready", api.HealthReady)
	router.Get("/metrics", api.GetMetrics)

	if jwtAuth != nil {
		router.Route("/api/v1", func(r chi.Router) {
			r.Use(jwtAuth.Middleware())
			r.Get("/me", api.GetCurrentUser)
			r.With(middleware.RequireRole(rbac.RoleManager)).Post("/email-templates/preview", api.PreviewTemplate)
			r.With(middleware.RequireRole(rbac.RoleAdmin)).Get("/audit", api.ListAudit)
		})
	}

	if ui != nil {
		registerUI(router, ui, logger)
	}

	return router
}

// registerUI регистрирует маршруты Admin UI.
func registerUI(router chi.Router, ui *UIComponents, logger *slog.Logger) {
	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(static.FileSystem())))

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/", http.StatusFound)
	})
	router.Get("/admin", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/", http.StatusMovedPermanently)
	})

	router.Group(func(r chi.Router) {
		r.Use(i18n.Middleware())

		// Публичные страницы и вход — без сессии
		r.Get("/help", ui.PublicHandler.HandleHelp)
		r.Get("/terms", ui.PublicHandler.HandleTerms)
		r.Get("/admin/login", ui.AuthHandler.HandleLogin)
		r.Get("/admin/callback", ui.AuthHandler.HandleCallback)
		r.Get("/admin/logout", ui.AuthHandler.HandleLogout)
		r.Post("/admin/logout", ui.AuthHandler.HandleLogout)
		r.Post("/admin/set-language", uihandlers.HandleSetLanguage)

		r.Group(func(r chi.Router) {
			r.Use(ui.AuthMiddleware.Middleware())
			r.Use(uimiddleware.Settings(ui.Settings, logger))

			r.Get("/admin/", ui.DashboardHandler.HandleDashboard)

			r.Group(func(r chi.Router) {
				r.Use(uimiddleware.RequireRole(rbac.RoleManager))
				registerManagerRoutes(r, ui)
			})

			r.Group(func(r chi.Router) {
				r.Use(uimiddleware.RequireRole(rbac.RoleAdmin))
				registerAdminRoutes(r, ui)
			})
		})
	})
}

// registerManagerRoutes — шаблоны писем арендатора, запросы файлов, файлы.
func registerManagerRoutes(r chi.Router, ui *UIComponents) {
	tpl := ui.TemplatesHandler
	r.Route("/admin/email-templates", func(r chi.Router) {
		r.Get("/", tpl.HandleTenantList)
		r.Post("/preview", tpl.HandlePreview)
		r.Get("/{key}", tpl.HandleTenantEditor)
		r.Post("/{key}", tpl.HandleTenantSave)
		r.Post("/{key}/reset", tpl.HandleReset)
	})

	fr := ui.FileRequestsHandler
	r.Route("/admin/file-requests", func(r chi.Router) {
		r.Get("/", fr.HandleList)
		r.Post("/", fr.HandleCreate)
		r.Get("/{id}", fr.HandleDetails)
		r.Post("/{id}/revoke", fr.HandleRevoke)
		r.Delete("/{id}", fr.HandleDelete)
	})

	files := ui.FilesHandler
	r.Route("/admin/files", func(r chi.Router) {
		r.Get("/", files.HandleList)
		r.Get("/{id}/activity", files.HandleActivity)
		r.Get("/{id}/activity/export", files.HandleExport)
	})
}

// registerAdminRoutes — пользователи и глобальные настройки.
func registerAdminRoutes(r chi.Router, ui *UIComponents) {
	users := ui.UsersHandler
	r.Route("/admin/users", func(r chi.Router) {
		r.Get("/", users.HandleList)
		r.Get("/{id}", users.HandleModal)
		r.Post("/{id}/suspend", users.HandleSuspend)
		r.Post("/{id}/unsuspend", users.HandleUnsuspend)
		r.Post("/{id}/email", users.HandleEmail)
		r.Post("/{id}/password", users.HandlePassword)
		r.Post("/{id}/role", users.HandleRole)
		r.Post("/{id}/delete-check", users.HandleDeleteCheck)
		r.Post("/{id}/delete", users.HandleDelete)
	})

	r.Route("/admin/settings", func(r chi.Router) {
		tpl := ui.TemplatesHandler
		r.Get("/email-templates", tpl.HandleSystemList)
		r.Get("/email-templates/{key}", tpl.HandleSystemEditor)
		r.Post("/email-templates/{key}", tpl.HandleSystemSave)

		scan := ui.VirusScanHandler
		r.Get("/virus-scan", scan.HandlePage)
		r.Post("/virus-scan", scan.HandleUpdateSettings)
		r.Get("/virus-scan/list", scan.HandleList)
		r.Get("/virus-scan/list/more", scan.HandleMore)
		r.Delete("/virus-scan/quarantine/{id}", scan.HandleDeleteQuarantined)
		r.Get("/virus-scan/events", scan.HandleEvents)

		st := ui.SettingsHandler
		r.Get("/branding", st.HandleBranding)
		r.Post("/branding", st.HandleBrandingUpdate)
		r.Post("/branding/{kind}", st.HandleAssetUpload)
		r.Get("/general", st.HandleGeneral)
		r.Post("/general", st.HandleGeneralUpdate)
		r.Post("/general/sample-data", st.HandleSampleData)
		r.Post("/general/audit-retention", st.HandleAuditRetention)
		r.Get("/general/audit", st.HandleAudit)
		r.Get("/pages", st.HandlePages)
		r.Post("/pages", st.HandlePagesUpdate)
	})
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
