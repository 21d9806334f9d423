// Пакет middleware — HTTP middleware для Admin UI.
// auth.go — проверка UI-сессии (cookie-based), авто-refresh токенов,
// передача токена и пользователя в контекст для вызовов backend.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/bigkaa/docvault/admin-module/internal/backend"
	"github.com/bigkaa/docvault/admin-module/internal/domain/rbac"
	"github.com/bigkaa/docvault/admin-module/internal/service"
	"github.com/bigkaa/docvault/admin-module/internal/ui/auth"
)

// contextKey — тип для ключей контекста UI (избегаем коллизий с API middleware).
type contextKey string

const (
	// ContextKeyUISession — данные UI-сессии в контексте запроса.
	ContextKeyUISession contextKey = "ui_session"
)

// TokenRefresher — обновление токенов по refresh token.
type TokenRefresher interface {
	RefreshTokens(ctx context.Context, refreshToken string) (*auth.TokenResponse, error)
}

// UIAuth — middleware для проверки аутентификации UI-пользователей.
// Извлекает сессию из зашифрованного cookie, при необходимости обновляет
// access token через Keycloak, redirect на /admin/login при отсутствии сессии.
type UIAuth struct {
	sessionManager *auth.SessionManager
	refresher      TokenRefresher
	logger         *slog.Logger
}

// NewUIAuth создаёт новый UIAuth middleware.
func NewUIAuth(
	sessionManager *auth.SessionManager,
	refresher TokenRefresher,
	logger *slog.Logger,
) *UIAuth {
	return &UIAuth{
		sessionManager: sessionManager,
		refresher:      refresher,
		logger:         logger.With(slog.String("component", "ui_auth_middleware")),
	}
}

// Middleware возвращает HTTP middleware для проверки UI-сессии.
// Применяется к маршрутам /admin/*, кроме /admin/login, /admin/callback, /admin/logout.
func (ua *UIAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := ua.sessionManager.GetSessionFromRequest(r)
			if err != nil {
				ua.logger.Debug("Ошибка чтения UI-сессии",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				ua.sessionManager.ClearSessionCookie(w)
				redirectToLogin(w, r)
				return
			}
			if session == nil {
				redirectToLogin(w, r)
				return
			}

			dirty := false
			if session.IsExpired() {
				refreshed, refreshErr := ua.refreshSession(r.Context(), session)
				if refreshErr != nil {
					level := slog.LevelWarn
					if auth.IsInvalidGrant(refreshErr) {
						// refresh token истёк или отозван: обычное завершение сессии
						level = slog.LevelInfo
					}
					ua.logger.Log(r.Context(), level, "Не удалось обновить сессию, redirect на login",
						slog.String("username", session.Username),
						slog.String("error", refreshErr.Error()),
					)
					ua.sessionManager.ClearSessionCookie(w)
					redirectToLogin(w, r)
					return
				}
				session = refreshed
				dirty = true
				ua.logger.Debug("Сессия обновлена через refresh token",
					slog.String("username", session.Username),
				)
			}

			// Cookie старого формата без идентификатора сессии
			if session.SessionID == "" {
				session.SessionID = auth.NewSessionID()
				dirty = true
			}

			if dirty {
				if err := ua.sessionManager.SetSessionCookie(w, session); err != nil {
					ua.logger.Error("Ошибка обновления session cookie",
						slog.String("error", err.Error()),
					)
					ua.sessionManager.ClearSessionCookie(w)
					redirectToLogin(w, r)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// refreshSession обновляет access token через Keycloak refresh token.
// Идентификатор сессии и данные пользователя сохраняются.
func (ua *UIAuth) refreshSession(ctx context.Context, session *auth.SessionData) (*auth.SessionData, error) {
	tokenResp, err := ua.refresher.RefreshTokens(ctx, session.RefreshToken)
	if err != nil {
		return nil, err
	}

	refreshed := *session
	refreshed.AccessToken = tokenResp.AccessToken
	refreshed.ExpiresAt = tokenResp.ExpiresAt(time.Now())
	if tokenResp.RefreshToken != "" {
		refreshed.RefreshToken = tokenResp.RefreshToken
	}
	if tokenResp.IDToken != "" {
		refreshed.IDToken = tokenResp.IDToken
	}
	return &refreshed, nil
}

// WithSession помещает сессию в контекст вместе с bearer-токеном для
// backend и пользователем для журнала действий.
func WithSession(ctx context.Context, session *auth.SessionData) context.Context {
	ctx = context.WithValue(ctx, ContextKeyUISession, session)
	ctx = backend.WithToken(ctx, session.AccessToken)
	return service.WithActor(ctx, service.Actor{
		ID:    session.Subject,
		Name:  session.DisplayName(),
		Email: session.Email,
		Role:  session.Role,
	})
}

// SessionFromContext извлекает SessionData из контекста запроса.
// Возвращает nil если сессия не найдена (не прошёл через UIAuth middleware).
func SessionFromContext(ctx context.Context) *auth.SessionData {
	session, ok := ctx.Value(ContextKeyUISession).(*auth.SessionData)
	if !ok {
		return nil
	}
	return session
}

// RequireRole пропускает только пользователей с ролью не ниже minRole.
// Остальных возвращает на главную страницу (HTMX-запросам отвечает 403).
func RequireRole(minRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := SessionFromContext(r.Context())
			if session == nil {
				redirectToLogin(w, r)
				return
			}
			if !rbac.AtLeast(session.Role, minRole) {
				if IsHTMX(r) {
					http.Error(w, "Недостаточно прав", http.StatusForbidden)
					return
				}
				http.Redirect(w, r, "/admin/", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IsHTMX сообщает, что запрос отправлен скриптом страницы для замены фрагмента.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirectToLogin отправляет на вход. Для фрагментов страница
// перенаправляется целиком через заголовок HX-Redirect.
func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if IsHTMX(r) {
		w.Header().Set("HX-Redirect", "/admin/login")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, "/admin/login", http.StatusFound)
}
