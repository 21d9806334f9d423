// auth.go — вход через Keycloak OIDC (Authorization Code + PKCE) и выход.
package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	apimw "github.com/bigkaa/docvault/admin-module/internal/api/middleware"
	"github.com/bigkaa/docvault/admin-module/internal/ui/auth"
	uimiddleware "github.com/bigkaa/docvault/admin-module/internal/ui/middleware"
)

// Имя cookie для хранения PKCE state (code_verifier + state).
const stateCookieName = "docvault_auth_state"

// stateCookieMaxAge — максимальный возраст state cookie (5 минут).
const stateCookieMaxAge = 5 * 60

// OIDCProvider — операции OIDC, нужные для входа и выхода.
type OIDCProvider interface {
	AuthorizeURL(redirectURI, state, codeChallenge string) string
	ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (*auth.TokenResponse, error)
	LogoutURL(idTokenHint, postLogoutRedirectURI string) string
}

// TokenVerifier — проверка подписи и claims access token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*apimw.AuthClaims, error)
}

// SessionForgetter освобождает серверное состояние сессии UI.
type SessionForgetter interface {
	ForgetSession(sessionID string)
}

// SettingsInvalidator сбрасывает кэш глобальных настроек.
type SettingsInvalidator interface {
	Invalidate()
}

// AuthHandler — обработчики аутентификации Admin UI.
type AuthHandler struct {
	oidc           OIDCProvider
	verifier       TokenVerifier
	sessionManager *auth.SessionManager
	sessions       SessionForgetter
	settings       SettingsInvalidator
	// secureCookie — использовать Secure flag для state cookie.
	secureCookie bool
	logger       *slog.Logger
}

// NewAuthHandler создаёт новый AuthHandler.
func NewAuthHandler(
	oidc OIDCProvider,
	verifier TokenVerifier,
	sessionManager *auth.SessionManager,
	sessions SessionForgetter,
	settings SettingsInvalidator,
	secureCookie bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		oidc:           oidc,
		verifier:       verifier,
		sessionManager: sessionManager,
		sessions:       sessions,
		settings:       settings,
		secureCookie:   secureCookie,
		logger:         logger.With(slog.String("component", "ui.auth")),
	}
}

// stateData — данные, сохраняемые в state cookie на время auth flow.
type stateData struct {
	State        string `json:"state"`
	CodeVerifier string `json:"code_verifier"`
}

// HandleLogin — GET /admin/login
// Генерирует PKCE и state, сохраняет в short-lived cookie,
// redirect на Keycloak authorize endpoint.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	pkce, err := auth.GeneratePKCE()
	if err != nil {
		h.logger.Error("Ошибка генерации PKCE", slog.String("error", err.Error()))
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	state, err := auth.GenerateState()
	if err != nil {
		h.logger.Error("Ошибка генерации state", slog.String("error", err.Error()))
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	sdJSON, _ := json.Marshal(&stateData{State: state, CodeVerifier: pkce.CodeVerifier})
	h.setStateCookie(w, base64.URLEncoding.EncodeToString(sdJSON), stateCookieMaxAge)

	authorizeURL := h.oidc.AuthorizeURL(h.buildRedirectURI(r), state, pkce.CodeChallenge)
	h.logger.Debug("Redirect на Keycloak login", slog.String("authorize_url", authorizeURL))

	http.Redirect(w, r, authorizeURL, http.StatusFound)
}

// HandleCallback — GET /admin/callback
// Обменивает code на токены, проверяет access token, создаёт сессию.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errCode := q.Get("error"); errCode != "" {
		h.logger.Warn("Keycloak вернул ошибку авторизации",
			slog.String("error", errCode),
			slog.String("description", q.Get("error_description")),
		)
		http.Error(w, "Ошибка авторизации: "+errCode, http.StatusBadRequest)
		return
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		http.Error(w, "Отсутствует code или state", http.StatusBadRequest)
		return
	}

	sd, err := readStateCookie(r)
	if err != nil {
		h.logger.Warn("Некорректный state cookie", slog.String("error", err.Error()))
		http.Error(w, "Сессия авторизации истекла, попробуйте ещё раз", http.StatusBadRequest)
		return
	}
	if sd.State != state {
		h.logger.Warn("State mismatch (возможная CSRF атака)")
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	}
	// Одноразовый
	h.setStateCookie(w, "", -1)

	ctx := r.Context()
	tokenResp, err := h.oidc.ExchangeCode(ctx, code, h.buildRedirectURI(r), sd.CodeVerifier)
	if err != nil {
		h.logger.Error("Ошибка обмена code на tokens", slog.String("error", err.Error()))
		http.Error(w, "Ошибка аутентификации", http.StatusBadGateway)
		return
	}

	claims, err := h.verifier.Verify(ctx, tokenResp.AccessToken)
	if err != nil {
		h.logger.Warn("Access token не прошёл проверку", slog.String("error", err.Error()))
		http.Error(w, "Ошибка аутентификации", http.StatusUnauthorized)
		return
	}

	session := newSession(tokenResp, claims)
	if err := h.sessionManager.SetSessionCookie(w, session); err != nil {
		h.logger.Error("Ошибка установки session cookie", slog.String("error", err.Error()))
		http.Error(w, "Ошибка создания сессии", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Пользователь аутентифицирован",
		slog.String("username", session.Username),
		slog.String("role", session.Role),
	)
	http.Redirect(w, r, "/admin/", http.StatusFound)
}

// HandleLogout — POST /admin/logout
// Освобождает состояние сессии, очищает cookie, redirect на Keycloak logout.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	idTokenHint := ""
	if session, err := h.sessionManager.GetSessionFromRequest(r); err == nil && session != nil {
		idTokenHint = session.IDToken
		if h.sessions != nil && session.SessionID != "" {
			h.sessions.ForgetSession(session.SessionID)
		}
		if h.settings != nil {
			h.settings.Invalidate()
		}
		h.logger.Info("Пользователь выполняет logout", slog.String("username", session.Username))
	}
	h.sessionManager.ClearSessionCookie(w)

	logoutURL := h.oidc.LogoutURL(idTokenHint, h.buildBaseURL(r)+"/admin/login")
	if uimiddleware.IsHTMX(r) {
		w.Header().Set("HX-Redirect", logoutURL)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, logoutURL, http.StatusFound)
}

// newSession собирает сессию из ответа токен-эндпоинта и проверенных claims.
func newSession(tokenResp *auth.TokenResponse, claims *apimw.AuthClaims) *auth.SessionData {
	return &auth.SessionData{
		SessionID:    auth.NewSessionID(),
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		IDToken:      tokenResp.IDToken,
		ExpiresAt:    tokenResp.ExpiresAt(time.Now()),
		Subject:      claims.Subject,
		Username:     claims.PreferredUsername,
		Email:        claims.Email,
		Name:         claims.Name,
		Company:      claims.Company,
		Role:         claims.Role,
		Groups:       claims.Groups,
	}
}

func readStateCookie(r *http.Request) (*stateData, error) {
	c, err := r.Cookie(stateCookieName)
	if err != nil {
		return nil, err
	}
	raw, err := base64.URLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil, err
	}
	var sd stateData
	if err := json.Unmarshal(raw, &sd); err != nil {
		return nil, err
	}
	return &sd, nil
}

func (h *AuthHandler) setStateCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    value,
		Path:     "/admin",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// buildRedirectURI формирует callback redirect URI на основе текущего запроса.
func (h *AuthHandler) buildRedirectURI(r *http.Request) string {
	return h.buildBaseURL(r) + "/admin/callback"
}

// buildBaseURL формирует базовый URL (scheme + host) из заголовков запроса.
// Учитывает X-Forwarded-* заголовки от reverse proxy.
func (h *AuthHandler) buildBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	host := r.Host
	if fwdHost := r.Header.Get("X-Forwarded-Host"); fwdHost != "" {
		host = fwdHost
	}
	return scheme + "://" + host
}
