// auth.go — проверка JWT Keycloak для JSON API и входа в Admin UI.
// Подпись проверяется по JWKS realm (RS256), роль определяется по группам.
package middleware

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/bigkaa/docvault/admin-module/internal/api/errors"
	"github.com/bigkaa/docvault/admin-module/internal/domain/rbac"
)

// ErrInvalidToken — токен не прошёл проверку подписи, срока или issuer.
var ErrInvalidToken = errors.New("невалидный или просроченный токен")

type contextKey string

// ContextKeyClaims — claims проверенного токена в контексте запроса.
const ContextKeyClaims contextKey = "jwt_claims"

// AuthClaims — данные пользователя из проверенного токена.
type AuthClaims struct {
	// Subject — sub, он же ID пользователя в backend
	Subject           string
	PreferredUsername string
	Email             string
	Name              string
	// Company — компания пользователя (claim "company")
	Company    string
	Department string
	Groups     []string
	// Roles — realm_access.roles
	Roles []string
	// Role — эффективная роль: по группам, затем по realm-ролям
	Role      string
	ExpiresAt time.Time
}

// keycloakClaims — claims access token Keycloak.
type keycloakClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string       `json:"preferred_username"`
	Email             string       `json:"email"`
	Name              string       `json:"name"`
	Company           string       `json:"company,omitempty"`
	Department        string       `json:"department,omitempty"`
	RealmAccess       *realmAccess `json:"realm_access,omitempty"`
	Groups            []string     `json:"groups,omitempty"`
}

type realmAccess struct {
	Roles []string `json:"roles"`
}

// JWTAuth проверяет bearer-токены через JWKS Keycloak.
type JWTAuth struct {
	jwks          keyfunc.Keyfunc
	logger        *slog.Logger
	adminGroups   []string
	managerGroups []string
	issuer        string
	leeway        time.Duration
}

// NewJWTAuth создаёт проверку токенов с фоновым обновлением JWKS.
// Keycloak может быть недоступен при старте: ключи подтянутся позже.
func NewJWTAuth(
	jwksURL string,
	caCertPath string,
	issuer string,
	adminGroups, managerGroups []string,
	refreshInterval time.Duration,
	leeway time.Duration,
	logger *slog.Logger,
) (*JWTAuth, error) {
	httpClient := http.DefaultClient
	if caCertPath != "" {
		var err error
		httpClient, err = httpClientWithCA(caCertPath, 10*time.Second)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата %s: %w", caCertPath, err)
		}
	}

	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           refreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return NewJWTAuthWithKeyfunc(k, issuer, adminGroups, managerGroups, leeway, logger), nil
}

// NewJWTAuthWithKeyfunc создаёт проверку с готовой keyfunc (тесты, статические ключи).
func NewJWTAuthWithKeyfunc(
	kf keyfunc.Keyfunc,
	issuer string,
	adminGroups, managerGroups []string,
	leeway time.Duration,
	logger *slog.Logger,
) *JWTAuth {
	return &JWTAuth{
		jwks:          kf,
		logger:        logger.With(slog.String("component", "jwt_auth")),
		adminGroups:   adminGroups,
		managerGroups: managerGroups,
		issuer:        issuer,
		leeway:        leeway,
	}
}

func httpClientWithCA(caCertPath string, timeout time.Duration) (*http.Client, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, err
	}

	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	pool.AppendCertsFromPEM(caCert)

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12},
		},
	}, nil
}

// Verify проверяет подпись, срок и issuer токена и возвращает claims.
// Используется middleware API и обработчиком входа UI.
func (j *JWTAuth) Verify(ctx context.Context, tokenString string) (*AuthClaims, error) {
	raw := &keycloakClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(j.leeway),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, raw, j.jwks.KeyfuncCtx(ctx), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if raw.Subject == "" {
		return nil, fmt.Errorf("%w: отсутствует sub", ErrInvalidToken)
	}

	return j.buildClaims(raw), nil
}

func (j *JWTAuth) buildClaims(raw *keycloakClaims) *AuthClaims {
	c := &AuthClaims{
		Subject:           raw.Subject,
		PreferredUsername: raw.PreferredUsername,
		Email:             raw.Email,
		Name:              raw.Name,
		Company:           raw.Company,
		Department:        raw.Department,
		Groups:            raw.Groups,
	}
	if raw.ExpiresAt != nil {
		c.ExpiresAt = raw.ExpiresAt.Time
	}
	if raw.RealmAccess != nil {
		c.Roles = raw.RealmAccess.Roles
	}

	// Группы IdP, затем realm-роли с именами ролей DocVault
	roles := []string{rbac.MapGroupsToRole(c.Groups, j.adminGroups, j.managerGroups)}
	for _, r := range c.Roles {
		if rbac.IsValidRole(r) {
			roles = append(roles, r)
		}
	}
	c.Role = rbac.HighestRole(roles)

	return c
}

// Middleware требует заголовок Authorization: Bearer <token> и кладёт
// AuthClaims в контекст.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w, "Отсутствует заголовок Authorization")
				return
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
				apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
				return
			}

			claims, err := j.Verify(r.Context(), tokenString)
			if err != nil {
				j.logger.Debug("JWT валидация не пройдена",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole пропускает пользователей с ролью не ниже minRole.
// Применяется после JWTAuth.Middleware().
func RequireRole(minRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
				return
			}
			if !rbac.AtLeast(claims.Role, minRole) {
				apierrors.Forbidden(w, "Недостаточно прав: требуется роль "+minRole)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromContext возвращает claims или nil.
func ClaimsFromContext(ctx context.Context) *AuthClaims {
	claims, _ := ctx.Value(ContextKeyClaims).(*AuthClaims)
	return claims
}

// --- Проверка готовности Keycloak ---

// KeycloakReadinessChecker проверяет доступность JWKS endpoint.
type KeycloakReadinessChecker struct {
	jwksURL string
	client  *http.Client
}

// NewKeycloakReadinessChecker создаёт проверку готовности Keycloak.
func NewKeycloakReadinessChecker(jwksURL, caCertPath string, timeout time.Duration) (*KeycloakReadinessChecker, error) {
	client := &http.Client{Timeout: timeout}
	if caCertPath != "" {
		var err error
		client, err = httpClientWithCA(caCertPath, timeout)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA для readiness checker: %w", err)
		}
	}
	return &KeycloakReadinessChecker{jwksURL: jwksURL, client: client}, nil
}

// CheckReady возвращает "ok", "degraded" (ответ без ключей) или "fail".
func (k *KeycloakReadinessChecker) CheckReady(ctx context.Context) (status, message string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.jwksURL, http.NoBody)
	if err != nil {
		return "fail", "ошибка создания запроса: " + err.Error()
	}
	resp, err := k.client.Do(req) //nolint:gosec // G704: URL из конфигурации Keycloak
	if err != nil {
		return "fail", fmt.Sprintf("Keycloak JWKS недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "fail", fmt.Sprintf("Keycloak JWKS вернул статус %d", resp.StatusCode)
	}

	var jwks struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return "degraded", fmt.Sprintf("Keycloak JWKS: невалидный JSON: %v", err)
	}
	if len(jwks.Keys) == 0 {
		return "degraded", "Keycloak JWKS: нет ключей"
	}
	return "ok", fmt.Sprintf("JWKS доступен, ключей: %d", len(jwks.Keys))
}
