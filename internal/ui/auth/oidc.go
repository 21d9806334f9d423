// Вход в Admin UI через Keycloak: Authorization Code Flow с PKCE
// (RFC 7636) для public client, обновление и отзыв сессии.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultScope       = "openid profile email groups"
	defaultOIDCTimeout = 30 * time.Second
	// maxTokenBody — ответы token endpoint укладываются в несколько КБ.
	maxTokenBody = 1 << 20
)

// OIDCConfig — параметры клиента Keycloak.
type OIDCConfig struct {
	// KeycloakURL — адрес для запросов сервера (token endpoint).
	KeycloakURL string
	// BrowserKeycloakURL — адрес для редиректов браузера (authorize,
	// logout). Пусто — совпадает с KeycloakURL.
	BrowserKeycloakURL string
	Realm              string
	ClientID           string
	// Scope — пусто означает "openid profile email groups".
	Scope      string
	HTTPClient *http.Client
	// Timeout применяется, только если HTTPClient не задан.
	Timeout time.Duration
}

// OIDCClient — клиент OIDC endpoints одного realm.
type OIDCClient struct {
	clientID   string
	scope      string
	issuer     string
	browser    string
	server     string
	httpClient *http.Client
}

func NewOIDCClient(cfg OIDCConfig) *OIDCClient {
	browserBase := cfg.BrowserKeycloakURL
	if browserBase == "" {
		browserBase = cfg.KeycloakURL
	}
	scope := cfg.Scope
	if scope == "" {
		scope = defaultScope
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultOIDCTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	issuer := realmURL(cfg.KeycloakURL, cfg.Realm)
	return &OIDCClient{
		clientID:   cfg.ClientID,
		scope:      scope,
		issuer:     issuer,
		browser:    realmURL(browserBase, cfg.Realm) + "/protocol/openid-connect",
		server:     issuer + "/protocol/openid-connect",
		httpClient: httpClient,
	}
}

func realmURL(base, realm string) string {
	return strings.TrimSuffix(base, "/") + "/realms/" + url.PathEscape(realm)
}

// Issuer — realm URL, ожидаемый в claim iss.
func (c *OIDCClient) Issuer() string {
	return c.issuer
}

// PKCEParams — пара PKCE одного входа. CodeVerifier хранится в state
// cookie, CodeChallenge уходит в authorize URL.
type PKCEParams struct {
	CodeVerifier  string
	CodeChallenge string
}

// GeneratePKCE создаёт verifier из 32 случайных байт (43 символа
// base64url) и challenge по методу S256.
func GeneratePKCE() (*PKCEParams, error) {
	verifier, err := randomToken(32)
	if err != nil {
		return nil, fmt.Errorf("code_verifier: %w", err)
	}
	sum := sha256.Sum256([]byte(verifier))
	return &PKCEParams{
		CodeVerifier:  verifier,
		CodeChallenge: base64.RawURLEncoding.EncodeToString(sum[:]),
	}, nil
}

// GenerateState — случайный параметр state для защиты callback от CSRF.
func GenerateState() (string, error) {
	state, err := randomToken(16)
	if err != nil {
		return "", fmt.Errorf("state: %w", err)
	}
	return state, nil
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// AuthorizeURL — адрес страницы входа Keycloak.
func (c *OIDCClient) AuthorizeURL(redirectURI, state, codeChallenge string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	q.Set("scope", c.scope)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "S256")
	return c.browser + "/auth?" + q.Encode()
}

// LogoutURL — адрес выхода из Keycloak; idTokenHint может быть пустым.
func (c *OIDCClient) LogoutURL(idTokenHint, postLogoutRedirectURI string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("post_logout_redirect_uri", postLogoutRedirectURI)
	if idTokenHint != "" {
		q.Set("id_token_hint", idTokenHint)
	}
	return c.browser + "/logout?" + q.Encode()
}

// TokenResponse — ответ token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`  //nolint:gosec // G117: поля OAuth2
	RefreshToken string `json:"refresh_token"` //nolint:gosec // G117: поля OAuth2
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	IDToken      string `json:"id_token"`
}

// ExpiresAt — момент истечения access token относительно now (Unix).
func (t *TokenResponse) ExpiresAt(now time.Time) int64 {
	return now.Add(time.Duration(t.ExpiresIn) * time.Second).Unix()
}

// TokenError — отказ token endpoint (RFC 6749, раздел 5.2).
type TokenError struct {
	Status      int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *TokenError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("token endpoint: %s (HTTP %d)", e.Code, e.Status)
	}
	return fmt.Sprintf("token endpoint: %s: %s", e.Code, e.Description)
}

// IsInvalidGrant — refresh token отозван или истёк, нужен повторный вход.
func IsInvalidGrant(err error) bool {
	var te *TokenError
	return errors.As(err, &te) && te.Code == "invalid_grant"
}

// ExchangeCode меняет authorization code на токены. redirectURI
// совпадает с переданным в AuthorizeURL.
func (c *OIDCClient) ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (*TokenResponse, error) {
	return c.token(ctx, url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {c.clientID},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"code_verifier": {codeVerifier},
	})
}

// RefreshTokens получает новую пару access/refresh.
func (c *OIDCClient) RefreshTokens(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	return c.token(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.clientID},
		"refresh_token": {refreshToken},
	})
}

func (c *OIDCClient) token(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("запрос токена: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: адрес из конфигурации
	if err != nil {
		return nil, fmt.Errorf("token endpoint недоступен: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenBody))
	if err != nil {
		return nil, fmt.Errorf("чтение ответа token endpoint: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		te := &TokenError{Status: resp.StatusCode}
		if json.Unmarshal(body, te) != nil || te.Code == "" {
			te.Code = "http_error"
			te.Description = strings.TrimSpace(string(body))
		}
		return nil, te
	}

	var tokens TokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("разбор ответа token endpoint: %w", err)
	}
	if tokens.AccessToken == "" {
		return nil, errors.New("token endpoint: пустой access_token")
	}
	return &tokens, nil
}
