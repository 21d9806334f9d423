package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

// TestGeneratePKCE проверяет генерацию PKCE code_verifier и code_challenge.
func TestGeneratePKCE(t *testing.T) {
	params, err := GeneratePKCE()
	if err != nil {
		t.Fatalf("Ошибка генерации PKCE: %v", err)
	}

	// code_verifier должен быть 43 символа (32 bytes → base64url без padding)
	if len(params.CodeVerifier) != 43 {
		t.Errorf("CodeVerifier length: want 43, got %d", len(params.CodeVerifier))
	}

	// code_challenge должен быть base64url(SHA-256(code_verifier))
	hash := sha256.Sum256([]byte(params.CodeVerifier))
	expectedChallenge := base64.RawURLEncoding.EncodeToString(hash[:])
	if params.CodeChallenge != expectedChallenge {
		t.Errorf("CodeChallenge не совпадает с SHA-256(code_verifier)")
	}
}

// TestGeneratePKCEUniqueness проверяет, что каждый вызов генерирует уникальные значения.
func TestGeneratePKCEUniqueness(t *testing.T) {
	params1, _ := GeneratePKCE()
	params2, _ := GeneratePKCE()

	if params1.CodeVerifier == params2.CodeVerifier {
		t.Error("Два вызова GeneratePKCE вернули одинаковые code_verifier")
	}
}

// TestGenerateState проверяет генерацию state parameter.
func TestGenerateState(t *testing.T) {
	state1, err := GenerateState()
	if err != nil {
		t.Fatalf("Ошибка генерации state: %v", err)
	}

	if state1 == "" {
		t.Error("State не должен быть пустым")
	}

	state2, _ := GenerateState()
	if state1 == state2 {
		t.Error("Два вызова GenerateState вернули одинаковые значения")
	}
}

// TestOIDCClientAuthorizeURL проверяет формирование authorize URL.
func TestOIDCClientAuthorizeURL(t *testing.T) {
	client := NewOIDCClient(OIDCConfig{
		KeycloakURL: "https://keycloak.example.com",
		Realm:       "docvault",
		ClientID:    "docvault-admin-ui",
	})

	authURL := client.AuthorizeURL(
		"http://localhost:8010/admin/callback",
		"test-state-123",
		"test-challenge-456",
	)

	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("Ошибка парсинга URL: %v", err)
	}

	// Проверяем базовый URL
	expectedBase := "https://keycloak.example.com/realms/docvault/protocol/openid-connect/auth"
	if !strings.HasPrefix(authURL, expectedBase) {
		t.Errorf("URL должен начинаться с %s, получено: %s", expectedBase, authURL)
	}

	// Проверяем query parameters
	params := parsed.Query()
	tests := map[string]string{
		"client_id":             "docvault-admin-ui",
		"response_type":         "code",
		"redirect_uri":          "http://localhost:8010/admin/callback",
		"state":                 "test-state-123",
		"code_challenge":        "test-challenge-456",
		"code_challenge_method": "S256",
	}

	for key, want := range tests {
		got := params.Get(key)
		if got != want {
			t.Errorf("Parameter %s: want %q, got %q", key, want, got)
		}
	}

	// Scope должен содержать openid profile email groups
	scope := params.Get("scope")
	for _, s := range []string{"openid", "profile", "email", "groups"} {
		if !strings.Contains(scope, s) {
			t.Errorf("Scope должен содержать %q, scope=%q", s, scope)
		}
	}
}

// TestOIDCClientLogoutURL проверяет формирование logout URL.
func TestOIDCClientLogoutURL(t *testing.T) {
	client := NewOIDCClient(OIDCConfig{
		KeycloakURL: "https://keycloak.example.com",
		Realm:       "docvault",
		ClientID:    "docvault-admin-ui",
	})

	logoutURL := client.LogoutURL("id-token-hint", "http://localhost:8010/admin/login")

	parsed, err := url.Parse(logoutURL)
	if err != nil {
		t.Fatalf("Ошибка парсинга URL: %v", err)
	}

	params := parsed.Query()
	if params.Get("client_id") != "docvault-admin-ui" {
		t.Errorf("client_id: want docvault-admin-ui, got %s", params.Get("client_id"))
	}
	if params.Get("id_token_hint") != "id-token-hint" {
		t.Errorf("id_token_hint: want id-token-hint, got %s", params.Get("id_token_hint"))
	}
	if params.Get("post_logout_redirect_uri") != "http://localhost:8010/admin/login" {
		t.Errorf("post_logout_redirect_uri не совпадает")
	}
}

func TestOIDCClientBrowserURL(t *testing.T) {
	client := NewOIDCClient(OIDCConfig{
		KeycloakURL:        "http://keycloak.internal:8080",
		BrowserKeycloakURL: "https://sso.example.com",
		Realm:              "docvault",
		ClientID:           "docvault-admin-ui",
		Scope:              "openid email",
	})

	authURL := client.AuthorizeURL("http://localhost/cb", "s", "c")
	if !strings.HasPrefix(authURL, "https://sso.example.com/realms/docvault/") {
		t.Errorf("authorize должен идти через browser URL: %s", authURL)
	}
	if client.Issuer() != "http://keycloak.internal:8080/realms/docvault" {
		t.Errorf("Issuer() = %q", client.Issuer())
	}
	parsed, _ := url.Parse(authURL)
	if parsed.Query().Get("scope") != "openid email" {
		t.Errorf("scope = %q", parsed.Query().Get("scope"))
	}
}

func TestOIDCClientExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/realms/docvault/protocol/openid-connect/token" {
			t.Errorf("неожиданный путь %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("grant_type") != "authorization_code" || r.PostForm.Get("code_verifier") != "verifier" {
			t.Errorf("неверная форма: %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":300,"id_token":"it"}`))
	}))
	defer srv.Close()

	client := NewOIDCClient(OIDCConfig{KeycloakURL: srv.URL, Realm: "docvault", ClientID: "docvault-admin-ui"})
	tokens, err := client.ExchangeCode(context.Background(), "code", "http://localhost/cb", "verifier")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if tokens.AccessToken != "at" || tokens.ExpiresIn != 300 || tokens.IDToken != "it" {
		t.Errorf("неожиданный ответ: %+v", tokens)
	}
}

func TestOIDCClientTokenError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Token is not active"}`))
	}))
	defer srv.Close()

	client := NewOIDCClient(OIDCConfig{KeycloakURL: srv.URL, Realm: "docvault", ClientID: "docvault-admin-ui"})
	_, err := client.RefreshTokens(context.Background(), "stale")
	if err == nil || !strings.Contains(err.Error(), "invalid_grant") {
		t.Fatalf("ожидали ошибку invalid_grant, получили %v", err)
	}
	if !IsInvalidGrant(err) {
		t.Error("IsInvalidGrant() должен распознать отказ Keycloak")
	}
}

func TestOIDCClientTokenErrorNonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewOIDCClient(OIDCConfig{KeycloakURL: srv.URL, Realm: "docvault", ClientID: "docvault-admin-ui"})
	_, err := client.RefreshTokens(context.Background(), "rt")
	var te *TokenError
	if !errors.As(err, &te) || te.Status != http.StatusBadGateway || te.Code != "http_error" {
		t.Fatalf("ожидали TokenError со статусом 502, получили %v", err)
	}
	if IsInvalidGrant(err) {
		t.Error("ошибка шлюза не является invalid_grant")
	}
}

func TestTokenResponseExpiresAt(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tr := &TokenResponse{ExpiresIn: 300}
	if got := tr.ExpiresAt(now); got != 1_700_000_300 {
		t.Errorf("ExpiresAt() = %d", got)
	}
}
