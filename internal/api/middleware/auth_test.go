package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testKeyID  = "test-key-da"
	testIssuer = "https://keycloak.test/realms/docvault"
)

func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

// buildJWKSetJSON строит JWKS из публичного RSA-ключа.
func buildJWKSetJSON(pub *rsa.PublicKey, kid string) json.RawMessage {
	jwks := map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"kid": kid,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	data, _ := json.Marshal(jwks)
	return data
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestJWTAuth(t *testing.T, key *rsa.PrivateKey) *JWTAuth {
	t.Helper()
	kf, err := keyfunc.NewJWKSetJSON(buildJWKSetJSON(&key.PublicKey, testKeyID))
	if err != nil {
		t.Fatalf("не удалось создать keyfunc: %v", err)
	}
	return NewJWTAuthWithKeyfunc(kf, testIssuer,
		[]string{"docvault-admins"}, []string{"docvault-managers"},
		5*time.Second, testLogger())
}

// signToken подписывает claims тестовым ключом; базовые поля можно переопределить.
func signToken(t *testing.T, key *rsa.PrivateKey, extra jwt.MapClaims) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":                "user-123",
		"preferred_username": "mpetrova",
		"email":              "m.petrova@acme.example",
		"iss":                testIssuer,
		"exp":                jwt.NewNumericDate(time.Now().Add(time.Hour)),
		"iat":                jwt.NewNumericDate(time.Now()),
	}
	for k, v := range extra {
		claims[k] = v
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	s, err := token.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestVerify_Roles(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestJWTAuth(t, key)

	tests := []struct {
		name  string
		extra jwt.MapClaims
		want  string
	}{
		{"без групп", nil, "user"},
		{"менеджер по группе", jwt.MapClaims{"groups": []string{"docvault-managers"}}, "manager"},
		{"админ по группе", jwt.MapClaims{"groups": []string{"docvault-managers", "docvault-admins"}}, "admin"},
		{"админ по realm-роли", jwt.MapClaims{"realm_access": map[string]any{"roles": []string{"admin", "offline_access"}}}, "admin"},
		{"посторонние группы", jwt.MapClaims{"groups": []string{"others"}}, "user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := auth.Verify(context.Background(), signToken(t, key, tt.extra))
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if claims.Role != tt.want {
				t.Errorf("Role = %q, ожидалась %q", claims.Role, tt.want)
			}
		})
	}
}

func TestVerify_Claims(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestJWTAuth(t, key)

	claims, err := auth.Verify(context.Background(), signToken(t, key, jwt.MapClaims{
		"name":       "Мария Петрова",
		"company":    "acme",
		"department": "finance",
	}))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-123" || claims.Company != "acme" || claims.Department != "finance" {
		t.Errorf("неожиданные claims: %+v", claims)
	}
	if claims.ExpiresAt.IsZero() {
		t.Error("ExpiresAt не заполнен")
	}
}

func TestVerify_Rejected(t *testing.T) {
	key := generateTestKey(t)
	other := generateTestKey(t)
	auth := newTestJWTAuth(t, key)

	tests := []struct {
		name  string
		token string
	}{
		{"просрочен", signToken(t, key, jwt.MapClaims{"exp": jwt.NewNumericDate(time.Now().Add(-time.Hour))})},
		{"чужой issuer", signToken(t, key, jwt.MapClaims{"iss": "https://other.test/realms/x"})},
		{"чужой ключ", signToken(t, other, nil)},
		{"без sub", signToken(t, key, jwt.MapClaims{"sub": ""})},
		{"мусор", "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := auth.Verify(context.Background(), tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ожидали ErrInvalidToken, получили %v", err)
			}
		})
	}
}

func TestMiddleware_Header(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestJWTAuth(t, key)
	valid := signToken(t, key, nil)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"без заголовка", "", http.StatusUnauthorized},
		{"не Bearer", "Basic abc", http.StatusUnauthorized},
		{"пустой токен", "Bearer ", http.StatusUnauthorized},
		{"валидный", "Bearer " + valid, http.StatusOK},
		{"регистр схемы", "bearer " + valid, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if ClaimsFromContext(r.Context()) == nil {
					t.Error("claims не найдены в контексте")
				}
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("статус %d, ожидался %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name   string
		claims *AuthClaims
		want   int
	}{
		{"без claims", nil, http.StatusUnauthorized},
		{"user", &AuthClaims{Role: "user"}, http.StatusForbidden},
		{"manager", &AuthClaims{Role: "manager"}, http.StatusOK},
		{"admin", &AuthClaims{Role: "admin"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireRole("manager")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/preview", nil)
			if tt.claims != nil {
				req = req.WithContext(context.WithValue(req.Context(), ContextKeyClaims, tt.claims))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("статус %d, ожидался %d", rec.Code, tt.want)
			}
		})
	}
}

func TestKeycloakReadinessChecker(t *testing.T) {
	key := generateTestKey(t)
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"ok", http.StatusOK, string(buildJWKSetJSON(&key.PublicKey, testKeyID)), "ok"},
		{"нет ключей", http.StatusOK, `{"keys":[]}`, "degraded"},
		{"ошибка", http.StatusInternalServerError, "", "fail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			checker, err := NewKeycloakReadinessChecker(srv.URL, "", time.Second)
			if err != nil {
				t.Fatal(err)
			}
			if got, msg := checker.CheckReady(context.Background()); got != tt.want {
				t.Errorf("CheckReady() = %q (%s), ожидался %q", got, msg, tt.want)
			}
		})
	}
}
