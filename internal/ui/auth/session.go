// Пакет auth — аутентификация и сессии Admin UI.
// Сессия хранится в cookie, зашифрованном AES-256-GCM; вход через
// OIDC Authorization Code с PKCE.
package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SessionCookieName — имя cookie зашифрованной сессии.
const SessionCookieName = "docvault_session"

// DefaultSessionMaxAge — срок жизни cookie, если не задан явно.
const DefaultSessionMaxAge = 24 * time.Hour

// refreshBuffer — за сколько до истечения access token считается устаревшим.
const refreshBuffer = 30 * time.Second

// SessionData — содержимое cookie сессии.
type SessionData struct {
	// SessionID — идентификатор сессии UI. Ключ состояний списков
	// (история проверок, карантин) на стороне сервера.
	SessionID string `json:"sid"`
	// AccessToken — bearer-токен для запросов к backend API.
	AccessToken string `json:"access_token"`
	// RefreshToken — токен обновления.
	RefreshToken string `json:"refresh_token"`
	// IDToken — id_token для id_token_hint при выходе.
	IDToken string `json:"id_token,omitempty"`
	// ExpiresAt — истечение access token (Unix).
	ExpiresAt int64 `json:"expires_at"`
	// Subject — sub из токена, он же ID пользователя в backend.
	Subject  string `json:"sub"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	// Company — компания пользователя, корень дерева файлов.
	Company string `json:"company,omitempty"`
	// Role — эффективная роль (user, manager, admin).
	Role   string   `json:"role"`
	Groups []string `json:"groups,omitempty"`
}

// NewSessionID возвращает новый идентификатор сессии.
func NewSessionID() string {
	return uuid.NewString()
}

// IsExpired сообщает, что access token истёк или истечёт в ближайшие 30 секунд.
func (s *SessionData) IsExpired() bool {
	return time.Now().Unix() >= s.ExpiresAt-int64(refreshBuffer/time.Second)
}

// DisplayName — имя для шапки страницы.
func (s *SessionData) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Username != "" {
		return s.Username
	}
	return s.Email
}

// SessionManager шифрует SessionData в cookie и обратно.
type SessionManager struct {
	gcm    cipher.AEAD
	secure bool
	maxAge time.Duration
}

// NewSessionManager создаёт менеджер сессий.
// key — base64 32-байтового ключа либо произвольная строка (хешируется SHA-256).
// Пустой key — случайный ключ: сессии не переживут рестарт.
// maxAge <= 0 — DefaultSessionMaxAge.
func NewSessionManager(key string, secure bool, maxAge time.Duration) (*SessionManager, error) {
	var keyBytes []byte

	if key == "" {
		keyBytes = make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, keyBytes); err != nil {
			return nil, fmt.Errorf("ошибка генерации ключа сессии: %w", err)
		}
	} else {
		var err error
		keyBytes, err = base64.StdEncoding.DecodeString(key)
		if err != nil || len(keyBytes) != 32 {
			h := sha256.Sum256([]byte(key))
			keyBytes = h[:]
		}
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	if maxAge <= 0 {
		maxAge = DefaultSessionMaxAge
	}

	return &SessionManager{gcm: gcm, secure: secure, maxAge: maxAge}, nil
}

// Encrypt шифрует SessionData в base64url-строку (nonce в начале).
func (sm *SessionManager) Encrypt(data *SessionData) (string, error) {
	plaintext, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации сессии: %w", err)
	}

	nonce := make([]byte, sm.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	return base64.URLEncoding.EncodeToString(sm.gcm.Seal(nonce, nonce, plaintext, nil)), nil
}

// Decrypt восстанавливает SessionData из строки Encrypt.
func (sm *SessionManager) Decrypt(encrypted string) (*SessionData, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(encrypted)
	if err != nil {
		return nil, fmt.Errorf("ошибка декодирования base64: %w", err)
	}

	nonceSize := sm.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("зашифрованные данные слишком короткие")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := sm.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка дешифрования сессии: %w", err)
	}

	var data SessionData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, fmt.Errorf("ошибка десериализации сессии: %w", err)
	}
	return &data, nil
}

// SetSessionCookie записывает зашифрованную сессию в ответ.
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, data *SessionData) error {
	encrypted, err := sm.Encrypt(data)
	if err != nil {
		return err
	}
	http.SetCookie(w, sm.cookie(encrypted, int(sm.maxAge/time.Second)))
	return nil
}

// GetSessionFromRequest читает сессию из cookie.
// Без cookie возвращает nil, nil.
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) (*SessionData, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}
	return sm.Decrypt(cookie.Value)
}

// ClearSessionCookie удаляет cookie сессии.
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, sm.cookie("", -1))
}

func (sm *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/admin",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
