package service

import (
	"testing"
)

// TestHealthPath проверяет извлечение пути проверки из URL.
func TestHealthPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "JWKS URL Keycloak",
			input:    "https://keycloak.kryukov.lan/realms/docvault/protocol/openid-connect/certs",
			expected: "/realms/docvault/protocol/openid-connect/certs",
		},
		{
			name:     "URL без пути",
			input:    "https://keycloak.kryukov.lan",
			expected: "/health",
		},
		{
			name:     "некорректный URL",
			input:    "://bad",
			expected: "/health",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := healthPath(tt.input, "/health"); got != tt.expected {
				t.Errorf("healthPath(%q) = %q, хотели %q", tt.input, got, tt.expected)
			}
		})
	}
}
