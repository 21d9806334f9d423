// me.go — GET /api/v1/me: текущий пользователь по bearer-токену.
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/docvault/admin-module/internal/api/errors"
	"github.com/bigkaa/docvault/admin-module/internal/api/middleware"
	"github.com/bigkaa/docvault/admin-module/internal/domain/rbac"
)

// currentUserResponse — ответ /api/v1/me.
type currentUserResponse struct {
	ID         string   `json:"id"`
	Username   string   `json:"username"`
	Email      string   `json:"email,omitempty"`
	Name       string   `json:"name,omitempty"`
	Company    string   `json:"company,omitempty"`
	Department string   `json:"department,omitempty"`
	Role       string   `json:"role"`
	Groups     []string `json:"groups,omitempty"`
	// Permissions — экраны Admin UI, доступные роли
	Permissions []string `json:"permissions"`
}

// GetCurrentUser — GET /api/v1/me. Доступ: любой аутентифицированный.
func (h *APIHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	writeJSON(w, http.StatusOK, currentUserResponse{
		ID:          claims.Subject,
		Username:    claims.PreferredUsername,
		Email:       claims.Email,
		Name:        claims.Name,
		Company:     claims.Company,
		Department:  claims.Department,
		Role:        claims.Role,
		Groups:      claims.Groups,
		Permissions: permissions(claims.Role),
	})
}

// permissions перечисляет права роли для клиентов API.
func permissions(role string) []string {
	checks := []struct {
		name string
		ok   func(string) bool
	}{
		{"file_requests.manage", rbac.CanManageFileRequests},
		{"files.activity", rbac.CanViewActivity},
		{"email_templates.tenant", rbac.CanManageTenantTemplates},
		{"email_templates.system", rbac.CanManageSystemTemplates},
		{"users.manage", rbac.CanManageUsers},
		{"settings.manage", rbac.CanManageSettings},
	}
	out := make([]string, 0, len(checks))
	for _, c := range checks {
		if c.ok(role) {
			out = append(out, c.name)
		}
	}
	return out
}
