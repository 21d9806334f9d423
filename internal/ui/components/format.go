package components

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bigkaa/docvault/admin-module/internal/domain/rbac"
)

// Date — дата по настройкам арендатора. Нулевое время — пустая строка.
func Date(ctx context.Context, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return formatterFromContext(ctx).FormatDate(t)
}

// DateTime — дата и время по настройкам арендатора.
func DateTime(ctx context.Context, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return formatterFromContext(ctx).FormatDateTime(t)
}

// DateOf — Date для необязательного значения.
func DateOf(ctx context.Context, t *time.Time) string {
	if t == nil {
		return ""
	}
	return Date(ctx, *t)
}

// DateTimeOf — DateTime для необязательного значения.
func DateTimeOf(ctx context.Context, t *time.Time) string {
	if t == nil {
		return ""
	}
	return DateTime(ctx, *t)
}

// Bytes — размер файла в читаемом виде (1024-кратные единицы).
func Bytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Paragraphs делит текст на абзацы по пустым строкам.
func Paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Allowed — доступ роли к разделу навигации.
func Allowed(section, role string) bool {
	switch section {
	case "file_requests":
		return rbac.CanManageFileRequests(role)
	case "files":
		return rbac.CanViewActivity(role)
	case "email_templates":
		return rbac.CanManageTenantTemplates(role)
	case "system_templates":
		return rbac.CanManageSystemTemplates(role)
	case "users":
		return rbac.CanManageUsers(role)
	case "settings", "virus_scan":
		return rbac.CanManageSettings(role)
	default:
		return false
	}
}
