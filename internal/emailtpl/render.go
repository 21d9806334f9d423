// Пакет emailtpl — подстановка переменных {{key}} в шаблоны писем
// для предпросмотра в редакторе.
package emailtpl

import "regexp"

// placeholderRe — плейсхолдер {{key}} без пробелов внутри скобок.
var placeholderRe = regexp.MustCompile(`\{\{([A-Za-z0-9_.]+)\}\}`)

// Render заменяет каждый {{key}}, для которого есть значение в vars.
// Неизвестные плейсхолдеры остаются в тексте без изменений.
func Render(text string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
		key := m[2 : len(m)-2]
		if v, ok := vars[key]; ok {
			return v
		}
		return m
	})
}

// Placeholders возвращает имена плейсхолдеров в порядке первого появления.
func Placeholders(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// Undeclared возвращает плейсхолдеры из текстов, не входящие в declared.
func Undeclared(declared []string, texts ...string) []string {
	known := make(map[string]bool, len(declared))
	for _, d := range declared {
		known[d] = true
	}

	var out []string
	seen := make(map[string]bool)
	for _, text := range texts {
		for _, p := range Placeholders(text) {
			if !known[p] && !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// DefaultSampleData — значения для предпросмотра по умолчанию.
// Администратор может переопределить их в настройках UI.
func DefaultSampleData() map[string]string {
	return map[string]string{
		"user_name":       "John Doe",
		"user_email":      "john.doe@example.com",
		"company_name":    "Acme Corp",
		"request_name":    "Quarterly reports",
		"request_link":    "https://docvault.example.com/r/abc123",
		"expiry_date":     "31/12/2026",
		"file_name":       "report.pdf",
		"uploader_name":   "Jane Smith",
		"reset_link":      "https://docvault.example.com/reset/xyz",
		"login_url":       "https://docvault.example.com/login",
		"inviter_name":    "Admin",
		"support_email":   "support@example.com",
		"threat_name":     "Eicar-Test-Signature",
		"suspended_until": "01/01/2027",
	}
}

// Merge накладывает overrides поверх base и возвращает новую карту.
func Merge(base, overrides map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}
