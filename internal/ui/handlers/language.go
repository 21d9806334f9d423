// language.go — переключение языка интерфейса.
package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/bigkaa/docvault/admin-module/internal/ui/i18n"
)

// langCookieMaxAge — срок хранения выбранного языка (1 год).
const langCookieMaxAge = 365 * 24 * 60 * 60

// HandleSetLanguage обрабатывает POST /admin/set-language.
// Сохраняет язык в cookie и возвращает на страницу, с которой пришёл
// запрос. Неподдерживаемое значение заменяется языком по умолчанию.
func HandleSetLanguage(w http.ResponseWriter, r *http.Request) {
	lang := i18n.Normalize(r.FormValue("lang"))

	http.SetCookie(w, &http.Cookie{
		Name:     i18n.LangCookieName,
		Value:    lang,
		Path:     "/",
		MaxAge:   langCookieMaxAge,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, backTarget(r), http.StatusSeeOther)
}

// backTarget — путь страницы из Referer того же хоста, иначе /admin/.
func backTarget(r *http.Request) string {
	ref, err := url.Parse(r.Header.Get("Referer"))
	if err != nil || ref.Path == "" || (ref.Host != "" && ref.Host != r.Host) {
		return "/admin/"
	}
	if !strings.HasPrefix(ref.Path, "/admin") && ref.Path != "/help" && ref.Path != "/terms" {
		return "/admin/"
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}
