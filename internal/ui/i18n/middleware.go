package i18n

import "net/http"

// LangCookieName — cookie с выбранным пользователем языком.
const LangCookieName = "lang"

// Middleware кладёт язык запроса в контекст: cookie, затем
// Accept-Language, затем DefaultLang.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithLang(r.Context(), RequestLang(r))))
		})
	}
}

// RequestLang определяет язык запроса.
func RequestLang(r *http.Request) string {
	if c, err := r.Cookie(LangCookieName); err == nil && Normalize(c.Value) == c.Value {
		return c.Value
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		return MatchLanguage(accept)
	}
	return DefaultLang
}
