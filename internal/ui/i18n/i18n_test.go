package i18n

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"testing/fstest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"en": "en",
		"ru": "ru",
		"de": "en",
		"":   "en",
		"RU": "en",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, ожидалось %q", in, got, want)
		}
	}
}

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		accept string
		want   string
	}{
		{accept: "ru-RU,ru;q=0.9,en;q=0.8", want: "ru"},
		{accept: "en-US", want: "en"},
		{accept: "fr-FR", want: "en"},
		{accept: "мусор;;", want: "en"},
	}
	for _, tt := range tests {
		if got := MatchLanguage(tt.accept); got != tt.want {
			t.Errorf("MatchLanguage(%q) = %q, ожидалось %q", tt.accept, got, tt.want)
		}
	}
}

func TestBundle_TranslateFallback(t *testing.T) {
	b := NewBundle(nil)
	if err := b.LoadMessages("en", []byte(`{"nav.files":"Files","nav.users":"Users"}`)); err != nil {
		t.Fatal(err)
	}
	if err := b.LoadMessages("ru", []byte(`{"nav.files":"Файлы"}`)); err != nil {
		t.Fatal(err)
	}

	if got := b.Translate("ru", "nav.files"); got != "Файлы" {
		t.Errorf("перевод: %q", got)
	}
	if got := b.Translate("ru", "nav.users"); got != "Users" {
		t.Errorf("нет перевода: ожидалась строка из en, получено %q", got)
	}
	if got := b.Translate("ru", "nav.unknown"); got != "nav.unknown" {
		t.Errorf("неизвестный ключ должен возвращаться как есть, получено %q", got)
	}
	if got := b.Missing("ru"); !reflect.DeepEqual(got, []string{"nav.users"}) {
		t.Errorf("Missing = %v", got)
	}
}

func TestBundle_Translatef(t *testing.T) {
	b := NewBundle(nil)
	if err := b.LoadMessages("en", []byte(`{"files.count":"%d files"}`)); err != nil {
		t.Fatal(err)
	}
	if got := b.Translatef("en", "files.count", 3); got != "3 files" {
		t.Errorf("Translatef = %q", got)
	}
}

func TestBundle_LoadMessagesInvalidJSON(t *testing.T) {
	if err := NewBundle(nil).LoadMessages("en", []byte(`[1,2]`)); err == nil {
		t.Error("ожидалась ошибка разбора")
	}
}

func TestLoadCatalogs(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en.json": {Data: []byte(`{"a":"A","b":"B"}`)},
		"locales/ru.json": {Data: []byte(`{"a":"А"}`)},
		"locales/de.json": {Data: []byte(`{"a":"Ä"}`)},
	}
	b := NewBundle(nil)
	if err := loadCatalogs(b, fsys, discardLogger()); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if got := b.Translate("ru", "a"); got != "А" {
		t.Errorf("ru: %q", got)
	}
	if got := b.Translate("de", "a"); got != "A" {
		t.Errorf("неподдерживаемый каталог не должен загружаться, получено %q", got)
	}
}

func TestLoadCatalogs_MissingLanguage(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en.json": {Data: []byte(`{"a":"A"}`)},
	}
	if err := loadCatalogs(NewBundle(nil), fsys, discardLogger()); err == nil {
		t.Error("ожидалась ошибка: нет каталога ru")
	}
}

func TestEmbeddedCatalogsComplete(t *testing.T) {
	b := NewBundle(nil)
	if err := LoadFromEmbedFS(b, discardLogger()); err != nil {
		t.Fatal(err)
	}
	if missing := b.Missing("ru"); len(missing) > 0 {
		t.Errorf("в ru.json нет ключей: %v", missing)
	}
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		accept string
		want   string
	}{
		{name: "cookie", cookie: "ru", accept: "en", want: "ru"},
		{name: "неизвестная cookie", cookie: "xx", accept: "ru", want: "ru"},
		{name: "заголовок", accept: "ru-RU", want: "ru"},
		{name: "по умолчанию", want: "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = LangFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: LangCookieName, Value: tt.cookie})
			}
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("язык = %q, ожидался %q", got, tt.want)
			}
		})
	}
}

func TestLangFromContextDefault(t *testing.T) {
	if got := LangFromContext(context.Background()); got != DefaultLang {
		t.Errorf("ожидался %q, получено %q", DefaultLang, got)
	}
}
