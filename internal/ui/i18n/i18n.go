// Пакет i18n — переводы интерфейса Admin UI (en, ru).
// Шаблоны страниц получают строки через функции t и tf, обработчики —
// через T и Tf с языком из контекста запроса.
package i18n

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"golang.org/x/text/language"
)

// DefaultLang — язык по умолчанию и эталонный каталог.
const DefaultLang = "en"

// languages — поддерживаемые языки; первый совпадает с DefaultLang.
var languages = []language.Tag{language.English, language.Russian}

var matcher = language.NewMatcher(languages)

// Supported возвращает коды поддерживаемых языков.
func Supported() []string {
	codes := make([]string, 0, len(languages))
	for _, tag := range languages {
		base, _ := tag.Base()
		codes = append(codes, base.String())
	}
	return codes
}

// Normalize возвращает lang, если язык поддерживается, иначе DefaultLang.
func Normalize(lang string) string {
	if slices.Contains(Supported(), lang) {
		return lang
	}
	return DefaultLang
}

// MatchLanguage выбирает язык по заголовку Accept-Language.
func MatchLanguage(acceptLanguage string) string {
	_, idx, conf := matcher.Match(parseAccept(acceptLanguage)...)
	if conf == language.No {
		return DefaultLang
	}
	return Supported()[idx]
}

func parseAccept(acceptLanguage string) []language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil {
		return nil
	}
	return tags
}

type langKey struct{}

// WithLang помещает язык в контекст.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

// LangFromContext — язык запроса, по умолчанию DefaultLang.
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(langKey{}).(string); ok && lang != "" {
		return lang
	}
	return DefaultLang
}

// Bundle — каталоги переводов (язык → ключ → строка).
type Bundle struct {
	mu       sync.RWMutex
	catalogs map[string]map[string]string
	logger   *slog.Logger
}

// NewBundle создаёт пустой набор каталогов.
func NewBundle(logger *slog.Logger) *Bundle {
	return &Bundle{
		catalogs: make(map[string]map[string]string),
		logger:   logger,
	}
}

// LoadMessages разбирает плоский JSON-каталог {"ключ": "перевод"}.
func (b *Bundle) LoadMessages(lang string, data []byte) error {
	var messages map[string]string
	if err := json.Unmarshal(data, &messages); err != nil {
		return fmt.Errorf("i18n: ошибка разбора каталога %s: %w", lang, err)
	}

	b.mu.Lock()
	b.catalogs[lang] = messages
	b.mu.Unlock()

	if b.logger != nil {
		b.logger.Debug("Каталог переводов загружен",
			slog.String("lang", lang),
			slog.Int("keys", len(messages)),
		)
	}
	return nil
}

// Translate ищет ключ в каталоге языка, затем в каталоге DefaultLang.
// Ненайденный ключ возвращается как есть, чтобы пропуск был виден на странице.
func (b *Bundle) Translate(lang, key string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if msg, ok := b.catalogs[lang][key]; ok {
		return msg
	}
	if msg, ok := b.catalogs[DefaultLang][key]; ok {
		return msg
	}
	return key
}

// Translatef подставляет аргументы в перевод.
func (b *Bundle) Translatef(lang, key string, args ...any) string {
	msg := b.Translate(lang, key)
	if len(args) == 0 {
		return msg
	}
	return formatFunc(msg, args...)
}

// Missing возвращает отсортированные ключи эталонного каталога,
// которых нет в каталоге lang.
func (b *Bundle) Missing(lang string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	target := b.catalogs[lang]
	var missing []string
	for key := range b.catalogs[DefaultLang] {
		if _, ok := target[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

var (
	globalBundle *Bundle
	globalOnce   sync.Once
)

// Init создаёт общий набор каталогов процесса. Повторный вызов
// возвращает уже созданный.
func Init(logger *slog.Logger) *Bundle {
	globalOnce.Do(func() {
		globalBundle = NewBundle(logger)
	})
	return globalBundle
}

// T — перевод на язык запроса. До Init возвращает ключ.
func T(ctx context.Context, key string) string {
	if globalBundle == nil {
		return key
	}
	return globalBundle.Translate(LangFromContext(ctx), key)
}

// Tf — перевод с подстановкой аргументов.
func Tf(ctx context.Context, key string, args ...any) string {
	if globalBundle == nil {
		if len(args) == 0 {
			return key
		}
		return formatFunc(key, args...)
	}
	return globalBundle.Translatef(LangFromContext(ctx), key, args...)
}

// formatFunc скрывает fmt.Sprintf от printf-анализатора go vet:
// формат-строки приходят из каталогов во время выполнения.
var formatFunc = fmt.Sprintf
