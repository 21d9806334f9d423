package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
)

//go:embed locales/*.json
var localeFS embed.FS

// LoadFromEmbedFS загружает встроенные каталоги locales/<язык>.json.
// Каталог каждого поддерживаемого языка обязателен; ключи, которых
// нет относительно эталонного каталога, выводятся предупреждением.
func LoadFromEmbedFS(bundle *Bundle, logger *slog.Logger) error {
	return loadCatalogs(bundle, localeFS, logger)
}

func loadCatalogs(bundle *Bundle, fsys fs.FS, logger *slog.Logger) error {
	files, err := fs.Glob(fsys, "locales/*.json")
	if err != nil {
		return fmt.Errorf("i18n: поиск каталогов: %w", err)
	}

	loaded := make(map[string]bool, len(files))
	for _, file := range files {
		lang := strings.TrimSuffix(path.Base(file), ".json")
		if Normalize(lang) != lang {
			logger.Warn("Каталог неподдерживаемого языка пропущен", slog.String("file", file))
			continue
		}
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("i18n: чтение %s: %w", file, err)
		}
		if err := bundle.LoadMessages(lang, data); err != nil {
			return err
		}
		loaded[lang] = true
	}

	for _, lang := range Supported() {
		if !loaded[lang] {
			return fmt.Errorf("i18n: нет каталога для языка %s", lang)
		}
		if missing := bundle.Missing(lang); len(missing) > 0 {
			logger.Warn("В каталоге не хватает переводов",
				slog.String("lang", lang),
				slog.Int("count", len(missing)),
				slog.String("first", missing[0]),
			)
		}
	}

	logger.Info("Каталоги переводов загружены", slog.Int("languages", len(loaded)))
	return nil
}
