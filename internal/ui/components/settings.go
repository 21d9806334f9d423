// Пакет components — общие части templ-компонентов Admin UI:
// настройки арендатора в контексте запроса, форматирование значений
// и небольшие компоненты, которые удобнее написать на Go.
package components

import (
	"context"
	"time"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
	"github.com/bigkaa/docvault/admin-module/internal/service"
)

type settingsKey struct{}

type settingsValue struct {
	settings  model.GlobalSettings
	formatter service.Formatter
}

// WithSettings помещает снимок глобальных настроек и форматтер в контекст.
func WithSettings(ctx context.Context, gs model.GlobalSettings, f service.Formatter) context.Context {
	return context.WithValue(ctx, settingsKey{}, settingsValue{settings: gs, formatter: f})
}

// SettingsFromContext возвращает настройки из контекста
// (значения по умолчанию, если middleware не применялся).
func SettingsFromContext(ctx context.Context) model.GlobalSettings {
	if v, ok := ctx.Value(settingsKey{}).(settingsValue); ok {
		return v.settings
	}
	return model.DefaultGlobalSettings()
}

func formatterFromContext(ctx context.Context) service.Formatter {
	if v, ok := ctx.Value(settingsKey{}).(settingsValue); ok && v.formatter != nil {
		return v.formatter
	}
	return utcFormatter{}
}

// utcFormatter — формат по умолчанию (DD/MM/YYYY, 24h, UTC).
type utcFormatter struct{}

func (utcFormatter) FormatDate(t time.Time) string     { return t.UTC().Format("02/01/2006") }
func (utcFormatter) FormatTime(t time.Time) string     { return t.UTC().Format("15:04") }
func (utcFormatter) FormatDateTime(t time.Time) string { return t.UTC().Format("02/01/2006 15:04") }
