package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bigkaa/docvault/admin-module/internal/service"
	"github.com/bigkaa/docvault/admin-module/internal/ui/components"
)

// tenantLocation — часовой пояс арендатора из настроек запроса.
func tenantLocation(ctx context.Context) *time.Location {
	loc, err := time.LoadLocation(components.SettingsFromContext(ctx).Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// parseEndOfDay разбирает дату из поля type="date" (YYYY-MM-DD) как конец
// этого дня в часовом поясе арендатора. Пустое значение — nil.
func parseEndOfDay(ctx context.Context, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	day, err := time.ParseInLocation(time.DateOnly, value, tenantLocation(ctx))
	if err != nil {
		return nil, fmt.Errorf("некорректная дата %q", value)
	}
	end := day.AddDate(0, 0, 1).Add(-time.Second)
	return &end, nil
}

// parseOptionalInt разбирает необязательное целое. Пустое значение — nil.
func parseOptionalInt(value string) (*int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("некорректное число %q", value)
	}
	return &n, nil
}

// checkbox — значение флажка формы.
func checkbox(value string) bool {
	return value == "true" || value == "on"
}

// formInt разбирает обязательное целое поле формы.
func formInt(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue(name)))
	if err != nil {
		return 0, fmt.Errorf("%w: поле %s должно быть целым числом", service.ErrValidation, name)
	}
	return n, nil
}
