// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bigkaa/docvault/admin-module/internal/backend"
)

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrUnauthorized — сессия истекла или токен отклонён backend.
	ErrUnauthorized = errors.New("требуется повторный вход")
	// ErrForbidden — недостаточно прав.
	ErrForbidden = errors.New("недостаточно прав")
	// ErrBackendUnavailable — backend недоступен или вернул ошибку сервера.
	ErrBackendUnavailable = errors.New("backend недоступен")
	// ErrNothingToExport — нет записей для экспорта.
	ErrNothingToExport = errors.New("нет данных для экспорта")
	// ErrStale — ответ относится к устаревшему запросу и отброшен.
	ErrStale = errors.New("устаревший ответ")
)

// mapBackendError переводит ошибку backend-клиента в ошибку сервисного слоя.
// Текст ответа backend сохраняется в сообщении.
func mapBackendError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var httpErr *backend.HTTPError
	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	case errors.Is(err, backend.ErrForbidden):
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	case errors.Is(err, backend.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.As(err, &httpErr):
		if httpErr.StatusCode == http.StatusBadRequest ||
			httpErr.StatusCode == http.StatusConflict ||
			httpErr.StatusCode == http.StatusUnprocessableEntity {
			return fmt.Errorf("%w: %s", ErrValidation, httpErr.Message())
		}
		return fmt.Errorf("%s: %w: %s", op, ErrBackendUnavailable, httpErr.Message())
	default:
		return fmt.Errorf("%s: %w: %v", op, ErrBackendUnavailable, err)
	}
}

// validationf формирует ошибку валидации с сообщением.
func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
