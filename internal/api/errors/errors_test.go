package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bigkaa/docvault/admin-module/internal/service"
)

func TestWriteError_Format(t *testing.T) {
	rec := httptest.NewRecorder()
	NotFound(rec, "шаблон не найден")

	if rec.Code != http.StatusNotFound {
		t.Errorf("статус %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Code != CodeNotFound || body.Error.Message != "шаблон не найден" {
		t.Errorf("тело: %+v", body)
	}
}

func TestFromService(t *testing.T) {
	tests := []struct {
		err  error
		want int
		code string
	}{
		{fmt.Errorf("%w: тема пуста", service.ErrValidation), http.StatusBadRequest, CodeValidationError},
		{service.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{service.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
		{service.ErrForbidden, http.StatusForbidden, CodeForbidden},
		{fmt.Errorf("list: %w", service.ErrBackendUnavailable), http.StatusBadGateway, CodeBackendUnavailable},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			FromService(rec, tt.err)
			if rec.Code != tt.want {
				t.Errorf("статус %d, ожидался %d", rec.Code, tt.want)
			}
			var body errorBody
			_ = json.NewDecoder(rec.Body).Decode(&body)
			if body.Error.Code != tt.code {
				t.Errorf("code = %q, ожидался %q", body.Error.Code, tt.code)
			}
		})
	}
}
