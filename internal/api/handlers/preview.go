// preview.go — POST /api/v1/email-templates/preview: подстановка данных
// предпросмотра в тему и тело шаблона.
package handlers

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/bigkaa/docvault/admin-module/internal/api/errors"
)

// maxPreviewBody — предел тела запроса предпросмотра.
const maxPreviewBody = 256 << 10

type previewRequest struct {
	Subject   string   `json:"subject"`
	Body      string   `json:"body"`
	Variables []string `json:"variables"`
}

type previewResponse struct {
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	Undeclared []string `json:"undeclared"`
}

// PreviewTemplate — POST /api/v1/email-templates/preview. Доступ: manager.
func (h *APIHandler) PreviewTemplate(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPreviewBody)).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}
	if req.Subject == "" && req.Body == "" {
		apierrors.ValidationError(w, "Нужно указать subject или body")
		return
	}

	p := h.templates.Preview(r.Context(), req.Subject, req.Body, req.Variables)
	undeclared := p.Undeclared
	if undeclared == nil {
		undeclared = []string{}
	}
	writeJSON(w, http.StatusOK, previewResponse{
		Subject:    p.Subject,
		Body:       p.Body,
		Undeclared: undeclared,
	})
}
