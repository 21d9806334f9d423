// audit.go — GET /api/v1/audit: журнал действий администраторов.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/docvault/admin-module/internal/api/errors"
)

type auditEntryResponse struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actor_id"`
	ActorName  string    `json:"actor_name"`
	Action     string    `json:"action"`
	TargetType string    `json:"target_type"`
	TargetID   string    `json:"target_id"`
	Details    string    `json:"details,omitempty"`
	Success    bool      `json:"success"`
	CreatedAt  time.Time `json:"created_at"`
}

type auditListResponse struct {
	Items   []auditEntryResponse `json:"items"`
	Total   int                  `json:"total"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
	HasMore bool                 `json:"has_more"`
}

// ListAudit — GET /api/v1/audit?target_type=&limit=&offset=. Доступ: admin.
func (h *APIHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)

	entries, total, err := h.audit.List(r.Context(), r.URL.Query().Get("target_type"), limit, offset)
	if err != nil {
		h.logger.Error("Ошибка чтения журнала действий", slog.String("error", err.Error()))
		apierrors.FromService(w, err)
		return
	}

	items := make([]auditEntryResponse, len(entries))
	for i, e := range entries {
		items[i] = auditEntryResponse{
			ID:         e.ID,
			ActorID:    e.ActorID,
			ActorName:  e.ActorName,
			Action:     e.Action,
			TargetType: e.TargetType,
			TargetID:   e.TargetID,
			Details:    e.Details,
			Success:    e.Success,
			CreatedAt:  e.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, auditListResponse{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+len(items) < total,
	})
}
