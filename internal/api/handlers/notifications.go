// notifications.go — обработчики /api/v1/notifications.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/sibo/internal/api/errors"
)

// ListNotifications — GET /api/v1/notifications?unread=.
// Только уведомления пользователя сессии, новые первыми.
func (h *APIHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	unreadOnly := false
	if v := r.URL.Query().Get("unread"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			apierrors.ValidationError(w, "Параметр unread должен быть true или false")
			return
		}
		unreadOnly = b
	}

	list, err := h.svc.Notifications.List(r.Context(), actor, unreadOnly)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка получения уведомлений")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// MarkNotificationRead — POST /api/v1/notifications/{id}/read.
func (h *APIHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	n, err := h.svc.Notifications.MarkRead(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка обновления уведомления")
		return
	}
	writeJSON(w, http.StatusOK, n)
}
