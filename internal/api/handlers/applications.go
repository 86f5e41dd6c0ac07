// applications.go — обработчики /api/v1/applications.
// Студент подаёт и видит свои заявки, администратор видит все и выносит решения.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/repository"
	"github.com/bigkaa/sibo/internal/service"
)

// reviewRequest — решение администратора по заявке или документу.
type reviewRequest struct {
	Status model.ReviewStatus `json:"status"`
	Note   string             `json:"note"`
}

// ListApplications — GET /api/v1/applications?status=&scholarshipId=.
func (h *APIHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	list, err := h.svc.Applications.List(r.Context(), actor, repository.ApplicationFilter{
		ScholarshipID: q.Get("scholarshipId"),
		Status:        model.ReviewStatus(q.Get("status")),
	})
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка получения списка заявок")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// SubmitApplication — POST /api/v1/applications.
func (h *APIHandler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req service.ApplyInput
	if !decodeJSON(w, r, &req) {
		return
	}

	app, err := h.svc.Applications.Submit(r.Context(), actor, req)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка подачи заявки")
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

// GetApplication — GET /api/v1/applications/{id}. Владелец или администратор.
func (h *APIHandler) GetApplication(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	app, err := h.svc.Applications.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка получения заявки")
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// ReviewApplication — PUT /api/v1/applications/{id}.
func (h *APIHandler) ReviewApplication(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req reviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	app, err := h.svc.Applications.Review(r.Context(), actor, chi.URLParam(r, "id"), req.Status, req.Note)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка рассмотрения заявки")
		return
	}
	writeJSON(w, http.StatusOK, app)
}
