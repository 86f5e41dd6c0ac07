// scholarships.go — обработчики /api/v1/scholarships.
// Чтение доступно любой сессии, изменение — администратору.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/service"
)

// ListScholarships — GET /api/v1/scholarships?status=.
func (h *APIHandler) ListScholarships(w http.ResponseWriter, r *http.Request) {
	status := model.ScholarshipStatus(r.URL.Query().Get("status"))

	list, err := h.svc.Scholarships.List(r.Context(), status)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка получения списка программ")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetScholarship — GET /api/v1/scholarships/{id}.
func (h *APIHandler) GetScholarship(w http.ResponseWriter, r *http.Request) {
	sch, err := h.svc.Scholarships.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка получения программы")
		return
	}
	writeJSON(w, http.StatusOK, sch)
}

// CreateScholarship — POST /api/v1/scholarships.
func (h *APIHandler) CreateScholarship(w http.ResponseWriter, r *http.Request) {
	var req service.ScholarshipInput
	if !decodeJSON(w, r, &req) {
		return
	}

	sch, err := h.svc.Scholarships.Create(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка создания программы")
		return
	}
	writeJSON(w, http.StatusCreated, sch)
}

// UpdateScholarship — PUT /api/v1/scholarships/{id}. Частичное обновление.
func (h *APIHandler) UpdateScholarship(w http.ResponseWriter, r *http.Request) {
	var req service.ScholarshipPatch
	if !decodeJSON(w, r, &req) {
		return
	}

	sch, err := h.svc.Scholarships.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка обновления программы")
		return
	}
	writeJSON(w, http.StatusOK, sch)
}

// DeleteScholarship — DELETE /api/v1/scholarships/{id}.
func (h *APIHandler) DeleteScholarship(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Scholarships.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err, "Ошибка удаления программы")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
