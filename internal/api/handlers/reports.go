// reports.go — обработчики отчётов и сводной статистики.
// /api/v1/reports/scholarships/{id} — PDF-отчёт по заявкам программы.
// /api/v1/admin/stats, /api/v1/student/overview — счётчики для панелей.
package handlers

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// ScholarshipReport — GET /api/v1/reports/scholarships/{id}?status=.
// status: pending, accepted, rejected, all (по умолчанию все).
func (h *APIHandler) ScholarshipReport(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	rep, err := h.svc.Reports.ScholarshipReport(r.Context(), actor, chi.URLParam(r, "id"), r.URL.Query().Get("status"))
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка формирования отчёта")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": rep.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(rep.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rep.Content)
}

// AdminStats — GET /api/v1/admin/stats.
func (h *APIHandler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats.Admin(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка получения статистики")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// StudentOverview — GET /api/v1/student/overview.
func (h *APIHandler) StudentOverview(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	overview, err := h.svc.Stats.Student(r.Context(), actor)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка получения сводки")
		return
	}
	writeJSON(w, http.StatusOK, overview)
}
