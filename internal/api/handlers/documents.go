// documents.go — обработчики /api/v1/documents.
// Загрузка PDF (multipart), список, скачивание и проверка документов.
package handlers

import (
	"errors"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/sibo/internal/api/errors"
	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/repository"
	"github.com/bigkaa/sibo/internal/service"
)

const (
	// multipartOverhead — запас на поля формы и границы multipart сверх размера файла.
	multipartOverhead = 64 << 10
	// multipartMemory — часть формы в памяти, остальное во временных файлах.
	multipartMemory = 1 << 20
)

// UploadDocument — POST /api/v1/documents.
// multipart/form-data: applicationId, type, file.
func (h *APIHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.TooLarge(w, "Файл превышает допустимый размер")
			return
		}
		apierrors.ValidationError(w, "Некорректная multipart-форма: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Файл обязателен")
		return
	}
	defer file.Close()

	doc, err := h.svc.Documents.Upload(r.Context(), actor, service.UploadInput{
		ApplicationID: r.FormValue("applicationId"),
		Type:          model.DocumentType(r.FormValue("type")),
		FileName:      header.Filename,
		Content:       file,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка загрузки документа")
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// ListDocuments — GET /api/v1/documents?userId=&applicationId=&status=&type=.
func (h *APIHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	list, err := h.svc.Documents.List(r.Context(), actor, repository.DocumentFilter{
		UserID:        q.Get("userId"),
		ApplicationID: q.Get("applicationId"),
		Type:          model.DocumentType(q.Get("type")),
		Status:        model.ReviewStatus(q.Get("status")),
	})
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка получения списка документов")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// DownloadDocument — GET /api/v1/documents/{id}/file. Владелец или администратор.
func (h *APIHandler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	doc, f, err := h.svc.Documents.Open(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка получения файла документа")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": doc.FileName}))
	http.ServeContent(w, r, doc.FileName, doc.CreatedAt, f)
}

// VerifyDocument — PUT /api/v1/documents/{id}.
func (h *APIHandler) VerifyDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req reviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	doc, err := h.svc.Documents.Verify(r.Context(), actor, chi.URLParam(r, "id"), req.Status, req.Note)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка проверки документа")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
