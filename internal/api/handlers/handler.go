// handler.go — основной обработчик API SIBO.
// Объединяет health и бизнес-обработчики, делегируя запросы в сервисный слой.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/sibo/internal/api/errors"
	"github.com/bigkaa/sibo/internal/api/middleware"
	"github.com/bigkaa/sibo/internal/auth"
	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/service"
)

// maxJSONBody — предел тела JSON-запроса.
const maxJSONBody = 1 << 20

// SessionManager — операции сессий, нужные обработчикам. Реализуется auth.Manager.
type SessionManager interface {
	VerifyCredentials(ctx context.Context, email, password string) (*model.User, error)
	CreateSession(w http.ResponseWriter, user *model.User, extended bool) (*auth.Session, error)
	ExtendSession(w http.ResponseWriter, r *http.Request) (*auth.Session, error)
	CurrentUser(w http.ResponseWriter, r *http.Request) (*model.User, error)
	Logout(w http.ResponseWriter)
}

// Services — сервисный слой, которому делегируют обработчики.
type Services struct {
	Users         *service.UserService
	Scholarships  *service.ScholarshipService
	Applications  *service.ApplicationService
	Documents     *service.DocumentService
	Notifications *service.NotificationService
	Reports       *service.ReportService
	Stats         *service.StatsService
}

// APIHandler — основной обработчик API SIBO.
type APIHandler struct {
	health        *HealthHandler
	sessions      SessionManager
	svc           Services
	maxUploadSize int64
	logger        *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
// maxUploadSize — предел размера загружаемого документа в байтах.
func NewAPIHandler(
	health *HealthHandler,
	sessions SessionManager,
	svc Services,
	maxUploadSize int64,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:        health,
		sessions:      sessions,
		svc:           svc,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON читает тело запроса в v. Ошибка уже записана в ответ.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.TooLarge(w, "Тело запроса слишком большое")
			return false
		}
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return false
	}
	return true
}

// actorFrom возвращает пользователя запроса из сессии в контексте.
// Без сессии записывает 401 и возвращает false.
func actorFrom(w http.ResponseWriter, r *http.Request) (service.Actor, bool) {
	s := middleware.SessionFromContext(r.Context())
	if s == nil {
		apierrors.Unauthorized(w, "Требуется вход в систему")
		return service.Actor{}, false
	}
	return service.Actor{UserID: s.UserID, Role: s.Role}, true
}

// writeServiceError переводит ошибку сервисного слоя в HTTP-ответ.
// Ошибки хранилища и неизвестные ошибки логируются, клиент получает msg.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrStoreIO):
		// Детали хранилища клиенту не передаются
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
		return
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
		return
	case errors.Is(err, service.ErrUnauthenticated):
		apierrors.Unauthorized(w, err.Error())
		return
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, err.Error())
		return
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
		return
	case errors.Is(err, service.ErrTooLarge):
		apierrors.TooLarge(w, err.Error())
		return
	}

	h.logger.Error(msg,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	apierrors.InternalError(w, msg)
}
