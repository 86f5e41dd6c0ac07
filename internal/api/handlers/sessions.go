// sessions.go — обработчики /api/v1/sessions, /api/v1/me и /api/v1/users.
// Вход, продление и завершение сессии, профиль и регистрация студента.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apierrors "github.com/bigkaa/sibo/internal/api/errors"
	"github.com/bigkaa/sibo/internal/auth"
	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/domain/rbac"
	"github.com/bigkaa/sibo/internal/service"
)

// loginRequest — тело POST /api/v1/sessions.
type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// loginResponse — ответ успешного входа.
type loginResponse struct {
	User       model.Profile `json:"user"`
	RedirectTo string        `json:"redirectTo"`
	ExpiresAt  time.Time     `json:"expiresAt"`
}

// sessionResponse — ответ продления сессии.
type sessionResponse struct {
	ExpiresAt time.Time `json:"expiresAt"`
}

// statusResponse — ответ операций без тела.
type statusResponse struct {
	Status string `json:"status"`
}

// Login — POST /api/v1/sessions.
// Проверяет учётные данные и выдаёт cookie сессии.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		apierrors.ValidationError(w, "Email и пароль обязательны")
		return
	}

	user, err := h.sessions.VerifyCredentials(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			apierrors.Unauthorized(w, "Неверный email или пароль")
			return
		}
		h.logger.Error("Ошибка проверки учётных данных", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка входа")
		return
	}

	s, err := h.sessions.CreateSession(w, user, req.RememberMe)
	if err != nil {
		h.logger.Error("Ошибка создания сессии",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Ошибка входа")
		return
	}

	h.logger.Info("Вход выполнен",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
		slog.Bool("remember_me", req.RememberMe),
	)

	writeJSON(w, http.StatusOK, loginResponse{
		User:       user.Profile(),
		RedirectTo: rbac.HomeFor(user.Role),
		ExpiresAt:  s.ExpiresAt,
	})
}

// ExtendSession — POST /api/v1/sessions/extend.
// Перевыпускает активную сессию с новым временем истечения.
func (h *APIHandler) ExtendSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.ExtendSession(w, r)
	if err != nil {
		if errors.Is(err, auth.ErrNoSession) {
			apierrors.Unauthorized(w, "Активная сессия отсутствует")
			return
		}
		h.logger.Error("Ошибка продления сессии", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка продления сессии")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ExpiresAt: s.ExpiresAt})
}

// Logout — DELETE /api/v1/sessions. Без сессии тоже 200.
func (h *APIHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	h.sessions.Logout(w)
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// GetMe — GET /api/v1/me. Профиль пользователя сессии.
func (h *APIHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessions.CurrentUser(w, r)
	if err != nil {
		h.logger.Error("Ошибка получения пользователя сессии", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка получения профиля")
		return
	}
	if user == nil {
		apierrors.Unauthorized(w, "Требуется вход в систему")
		return
	}
	writeJSON(w, http.StatusOK, user.Profile())
}

// RegisterUser — POST /api/v1/users. Регистрация студента.
func (h *APIHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.svc.Users.Register(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка регистрации")
		return
	}
	writeJSON(w, http.StatusCreated, user.Profile())
}
