package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bigkaa/sibo/internal/auth"
	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/domain/rbac"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeSessions — SessionSource по значению заголовка X-Test-Role.
// "bad" имитирует повреждённый токен.
type fakeSessions struct {
	loggedOut bool
}

func (f *fakeSessions) SessionFromRequest(r *http.Request) (*auth.Session, error) {
	switch role := r.Header.Get("X-Test-Role"); role {
	case "":
		return nil, nil
	case "bad":
		return nil, auth.ErrInvalidSession
	default:
		return &auth.Session{UserID: "u-" + role, Role: model.Role(role)}, nil
	}
}

func (f *fakeSessions) Logout(http.ResponseWriter) { f.loggedOut = true }

// newGateHandler возвращает gate поверх обработчика, отвечающего 200 с ID пользователя.
func newGateHandler(sessions *fakeSessions) http.Handler {
	gate := NewAccessGate(rbac.DefaultRules(), sessions, testLogger())
	return gate.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s := SessionFromContext(r.Context()); s != nil {
			_, _ = io.WriteString(w, s.UserID)
		}
	}))
}

// TestAccessGate проверяет порядок решений gate.
func TestAccessGate(t *testing.T) {
	tests := []struct {
		name         string
		method       string
		path         string
		role         string
		wantStatus   int
		wantLocation string
	}{
		{"публичная главная", http.MethodGet, "/", "", http.StatusOK, ""},
		{"вход без сессии", http.MethodGet, "/login", "", http.StatusOK, ""},
		{"вход админа → dashboard", http.MethodGet, "/login", "admin", http.StatusFound, "/admin/dashboard"},
		{"регистрация студента → dashboard", http.MethodGet, "/register", "student", http.StatusFound, "/student/dashboard"},
		{"POST sessions публичен", http.MethodPost, "/api/v1/sessions", "", http.StatusOK, ""},
		{"регистрация API публична", http.MethodPost, "/api/v1/users", "", http.StatusOK, ""},
		{"health публичен", http.MethodGet, "/health/live", "", http.StatusOK, ""},

		{"страница без сессии → login", http.MethodGet, "/student/dashboard?tab=1", "", http.StatusFound,
			"/login?returnUrl=%2Fstudent%2Fdashboard%3Ftab%3D1"},
		{"API без сессии → 401", http.MethodGet, "/api/v1/scholarships", "", http.StatusUnauthorized, ""},
		{"повреждённый токен → 401", http.MethodGet, "/api/v1/me", "bad", http.StatusUnauthorized, ""},

		{"студент в разделе admin", http.MethodGet, "/admin/dashboard", "student", http.StatusFound, "/forbidden"},
		{"студент в API admin", http.MethodGet, "/api/v1/admin/stats", "student", http.StatusForbidden, ""},
		{"админ в разделе student", http.MethodGet, "/student/dashboard", "admin", http.StatusFound, "/forbidden"},
		{"админ в своём разделе", http.MethodGet, "/admin/scholarships", "admin", http.StatusOK, ""},

		{"студент читает стипендии", http.MethodGet, "/api/v1/scholarships", "student", http.StatusOK, ""},
		{"студент меняет стипендию", http.MethodPut, "/api/v1/scholarships/s1", "student", http.StatusForbidden, ""},
		{"студент создаёт стипендию", http.MethodPost, "/api/v1/scholarships", "student", http.StatusForbidden, ""},
		{"студент рассматривает заявку", http.MethodPut, "/api/v1/applications/a1", "student", http.StatusForbidden, ""},
		{"студент проверяет документ", http.MethodPut, "/api/v1/documents/d1", "student", http.StatusForbidden, ""},
		{"студент запрашивает отчёт", http.MethodGet, "/api/v1/reports/scholarships/s1", "student", http.StatusForbidden, ""},
		{"студент подаёт заявку", http.MethodPost, "/api/v1/applications", "student", http.StatusOK, ""},
		{"админ подаёт заявку", http.MethodPost, "/api/v1/applications", "admin", http.StatusForbidden, ""},
		{"админ рассматривает заявку", http.MethodPut, "/api/v1/applications/a1", "admin", http.StatusOK, ""},
		{"админ удаляет стипендию", http.MethodDelete, "/api/v1/scholarships/s1", "admin", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newGateHandler(&fakeSessions{})
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.role != "" {
				req.Header.Set("X-Test-Role", tt.role)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("статус = %d, ожидался %d", rec.Code, tt.wantStatus)
			}
			if tt.wantLocation != "" && rec.Header().Get("Location") != tt.wantLocation {
				t.Errorf("Location = %q, ожидался %q", rec.Header().Get("Location"), tt.wantLocation)
			}
		})
	}
}

// TestAccessGate_ErrorBody проверяет JSON-формат отказов API.
func TestAccessGate_ErrorBody(t *testing.T) {
	h := newGateHandler(&fakeSessions{})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/scholarships/s1", nil)
	req.Header.Set("X-Test-Role", "student")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("тело ответа не JSON: %v", err)
	}
	if body.Error.Code != "FORBIDDEN" || body.Error.Message == "" {
		t.Errorf("тело = %+v", body)
	}
}

// TestAccessGate_InvalidTokenClearsCarriers проверяет сброс cookie при плохом токене.
func TestAccessGate_InvalidTokenClearsCarriers(t *testing.T) {
	sessions := &fakeSessions{}
	h := newGateHandler(sessions)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Test-Role", "bad")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("публичный маршрут с плохим токеном: статус %d", rec.Code)
	}
	if !sessions.loggedOut {
		t.Error("cookie сессии не очищены")
	}
}

// TestAccessGate_SessionInContext проверяет передачу сессии обработчику.
func TestAccessGate_SessionInContext(t *testing.T) {
	h := newGateHandler(&fakeSessions{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-Test-Role", "student")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Body.String() != "u-student" {
		t.Errorf("обработчик получил %q, ожидалась сессия u-student", rec.Body.String())
	}
}

// TestRecoverer проверяет перехват паники.
func TestRecoverer(t *testing.T) {
	h := Recoverer(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("boom"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("статус = %d, ожидался 500", rec.Code)
	}
}
