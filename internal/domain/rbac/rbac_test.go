package rbac

import (
	"net/http"
	"testing"

	"github.com/bigkaa/sibo/internal/domain/model"
)

// TestIsPublic проверяет публичные маршруты с учётом метода.
func TestIsPublic(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		method string
		path   string
		want   bool
	}{
		{http.MethodGet, "/", true},
		{http.MethodGet, "/login", true},
		{http.MethodGet, "/register/", true},
		{http.MethodPost, "/api/v1/sessions", true},
		{http.MethodDelete, "/api/v1/sessions", true},
		{http.MethodPost, "/api/v1/sessions/extend", false},
		{http.MethodPost, "/api/v1/users", true},
		{http.MethodGet, "/api/v1/users", false},
		{http.MethodGet, "/health/live", true},
		{http.MethodGet, "/health", false},
		{http.MethodGet, "/metrics", true},
		{http.MethodGet, "/api/v1/scholarships", false},
		{http.MethodGet, "/admin/dashboard", false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			if got := rules.IsPublic(tt.method, tt.path); got != tt.want {
				t.Errorf("IsPublic(%s, %s) = %v, ожидалось %v", tt.method, tt.path, got, tt.want)
			}
		})
	}
}

// TestSectionRole проверяет разделы по префиксу.
func TestSectionRole(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		path     string
		wantRole model.Role
		wantOK   bool
	}{
		{"/admin", model.RoleAdmin, true},
		{"/admin/dashboard", model.RoleAdmin, true},
		{"/administrator", "", false},
		{"/api/v1/admin/stats", model.RoleAdmin, true},
		{"/student/dashboard", model.RoleStudent, true},
		{"/api/v1/student/overview", model.RoleStudent, true},
		{"/api/v1/students", "", false},
		{"/api/v1/scholarships", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			role, ok := rules.SectionRole(tt.path)
			if ok != tt.wantOK || role != tt.wantRole {
				t.Errorf("SectionRole(%s) = (%q, %v), ожидалось (%q, %v)", tt.path, role, ok, tt.wantRole, tt.wantOK)
			}
		})
	}
}

// TestOperationRole проверяет операции с ограничением по роли.
func TestOperationRole(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		name     string
		method   string
		path     string
		wantRole model.Role
		wantOK   bool
	}{
		{"список стипендий", http.MethodGet, "/api/v1/scholarships", "", false},
		{"просмотр стипендии", http.MethodGet, "/api/v1/scholarships/abc", "", false},
		{"создание стипендии", http.MethodPost, "/api/v1/scholarships", model.RoleAdmin, true},
		{"изменение стипендии", http.MethodPut, "/api/v1/scholarships/abc", model.RoleAdmin, true},
		{"удаление стипендии", http.MethodDelete, "/api/v1/scholarships/abc", model.RoleAdmin, true},
		{"отчёт", http.MethodGet, "/api/v1/reports/scholarships/abc", model.RoleAdmin, true},
		{"рассмотрение заявки", http.MethodPut, "/api/v1/applications/abc", model.RoleAdmin, true},
		{"просмотр заявки", http.MethodGet, "/api/v1/applications/abc", "", false},
		{"подача заявки", http.MethodPost, "/api/v1/applications", model.RoleStudent, true},
		{"проверка документа", http.MethodPut, "/api/v1/documents/abc", model.RoleAdmin, true},
		{"загрузка документа", http.MethodPost, "/api/v1/documents", model.RoleStudent, true},
		{"уведомления", http.MethodGet, "/api/v1/notifications", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, ok := rules.OperationRole(tt.method, tt.path)
			if ok != tt.wantOK || role != tt.wantRole {
				t.Errorf("OperationRole(%s %s) = (%q, %v), ожидалось (%q, %v)",
					tt.method, tt.path, role, ok, tt.wantRole, tt.wantOK)
			}
		})
	}
}

// TestHomeFor проверяет стартовые страницы ролей.
func TestHomeFor(t *testing.T) {
	if HomeFor(model.RoleAdmin) != AdminDashboard {
		t.Errorf("HomeFor(admin) = %q", HomeFor(model.RoleAdmin))
	}
	if HomeFor(model.RoleStudent) != StudentDashboard {
		t.Errorf("HomeFor(student) = %q", HomeFor(model.RoleStudent))
	}
}

// TestIsAPI проверяет классификацию API-запросов.
func TestIsAPI(t *testing.T) {
	if !IsAPI("/api/v1/me") {
		t.Error("/api/v1/me — API-запрос")
	}
	if IsAPI("/admin/dashboard") || IsAPI("/apis") {
		t.Error("страницы интерфейса не являются API-запросами")
	}
}
