// Пакет rbac — правила доступа к маршрутам SIBO.
// Описывает публичные маршруты, префиксы разделов по ролям и
// отдельные API-операции, доступные только одной роли.
// Решения принимает middleware.AccessGate, здесь только данные и сопоставление.
package rbac

import (
	"net/http"
	"strings"

	"github.com/bigkaa/sibo/internal/domain/model"
)

// APIPrefix — префикс всех JSON API маршрутов.
const APIPrefix = "/api/"

// Страницы интерактивного интерфейса, на которые ссылается gate.
const (
	LoginPage        = "/login"
	RegisterPage     = "/register"
	ForbiddenPage    = "/forbidden"
	AdminDashboard   = "/admin/dashboard"
	StudentDashboard = "/student/dashboard"
)

// MatchKind — способ сопоставления пути.
type MatchKind int

const (
	// MatchExact — путь совпадает полностью.
	MatchExact MatchKind = iota
	// MatchTree — путь совпадает или является вложенным (/a, /a/b).
	MatchTree
	// MatchChildren — только вложенные пути (/a/b, но не /a).
	MatchChildren
)

// Route — маршрут: метод (пустой — любой) и путь.
type Route struct {
	Methods []string
	Path    string
	Match   MatchKind
}

// Matches проверяет, подходит ли запрос под маршрут.
func (rt Route) Matches(method, path string) bool {
	if len(rt.Methods) > 0 && !containsMethod(rt.Methods, method) {
		return false
	}
	return matchPath(rt.Match, rt.Path, path)
}

// Rule — маршрут, требующий определённой роли.
type Rule struct {
	Route
	Role model.Role
}

// Rules — набор правил доступа.
type Rules struct {
	// Public — маршруты без аутентификации.
	Public []Route
	// Sections — разделы по префиксу пути (интерфейс и API).
	Sections []Rule
	// Operations — отдельные API-операции с ограничением по роли.
	Operations []Rule
}

// DefaultRules возвращает правила доступа SIBO.
func DefaultRules() Rules {
	return Rules{
		Public: []Route{
			{Methods: []string{http.MethodGet}, Path: "/", Match: MatchExact},
			{Methods: []string{http.MethodGet}, Path: LoginPage, Match: MatchExact},
			{Methods: []string{http.MethodGet}, Path: RegisterPage, Match: MatchExact},
			{Methods: []string{http.MethodPost, http.MethodDelete}, Path: "/api/v1/sessions", Match: MatchExact},
			{Methods: []string{http.MethodPost}, Path: "/api/v1/users", Match: MatchExact},
			{Methods: []string{http.MethodGet}, Path: "/health", Match: MatchChildren},
			{Methods: []string{http.MethodGet}, Path: "/metrics", Match: MatchExact},
		},
		Sections: []Rule{
			{Route: Route{Path: "/admin", Match: MatchTree}, Role: model.RoleAdmin},
			{Route: Route{Path: "/api/v1/admin", Match: MatchTree}, Role: model.RoleAdmin},
			{Route: Route{Path: "/student", Match: MatchTree}, Role: model.RoleStudent},
			{Route: Route{Path: "/api/v1/student", Match: MatchTree}, Role: model.RoleStudent},
		},
		Operations: []Rule{
			{
				Route: Route{
					Methods: []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
					Path:    "/api/v1/scholarships", Match: MatchTree,
				},
				Role: model.RoleAdmin,
			},
			{Route: Route{Path: "/api/v1/reports", Match: MatchTree}, Role: model.RoleAdmin},
			{
				Route: Route{Methods: []string{http.MethodPut}, Path: "/api/v1/applications", Match: MatchChildren},
				Role:  model.RoleAdmin,
			},
			{
				Route: Route{Methods: []string{http.MethodPut}, Path: "/api/v1/documents", Match: MatchChildren},
				Role:  model.RoleAdmin,
			},
			{
				Route: Route{Methods: []string{http.MethodPost}, Path: "/api/v1/applications", Match: MatchExact},
				Role:  model.RoleStudent,
			},
			{
				Route: Route{Methods: []string{http.MethodPost}, Path: "/api/v1/documents", Match: MatchExact},
				Role:  model.RoleStudent,
			},
		},
	}
}

// IsPublic — маршрут доступен без сессии.
func (r Rules) IsPublic(method, path string) bool {
	for _, rt := range r.Public {
		if rt.Matches(method, path) {
			return true
		}
	}
	return false
}

// SectionRole возвращает роль, требуемую разделом, к которому относится путь.
func (r Rules) SectionRole(path string) (model.Role, bool) {
	for _, rule := range r.Sections {
		if matchPath(rule.Match, rule.Path, path) {
			return rule.Role, true
		}
	}
	return "", false
}

// OperationRole возвращает роль, требуемую API-операцией.
func (r Rules) OperationRole(method, path string) (model.Role, bool) {
	for _, rule := range r.Operations {
		if rule.Matches(method, path) {
			return rule.Role, true
		}
	}
	return "", false
}

// IsAPI — запрос к JSON API (ответы об ошибках — JSON, а не редиректы).
func IsAPI(path string) bool {
	return strings.HasPrefix(path, APIPrefix)
}

// IsAuthPage — страницы входа и регистрации.
func IsAuthPage(path string) bool {
	return path == LoginPage || path == RegisterPage
}

// HomeFor возвращает стартовую страницу роли.
func HomeFor(role model.Role) string {
	if role == model.RoleAdmin {
		return AdminDashboard
	}
	return StudentDashboard
}

// matchPath сопоставляет путь с шаблоном. Завершающий слэш запроса игнорируется.
func matchPath(kind MatchKind, pattern, path string) bool {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	switch kind {
	case MatchExact:
		return path == pattern
	case MatchTree:
		return path == pattern || strings.HasPrefix(path, pattern+"/")
	case MatchChildren:
		return strings.HasPrefix(path, pattern+"/")
	}
	return false
}

// containsMethod проверяет наличие метода в списке.
func containsMethod(methods []string, method string) bool {
	for _, m := range methods {
		if m == method {
			return true
		}
	}
	return false
}
