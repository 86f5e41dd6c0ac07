// gate.go — middleware контроля доступа SIBO.
// Проверяет сессию из cookie или Bearer-токена, применяет правила rbac
// и помещает сессию в контекст запроса для downstream handlers.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apierrors "github.com/bigkaa/sibo/internal/api/errors"
	"github.com/bigkaa/sibo/internal/auth"
	"github.com/bigkaa/sibo/internal/domain/rbac"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeySession — проверенная сессия в контексте запроса.
	ContextKeySession contextKey = "session"
	// contextKeyHolder — holder сессии для RequestLogger.
	contextKeyHolder contextKey = "session_holder"
)

// sessionHolder передаёт сессию из gate обратно во внешний RequestLogger.
type sessionHolder struct {
	session *auth.Session
}

func withSessionHolder(ctx context.Context, h *sessionHolder) context.Context {
	return context.WithValue(ctx, contextKeyHolder, h)
}

// gateDecisionsTotal — решения gate по типам.
var gateDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sibo_gate_decisions_total",
		Help: "Количество решений контроля доступа",
	},
	[]string{"decision"},
)

// SessionFromContext возвращает сессию из контекста (nil для публичных маршрутов без сессии).
func SessionFromContext(ctx context.Context) *auth.Session {
	s, _ := ctx.Value(ContextKeySession).(*auth.Session)
	return s
}

// WithSession помещает сессию в контекст.
func WithSession(ctx context.Context, s *auth.Session) context.Context {
	return context.WithValue(ctx, ContextKeySession, s)
}

// SessionSource — источник сессии из запроса. Реализуется auth.Manager.
type SessionSource interface {
	SessionFromRequest(r *http.Request) (*auth.Session, error)
	Logout(w http.ResponseWriter)
}

// AccessGate — проверка доступа перед маршрутизацией.
type AccessGate struct {
	rules    rbac.Rules
	sessions SessionSource
	logger   *slog.Logger
}

// NewAccessGate создаёт gate с указанными правилами.
func NewAccessGate(rules rbac.Rules, sessions SessionSource, logger *slog.Logger) *AccessGate {
	return &AccessGate{
		rules:    rules,
		sessions: sessions,
		logger:   logger.With(slog.String("component", "access_gate")),
	}
}

// Middleware возвращает HTTP middleware контроля доступа.
// Порядок: сессия → публичные маршруты → аутентификация → разделы → API-операции.
func (g *AccessGate) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			api := rbac.IsAPI(path)

			session, err := g.sessions.SessionFromRequest(r)
			if err != nil {
				g.logger.Debug("Недействительный токен сессии",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				// Повреждённый или истёкший токен не должен приходить повторно
				g.sessions.Logout(w)
				session = nil
			}
			if h, ok := r.Context().Value(contextKeyHolder).(*sessionHolder); ok {
				h.session = session
			}

			if g.rules.IsPublic(r.Method, path) {
				if session != nil && rbac.IsAuthPage(path) {
					gateDecisionsTotal.WithLabelValues("redirect_home").Inc()
					http.Redirect(w, r, rbac.HomeFor(session.Role), http.StatusFound)
					return
				}
				gateDecisionsTotal.WithLabelValues("public").Inc()
				next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
				return
			}

			if session == nil {
				gateDecisionsTotal.WithLabelValues("unauthenticated").Inc()
				if api {
					apierrors.Unauthorized(w, "Требуется вход в систему")
					return
				}
				http.Redirect(w, r, loginURL(r), http.StatusFound)
				return
			}

			if role, ok := g.rules.SectionRole(path); ok && session.Role != role {
				g.deny(w, r, api, session)
				return
			}

			if api {
				if role, ok := g.rules.OperationRole(r.Method, path); ok && session.Role != role {
					g.deny(w, r, api, session)
					return
				}
			}

			gateDecisionsTotal.WithLabelValues("allow").Inc()
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// deny отвечает отказом в доступе: JSON 403 для API, редирект для интерфейса.
func (g *AccessGate) deny(w http.ResponseWriter, r *http.Request, api bool, s *auth.Session) {
	gateDecisionsTotal.WithLabelValues("forbidden").Inc()
	g.logger.Info("Доступ запрещён",
		slog.String("user_id", s.UserID),
		slog.String("role", string(s.Role)),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	if api {
		apierrors.Forbidden(w, "Недостаточно прав для выполнения операции")
		return
	}
	http.Redirect(w, r, rbac.ForbiddenPage, http.StatusFound)
}

// loginURL формирует адрес страницы входа с возвратом на исходный путь.
func loginURL(r *http.Request) string {
	q := url.Values{}
	q.Set("returnUrl", r.URL.RequestURI())
	return rbac.LoginPage + "?" + q.Encode()
}
