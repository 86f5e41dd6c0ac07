// Пакет auth — управление сессиями пользователей SIBO.
// Сессия — подписанный токен (JWT HS256) в httpOnly cookie. Второй cookie
// с временем истечения доступен клиентскому коду и не даёт никаких прав.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/crypto/bcrypt"

	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/repository"
)

// Имена cookie сессии.
const (
	SessionCookieName = "sibo_session"
	ExpiryCookieName  = "sibo_session_expiry"
)

// Время жизни сессии.
const (
	StandardLifetime = 24 * time.Hour
	ExtendedLifetime = 7 * 24 * time.Hour
)

// issuer — значение iss в токенах сессии.
const issuer = "sibo"

// Значения claim lifetime.
const (
	lifetimeStandard = "standard"
	lifetimeExtended = "extended"
)

var (
	// ErrInvalidCredentials — неверный email или пароль. Не уточняет, что именно.
	ErrInvalidCredentials = errors.New("неверный email или пароль")
	// ErrNoSession — активная сессия отсутствует.
	ErrNoSession = errors.New("сессия отсутствует")
	// ErrInvalidSession — токен сессии повреждён, подделан или истёк.
	ErrInvalidSession = errors.New("недействительная сессия")
)

var (
	sessionsIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sibo_sessions_issued_total",
			Help: "Количество выданных токенов сессии",
		},
		[]string{"kind"},
	)
	loginFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sibo_login_failures_total",
		Help: "Количество неудачных попыток входа",
	})
)

// Session — проверенная сессия из токена.
type Session struct {
	UserID    string
	Role      model.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
	// Extended — сессия создана с «запомнить меня».
	Extended bool
}

// Lifetime возвращает время жизни сессии.
func (s *Session) Lifetime() time.Duration {
	if s.Extended {
		return ExtendedLifetime
	}
	return StandardLifetime
}

// sessionClaims — содержимое токена сессии.
type sessionClaims struct {
	Role     string `json:"role"`
	Lifetime string `json:"lifetime"`
	jwt.RegisteredClaims
}

// UserLookup — источник пользователей для проверки учётных данных.
// Отсутствие пользователя — repository.ErrNotFound.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// Options — параметры Manager.
type Options struct {
	// Secret — ключ подписи. base64 от 32 байт используется как есть,
	// иная строка хешируется SHA-256, пустая — случайный ключ.
	Secret string
	// Secure — флаг Secure для cookie.
	Secure bool
	// BcryptCost — стоимость bcrypt (0 — bcrypt.DefaultCost).
	BcryptCost int
	// Now — источник времени (nil — time.Now).
	Now func() time.Time
}

// Manager — менеджер сессий.
type Manager struct {
	users     UserLookup
	key       []byte
	secure    bool
	cost      int
	now       func() time.Time
	dummyHash []byte
	logger    *slog.Logger
}

// NewManager создаёт менеджер сессий.
func NewManager(users UserLookup, opts Options, logger *slog.Logger) (*Manager, error) {
	key, err := deriveKey(opts.Secret)
	if err != nil {
		return nil, err
	}

	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	// Хеш для сравнения при неизвестном email: время ответа не зависит
	// от существования учётной записи.
	dummy, err := bcrypt.GenerateFromPassword([]byte("sibo-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации фиктивного хеша: %w", err)
	}

	return &Manager{
		users:     users,
		key:       key,
		secure:    opts.Secure,
		cost:      cost,
		now:       now,
		dummyHash: dummy,
		logger:    logger.With(slog.String("component", "session_manager")),
	}, nil
}

// HashPassword хеширует пароль bcrypt с настроенной стоимостью.
func (m *Manager) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		return "", fmt.Errorf("ошибка хеширования пароля: %w", err)
	}
	return string(hash), nil
}

// VerifyCredentials проверяет email и пароль. При любой ошибке учётных
// данных возвращает ErrInvalidCredentials.
func (m *Manager) VerifyCredentials(ctx context.Context, email, password string) (*model.User, error) {
	user, err := m.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(m.dummyHash, []byte(password))
			loginFailuresTotal.Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		loginFailuresTotal.Inc()
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// CreateSession выдаёт новую сессию и записывает cookie в ответ.
// extended — «запомнить меня»: 7 дней вместо 24 часов.
func (m *Manager) CreateSession(w http.ResponseWriter, user *model.User, extended bool) (*Session, error) {
	now := m.now()
	lifetime := StandardLifetime
	if extended {
		lifetime = ExtendedLifetime
	}

	s := &Session{
		UserID:    user.ID,
		Role:      user.Role,
		IssuedAt:  now.Truncate(time.Second),
		ExpiresAt: now.Add(lifetime).Truncate(time.Second),
		Extended:  extended,
	}
	if err := m.issue(w, s); err != nil {
		return nil, err
	}

	kind := lifetimeStandard
	if extended {
		kind = lifetimeExtended
	}
	sessionsIssuedTotal.WithLabelValues(kind).Inc()

	m.logger.Debug("Сессия создана",
		slog.String("user_id", s.UserID),
		slog.String("role", string(s.Role)),
		slog.Time("expires_at", s.ExpiresAt),
	)
	return s, nil
}

// SessionFromRequest извлекает и проверяет сессию из cookie или
// заголовка Authorization: Bearer. Возвращает nil, nil если носителя нет.
func (m *Manager) SessionFromRequest(r *http.Request) (*Session, error) {
	token := tokenFromRequest(r)
	if token == "" {
		return nil, nil
	}
	return m.parse(token)
}

// CurrentUser возвращает пользователя активной сессии. Если сессия
// недействительна или пользователь удалён — cookie очищаются, nil, nil.
func (m *Manager) CurrentUser(w http.ResponseWriter, r *http.Request) (*model.User, error) {
	s, err := m.SessionFromRequest(r)
	if err != nil {
		m.Logout(w)
		return nil, nil
	}
	if s == nil {
		return nil, nil
	}

	user, err := m.users.GetByID(r.Context(), s.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			m.logger.Info("Пользователь сессии не найден, сессия сброшена",
				slog.String("user_id", s.UserID),
			)
			m.Logout(w)
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// ExtendSession перевыпускает активную сессию с той же личностью и ролью.
// Новое время истечения строго больше прежнего.
func (m *Manager) ExtendSession(w http.ResponseWriter, r *http.Request) (*Session, error) {
	current, err := m.SessionFromRequest(r)
	if err != nil || current == nil {
		return nil, ErrNoSession
	}

	now := m.now()
	expires := now.Add(current.Lifetime()).Truncate(time.Second)
	if !expires.After(current.ExpiresAt) {
		expires = current.ExpiresAt.Add(time.Second)
	}

	s := &Session{
		UserID:    current.UserID,
		Role:      current.Role,
		IssuedAt:  now.Truncate(time.Second),
		ExpiresAt: expires,
		Extended:  current.Extended,
	}
	if err := m.issue(w, s); err != nil {
		return nil, err
	}
	sessionsIssuedTotal.WithLabelValues("renewal").Inc()
	return s, nil
}

// Logout очищает оба cookie сессии. Вызов без сессии безопасен.
func (m *Manager) Logout(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     ExpiryCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// HasRole проверяет роль по носителю сессии, без обращения к хранилищу.
func (m *Manager) HasRole(r *http.Request, role model.Role) bool {
	s, err := m.SessionFromRequest(r)
	if err != nil || s == nil {
		return false
	}
	return s.Role == role
}

// issue подписывает токен и записывает cookie.
func (m *Manager) issue(w http.ResponseWriter, s *Session) error {
	lifetime := lifetimeStandard
	if s.Extended {
		lifetime = lifetimeExtended
	}

	claims := sessionClaims{
		Role:     string(s.Role),
		Lifetime: lifetime,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return fmt.Errorf("ошибка подписи токена сессии: %w", err)
	}

	maxAge := int(s.ExpiresAt.Sub(m.now()).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     ExpiryCookieName,
		Value:    s.ExpiresAt.UTC().Format(time.RFC3339),
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// parse проверяет подпись, издателя и срок действия токена.
func (m *Manager) parse(token string) (*Session, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return m.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	role := model.Role(claims.Role)
	if claims.Subject == "" || !role.Valid() {
		return nil, fmt.Errorf("%w: отсутствует sub или role", ErrInvalidSession)
	}

	s := &Session{
		UserID:    claims.Subject,
		Role:      role,
		ExpiresAt: claims.ExpiresAt.Time,
		Extended:  claims.Lifetime == lifetimeExtended,
	}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	return s, nil
}

// tokenFromRequest извлекает токен из cookie, затем из Authorization.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// deriveKey получает ключ подписи из строки конфигурации.
func deriveKey(secret string) ([]byte, error) {
	if secret == "" {
		key := make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			return nil, fmt.Errorf("ошибка генерации ключа сессии: %w", err)
		}
		return key, nil
	}

	if key, err := base64.StdEncoding.DecodeString(secret); err == nil && len(key) == 32 {
		return key, nil
	}
	h := sha256.Sum256([]byte(secret))
	return h[:], nil
}
