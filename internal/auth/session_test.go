package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/repository"
)

// fakeUsers — in-memory UserLookup для тестов.
type fakeUsers struct {
	byID map[string]*model.User
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

// testClock — управляемое время.
type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestManager создаёт менеджер с одним студентом (пароль "rahasia123").
func newTestManager(t *testing.T) (*Manager, *fakeUsers, *testClock) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("rahasia123"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	users := &fakeUsers{byID: map[string]*model.User{
		"u1": {ID: "u1", Name: "Budi", Email: "budi@student.ac.id", PasswordHash: string(hash), Role: model.RoleStudent},
	}}
	clock := &testClock{now: time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)}

	m, err := NewManager(users, Options{Secret: "test-secret", BcryptCost: bcrypt.MinCost, Now: clock.Now}, testLogger())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m, users, clock
}

// requestWithCookies переносит Set-Cookie ответа в новый запрос.
func requestWithCookies(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			req.AddCookie(c)
		}
	}
	return req
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// TestVerifyCredentials проверяет проверку email и пароля.
func TestVerifyCredentials(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"верные данные", "budi@student.ac.id", "rahasia123", nil},
		{"регистр email не важен", "BUDI@student.ac.id", "rahasia123", nil},
		{"неверный пароль", "budi@student.ac.id", "salah", ErrInvalidCredentials},
		{"неизвестный email", "nobody@student.ac.id", "rahasia123", ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := m.VerifyCredentials(ctx, tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ошибка = %v, ожидалась %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && user.ID != "u1" {
				t.Errorf("user.ID = %q, ожидался u1", user.ID)
			}
		})
	}
}

// TestCreateSession проверяет выдачу сессии и cookie.
func TestCreateSession(t *testing.T) {
	m, users, clock := newTestManager(t)

	tests := []struct {
		name     string
		extended bool
		lifetime time.Duration
	}{
		{"обычная сессия", false, 24 * time.Hour},
		{"запомнить меня", true, 7 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s, err := m.CreateSession(rec, users.byID["u1"], tt.extended)
			if err != nil {
				t.Fatalf("CreateSession: %v", err)
			}
			if !s.ExpiresAt.Equal(clock.now.Add(tt.lifetime)) {
				t.Errorf("ExpiresAt = %v, ожидалось %v", s.ExpiresAt, clock.now.Add(tt.lifetime))
			}

			session := cookieByName(rec, SessionCookieName)
			if session == nil || !session.HttpOnly || session.SameSite != http.SameSiteLaxMode {
				t.Fatalf("cookie сессии некорректен: %+v", session)
			}
			expiry := cookieByName(rec, ExpiryCookieName)
			if expiry == nil || expiry.HttpOnly {
				t.Fatalf("cookie истечения должен быть доступен клиенту: %+v", expiry)
			}
			if expiry.Value != s.ExpiresAt.Format(time.RFC3339) {
				t.Errorf("cookie истечения = %q", expiry.Value)
			}

			got, err := m.SessionFromRequest(requestWithCookies(rec))
			if err != nil || got == nil {
				t.Fatalf("SessionFromRequest: %v, %v", got, err)
			}
			if got.UserID != "u1" || got.Role != model.RoleStudent || got.Extended != tt.extended {
				t.Errorf("сессия = %+v", got)
			}
		})
	}
}

// TestSessionFromRequest проверяет извлечение сессии из разных носителей.
func TestSessionFromRequest(t *testing.T) {
	m, users, clock := newTestManager(t)

	rec := httptest.NewRecorder()
	if _, err := m.CreateSession(rec, users.byID["u1"], false); err != nil {
		t.Fatal(err)
	}
	token := cookieByName(rec, SessionCookieName).Value

	t.Run("без носителя", func(t *testing.T) {
		s, err := m.SessionFromRequest(httptest.NewRequest(http.MethodGet, "/", nil))
		if s != nil || err != nil {
			t.Errorf("ожидалось nil, nil; получено %v, %v", s, err)
		}
	})

	t.Run("bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		s, err := m.SessionFromRequest(req)
		if err != nil || s == nil || s.UserID != "u1" {
			t.Errorf("bearer не распознан: %v, %v", s, err)
		}
	})

	t.Run("подделанный токен", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token + "x"})
		if _, err := m.SessionFromRequest(req); !errors.Is(err, ErrInvalidSession) {
			t.Errorf("ожидалась ErrInvalidSession, получено %v", err)
		}
	})

	t.Run("чужой ключ", func(t *testing.T) {
		other, _ := NewManager(users, Options{Secret: "other", BcryptCost: bcrypt.MinCost, Now: clock.Now}, testLogger())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
		if _, err := other.SessionFromRequest(req); !errors.Is(err, ErrInvalidSession) {
			t.Errorf("ожидалась ErrInvalidSession, получено %v", err)
		}
	})

	t.Run("истёкшая сессия", func(t *testing.T) {
		saved := clock.now
		clock.now = clock.now.Add(25 * time.Hour)
		defer func() { clock.now = saved }()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
		if _, err := m.SessionFromRequest(req); !errors.Is(err, ErrInvalidSession) {
			t.Errorf("ожидалась ErrInvalidSession, получено %v", err)
		}
	})
}

// TestExtendSession проверяет строгое увеличение времени истечения.
func TestExtendSession(t *testing.T) {
	m, users, clock := newTestManager(t)

	t.Run("без сессии", func(t *testing.T) {
		_, err := m.ExtendSession(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
		if !errors.Is(err, ErrNoSession) {
			t.Errorf("ожидалась ErrNoSession, получено %v", err)
		}
	})

	t.Run("монотонность", func(t *testing.T) {
		rec := httptest.NewRecorder()
		first, err := m.CreateSession(rec, users.byID["u1"], false)
		if err != nil {
			t.Fatal(err)
		}

		// Продление в тот же момент всё равно сдвигает истечение вперёд
		rec2 := httptest.NewRecorder()
		second, err := m.ExtendSession(rec2, requestWithCookies(rec))
		if err != nil {
			t.Fatalf("ExtendSession: %v", err)
		}
		if !second.ExpiresAt.After(first.ExpiresAt) {
			t.Errorf("истечение не увеличилось: %v → %v", first.ExpiresAt, second.ExpiresAt)
		}
		if second.UserID != first.UserID || second.Role != first.Role {
			t.Error("продление изменило личность или роль")
		}

		clock.now = clock.now.Add(2 * time.Hour)
		rec3 := httptest.NewRecorder()
		third, err := m.ExtendSession(rec3, requestWithCookies(rec2))
		if err != nil {
			t.Fatalf("ExtendSession: %v", err)
		}
		if !third.ExpiresAt.After(second.ExpiresAt) {
			t.Errorf("истечение не увеличилось: %v → %v", second.ExpiresAt, third.ExpiresAt)
		}
		if !third.ExpiresAt.Equal(clock.now.Add(24 * time.Hour)) {
			t.Errorf("ExpiresAt = %v, ожидалось now+24h", third.ExpiresAt)
		}
	})

	t.Run("продлённая сессия сохраняет срок 7 дней", func(t *testing.T) {
		rec := httptest.NewRecorder()
		if _, err := m.CreateSession(rec, users.byID["u1"], true); err != nil {
			t.Fatal(err)
		}
		clock.now = clock.now.Add(time.Hour)
		s, err := m.ExtendSession(httptest.NewRecorder(), requestWithCookies(rec))
		if err != nil {
			t.Fatalf("ExtendSession: %v", err)
		}
		if !s.Extended || !s.ExpiresAt.Equal(clock.now.Add(ExtendedLifetime)) {
			t.Errorf("сессия = %+v", s)
		}
	})
}

// TestCurrentUser проверяет самовосстановление при удалённом пользователе.
func TestCurrentUser(t *testing.T) {
	m, users, _ := newTestManager(t)

	rec := httptest.NewRecorder()
	if _, err := m.CreateSession(rec, users.byID["u1"], false); err != nil {
		t.Fatal(err)
	}

	user, err := m.CurrentUser(httptest.NewRecorder(), requestWithCookies(rec))
	if err != nil || user == nil || user.ID != "u1" {
		t.Fatalf("CurrentUser: %v, %v", user, err)
	}

	delete(users.byID, "u1")
	out := httptest.NewRecorder()
	user, err = m.CurrentUser(out, requestWithCookies(rec))
	if err != nil || user != nil {
		t.Fatalf("ожидалось nil, nil для удалённого пользователя; получено %v, %v", user, err)
	}
	if c := cookieByName(out, SessionCookieName); c == nil || c.MaxAge != -1 {
		t.Error("cookie сессии не очищен")
	}
	if c := cookieByName(out, ExpiryCookieName); c == nil || c.MaxAge != -1 {
		t.Error("cookie истечения не очищен")
	}
}

// TestHasRole проверяет проверку роли по носителю.
func TestHasRole(t *testing.T) {
	m, users, _ := newTestManager(t)

	if m.HasRole(httptest.NewRequest(http.MethodGet, "/", nil), model.RoleStudent) {
		t.Error("без сессии HasRole должен возвращать false")
	}

	rec := httptest.NewRecorder()
	if _, err := m.CreateSession(rec, users.byID["u1"], false); err != nil {
		t.Fatal(err)
	}
	req := requestWithCookies(rec)
	if !m.HasRole(req, model.RoleStudent) {
		t.Error("ожидалась роль student")
	}
	if m.HasRole(req, model.RoleAdmin) {
		t.Error("роль admin не ожидалась")
	}
}

// TestDeriveKey проверяет получение ключа подписи.
func TestDeriveKey(t *testing.T) {
	k1, _ := deriveKey("")
	k2, _ := deriveKey("")
	if len(k1) != 32 || string(k1) == string(k2) {
		t.Error("пустой секрет должен давать случайный 32-байтовый ключ")
	}

	s1, _ := deriveKey("my-secret")
	s2, _ := deriveKey("my-secret")
	if len(s1) != 32 || string(s1) != string(s2) {
		t.Error("строковый секрет должен давать детерминированный ключ")
	}

	raw := "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="
	b, _ := deriveKey(raw)
	if len(b) != 32 || b[0] != 0 {
		t.Error("base64-секрет из 32 байт должен использоваться как есть")
	}
}

// TestHashPassword проверяет хеширование пароля.
func TestHashPassword(t *testing.T) {
	m, _, _ := newTestManager(t)

	hash, err := m.HashPassword("kata-sandi")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "kata-sandi" {
		t.Fatal("пароль сохранён в открытом виде")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("kata-sandi")); err != nil {
		t.Errorf("хеш не соответствует паролю: %v", err)
	}
}
