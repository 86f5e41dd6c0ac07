package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"
)

// TestRateLimiter_Allow проверяет фиксированное окно.
func TestRateLimiter_Allow(t *testing.T) {
	l := NewRateLimiter()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := range 3 {
		if !l.Allow("k", 3, time.Minute) {
			t.Fatalf("событие %d отклонено", i+1)
		}
	}
	if l.Allow("k", 3, time.Minute) {
		t.Fatal("четвёртое событие в окне должно быть отклонено")
	}
	if !l.Allow("other", 3, time.Minute) {
		t.Error("другой ключ не должен зависеть от первого")
	}

	now = now.Add(61 * time.Second)
	if !l.Allow("k", 3, time.Minute) {
		t.Error("после окончания окна событие должно быть разрешено")
	}
}

// TestRateLimit_Middleware проверяет ответ 429.
func TestRateLimit_Middleware(t *testing.T) {
	h := RateLimit(NewRateLimiter(), LoginKey(nil), 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Errorf("статусы = %v", codes)
	}
}

// TestRateLimit_Disabled проверяет отключение лимита.
func TestRateLimit_Disabled(t *testing.T) {
	h := RateLimit(NewRateLimiter(), LoginKey(nil), 0, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for range 5 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("статус = %d при отключённом лимите", rec.Code)
		}
	}
}

// TestClientIP проверяет определение IP клиента.
func TestClientIP(t *testing.T) {
	trusted := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("::1/128"),
	}

	tests := []struct {
		name    string
		remote  string
		xff     []string
		trusted []netip.Prefix
		want    string
	}{
		{"без заголовка", "192.168.1.5:4321", nil, trusted, "192.168.1.5"},
		{"прокси не настроены", "192.168.1.5:4321", []string{"203.0.113.7"}, nil, "192.168.1.5"},
		{"недоверенный источник", "198.51.100.2:4321", []string{"203.0.113.7"}, trusted, "198.51.100.2"},
		{"доверенный прокси", "10.0.0.1:4321", []string{"203.0.113.7"}, trusted, "203.0.113.7"},
		{"подделанное начало цепочки", "10.0.0.1:4321", []string{"1.2.3.4, 203.0.113.7"}, trusted, "203.0.113.7"},
		{"цепочка прокси", "10.0.0.1:4321", []string{"203.0.113.7, 10.1.1.1, 10.2.2.2"}, trusted, "203.0.113.7"},
		{"несколько заголовков", "10.0.0.1:4321", []string{"1.2.3.4", "203.0.113.7"}, trusted, "203.0.113.7"},
		{"мусор в цепочке", "10.0.0.1:4321", []string{"203.0.113.7, garbage"}, trusted, "10.0.0.1"},
		{"IPv6 прокси", "[::1]:4321", []string{"2001:db8::7"}, trusted, "2001:db8::7"},
		{"без порта", "192.168.1.5", nil, trusted, "192.168.1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for _, v := range tt.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			if got := ClientIP(req, tt.trusted); got != tt.want {
				t.Errorf("ClientIP = %q, ожидалось %q", got, tt.want)
			}
		})
	}
}

// TestRateLimit_ForwardedForRotation проверяет, что смена X-Forwarded-For
// с одного адреса не даёт нового окна попыток.
func TestRateLimit_ForwardedForRotation(t *testing.T) {
	h := RateLimit(NewRateLimiter(), LoginKey(nil), 3, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rejected := 0
	for i := range 50 {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			rejected++
		}
	}

	if rejected != 47 {
		t.Errorf("отклонено %d запросов из 50, ожидалось 47", rejected)
	}
}

// TestNormalizePath проверяет нормализацию путей для метрик.
func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health/live", "/health/live"},
		{"/metrics", "/metrics"},
		{"/api/v1/scholarships", "/api/v1/scholarships"},
		{"/api/v1/applications/0190c5d2-7b3e-7a41-9c1d-4f2e8a6b5c3d", "/api/v1/applications/{id}"},
		{"/api/v1/documents/0190c5d2-7b3e-7a41-9c1d-4f2e8a6b5c3d/file", "/api/v1/documents/{id}/file"},
		{"/admin/dashboard", "/other"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, ожидалось %q", tt.path, got, tt.want)
		}
	}
}
