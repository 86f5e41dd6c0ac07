// ratelimit.go — ограничение частоты запросов по ключу (IP клиента).
// Применяется к входу в систему. In-memory реализация — фиксированное окно.
package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	apierrors "github.com/bigkaa/sibo/internal/api/errors"
)

// Limiter — ограничитель: разрешает не более limit событий на key за window.
type Limiter interface {
	Allow(key string, limit int, window time.Duration) bool
}

// RateLimiter — in-memory ограничитель для одного экземпляра сервиса.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rateBucket
	now     func() time.Time
}

type rateBucket struct {
	count     int
	windowEnd time.Time
}

// NewRateLimiter создаёт in-memory ограничитель.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{buckets: make(map[string]*rateBucket), now: time.Now}
}

// Allow учитывает событие и сообщает, укладывается ли оно в лимит.
func (r *RateLimiter) Allow(key string, limit int, window time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	bucket, ok := r.buckets[key]
	if !ok || now.After(bucket.windowEnd) {
		r.evictExpired(now)
		r.buckets[key] = &rateBucket{count: 1, windowEnd: now.Add(window)}
		return true
	}
	if bucket.count >= limit {
		return false
	}
	bucket.count++
	return true
}

// evictExpired удаляет истёкшие окна. Вызывается под mu.
func (r *RateLimiter) evictExpired(now time.Time) {
	for k, b := range r.buckets {
		if now.After(b.windowEnd) {
			delete(r.buckets, k)
		}
	}
}

// RateLimit возвращает middleware, отвечающий 429 при превышении лимита.
// limit <= 0 или nil limiter отключают ограничение.
func RateLimit(limiter Limiter, keyFn func(*http.Request) string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			key := keyFn(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.Allow(key, limit, window) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				apierrors.TooManyRequests(w, "Слишком много попыток, повторите позже")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginKey возвращает функцию ключа попыток входа по IP клиента.
// trusted — подсети обратных прокси, которым доверен X-Forwarded-For.
func LoginKey(trusted []netip.Prefix) func(*http.Request) string {
	return func(r *http.Request) string {
		return "sibo:login:" + ClientIP(r, trusted)
	}
}

// ClientIP возвращает IP клиента. По умолчанию это адрес соединения.
// X-Forwarded-For учитывается только от доверенного прокси: цепочка
// просматривается справа налево до первого недоверенного адреса.
func ClientIP(r *http.Request, trusted []netip.Prefix) string {
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	addr, err := netip.ParseAddr(remote)
	if err != nil || !isTrustedProxy(addr.Unmap(), trusted) {
		return remote
	}

	client := addr.Unmap()
	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		client = hop.Unmap()
		if !isTrustedProxy(client, trusted) {
			break
		}
	}
	return client.String()
}

func isTrustedProxy(addr netip.Addr, trusted []netip.Prefix) bool {
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
