// ratelimit_redis.go — ограничитель на Redis для нескольких экземпляров сервиса.
// При недоступности Redis запросы пропускаются.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// rateLimitScript — атомарный счётчик с окном: INCR и PEXPIRE при первом событии.
const rateLimitScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

// redisTimeout — предел ожидания ответа Redis на одно решение.
const redisTimeout = 250 * time.Millisecond

// RedisLimiter — Limiter на Redis.
type RedisLimiter struct {
	client redis.Scripter
	script *redis.Script
	logger *slog.Logger
}

// NewRedisLimiter создаёт ограничитель на Redis.
func NewRedisLimiter(client redis.Scripter, logger *slog.Logger) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		script: redis.NewScript(rateLimitScript),
		logger: logger.With(slog.String("component", "redis_limiter")),
	}
}

// Allow учитывает событие в Redis. Ошибка Redis не блокирует запрос.
func (l *RedisLimiter) Allow(key string, limit int, window time.Duration) bool {
	if key == "" || limit <= 0 || window <= 0 {
		return true
	}
	ttl := window.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	allowed, err := l.script.Run(ctx, l.client, []string{key}, ttl, limit).Int64()
	if err != nil {
		l.logger.Warn("Ошибка Redis при проверке лимита",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return true
	}
	return allowed == 1
}

// RedisReadinessChecker — проверка доступности Redis для health endpoint.
// Ограничитель без Redis пропускает запросы, поэтому сбой — degraded.
type RedisReadinessChecker struct {
	client *redis.Client
}

// NewRedisReadinessChecker создаёт проверку готовности Redis.
func NewRedisReadinessChecker(client *redis.Client) *RedisReadinessChecker {
	return &RedisReadinessChecker{client: client}
}

// CheckReady выполняет PING.
func (c *RedisReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return "degraded", fmt.Sprintf("Redis недоступен, лимит входа не применяется: %v", err)
	}
	return "ok", "подключение активно"
}
