// cache.go — LRU-кэш программ стипендий с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/sibo/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sibo_scholarship_cache_hits_total",
		Help: "Общее количество попаданий в кэш программ стипендий.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sibo_scholarship_cache_misses_total",
		Help: "Общее количество промахов кэша программ стипендий.",
	})
)

// ScholarshipCache — кэш программ по ID с автоматическим TTL.
// Инвалидируется при изменении и удалении программы.
type ScholarshipCache struct {
	cache *expirable.LRU[string, model.Scholarship]
}

// NewScholarshipCache создаёт кэш с указанным максимальным размером и TTL.
func NewScholarshipCache(maxSize int, ttl time.Duration) *ScholarshipCache {
	return &ScholarshipCache{cache: expirable.NewLRU[string, model.Scholarship](maxSize, nil, ttl)}
}

// Get возвращает копию программы из кэша.
func (c *ScholarshipCache) Get(id string) (*model.Scholarship, bool) {
	val, ok := c.cache.Get(id)
	if ok {
		cacheHitsTotal.Inc()
		return &val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *ScholarshipCache) Set(s *model.Scholarship) {
	c.cache.Add(s.ID, *s)
}

// Delete удаляет запись из кэша.
func (c *ScholarshipCache) Delete(id string) {
	c.cache.Remove(id)
}

// Len возвращает количество записей в кэше.
func (c *ScholarshipCache) Len() int {
	return c.cache.Len()
}
