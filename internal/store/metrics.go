// metrics.go — Prometheus-метрики операций хранилища записей.
// Регистрирует sibo_store_operations_total и sibo_store_operation_duration_seconds.
package store

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sibo_store_operations_total",
			Help: "Общее количество операций хранилища записей",
		},
		[]string{"backend", "collection", "op", "result"},
	)

	storeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sibo_store_operation_duration_seconds",
			Help:    "Длительность операций хранилища записей в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)
)

// Instrumented — обёртка Store, считающая операции и их длительность.
type Instrumented struct {
	next    Store
	backend string
}

// Instrument оборачивает хранилище метриками. backend — лейбл метрик
// (file, postgres, memory).
func Instrument(next Store, backend string) *Instrumented {
	return &Instrumented{next: next, backend: backend}
}

// observe фиксирует результат операции.
func (s *Instrumented) observe(collection, op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storeOperationsTotal.WithLabelValues(s.backend, collection, op, result).Inc()
	storeOperationDuration.WithLabelValues(s.backend, op).Observe(time.Since(start).Seconds())
}

func (s *Instrumented) ReadAll(ctx context.Context, collection string) ([]Record, error) {
	start := time.Now()
	records, err := s.next.ReadAll(ctx, collection)
	s.observe(collection, "read_all", start, err)
	return records, err
}

func (s *Instrumented) FindMany(ctx context.Context, collection string, pred Predicate) ([]Record, error) {
	start := time.Now()
	records, err := s.next.FindMany(ctx, collection, pred)
	s.observe(collection, "find_many", start, err)
	return records, err
}

func (s *Instrumented) FindOne(ctx context.Context, collection string, pred Predicate) (Record, bool, error) {
	start := time.Now()
	rec, ok, err := s.next.FindOne(ctx, collection, pred)
	s.observe(collection, "find_one", start, err)
	return rec, ok, err
}

func (s *Instrumented) Insert(ctx context.Context, collection string, fields Record) (Record, error) {
	start := time.Now()
	rec, err := s.next.Insert(ctx, collection, fields)
	s.observe(collection, "insert", start, err)
	return rec, err
}

func (s *Instrumented) Update(ctx context.Context, collection, id string, patch Record) (Record, bool, error) {
	start := time.Now()
	rec, ok, err := s.next.Update(ctx, collection, id, patch)
	s.observe(collection, "update", start, err)
	return rec, ok, err
}

func (s *Instrumented) Remove(ctx context.Context, collection, id string) (bool, error) {
	start := time.Now()
	ok, err := s.next.Remove(ctx, collection, id)
	s.observe(collection, "remove", start, err)
	return ok, err
}
