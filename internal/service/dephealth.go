// dephealth.go — мониторинг базы записей SIBO через topologymetrics.
//
// Работает только с бэкендом postgres: у файлового хранилища внешних
// зависимостей нет. Проверка идёт через тот же пул, что и запросы
// хранилища, поэтому недоступность базы видна в app_dependency_health
// (и соседних app_dependency_* метриках на /metrics) ещё до ошибок API.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// dephealthServiceID — вершина SIBO в графе зависимостей.
	dephealthServiceID = "sibo"
	// recordStoreDependency — имя базы записей в метриках.
	recordStoreDependency = "postgresql"
)

// RecordStoreDependency — параметры мониторинга базы записей.
type RecordStoreDependency struct {
	// DB поверх пула хранилища (stdlib.OpenDBFromPool)
	DB *sql.DB
	// URL базы — только для меток метрик
	URL string
	// Период проверки (SIBO_DEPHEALTH_CHECK_INTERVAL)
	Interval time.Duration
	// Registry метрик; nil — глобальный
	Registerer prometheus.Registerer
}

// DephealthService следит за доступностью базы записей.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт монитор базы записей в группе group
// (SIBO_DEPHEALTH_GROUP). База критична: без неё SIBO не обслуживает запросы.
func NewDephealthService(group string, dep RecordStoreDependency, logger *slog.Logger) (*DephealthService, error) {
	if dep.DB == nil {
		return nil, errors.New("dephealth: не задано подключение к базе записей")
	}

	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		dephealth.AddDependency(recordStoreDependency, dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(dep.DB)),
			dephealth.FromURL(dep.URL),
			dephealth.CheckInterval(dep.Interval),
			dephealth.Critical(true),
		),
	}
	if dep.Registerer != nil {
		opts = append(opts, dephealth.WithRegisterer(dep.Registerer))
	}

	dh, err := dephealth.New(dephealthServiceID, group, opts...)
	if err != nil {
		return nil, fmt.Errorf("dephealth: %w", err)
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку базы записей.
func (ds *DephealthService) Start(ctx context.Context) error {
	if err := ds.dh.Start(ctx); err != nil {
		return err
	}
	ds.logger.Info("Мониторинг базы записей запущен")
	return nil
}

// Stop останавливает проверки.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг базы записей остановлен")
}

// RecordStoreHealthy возвращает последний результат проверки базы записей.
// checked == false, пока проверка ещё не выполнялась.
func (ds *DephealthService) RecordStoreHealthy() (healthy, checked bool) {
	for key, ok := range ds.dh.Health() {
		if strings.HasPrefix(key, recordStoreDependency+":") {
			return ok, true
		}
	}
	return false, false
}
