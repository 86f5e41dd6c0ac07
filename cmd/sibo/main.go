// Точка входа SIBO — сервиса управления стипендиями.
// Загружает конфигурацию, открывает хранилище записей (файлы или PostgreSQL),
// создаёт менеджер сессий, сервисный слой и API handlers, выполняет
// начальную загрузку данных и запускает HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/bigkaa/sibo/internal/api/handlers"
	"github.com/bigkaa/sibo/internal/api/middleware"
	"github.com/bigkaa/sibo/internal/auth"
	"github.com/bigkaa/sibo/internal/config"
	"github.com/bigkaa/sibo/internal/database"
	"github.com/bigkaa/sibo/internal/domain/rbac"
	"github.com/bigkaa/sibo/internal/repository"
	"github.com/bigkaa/sibo/internal/server"
	"github.com/bigkaa/sibo/internal/service"
	"github.com/bigkaa/sibo/internal/storage/filestore"
	"github.com/bigkaa/sibo/internal/store"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("SIBO запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("store_backend", cfg.StoreBackend),
	)

	if cfg.SessionSecret == "" {
		logger.Warn("SIBO_SESSION_SECRET не задан, используется случайный ключ: сессии не переживут перезапуск")
	}

	ctx := context.Background()

	// 3. Хранилище записей
	var (
		recordStore  store.Store
		storeChecker handlers.ReadinessChecker
		dephealthSvc *service.DephealthService
	)

	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
			os.Exit(1)
		}

		pool, err := database.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		recordStore = store.NewPostgresStore(pool)
		storeChecker = database.NewReadinessChecker(pool)

		// Адаптер pgxpool → *sql.DB для topologymetrics
		pgDB := stdlib.OpenDBFromPool(pool)
		defer pgDB.Close()

		dephealthSvc, err = service.NewDephealthService(cfg.DephealthGroup, service.RecordStoreDependency{
			DB:       pgDB,
			URL:      cfg.DatabaseURL(),
			Interval: cfg.DephealthCheckInterval,
		}, logger)
		if err != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", err.Error()),
			)
			dephealthSvc = nil
		} else if err := dephealthSvc.Start(ctx); err != nil {
			logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
			dephealthSvc = nil
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}

	default:
		fs, err := store.NewFileStore(cfg.DataDir)
		if err != nil {
			logger.Error("Ошибка открытия файлового хранилища",
				slog.String("data_dir", cfg.DataDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		if err := fs.Init(repository.Collections()...); err != nil {
			logger.Error("Ошибка инициализации коллекций", slog.String("error", err.Error()))
			os.Exit(1)
		}
		recordStore = fs
		logger.Info("Файловое хранилище открыто", slog.String("data_dir", fs.DataDir()))
	}

	recordStore = store.Instrument(recordStore, cfg.StoreBackend)
	if storeChecker == nil {
		storeChecker = store.NewReadinessChecker(recordStore, repository.CollectionUsers)
	}

	// 4. Repositories
	userRepo := repository.NewUserRepository(recordStore)
	scholarshipRepo := repository.NewScholarshipRepository(recordStore)
	applicationRepo := repository.NewApplicationRepository(recordStore)
	documentRepo := repository.NewDocumentRepository(recordStore)
	notificationRepo := repository.NewNotificationRepository(recordStore)

	// 5. Менеджер сессий
	sessions, err := auth.NewManager(userRepo, auth.Options{
		Secret:     cfg.SessionSecret,
		Secure:     cfg.SecureCookie,
		BcryptCost: cfg.BcryptCost,
	}, logger)
	if err != nil {
		logger.Error("Ошибка создания менеджера сессий", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. Хранилище загруженных документов
	files, err := filestore.New(cfg.UploadDir, cfg.MaxUploadSize)
	if err != nil {
		logger.Error("Ошибка открытия директории документов",
			slog.String("upload_dir", cfg.UploadDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// 7. Services
	cache := service.NewScholarshipCache(cfg.CacheSize, cfg.CacheTTL)
	usersSvc := service.NewUserService(userRepo, sessions, logger)
	scholarshipsSvc := service.NewScholarshipService(scholarshipRepo, cache, logger)
	notificationsSvc := service.NewNotificationService(notificationRepo, logger)
	applicationsSvc := service.NewApplicationService(
		applicationRepo, userRepo, scholarshipsSvc, notificationsSvc,
		nil, logger,
	)
	documentsSvc := service.NewDocumentService(
		documentRepo, applicationRepo, files, notificationsSvc,
		logger,
	)
	reportsSvc := service.NewReportService(scholarshipsSvc, applicationsSvc, usersSvc, nil, logger)
	statsSvc := service.NewStatsService(
		userRepo, scholarshipRepo, applicationRepo, documentRepo, notificationsSvc,
		nil, logger,
	)

	// 8. Начальные данные
	bootstrap := service.NewBootstrap(userRepo, scholarshipRepo, sessions, nil, logger)
	if err := bootstrap.Run(ctx, service.BootstrapConfig{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		AdminName:     cfg.AdminName,
		SeedDemo:      cfg.SeedDemo,
	}); err != nil {
		logger.Error("Ошибка начальной загрузки данных", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 9. Ограничитель попыток входа: Redis для нескольких экземпляров, иначе in-memory
	var (
		limiter      middleware.Limiter
		redisChecker handlers.ReadinessChecker
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()

		limiter = middleware.NewRedisLimiter(redisClient, logger)
		redisChecker = middleware.NewRedisReadinessChecker(redisClient)
		logger.Info("Лимит попыток входа хранится в Redis", slog.String("addr", cfg.RedisAddr))
	} else {
		limiter = middleware.NewRateLimiter()
	}

	// 10. Handlers, access gate и HTTP-сервер
	healthHandler := handlers.NewHealthHandler(storeChecker, redisChecker)
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		sessions,
		handlers.Services{
			Users:         usersSvc,
			Scholarships:  scholarshipsSvc,
			Applications:  applicationsSvc,
			Documents:     documentsSvc,
			Notifications: notificationsSvc,
			Reports:       reportsSvc,
			Stats:         statsSvc,
		},
		cfg.MaxUploadSize,
		logger,
	)
	gate := middleware.NewAccessGate(rbac.DefaultRules(), sessions, logger)

	srv := server.New(cfg, logger, apiHandler, gate, limiter)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка HTTP-сервера", slog.String("error", err.Error()))
		if dephealthSvc != nil {
			dephealthSvc.Stop()
		}
		os.Exit(1)
	}

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	logger.Info("SIBO остановлен")
}
