// Пакет server — HTTP-сервер SIBO с graceful shutdown.
// Без TLS — TLS termination на обратном прокси.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/sibo/internal/api/handlers"
	"github.com/bigkaa/sibo/internal/api/middleware"
	"github.com/bigkaa/sibo/internal/config"
)

// Server — HTTP-сервер SIBO.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// limiter — ограничитель попыток входа (nil — без ограничения).
func New(
	cfg *config.Config,
	logger *slog.Logger,
	handler *handlers.APIHandler,
	gate *middleware.AccessGate,
	limiter middleware.Limiter,
) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(cfg, logger, handler, gate, limiter),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает chi router со всеми маршрутами SIBO.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	h *handlers.APIHandler,
	gate *middleware.AccessGate,
	limiter middleware.Limiter,
) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам).
	// Gate стоит последним: решения о доступе видны в логе и метриках.
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Recoverer(logger))
	router.Use(gate.Middleware())

	router.Get("/health/live", h.HealthLive)
	router.Get("/health/ready", h.HealthReady)
	router.Get("/metrics", h.GetMetrics)

	loginLimit := middleware.RateLimit(limiter, middleware.LoginKey(cfg.TrustedProxies), cfg.LoginRateLimit, cfg.LoginRateWindow)

	router.Route("/api/v1", func(r chi.Router) {
		r.With(loginLimit).Post("/sessions", h.Login)
		r.Post("/sessions/extend", h.ExtendSession)
		r.Delete("/sessions", h.Logout)

		r.Get("/me", h.GetMe)
		r.Post("/users", h.RegisterUser)

		r.Route("/scholarships", func(r chi.Router) {
			r.Get("/", h.ListScholarships)
			r.Post("/", h.CreateScholarship)
			r.Get("/{id}", h.GetScholarship)
			r.Put("/{id}", h.UpdateScholarship)
			r.Delete("/{id}", h.DeleteScholarship)
		})

		r.Route("/applications", func(r chi.Router) {
			r.Get("/", h.ListApplications)
			r.Post("/", h.SubmitApplication)
			r.Get("/{id}", h.GetApplication)
			r.Put("/{id}", h.ReviewApplication)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", h.ListDocuments)
			r.Post("/", h.UploadDocument)
			r.Get("/{id}/file", h.DownloadDocument)
			r.Put("/{id}", h.VerifyDocument)
		})

		r.Get("/notifications", h.ListNotifications)
		r.Post("/notifications/{id}/read", h.MarkNotificationRead)

		r.Get("/reports/scholarships/{id}", h.ScholarshipReport)

		r.Get("/admin/stats", h.AdminStats)
		r.Get("/student/overview", h.StudentOverview)
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
