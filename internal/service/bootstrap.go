// bootstrap.go — начальное заполнение хранилища при старте.
// Создаёт администратора из конфигурации и, по запросу, демонстрационные программы.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/repository"
)

// BootstrapConfig — параметры начального заполнения.
type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
	SeedDemo      bool
}

// Bootstrap выполняет начальное заполнение. Повторный запуск ничего не дублирует.
type Bootstrap struct {
	users        repository.UserRepository
	scholarships repository.ScholarshipRepository
	hasher       PasswordHasher
	now          func() time.Time
	logger       *slog.Logger
}

// NewBootstrap создаёт Bootstrap. now == nil — time.Now.
func NewBootstrap(
	users repository.UserRepository,
	scholarships repository.ScholarshipRepository,
	hasher PasswordHasher,
	now func() time.Time,
	logger *slog.Logger,
) *Bootstrap {
	if now == nil {
		now = time.Now
	}
	return &Bootstrap{
		users:        users,
		scholarships: scholarships,
		hasher:       hasher,
		now:          now,
		logger:       logger.With(slog.String("component", "bootstrap")),
	}
}

// Run создаёт администратора и демонстрационные программы согласно cfg.
func (b *Bootstrap) Run(ctx context.Context, cfg BootstrapConfig) error {
	if cfg.AdminEmail != "" {
		if err := b.ensureAdmin(ctx, cfg); err != nil {
			return err
		}
	}
	if cfg.SeedDemo {
		if err := b.seedScholarships(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ensureAdmin создаёт администратора, если email ещё не занят.
func (b *Bootstrap) ensureAdmin(ctx context.Context, cfg BootstrapConfig) error {
	email := strings.TrimSpace(cfg.AdminEmail)

	existing, err := b.users.GetByEmail(ctx, email)
	if err == nil {
		if existing.Role != model.RoleAdmin {
			b.logger.Warn("Email администратора занят студентом, администратор не создан",
				slog.String("email", email),
			)
		}
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return storeErr("поиск администратора", err)
	}

	hash, err := b.hasher.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	admin, err := b.users.Create(ctx, &model.User{
		Name:         cfg.AdminName,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
	})
	if err != nil {
		return storeErr("создание администратора", err)
	}

	b.logger.Info("Создан администратор", slog.String("user_id", admin.ID), slog.String("email", email))
	return nil
}

// seedScholarships создаёт демонстрационные программы, если программ нет.
// Сроки приёма отсчитываются от текущего момента.
func (b *Bootstrap) seedScholarships(ctx context.Context) error {
	existing, err := b.scholarships.List(ctx, "")
	if err != nil {
		return storeErr("список программ", err)
	}
	if len(existing) > 0 {
		return nil
	}

	day := 24 * time.Hour
	now := b.now().UTC().Truncate(day)
	demo := []*model.Scholarship{
		{
			Name:        "Beasiswa Prestasi Akademik",
			Description: "Beasiswa untuk mahasiswa dengan prestasi akademik tinggi",
			Quota:       10,
			MinGPA:      3.5,
			OpensAt:     now.Add(-30 * day),
			ClosesAt:    now.Add(150 * day).Add(-time.Second),
		},
		{
			Name:        "Beasiswa Peningkatan Prestasi Akademik",
			Description: "Beasiswa untuk mahasiswa yang menunjukkan peningkatan prestasi akademik",
			Quota:       5,
			MinGPA:      3.0,
			OpensAt:     now,
			ClosesAt:    now.Add(60 * day).Add(-time.Second),
		},
		{
			Name:        "Beasiswa Mahasiswa Berprestasi",
			Description: "Beasiswa untuk mahasiswa dengan prestasi di bidang akademik dan non-akademik",
			Quota:       7,
			MinGPA:      3.25,
			OpensAt:     now.Add(30 * day),
			ClosesAt:    now.Add(90 * day).Add(-time.Second),
		},
	}

	for _, sch := range demo {
		sch.Status = model.ScholarshipActive
		if _, err := b.scholarships.Create(ctx, sch); err != nil {
			return storeErr("создание демонстрационной программы", err)
		}
	}

	b.logger.Info("Созданы демонстрационные программы", slog.Int("count", len(demo)))
	return nil
}
